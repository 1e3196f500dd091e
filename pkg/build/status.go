package build

// Status is the stage a build attempt is currently in. It exists for
// progress reporting only; the pipeline itself is driven by the manager.
type Status int

// Pipeline stages.
const (
	StatusInit Status = iota
	StatusDownloading
	StatusExtracting
	StatusConfiguring
	StatusBuilding
	StatusInstalling
	StatusComplete
	StatusFailed
)

var statusNames = map[Status]string{
	StatusInit:        "init",
	StatusDownloading: "downloading",
	StatusExtracting:  "extracting",
	StatusConfiguring: "configuring",
	StatusBuilding:    "building",
	StatusInstalling:  "installing",
	StatusComplete:    "complete",
	StatusFailed:      "failed",
}

// String returns the human-readable name of the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}
