package constants

// JobStatus is the canonical status for rows in document_runs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusRunning    JobStatus = "RUNNING"    // bytes read, pipeline started
	JobStatusClassified JobStatus = "CLASSIFIED" // category known
	JobStatusMapped     JobStatus = "MAPPED"     // resource graph persisted
	JobStatusFailed     JobStatus = "FAILED"     // terminal failure
)

// Encounter lifecycle states accepted for visit records.
var EncounterStatuses = []string{
	"planned", "arrived", "triaged", "in-progress", "onleave", "finished", "cancelled",
}

// DiagnosticReport states accepted for lab records.
var ReportStatuses = []string{
	"registered", "preliminary", "final", "amended", "corrected", "appended",
	"cancelled", "entered-in-error", "unknown",
}

// Observation states accepted for result entries (no "appended").
var ObservationStatuses = []string{
	"registered", "preliminary", "final", "amended", "corrected",
	"cancelled", "entered-in-error", "unknown",
}
