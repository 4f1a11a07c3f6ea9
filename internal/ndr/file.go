package ndr

// File is one export job row as reported by the EMR backend. Field names
// follow the upstream controller payload verbatim, including its quirks:
// errorLogsPulled is the string sentinel "yes"/"no", not a boolean, and
// status is free text rather than a closed enum.
type File struct {
	Number          int    `json:"number"`
	Owner           string `json:"owner"`
	Name            string `json:"name"`
	DateStarted     string `json:"dateStarted"`
	DateEnded       string `json:"dateEnded,omitempty"`
	Total           int64  `json:"total"`
	Processed       int64  `json:"processed,omitempty"`
	Status          string `json:"status"`
	Path            string `json:"path"`
	ErrorPath       string `json:"errorPath,omitempty"`
	ErrorList       string `json:"errorList,omitempty"`
	Active          bool   `json:"active"`
	HasError        bool   `json:"hasError,omitempty"`
	NDRBatchIDs     string `json:"ndrBatchIds,omitempty"`
	ErrorLogsPulled string `json:"errorLogsPulled,omitempty"`
	Progress        string `json:"progress,omitempty"`
}

// ErrorLogEntry is one per-record validation failure pulled from the remote
// reporting service for a given export job.
type ErrorLogEntry struct {
	Filename     string `json:"filename"`
	PatientID    string `json:"patientId"`
	ErrorMessage string `json:"errorMessage"`
}
