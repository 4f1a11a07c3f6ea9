package ndr

import "strings"

// Action is one lifecycle or artifact intent exposed on a file row.
type Action string

const (
	ActionDownload         Action = "download"
	ActionDownloadErrorLog Action = "downloadErrorFile"
	ActionDownloadErrorCSV Action = "downloadErrorCsv"
	ActionDelete           Action = "delete"
	ActionRestart          Action = "restart"
	ActionResume           Action = "resume"
	ActionPause            Action = "pause"
	ActionViewBatches      Action = "viewBatches"
	ActionViewErrorLogs    Action = "viewErrorLogs"
)

// DeriveActions computes the action set for a file row. It is a pure function
// of (status, active, hasError, artifact presence, batch ids, errorLogsPulled)
// and preserves the upstream classification table: the completed family gets
// downloads/delete/restart only while active, failed gets restart-first,
// paused exposes resume+delete regardless of active, processing exposes pause
// only, and anything else exposes delete while active. View-batches and
// view-error-logs are independent of the lifecycle branch.
func DeriveActions(f File) []Action {
	actions := make([]Action, 0, 6)
	kind := ClassifyStatus(f.Status)

	// Completed-with-errors rows may also carry hasError from the backend;
	// either signal unlocks the error artifacts.
	hasErrors := kind == StatusCompletedWithErrors || f.HasError

	switch kind {
	case StatusCompleted, StatusCompletedWithErrors:
		if f.Active {
			actions = append(actions, ActionDownload)
			if hasErrors && f.ErrorPath != "" {
				actions = append(actions, ActionDownloadErrorLog)
			}
			if hasErrors && f.ErrorList != "" {
				actions = append(actions, ActionDownloadErrorCSV)
			}
			actions = append(actions, ActionDelete, ActionRestart)
		}
	case StatusFailed:
		if f.Active {
			actions = append(actions, ActionRestart)
			if f.Path != "" {
				actions = append(actions, ActionDownload)
			}
			if f.HasError && f.ErrorPath != "" {
				actions = append(actions, ActionDownloadErrorLog)
			}
			actions = append(actions, ActionDelete)
		}
	case StatusPaused:
		actions = append(actions, ActionResume, ActionDelete)
	case StatusProcessing:
		actions = append(actions, ActionPause)
	default:
		if f.Active {
			actions = append(actions, ActionDelete)
		}
	}

	if strings.TrimSpace(f.NDRBatchIDs) != "" {
		actions = append(actions, ActionViewBatches)
	}
	if f.ErrorLogsPulled == "yes" {
		actions = append(actions, ActionViewErrorLogs)
	}

	return actions
}

// ShowsProgress reports whether the row renders the processed/total progress
// indicator instead of a terminal-state badge.
func ShowsProgress(f File) bool {
	return ClassifyStatus(f.Status) == StatusProcessing
}

// BatchIDs splits the comma-joined batch id string into its opaque tokens.
func BatchIDs(ndrBatchIDs string) []string {
	if strings.TrimSpace(ndrBatchIDs) == "" {
		return nil
	}
	return strings.Split(ndrBatchIDs, ",")
}
