package dashboard

import (
	"time"

	"go-ndr-export-dashboard/internal/ndr"
)

// Row is one job decorated with everything the table needs: status tag,
// available actions, progress and resolved artifact URLs.
type Row struct {
	ndr.File
	StatusTag        ndr.Tag      `json:"statusTag"`
	Actions          []ndr.Action `json:"actions"`
	ProgressPct      string       `json:"progressPct,omitempty"`
	DownloadURL      string       `json:"downloadUrl,omitempty"`
	ErrorDownloadURL string       `json:"errorDownloadUrl,omitempty"`
	HasBatches       bool         `json:"hasBatches"`
}

// Snapshot is a consistent point-in-time copy of the screen state.
type Snapshot struct {
	Files               []Row     `json:"files"`
	Processing          bool      `json:"processing"`
	ProcessingCount     int       `json:"processingCount"`
	Custom              bool      `json:"custom"`
	CredentialsProvided bool      `json:"credentialsProvided"`
	Format              string    `json:"format"`
	LastRunDate         string    `json:"lastRunDate,omitempty"`
	DefaultFromDate     string    `json:"defaultFromDate"`
	RefreshedAt         time.Time `json:"refreshedAt"`
	LastError           string    `json:"lastError,omitempty"`
}

// Snapshot derives the current view under the dashboard lock. Rows are
// rebuilt on every call; derivation is pure so stale copies are harmless.
func (d *Dashboard) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	rows := make([]Row, 0, len(d.files))
	for _, f := range d.files {
		row := Row{
			File:       f,
			StatusTag:  ndr.StatusTag(f.Status),
			Actions:    ndr.DeriveActions(f),
			HasBatches: len(ndr.BatchIDs(f.NDRBatchIDs)) > 0,
		}
		if ndr.ShowsProgress(f) {
			row.ProgressPct = ndr.ProgressPercent(f.Processed, f.Total)
		}
		if f.Path != "" {
			row.DownloadURL = d.emr.DownloadURL(f.Path)
		}
		if f.ErrorPath != "" {
			row.ErrorDownloadURL = d.emr.DownloadURL(f.ErrorPath)
		}
		rows = append(rows, row)
	}

	return Snapshot{
		Files:               rows,
		Processing:          d.processing,
		ProcessingCount:     d.processingCount,
		Custom:              d.custom,
		CredentialsProvided: d.credentialsProvided,
		Format:              d.extractionOpt,
		LastRunDate:         d.lastRunDate,
		DefaultFromDate:     d.defaultFromDate,
		RefreshedAt:         d.refreshedAt,
		LastError:           d.lastRefreshError,
	}
}
