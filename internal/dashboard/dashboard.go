package dashboard

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"go-ndr-export-dashboard/internal/connectors/emr"
	"go-ndr-export-dashboard/internal/ndr"
)

// identifiersPlaceholder is the form placeholder text. The original screen
// submitted it verbatim when the operator never touched the field, so it is
// treated as "no filter" and stripped before the request goes out.
const identifiersPlaceholder = "comma separated patient identifiers or Ids"

// Dashboard owns all mutable screen state: the job list (replaced wholesale
// on every fetch), the processing aggregate, the custom-list toggle, the
// selected extraction format and the remote-credentials flag. Every upstream
// call goes through it, and it runs the background polling loop.
type Dashboard struct {
	emr             *emr.Client
	pollInterval    time.Duration
	defaultFromDate string

	mu                  sync.Mutex
	files               []ndr.File
	processing          bool
	processingCount     int
	custom              bool
	credentialsProvided bool
	extractionOpt       string
	lastRunDate         string
	refreshedAt         time.Time
	lastRefreshError    string

	baseCtx    context.Context
	pollCancel context.CancelFunc
}

// New creates a dashboard seeded with the host's last successful run date,
// which becomes the read-only upper bound of the export date range.
func New(client *emr.Client, pollInterval time.Duration, defaultFromDate, lastRunDate string) *Dashboard {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	if defaultFromDate == "" {
		defaultFromDate = "1990-01-01"
	}
	return &Dashboard{
		emr:             client,
		pollInterval:    pollInterval,
		defaultFromDate: defaultFromDate,
		extractionOpt:   "xml",
		lastRunDate:     lastRunDate,
		files:           []ndr.File{},
	}
}

// StartPolling arms the background refresh loop. The loop lives until ctx is
// cancelled or StopPolling is called, and is re-armed whenever the custom
// toggle changes so the cadence restarts cleanly against the new endpoint.
func (d *Dashboard) StartPolling(ctx context.Context) {
	d.mu.Lock()
	d.baseCtx = ctx
	d.mu.Unlock()
	d.rearmPoller()
}

// StopPolling cancels the background refresh loop.
func (d *Dashboard) StopPolling() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pollCancel != nil {
		d.pollCancel()
		d.pollCancel = nil
	}
}

func (d *Dashboard) rearmPoller() {
	d.mu.Lock()
	if d.pollCancel != nil {
		d.pollCancel()
		d.pollCancel = nil
	}
	if d.baseCtx == nil {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(d.baseCtx)
	d.pollCancel = cancel
	interval := d.pollInterval
	d.mu.Unlock()

	go d.pollLoop(ctx, interval)
}

func (d *Dashboard) pollLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Silent variant: failures are logged inside Refresh, never
			// surfaced from the background path.
			_ = d.Refresh(ctx, false)
		}
	}
}

// Custom reports the current list-variant toggle.
func (d *Dashboard) Custom() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.custom
}

// SetCustom switches between the standard and manual list, issues an
// immediate blocking fetch, and re-arms the poller.
func (d *Dashboard) SetCustom(ctx context.Context, custom bool) error {
	d.mu.Lock()
	d.custom = custom
	d.mu.Unlock()

	err := d.Refresh(ctx, true)
	d.rearmPoller()
	return err
}

// Refresh is the single fetch-and-reconcile operation behind both the
// blocking (user-initiated) and silent (poller) paths; the two differ only in
// how the caller surfaces the returned error. A malformed list body degrades
// to an empty displayed list and is reported through the returned error
// without touching any other state; transport and authorization failures
// leave the previous list in place.
func (d *Dashboard) Refresh(ctx context.Context, blocking bool) error {
	files, err := d.emr.ListFiles(ctx, d.Custom())
	if err != nil {
		if errors.Is(err, emr.ErrMalformedList) {
			log.Printf("file list degraded to empty: %v", err)
			d.replaceList([]ndr.File{}, "")
			return err
		}

		log.Printf("error loading file list (blocking=%v): %v", blocking, err)
		d.mu.Lock()
		d.lastRefreshError = err.Error()
		d.mu.Unlock()
		return err
	}

	if files == nil {
		files = []ndr.File{}
	}
	d.replaceList(files, "")
	return nil
}

// replaceList swaps in a fresh list wholesale and recomputes the processing
// aggregate: jobs that are inactive or currently processing.
func (d *Dashboard) replaceList(files []ndr.File, refreshError string) {
	count := 0
	for _, f := range files {
		if !f.Active || strings.EqualFold(f.Status, "processing") {
			count++
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.files = files
	d.processingCount = count
	d.processing = count > 0
	d.refreshedAt = time.Now().UTC()
	d.lastRefreshError = refreshError
}

// Outcome is the user-facing result of a dashboard operation.
type Outcome struct {
	OK          bool   `json:"ok"`
	Message     string `json:"message,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	Deferred    bool   `json:"deferred,omitempty"`
}

// DeleteFile removes one export job.
func (d *Dashboard) DeleteFile(ctx context.Context, id int) Outcome {
	return d.runFileAction(ctx, "delete", id, d.emr.DeleteFile,
		"File deleted", "There was an error deleting file")
}

// RestartFile wipes the previous artifact and restarts the export.
func (d *Dashboard) RestartFile(ctx context.Context, id int) Outcome {
	return d.runFileAction(ctx, "restart", id, d.emr.RestartFile,
		"Restart initiated", "There was an error restarting")
}

// ResumeFile resumes a paused job. The processing aggregate is pre-set
// optimistically so the screen does not flash a stale idle state while the
// call is in flight.
func (d *Dashboard) ResumeFile(ctx context.Context, id int) Outcome {
	d.mu.Lock()
	d.processing = true
	d.mu.Unlock()

	return d.runFileAction(ctx, "resume", id, d.emr.ResumeFile,
		"Resumed", "There was an error resuming")
}

// PauseFile pauses a processing job.
func (d *Dashboard) PauseFile(ctx context.Context, id int) Outcome {
	return d.runFileAction(ctx, "pause", id, d.emr.PauseFile,
		"paused", "There was an error pausing the process")
}

// runFileAction is the uniform lifecycle-action template: one upstream call,
// truthy-body success, and exactly one full list refetch in the cleanup phase
// regardless of the call's outcome so the view self-heals even on ambiguous
// server responses.
func (d *Dashboard) runFileAction(ctx context.Context, verb string, id int, call func(context.Context, int) error, okMsg, errMsg string) Outcome {
	defer func() {
		_ = d.Refresh(ctx, true)
	}()

	if err := call(ctx, id); err != nil {
		log.Printf("%s file id=%d: %v", verb, id, err)
		return Outcome{OK: false, Message: errMsg}
	}
	return Outcome{OK: true, Message: okMsg}
}

// ExportRequest carries the form parameters of an export submission.
type ExportRequest struct {
	Identifiers string `json:"identifiers"`
	FromDate    string `json:"fromDate"`
	Format      string `json:"format"`
}

// Export submits a standard or custom generate request (by the current
// toggle). A .zip response body becomes a direct download URL; a transport
// 408 is the expected long-running signal, not an error. The list is
// refetched in the cleanup phase whatever happens.
func (d *Dashboard) Export(ctx context.Context, req ExportRequest) Outcome {
	d.mu.Lock()
	d.processing = true
	d.processingCount = 0
	custom := d.custom
	format := d.extractionOpt
	d.mu.Unlock()

	defer func() {
		_ = d.Refresh(ctx, true)
	}()

	identifiers := strings.TrimSpace(req.Identifiers)
	if identifiers == identifiersPlaceholder {
		identifiers = ""
	}
	fromDate := strings.TrimSpace(req.FromDate)
	if fromDate == "" {
		fromDate = d.defaultFromDate
	}
	if req.Format == "xml" || req.Format == "json" {
		format = req.Format
	}

	result, err := d.emr.GenerateExport(ctx, emr.ExportParams{
		Custom:      custom,
		Identifiers: identifiers,
		FromDate:    fromDate,
		Format:      format,
	})
	if err != nil {
		log.Printf("generate export: %v", err)
		return Outcome{OK: false, Message: "There was an error generating NDR files"}
	}

	if result.Deferred {
		return Outcome{OK: true, Deferred: true, Message: "The export will take a while, the list will be updated when it's done"}
	}
	if result.DownloadURL != "" {
		return Outcome{OK: true, DownloadURL: result.DownloadURL}
	}
	msg := result.Message
	if msg == "" {
		msg = "Export completed"
	}
	return Outcome{OK: true, Message: msg}
}

// FormatDecision is the result of the format-selection gate.
type FormatDecision struct {
	Format              string `json:"format"`
	AuthRequired        bool   `json:"authRequired"`
	CredentialsProvided bool   `json:"credentialsProvided"`
	Message             string `json:"message,omitempty"`
}

// SelectFormat commits an extraction format. Switching to json probes the
// remote session first: a valid token accepts the switch silently, a missing
// one keeps json selected but demands credentials (password-only mode when
// credentials were provided before), and a failed probe rolls the selection
// back to xml so json is never left selected without a session path.
func (d *Dashboard) SelectFormat(ctx context.Context, format string) FormatDecision {
	if format != "json" {
		d.mu.Lock()
		d.extractionOpt = "xml"
		d.mu.Unlock()
		return FormatDecision{Format: "xml"}
	}

	status, err := d.emr.CheckAuth(ctx)
	if err != nil {
		log.Printf("checkAuth: %v", err)
		d.mu.Lock()
		d.extractionOpt = "xml"
		d.mu.Unlock()
		return FormatDecision{Format: "xml", Message: "Authentication failed"}
	}

	d.mu.Lock()
	d.extractionOpt = "json"
	if status.CredentialsProvided {
		d.credentialsProvided = true
	}
	provided := d.credentialsProvided
	d.mu.Unlock()

	if status.HasToken() {
		return FormatDecision{Format: "json"}
	}
	return FormatDecision{Format: "json", AuthRequired: true, CredentialsProvided: provided}
}

// Authenticate submits credentials against auth or reAuth depending on prior
// state. Credentials are never retained.
func (d *Dashboard) Authenticate(ctx context.Context, email, password string) Outcome {
	d.mu.Lock()
	reauth := d.credentialsProvided
	d.mu.Unlock()

	result, err := d.emr.Authenticate(ctx, email, password, reauth)
	if err != nil {
		log.Printf("authenticate: %v", err)
		return Outcome{OK: false, Message: "Authentication failed. Please check your credentials."}
	}

	if result.Token != "" {
		return Outcome{OK: true, Message: "Authentication successful!"}
	}
	msg := result.Message
	if msg == "" {
		msg = "Authentication failed"
	}
	return Outcome{OK: false, Message: msg}
}

// ErrorLogs pulls the per-record validation failures for one job. The payload
// is dialog-scoped: nothing is cached.
func (d *Dashboard) ErrorLogs(ctx context.Context, id int) ([]ndr.ErrorLogEntry, error) {
	return d.emr.FetchErrorLogs(ctx, id)
}

// Batches returns the batch identifiers of one listed job.
func (d *Dashboard) Batches(id int) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, f := range d.files {
		if f.Number == id {
			return ndr.BatchIDs(f.NDRBatchIDs)
		}
	}
	return nil
}
