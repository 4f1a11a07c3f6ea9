package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"go-ndr-export-dashboard/internal/connectors/emr"
	"go-ndr-export-dashboard/internal/ndr"
)

// fakeEMR is a scripted EMR backend: per-action response bodies and status
// codes, plus per-action call counts.
type fakeEMR struct {
	mu     sync.Mutex
	body   map[string]string
	status map[string]int
	calls  map[string]int
	lastQ  map[string]url.Values
}

func newFakeEMR() *fakeEMR {
	return &fakeEMR{
		body:   map[string]string{"getFileList": "[]", "getManualFileList": "[]"},
		status: map[string]int{},
		calls:  map[string]int{},
		lastQ:  map[string]url.Values{},
	}
}

func (f *fakeEMR) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		action := strings.TrimSuffix(parts[len(parts)-1], ".action")

		f.mu.Lock()
		f.calls[action]++
		f.lastQ[action] = r.URL.Query()
		body, status := f.body[action], f.status[action]
		f.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
		}
		_, _ = w.Write([]byte(body))
	}
}

func (f *fakeEMR) set(action, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body[action] = body
}

func (f *fakeEMR) setStatus(action string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[action] = status
}

func (f *fakeEMR) count(action string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[action]
}

func (f *fakeEMR) query(action string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQ[action]
}

func newTestDashboard(t *testing.T) (*Dashboard, *fakeEMR) {
	t.Helper()
	fake := newFakeEMR()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client := emr.NewClient(srv.URL, 5*time.Second)
	return New(client, 10*time.Second, "1990-01-01", "2024-06-30"), fake
}

func TestRefresh_ReconcilesProcessingAggregate(t *testing.T) {
	dash, fake := newTestDashboard(t)
	fake.set("getFileList", `[
		{"number":1,"status":"Completed","active":true},
		{"number":2,"status":"Processing","active":true},
		{"number":3,"status":"Completed","active":false}
	]`)

	if err := dash.Refresh(context.Background(), true); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	snap := dash.Snapshot()
	if len(snap.Files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(snap.Files))
	}
	if !snap.Processing || snap.ProcessingCount != 2 {
		t.Fatalf("processing aggregate = (%v, %d), want (true, 2)", snap.Processing, snap.ProcessingCount)
	}
}

func TestRefresh_MalformedBodyDegradesToEmptyList(t *testing.T) {
	dash, fake := newTestDashboard(t)
	fake.set("getFileList", `[{"number":1,"status":"Completed","active":true}]`)
	if err := dash.Refresh(context.Background(), true); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(dash.Snapshot().Files) != 1 {
		t.Fatalf("seed refresh failed")
	}

	fake.set("getFileList", `{"error":"boom"}`)
	err := dash.Refresh(context.Background(), false)
	if err == nil {
		t.Fatalf("expected malformed-list error")
	}

	snap := dash.Snapshot()
	if len(snap.Files) != 0 {
		t.Fatalf("expected empty list after malformed body, got %d files", len(snap.Files))
	}
	if snap.Processing {
		t.Fatalf("processing must reset with an empty list")
	}
}

func TestRefresh_TransportFailureKeepsPreviousList(t *testing.T) {
	dash, fake := newTestDashboard(t)
	fake.set("getFileList", `[{"number":1,"status":"Paused","active":true}]`)
	if err := dash.Refresh(context.Background(), true); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	fake.setStatus("getFileList", http.StatusInternalServerError)
	if err := dash.Refresh(context.Background(), false); err == nil {
		t.Fatalf("expected refresh error")
	}

	snap := dash.Snapshot()
	if len(snap.Files) != 1 {
		t.Fatalf("previous list must survive a failed refresh, got %d files", len(snap.Files))
	}
	if snap.LastError == "" {
		t.Fatalf("expected last error to be recorded")
	}
}

func TestDeleteFile_RejectionStillRefetchesOnce(t *testing.T) {
	dash, fake := newTestDashboard(t)
	fake.setStatus("deleteFile", http.StatusInternalServerError)

	outcome := dash.DeleteFile(context.Background(), 5)
	if outcome.OK {
		t.Fatalf("expected rejected outcome")
	}
	if outcome.Message != "There was an error deleting file" {
		t.Fatalf("unexpected message: %q", outcome.Message)
	}
	if got := fake.count("getFileList"); got != 1 {
		t.Fatalf("expected exactly one cleanup refetch, got %d", got)
	}
}

func TestDeleteFile_SuccessRefetchesOnce(t *testing.T) {
	dash, fake := newTestDashboard(t)
	fake.set("deleteFile", "true")

	outcome := dash.DeleteFile(context.Background(), 5)
	if !outcome.OK {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if got := fake.count("getFileList"); got != 1 {
		t.Fatalf("expected exactly one cleanup refetch, got %d", got)
	}
	if q := fake.query("deleteFile"); q.Get("id") != "5" {
		t.Fatalf("delete query missing id: %v", q)
	}
}

func TestResumeFile_PresetsProcessingBeforeCall(t *testing.T) {
	dash, fake := newTestDashboard(t)
	fake.set("resumeFile", "true")
	// The cleanup refetch returns an idle list; the optimistic flag is
	// overwritten by reconciliation, which is the expected end state.
	fake.set("getFileList", `[{"number":1,"status":"Processing","active":true}]`)

	outcome := dash.ResumeFile(context.Background(), 1)
	if !outcome.OK {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if !dash.Snapshot().Processing {
		t.Fatalf("expected processing state after resume")
	}
}

func TestSetCustom_SwitchesListEndpoint(t *testing.T) {
	dash, fake := newTestDashboard(t)
	fake.set("getManualFileList", `[{"number":9,"status":"Completed","active":true}]`)

	if err := dash.SetCustom(context.Background(), true); err != nil {
		t.Fatalf("SetCustom: %v", err)
	}
	if fake.count("getManualFileList") != 1 {
		t.Fatalf("expected manual list fetch")
	}

	snap := dash.Snapshot()
	if !snap.Custom || len(snap.Files) != 1 || snap.Files[0].Number != 9 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestExport_StripsPlaceholderAndDefaultsFromDate(t *testing.T) {
	dash, fake := newTestDashboard(t)
	fake.set("generateNDRFile", "started")

	outcome := dash.Export(context.Background(), ExportRequest{
		Identifiers: "comma separated patient identifiers or Ids",
		FromDate:    "",
		Format:      "xml",
	})
	if !outcome.OK {
		t.Fatalf("expected success, got %+v", outcome)
	}

	q := fake.query("generateNDRFile")
	if q.Get("identifiers") != "" {
		t.Fatalf("placeholder must be stripped, got %q", q.Get("identifiers"))
	}
	if q.Get("from") != "1990-01-01" {
		t.Fatalf("expected default from date, got %q", q.Get("from"))
	}
	if fake.count("getFileList") != 1 {
		t.Fatalf("expected cleanup refetch after export")
	}
}

func TestExport_DeferredOn408(t *testing.T) {
	dash, fake := newTestDashboard(t)
	fake.setStatus("generateNDRFile", http.StatusRequestTimeout)

	outcome := dash.Export(context.Background(), ExportRequest{Format: "xml"})
	if !outcome.OK || !outcome.Deferred {
		t.Fatalf("expected deferred outcome, got %+v", outcome)
	}
	if !strings.Contains(outcome.Message, "will take a while") {
		t.Fatalf("unexpected message: %q", outcome.Message)
	}
}

func TestExport_ZipBodyNavigates(t *testing.T) {
	dash, fake := newTestDashboard(t)
	fake.set("generateNDRFile", `"http://emr.local/openmrs/downloads/NDR/out.zip"`)

	outcome := dash.Export(context.Background(), ExportRequest{Format: "xml"})
	if outcome.DownloadURL != "http://emr.local/openmrs/downloads/NDR/out.zip" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestSelectFormat_XMLNeedsNoAuth(t *testing.T) {
	dash, fake := newTestDashboard(t)

	decision := dash.SelectFormat(context.Background(), "xml")
	if decision.Format != "xml" || decision.AuthRequired {
		t.Fatalf("unexpected decision: %+v", decision)
	}
	if fake.count("checkAuth") != 0 {
		t.Fatalf("xml selection must not probe auth")
	}
}

func TestSelectFormat_JSONWithTokenPassesSilently(t *testing.T) {
	dash, fake := newTestDashboard(t)
	fake.set("checkAuth", `{"code":1,"token":"abc"}`)

	decision := dash.SelectFormat(context.Background(), "json")
	if decision.Format != "json" || decision.AuthRequired {
		t.Fatalf("unexpected decision: %+v", decision)
	}
	if dash.Snapshot().Format != "json" {
		t.Fatalf("json not committed")
	}
}

func TestSelectFormat_JSONWithoutTokenDemandsCredentials(t *testing.T) {
	dash, fake := newTestDashboard(t)
	fake.set("checkAuth", `{"code":1,"token":"","credentialsProvided":false}`)

	decision := dash.SelectFormat(context.Background(), "json")
	if !decision.AuthRequired || decision.CredentialsProvided {
		t.Fatalf("expected full credential prompt, got %+v", decision)
	}
	if dash.Snapshot().Format != "json" {
		t.Fatalf("json must stay selected while the prompt is open")
	}
}

func TestSelectFormat_PriorCredentialsMeanPasswordOnly(t *testing.T) {
	dash, fake := newTestDashboard(t)
	fake.set("checkAuth", `{"code":1,"token":"","credentialsProvided":true}`)

	decision := dash.SelectFormat(context.Background(), "json")
	if !decision.AuthRequired || !decision.CredentialsProvided {
		t.Fatalf("expected password-only prompt, got %+v", decision)
	}
}

func TestSelectFormat_ProbeFailureRollsBackToXML(t *testing.T) {
	dash, fake := newTestDashboard(t)
	fake.setStatus("checkAuth", http.StatusInternalServerError)
	fake.set("checkAuth", "oops")

	decision := dash.SelectFormat(context.Background(), "json")
	if decision.Format != "xml" {
		t.Fatalf("expected rollback to xml, got %+v", decision)
	}
	if decision.Message == "" {
		t.Fatalf("expected failure message")
	}
	if dash.Snapshot().Format != "xml" {
		t.Fatalf("format state not rolled back")
	}
}

func TestAuthenticate_ReAuthAfterPriorCredentials(t *testing.T) {
	dash, fake := newTestDashboard(t)
	fake.set("checkAuth", `{"code":1,"token":"","credentialsProvided":true}`)
	fake.set("reAuth", `{"token":"tok-2"}`)

	dash.SelectFormat(context.Background(), "json")
	outcome := dash.Authenticate(context.Background(), "", "s3cret")
	if !outcome.OK {
		t.Fatalf("expected auth success, got %+v", outcome)
	}
	if fake.count("reAuth") != 1 || fake.count("auth") != 0 {
		t.Fatalf("expected reAuth endpoint, got auth=%d reAuth=%d", fake.count("auth"), fake.count("reAuth"))
	}
}

func TestAuthenticate_MissingTokenFails(t *testing.T) {
	dash, fake := newTestDashboard(t)
	fake.set("auth", `{"token":"","message":"bad credentials"}`)

	outcome := dash.Authenticate(context.Background(), "ops@example.org", "nope")
	if outcome.OK {
		t.Fatalf("expected failure, got %+v", outcome)
	}
	if outcome.Message != "bad credentials" {
		t.Fatalf("unexpected message: %q", outcome.Message)
	}
}

func TestSnapshot_DerivesRowDecorations(t *testing.T) {
	dash, fake := newTestDashboard(t)
	fake.set("getFileList", `[
		{"number":1,"status":"Processing","active":true,"total":200,"processed":25},
		{"number":2,"status":"Completed with errors","active":true,"path":"C:\\data\\NDR\\out 1.xml","ndrBatchIds":"b1,b2"}
	]`)

	if err := dash.Refresh(context.Background(), true); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	snap := dash.Snapshot()
	if snap.Files[0].ProgressPct != "12.50" {
		t.Fatalf("unexpected progress: %q", snap.Files[0].ProgressPct)
	}
	if snap.Files[1].StatusTag != ndr.TagWarning {
		t.Fatalf("unexpected tag: %q", snap.Files[1].StatusTag)
	}
	if !strings.HasSuffix(snap.Files[1].DownloadURL, "/openmrs/downloads/NDR/out%201.xml") {
		t.Fatalf("unexpected download url: %q", snap.Files[1].DownloadURL)
	}
	if !snap.Files[1].HasBatches {
		t.Fatalf("expected batches flag")
	}
	if got := dash.Batches(2); len(got) != 2 {
		t.Fatalf("unexpected batch ids: %v", got)
	}
	if snap.LastRunDate != "2024-06-30" {
		t.Fatalf("unexpected last run date: %q", snap.LastRunDate)
	}
}

func TestPoller_RefreshesSilently(t *testing.T) {
	fake := newFakeEMR()
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := emr.NewClient(srv.URL, 5*time.Second)
	dash := New(client, 20*time.Millisecond, "1990-01-01", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dash.StartPolling(ctx)
	defer dash.StopPolling()

	deadline := time.Now().Add(2 * time.Second)
	for fake.count("getFileList") < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("poller never refreshed, calls=%d", fake.count("getFileList"))
		}
		time.Sleep(10 * time.Millisecond)
	}
}
