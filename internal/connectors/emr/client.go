package emr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go-ndr-export-dashboard/internal/ndr"
)

const (
	moduleName     = "nigeriaemr"
	controllerName = "ndr"
)

// Sentinel errors surfaced to the dashboard so it can apply the error
// taxonomy: unauthorized gets its own alert wording, malformed list bodies
// degrade to an empty list, and an empty mutating response fails the truthy
// success contract.
var (
	ErrUnauthorized  = errors.New("emr: unauthorized")
	ErrMalformedList = errors.New("emr: malformed file list payload")
	ErrEmptyResponse = errors.New("emr: empty response body")
)

// ExportParams are the query parameters of a generate-export request, already
// normalized by the caller (sentinel placeholder stripped, default from-date
// applied).
type ExportParams struct {
	Custom      bool
	Identifiers string
	FromDate    string
	Format      string
}

// ExportResult is the outcome of a generate-export call. Deferred marks the
// 408 long-running-job signal: the export continues server-side and the list
// will reflect completion later.
type ExportResult struct {
	DownloadURL string `json:"downloadUrl,omitempty"`
	Message     string `json:"message,omitempty"`
	Deferred    bool   `json:"deferred,omitempty"`
}

// AuthStatus is the checkAuth probe response.
type AuthStatus struct {
	Code                int    `json:"code"`
	Token               string `json:"token"`
	CredentialsProvided bool   `json:"credentialsProvided"`
	Message             string `json:"message"`
}

// HasToken reports whether the probe found a valid existing session.
func (s AuthStatus) HasToken() bool {
	return s.Code > 0 && s.Token != ""
}

// AuthResult is the auth/reAuth response.
type AuthResult struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// Client calls the EMR backend's NDR action endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client rooted at the EMR origin, e.g.
// http://127.0.0.1:8081.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// Origin returns the EMR origin download URLs are rooted at.
func (c *Client) Origin() string {
	if c == nil {
		return ""
	}
	return c.baseURL
}

// DownloadURL converts a server-reported artifact path into a downloadable
// URL on this client's origin.
func (c *Client) DownloadURL(filePath string) string {
	return ToDownloadURL(c.Origin(), filePath)
}

// ListFiles fetches the export job list, manual variant when custom is set.
// The backend sometimes double-encodes the array as a JSON string; both
// shapes are accepted. A body that does not decode to an array returns
// ErrMalformedList. A 401 returns ErrUnauthorized.
func (c *Client) ListFiles(ctx context.Context, custom bool) ([]ndr.File, error) {
	action := "getFileList"
	if custom {
		action = "getManualFileList"
	}

	body, status, err := c.get(ctx, BuildActionURL(moduleName, controllerName, action))
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("emr: list files status=%d", status)
	}

	return parseFileList(body)
}

func parseFileList(body []byte) ([]ndr.File, error) {
	raw := bytes.TrimSpace(body)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedList)
	}

	// Unwrap a double-encoded payload: the controller occasionally returns
	// the array serialized inside a JSON string.
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedList, err)
		}
		raw = bytes.TrimSpace([]byte(inner))
	}

	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: not an array", ErrMalformedList)
	}

	var files []ndr.File
	if err := json.Unmarshal(raw, &files); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedList, err)
	}
	return files, nil
}

// DeleteFile deletes one export job by id.
func (c *Client) DeleteFile(ctx context.Context, id int) error {
	return c.lifecycle(ctx, "deleteFile", id, nil)
}

// RestartFile wipes the previous artifact and restarts the export.
func (c *Client) RestartFile(ctx context.Context, id int) error {
	return c.lifecycle(ctx, "restartFile", id, url.Values{"action": {"none"}})
}

// ResumeFile resumes a paused export job.
func (c *Client) ResumeFile(ctx context.Context, id int) error {
	return c.lifecycle(ctx, "resumeFile", id, nil)
}

// PauseFile pauses a processing export job.
func (c *Client) PauseFile(ctx context.Context, id int) error {
	return c.lifecycle(ctx, "pauseFile", id, nil)
}

// lifecycle issues one id-keyed action GET. The backend exposes no structured
// success discriminator; any non-empty body counts as success and an empty
// one returns ErrEmptyResponse.
func (c *Client) lifecycle(ctx context.Context, action string, id int, extra url.Values) error {
	u := BuildHostActionURL(moduleName, controllerName, action, true) + "&id=" + strconv.Itoa(id)
	for key, vals := range extra {
		for _, v := range vals {
			u += "&" + key + "=" + url.QueryEscape(v)
		}
	}

	body, status, err := c.get(ctx, u)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("emr: %s status=%d", action, status)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return ErrEmptyResponse
	}
	return nil
}

// GenerateExport triggers a standard or custom export. A 408 is the expected
// long-running-job signal, not a failure. A body ending in .zip is a direct
// download; any other body is the completion message.
func (c *Client) GenerateExport(ctx context.Context, params ExportParams) (*ExportResult, error) {
	action := "generateNDRFile"
	if params.Custom {
		action = "generateCustomNDRFile"
	}

	q := url.Values{}
	q.Set("identifiers", params.Identifiers)
	q.Set("from", params.FromDate)
	q.Set("opt", params.Format)
	u := BuildHostActionURL(moduleName, controllerName, action, true) + "&" + q.Encode()

	body, status, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if status == http.StatusRequestTimeout {
		return &ExportResult{Deferred: true}, nil
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("emr: %s status=%d", action, status)
	}

	text := strings.TrimSpace(string(body))
	text = strings.Trim(text, `"`)
	if strings.HasSuffix(text, ".zip") {
		return &ExportResult{DownloadURL: text}, nil
	}
	return &ExportResult{Message: text}, nil
}

// FetchErrorLogs pulls per-record validation failures for one job from the
// remote reporting service via the backend.
func (c *Client) FetchErrorLogs(ctx context.Context, id int) ([]ndr.ErrorLogEntry, error) {
	payload, err := json.Marshal(map[string]int{"id": id})
	if err != nil {
		return nil, err
	}

	u := c.baseURL + BuildActionURL(moduleName, controllerName, "viewErrorLogs")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		blob, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("emr: viewErrorLogs status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(blob)))
	}

	var logs []ndr.ErrorLogEntry
	if err := json.NewDecoder(resp.Body).Decode(&logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// CheckAuth probes the remote reporting service session state.
func (c *Client) CheckAuth(ctx context.Context) (*AuthStatus, error) {
	u := BuildHostActionURL(moduleName, controllerName, "checkAuth", true)
	body, status, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("emr: checkAuth status=%d", status)
	}

	var out AuthStatus
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("emr: checkAuth: %w", err)
	}
	return &out, nil
}

// Authenticate submits credentials as query parameters against the initial
// auth endpoint, or reAuth when a prior session existed. Credentials are not
// retained.
func (c *Client) Authenticate(ctx context.Context, email, password string, reauth bool) (*AuthResult, error) {
	action := "auth"
	if reauth {
		action = "reAuth"
	}

	q := url.Values{}
	q.Set("email", email)
	q.Set("password", password)
	u := BuildHostActionURL(moduleName, controllerName, action, true) + "&" + q.Encode()

	body, status, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("emr: %s status=%d", action, status)
	}

	var out AuthResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("emr: %s: %w", action, err)
	}
	return &out, nil
}

// PushBatchData forwards the push-batch-data action and returns the raw
// backend message.
func (c *Client) PushBatchData(ctx context.Context) (string, error) {
	return c.passthrough(ctx, "pushBatchData", nil)
}

// SaveBatchIDs persists batch identifiers for one job via the backend.
func (c *Client) SaveBatchIDs(ctx context.Context, id int, batchIDs string) (string, error) {
	q := url.Values{}
	q.Set("id", strconv.Itoa(id))
	q.Set("batchIds", batchIDs)
	return c.passthrough(ctx, "saveNDRBatchIds", q)
}

// PendingErrorLogExports lists jobs whose remote error logs have not been
// pulled yet. Same tolerant parsing as the main list.
func (c *Client) PendingErrorLogExports(ctx context.Context) ([]ndr.File, error) {
	body, status, err := c.get(ctx, BuildActionURL(moduleName, controllerName, "checkApiExportsWithPendingNdrErrorLogs"))
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("emr: pending error logs status=%d", status)
	}
	return parseFileList(body)
}

// TotalFiles returns the backend's total export count, used as a cheap
// reachability probe by the status panel.
func (c *Client) TotalFiles(ctx context.Context) (int64, error) {
	body, status, err := c.get(ctx, BuildActionURL(moduleName, controllerName, "getTotalFiles"))
	if err != nil {
		return 0, err
	}
	if status < 200 || status >= 300 {
		return 0, fmt.Errorf("emr: getTotalFiles status=%d", status)
	}

	text := strings.Trim(strings.TrimSpace(string(body)), `"`)
	if text == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("emr: getTotalFiles: %w", err)
	}
	return n, nil
}

func (c *Client) passthrough(ctx context.Context, action string, q url.Values) (string, error) {
	u := BuildActionURL(moduleName, controllerName, action)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	body, status, err := c.get(ctx, u)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("emr: %s status=%d", action, status)
	}
	return strings.TrimSpace(string(body)), nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
