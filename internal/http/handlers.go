package http

import (
	"encoding/json"
	"errors"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	emrstore "go-ndr-export-dashboard/internal/connectors/emr"
	presetstore "go-ndr-export-dashboard/internal/connectors/presets"
	"go-ndr-export-dashboard/internal/dashboard"
)

type customToggleRequest struct {
	Custom bool `json:"custom"`
}

type formatRequest struct {
	Format string `json:"format"`
}

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type saveBatchIDsRequest struct {
	BatchIDs string `json:"batchIds"`
}

type savePresetRequest struct {
	Name        string `json:"name"`
	Identifiers string `json:"identifiers"`
	FromDate    string `json:"from_date"`
	Format      string `json:"format"`
}

func dashboardStateHandler(dash *dashboard.Dashboard) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{"data": dash.Snapshot()})
	}
}

func dashboardRefreshHandler(dash *dashboard.Dashboard) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}

		start := time.Now()
		err := dash.Refresh(r.Context(), true)
		recordExternalProbe("emr", "ListFiles", time.Since(start).Seconds(), err)
		writeRefreshResult(w, dash, err)
	}
}

func customToggleHandler(dash *dashboard.Dashboard) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}

		var req customToggleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
			return
		}

		start := time.Now()
		err := dash.SetCustom(r.Context(), req.Custom)
		recordExternalProbe("emr", "ListFiles", time.Since(start).Seconds(), err)
		writeRefreshResult(w, dash, err)
	}
}

// writeRefreshResult maps a blocking-refresh outcome onto the response. A
// malformed list is not an operator-facing failure: the list has already been
// emptied and the snapshot returned as usual.
func writeRefreshResult(w nethttp.ResponseWriter, dash *dashboard.Dashboard, err error) {
	switch {
	case err == nil, errors.Is(err, emrstore.ErrMalformedList):
		writeJSON(w, nethttp.StatusOK, map[string]any{"data": dash.Snapshot()})
	case errors.Is(err, emrstore.ErrUnauthorized):
		writeJSON(w, nethttp.StatusUnauthorized, map[string]any{"error": "You are not authorized to view the NDR file list"})
	default:
		writeJSON(w, nethttp.StatusBadGateway, map[string]any{"error": "There was an error loading file list"})
	}
}

func fileActionRouter(dash *dashboard.Dashboard, emrClient *emrstore.Client) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		trimmed := strings.TrimPrefix(r.URL.Path, "/api/v1/files/")
		parts := strings.Split(strings.Trim(trimmed, "/"), "/")
		if len(parts) != 2 || parts[0] == "" {
			writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": "not found"})
			return
		}

		id, err := strconv.Atoi(parts[0])
		if err != nil || id < 0 {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "invalid file id"})
			return
		}
		action := parts[1]

		switch action {
		case "delete", "restart", "resume", "pause":
			if r.Method != nethttp.MethodPost {
				writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
				return
			}

			var outcome dashboard.Outcome
			start := time.Now()
			switch action {
			case "delete":
				outcome = dash.DeleteFile(r.Context(), id)
			case "restart":
				outcome = dash.RestartFile(r.Context(), id)
			case "resume":
				outcome = dash.ResumeFile(r.Context(), id)
			case "pause":
				outcome = dash.PauseFile(r.Context(), id)
			}
			recordExternalProbe("emr", action, time.Since(start).Seconds(), actionErr(outcome))
			writeOutcome(w, outcome)
		case "batches":
			if r.Method != nethttp.MethodGet {
				writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
				return
			}
			ids := dash.Batches(id)
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"meta": map[string]any{"id": id, "count": len(ids)},
				"data": ids,
			})
		case "batch-ids":
			if r.Method != nethttp.MethodPost {
				writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
				return
			}
			var req saveBatchIDsRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
				return
			}
			start := time.Now()
			msg, err := emrClient.SaveBatchIDs(r.Context(), id, req.BatchIDs)
			recordExternalProbe("emr", "SaveBatchIDs", time.Since(start).Seconds(), err)
			if err != nil {
				writeJSON(w, nethttp.StatusBadGateway, map[string]any{"error": "failed to save batch ids"})
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{"data": map[string]any{"message": msg}})
		case "error-logs":
			if r.Method != nethttp.MethodGet {
				writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
				return
			}
			start := time.Now()
			logs, err := dash.ErrorLogs(r.Context(), id)
			recordExternalProbe("emr", "FetchErrorLogs", time.Since(start).Seconds(), err)
			if err != nil {
				writeJSON(w, nethttp.StatusBadGateway, map[string]any{"error": "failed to fetch error logs"})
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"meta": map[string]any{"id": id, "count": len(logs)},
				"data": logs,
			})
		default:
			writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": "not found"})
		}
	}
}

func exportHandler(dash *dashboard.Dashboard) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}

		var req dashboard.ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
			return
		}

		start := time.Now()
		outcome := dash.Export(r.Context(), req)
		elapsed := time.Since(start).Seconds()
		recordExternalProbe("emr", "GenerateExport", elapsed, actionErr(outcome))
		switch {
		case outcome.Deferred:
			recordExportRun("deferred", elapsed)
		case outcome.OK:
			recordExportRun("success", elapsed)
		default:
			recordExportRun("error", elapsed)
		}

		writeOutcome(w, outcome)
	}
}

func formatHandler(dash *dashboard.Dashboard) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}

		var req formatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
			return
		}

		start := time.Now()
		decision := dash.SelectFormat(r.Context(), req.Format)
		var probeErr error
		if decision.Message != "" {
			probeErr = errors.New(decision.Message)
		}
		recordExternalProbe("emr", "CheckAuth", time.Since(start).Seconds(), probeErr)

		writeJSON(w, nethttp.StatusOK, map[string]any{"data": decision})
	}
}

func authHandler(dash *dashboard.Dashboard) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}

		var req authRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
			return
		}

		start := time.Now()
		outcome := dash.Authenticate(r.Context(), req.Email, req.Password)
		recordExternalProbe("emr", "Authenticate", time.Since(start).Seconds(), actionErr(outcome))
		if !outcome.OK {
			writeJSON(w, nethttp.StatusUnauthorized, outcome)
			return
		}
		writeJSON(w, nethttp.StatusOK, outcome)
	}
}

func pushBatchHandler(emrClient *emrstore.Client) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}

		start := time.Now()
		msg, err := emrClient.PushBatchData(r.Context())
		recordExternalProbe("emr", "PushBatchData", time.Since(start).Seconds(), err)
		if err != nil {
			writeJSON(w, nethttp.StatusBadGateway, map[string]any{"error": "failed to push batch data"})
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{"data": map[string]any{"message": msg}})
	}
}

func presetsHandler(store *presetstore.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if store == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "preset sqlite store not available",
				"hint":  "set APP_PRESETS_SQLITE_PATH to enable app-owned preset persistence",
			})
			return
		}

		switch r.Method {
		case nethttp.MethodGet:
			limit := parseLimit(r, 100)
			start := time.Now()
			items, err := store.List(r.Context(), limit)
			recordDBQuery("appsqlite", "ListPresets", time.Since(start).Seconds(), err)
			if err != nil {
				writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to list presets"})
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"meta": map[string]any{"count": len(items), "limit": limit},
				"data": items,
			})
		case nethttp.MethodPost:
			var req savePresetRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
				return
			}
			startUpsert := time.Now()
			id, err := store.Upsert(r.Context(), req.Name, req.Identifiers, req.FromDate, req.Format)
			recordDBQuery("appsqlite", "UpsertPreset", time.Since(startUpsert).Seconds(), err)
			if err != nil {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
				return
			}
			startGet := time.Now()
			item, err := store.Get(r.Context(), id)
			recordDBQuery("appsqlite", "GetPreset", time.Since(startGet).Seconds(), err)
			if err != nil {
				writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "preset saved but failed to read it back"})
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"meta": map[string]any{"saved": true},
				"data": item,
			})
		default:
			writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		}
	}
}

func presetDetailHandler(store *presetstore.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if store == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "preset sqlite store not available",
				"hint":  "set APP_PRESETS_SQLITE_PATH to enable app-owned preset persistence",
			})
			return
		}

		idRaw := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/presets/"), "/")
		id, err := strconv.ParseInt(idRaw, 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "invalid preset id"})
			return
		}

		switch r.Method {
		case nethttp.MethodGet:
			start := time.Now()
			item, err := store.Get(r.Context(), id)
			recordDBQuery("appsqlite", "GetPreset", time.Since(start).Seconds(), err)
			if err != nil {
				writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": "preset not found"})
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{"data": item})
		case nethttp.MethodDelete:
			start := time.Now()
			deleted, err := store.Delete(r.Context(), id)
			recordDBQuery("appsqlite", "DeletePreset", time.Since(start).Seconds(), err)
			if err != nil {
				writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to delete preset"})
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"meta": map[string]any{"deleted": deleted, "id": id},
			})
		default:
			writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		}
	}
}

// writeOutcome maps a dashboard operation result onto the response status.
// The upstream rejecting an action is reported as a gateway failure with the
// operator-facing message intact.
func writeOutcome(w nethttp.ResponseWriter, outcome dashboard.Outcome) {
	if !outcome.OK {
		writeJSON(w, nethttp.StatusBadGateway, outcome)
		return
	}
	writeJSON(w, nethttp.StatusOK, outcome)
}

func actionErr(outcome dashboard.Outcome) error {
	if outcome.OK {
		return nil
	}
	return errors.New(outcome.Message)
}

func parseLimit(r *nethttp.Request, defaultLimit int) int {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}
	return limit
}
