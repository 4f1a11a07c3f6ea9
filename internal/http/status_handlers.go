package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"time"

	emrstore "go-ndr-export-dashboard/internal/connectors/emr"
	mysqlstore "go-ndr-export-dashboard/internal/connectors/mysql"
	ndrsvcstore "go-ndr-export-dashboard/internal/connectors/ndrsvc"
)

func servicesStatusHandler(store *mysqlstore.Store, emrClient *emrstore.Client, prober *ndrsvcstore.Prober) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
		defer cancel()

		payload := map[string]any{
			"generated_at": time.Now().UTC(),
			"services":     map[string]any{},
		}
		services := payload["services"].(map[string]any)

		services["openmrs_db"] = mysqlStatus(ctx, store)
		services["emr_backend"] = emrStatus(ctx, emrClient)
		services["ndr_service"] = ndrServiceStatus(ctx, prober)

		writeJSON(w, nethttp.StatusOK, payload)
	}
}

func mysqlStatus(ctx context.Context, store *mysqlstore.Store) map[string]any {
	if store == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "database integration disabled"}
	}

	start := time.Now()
	stats, err := store.ServiceStats(ctx)
	recordDBQuery("openmrs", "ServiceStats", time.Since(start).Seconds(), err)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "error": err.Error()}
	}

	return map[string]any{"enabled": true, "ok": true, "stats": stats}
}

// emrStatus probes the EMR backend with the cheap total-count action and, when
// reachable, also reports how many exports still have remote error logs to
// pull.
func emrStatus(ctx context.Context, emrClient *emrstore.Client) map[string]any {
	if emrClient == nil || !emrClient.Enabled() {
		return map[string]any{"enabled": false, "ok": false, "error": "emr integration disabled"}
	}

	start := time.Now()
	total, err := emrClient.TotalFiles(ctx)
	recordExternalProbe("emr", "TotalFiles", time.Since(start).Seconds(), err)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "error": err.Error()}
	}

	out := map[string]any{
		"enabled":     true,
		"ok":          true,
		"total_files": total,
	}

	startPending := time.Now()
	pending, err := emrClient.PendingErrorLogExports(ctx)
	recordExternalProbe("emr", "PendingErrorLogExports", time.Since(startPending).Seconds(), err)
	if err != nil {
		out["pending_error_logs_error"] = err.Error()
		return out
	}
	out["pending_error_logs"] = len(pending)
	return out
}

func ndrServiceStatus(ctx context.Context, prober *ndrsvcstore.Prober) map[string]any {
	if prober == nil || !prober.Enabled() {
		return map[string]any{"enabled": false, "ok": false, "error": "ndr service probe disabled"}
	}

	start := time.Now()
	probe := prober.Probe(ctx)
	var probeErr error
	if !probe.OK {
		probeErr = errors.New(probe.Error)
	}
	recordExternalProbe("ndr_service", "Ping", time.Since(start).Seconds(), probeErr)

	return map[string]any{
		"enabled": true,
		"ok":      probe.OK,
		"probe":   probe,
	}
}
