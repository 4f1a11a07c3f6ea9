package http

import (
	nethttp "net/http"

	"go-ndr-export-dashboard/internal/config"
)

func exportDefaultsHandler(cfg config.Config) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"data": map[string]any{
				"default_from_date": cfg.DefaultFromDate,
				"poll_interval_sec": int(cfg.PollInterval.Seconds()),
				"emr_base_url":      cfg.EMRBaseURL,
				"formats":           []string{"xml", "json"},
			},
		})
	}
}
