package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"digital-delta/internal/audit"
	"digital-delta/internal/auth"
	"digital-delta/internal/observability/metrics"
	"digital-delta/internal/reports"
)

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		writeDetail(w, http.StatusServiceUnavailable, "reports not configured")
		return
	}
	format := reports.Format(chi.URLParam(r, "format"))
	if format != reports.FormatPDF && format != reports.FormatXLSX {
		writeDetail(w, http.StatusNotFound, "unknown export format")
		return
	}
	start := time.Now()
	now := h.now()
	summary, list, err := reports.Build(r.Context(), h.reports, h.logger, now)
	if err == nil {
		var data []byte
		data, err = reports.Render(format, summary, list)
		if err == nil {
			metrics.ObserveReportExport(string(format), metrics.ResultSuccess, time.Since(start))
			h.recordExport(r, format, metrics.ResultSuccess)
			filename := fmt.Sprintf("delta-rapport-%s.%s", now.UTC().Format("2006-01-02"), format)
			w.Header().Set("Content-Type", format.ContentType())
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(data)
			return
		}
	}
	metrics.ObserveReportExport(string(format), metrics.ResultError, time.Since(start))
	h.recordExport(r, format, metrics.ResultError)
	h.logger.Printf("report export %s error: %v", format, err)
	h.console.Notices().Error("Export mislukt")
	respondError(w, err)
}

func (h *Handler) recordExport(r *http.Request, format reports.Format, result string) {
	h.recorder.Record(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       audit.ActionReportExport,
		ResourceType: "report",
		ResourceID:   string(format),
		Result:       result,
	})
}
