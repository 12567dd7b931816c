package controller

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/metrics"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/modules/climate/service"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/modules/climate/types"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/modules/climate/views"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/utils"
)

func (c *climateControllerImpl) handleIngest(w http.ResponseWriter, r *http.Request) {
	if !c.authorized(r) {
		metrics.IngestRejected.WithLabelValues(service.SourceHTTP, "unauthorized").Inc()
		slog.Warn("ingest: unauthorized", "remote_addr", r.RemoteAddr)
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIngestBody))
	if err != nil {
		metrics.IngestRejected.WithLabelValues(service.SourceHTTP, "invalid_json").Inc()
		slog.Warn("ingest: read body failed", "error", err)
		utils.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	_, err = c.service.Ingest(r.Context(), service.SourceHTTP, body, "")
	switch {
	case err == nil:
		utils.WriteOK(w)
	case errors.Is(err, service.ErrInvalidJSON):
		utils.WriteError(w, http.StatusBadRequest, "invalid json")
	case errors.Is(err, service.ErrBadFields):
		slog.Debug("ingest: bad fields", "error", err)
		utils.WriteError(w, http.StatusBadRequest, "bad fields")
	default:
		slog.Error("ingest: store reading failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "storage error")
	}
}

func (c *climateControllerImpl) handleDataCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="data.csv"`)

	cw := &countingWriter{w: w}
	if _, err := c.service.Export(cw); err != nil {
		slog.Error("data.csv: export failed", "error", err, "bytes_written", cw.n)
		if cw.n == 0 {
			w.Header().Del("Content-Disposition")
			utils.WriteError(w, http.StatusInternalServerError, "storage error")
		}
	}
}

func (c *climateControllerImpl) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (c *climateControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	n := parseWindowSize(r, c.defaultN)
	win, err := c.service.Latest(r.Context(), n)
	if err != nil {
		slog.Error("dashboard: load readings failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}

	data := &views.DashboardData{
		Rows:           win.Rows,
		Total:          win.Total,
		N:              n,
		RefreshSeconds: int(c.refresh.Seconds()),
	}
	var buf bytes.Buffer
	if err := views.RenderDashboard(&buf, data); err != nil {
		slog.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("dashboard: write response failed", "error", err)
	}
}

type readingsResponse struct {
	Count int         `json:"count"`
	Total int         `json:"total"`
	Items []types.Row `json:"items"`
}

func (c *climateControllerImpl) handleReadings(w http.ResponseWriter, r *http.Request) {
	n := parseWindowSize(r, c.defaultN)
	win, err := c.service.Latest(r.Context(), n)
	if err != nil {
		slog.Error("readings: load failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}
	items := win.Rows
	if items == nil {
		items = []types.Row{}
	}
	utils.WriteJSON(w, http.StatusOK, readingsResponse{
		Count: len(items),
		Total: win.Total,
		Items: items,
	})
}
