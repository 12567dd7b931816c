package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/csvstore"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/utils"
)

// storeStater is the part of the store the healthcheck needs.
type storeStater interface {
	Stat() (csvstore.Stats, error)
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	store storeStater
}

func NewHealthchecker(store storeStater) healthchecker {
	return &healthcheckerImpl{store: store}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.Stat(); err != nil {
		slog.Error("failed to stat data file", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "data file unavailable")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func registerHealthcheck(mux *http.ServeMux, store storeStater) {
	healthchecker := NewHealthchecker(store)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
