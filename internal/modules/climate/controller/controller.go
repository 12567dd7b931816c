package controller

import (
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/modules/climate/service"
)

type ClimateController interface {
	RegisterRoutes(mux *http.ServeMux)
}

// Options carries the HTTP-facing settings of the climate feature.
type Options struct {
	// APIKey must match the X-API-KEY header of every ingest request.
	APIKey string
	// DefaultN is the dashboard window used when n is absent or not an integer.
	DefaultN int
	// Refresh is the dashboard auto-reload interval; zero disables it.
	Refresh            time.Duration
	CORSAllowedOrigins []string
}

type climateControllerImpl struct {
	service  *service.Service
	apiKey   []byte
	defaultN int
	refresh  time.Duration
	cors     *cors.Cors
}

func NewClimateController(svc *service.Service, opts Options) ClimateController {
	c := &climateControllerImpl{
		service:  svc,
		apiKey:   []byte(opts.APIKey),
		defaultN: opts.DefaultN,
		refresh:  opts.Refresh,
	}
	// rs/cors treats an empty origin list as "*", so only enable it when configured.
	if len(opts.CORSAllowedOrigins) > 0 {
		c.cors = cors.New(cors.Options{
			AllowedOrigins: opts.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodHead},
		})
	}
	return c
}

func (c *climateControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /ingest", c.handleIngest)
	mux.HandleFunc("GET /data.csv", c.handleDataCSV)
	mux.HandleFunc("GET /dashboard", c.handleDashboard)
	mux.HandleFunc("GET /{$}", c.handleRoot)

	var readings http.Handler = http.HandlerFunc(c.handleReadings)
	if c.cors != nil {
		readings = c.cors.Handler(readings)
		mux.Handle("OPTIONS /api/v1/readings", readings)
	}
	mux.Handle("GET /api/v1/readings", readings)
}
