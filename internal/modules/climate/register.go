package climate

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/config"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/csvstore"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/modules/climate/controller"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/modules/climate/repository"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/modules/climate/service"
)

// RegisterFeature wires the climate routes on mux and, when subscriber is not
// nil, the MQTT ingestion handler.
func RegisterFeature(mux *http.ServeMux, store *csvstore.Store, cfg config.Config, subscriber MQTTSubscriber, logger *slog.Logger) {
	climateRepository := repository.NewRepository(store)
	climateService := service.NewService(climateRepository, cfg.DefaultDevice, service.WithLocation(time.Local))
	climateController := controller.NewClimateController(climateService, controller.Options{
		APIKey:             cfg.APIKey,
		DefaultN:           cfg.DashboardDefaultN,
		Refresh:            cfg.DashboardRefresh,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})
	climateController.RegisterRoutes(mux)

	if subscriber != nil {
		registerMQTTHandler(subscriber, climateService, logger)
	}
}
