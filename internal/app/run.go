package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/config"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/csvstore"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/httpapi"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/modules/climate"
	climateviews "github.com/CamiloRosadaC/primera-entrega-IOT/internal/modules/climate/views"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dataPath", cfg.DataPath,
		"formatHint", cfg.FormatHint,
		"defaultDevice", cfg.DefaultDevice,
		"dashboardDefaultN", cfg.DashboardDefaultN,
		"dashboardRefresh", cfg.DashboardRefresh,
		"corsAllowedOrigins", cfg.CORSAllowedOrigins,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	store, err := csvstore.Open(cfg.DataPath,
		csvstore.WithFormatHint(cfg.FormatHint),
		csvstore.WithLogger(slog.Default()),
	)
	if err != nil {
		return fmt.Errorf("initialize data file: %w", err)
	}

	if err := climateviews.LoadTemplates(); err != nil {
		return err
	}

	var subscriber *mqtt.Subscriber
	mux := httpapi.NewMux(store)
	if cfg.MQTTEnabled() {
		subscriber = mqtt.NewSubscriber(cfg, slog.Default())
		// The handler is set before Connect so queued messages are not dropped.
		climate.RegisterFeature(mux, store, cfg, subscriber, slog.Default())

		// Short timeout so a broker outage does not block startup.
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	} else {
		climate.RegisterFeature(mux, store, cfg, nil, slog.Default())
	}

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if subscriber != nil {
		slog.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
