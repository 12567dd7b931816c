package climate

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/modules/climate/service"
)

// MQTTSubscriber is the part of the broker client the climate feature needs.
type MQTTSubscriber interface {
	SetMessageHandler(handler func(topic string, payload []byte) error)
}

// storeTimeout bounds one MQTT-triggered append.
const storeTimeout = 10 * time.Second

// registerMQTTHandler routes broker messages through the same validation and
// storage path as POST /ingest.
func registerMQTTHandler(subscriber MQTTSubscriber, svc *service.Service, logger *slog.Logger) {
	subscriber.SetMessageHandler(func(topic string, payload []byte) error {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		reading, err := svc.Ingest(ctx, service.SourceMQTT, payload, DeviceFromTopic(topic))
		if err != nil {
			return err
		}
		logger.Debug("stored mqtt reading",
			"topic", topic,
			"device", reading.DeviceID,
			"ts_epoch", reading.Timestamp,
		)
		return nil
	})
}

// DeviceFromTopic returns the second level of a topic such as
// "clima/<device>/reading", or "" when there is none.
func DeviceFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
