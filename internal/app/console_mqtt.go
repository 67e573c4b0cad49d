// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/relabs-tech/sim_sentuator/internal/config"
	"github.com/relabs-tech/sim_sentuator/internal/publish"
	"github.com/relabs-tech/sim_sentuator/internal/sensor"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatMeasurement renders m on one line for terminals.
func FormatMeasurement(m sensor.Measurement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", m.SensorType, time.UnixMilli(m.Timestamp).UTC().Format(timestampLayout))

	if len(m.Location) == 0 {
		b.WriteString("  location unknown")
	} else {
		coords := make([]string, len(m.Location))
		for i, c := range m.Location {
			coords[i] = fmt.Sprintf("%.2f", c)
		}
		fmt.Fprintf(&b, "  @(%s)", strings.Join(coords, ", "))
	}

	if len(m.Quantities) == 0 {
		b.WriteString("  no data")
	}
	for _, q := range m.Quantities {
		fmt.Fprintf(&b, "  %s=%.3f", q.Name, q.Value)
		if q.Units != "" {
			b.WriteString(" " + q.Units)
		}
	}
	return b.String()
}

// printMeasurement decodes a measurement payload and writes it to w.
func printMeasurement(w io.Writer, payload []byte) error {
	var m sensor.Measurement
	if err := json.Unmarshal(payload, &m); err != nil {
		return errors.Wrap(err, "unmarshal measurement")
	}
	_, err := fmt.Fprintln(w, FormatMeasurement(m))
	return err
}

// RunConsoleMQTT prints every measurement published on the measurement topic until
// ctx is done.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, w io.Writer, logger *zap.SugaredLogger) error {
	if cfg.MQTTBroker == "" {
		return errors.New("console: MQTT_BROKER is required")
	}
	client, err := publish.Connect(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	logger.Infow("console: connected to MQTT broker", "broker", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicMeasurement, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if err := printMeasurement(w, msg.Payload()); err != nil {
			logger.Warnw("console: bad measurement", "topic", msg.Topic(), "error", err)
		}
	})
	token.Wait()
	if token.Error() != nil {
		return errors.Wrapf(token.Error(), "subscribe to %s", cfg.TopicMeasurement)
	}
	logger.Infow("console: subscribed", "topic", cfg.TopicMeasurement)

	<-ctx.Done()
	logger.Info("console: shutting down")
	return nil
}
