// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package publish holds the sinks measurements are handed to after every poll.
package publish

import (
	"context"
	"encoding/json"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/relabs-tech/sim_sentuator/internal/sensor"
)

// Client is the part of mqtt.Client the publisher needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Connect dials the broker and returns a connected client.
func Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Wrapf(token.Error(), "connect to MQTT broker %s", broker)
	}
	return client, nil
}

// MQTT publishes every measurement as retained JSON on a single topic, so late
// subscribers get the last reading straight away.
type MQTT struct {
	client Client
	topic  string
}

// NewMQTT returns a publisher writing to topic.
func NewMQTT(client Client, topic string) *MQTT {
	return &MQTT{client: client, topic: topic}
}

// Topic returns the topic measurements go to.
func (p *MQTT) Topic() string { return p.topic }

// Publish sends m and waits for the broker to take it or for ctx to end.
func (p *MQTT) Publish(ctx context.Context, m sensor.Measurement) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "marshal measurement")
	}

	token := p.client.Publish(p.topic, 0, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return errors.Wrapf(token.Error(), "publish to %s", p.topic)
}
