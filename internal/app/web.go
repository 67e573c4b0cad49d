// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/relabs-tech/sim_sentuator/internal/config"
	"github.com/relabs-tech/sim_sentuator/internal/publish"
	"github.com/relabs-tech/sim_sentuator/internal/sensor"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WebServer serves the latest measurement, pushes every new one to websocket
// clients and renders field previews.
type WebServer struct {
	logger *zap.SugaredLogger
	fields map[string]FieldSource

	mu     sync.RWMutex
	latest sensor.Measurement
	have   bool

	hubMu   sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewWebServer returns a server previewing fields. When two fields share a name the
// first one is previewed.
func NewWebServer(fields []FieldSource, logger *zap.SugaredLogger) *WebServer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &WebServer{
		logger:  logger,
		fields:  make(map[string]FieldSource, len(fields)),
		clients: make(map[*websocket.Conn]struct{}),
	}
	for _, f := range fields {
		if _, dup := s.fields[f.Quantity.Name]; !dup {
			s.fields[f.Quantity.Name] = f
		}
	}
	return s
}

// Latest returns the last measurement received.
func (s *WebServer) Latest() (sensor.Measurement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.have
}

// Update records m as the latest measurement and pushes it to every websocket client.
func (s *WebServer) Update(m sensor.Measurement) {
	s.mu.Lock()
	s.latest = m
	s.have = true
	s.mu.Unlock()

	s.hubMu.Lock()
	defer s.hubMu.Unlock()
	for conn := range s.clients {
		if err := writeJSON(conn, m); err != nil {
			s.logger.Debugw("web: dropping websocket client", "remote", conn.RemoteAddr().String(), "error", err)
			delete(s.clients, conn)
			_ = conn.Close()
		}
	}
}

// HandleMessage decodes an MQTT payload and records it.
func (s *WebServer) HandleMessage(payload []byte) error {
	var m sensor.Measurement
	if err := json.Unmarshal(payload, &m); err != nil {
		return errors.Wrap(err, "unmarshal measurement")
	}
	s.Update(m)
	return nil
}

func writeJSON(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(v)
}

// Handler returns the HTTP routes.
func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/measurement", s.handleMeasurement)
	mux.HandleFunc("GET /api/field/{file}", s.handleField)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *WebServer) handleMeasurement(w http.ResponseWriter, _ *http.Request) {
	m, ok := s.Latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(m); err != nil {
		s.logger.Warnw("web: json encode error", "error", err)
	}
}

func (s *WebServer) handleField(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	name, isPNG := strings.CutSuffix(file, ".png")
	f, ok := s.fields[name]
	if !isPNG || !ok {
		http.NotFound(w, r)
		return
	}

	m, have := s.Latest()
	label := name + ": no data"
	if q, found := m.Get(name); have && found {
		label = fmt.Sprintf("%s %.2f %s", name, q.Value, q.Units)
	}
	img := RenderField(f.Source.Sample(), m.Location, strings.TrimSpace(label))

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		s.logger.Warnw("web: png encode error", "field", name, "error", err)
	}
}

func (s *WebServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("web: websocket upgrade error", "error", err)
		return
	}

	s.hubMu.Lock()
	s.clients[conn] = struct{}{}
	if m, ok := s.Latest(); ok {
		if err := writeJSON(conn, m); err != nil {
			delete(s.clients, conn)
			s.hubMu.Unlock()
			_ = conn.Close()
			return
		}
	}
	s.hubMu.Unlock()

	// Clients only listen; reading detects when they go away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debugw("web: websocket error", "error", err)
			}
			break
		}
	}

	s.hubMu.Lock()
	if _, ok := s.clients[conn]; ok {
		delete(s.clients, conn)
		_ = conn.Close()
	}
	s.hubMu.Unlock()
}

// Clients returns how many websocket clients are connected.
func (s *WebServer) Clients() int {
	s.hubMu.Lock()
	defer s.hubMu.Unlock()
	return len(s.clients)
}

// RunWeb subscribes to the measurement topic and serves the web API until ctx is done.
func RunWeb(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) error {
	if cfg.MQTTBroker == "" {
		return errors.New("web: MQTT_BROKER is required")
	}

	fields, err := LoadFields(cfg.Quantities)
	if err != nil {
		return err
	}
	server := NewWebServer(fields, logger)

	client, err := publish.Connect(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	logger.Infow("web: connected to MQTT broker", "broker", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicMeasurement, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if err := server.HandleMessage(msg.Payload()); err != nil {
			logger.Warnw("web: MQTT payload unmarshal error", "error", err)
		}
	})
	token.Wait()
	if token.Error() != nil {
		return errors.Wrapf(token.Error(), "subscribe to %s", cfg.TopicMeasurement)
	}
	logger.Infow("web: subscribed", "topic", cfg.TopicMeasurement)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Infow("web server listening", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
