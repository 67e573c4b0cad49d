// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Location sources.
const (
	LocationStatic = "static"
	LocationOrbit  = "orbit"
	LocationGPS    = "gps"
)

// Quantity is one QUANTITY line: a named value read from a field image laid over
// the rectangle (X1,Y1)-(X2,Y2) and rescaled to [Min, Max].
type Quantity struct {
	Name  string
	Units string // empty when the quantity has no units
	Path  string // absolute once loaded from a file
	X1    float64
	Y1    float64
	X2    float64
	Y2    float64
	Min   float64
	Max   float64
}

// Config holds all application configuration values.
type Config struct {
	// Sensor
	SensorName      string
	PollingInterval int // milliseconds
	AutoEnable      bool
	Quantities      []Quantity

	// MQTT
	MQTTBroker            string // empty disables MQTT publishing in the simulator
	MQTTClientIDSimulator string
	MQTTClientIDConsole   string
	MQTTClientIDWeb       string

	// Topics
	TopicMeasurement string

	// Recording
	RecorderDBPath string

	// Location
	LocationSource string
	Location       []float64 // static platform; empty means unknown
	OrbitCenter    [2]float64
	OrbitRadius    float64
	OrbitPeriod    int // milliseconds

	// GPS
	GPSSerialPort string
	GPSBaudRate   int
	GPSOrigin     [2]float64 // lat, lon of the local frame origin

	// Web Server
	WebServerPort int
}

// PollingDuration returns the polling interval as a duration.
func (c *Config) PollingDuration() time.Duration {
	return time.Duration(c.PollingInterval) * time.Millisecond
}

// OrbitDuration returns the orbit period as a duration.
func (c *Config) OrbitDuration() time.Duration {
	return time.Duration(c.OrbitPeriod) * time.Millisecond
}

// Quantity returns the first quantity called name.
func (c *Config) Quantity(name string) (Quantity, bool) {
	for _, q := range c.Quantities {
		if q.Name == name {
			return q, true
		}
	}
	return Quantity{}, false
}

// Set once by InitGlobal; read through Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration with every optional key at its default.
func Default() *Config {
	return &Config{
		SensorName:            "sim",
		PollingInterval:       1000,
		AutoEnable:            true,
		MQTTClientIDSimulator: "sim-sentuator",
		MQTTClientIDConsole:   "sim-console",
		MQTTClientIDWeb:       "sim-web",
		TopicMeasurement:      "sentuator/measurement",
		LocationSource:        LocationStatic,
		GPSBaudRate:           9600,
		WebServerPort:         8080,
	}
}

// Load reads the configuration file and returns a Config struct. Relative field
// paths are resolved against the directory holding the file.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open config file")
	}
	defer file.Close()

	base, err := filepath.Abs(filepath.Dir(configPath))
	if err != nil {
		return nil, errors.Wrap(err, "resolve config directory")
	}
	return Parse(file, base)
}

// Parse reads KEY=VALUE lines from r. Relative field paths are joined to baseDir.
func Parse(r io.Reader, baseDir string) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, errors.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := stripComment(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, errors.Wrapf(err, "config line %d", lineNum)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	for i := range cfg.Quantities {
		if p := cfg.Quantities[i].Path; p != "" && !filepath.IsAbs(p) && baseDir != "" {
			cfg.Quantities[i].Path = filepath.Join(baseDir, p)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// stripComment drops a trailing " # ..." comment and surrounding space.
func stripComment(value string) string {
	if i := strings.Index(value, " #"); i >= 0 {
		value = value[:i]
	}
	return strings.TrimSpace(value)
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Sensor
	case "SENSOR_NAME":
		c.SensorName = value
	case "POLLING_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrapf(err, "invalid POLLING_INTERVAL %q", value)
		}
		c.PollingInterval = interval
	case "AUTO_ENABLE":
		enable, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Wrapf(err, "invalid AUTO_ENABLE %q", value)
		}
		c.AutoEnable = enable
	case "QUANTITY":
		q, err := parseQuantity(value)
		if err != nil {
			return err
		}
		c.Quantities = append(c.Quantities, q)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_SIMULATOR":
		c.MQTTClientIDSimulator = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value

	// Topics
	case "TOPIC_MEASUREMENT":
		c.TopicMeasurement = value

	// Recording
	case "RECORDER_DB_PATH":
		c.RecorderDBPath = value

	// Location
	case "LOCATION_SOURCE":
		c.LocationSource = strings.ToLower(value)
	case "LOCATION":
		coords, err := parseFloats(value, -1)
		if err != nil {
			return errors.Wrapf(err, "invalid LOCATION %q", value)
		}
		c.Location = coords
	case "ORBIT_CENTER":
		center, err := parseFloats(value, 2)
		if err != nil {
			return errors.Wrapf(err, "invalid ORBIT_CENTER %q", value)
		}
		c.OrbitCenter = [2]float64{center[0], center[1]}
	case "ORBIT_RADIUS":
		radius, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid ORBIT_RADIUS %q", value)
		}
		c.OrbitRadius = radius
	case "ORBIT_PERIOD":
		period, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrapf(err, "invalid ORBIT_PERIOD %q", value)
		}
		c.OrbitPeriod = period

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrapf(err, "invalid GPS_BAUD_RATE %q", value)
		}
		c.GPSBaudRate = rate
	case "GPS_ORIGIN":
		origin, err := parseFloats(value, 2)
		if err != nil {
			return errors.Wrapf(err, "invalid GPS_ORIGIN %q", value)
		}
		c.GPSOrigin = [2]float64{origin[0], origin[1]}

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrapf(err, "invalid WEB_SERVER_PORT %q", value)
		}
		c.WebServerPort = port

	default:
		return errors.Errorf("unknown config key: %q", key)
	}

	return nil
}

// parseFloats reads a comma separated list. n < 0 accepts any length.
func parseFloats(value string, n int) ([]float64, error) {
	if value == "" {
		if n <= 0 {
			return nil, nil
		}
		return nil, errors.Errorf("want %d values, got none", n)
	}
	parts := strings.Split(value, ",")
	if n >= 0 && len(parts) != n {
		return nil, errors.Errorf("want %d values, got %d", n, len(parts))
	}
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// parseQuantity reads name|units|path|x1|y1|x2|y2|min|max.
func parseQuantity(value string) (Quantity, error) {
	parts := strings.Split(value, "|")
	if len(parts) != 9 {
		return Quantity{}, errors.Errorf("QUANTITY wants name|units|path|x1|y1|x2|y2|min|max, got %q", value)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	q := Quantity{Name: parts[0], Units: parts[1], Path: parts[2]}
	nums := []*float64{&q.X1, &q.Y1, &q.X2, &q.Y2, &q.Min, &q.Max}
	for i, dst := range nums {
		v, err := strconv.ParseFloat(parts[3+i], 64)
		if err != nil {
			return Quantity{}, errors.Wrapf(err, "QUANTITY %q field %d", q.Name, 4+i)
		}
		*dst = v
	}
	return q, nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs error
	if c.SensorName == "" {
		errs = multierr.Append(errs, errors.New("SENSOR_NAME is required"))
	}
	if c.PollingInterval <= 0 {
		errs = multierr.Append(errs, errors.Errorf("POLLING_INTERVAL must be positive, got %d", c.PollingInterval))
	}
	if c.TopicMeasurement == "" {
		errs = multierr.Append(errs, errors.New("TOPIC_MEASUREMENT is required"))
	}

	switch c.LocationSource {
	case LocationStatic:
		if len(c.Location) == 1 {
			errs = multierr.Append(errs, errors.New("LOCATION needs at least 2 coordinates"))
		}
	case LocationOrbit:
		if c.OrbitRadius < 0 {
			errs = multierr.Append(errs, errors.Errorf("ORBIT_RADIUS must not be negative, got %v", c.OrbitRadius))
		}
		if c.OrbitPeriod <= 0 {
			errs = multierr.Append(errs, errors.Errorf("ORBIT_PERIOD must be positive, got %d", c.OrbitPeriod))
		}
	case LocationGPS:
		if c.GPSSerialPort == "" {
			errs = multierr.Append(errs, errors.New("GPS_SERIAL_PORT is required for LOCATION_SOURCE=gps"))
		}
		if c.GPSBaudRate <= 0 {
			errs = multierr.Append(errs, errors.Errorf("GPS_BAUD_RATE must be positive, got %d", c.GPSBaudRate))
		}
	default:
		errs = multierr.Append(errs, errors.Errorf("LOCATION_SOURCE must be static, orbit or gps, got %q", c.LocationSource))
	}

	for _, q := range c.Quantities {
		if q.Name == "" {
			errs = multierr.Append(errs, errors.New("QUANTITY name is required"))
		}
		if q.Path == "" {
			errs = multierr.Append(errs, errors.Errorf("QUANTITY %q: field path is required", q.Name))
		}
		if !(q.X1 < q.X2) || !(q.Y1 < q.Y2) {
			errs = multierr.Append(errs, errors.Errorf("QUANTITY %q: bounds (%v,%v)-(%v,%v) are empty", q.Name, q.X1, q.Y1, q.X2, q.Y2))
		}
		if !(q.Min < q.Max) {
			errs = multierr.Append(errs, errors.Errorf("QUANTITY %q: min %v must be below max %v", q.Name, q.Min, q.Max))
		}
	}

	if c.WebServerPort <= 0 || c.WebServerPort > 65535 {
		errs = multierr.Append(errs, errors.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", c.WebServerPort))
	}
	return errs
}

// InitGlobal initializes the global configuration from file. Only the first call
// has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance, or nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
