// Package config resolves the settings shared by the binaries.
// Precedence, lowest first: built-in defaults, CARTBUS_* environment
// variables, the YAML file, command line flags.
package config

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v2"

	"github.com/robotalks/cartbus/pkg/bus"
	"github.com/robotalks/cartbus/pkg/bus/bridge"
	"github.com/robotalks/cartbus/pkg/bus/sim"
	"github.com/robotalks/cartbus/pkg/metrics"
)

// SimURL selects the in-memory simulated bus.
const SimURL = "sim"

// Config is the configuration of a bus client.
type Config struct {
	// BusURL is one of:
	//   sim
	//   serial:///dev/ttyUSB0?baud=115200
	//   ws://host:port/path
	BusURL string `yaml:"bus"`
	// BridgeTimeout bounds a single bridge request.
	BridgeTimeout time.Duration `yaml:"bridge-timeout"`
	// Verbose echoes fire-and-forget commands.
	Verbose bool `yaml:"verbose"`
	// MQTTURL is the broker for remote control,
	// e.g. mqtt://localhost:1883/cartbus/
	MQTTURL string `yaml:"mqtt"`
	// DeviceID names this bus under the MQTT topic prefix.
	// Defaults to an ID derived from the machine ID.
	DeviceID    string `yaml:"device-id"`
	MetricsAddr string `yaml:"metrics-addr"`

	// File is the YAML file loaded by Load.
	File string `yaml:"-"`
}

var defaultConfig = Config{
	BusURL:        SimURL,
	BridgeTimeout: bridge.DefaultTimeout,
	MQTTURL:       "mqtt://localhost:1883/cartbus/",
	MetricsAddr:   ":9102",
}

func init() {
	defaultConfig.ApplyEnv(os.Getenv)
}

// ApplyEnv overrides settings from CARTBUS_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if val := getenv("CARTBUS_BUS"); val != "" {
		c.BusURL = val
	}
	if val := getenv("CARTBUS_BRIDGE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.BridgeTimeout = d
		} else {
			glog.Warningf("ignore CARTBUS_BRIDGE_TIMEOUT=%q: %v", val, err)
		}
	}
	if val := getenv("CARTBUS_VERBOSE"); val != "" {
		if en, err := strconv.ParseBool(val); err == nil {
			c.Verbose = en
		} else {
			glog.Warningf("ignore CARTBUS_VERBOSE=%q: %v", val, err)
		}
	}
	if val := getenv("CARTBUS_MQTT_URL"); val != "" {
		c.MQTTURL = val
	}
	if val := getenv("CARTBUS_DEVICE_ID"); val != "" {
		c.DeviceID = val
	}
	if val := getenv("CARTBUS_METRICS_ADDR"); val != "" {
		c.MetricsAddr = val
	}
	if val := getenv("CARTBUS_CONFIG"); val != "" {
		c.File = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	defaultConfig.SetupFlagSet(flag.CommandLine)
}

// SetupFlagSet registers flags on fs writing into c.
func (c *Config) SetupFlagSet(fs *flag.FlagSet) {
	fs.StringVar(&c.File, "config", c.File, "YAML configuration file.")
	fs.StringVar(&c.BusURL, "bus", c.BusURL, "Bus URL: sim, serial:///dev/ttyX?baud=N or ws://host:port/path.")
	fs.DurationVar(&c.BridgeTimeout, "bridge-timeout", c.BridgeTimeout, "Timeout of a single bridge request.")
	fs.BoolVar(&c.Verbose, "verbose", c.Verbose, "Echo fire-and-forget commands.")
	fs.StringVar(&c.MQTTURL, "mqtt", c.MQTTURL, "MQTT broker URL.")
	fs.StringVar(&c.DeviceID, "device-id", c.DeviceID, "Device ID under the MQTT topic prefix.")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "Listen address of the metrics endpoint.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Load creates a Config with default configurations and the YAML
// file if one is specified. Flags given explicitly win over the file.
func Load() (*Config, error) {
	conf := NewConfig()
	if conf.File == "" {
		return conf, nil
	}
	if err := conf.LoadFile(conf.File); err != nil {
		return nil, err
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name != "config" {
			conf.setFlag(f)
		}
	})
	return conf, nil
}

func (c *Config) setFlag(f *flag.Flag) {
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	c.SetupFlagSet(fs)
	if err := fs.Set(f.Name, f.Value.String()); err != nil {
		glog.Warningf("flag -%s: %v", f.Name, err)
	}
}

// LoadFile merges the YAML file into c. Unknown keys are errors.
func (c *Config) LoadFile(fn string) error {
	data, err := ioutil.ReadFile(fn)
	if err != nil {
		return err
	}
	return c.Parse(data)
}

// Parse merges YAML content into c.
func (c *Config) Parse(data []byte) error {
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return fmt.Errorf("invalid config: %v", err)
	}
	return nil
}

// Device returns DeviceID or the machine derived ID.
func (c *Config) Device() (string, error) {
	if c.DeviceID != "" {
		return c.DeviceID, nil
	}
	id, err := machineid.ProtectedID("cartbus")
	if err != nil {
		return "", fmt.Errorf("device ID not configured and machine ID unavailable: %v", err)
	}
	// the full hash is unwieldy in topics.
	return id[:12], nil
}

// Bus is an opened bus.
type Bus struct {
	bus.Transport

	conn *bridge.Conn
}

// OpenBus opens the bus selected by BusURL. When reg is not nil the
// transport is instrumented.
func (c *Config) OpenBus(reg prometheus.Registerer) (*Bus, error) {
	b := &Bus{}
	if c.BusURL == SimURL {
		b.Transport = sim.NewDefault()
	} else {
		if _, err := url.Parse(c.BusURL); err != nil {
			return nil, fmt.Errorf("invalid bus URL: %v", err)
		}
		conn, err := bridge.Open(c.BusURL)
		if err != nil {
			return nil, err
		}
		if c.BridgeTimeout > 0 {
			conn.Timeout = c.BridgeTimeout
		}
		b.Transport, b.conn = conn.Transport, conn
	}
	if reg != nil {
		b.Transport = metrics.Instrument(b.Transport, metrics.NewBusMetrics(reg))
	}
	return b, nil
}

// Name implements framework.Named.
func (b *Bus) Name() string {
	return "bus"
}

// Run keeps the bridge link running. The simulated bus only waits for ctx.
func (b *Bus) Run(ctx context.Context) error {
	if b.conn == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	defer b.conn.Close()
	return b.conn.Run(ctx)
}

// WaitReady waits for the bridge link to synchronize.
func (b *Bus) WaitReady(ctx context.Context) error {
	if b.conn == nil {
		return nil
	}
	return b.conn.WaitReady(ctx)
}
