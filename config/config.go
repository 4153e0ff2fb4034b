package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/mqtt-test-client/core/mqtt"
)

// Default values applied when a variable is unset or empty.
const (
	DefaultCAChainFile    = "../ca/certs/intermediate_ca.crt"
	DefaultCertFile       = "../client1-authn-ID.crt"
	DefaultKeyFile        = "../client1-authn-ID.key"
	DefaultClientIDPrefix = "mqtt_iot_client_"
)

// Config is the process configuration, built once at startup.
type Config struct {
	MQTTHostname   string        `json:"MQTT_HOSTNAME"`
	CAChainFile    string        `json:"CA_CHAIN_FILE_PATH"`
	CertFile       string        `json:"CERT_FILE_PATH"`
	KeyFile        string        `json:"KEY_FILE_PATH"`
	Topic          string        `json:"MQ_TOPIC"`
	ClientID       string        `json:"MQTT_CLIENT_ID"`
	ConnectTimeout time.Duration `json:"MQTT_CONNECT_TIMEOUT"`

	Logging LoggingConfig `json:",squash"`
	Metrics MetricsConfig `json:",squash"`
}

// knownKeys lists the environment variables picked up from the process.
var knownKeys = map[string]struct{}{
	"MQTT_HOSTNAME":        {},
	"CA_CHAIN_FILE_PATH":   {},
	"CERT_FILE_PATH":       {},
	"KEY_FILE_PATH":        {},
	"MQ_TOPIC":             {},
	"MQTT_CLIENT_ID":       {},
	"MQTT_CONNECT_TIMEOUT": {},
	"APP_ENV":              {},
	"LOG_LEVEL":            {},
	"METRICS_SINKS":        {},
	"PUSHGATEWAY_URL":      {},
	"PUSHGATEWAY_JOB":      {},
	"INFLUX_URL":           {},
	"INFLUX_TOKEN":         {},
	"INFLUX_ORG":           {},
	"INFLUX_BUCKET":        {},
}

// Load reads the optional overlay file at path, then the process
// environment, which takes precedence. A missing overlay is not an error.
// The overlay format follows the extension: .yaml/.yml, .json, anything
// else is parsed as a dotenv file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
	}
	if err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		if _, ok := knownKeys[key]; !ok || value == "" {
			return "", nil
		}
		return key, value
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return json.Parser()
	default:
		return dotenv.Parser()
	}
}

// SetDefaults fills unset values. The hostname deliberately stays empty.
func (c *Config) SetDefaults() {
	if c.CAChainFile == "" {
		c.CAChainFile = DefaultCAChainFile
	}
	if c.CertFile == "" {
		c.CertFile = DefaultCertFile
	}
	if c.KeyFile == "" {
		c.KeyFile = DefaultKeyFile
	}
	if c.Topic == "" {
		c.Topic = mqtt.DefaultTopic
	}
	if c.ClientID == "" {
		c.ClientID = DefaultClientIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}
	c.Logging.SetDefaults()
	c.Metrics.SetDefaults()
}

// Validate checks values that cannot be fixed by defaults.
func (c Config) Validate() error {
	if c.ConnectTimeout < 0 {
		return fmt.Errorf("MQTT_CONNECT_TIMEOUT must not be negative")
	}
	return c.Metrics.Validate()
}

// ConnectionConfig reads the CA chain, client certificate and key as raw
// bytes. Any unreadable or empty file yields a *mqtt.ConfigError and no
// connection should be attempted.
func (c Config) ConnectionConfig() (mqtt.ConnectionConfig, error) {
	ca, err := readFile("CA_CHAIN_FILE_PATH", c.CAChainFile)
	if err != nil {
		return mqtt.ConnectionConfig{}, err
	}
	cert, err := readFile("CERT_FILE_PATH", c.CertFile)
	if err != nil {
		return mqtt.ConnectionConfig{}, err
	}
	key, err := readFile("KEY_FILE_PATH", c.KeyFile)
	if err != nil {
		return mqtt.ConnectionConfig{}, err
	}
	return mqtt.ConnectionConfig{
		Host:           c.MQTTHostname,
		Port:           mqtt.DefaultPort,
		ClientID:       c.ClientID,
		Topic:          c.Topic,
		CA:             ca,
		Cert:           cert,
		Key:            key,
		ConnectTimeout: c.ConnectTimeout,
	}, nil
}

func readFile(field, path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &mqtt.ConfigError{Field: field, Path: path, Err: err}
	}
	if len(b) == 0 {
		return nil, &mqtt.ConfigError{Field: field, Path: path, Err: mqtt.ErrEmptyFile}
	}
	return b, nil
}
