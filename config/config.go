// Package config loads the server's configuration (spec §6 "Configuration
// object"), mirroring original_source/src/RdWebServerSettings.h's defaults,
// with YAML as the on-disk format (gopkg.in/yaml.v3) the way the rest of
// the retrieved pack's CLI/server tooling configures itself.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// WebSocketHandler is one configured WebSocket URL-prefix handler (spec §6
// "Per-WebSocket-handler options").
type WebSocketHandler struct {
	Prefix      string `yaml:"prefix"`
	MaxConn     int    `yaml:"maxConn"`
	PktMaxBytes int    `yaml:"pktMaxBytes"`
	TxQueueMax  int    `yaml:"txQueueMax"`
}

// Config mirrors RdWebServerSettings' fields (spec §6).
type Config struct {
	ServerTCPPort     int    `yaml:"serverTCPPort"`
	NumConnSlots      int    `yaml:"numConnSlots"`
	EnableWebSockets  bool   `yaml:"enableWebSockets"`
	PingIntervalMs    int    `yaml:"pingIntervalMs"`
	DisconnIfNoPongMs int    `yaml:"disconnIfNoPongMs"`
	EnableFileServer  bool   `yaml:"enableFileServer"`
	TaskCore          int    `yaml:"taskCore"`
	TaskPriority      int    `yaml:"taskPriority"`
	TaskStackSize     int    `yaml:"taskStackSize"`
	SendBufferMaxLen  int    `yaml:"sendBufferMaxLen"`
	RestAPIChannelID  int    `yaml:"restAPIChannelID"`
	WebRoot           string `yaml:"webRoot"`
	DefaultPath       string `yaml:"defaultPath"`

	WebSockets []WebSocketHandler `yaml:"webSockets"`

	// MetricsEnabled wires github.com/prometheus/client_golang gauges
	// into the Manager (SPEC_FULL.md Domain Stack); off by default since
	// the original embedded target has no metrics exporter at all.
	MetricsEnabled bool `yaml:"metricsEnabled"`
	MetricsAddr    string `yaml:"metricsAddr"`
}

// Default returns the configuration with every default from
// RdWebServerSettings' no-arg constructor.
func Default() *Config {
	return &Config{
		ServerTCPPort:     80,
		NumConnSlots:      6,
		EnableWebSockets:  true,
		PingIntervalMs:    1000,
		DisconnIfNoPongMs: 5000,
		EnableFileServer:  true,
		TaskCore:          0,
		TaskPriority:      9,
		TaskStackSize:     3000,
		SendBufferMaxLen:  1000,
		RestAPIChannelID:  -1,
		WebRoot:           ".",
		DefaultPath:       "/index.html",
		WebSockets: []WebSocketHandler{
			{Prefix: "ws", MaxConn: 4, PktMaxBytes: 5000, TxQueueMax: 2},
		},
		MetricsAddr: ":9090",
	}
}

// Load reads a YAML config file over the defaults (unset fields keep their
// default value). A missing file is not an error; Default() is returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
