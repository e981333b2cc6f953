package commands

import (
	"net"
	"strings"
	"time"

	"nselfadmin/internal/collectors"
	"nselfadmin/internal/config"
)

// ConfigPath is bound to the root --config flag. Empty means DefaultPath.
var ConfigPath string

const apiTimeout = 5 * time.Second

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(ConfigPath)
}

// configFile is the file "set" writes back to.
func configFile(cfg *config.Config) string {
	if cfg.File != "" {
		return cfg.File
	}
	if ConfigPath != "" {
		return ConfigPath
	}
	return config.DefaultPath()
}

// apiURL turns a listen address into a URL a local client can dial.
// Wildcard hosts are replaced with loopback.
func apiURL(listen string) string {
	host, port, err := net.SplitHostPort(strings.TrimPrefix(listen, "http://"))
	if err != nil {
		return "http://" + strings.TrimPrefix(listen, "http://")
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// apiClient talks to the local daemon's HTTP API.
func apiClient(cfg *config.Config) *collectors.Client {
	return collectors.NewClient(apiURL(cfg.Server.Listen), "", apiTimeout)
}
