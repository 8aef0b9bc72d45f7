package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// Config holds the full proxy configuration.
type Config struct {
	Server      ServerConfig
	Rules       RulesConfig
	Cache       CacheConfig
	Backend     BackendConfig
	Metrics     MetricsConfig
	Datasources []DatasourceConfig
}

// ServerConfig is the client-facing listener.
type ServerConfig struct {
	Listen         string
	ServerVersion  string
	User           string
	Password       string
	MaxConnections int // 0 means unlimited
}

// RulesConfig locates the sharding rule file.
type RulesConfig struct {
	Path string
}

// CacheConfig bounds the result cache.
type CacheConfig struct {
	MaxSize int
}

// BackendConfig bounds backend connection usage.
type BackendConfig struct {
	CheckoutTimeout     time.Duration
	QueryTimeout        time.Duration
	MaxOpenConns        int
	MaxIdleConns        int
	ConnMaxLifetime     time.Duration
	HealthCheckInterval time.Duration
}

// MetricsConfig is the observability listener.
type MetricsConfig struct {
	Listen string
}

// DatasourceConfig is one backend database with optional read replicas.
type DatasourceConfig struct {
	Name     string
	URL      string
	Replicas []string
}

// Load reads configuration from an INI file with environment variable overrides
func Load(path string) (*Config, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}

	server := cfg.Section("server")
	rules := cfg.Section("rules")
	cacheSec := cfg.Section("cache")
	backend := cfg.Section("backend")
	metricsSec := cfg.Section("metrics")

	config := &Config{
		Server: ServerConfig{
			Listen:         server.Key("listen").MustString("127.0.0.1:3306"),
			ServerVersion:  server.Key("server_version").MustString("8.0.0-dbmesh"),
			User:           server.Key("user").MustString("root"),
			Password:       server.Key("password").String(),
			MaxConnections: server.Key("max_connections").MustInt(0),
		},
		Rules: RulesConfig{
			Path: rules.Key("path").MustString("etc/dbmesh.yaml"),
		},
		Cache: CacheConfig{
			MaxSize: cacheSec.Key("max_size").MustInt(100000),
		},
		Backend: BackendConfig{
			CheckoutTimeout:     time.Duration(backend.Key("checkout_timeout_ms").MustInt(500)) * time.Millisecond,
			QueryTimeout:        time.Duration(backend.Key("query_timeout_ms").MustInt(5000)) * time.Millisecond,
			MaxOpenConns:        backend.Key("max_open_conns").MustInt(16),
			MaxIdleConns:        backend.Key("max_idle_conns").MustInt(8),
			ConnMaxLifetime:     time.Duration(backend.Key("conn_max_lifetime_s").MustInt(300)) * time.Second,
			HealthCheckInterval: time.Duration(backend.Key("health_check_interval_s").MustInt(10)) * time.Second,
		},
		Metrics: MetricsConfig{
			Listen: metricsSec.Key("listen").MustString(":9104"),
		},
	}

	for _, sec := range cfg.Sections() {
		name, ok := strings.CutPrefix(sec.Name(), "datasource:")
		if !ok {
			continue
		}
		ds := DatasourceConfig{
			Name: name,
			URL:  sec.Key("url").String(),
		}
		if ds.URL == "" {
			return nil, fmt.Errorf("datasource %s has no url", name)
		}
		// Parse replicas (replica1, replica2, etc.)
		for i := 1; i <= 10; i++ {
			replica := sec.Key("replica" + strconv.Itoa(i)).String()
			if replica != "" {
				ds.Replicas = append(ds.Replicas, replica)
			}
		}
		config.Datasources = append(config.Datasources, ds)
	}
	if len(config.Datasources) == 0 {
		return nil, fmt.Errorf("no datasources configured")
	}

	// Environment variable overrides
	if v := os.Getenv("DBMESH_LISTEN"); v != "" {
		config.Server.Listen = v
	}
	if v := os.Getenv("DBMESH_USER"); v != "" {
		config.Server.User = v
	}
	if v := os.Getenv("DBMESH_PASSWORD"); v != "" {
		config.Server.Password = v
	}
	if v := os.Getenv("DBMESH_RULES"); v != "" {
		config.Rules.Path = v
	}
	if v := os.Getenv("DBMESH_METRICS_LISTEN"); v != "" {
		config.Metrics.Listen = v
	}

	return config, nil
}
