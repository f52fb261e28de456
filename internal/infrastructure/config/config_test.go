package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
api:
  host: "127.0.0.1"
  port: 18000
  document_root: "/srv/cogweb"
  versions: ["v1", "v2"]
engine:
  workers: 4
  request_timeout_ms: 250
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
  topic_prefix: "lab"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Port != 18000 {
		t.Errorf("API.Port = %d, want 18000", cfg.API.Port)
	}
	if cfg.API.DocumentRoot != "/srv/cogweb" {
		t.Errorf("API.DocumentRoot = %q", cfg.API.DocumentRoot)
	}
	if len(cfg.API.Versions) != 2 || cfg.API.Versions[1] != "v2" {
		t.Errorf("API.Versions = %v", cfg.API.Versions)
	}
	if cfg.API.UIPrefix != "/ui" {
		t.Errorf("API.UIPrefix = %q, want default /ui", cfg.API.UIPrefix)
	}
	if cfg.Engine.Workers != 4 {
		t.Errorf("Engine.Workers = %d, want 4", cfg.Engine.Workers)
	}
	if got := cfg.GetRequestTimeout(); got != 250*time.Millisecond {
		t.Errorf("GetRequestTimeout() = %v, want 250ms", got)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.MQTT.TopicPrefix != "lab" {
		t.Errorf("MQTT.TopicPrefix = %q, want lab", cfg.MQTT.TopicPrefix)
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.API.Port != 17034 {
		t.Errorf("API.Port = %d, want 17034", cfg.API.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
engine:
  workers: 0
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Error("Load() expected validation error for zero workers, got nil")
	}
}

func TestLoad_InvalidEnvOverride(t *testing.T) {
	t.Setenv("COGWEB_API_PORT", "not-a-port")
	if _, err := Load(""); err == nil {
		t.Error("Load() expected error for non-numeric COGWEB_API_PORT")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "database disabled without path", mutate: func(c *Config) { c.Database.Enabled = false; c.Database.Path = "" }},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "invalid port low", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: true},
		{name: "invalid port high", mutate: func(c *Config) { c.API.Port = 70000 }, wantErr: true},
		{name: "no versions", mutate: func(c *Config) { c.API.Versions = nil }, wantErr: true},
		{name: "version with slash", mutate: func(c *Config) { c.API.Versions = []string{"v1/x"} }, wantErr: true},
		{name: "root ui prefix", mutate: func(c *Config) { c.API.UIPrefix = "/" }, wantErr: true},
		{name: "relative ui prefix", mutate: func(c *Config) { c.API.UIPrefix = "ui" }, wantErr: true},
		{name: "ui disabled", mutate: func(c *Config) { c.API.UIPrefix = "" }},
		{name: "tls without files", mutate: func(c *Config) { c.API.TLS.Enabled = true }, wantErr: true},
		{name: "zero workers", mutate: func(c *Config) { c.Engine.Workers = 0 }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.Engine.RequestTimeoutMS = 0 }, wantErr: true},
		{name: "mqtt without prefix", mutate: func(c *Config) { c.MQTT.Enabled = true; c.MQTT.TopicPrefix = "/" }, wantErr: true},
		{name: "influx without url", mutate: func(c *Config) { c.InfluxDB.Enabled = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
		Engine: EngineConfig{RequestTimeoutMS: 100},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
	if got := cfg.GetRequestTimeout(); got != 100*time.Millisecond {
		t.Errorf("GetRequestTimeout() = %v, want 100ms", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("COGWEB_DATABASE_PATH", "/custom/path.db")
	t.Setenv("COGWEB_MQTT_HOST", "mqtt.example.com")
	t.Setenv("COGWEB_MQTT_USERNAME", "testuser")
	t.Setenv("COGWEB_MQTT_PASSWORD", "testpass")
	t.Setenv("COGWEB_API_HOST", "192.168.1.1")
	t.Setenv("COGWEB_API_PORT", "9000")
	t.Setenv("COGWEB_API_DOCUMENT_ROOT", "/var/www")
	t.Setenv("COGWEB_ENGINE_WORKERS", "3")
	t.Setenv("COGWEB_ENGINE_REQUEST_TIMEOUT_MS", "500")
	t.Setenv("COGWEB_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("COGWEB_LOG_LEVEL", "debug")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "testuser"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "testpass"},
		{"API.Host", cfg.API.Host, "192.168.1.1"},
		{"API.Port", cfg.API.Port, 9000},
		{"API.DocumentRoot", cfg.API.DocumentRoot, "/var/www"},
		{"Engine.Workers", cfg.Engine.Workers, 3},
		{"Engine.RequestTimeoutMS", cfg.Engine.RequestTimeoutMS, 500},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
		{"Logging.Level", cfg.Logging.Level, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.API.Port != 17034 {
		t.Errorf("defaultConfig API.Port = %d, want 17034", cfg.API.Port)
	}
	if cfg.Engine.RequestTimeoutMS != 100 {
		t.Errorf("defaultConfig Engine.RequestTimeoutMS = %d, want 100", cfg.Engine.RequestTimeoutMS)
	}
	if cfg.Engine.Workers != 1 {
		t.Errorf("defaultConfig Engine.Workers = %d, want 1", cfg.Engine.Workers)
	}
	if len(cfg.API.Versions) != 1 || cfg.API.Versions[0] != "v1" {
		t.Errorf("defaultConfig API.Versions = %v, want [v1]", cfg.API.Versions)
	}
	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig does not validate: %v", err)
	}
}
