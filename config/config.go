package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"riskgate/internal/policy"
)

// Config is the root configuration.
type Config struct {
	RiskGate RiskGateConfig `yaml:"riskgate"`
}

// RiskGateConfig is the project configuration.
type RiskGateConfig struct {
	Input    InputConfig    `yaml:"input"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Policy   PolicyConfig   `yaml:"policy"`
	Severity SeverityConfig `yaml:"severity"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Notify   NotifyConfig   `yaml:"notify"`
	Behavior BehaviorConfig `yaml:"behavior"`
	Output   OutputConfig   `yaml:"output"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// InputConfig controls the input reader.
type InputConfig struct {
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig controls Redis input.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Key          string        `yaml:"key"`
	BlockTimeout time.Duration `yaml:"block_timeout"`
}

// PipelineConfig controls pipeline behavior.
type PipelineConfig struct {
	Workers       int           `yaml:"workers"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// PolicyConfig controls access decision thresholds.
type PolicyConfig struct {
	BlockThreshold    float64 `yaml:"block_threshold"`
	RestrictThreshold float64 `yaml:"restrict_threshold"`
}

// SeverityConfig controls severity band lower bounds.
type SeverityConfig struct {
	Critical float64 `yaml:"critical"`
	High     float64 `yaml:"high"`
	Medium   float64 `yaml:"medium"`
}

// AlertsConfig controls alert gating.
type AlertsConfig struct {
	Threshold float64          `yaml:"threshold"`
	Cooldown  time.Duration    `yaml:"cooldown"`
	Store     string           `yaml:"store"` // memory|redis
	Redis     AlertsRedisStore `yaml:"redis"`
}

// AlertsRedisStore controls the shared cooldown store.
type AlertsRedisStore struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// NotifyConfig controls notification channels.
type NotifyConfig struct {
	AutoNotify      bool          `yaml:"auto_notify"`
	Timeout         time.Duration `yaml:"timeout"`
	SummaryInterval time.Duration `yaml:"summary_interval"`
	Email           EmailConfig   `yaml:"email"`
	Chat            ChatConfig    `yaml:"chat"`
}

// EmailConfig controls the SMTP channel.
type EmailConfig struct {
	Enabled           bool         `yaml:"enabled"`
	Host              string       `yaml:"host"`
	Port              int          `yaml:"port"`
	Username          string       `yaml:"username"`
	Password          string       `yaml:"password"`
	From              string       `yaml:"from"`
	Recipients        []string     `yaml:"recipients"`
	Users             []UserConfig `yaml:"users"`
	CriticalThreshold float64      `yaml:"critical_threshold"`
}

// UserConfig is one per-user notification preference.
type UserConfig struct {
	Email string `yaml:"email"`
	Mode  string `yaml:"mode"` // all|critical
}

// ChatConfig controls the webhook channel.
type ChatConfig struct {
	Enabled    bool              `yaml:"enabled"`
	WebhookURL string            `yaml:"webhook_url"`
	Headers    map[string]string `yaml:"headers"`
}

// BehaviorConfig controls behavior analysis.
type BehaviorConfig struct {
	Enabled             bool                 `yaml:"enabled"`
	NewIPBaseline       int                  `yaml:"new_ip_baseline"`
	NewResourceBaseline int                  `yaml:"new_resource_baseline"`
	Output              BehaviorOutputConfig `yaml:"output"`
}

// BehaviorOutputConfig controls the anomaly sink.
type BehaviorOutputConfig struct {
	Path string `yaml:"path"`
}

// OutputConfig controls the decision sink.
type OutputConfig struct {
	Mode       string                 `yaml:"mode"` // file|http|clickhouse
	File       FileOutputConfig       `yaml:"file"`
	HTTP       HTTPOutputConfig       `yaml:"http"`
	ClickHouse ClickHouseOutputConfig `yaml:"clickhouse"`
}

// FileOutputConfig config for local JSON output.
type FileOutputConfig struct {
	Path string `yaml:"path"`
}

// HTTPOutputConfig config for remote output.
type HTTPOutputConfig struct {
	URL     string            `yaml:"url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// ClickHouseOutputConfig config for ClickHouse HTTP JSONEachRow writes.
type ClickHouseOutputConfig struct {
	URL      string            `yaml:"url"`
	Database string            `yaml:"database"`
	Table    string            `yaml:"table"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	Timeout  time.Duration     `yaml:"timeout"`
	Headers  map[string]string `yaml:"headers"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// DefaultConfig returns the configuration used when a field is absent from
// the YAML file. Unmarshal overlays the file on top of these, so bool
// defaults like auto_notify survive.
func DefaultConfig() *Config {
	return &Config{
		RiskGate: RiskGateConfig{
			Input: InputConfig{
				Redis: RedisConfig{
					Addr:         "127.0.0.1:6379",
					Key:          "scored_events",
					BlockTimeout: 5 * time.Second,
				},
			},
			Pipeline: PipelineConfig{
				Workers:       4,
				BatchSize:     100,
				FlushInterval: 2 * time.Second,
			},
			Policy: PolicyConfig{
				BlockThreshold:    70,
				RestrictThreshold: 30,
			},
			Severity: SeverityConfig{
				Critical: 80,
				High:     60,
				Medium:   30,
			},
			Alerts: AlertsConfig{
				Threshold: 70,
				Cooldown:  60 * time.Second,
				Store:     "memory",
				Redis: AlertsRedisStore{
					Addr:      "127.0.0.1:6379",
					KeyPrefix: "riskgate:cooldown",
				},
			},
			Notify: NotifyConfig{
				AutoNotify: true,
				Timeout:    10 * time.Second,
				Email: EmailConfig{
					Host:              "smtp.gmail.com",
					Port:              587,
					CriticalThreshold: 80,
				},
			},
			Behavior: BehaviorConfig{
				Enabled:             true,
				NewIPBaseline:       10,
				NewResourceBaseline: 20,
				Output: BehaviorOutputConfig{
					Path: "output/anomalies.jsonl",
				},
			},
			Output: OutputConfig{
				Mode: "file",
				File: FileOutputConfig{
					Path: "output/decisions.jsonl",
				},
			},
			Metrics: MetricsConfig{
				Enabled: false,
				Addr:    ":9109",
			},
			Logging: LoggingConfig{
				Enabled: true,
				Level:   "info",
				Console: true,
			},
		},
	}
}

// LoadConfig reads and parses a YAML config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv fills credentials from the environment when the file leaves
// them empty. Secrets stay out of the YAML this way.
func (c *Config) applyEnv() {
	email := &c.RiskGate.Notify.Email
	if email.Host == "" || email.Host == "smtp.gmail.com" {
		if v := os.Getenv("SMTP_SERVER"); v != "" {
			email.Host = v
		}
	}
	if email.Username == "" {
		email.Username = os.Getenv("SENDER_EMAIL")
	}
	if email.Password == "" {
		email.Password = os.Getenv("SENDER_PASSWORD")
	}

	chat := &c.RiskGate.Notify.Chat
	if chat.WebhookURL == "" {
		chat.WebhookURL = os.Getenv("CHAT_WEBHOOK_URL")
	}
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	rg := &c.RiskGate

	thresholds := policy.Thresholds{Block: rg.Policy.BlockThreshold, Restrict: rg.Policy.RestrictThreshold}
	if err := thresholds.Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	bands := policy.SeverityBands{Critical: rg.Severity.Critical, High: rg.Severity.High, Medium: rg.Severity.Medium}
	if err := bands.Validate(); err != nil {
		return fmt.Errorf("severity: %w", err)
	}

	switch rg.Alerts.Store {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("alerts: unknown store %q", rg.Alerts.Store)
	}

	switch rg.Output.Mode {
	case "", "file", "http", "clickhouse":
	default:
		return fmt.Errorf("output: unknown mode %q", rg.Output.Mode)
	}
	if rg.Output.Mode == "http" && rg.Output.HTTP.URL == "" {
		return fmt.Errorf("output: http mode requires a url")
	}
	if rg.Output.Mode == "clickhouse" && rg.Output.ClickHouse.URL == "" {
		return fmt.Errorf("output: clickhouse mode requires a url")
	}

	if rg.Notify.Email.Enabled {
		if rg.Notify.Email.Username == "" || rg.Notify.Email.Password == "" {
			return fmt.Errorf("notify: email enabled without credentials")
		}
	}
	for _, user := range rg.Notify.Email.Users {
		switch user.Mode {
		case "", "all", "critical":
		default:
			return fmt.Errorf("notify: user %s has unknown mode %q", user.Email, user.Mode)
		}
	}
	if rg.Notify.Chat.Enabled && rg.Notify.Chat.WebhookURL == "" {
		return fmt.Errorf("notify: chat enabled without a webhook url")
	}

	return nil
}
