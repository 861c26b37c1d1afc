package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"riskgate/config"
	"riskgate/internal/alertgate"
	"riskgate/internal/batch"
	"riskgate/internal/behavior"
	"riskgate/internal/engine"
	inputredis "riskgate/internal/input/redis"
	"riskgate/internal/logger"
	"riskgate/internal/metrics"
	"riskgate/internal/notify"
	"riskgate/internal/output/anomalyjson"
	"riskgate/internal/output/decisionclickhouse"
	"riskgate/internal/output/decisionhttp"
	"riskgate/internal/output/decisionjson"
	"riskgate/internal/pipeline"
	"riskgate/internal/policy"
)

func findConfigFile(configArg string) string {
	if configArg != "" {
		path := configArg
		if _, err := os.Stat(path); err == nil {
			return path
		}
		log.Printf("Warning: config file not found at %s, trying default locations", path)
	}

	if _, err := os.Stat("riskgate.yml"); err == nil {
		return "riskgate.yml"
	}

	exePath, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exePath)
		path := filepath.Join(exeDir, "riskgate.yml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "riskgate.yml"
}

func buildChannels(cfg config.NotifyConfig) []notify.Channel {
	var channels []notify.Channel

	if cfg.Email.Enabled {
		users := make([]notify.UserPref, 0, len(cfg.Email.Users))
		for _, user := range cfg.Email.Users {
			users = append(users, notify.UserPref{Email: user.Email, Mode: user.Mode})
		}
		channels = append(channels, notify.NewEmailChannel(notify.EmailConfig{
			Host:              cfg.Email.Host,
			Port:              cfg.Email.Port,
			Username:          cfg.Email.Username,
			Password:          cfg.Email.Password,
			From:              cfg.Email.From,
			Recipients:        cfg.Email.Recipients,
			Users:             users,
			CriticalThreshold: cfg.Email.CriticalThreshold,
		}))
	}
	if cfg.Chat.Enabled {
		channels = append(channels, notify.NewChatChannel(notify.ChatConfig{
			WebhookURL: cfg.Chat.WebhookURL,
			Headers:    cfg.Chat.Headers,
		}))
	}

	return channels
}

func runDaemon(args []string) {
	configArg := ""
	if len(args) > 0 {
		configArg = args[0]
	}

	configPath := findConfigFile(configArg)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	rg := cfg.RiskGate

	if err := logger.Init(rg.Logging.Enabled, rg.Logging.Level, rg.Logging.File, rg.Logging.Console); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Infof("RiskGate starting")
	logger.Infof("Config loaded from: %s", configPath)

	if rg.Metrics.Enabled {
		go func() {
			logger.Infof("Metrics endpoint listening on %s", rg.Metrics.Addr)
			if err := metrics.Serve(rg.Metrics.Addr); err != nil {
				logger.Errorf("Metrics endpoint failed: %v", err)
			}
		}()
	}

	consumer, err := inputredis.NewConsumer(inputredis.Config{
		Addr:         rg.Input.Redis.Addr,
		Password:     rg.Input.Redis.Password,
		DB:           rg.Input.Redis.DB,
		Key:          rg.Input.Redis.Key,
		BlockTimeout: rg.Input.Redis.BlockTimeout,
	})
	if err != nil {
		logger.Errorf("Failed to create Redis consumer: %v", err)
		log.Fatalf("Failed to create Redis consumer: %v", err)
	}

	var store alertgate.CooldownStore
	switch rg.Alerts.Store {
	case "redis":
		s, err := alertgate.NewRedisStore(alertgate.RedisConfig{
			Addr:      rg.Alerts.Redis.Addr,
			Password:  rg.Alerts.Redis.Password,
			DB:        rg.Alerts.Redis.DB,
			KeyPrefix: rg.Alerts.Redis.KeyPrefix,
		})
		if err != nil {
			logger.Errorf("Failed to create Redis cooldown store: %v", err)
			log.Fatalf("Failed to create Redis cooldown store: %v", err)
		}
		store = s
		logger.Infof("Cooldown store: redis (%s)", rg.Alerts.Redis.Addr)
	default:
		store = alertgate.NewMemoryStore()
		logger.Infof("Cooldown store: memory")
	}

	gate := alertgate.NewGate(alertgate.Config{
		AlertThreshold: rg.Alerts.Threshold,
		Cooldown:       rg.Alerts.Cooldown,
	}, store)

	channels := buildChannels(rg.Notify)
	router := notify.NewRouter(rg.Notify.Timeout, channels...)
	logger.Infof("Notification channels: %v", router.Channels())

	eng := engine.New(engine.Config{
		Thresholds: policy.Thresholds{Block: rg.Policy.BlockThreshold, Restrict: rg.Policy.RestrictThreshold},
		Bands:      policy.SeverityBands{Critical: rg.Severity.Critical, High: rg.Severity.High, Medium: rg.Severity.Medium},
		AutoNotify: rg.Notify.AutoNotify,
	}, gate, router)

	var analyzer *behavior.Analyzer
	var anomalyWriter pipeline.AnomalyWriter
	if rg.Behavior.Enabled {
		analyzer = behavior.NewAnalyzer(behavior.Config{
			NewIPBaseline:       rg.Behavior.NewIPBaseline,
			NewResourceBaseline: rg.Behavior.NewResourceBaseline,
		})
		if rg.Behavior.Output.Path != "" {
			w, err := anomalyjson.NewWriter(rg.Behavior.Output.Path)
			if err != nil {
				logger.Errorf("Failed to create anomaly writer: %v", err)
				log.Fatalf("Failed to create anomaly writer: %v", err)
			}
			anomalyWriter = w
		}
	}

	var writer pipeline.DecisionWriter
	switch rg.Output.Mode {
	case "", "file":
		w, err := decisionjson.NewWriter(rg.Output.File.Path)
		if err != nil {
			logger.Errorf("Failed to create decision file writer: %v", err)
			log.Fatalf("Failed to create decision file writer: %v", err)
		}
		writer = w
		logger.Infof("Output mode: file (%s)", rg.Output.File.Path)
	case "http":
		w, err := decisionhttp.NewWriter(decisionhttp.Config{
			URL:     rg.Output.HTTP.URL,
			Timeout: rg.Output.HTTP.Timeout,
			Headers: rg.Output.HTTP.Headers,
		})
		if err != nil {
			logger.Errorf("Failed to create decision HTTP writer: %v", err)
			log.Fatalf("Failed to create decision HTTP writer: %v", err)
		}
		writer = w
		logger.Infof("Output mode: http (%s)", rg.Output.HTTP.URL)
	case "clickhouse":
		w, err := decisionclickhouse.NewWriter(decisionclickhouse.Config{
			URL:      rg.Output.ClickHouse.URL,
			Database: rg.Output.ClickHouse.Database,
			Table:    rg.Output.ClickHouse.Table,
			Username: rg.Output.ClickHouse.Username,
			Password: rg.Output.ClickHouse.Password,
			Timeout:  rg.Output.ClickHouse.Timeout,
			Headers:  rg.Output.ClickHouse.Headers,
		})
		if err != nil {
			logger.Errorf("Failed to create decision ClickHouse writer: %v", err)
			log.Fatalf("Failed to create decision ClickHouse writer: %v", err)
		}
		writer = w
		logger.Infof("Output mode: clickhouse (%s/%s.%s)", rg.Output.ClickHouse.URL, rg.Output.ClickHouse.Database, rg.Output.ClickHouse.Table)
	default:
		log.Fatalf("Unknown output mode: %s", rg.Output.Mode)
	}

	pipe := pipeline.NewDecisionPipeline(
		consumer,
		eng,
		analyzer,
		router,
		writer,
		anomalyWriter,
		rg.Pipeline.Workers,
		rg.Pipeline.BatchSize,
		rg.Pipeline.FlushInterval,
		rg.Notify.SummaryInterval,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := pipe.Run(ctx); err != nil && err != context.Canceled {
			logger.Errorf("Pipeline error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("Shutting down")
	cancel()
	time.Sleep(1 * time.Second)

	if err := pipe.Close(); err != nil {
		logger.Errorf("Error closing pipeline: %v", err)
	}
	if err := gate.Close(); err != nil {
		logger.Errorf("Error closing alert gate: %v", err)
	}

	logger.Infof("RiskGate stopped")
}

func runScore(args []string) int {
	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	input := fs.String("input", "input/events.jsonl", "Telemetry JSONL input path")
	output := fs.String("output", "output/decisions.jsonl", "Decision JSONL output path")
	blockThreshold := fs.Float64("block-threshold", 70, "Risk score at or above which access is blocked")
	restrictThreshold := fs.Float64("restrict-threshold", 30, "Risk score at or above which access is restricted")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	thresholds := policy.Thresholds{Block: *blockThreshold, Restrict: *restrictThreshold}
	if err := thresholds.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid thresholds: %v\n", err)
		return 2
	}

	events, err := batch.LoadEventsJSONL(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load events: %v\n", err)
		return 1
	}

	records := batch.Score(events, thresholds, policy.DefaultSeverityBands())
	if err := writeJSONLines(*output, records); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write decisions: %v\n", err)
		return 1
	}

	summary := batch.Summarize(records)
	fmt.Printf("scored events=%d blocked=%d restricted=%d allowed=%d avg_risk=%.2f output=%s\n",
		summary.TotalEvents, summary.Blocked, summary.Restricted, summary.Allowed, summary.AvgRisk, *output)
	return 0
}

func writeJSONLines[T any](path string, rows []T) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, item := range rows {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "run":
			runDaemon(os.Args[2:])
			return
		case "score":
			os.Exit(runScore(os.Args[2:]))
		default:
			// Backward-compatible mode: first arg is config path.
			runDaemon(os.Args[1:])
			return
		}
	}

	runDaemon(nil)
}
