package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ordersuite/orderflow/internal/api"
	"github.com/ordersuite/orderflow/internal/bot"
	"github.com/ordersuite/orderflow/internal/config"
	"github.com/ordersuite/orderflow/internal/dispatch"
	"github.com/ordersuite/orderflow/internal/flow"
	"github.com/ordersuite/orderflow/internal/genai"
	"github.com/ordersuite/orderflow/internal/messaging"
	"github.com/ordersuite/orderflow/internal/store"
	"github.com/ordersuite/orderflow/internal/twilio"
	"github.com/ordersuite/orderflow/internal/whatsapp"
)

const (
	// DefaultStateDir is the default directory for orderflow state data.
	DefaultStateDir = "/var/lib/orderflow"
	// DefaultDBFileName is the default SQLite database filename.
	DefaultDBFileName = "orderflow.db"
	// DefaultWhatsAppDBFileName is the default whatsmeow session database.
	DefaultWhatsAppDBFileName = "whatsmeow.db"
)

func main() {
	initializeLogger()

	envCfg := loadEnvironmentConfig()
	flags := parseCommandLineFlags(envCfg)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	if err := run(flags); err != nil {
		slog.Error("orderflow failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("orderflow exited successfully")
}

// Config holds environment configuration.
type Config struct {
	DatabaseURL      string
	StateDir         string
	OpenAIKey        string
	APIAddr          string
	SimulationSecret string
	Gateway          string
	WhatsAppDSN      string
}

// Flags holds command line flag values.
type Flags struct {
	dbDSN     *string
	stateDir  *string
	openaiKey *string
	apiAddr   *string
	simSecret *string
	gateway   *string
	waDSN     *string
	qrOutput  *string
	numeric   *bool
}

func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		StateDir:         os.Getenv("ORDERFLOW_STATE_DIR"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		APIAddr:          os.Getenv("API_ADDR"),
		SimulationSecret: os.Getenv("SIMULATION_SECRET"),
		Gateway:          os.Getenv("MESSAGING_GATEWAY"),
		WhatsAppDSN:      os.Getenv("WHATSAPP_DB_DSN"),
	}
	if cfg.StateDir == "" {
		cfg.StateDir = DefaultStateDir
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = filepath.Join(cfg.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", cfg.DatabaseURL)
	}
	if cfg.WhatsAppDSN == "" {
		cfg.WhatsAppDSN = filepath.Join(cfg.StateDir, DefaultWhatsAppDBFileName)
	}
	if cfg.Gateway == "" {
		cfg.Gateway = "twilio"
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", cfg.DatabaseURL != "",
		"ORDERFLOW_STATE_DIR", cfg.StateDir,
		"OPENAI_API_KEY_SET", cfg.OpenAIKey != "",
		"API_ADDR", cfg.APIAddr,
		"SIMULATION_SECRET_SET", cfg.SimulationSecret != "",
		"MESSAGING_GATEWAY", cfg.Gateway)
	return cfg
}

func parseCommandLineFlags(cfg Config) Flags {
	flags := Flags{
		dbDSN:     flag.String("db-dsn", cfg.DatabaseURL, "database DSN (overrides $DATABASE_URL)"),
		stateDir:  flag.String("state-dir", cfg.StateDir, "state directory for orderflow data (overrides $ORDERFLOW_STATE_DIR)"),
		openaiKey: flag.String("openai-api-key", cfg.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:   flag.String("api-addr", cfg.APIAddr, "API server address (overrides $API_ADDR)"),
		simSecret: flag.String("simulation-secret", cfg.SimulationSecret, "shared secret enabling the simulation webhook (overrides $SIMULATION_SECRET)"),
		gateway:   flag.String("gateway", cfg.Gateway, "messaging gateway: twilio, whatsapp or mock (overrides $MESSAGING_GATEWAY)"),
		waDSN:     flag.String("whatsapp-db-dsn", cfg.WhatsAppDSN, "whatsmeow session database DSN (overrides $WHATSAPP_DB_DSN)"),
		qrOutput:  flag.String("qr-output", "", "path to write the WhatsApp login QR code"),
		numeric:   flag.Bool("numeric-code", false, "use numeric WhatsApp login code instead of QR code"),
	}
	flag.Parse()
	return flags
}

func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		dir := filepath.Dir(*flags.dbDSN)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func run(flags Flags) error {
	st, err := buildStore(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	msgSvc, waService, err := buildMessagingService(flags)
	if err != nil {
		return err
	}
	defer msgSvc.Stop()

	botCfg := config.Default()
	table := flow.NewTable(botCfg)
	if err := table.Validate(); err != nil {
		return err
	}

	var engineOpts []flow.EngineOption
	if *flags.openaiKey != "" {
		extractor, err := genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
		if err != nil {
			return err
		}
		engineOpts = append(engineOpts, flow.WithExtractor(extractor))
		slog.Info("AI-assisted validation enabled")
	} else {
		slog.Info("No OpenAI API key set, using schema validation only")
	}

	engine := flow.NewEngine(botCfg, table, engineOpts...)
	dispatcher := dispatch.NewDispatcher(botCfg, st, msgSvc)
	b := bot.New(botCfg, engine, st, dispatcher)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// With a direct WhatsApp connection, inbound messages come from the
	// socket rather than a webhook.
	if waService != nil {
		go func() {
			for msg := range waService.Inbound() {
				if _, err := b.HandleMessage(ctx, msg); err != nil {
					slog.Error("main: failed to handle WhatsApp message", "from", msg.From, "error", err)
				}
			}
		}()
	}

	apiOpts := []api.Option{}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.simSecret != "" {
		apiOpts = append(apiOpts, api.WithSimulationSecret(*flags.simSecret))
	}
	return api.NewServer(b, apiOpts...).Run(ctx)
}

func buildStore(flags Flags) (store.Store, error) {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Debug("Configuring SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

func buildMessagingService(flags Flags) (messaging.Service, *messaging.WhatsAppService, error) {
	switch *flags.gateway {
	case "twilio":
		client, err := twilio.NewClient()
		if err != nil {
			return nil, nil, err
		}
		return messaging.NewTwilioService(client), nil, nil
	case "whatsapp":
		waOpts := []whatsapp.Option{whatsapp.WithDBDSN(*flags.waDSN)}
		if *flags.qrOutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
		}
		if *flags.numeric {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			return nil, nil, err
		}
		svc := messaging.NewWhatsAppService(client)
		return svc, svc, nil
	case "mock":
		slog.Warn("Using mock messaging gateway, outbound messages are not delivered")
		return messaging.NewMockService(), nil, nil
	}
	slog.Warn("Unknown messaging gateway, falling back to mock", "gateway", *flags.gateway)
	return messaging.NewMockService(), nil, nil
}
