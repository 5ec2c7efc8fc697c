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

	"github.com/BTreeMap/SurveyPipe/internal/api"
	"github.com/BTreeMap/SurveyPipe/internal/classify"
	"github.com/BTreeMap/SurveyPipe/internal/flow"
	"github.com/BTreeMap/SurveyPipe/internal/genai"
	"github.com/BTreeMap/SurveyPipe/internal/lockfile"
	"github.com/BTreeMap/SurveyPipe/internal/schema"
	"github.com/BTreeMap/SurveyPipe/internal/store"
	"github.com/BTreeMap/SurveyPipe/internal/terminal"
	"github.com/BTreeMap/SurveyPipe/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for SurveyPipe state data
	DefaultStateDir = "/var/lib/surveypipe"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "surveypipe.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := run(flags); err != nil {
		slog.Error("SurveyPipe failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("SurveyPipe exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL    string
	StateDir       string
	OpenAIKey      string
	OpenAIModel    string
	ClassifierMode string
	GoalsFile      string
	APIAddr        string
}

// Flags holds command line flag values
type Flags struct {
	serve          *bool
	goal           *string
	stateDir       *string
	dbDSN          *string
	openaiKey      *string
	openaiModel    *string
	classifierMode *string
	goalsFile      *string
	apiAddr        *string
}

// initializeLogger sets up structured logging; SURVEYPIPE_DEBUG=true enables debug output.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("SURVEYPIPE_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		StateDir:       os.Getenv("SURVEYPIPE_STATE_DIR"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    os.Getenv("OPENAI_MODEL"),
		ClassifierMode: util.GetEnv("CLASSIFIER_MODE", string(classify.ModeAuto)),
		GoalsFile:      os.Getenv("SURVEYPIPE_GOALS_FILE"),
		APIAddr:        os.Getenv("API_ADDR"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No SURVEYPIPE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// Without an explicit DSN, default to SQLite in the state directory.
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"SURVEYPIPE_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"CLASSIFIER_MODE", config.ClassifierMode,
		"SURVEYPIPE_GOALS_FILE", config.GoalsFile,
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		serve:          flag.Bool("serve", false, "run the HTTP API server instead of an interactive interview"),
		goal:           flag.String("goal", schema.GoalCCACouncilSurvey, "goal to run in interactive mode"),
		stateDir:       flag.String("state-dir", config.StateDir, "state directory for SurveyPipe data (overrides $SURVEYPIPE_STATE_DIR)"),
		dbDSN:          flag.String("db-dsn", config.DatabaseURL, "database DSN, PostgreSQL URL or SQLite path (overrides $DATABASE_URL)"),
		openaiKey:      flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel:    flag.String("openai-model", config.OpenAIModel, "OpenAI model for classification (overrides $OPENAI_MODEL)"),
		classifierMode: flag.String("classifier-mode", config.ClassifierMode, "classifier mode: auto, keyword, or strict (overrides $CLASSIFIER_MODE)"),
		goalsFile:      flag.String("goals-file", config.GoalsFile, "YAML file with additional goal definitions (overrides $SURVEYPIPE_GOALS_FILE)"),
		apiAddr:        flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
	}

	flag.Parse()

	// Re-anchor a defaulted SQLite path when -state-dir overrides the environment.
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

func run(flags Flags) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *flags.goalsFile != "" {
		if err := schema.LoadAndRegisterGoals(*flags.goalsFile); err != nil {
			return err
		}
	}

	mode, err := classify.ParseMode(*flags.classifierMode)
	if err != nil {
		return err
	}

	// The semantic tier is optional in auto mode; strict mode requires it.
	var client genai.ClientInterface
	if *flags.openaiKey != "" {
		genaiOpts := []genai.Option{genai.WithAPIKey(*flags.openaiKey)}
		if *flags.openaiModel != "" {
			genaiOpts = append(genaiOpts, genai.WithModel(*flags.openaiModel))
		}
		genaiClient, err := genai.NewClient(genaiOpts...)
		if err != nil {
			return err
		}
		client = genaiClient
	}

	chain, err := classify.NewChain(mode, client)
	if err != nil {
		return err
	}
	scale := classify.NewScaleClassifier(client)

	storeOpts := buildStoreOptions(flags)

	// A file-backed store gets an exclusive lock on its state directory.
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		lock, err := lockfile.Acquire(filepath.Dir(*flags.dbDSN))
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	st, err := store.NewStore(storeOpts...)
	if err != nil {
		return err
	}
	defer st.Close()

	manager := flow.NewSessionManager(st)

	if *flags.serve {
		server := api.NewServer(manager, chain, scale, buildAPIOptions(flags)...)
		slog.Info("Bootstrapping SurveyPipe API server", "addr", *flags.apiAddr)
		return server.Run(ctx)
	}

	engine, err := flow.EngineForGoal(*flags.goal, chain, scale)
	if err != nil {
		return err
	}
	slog.Info("Starting interactive interview", "goal", *flags.goal)
	term := terminal.NewClient(engine, manager, os.Stdin, os.Stdout)
	return term.Run(ctx)
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}
