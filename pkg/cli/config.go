package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/raven/pkg/adapter"
	"github.com/m-mizutani/raven/pkg/client"
	"github.com/m-mizutani/raven/pkg/model"
	"github.com/m-mizutani/raven/pkg/nlu"
	"github.com/m-mizutani/raven/pkg/policy"
	"github.com/m-mizutani/raven/pkg/repository"
	"github.com/m-mizutani/raven/pkg/service/search"
	"github.com/m-mizutani/raven/pkg/usecase/memory"
	"github.com/m-mizutani/raven/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	llmGemini = "gemini"
	llmClaude = "claude"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel  string
	logFormat string

	// Repository
	dbPath     string
	configPath string

	// Workflow tuning
	widenBelow   int64
	searchLimit  int64
	keywordLimit int64
	forgetPolicy string

	// Remote server
	apiURL    string
	secretKey string

	// Adapters
	llm             string
	geminiAPIKey    string
	geminiProject   string
	geminiLocation  string
	geminiModel     string
	anthropicAPIKey string
	anthropicModel  string
}

// fileConfig is the optional YAML configuration file
type fileConfig struct {
	Search       search.Policy `yaml:"search"`
	KeywordLimit int           `yaml:"keyword_limit"`
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".raven", "raven.db")
	}
	return filepath.Join(home, ".raven", "raven.db")
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("RAVEN_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       string(logging.FormatConsole),
			Sources:     cli.EnvVars("RAVEN_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
	}
}

// storeFlags returns flags for the local memory store and workflow tuning
func storeFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "db",
			Usage:       "Path to the SQLite database",
			Value:       defaultDBPath(),
			Sources:     cli.EnvVars("DB_PATH"),
			Destination: &cfg.dbPath,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to YAML config file for search tuning",
			Sources:     cli.EnvVars("RAVEN_CONFIG"),
			Destination: &cfg.configPath,
		},
		&cli.IntFlag{
			Name:        "widen-below",
			Usage:       "Run the OR search stage when the AND stage finds fewer hits than this",
			Sources:     cli.EnvVars("RAVEN_WIDEN_BELOW"),
			Destination: &cfg.widenBelow,
		},
		&cli.IntFlag{
			Name:        "search-limit",
			Usage:       "Maximum hits per search stage",
			Sources:     cli.EnvVars("RAVEN_SEARCH_LIMIT"),
			Destination: &cfg.searchLimit,
		},
		&cli.IntFlag{
			Name:        "keyword-limit",
			Usage:       "Maximum keywords taken from a tokenized question",
			Sources:     cli.EnvVars("RAVEN_KEYWORD_LIMIT"),
			Destination: &cfg.keywordLimit,
		},
		&cli.StringFlag{
			Name:        "forget-policy",
			Usage:       "Rego file or directory evaluated before deleting memories",
			Sources:     cli.EnvVars("RAVEN_FORGET_POLICY"),
			Destination: &cfg.forgetPolicy,
		},
	}
}

// remoteFlags returns flags for talking to a running server
func remoteFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "api-url",
			Usage:       "URL of a raven server. Local database is used when empty",
			Sources:     cli.EnvVars("RAVEN_API_URL"),
			Destination: &cfg.apiURL,
		},
		&cli.StringFlag{
			Name:        "secret-key",
			Usage:       "Shared secret for the raven server",
			Sources:     cli.EnvVars("RAVEN_SECRET_KEY"),
			Destination: &cfg.secretKey,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm",
			Usage:       "Language model backend (gemini, claude)",
			Value:       llmGemini,
			Sources:     cli.EnvVars("RAVEN_LLM"),
			Destination: &cfg.llm,
		},
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini on Vertex AI",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini on Vertex AI",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model ID",
			Value:       adapter.DefaultGeminiModel,
			Sources:     cli.EnvVars("MODEL_ID"),
			Destination: &cfg.geminiModel,
		},
		&cli.StringFlag{
			Name:        "anthropic-api-key",
			Usage:       "Anthropic API key",
			Sources:     cli.EnvVars("ANTHROPIC_API_KEY"),
			Destination: &cfg.anthropicAPIKey,
		},
		&cli.StringFlag{
			Name:        "anthropic-model",
			Usage:       "Claude model ID",
			Value:       adapter.DefaultClaudeModel,
			Sources:     cli.EnvVars("ANTHROPIC_MODEL"),
			Destination: &cfg.anthropicModel,
		},
	}
}

// localFlags returns every flag a command running workflows locally needs
func localFlags(cfg *config) []cli.Flag {
	flags := globalFlags(cfg)
	flags = append(flags, storeFlags(cfg)...)
	flags = append(flags, llmFlags(cfg)...)
	return flags
}

// logger builds the logger from flags, installs it as default and attaches it to ctx
func (cfg *config) logger(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr, logging.WithFormat(logging.Format(cfg.logFormat)))
	logging.SetDefault(logger)
	slog.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newRepository opens the local database
func (cfg *config) newRepository() (*repository.SQLite, error) {
	if cfg.dbPath == "" {
		return nil, goerr.New("db path is required")
	}

	repo, err := repository.New(cfg.dbPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open repository", goerr.V("path", cfg.dbPath))
	}
	return repo, nil
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	gemini, err := adapter.NewGemini(ctx, adapter.GeminiConfig{
		APIKey:   cfg.geminiAPIKey,
		Project:  cfg.geminiProject,
		Location: cfg.geminiLocation,
	}, adapter.WithGenerativeModel(cfg.geminiModel))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini client")
	}
	return gemini, nil
}

// newClaude creates a new Claude adapter instance
func (cfg *config) newClaude() (adapter.Claude, error) {
	if cfg.anthropicAPIKey == "" {
		return nil, goerr.New("anthropic-api-key is required")
	}
	return adapter.NewClaude(cfg.anthropicAPIKey, adapter.WithClaudeModel(cfg.anthropicModel)), nil
}

// newNLU creates the language model collaborator selected by --llm
func (cfg *config) newNLU(ctx context.Context) (nlu.Client, error) {
	switch cfg.llm {
	case llmGemini, "":
		gemini, err := cfg.newGemini(ctx)
		if err != nil {
			return nil, err
		}
		return nlu.NewGemini(gemini), nil

	case llmClaude:
		claude, err := cfg.newClaude()
		if err != nil {
			return nil, err
		}
		return nlu.NewClaude(claude), nil

	default:
		return nil, goerr.New("unsupported llm backend",
			goerr.V("llm", cfg.llm),
			goerr.V("supported", []string{llmGemini, llmClaude}))
	}
}

// loadFileConfig reads the YAML config file. No path means an empty config.
func (cfg *config) loadFileConfig() (*fileConfig, error) {
	var fc fileConfig
	if cfg.configPath == "" {
		return &fc, nil
	}

	data, err := os.ReadFile(cfg.configPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", cfg.configPath))
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, goerr.Wrap(err, "failed to parse config file", goerr.V("path", cfg.configPath))
	}
	return &fc, nil
}

// memoryOptions merges the config file with flags. Flags win.
func (cfg *config) memoryOptions(ctx context.Context) ([]memory.Option, error) {
	fc, err := cfg.loadFileConfig()
	if err != nil {
		return nil, err
	}

	p := fc.Search
	if cfg.widenBelow > 0 {
		p.WidenBelow = int(cfg.widenBelow)
	}
	if cfg.searchLimit > 0 {
		p.Limit = int(cfg.searchLimit)
	}

	keywordLimit := fc.KeywordLimit
	if cfg.keywordLimit > 0 {
		keywordLimit = int(cfg.keywordLimit)
	}

	gate, err := policy.Load(ctx, cfg.forgetPolicy)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load forget policy", goerr.V("path", cfg.forgetPolicy))
	}
	if gate != nil {
		logging.From(ctx).Debug("forget policy loaded", "files", gate.Files())
	}

	return []memory.Option{
		memory.WithSearchPolicy(mergePolicy(p)),
		memory.WithKeywordLimit(keywordLimit),
		memory.WithForgetPolicy(gate),
	}, nil
}

// mergePolicy fills unset fields with defaults
func mergePolicy(p search.Policy) search.Policy {
	d := search.DefaultPolicy()
	if p.WidenBelow > 0 {
		d.WidenBelow = p.WidenBelow
	}
	if p.Limit > 0 {
		d.Limit = p.Limit
	}
	return d
}

// newUseCase wires the local store with the language model. The returned
// closer releases the database.
func (cfg *config) newUseCase(ctx context.Context) (*memory.UseCase, func(), error) {
	repo, err := cfg.newRepository()
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := repo.Close(); err != nil {
			logging.From(ctx).Warn("failed to close repository", "error", err)
		}
	}

	collaborator, err := cfg.newNLU(ctx)
	if err != nil {
		closer()
		return nil, nil, err
	}

	opts, err := cfg.memoryOptions(ctx)
	if err != nil {
		closer()
		return nil, nil, err
	}

	return memory.New(repo, collaborator, opts...), closer, nil
}

// workflow is served either by the local use case or by a remote server
type workflow interface {
	Remember(ctx context.Context, text string) (*model.Memory, error)
	Recall(ctx context.Context, question string) (*memory.RecallResult, error)
	Forget(ctx context.Context, question string) (*memory.ForgetResult, error)
	List(ctx context.Context, offset, limit int) (*memory.ListResult, error)
}

// newWorkflow returns a remote client when --api-url is set, otherwise the local use case
func (cfg *config) newWorkflow(ctx context.Context) (workflow, func(), error) {
	if cfg.apiURL != "" {
		if cfg.secretKey == "" {
			return nil, nil, goerr.New("RAVEN_SECRET_KEY is not set", goerr.V("api_url", cfg.apiURL))
		}
		logging.From(ctx).Debug("using remote server", "url", cfg.apiURL)
		return client.New(cfg.apiURL, cfg.secretKey), func() {}, nil
	}

	uc, closer, err := cfg.newUseCase(ctx)
	if err != nil {
		return nil, nil, err
	}
	return uc, closer, nil
}
