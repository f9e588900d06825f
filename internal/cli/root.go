package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/claimcheck/internal/logging"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const version = "claimcheck v0.1.0"

var (
	cfgFile     string
	verbose     bool
	logLevel    string
	metricsAddr string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "claimcheck",
	Short: "claimcheck - claim verification and presentation materials planning",
	Long: `claimcheck verifies factual claims before they go into client material.

A claim is split into independently verifiable sub-claims. Evidence for each
sub-claim is gathered concurrently by a tool-using agent (Wikipedia, web pages,
news, a RAG service) and condensed into a verdict: TRUE, FALSE or
CANNOT_BE_DETERMINED.

Sub-claims approved for use are turned into presentation material
recommendations, scheduled greedily within a time budget and handed to a
content generation service.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.claimcheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	registerDefaults(viper.GetViper(), model.DefaultConfig())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.claimcheck")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// CLAIMCHECK_WORKFLOW_TIME_BUDGET_MINUTES overrides workflow.time_budget_minutes
	viper.SetEnvPrefix("CLAIMCHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// registerDefaults makes every config key known to v so env overrides apply
func registerDefaults(v *viper.Viper, cfg *model.Config) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return
	}
	var tree map[string]any
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&tree); err != nil {
		return
	}
	setDefaults(v, "", tree)

	// omitempty keys
	for _, key := range []string{
		"llm.api_key", "llm.base_url", "agent_llm.api_key", "agent_llm.base_url",
		"tools.rag_url", "tools.news_api_key", "store.dsn",
		"handoff.url", "handoff.redis_addr",
	} {
		if !v.IsSet(key) {
			v.SetDefault(key, "")
		}
	}
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// loadConfig merges defaults, config file, environment and flags
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyEnvKeys(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvKeys fills credentials from the providers' conventional variables
func applyEnvKeys(cfg *model.Config) {
	for _, l := range []*model.LLMConfig{&cfg.LLM, &cfg.AgentLLM} {
		switch strings.ToLower(l.Provider) {
		case "openai":
			if l.APIKey == "" {
				l.APIKey = os.Getenv("OPENAI_API_KEY")
			}
		case "anthropic", "claude":
			if l.APIKey == "" {
				l.APIKey = os.Getenv("ANTHROPIC_API_KEY")
			}
		case "ollama":
			if l.BaseURL == "" {
				l.BaseURL = os.Getenv("OLLAMA_BASE_URL")
			}
		}
	}
	if cfg.Tools.NewsAPIKey == "" {
		cfg.Tools.NewsAPIKey = os.Getenv("NEWSAPI_KEY")
	}
}

// setup loads the config, builds the logger and starts the metrics server
func setup(ctx context.Context) (*model.Config, *zap.Logger, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return nil, nil, err
	}

	if metricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, metricsAddr, logger); err != nil {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}
	return cfg, logger, nil
}
