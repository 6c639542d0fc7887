package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/taskforge/taskforge/internal/config"
	"github.com/taskforge/taskforge/internal/engine"
	"github.com/taskforge/taskforge/internal/telemetry"
	"github.com/taskforge/taskforge/llm"
	"github.com/taskforge/taskforge/store"
	"github.com/taskforge/taskforge/types"
)

var (
	// cfgFile is the path to the configuration file.
	cfgFile string
	// verbose enables verbose output.
	verbose bool
	// version is the application version.
	version = "0.1.0"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "taskforge",
	Short: "TaskForge generates and reconciles project tasks with AI assistance.",
	Long: `TaskForge turns project phase content into an actionable task plan:
it parses timelines, distributes dates, generates tasks through a
configurable LLM provider, detects duplicates, and merges results into
your existing task set without clobbering manual edits.`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(InitConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./taskforge.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().String("data", "", "project data file (default is ./project.json)")
	rootCmd.PersistentFlags().String("format", "", "data file format: json, yaml or toml")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("store.dataFile", rootCmd.PersistentFlags().Lookup("data"))
	_ = viper.BindPFlag("store.dataFileFormat", rootCmd.PersistentFlags().Lookup("format"))
}

// InitConfig reads the config file and environment variables.
func InitConfig() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(".taskforge")
		viper.SetConfigName(config.ConfigFileName)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// getStore opens the configured project store.
func getStore() (store.ProjectStore, error) {
	var s store.ProjectStore
	cfg := map[string]string{}
	if viper.GetString("store.backend") == "sqlite" {
		s = store.NewSQLiteProjectStore()
		cfg["dsn"] = viper.GetString("store.dsn")
	} else {
		s = store.NewFileProjectStore()
		cfg["dataFile"] = viper.GetString("store.dataFile")
		cfg["dataFileFormat"] = viper.GetString("store.dataFileFormat")
	}
	if err := s.Initialize(cfg); err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}
	return s, nil
}

// newEngine wires provider, options and telemetry from configuration.
func newEngine(ctx context.Context) (*engine.Engine, error) {
	llmCfg, err := config.LoadLLMConfig()
	if err != nil {
		return nil, err
	}
	provider, err := llm.NewProvider(ctx, llmCfg)
	if err != nil {
		return nil, err
	}
	tel := telemetry.NewClient(os.Getenv("TASKFORGE_POSTHOG_KEY"), version)
	return engine.New(provider,
		engine.WithGenerateOptions(types.GenerateOptions{Model: llmCfg.Model}),
		engine.WithTelemetry(tel),
	), nil
}

// requestFromSnapshot builds an engine request from stored state.
func requestFromSnapshot(snap *store.Snapshot) engine.Request {
	return engine.Request{
		ProjectName:   snap.ProjectName,
		Phases:        snap.Phases,
		ExistingTasks: snap.Tasks,
		Roster:        snap.Roster,
	}
}
