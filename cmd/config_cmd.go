package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/taskforge/taskforge/internal/config"
	"github.com/taskforge/taskforge/llm"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and modify configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective LLM configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadLLMConfig()
		if err != nil {
			return err
		}
		cmd.Println("provider:", cfg.Provider)
		cmd.Println("model:   ", cfg.Model)
		if cfg.BaseURL != "" {
			cmd.Println("baseURL: ", cfg.BaseURL)
		}
		key := "not set"
		if cfg.APIKey != "" {
			key = "set"
		}
		cmd.Println("apiKey:  ", key)
		if file := viper.ConfigFileUsed(); file != "" {
			cmd.Println("source:  ", file)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a configuration value",
	Long: `Set writes a dotted-path key (e.g. llm.provider, llm.model,
store.backend) into the config file, creating it when missing.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if key == "llm.provider" {
			if _, err := llm.ValidateProvider(value); err != nil {
				return err
			}
		}

		path := cfgFile
		if path == "" {
			path = config.ConfigFileName + ".yml"
		}
		w := config.NewWriter(nil, path)
		if err := w.Set(key, value); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		cmd.Printf("Set %s in %s.\n", key, path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
