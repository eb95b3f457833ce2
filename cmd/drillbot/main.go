// drillbot runs the DSA interview drill bot and its operator commands.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ashureev/dsa-drill/internal/config"
)

var configPath string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "drillbot",
	Short: "Telegram DSA interview drill bot",
	Long: `drillbot hands out LLM-generated coding problems over Telegram,
grades submitted solutions and tracks XP and rank per user.

Run 'drillbot serve' to start the bot.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (env vars override it)")

	agentCmd.AddCommand(agentShowCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rerankCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(healthcheckCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads .env, the config file and the environment, and installs
// the JSON logger as the slog default.
func loadConfig() (*config.Config, *slog.Logger, error) {
	envErr := godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if envErr != nil {
		logger.Debug("No .env file found, using environment variables")
	}
	return cfg, logger, nil
}

func parseAgentID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid agent id %q: %w", arg, err)
	}
	return id, nil
}
