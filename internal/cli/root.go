package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "roomctl",
	Short: "Client for collaborative code review rooms",
	Long: `roomctl joins a code sharing room and keeps it in sync:
  - live code editing shared with every participant
  - point-in-time snapshots that can be browsed read-only
  - question and answer threads on each snapshot
  - understanding votes with live percentages

Local state (room passes, vote records, voter id) is kept in the
store selected by state.driver.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(viper.GetString("log.level"))
		if err != nil {
			return fmt.Errorf("invalid log.level: %w", err)
		}
		logrus.SetLevel(level)
		logrus.SetOutput(cmd.ErrOrStderr())
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/roomctl/config.toml)")
	rootCmd.PersistentFlags().String("server", "", "gateway base URL")
	rootCmd.PersistentFlags().String("user", "", "display name shown to other participants")
	_ = viper.BindPFlag("server.url", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("user.name", rootCmd.PersistentFlags().Lookup("user"))

	setDefaults()
}

func setDefaults() {
	viper.SetDefault("server.url", "http://localhost:8080")
	viper.SetDefault("server.timeout", "10s")
	viper.SetDefault("user.name", "")
	viper.SetDefault("state.driver", "sqlite")
	viper.SetDefault("state.path", defaultStatePath())
	viper.SetDefault("state.redis_addr", "localhost:6379")
	viper.SetDefault("state.redis_db", 0)
	viper.SetDefault("votes.poll_interval", "1s")
	viper.SetDefault("log.level", "warn")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "roomctl")
}

func defaultStatePath() string {
	return filepath.Join(configDir(), "state.db")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigType("toml")
		viper.SetConfigName("config")
	}

	// ROOMCTL_SERVER_URL 覆盖 server.url
	viper.SetEnvPrefix("roomctl")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logrus.WithField("path", viper.ConfigFileUsed()).Debug("Using config file")
	}
}
