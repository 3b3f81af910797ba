package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix = "TGBOT"
)

func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tgbot",
		Short: "Telegram assistant bot",
	}

	cobra.OnInitialize(initConfig)

	cmd.PersistentFlags().String("config", "", "Config file path (optional).")
	_ = viper.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))

	cmd.PersistentFlags().String("log-level", "", "Logging level: debug|info|warn|error (defaults to info; debug if --trace).")
	cmd.PersistentFlags().String("log-format", "text", "Logging format: text|json.")
	cmd.PersistentFlags().Bool("log-add-source", false, "Include source file:line in logs.")
	cmd.PersistentFlags().Bool("trace", false, "Print extra debug info to stderr.")

	_ = viper.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", cmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("logging.add_source", cmd.PersistentFlags().Lookup("log-add-source"))
	_ = viper.BindPFlag("trace", cmd.PersistentFlags().Lookup("trace"))

	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.add_source", false)
	viper.SetDefault("trace", false)

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	// The deployment environment exports these without the TGBOT_ prefix.
	_ = viper.BindEnv("bot.token", "TGBOT_BOT_TOKEN", "BOT_TOKEN")
	_ = viper.BindEnv("bot.owner_id", "TGBOT_OWNER_ID", "OWNER_ID")
	_ = viper.BindEnv("bot.log_channel", "TGBOT_LOG_CHANNEL", "LOG_CHANNEL")
	_ = viper.BindEnv("bot.prefixes", "TGBOT_PREFIXES", "PREFIXES")
	_ = viper.BindEnv("bot.max_warning", "TGBOT_MAX_WARNING", "MAX_WARNING")
	_ = viper.BindEnv("store.mongo_uri", "TGBOT_MONGO_URI", "MONGO_URI")
	_ = viper.BindEnv("store.database_url", "TGBOT_DATABASE_URL", "DATABASE_URL")
	_ = viper.BindEnv("store.sqlite_path", "TGBOT_SQLITE_PATH", "SQLITE_PATH")
	_ = viper.BindEnv("store.mongo_database", "TGBOT_MONGO_DATABASE", "MONGO_DATABASE")

	cfgFile := strings.TrimSpace(viper.GetString("config"))
	if cfgFile == "" {
		return
	}

	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
	}
}
