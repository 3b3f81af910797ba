package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kallistraw/tgbot/bot"
	"github.com/kallistraw/tgbot/internal/logutil"
	"github.com/kallistraw/tgbot/store"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(flagOrViperString(cmd, "bot-token", "bot.token"))
			if token == "" {
				return fmt.Errorf("missing bot.token (set via --bot-token or BOT_TOKEN)")
			}
			ownerID := flagOrViperInt64(cmd, "owner-id", "bot.owner_id")
			if ownerID == 0 {
				return fmt.Errorf("missing bot.owner_id (set via --owner-id or OWNER_ID)")
			}

			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			storeCfg := store.Config{
				MongoURI:      viper.GetString("store.mongo_uri"),
				DatabaseURL:   viper.GetString("store.database_url"),
				SQLitePath:    viper.GetString("store.sqlite_path"),
				MongoDatabase: viper.GetString("store.mongo_database"),
			}
			if d := viper.GetDuration("store.connect_timeout"); d > 0 {
				storeCfg.ConnectTimeout = d
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := store.Open(ctx, storeCfg, logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					logger.Warn("store_close_error", "error", err.Error())
				}
			}()

			botCfg := bot.Config{
				Token:       token,
				OwnerID:     ownerID,
				LogChannel:  flagOrViperInt64(cmd, "log-channel", "bot.log_channel"),
				Prefixes:    splitPrefixes(flagOrViperString(cmd, "prefixes", "bot.prefixes")),
				MaxWarnings: int(flagOrViperInt64(cmd, "max-warning", "bot.max_warning")),
			}

			b, err := bot.New(botCfg, db, logger)
			if err != nil {
				return err
			}
			return b.Start(ctx)
		},
	}

	cmd.Flags().String("bot-token", "", "Telegram bot token.")
	cmd.Flags().Int64("owner-id", 0, "Telegram user id of the bot owner.")
	cmd.Flags().Int64("log-channel", 0, "Chat id that receives forwarded messages and error reports.")
	cmd.Flags().String("prefixes", "", "Command prefixes separated by space (\"/\" is always accepted).")
	cmd.Flags().Int64("max-warning", 3, "Spam warnings before a user is blocked.")
	cmd.Flags().String("mongo-uri", "", "MongoDB connection URI (selects the MongoDB backend).")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL (selects the PostgreSQL backend).")
	cmd.Flags().String("sqlite-path", "", "Path of the embedded SQLite database file.")
	cmd.Flags().Duration("store-connect-timeout", 10*time.Second, "Storage backend connection timeout.")

	_ = viper.BindPFlag("store.mongo_uri", cmd.Flags().Lookup("mongo-uri"))
	_ = viper.BindPFlag("store.database_url", cmd.Flags().Lookup("database-url"))
	_ = viper.BindPFlag("store.sqlite_path", cmd.Flags().Lookup("sqlite-path"))
	_ = viper.BindPFlag("store.connect_timeout", cmd.Flags().Lookup("store-connect-timeout"))

	return cmd
}

func flagOrViperString(cmd *cobra.Command, flag, key string) string {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetString(flag)
		return v
	}
	if key != "" && viper.IsSet(key) {
		return viper.GetString(key)
	}
	v, _ := cmd.Flags().GetString(flag)
	return v
}

func flagOrViperInt64(cmd *cobra.Command, flag, key string) int64 {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetInt64(flag)
		return v
	}
	if key != "" && viper.IsSet(key) {
		return viper.GetInt64(key)
	}
	v, _ := cmd.Flags().GetInt64(flag)
	return v
}

// splitPrefixes accepts "/ ! ?" and "/,!,?" forms.
func splitPrefixes(raw string) []string {
	raw = strings.ReplaceAll(raw, ",", " ")
	return strings.Fields(raw)
}
