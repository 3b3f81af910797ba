package store

import (
	"testing"
	"time"
)

func TestConfigKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
		want Kind
	}{
		{"nothing configured", Config{}, KindSQLite},
		{"sqlite path only", Config{SQLitePath: "/tmp/bot.sqlite"}, KindSQLite},
		{"postgres only", Config{DatabaseURL: "postgres://localhost/bot"}, KindPostgres},
		{"mongo only", Config{MongoURI: "mongodb://localhost:27017"}, KindMongo},
		{
			"mongo wins over postgres",
			Config{MongoURI: "mongodb://localhost:27017", DatabaseURL: "postgres://localhost/bot"},
			KindMongo,
		},
		{
			"postgres wins over sqlite path",
			Config{DatabaseURL: "postgres://localhost/bot", SQLitePath: "/tmp/bot.sqlite"},
			KindPostgres,
		},
		{"blank values are ignored", Config{MongoURI: "  ", DatabaseURL: "\t"}, KindSQLite},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.cfg.Kind(); got != tc.want {
				t.Fatalf("Kind() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	if got := cfg.connectTimeout(); got != 10*time.Second {
		t.Fatalf("connectTimeout() = %v, want 10s", got)
	}
	if got := cfg.mongoDatabase(); got != "tgbot" {
		t.Fatalf("mongoDatabase() = %q, want tgbot", got)
	}

	cfg = Config{ConnectTimeout: time.Second, MongoDatabase: " assistant "}
	if got := cfg.connectTimeout(); got != time.Second {
		t.Fatalf("connectTimeout() = %v, want 1s", got)
	}
	if got := cfg.mongoDatabase(); got != "assistant" {
		t.Fatalf("mongoDatabase() = %q, want assistant", got)
	}
}
