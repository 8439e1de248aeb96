package main

import "time"

type Config struct {
	Host string `env:"HOST,default=localhost"`
	Port int    `env:"PORT,default=8080"`

	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	SearchIndexDir string `env:"SEARCH_INDEX_DIR"`

	JWTSecret string `env:"JWT_SECRET,required=true"`
	JWTIssuer string `env:"JWT_ISSUER,default=chat-gateway"`

	// Rooms is the comma separated room catalog. JoinAnyRoom disables
	// catalog enforcement and admits sessions to any room name.
	Rooms       string `env:"ROOMS,default=general"`
	JoinAnyRoom bool   `env:"JOIN_ANY_ROOM,default=false"`

	HistoryDepth int `env:"HISTORY_DEPTH,default=50"`

	ModerationWordlist        string `env:"MODERATION_WORDLIST"`
	ModerationCharReplacement rune   `env:"MODERATION_CHARACTER_REPLACEMENT,default=42"`

	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=5s"`
	GCInterval        time.Duration `env:"GC_INTERVAL,default=5m"`
	TelemetryInterval time.Duration `env:"TELEMETRY_INTERVAL,default=30s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}
