// Package config fills settings structs from environment variables using
// caarlos0/env struct tags.
//
// The files named in DotEnvFiles (".env" and ".local.env" by default) are
// read with godotenv before the first Load or Parse. Missing files are
// skipped and variables already set in the process win. Change DotEnvFiles
// before the first call if a binary keeps its env files elsewhere.
//
// Load caches the result per struct type, so wiring code can ask for the
// same settings repeatedly without parsing again:
//
//	var cfg keyfeed.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Parse skips the cache. Tests use it after t.Setenv:
//
//	t.Setenv("NOTIFY_QUEUE_LIMIT", "8")
//	var cfg keyfeed.Config
//	err := config.Parse(&cfg)
//
// MustLoad panics on failure and is meant for program startup only.
// All failures wrap ErrParsingConfig.
package config
