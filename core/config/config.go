package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrParsingConfig is returned when environment variables cannot be parsed into the target.
var ErrParsingConfig = errors.New("failed to parse config from environment")

// DotEnvFiles are read once, before the first Load. Variables already present
// in the process environment take precedence over the files.
var DotEnvFiles = []string{".env", ".local.env"}

var (
	dotenvOnce sync.Once
	dotenvErr  error

	cacheMu sync.Mutex
	cache   = map[reflect.Type]any{}
)

func loadDotEnv() error {
	dotenvOnce.Do(func() {
		for _, name := range DotEnvFiles {
			if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
				dotenvErr = fmt.Errorf("load %s: %w", name, err)
				return
			}
		}
	})
	return dotenvErr
}

// Load populates cfg from the environment. The first successful load of a
// type is cached; later calls for the same type copy the cached value.
func Load[T any](cfg *T) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil target", ErrParsingConfig)
	}
	if err := loadDotEnv(); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	typ := reflect.TypeFor[T]()

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if cached, ok := cache[typ]; ok {
		*cfg = cached.(T)
		return nil
	}

	var loaded T
	if err := env.Parse(&loaded); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	cache[typ] = loaded
	*cfg = loaded
	return nil
}

// MustLoad is Load that panics on error. Intended for program startup.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}

// Parse populates cfg from the environment, bypassing the cache.
func Parse[T any](cfg *T) error {
	if err := loadDotEnv(); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	if err := env.Parse(cfg); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}
