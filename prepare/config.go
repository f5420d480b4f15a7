package prepare

import (
	"context"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/xraph/keel/di"
)

// EnvPrefix selects the environment variables captured by Config.
const EnvPrefix = "APP_"

// EnvFilesKey names the variable listing extra dotenv files, comma separated.
// Values from files never override the process environment.
const EnvFilesKey = EnvPrefix + "ENV_FILES"

// Config exposes application settings taken from the environment.
type Config struct {
	Logger di.Logger

	mu     sync.RWMutex
	values map[string]string
}

// Prepare snapshots every APP_ variable, filling gaps from the files listed
// in APP_ENV_FILES.
func (c *Config) Prepare(context.Context) error {
	values := make(map[string]string)

	if files := os.Getenv(EnvFilesKey); files != "" {
		var paths []string
		for _, p := range strings.Split(files, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}

		loaded, err := godotenv.Read(paths...)
		if err != nil {
			return err
		}

		for k, v := range loaded {
			if strings.HasPrefix(k, EnvPrefix) {
				values[k] = v
			}
		}
	}

	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, EnvPrefix) {
			values[k] = v
		}
	}

	c.mu.Lock()
	if c.values == nil {
		c.values = values
	} else {
		for k, v := range values {
			if _, set := c.values[k]; !set {
				c.values[k] = v
			}
		}
	}
	n := len(c.values)
	c.mu.Unlock()

	c.Logger.Info("config prepared", zap.Int("keys", n))

	return nil
}

// Set overrides a value. Overrides survive Prepare.
func (c *Config) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.values == nil {
		c.values = make(map[string]string)
	}

	c.values[key] = value
}

// Get returns the value for key, falling back to the live environment and
// then to fallback.
func (c *Config) Get(key, fallback string) string {
	c.mu.RLock()
	v, ok := c.values[key]
	c.mu.RUnlock()

	if ok && v != "" {
		return v
	}

	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}

	return fallback
}

// Bool returns key parsed as a bool, or fallback.
func (c *Config) Bool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(c.Get(key, ""))
	if err != nil {
		return fallback
	}

	return b
}

// Int returns key parsed as an int, or fallback.
func (c *Config) Int(key string, fallback int) int {
	i, err := strconv.Atoi(c.Get(key, ""))
	if err != nil {
		return fallback
	}

	return i
}

// Keys returns the captured keys, sorted.
func (c *Config) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Sorted(maps.Keys(c.values))
}
