// FILE: lixenwraith/confdist/cmd/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"

	"github.com/lixenwraith/confdist"
)

// AppConfig represents our application configuration
type AppConfig struct {
	Server struct {
		Host string `toml:"host"`
		Port int    `toml:"port"`
	} `toml:"server"`

	Database struct {
		URL         string        `toml:"url"`
		MaxConns    int           `toml:"max_conns"`
		IdleTimeout time.Duration `toml:"idle_timeout"`
	} `toml:"database"`

	Features struct {
		RateLimit bool `toml:"rate_limit"`
		Caching   bool `toml:"caching"`
	} `toml:"features"`
}

const configPath = "config.toml"

func main() {
	initial, err := loadConfigFile(configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger := zap.Must(zap.NewDevelopment())
	defer logger.Sync()

	pool := &dbPoolComponent{}
	gates := &featureGateComponent{}

	mgr, err := confdist.NewBuilder[AppConfig]().
		WithInitial(initial).
		WithLogger(logger.Named("confdist")).
		WithComponent(pool).
		WithComponent(gates).
		Build()
	if err != nil {
		log.Fatal("Failed to assemble manager:", err)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// Log initial configuration
	logConfig(mgr.GetConfig())

	// Follow the update stream
	sub := mgr.Subscribe()
	defer sub.Close()

	go func() {
		for {
			snap, err := sub.Next(ctx)
			if err != nil {
				var lag *confdist.LagError
				if errors.As(err, &lag) {
					log.Printf("⚠️  Missed %d updates, catching up", lag.Missed)
					continue
				}
				return
			}
			log.Printf("📝 Config version %d active", snap.Version())
			logConfig(snap)
		}
	}()

	// Watch for file changes
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Fatal("Failed to create watcher:", err)
	}
	defer watcher.Close()

	// Watch the directory so editor rename-and-replace saves are seen.
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		log.Fatal("Failed to watch config directory:", err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filepath.Base(configPath) {
					continue
				}
				if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
					continue
				}
				reload(mgr)
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("⚠️  Watch error: %s", werr)
			case <-ctx.Done():
				return
			}
		}
	}()

	// Main loop
	log.Println("Watching for configuration changes. Edit config.toml to see updates.")
	log.Println("Send SIGHUP to force a reload. Press Ctrl+C to exit.")

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				log.Println("SIGHUP received, reloading...")
				reload(mgr)
				continue
			}
			log.Println("Shutting down...")
			return

		case <-ticker.C:
			// Periodic health check
			h := mgr.Health()
			if h.Reason != "" {
				log.Printf("Health: %s (%s)", h.State, h.Reason)
			} else {
				log.Printf("Health: %s (config version %d)", h.State, mgr.GetConfig().Version())
			}
		}
	}
}

func reload(mgr *confdist.Manager[AppConfig]) {
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		log.Printf("❌ Failed to reload config: %s", err)
		return
	}
	if err := mgr.UpdateConfig(cfg); err != nil {
		log.Printf("⚠️  Update distributed with failures: %s", err)
	}
}

// loadConfigFile reads TOML over built-in defaults. A missing file
// leaves the defaults untouched.
func loadConfigFile(path string) (AppConfig, error) {
	cfg := AppConfig{}
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 8080
	cfg.Database.MaxConns = 10
	cfg.Database.IdleTimeout = 30 * time.Second

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	src := make(map[string]any)
	if err := toml.Unmarshal(raw, &src); err != nil {
		return cfg, fmt.Errorf("failed to parse TOML: %w", err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "toml",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(src); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

func logConfig(snap *confdist.Snapshot[AppConfig]) {
	cfg := snap.Value()
	log.Printf("Current configuration (version %d):", snap.Version())
	log.Printf("  Server: %s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("  Database: %s (max_conns=%d, idle_timeout=%s)",
		cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.IdleTimeout)
	log.Printf("  Features: rate_limit=%v, caching=%v",
		cfg.Features.RateLimit, cfg.Features.Caching)
}

// dbPoolComponent resizes a connection pool when settings change.
type dbPoolComponent struct {
	mu       sync.Mutex
	url      string
	maxConns int
}

func (c *dbPoolComponent) Name() string { return "db-pool" }

func (c *dbPoolComponent) OnConfigUpdate(snap *confdist.Snapshot[AppConfig]) error {
	db := snap.Value().Database
	if db.MaxConns <= 0 {
		return fmt.Errorf("max_conns must be positive, got %d", db.MaxConns)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.url != "" && db.URL != c.url {
		log.Println("Database URL changed - reconnection required")
	}
	c.url = db.URL
	c.maxConns = db.MaxConns
	return nil
}

func (c *dbPoolComponent) HealthCheck() confdist.Health {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.url == "" {
		return confdist.Degraded("no database url configured")
	}
	return confdist.Healthy()
}

// featureGateComponent flips feature flags atomically for hot paths.
type featureGateComponent struct {
	rateLimit atomic.Bool
	caching   atomic.Bool
}

func (c *featureGateComponent) Name() string { return "feature-gates" }

func (c *featureGateComponent) OnConfigUpdate(snap *confdist.Snapshot[AppConfig]) error {
	f := snap.Value().Features
	if c.rateLimit.Swap(f.RateLimit) != f.RateLimit {
		log.Printf("Rate limiting now %v", f.RateLimit)
	}
	if c.caching.Swap(f.Caching) != f.Caching {
		log.Printf("Caching now %v", f.Caching)
	}
	return nil
}

func (c *featureGateComponent) HealthCheck() confdist.Health { return confdist.Healthy() }

// Example config.toml file:
/*
[server]
host = "localhost"
port = 8080

[database]
url = "postgres://localhost/myapp"
max_conns = 25
idle_timeout = "30s"

[features]
rate_limit = true
caching = false
*/
