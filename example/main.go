// FILE: lixenwraith/confdist/example/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/confdist"
)

// AppConfig is the application-owned payload type. The distribution
// core never looks inside it; parsing and validation happen out here.
type AppConfig struct {
	Server struct {
		Addr        string        `toml:"addr" yaml:"addr"`
		ReadTimeout time.Duration `toml:"read_timeout" yaml:"read_timeout"`
	} `toml:"server" yaml:"server"`
	Log struct {
		Level string `toml:"level" yaml:"level"`
	} `toml:"log" yaml:"log"`
	RateLimit struct {
		RPS   int `toml:"rps" yaml:"rps"`
		Burst int `toml:"burst" yaml:"burst"`
	} `toml:"rate_limit" yaml:"rate_limit"`
}

const (
	tomlPath = "config.toml"
	yamlPath = "config.yaml"
)

const initialTOML = `
[server]
addr = ":8080"
read_timeout = "5s"

[log]
level = "info"

[rate_limit]
rps = 100
burst = 200
`

const updatedTOML = `
[server]
addr = ":8080"
read_timeout = "2s"

[log]
level = "debug"

[rate_limit]
rps = 100
burst = 50
`

const rejectedYAML = `
server:
  addr: ":9090"
  read_timeout: 1s
log:
  level: warn
rate_limit:
  rps: 0
  burst: 0
`

func main() {
	// =========================================================================
	// PART 1: INITIAL SETUP
	// Write the initial configuration file an operator would own.
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 1: Creating initial configuration file...")

	defer func() {
		log.Println("---")
		log.Println("🧹 Cleaning up...")
		os.Remove(tomlPath)
		os.Remove(yamlPath)
		log.Printf("Removed %s and %s.", tomlPath, yamlPath)
	}()

	if err := os.WriteFile(tomlPath, []byte(initialTOML), 0644); err != nil {
		log.Fatalf("❌ Failed to write initial file: %v", err)
	}

	initial, err := loadConfigFile(tomlPath)
	if err != nil {
		log.Fatalf("❌ Failed to load initial file: %v", err)
	}
	log.Printf("✅ Initial configuration loaded from %s.", tomlPath)
	printCurrentState(initial, "Initial State")

	// =========================================================================
	// PART 2: MANAGER ASSEMBLY
	// Wire the distribution core to real components through the builder.
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 2: Assembling the manager with components...")

	// The log level component retunes this shared level on every update.
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger := zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stderr),
		level,
	))
	defer logger.Sync()

	limiter := &rateLimitComponent{}

	mgr, err := confdist.NewBuilder[AppConfig]().
		WithInitial(initial).
		WithLogger(logger).
		WithComponent(&logLevelComponent{level: level}).
		WithComponent(limiter).
		Build()
	if err != nil {
		log.Fatalf("❌ Builder failed: %v", err)
	}
	log.Printf("✅ Manager ready, components: %v", mgr.Components())

	// =========================================================================
	// PART 3: CHANGE SUBSCRIPTION
	// An independent consumer follows the update stream.
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 3: Starting a change subscriber...")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	sub := mgr.Subscribe()
	defer sub.Close()

	var subWG sync.WaitGroup
	subWG.Add(1)
	go func() {
		defer subWG.Done()
		for {
			snap, err := sub.Next(ctx)
			if err != nil {
				var lag *confdist.LagError
				if errors.As(err, &lag) {
					log.Printf("   (Subscriber lagged, %d updates dropped, resuming...)", lag.Missed)
					continue
				}
				return
			}
			log.Printf("   (Subscriber received version %d: log level %q, rps %d)",
				snap.Version(), snap.Value().Log.Level, snap.Value().RateLimit.RPS)
		}
	}()

	// =========================================================================
	// PART 4: HOT RELOAD FROM THE FILESYSTEM
	// The fsnotify collaborator feeds file changes into UpdateConfig.
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 4: Watching the file for changes...")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Fatalf("❌ Failed to create file watcher: %v", err)
	}
	defer watcher.Close()
	if err := watcher.Add(tomlPath); err != nil {
		log.Fatalf("❌ Failed to watch %s: %v", tomlPath, err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
					continue
				}
				cfg, err := loadConfigFile(tomlPath)
				if err != nil {
					logger.Warn("reload skipped", zap.Error(err))
					continue
				}
				if err := mgr.UpdateConfig(cfg); err != nil {
					logger.Warn("update distributed with component failures", zap.Error(err))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("watch error", zap.Error(err))
			case <-ctx.Done():
				return
			}
		}
	}()

	// Simulate an operator editing the file.
	go func() {
		time.Sleep(500 * time.Millisecond)
		log.Println("   (Modifier goroutine: now changing file on disk...)")
		if err := os.WriteFile(tomlPath, []byte(updatedTOML), 0644); err != nil {
			log.Printf("❌ Modifier failed: %v", err)
		}
	}()

	log.Println("   (Waiting for the reload to propagate...)")
	if !waitFor(5*time.Second, func() bool {
		return mgr.GetConfig().Value().Log.Level == "debug"
	}) {
		log.Fatalf("❌ TEST FAILED: Timed out waiting for the file change to propagate.")
	}
	log.Println("✅ VERIFICATION SUCCESSFUL: File change distributed to every consumer.")
	printCurrentState(mgr.GetConfig().Value(), "After File Reload")
	printHealth(mgr)

	// =========================================================================
	// PART 5: FAILURE CONTAINMENT
	// A bad value from another format is distributed anyway; the
	// rejecting component is reported without stalling the rest.
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 5: Distributing a value a component rejects...")

	if err := os.WriteFile(yamlPath, []byte(rejectedYAML), 0644); err != nil {
		log.Fatalf("❌ Failed to write YAML file: %v", err)
	}
	badCfg, err := loadConfigFile(yamlPath)
	if err != nil {
		log.Fatalf("❌ Failed to load YAML file: %v", err)
	}

	if err := mgr.UpdateConfig(badCfg); err != nil {
		log.Printf("✅ Advisory error as expected: %v", err)
	} else {
		log.Fatalf("❌ TEST FAILED: Expected the rate limit component to reject rps=0.")
	}

	if mgr.GetConfig().Value().Server.Addr != ":9090" {
		log.Fatalf("❌ TEST FAILED: Rejected update should still be distributed.")
	}
	log.Println("✅ Update was installed despite the component failure.")
	printHealth(mgr)

	stop()
	sub.Close()
	subWG.Wait()
}

// loadConfigFile parses TOML or YAML by extension into an AppConfig.
func loadConfigFile(path string) (AppConfig, error) {
	var cfg AppConfig

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	src := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(raw, &src); err != nil {
			return cfg, fmt.Errorf("failed to parse TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &src); err != nil {
			return cfg, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config format: %s", path)
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

// waitFor polls cond until it holds or the timeout expires.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}

// logLevelComponent retunes the shared zap level on every update.
type logLevelComponent struct {
	level zap.AtomicLevel
}

func (c *logLevelComponent) Name() string { return "log-level" }

func (c *logLevelComponent) OnConfigUpdate(snap *confdist.Snapshot[AppConfig]) error {
	lvl, err := zapcore.ParseLevel(snap.Value().Log.Level)
	if err != nil {
		return fmt.Errorf("unusable log level %q: %w", snap.Value().Log.Level, err)
	}
	c.level.SetLevel(lvl)
	return nil
}

func (c *logLevelComponent) HealthCheck() confdist.Health { return confdist.Healthy() }

// rateLimitComponent applies limiter settings and reports their sanity.
type rateLimitComponent struct {
	mu    sync.Mutex
	rps   int
	burst int
}

func (c *rateLimitComponent) Name() string { return "rate-limit" }

func (c *rateLimitComponent) OnConfigUpdate(snap *confdist.Snapshot[AppConfig]) error {
	rl := snap.Value().RateLimit
	if rl.RPS <= 0 {
		return fmt.Errorf("rps must be positive, got %d", rl.RPS)
	}

	c.mu.Lock()
	c.rps, c.burst = rl.RPS, rl.Burst
	c.mu.Unlock()
	return nil
}

func (c *rateLimitComponent) HealthCheck() confdist.Health {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.rps <= 0:
		return confdist.Unhealthy("no rate limit applied yet")
	case c.burst < c.rps:
		return confdist.Degraded(fmt.Sprintf("burst %d below rps %d", c.burst, c.rps))
	default:
		return confdist.Healthy()
	}
}

// printCurrentState displays the typed config state.
func printCurrentState(cfg AppConfig, title string) {
	fmt.Println("   --------------------------------------------------")
	fmt.Printf("             %s\n", title)
	fmt.Println("   --------------------------------------------------")
	fmt.Printf("     Server Addr:  %s\n", cfg.Server.Addr)
	fmt.Printf("     Read Timeout: %s\n", cfg.Server.ReadTimeout)
	fmt.Printf("     Log Level:    %s\n", cfg.Log.Level)
	fmt.Printf("     Rate Limit:   %d rps, burst %d\n", cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	fmt.Println("   --------------------------------------------------")
}

// printHealth displays the aggregated component health.
func printHealth(mgr *confdist.Manager[AppConfig]) {
	overall := mgr.Health()
	fmt.Printf("     Overall health: %s", overall.State)
	if overall.Reason != "" {
		fmt.Printf(" (%s)", overall.Reason)
	}
	fmt.Println()
	for name, h := range mgr.HealthCheckAll() {
		fmt.Printf("       - %-10s %s", name, h.State)
		if h.Reason != "" {
			fmt.Printf(" (%s)", h.Reason)
		}
		fmt.Println()
	}
}
