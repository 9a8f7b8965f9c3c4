// Command tradeguard is the trade-offer guard daemon. It keeps one Steam
// session alive, accepts gift offers automatically when enabled, and serves
// the local API that tradeguard-cli and UIs talk to.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/yndnr/tradeguard/internal/infra/buildinfo"
	"github.com/yndnr/tradeguard/internal/infra/confloader"
	"github.com/yndnr/tradeguard/internal/infra/shutdown"
	"github.com/yndnr/tradeguard/internal/server/config"
	"github.com/yndnr/tradeguard/internal/telemetry/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		overrides   = make(map[string]string)
	)
	flag.Func("set", "Override a setting, `key.path=value` (repeatable)", func(s string) error {
		key, value, err := confloader.ParseOverride(s)
		if err != nil {
			return err
		}
		overrides[key] = value
		return nil
	})
	flag.Parse()

	if *showVersion {
		fmt.Println("tradeguard " + buildinfo.String())
		return nil
	}

	loader := confloader.NewLoader(confloader.WithConfigFile(*configFile), confloader.WithOverrides(overrides))
	cfg, err := loadConfig(loader)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(log)

	log.Info("starting tradeguard",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"config", *configFile,
		"settings", config.Sanitize(cfg))

	app, err := build(cfg, log)
	if err != nil {
		return err
	}

	sd := shutdown.NewHandler(cfg.API.ShutdownTimeout, log)
	if err := app.start(sd); err != nil {
		return err
	}

	if *configFile != "" {
		w, err := watchConfig(loader, cfg, app, log)
		if err != nil {
			log.Warn("config file will not be watched", "error", err)
		} else {
			sd.OnShutdown("config watcher", func(context.Context) error { return w.Stop() })
		}
	}

	log.Info("tradeguard started, press Ctrl+C to stop")
	if err := sd.Wait(context.Background()); err != nil {
		return err
	}
	log.Info("tradeguard stopped")
	return nil
}

// loadConfig layers the file, TRADEGUARD_* environment and -set overrides
// over the defaults.
func loadConfig(loader *confloader.Loader) (*config.Config, error) {
	cfg := config.Default()
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
