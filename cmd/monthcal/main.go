package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"monthcal/internal/config"
	"monthcal/internal/kv"
	appLog "monthcal/internal/log"
	"monthcal/internal/store"
)

const version = "0.1.0"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	listen     string
	dataPath   string
	driver     string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		appLog.Error("monthcal failed", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "monthcal",
		Short:         "A month-view calendar with a web UI, a terminal UI and ICS export",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "~/.config/monthcal/config.yaml", "Path to config file")
	pf.StringVar(&flags.listen, "listen", "", "HTTP listen address (overrides config if set)")
	pf.StringVar(&flags.dataPath, "data", "", "Data directory or sqlite file (overrides config if set)")
	pf.StringVar(&flags.driver, "driver", "", "Storage driver: file, sqlite or memory (overrides config if set)")
	pf.BoolVar(&flags.verbose, "verbose", false, "Enable debug logging")

	root.AddCommand(
		newServeCmd(flags),
		newTUICmd(flags),
		newAddCmd(flags),
		newListCmd(flags),
		newEditCmd(flags),
		newRemoveCmd(flags),
		newGridCmd(flags),
		newExportCmd(flags),
		newImportCmd(flags),
		newSnapshotCmd(flags),
	)
	return root
}

// loadConfig reads the config file and applies flag overrides.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	path := config.ExpandHome(f.configPath)
	conf, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	if f.listen != "" {
		conf.Listen = f.listen
	}
	if f.driver != "" {
		conf.Storage.Driver = f.driver
	}
	if f.dataPath != "" {
		conf.Storage.Path = f.dataPath
	}
	conf.Normalize()

	level := appLog.ParseLevel(conf.LogLevel)
	if f.verbose {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	appLog.Debug("effective config",
		"config", path,
		"listen", conf.Listen,
		"week_start", conf.WeekStart,
		"driver", conf.Storage.Driver,
		"data", conf.Storage.Path,
	)
	return conf, nil
}

// openStore loads the config and opens the event store on its backend.
// The returned close function releases the backend.
func (f *globalFlags) openStore() (*config.Config, *store.Store, func(), error) {
	conf, err := f.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	backend, err := kv.Open(conf.Storage.Driver, config.ExpandHome(conf.Storage.Path))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening %s storage: %w", conf.Storage.Driver, err)
	}
	closeFn := func() {
		if err := backend.Close(); err != nil {
			appLog.Error("closing storage failed", err)
		}
	}

	st, err := store.Open(backend, store.WithKey(conf.Storage.Key))
	if err != nil {
		closeFn()
		return nil, nil, nil, err
	}
	return conf, st, closeFn, nil
}

// dataDir is the directory holding the event data, used for caches.
func dataDir(conf *config.Config) string {
	p := config.ExpandHome(conf.Storage.Path)
	if conf.Storage.Driver == kv.DriverSQLite {
		return filepath.Dir(p)
	}
	return p
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
