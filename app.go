package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dylan/wchflash/config"
	"github.com/dylan/wchflash/flasher"
	"github.com/dylan/wchflash/history"
	"github.com/dylan/wchflash/probe"
	"github.com/dylan/wchflash/tui"
	"github.com/dylan/wchflash/tui/console"
	"github.com/dylan/wchflash/tui/shared"
	"github.com/dylan/wchflash/wizard"
	"github.com/dylan/wchflash/wlink"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// env is what every command shares: the loaded config, a logger, the
// wlink client and, when enabled, the history store.
type env struct {
	cfg     config.Config
	cfgPath string
	log     *logrus.Logger
	out     *console.Printer
	client  *wlink.Client
	history *history.Store
}

// loadConfig follows the usual rule: an explicit --config must exist, the
// default location may be absent.
func loadConfig() (config.Config, string, error) {
	path := configPath
	explicit := path != ""
	if !explicit {
		path = config.DefaultConfigPath()
	}

	load := config.Load
	if !explicit {
		load = config.LoadOrDefault
	}
	cfg, err := load(path)
	if err != nil {
		return cfg, path, fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}

// newLogger builds the process logger. The interactive wizard keeps its
// terminal to itself unless --verbose is given.
func newLogger(interactive bool) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	switch logFormat {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", logFormat)
	}

	switch {
	case verboseLog:
		log.SetLevel(logrus.DebugLevel)
	case interactive:
		log.SetOutput(io.Discard)
	default:
		log.SetLevel(logrus.WarnLevel)
	}
	return log, nil
}

func newEnv(interactive bool) (*env, error) {
	log, err := newLogger(interactive)
	if err != nil {
		return nil, err
	}
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, err
	}

	shared.Apply(cfg)
	e := &env{
		cfg:     cfg,
		cfgPath: path,
		log:     log,
		out:     console.New(os.Stdout),
		client:  wlink.NewClient(wlink.ExecRunner{Binary: cfg.ResolvedWlinkBinary()}, log, cfg.ResolvedWlinkVerbose()),
	}
	log.WithField("config", path).Debug("config loaded")
	return e, nil
}

// openHistory opens the history store when enabled. Failure to open it
// only disables recording.
func (e *env) openHistory() {
	if !e.cfg.ResolvedHistoryEnabled() {
		return
	}
	st, err := history.Open(e.cfg.ResolvedHistoryPath(), e.log)
	if err != nil {
		e.log.WithError(err).Warn("flash history disabled")
		return
	}
	e.history = st
}

func (e *env) record(ctx context.Context, device string, req flasher.Request, out flasher.Outcome) {
	if e.history == nil {
		return
	}
	if _, err := e.history.Record(context.WithoutCancel(ctx), history.NewEntry(device, req, out)); err != nil {
		e.log.WithError(err).Warn("could not record flash history")
	}
}

func (e *env) Close() {
	if e.history != nil {
		if err := e.history.Close(); err != nil {
			e.log.WithError(err).Debug("closing history")
		}
	}
}

func runWizard(cmd *cobra.Command, args []string) error {
	e, err := newEnv(true)
	if err != nil {
		return err
	}
	defer e.Close()
	e.openHistory()

	home, _ := os.UserHomeDir()
	w := &wizard.Wizard{
		Prompt:     tui.NewTerminal(e.cfg, nil, nil),
		Out:        e.out,
		Device:     e.client,
		Config:     e.cfg,
		ConfigPath: e.cfgPath,
		Log:        e.log,
		Version:    version,
		Checker:    &probe.Checker{Home: home},
	}
	if e.history != nil {
		w.History = e.history
	}
	return w.Run(cmd.Context())
}
