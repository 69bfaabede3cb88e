package main

import (
	"errors"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/dylan/wchflash/probe"
	"github.com/dylan/wchflash/tui/banner"
	"github.com/spf13/cobra"
)

var (
	checkOnline bool
	checkURL    string
	checkCopy   bool
)

var errMissingDeps = errors.New("missing dependencies")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that wlink and its dependencies are installed",
	Long: `Looks for git, cargo, wlink and pkg-config and, on Linux, the udev rule that
lets non-root users open WCH-Link adapters. Commands that fix a failed
check are printed, never run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()
		out := e.out

		out.Plain(banner.Section("Checking dependencies"))
		home, _ := os.UserHomeDir()
		report := probe.Checker{Home: home}.Run()
		for _, c := range report.Checks {
			out.Check(c)
		}

		if v, err := e.client.Version(cmd.Context()); err == nil {
			out.Info("wlink version: %s", v)
		} else {
			e.log.WithError(err).Debug("wlink --version failed")
		}

		if checkOnline {
			if probe.Online(cmd.Context(), nil, checkURL, 5*time.Second) {
				out.Success("✓ internet: %s reachable", checkURL)
			} else {
				out.Error("✗ internet: %s unreachable", checkURL)
			}
		}

		if !report.OK() {
			out.Warn("%d check(s) failed", len(report.Failed()))
			if script := report.Script(); checkCopy && script != "" {
				if err := clipboard.WriteAll(script); err != nil {
					out.Warn("Could not copy to clipboard: %v", err)
				} else {
					out.Info("Fix commands copied to clipboard")
				}
			}
			return errMissingDeps
		}
		out.Success("All dependencies are installed")
		return nil
	},
}
