package main

import (
	"errors"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/dylan/wchflash/chip"
	"github.com/dylan/wchflash/config"
	"github.com/dylan/wchflash/flasher"
	"github.com/spf13/cobra"
)

var (
	setSpeed string
	setErase string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change saved settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration, defaults filled in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()

		e.out.Info("# %s", e.cfgPath)
		return toml.NewEncoder(os.Stdout).Encode(effective(e.cfg))
	},
}

var configSetFirmwareCmd = &cobra.Command{
	Use:   "set-firmware <path>",
	Short: "Save the default firmware image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()

		abs, err := flasher.ValidateFirmware(args[0])
		if err != nil {
			return err
		}
		e.cfg.FirmwarePath = abs
		if err := config.Save(e.cfgPath, e.cfg); err != nil {
			return err
		}
		e.out.Success("Firmware path saved: %s", abs)
		return nil
	},
}

var configSetOptionsCmd = &cobra.Command{
	Use:   "set-options",
	Short: "Save the default speed and erase method",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if setSpeed == "" && setErase == "" {
			return errors.New("nothing to set: use --speed and/or --erase-method")
		}
		e, err := newEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()

		opts := e.cfg.ResolvedOptions()
		if setSpeed != "" {
			if opts.Speed, err = chip.ParseSpeed(setSpeed); err != nil {
				return err
			}
		}
		if setErase != "" {
			if opts.EraseMethod, err = chip.ParseEraseMethod(setErase); err != nil {
				return err
			}
		}
		e.cfg.DefaultOptions = opts
		if err := config.Save(e.cfgPath, e.cfg); err != nil {
			return err
		}
		e.out.Success("Default options saved: speed=%s erase=%s", opts.Speed, opts.EraseMethod)
		return nil
	},
}

// effective returns cfg with every unset field replaced by its default.
func effective(cfg config.Config) config.Config {
	verbose := cfg.ResolvedWlinkVerbose()
	enabled := cfg.ResolvedHistoryEnabled()
	cfg.DefaultOptions = cfg.ResolvedOptions()
	cfg.Policy = config.PolicyConfig{
		MaxRetries: cfg.ResolvedMaxRetries(),
		RetryDelay: config.Duration(cfg.ResolvedRetryDelay()),
	}
	cfg.Wlink = config.WlinkConfig{Binary: cfg.ResolvedWlinkBinary(), Verbose: &verbose}
	cfg.History = config.HistoryInfo{Enabled: &enabled, Path: cfg.ResolvedHistoryPath()}
	cfg.Theme = cfg.ResolvedTheme()
	return cfg
}
