package main

import (
	"errors"
	"fmt"

	"github.com/dylan/wchflash/probe"
	"github.com/dylan/wchflash/tui/banner"
	"github.com/dylan/wchflash/wlink"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connected adapters and the attached chip",
	Long: `Lists WCH-Link adapters as seen by wlink, on the USB bus and as serial
ports, then queries the attached chip.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()
		ctx := cmd.Context()
		out := e.out

		out.Plain(banner.Section("Adapters"))
		adapters, err := e.client.Adapters(ctx)
		switch {
		case err != nil:
			out.Error("wlink list failed: %v", err)
		case len(adapters) == 0:
			out.Warn("No WCH-Link device found")
		}
		for _, a := range adapters {
			out.Success("► %s", a)
		}

		out.Plain(banner.Section("USB"))
		usb, err := probe.USBAdapters(e.log)
		if err != nil {
			out.Warn("USB scan unavailable: %v", err)
		}
		for _, a := range usb {
			if a.Accessible() {
				out.Success("► %s serial %s", a, a.Serial)
				continue
			}
			out.Warn("► %s: %v", a, a.Err)
			if errors.Is(a.Err, probe.ErrNoPermission) {
				out.Info("  Run 'wchflash check' for the udev rule")
			}
		}

		out.Plain(banner.Section("Serial ports"))
		ports, err := probe.SerialPorts()
		if err != nil {
			out.Warn("%v", err)
		}
		for _, p := range ports {
			out.Success("► %s (%s:%s %s)", p.Name, p.VID, p.PID, p.Product)
		}
		if err == nil && len(ports) == 0 {
			out.Info("No WCH serial ports")
		}

		out.Plain(banner.Section("Chip"))
		d, err := e.client.Detect(ctx)
		out.Output(d.Output)
		if err != nil {
			if errors.Is(err, wlink.ErrChipNotFound) {
				out.Error("Unable to detect chip type")
				return nil
			}
			return fmt.Errorf("detecting chip: %w", err)
		}
		out.Success("Detected %s", d.Profile)
		return nil
	},
}
