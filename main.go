package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dylan/wchflash/probe"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "wchflash",
	Short: "wchflash updates WCH-Link adapter firmware through wlink",
	Long: `Walks through selecting a board, connection options and a firmware image,
then erases, resets and flashes the chip behind a WCH-Link adapter. Failed
flashes are retried and the programming speed is stepped down until the
chip accepts the image.

Run without a subcommand for the interactive wizard.`,
	SilenceUsage: true,
	RunE:         runWizard,
}

var (
	configPath string
	verboseLog bool
	logFormat  string
)

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ~/.config/wchflash/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseLog, "verbose", "v", false, "Enable verbose debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (one of 'text', 'json')")

	flashCmd.Flags().StringVarP(&flashChip, "chip", "c", "", "Expected chip type, e.g. CH32V30X (default: use detected chip)")
	flashCmd.Flags().StringVarP(&flashFirmware, "firmware", "f", "", "Firmware .bin file (default: saved firmware path)")
	flashCmd.Flags().StringVarP(&flashSpeed, "speed", "s", "", "Starting speed (one of 'high', 'medium', 'low')")
	flashCmd.Flags().StringVarP(&flashErase, "erase-method", "e", "", "Erase method (one of 'default', 'power-off', 'pin-rst')")
	flashCmd.Flags().BoolVarP(&flashYes, "yes", "y", false, "Continue with the detected chip when it differs from --chip")
	checkCmd.Flags().BoolVar(&checkOnline, "online", false, "Also check internet connectivity")
	checkCmd.Flags().StringVar(&checkURL, "url", probe.DefaultProbeURL, "URL used for the connectivity check")
	checkCmd.Flags().BoolVar(&checkCopy, "copy", false, "Copy the commands that fix failed checks to the clipboard")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of sessions to show (0 for all)")
	configSetOptionsCmd.Flags().StringVarP(&setSpeed, "speed", "s", "", "Default speed (one of 'high', 'medium', 'low')")
	configSetOptionsCmd.Flags().StringVarP(&setErase, "erase-method", "e", "", "Default erase method (one of 'default', 'power-off', 'pin-rst')")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(flashCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetFirmwareCmd)
	configCmd.AddCommand(configSetOptionsCmd)
	rootCmd.AddCommand(configCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
