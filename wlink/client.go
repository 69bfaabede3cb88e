package wlink

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dylan/wchflash/chip"
	"github.com/sirupsen/logrus"
)

// Client issues the wlink subcommands wchflash needs.
type Client struct {
	runner  Runner
	log     logrus.FieldLogger
	verbose bool
}

// NewClient wraps a Runner. verbose adds -v to erase and status calls.
func NewClient(runner Runner, log logrus.FieldLogger, verbose bool) *Client {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Client{runner: runner, log: log, verbose: verbose}
}

func (c *Client) run(ctx context.Context, args ...string) (Result, error) {
	c.log.WithField("args", strings.Join(args, " ")).Debug("running wlink")
	res, err := c.runner.Run(ctx, args...)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"args":      strings.Join(args, " "),
			"exit_code": res.ExitCode,
			"kind":      res.Kind().String(),
		}).Debug("wlink failed")
	}
	return res, err
}

// Erase clears the chip's flash.
func (c *Client) Erase(ctx context.Context, method chip.EraseMethod, chipID string) (Result, error) {
	args := []string{"erase", "--method", method.String(), "--chip", chipID}
	if c.verbose {
		args = append(args, "-v")
	}
	return c.run(ctx, args...)
}

// Flash programs firmwarePath (absolute) at the given speed.
func (c *Client) Flash(ctx context.Context, chipID string, speed chip.Speed, verify bool, firmwarePath string) (Result, error) {
	args := []string{"flash", "--chip", chipID, "--speed", speed.String()}
	if verify {
		args = append(args, "--verify")
	}
	args = append(args, firmwarePath)
	return c.run(ctx, args...)
}

// Reset resets the attached target.
func (c *Client) Reset(ctx context.Context) error {
	_, err := c.run(ctx, "reset")
	return err
}

// Status queries the adapter and target.
func (c *Client) Status(ctx context.Context) (Status, error) {
	args := []string{"status"}
	if c.verbose {
		args = append(args, "-v")
	}
	res, err := c.run(ctx, args...)
	st := ParseStatus(res.Stdout)
	if err != nil {
		return st, err
	}
	return st, nil
}

// Detection is the chip found by Detect together with the raw output it
// was derived from.
type Detection struct {
	Profile chip.Profile
	Adapter string
	Output  string
}

// Detect runs a status query and maps the reported chip to a profile.
// A process failure does not stop detection when stdout still names a chip.
func (c *Client) Detect(ctx context.Context) (Detection, error) {
	st, err := c.Status(ctx)
	d := Detection{Adapter: st.Adapter, Output: st.Output}
	if st.ChipID == "" {
		if err != nil {
			return d, fmt.Errorf("running wlink status: %w", err)
		}
		return d, ErrChipNotFound
	}
	p, ok := chip.Lookup(st.ChipID)
	if !ok {
		return d, fmt.Errorf("chip %s: %w", st.ChipID, ErrChipNotFound)
	}
	d.Profile = p
	c.log.WithFields(logrus.Fields{"chip": p.ID, "adapter": st.Adapter}).Debug("detected chip")
	return d, nil
}

// Adapters lists connected WCH-Link adapters via `wlink list -v`.
func (c *Client) Adapters(ctx context.Context) ([]string, error) {
	res, err := c.run(ctx, "list", "-v")
	if err != nil {
		return nil, err
	}
	return ParseAdapters(res.Stdout), nil
}

// Version returns the first line of `wlink --version`.
func (c *Client) Version(ctx context.Context) (string, error) {
	res, err := c.run(ctx, "--version")
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(res.Stdout), "\n")
	return line, nil
}
