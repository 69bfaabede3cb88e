package flasher

import (
	"context"
	"io"
	"time"

	"github.com/dylan/wchflash/chip"
	"github.com/sirupsen/logrus"
)

// MaxRetries is the default number of attempts per erase and per speed.
const MaxRetries = 3

// DefaultRetryDelay is waited between attempts.
const DefaultRetryDelay = 2 * time.Second

// ConfirmFunc asks whether to continue with the detected chip after a
// mismatch. Returning false aborts the session.
type ConfirmFunc func(declared, detected chip.Profile) bool

// Sleeper blocks for d. reason describes the wait for display.
type Sleeper func(ctx context.Context, d time.Duration, reason string) error

// Config holds the orchestrator configuration.
type Config struct {
	MaxRetries int
	RetryDelay time.Duration
	Logger     logrus.FieldLogger
	Observer   Observer
	Sleep      Sleeper
	Confirm    ConfirmFunc
}

func defaultConfig() Config {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return Config{
		MaxRetries: MaxRetries,
		RetryDelay: DefaultRetryDelay,
		Logger:     l,
		Sleep:      Sleep,
	}
}

// Option is a functional option for configuring the Orchestrator.
type Option func(*Config)

func WithMaxRetries(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxRetries = n
		}
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.RetryDelay = d
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithObserver registers a callback for session events. It runs on the
// session goroutine and should return quickly.
func WithObserver(o Observer) Option {
	return func(c *Config) {
		c.Observer = o
	}
}

func WithSleeper(s Sleeper) Option {
	return func(c *Config) {
		if s != nil {
			c.Sleep = s
		}
	}
}

// WithConfirm sets the chip mismatch prompt. Without it mismatches abort.
func WithConfirm(f ConfirmFunc) Option {
	return func(c *Config) {
		c.Confirm = f
	}
}

// Sleep is the default Sleeper: a blocking wait cut short by ctx.
func Sleep(ctx context.Context, d time.Duration, _ string) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
