package resilience

import "time"

// Circuit breaker configuration constants
const (
	DefaultThreshold         = 5
	DefaultResetTimeout      = 30 * time.Second
	DefaultHalfOpenSuccesses = 3

	// Capture breakers never probe on their own; the user reloads.
	CaptureHalfOpenSuccesses = 1

	// One good save proves the store is writable again.
	StoreHalfOpenSuccesses = 1
)

// Config holds circuit breaker settings.
type Config struct {
	Name              string        // used in log lines
	Threshold         int           // consecutive failures before opening
	ResetTimeout      time.Duration // wait before half-open attempt
	HalfOpenSuccesses int           // successes needed to close
	ManualReset       bool          // stay open until Reset is called
}

// DefaultConfig returns a self-healing breaker.
func DefaultConfig() Config {
	return Config{
		Name:              "default",
		Threshold:         DefaultThreshold,
		ResetTimeout:      DefaultResetTimeout,
		HalfOpenSuccesses: DefaultHalfOpenSuccesses,
	}
}

// StoreConfig returns a self-healing breaker for session store writes: after
// threshold failed saves it stops writing for DefaultResetTimeout, then lets
// one probe save through.
func StoreConfig(threshold int) Config {
	cfg := DefaultConfig()
	cfg.Name = "store"
	cfg.Threshold = threshold
	cfg.HalfOpenSuccesses = StoreHalfOpenSuccesses
	return cfg
}

// CaptureConfig returns a breaker for a frame source: it opens after
// threshold consecutive failures and stays open until Reset.
func CaptureConfig(threshold int) Config {
	return Config{
		Name:              "capture",
		Threshold:         threshold,
		HalfOpenSuccesses: CaptureHalfOpenSuccesses,
		ManualReset:       true,
	}
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = DefaultHalfOpenSuccesses
	}
	return c
}
