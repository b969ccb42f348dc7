package resilience

import "time"

// Config controls retries and the circuit breaker of one Executor.
// CallBudget, when set, is the wall time a single logical call may take
// across all attempts; retries that cannot fit in it are dropped.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64
	CallBudget          time.Duration

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// OracleConfig is tuned for model calls: slow backoff and an early-tripping breaker.
func OracleConfig(maxAttempts int, breakerEnabled bool, callTimeout time.Duration) Config {
	return Config{
		RetryMaxAttempts:    maxAttempts,
		RetryInitialBackoff: 250 * time.Millisecond,
		RetryMaxBackoff:     time.Second,
		RetryMultiplier:     2.0,
		CallBudget:          callTimeout,

		BreakerEnabled:          breakerEnabled,
		BreakerMinRequests:      5,
		BreakerFailureRatio:     0.6,
		BreakerOpenTimeout:      20 * time.Second,
		BreakerHalfOpenMaxCalls: 1,
	}
}

// QueueConfig is used for claim submission and decision publishes.
func QueueConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryMaxAttempts = 4
	cfg.RetryMaxBackoff = 800 * time.Millisecond
	return cfg
}

// RetryWait is the total backoff slept between attempts when every attempt fails.
func (c Config) RetryWait() time.Duration {
	var total time.Duration
	backoff := c.RetryInitialBackoff
	for attempt := 1; attempt < c.RetryMaxAttempts; attempt++ {
		total += min(backoff, c.RetryMaxBackoff)
		backoff = min(time.Duration(float64(backoff)*c.RetryMultiplier), c.RetryMaxBackoff)
	}
	return total
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryInitialBackoff <= 0 {
		out.RetryInitialBackoff = def.RetryInitialBackoff
	}
	if out.RetryMaxBackoff <= 0 {
		out.RetryMaxBackoff = def.RetryMaxBackoff
	}
	if out.RetryMaxBackoff < out.RetryInitialBackoff {
		out.RetryMaxBackoff = out.RetryInitialBackoff
	}
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}
	if out.CallBudget < 0 {
		out.CallBudget = 0
	}
	// Backoff may use at most half of the budget; the rest belongs to the calls.
	if out.CallBudget > 0 {
		for out.RetryMaxAttempts > 1 && out.RetryWait() > out.CallBudget/2 {
			out.RetryMaxAttempts--
		}
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}

	return out
}
