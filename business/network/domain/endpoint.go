// Package domain contains endpoint health types for the network context.
package domain

import (
	"time"
)

// emaAlpha weights the latest probe in the latency moving average.
const emaAlpha = 0.3

// Endpoint tracks the observed health of one RPC endpoint.
type Endpoint struct {
	URL     string
	Primary bool

	AvgLatency  time.Duration // EMA over successful probes
	LastLatency time.Duration

	Probes    int64
	Failures  int64
	Switches  int64 // times promoted to primary
	Demotions int64

	ConsecutiveFailures int
	HealthyStreak       int

	LastBlock     uint64
	LastAdvance   time.Time // when LastBlock last moved forward
	LastProbe     time.Time
	CooldownUntil time.Time
}

// NewEndpoint creates an Endpoint with no history.
func NewEndpoint(url string) *Endpoint {
	return &Endpoint{URL: url}
}

// RecordSuccess folds a successful probe into the health state.
func (e *Endpoint) RecordSuccess(latency time.Duration, block uint64, now time.Time) {
	e.Probes++
	e.LastProbe = now
	e.LastLatency = latency
	if e.AvgLatency == 0 {
		e.AvgLatency = latency
	} else {
		e.AvgLatency = time.Duration(emaAlpha*float64(latency) + (1-emaAlpha)*float64(e.AvgLatency))
	}
	e.ConsecutiveFailures = 0
	e.HealthyStreak++
	e.ObserveBlock(block, now)
}

// RecordFailure folds a failed probe into the health state.
func (e *Endpoint) RecordFailure(now time.Time) {
	e.Probes++
	e.Failures++
	e.LastProbe = now
	e.ConsecutiveFailures++
	e.HealthyStreak = 0
}

// ObserveBlock updates head freshness. Heights below the best seen one
// are ignored so a lagging probe does not reset the stagnation clock.
func (e *Endpoint) ObserveBlock(block uint64, now time.Time) {
	if block > e.LastBlock {
		e.LastBlock = block
		e.LastAdvance = now
	}
}

// Stagnant reports whether the head has not advanced within window.
// An endpoint that never reported a block is not yet stagnant.
func (e *Endpoint) Stagnant(window time.Duration, now time.Time) bool {
	if e.LastAdvance.IsZero() {
		return false
	}
	return now.Sub(e.LastAdvance) > window
}

// Failing reports whether consecutive failures reached the threshold.
func (e *Endpoint) Failing(threshold int) bool {
	return e.ConsecutiveFailures >= threshold
}

// InCooldown reports whether the endpoint was recently demoted and may
// not be promoted again yet.
func (e *Endpoint) InCooldown(now time.Time) bool {
	return now.Before(e.CooldownUntil)
}

// Demote clears primary status and starts the promotion cooldown.
func (e *Endpoint) Demote(cooldown time.Duration, now time.Time) {
	e.Primary = false
	e.Demotions++
	e.HealthyStreak = 0
	e.CooldownUntil = now.Add(cooldown)
}

// Promote marks the endpoint primary and counts the switch.
func (e *Endpoint) Promote() {
	e.Primary = true
	e.Switches++
}

// Eligible reports whether the endpoint may serve as primary right now:
// out of cooldown, not failing, and with at least one successful probe.
// An endpoint that has ever failed or been demoted must also rebuild a
// streak of recoveryStreak consecutive successes; only cold standbys
// with a clean history get in on a single success, so initial failover
// cannot stall.
func (e *Endpoint) Eligible(threshold, recoveryStreak int, now time.Time) bool {
	if e.InCooldown(now) || e.Failing(threshold) {
		return false
	}
	if e.Failures > 0 || e.Demotions > 0 {
		return e.HealthyStreak >= recoveryStreak
	}
	return e.HealthyStreak >= 1
}
