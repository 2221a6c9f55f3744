// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

// Package resilience provides circuit breakers for calls to upstream data
// providers.
package resilience

import (
	"sync"
	"time"

	"github.com/jllopis/nabd/pkg/errors"
)

// BreakerState is the state of a circuit breaker.
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half-open"
)

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	// FailureThreshold consecutive failures open the circuit.
	FailureThreshold int
	// SuccessThreshold successes while half-open close it again.
	SuccessThreshold int
	// Cooldown is how long the circuit stays open before a probe is let
	// through.
	Cooldown time.Duration
	Name     string
	// IsFailure decides which errors count against the circuit. Nil counts
	// every error.
	IsFailure func(error) bool
}

// CircuitBreaker fails calls fast after repeated upstream failures.
type CircuitBreaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu        sync.Mutex
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
}

// NewCircuitBreaker creates a closed breaker. Zero config fields take
// defaults.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold < 1 {
		cfg.SuccessThreshold = 1
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(error) bool { return true }
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now, state: StateClosed}
}

// Call runs fn unless the circuit is open. The lock is not held while fn
// runs, so concurrent calls proceed in parallel.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.Cooldown {
		cb.state = StateHalfOpen
		cb.successes = 0
	}
	if cb.state == StateOpen {
		return errors.New(errors.CodeUpstream, "upstream temporarily disabled", nil).
			WithContext("breaker", cb.cfg.Name)
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil && cb.cfg.IsFailure(err) {
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
			cb.state = StateOpen
			cb.openedAt = cb.now()
			cb.failures = 0
			cb.successes = 0
		}
		return
	}
	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.state = StateClosed
		}
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset closes the circuit.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
}

// Breakers keeps one breaker per upstream name.
type Breakers struct {
	cfg BreakerConfig

	mu     sync.Mutex
	byName map[string]*CircuitBreaker
}

// NewBreakers creates an empty set; every breaker it hands out uses cfg.
func NewBreakers(cfg BreakerConfig) *Breakers {
	return &Breakers{cfg: cfg, byName: make(map[string]*CircuitBreaker)}
}

// For returns the breaker for name, creating it on first use.
func (b *Breakers) For(name string) *CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	cb, ok := b.byName[name]
	if !ok {
		cfg := b.cfg
		cfg.Name = name
		cb = NewCircuitBreaker(cfg)
		b.byName[name] = cb
	}
	return cb
}

// States returns the state of every breaker created so far.
func (b *Breakers) States() map[string]BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]BreakerState, len(b.byName))
	for name, cb := range b.byName {
		out[name] = cb.State()
	}
	return out
}
