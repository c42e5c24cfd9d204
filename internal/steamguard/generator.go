// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package steamguard

import (
	"time"
)

// Clock supplies the current time to a Generator.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// Generator produces codes at its clock's current time. It holds no cache;
// every call recomputes.
type Generator struct {
	clock Clock
}

// NewGenerator creates a Generator. A nil clock means SystemClock.
func NewGenerator(clock Clock) *Generator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Generator{clock: clock}
}

// Now returns the generator's current time.
func (g *Generator) Now() time.Time {
	return g.clock.Now()
}

// Code generates the code for secret at the current time.
func (g *Generator) Code(secret string) CodeResult {
	now := g.clock.Now()
	code, err := GenerateCode(secret, now)
	return CodeResult{
		Code:      code,
		Err:       err,
		Remaining: Remaining(now),
	}
}

// Remaining returns the time until the current code rotates.
func (g *Generator) Remaining() time.Duration {
	return Remaining(g.clock.Now())
}

// CodeResult is a generated code or the reason there is none.
type CodeResult struct {
	Code      string
	Err       error
	Remaining time.Duration
}

// OK reports whether a code was produced.
func (r CodeResult) OK() bool {
	return r.Err == nil && r.Code != ""
}

// Display renders the result for a table cell.
func (r CodeResult) Display() string {
	switch {
	case r.Err == nil:
		return r.Code
	case KindOf(r.Err) == KindMissingSecret:
		return "not configured"
	default:
		return "error: " + r.Err.Error()
	}
}
