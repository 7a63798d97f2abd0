// Package rewind computes how far to jump back when playback resumes after a
// pause, so the listener can reorient without losing their place.
package rewind

import (
	"errors"
	"fmt"
	"time"
)

// Step is a fixed rewind applied to pauses of at least From.
type Step struct {
	From    time.Duration `yaml:"from" json:"from"`
	Seconds int           `yaml:"seconds" json:"seconds"`
}

// Curve maps pause length to rewind seconds.
//
// Pauses up to Negligible rewind nothing, pauses shorter than Proportional
// rewind by the whole seconds elapsed, longer pauses use the last Step whose
// From they reach, and pauses of Saturate or more rewind the full maximum.
type Curve struct {
	Negligible   time.Duration `yaml:"negligible" json:"negligible"`
	Proportional time.Duration `yaml:"proportional" json:"proportional"`
	Steps        []Step        `yaml:"steps" json:"steps"`
	Saturate     time.Duration `yaml:"saturate" json:"saturate"`
}

// DefaultCurve returns the product-tuned breakpoints.
func DefaultCurve() Curve {
	return Curve{
		Negligible:   2 * time.Second,
		Proportional: 10 * time.Second,
		Steps: []Step{
			{From: 10 * time.Second, Seconds: 10},
			{From: time.Minute, Seconds: 15},
			{From: 5 * time.Minute, Seconds: 20},
			{From: 30 * time.Minute, Seconds: 30},
		},
		Saturate: time.Hour,
	}
}

// Seconds evaluates the default curve.
func Seconds(pause time.Duration, maxRewindSeconds int) int {
	return DefaultCurve().Seconds(pause, maxRewindSeconds)
}

// Seconds returns the rewind for a pause of the given length. The result is
// never negative, never decreases as the pause grows, and never exceeds
// maxRewindSeconds. A negative maximum is treated as 0.
func (c Curve) Seconds(pause time.Duration, maxRewindSeconds int) int {
	if maxRewindSeconds <= 0 || pause <= c.Negligible {
		return 0
	}
	if c.Saturate > 0 && pause >= c.Saturate {
		return maxRewindSeconds
	}

	rewind := int(pause / time.Second)
	if pause >= c.Proportional {
		for _, s := range c.Steps {
			if pause < s.From {
				break
			}
			rewind = s.Seconds
		}
	}

	return max(0, min(rewind, maxRewindSeconds))
}

// Validate checks that the curve is monotonic.
func (c Curve) Validate() error {
	if c.Negligible < 0 {
		return errors.New("negligible pause must not be negative")
	}
	if c.Proportional < c.Negligible {
		return fmt.Errorf("proportional limit %s is below negligible limit %s", c.Proportional, c.Negligible)
	}

	// Proportional rewind runs until the first step begins.
	prevFrom := c.Proportional
	prevSeconds := int(c.Proportional / time.Second)
	if len(c.Steps) > 0 && c.Steps[0].From > prevFrom {
		prevSeconds = int(c.Steps[0].From / time.Second)
	}
	for i, s := range c.Steps {
		if s.From < prevFrom {
			return fmt.Errorf("step %d starts at %s, before %s", i, s.From, prevFrom)
		}
		if s.Seconds < prevSeconds {
			return fmt.Errorf("step %d rewinds %ds, less than the %ds before it", i, s.Seconds, prevSeconds)
		}
		prevFrom, prevSeconds = s.From, s.Seconds
	}

	if c.Saturate > 0 && c.Saturate < prevFrom {
		return fmt.Errorf("saturation at %s comes before the last step at %s", c.Saturate, prevFrom)
	}
	return nil
}
