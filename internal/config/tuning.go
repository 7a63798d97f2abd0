package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/listenupapp/listenup-player/internal/chapters"
	"github.com/listenupapp/listenup-player/internal/reconcile"
	"github.com/listenupapp/listenup-player/internal/rewind"
	"github.com/listenupapp/listenup-player/internal/validation"
)

// Tuning holds the product-tuned thresholds. Every field has a default; a
// YAML file only needs the keys it changes:
//
//	rewind:
//	  negligible: 2s
//	  proportional: 10s
//	  steps:
//	    - {from: 10s, seconds: 10}
//	    - {from: 1m, seconds: 15}
//	  saturate: 1h
//	chapters:
//	  snap_threshold: 5
//	  restart_threshold: 3
//	reconcile:
//	  window: 5s
//	  position_epsilon: 1
type Tuning struct {
	Rewind    rewind.Curve    `yaml:"rewind"`
	Chapters  ChapterTuning   `yaml:"chapters"`
	Reconcile ReconcileTuning `yaml:"reconcile"`
}

// ChapterTuning holds chapter navigation thresholds in seconds.
type ChapterTuning struct {
	SnapThreshold    float64 `yaml:"snap_threshold" validate:"gte=0,lte=60"`
	RestartThreshold float64 `yaml:"restart_threshold" validate:"gte=0,lte=60"`
}

// ReconcileTuning holds cross-device reconciliation thresholds.
type ReconcileTuning struct {
	Window          time.Duration `yaml:"window" validate:"gte=0"`
	PositionEpsilon float64       `yaml:"position_epsilon" validate:"gte=0"`
}

// DefaultTuning returns the built-in thresholds.
func DefaultTuning() Tuning {
	opts := reconcile.DefaultOptions()
	return Tuning{
		Rewind: rewind.DefaultCurve(),
		Chapters: ChapterTuning{
			SnapThreshold:    chapters.DefaultSnapThreshold,
			RestartThreshold: chapters.DefaultRestartThreshold,
		},
		Reconcile: ReconcileTuning{
			Window:          opts.Window,
			PositionEpsilon: opts.PositionEpsilon,
		},
	}
}

// LoadTuning reads a tuning file over the defaults. An empty path returns
// the defaults.
func LoadTuning(path string) (Tuning, error) {
	if path == "" {
		return DefaultTuning(), nil
	}
	data, err := os.ReadFile(path) //#nosec G304 -- tuning path is operator supplied
	if err != nil {
		return Tuning{}, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseTuning(data)
}

// ParseTuning decodes YAML over the defaults and validates the result.
// Unknown keys are rejected so typos do not silently fall back.
func ParseTuning(data []byte) (Tuning, error) {
	t := DefaultTuning()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return Tuning{}, fmt.Errorf("decode tuning: %w", err)
	}

	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

// Validate checks the thresholds and the rewind curve.
func (t Tuning) Validate() error {
	v := validation.New()
	if err := v.Validate(t.Chapters); err != nil {
		return fmt.Errorf("chapters: %w", err)
	}
	if err := v.Validate(t.Reconcile); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	if err := t.Rewind.Validate(); err != nil {
		return fmt.Errorf("rewind: %w", err)
	}
	return nil
}

// ReconcileOptions converts the reconcile section for the resolver.
func (t Tuning) ReconcileOptions() reconcile.Options {
	return reconcile.Options{
		Window:          t.Reconcile.Window,
		PositionEpsilon: t.Reconcile.PositionEpsilon,
	}
}
