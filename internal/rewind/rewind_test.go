package rewind

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeconds_DefaultCurve(t *testing.T) {
	tests := []struct {
		name  string
		pause time.Duration
		max   int
		want  int
	}{
		{name: "no pause", pause: 0, max: 60, want: 0},
		{name: "accidental tap", pause: 1500 * time.Millisecond, max: 60, want: 0},
		{name: "exactly negligible", pause: 2 * time.Second, max: 60, want: 0},
		{name: "three seconds", pause: 3000 * time.Millisecond, max: 60, want: 3},
		{name: "just under ten seconds", pause: 9999 * time.Millisecond, max: 60, want: 9},
		{name: "ten seconds", pause: 10 * time.Second, max: 60, want: 10},
		{name: "two minutes", pause: 2 * time.Minute, max: 60, want: 15},
		{name: "ten minutes", pause: 10 * time.Minute, max: 60, want: 20},
		{name: "forty minutes", pause: 40 * time.Minute, max: 60, want: 30},
		{name: "one hour saturates", pause: time.Hour, max: 60, want: 60},
		{name: "one day capped", pause: 86_400_000 * time.Millisecond, max: 30, want: 30},
		{name: "cap applies to steps", pause: 10 * time.Minute, max: 12, want: 12},
		{name: "zero max", pause: time.Hour, max: 0, want: 0},
		{name: "negative max", pause: time.Hour, max: -5, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Seconds(tt.pause, tt.max))
		})
	}
}

func TestSeconds_BoundedAndMonotonic(t *testing.T) {
	for _, maxRewind := range []int{0, 5, 12, 30, 60, 600} {
		prev := 0
		for pause := time.Duration(0); pause <= 3*time.Hour; pause += 700 * time.Millisecond {
			got := Seconds(pause, maxRewind)
			require.GreaterOrEqual(t, got, 0)
			require.LessOrEqual(t, got, maxRewind)
			require.GreaterOrEqual(t, got, prev, "pause=%s max=%d", pause, maxRewind)
			prev = got
		}
		assert.Equal(t, max(0, maxRewind), Seconds(time.Duration(1<<62), maxRewind))
	}
}

func TestCurve_Validate(t *testing.T) {
	require.NoError(t, DefaultCurve().Validate())

	c := DefaultCurve()
	c.Steps[1].Seconds = 5
	assert.Error(t, c.Validate(), "decreasing rewind")

	c = DefaultCurve()
	c.Steps[2].From = time.Second * 30
	assert.Error(t, c.Validate(), "unordered steps")

	c = DefaultCurve()
	c.Proportional = time.Second
	assert.Error(t, c.Validate(), "proportional below negligible")

	c = DefaultCurve()
	c.Saturate = 20 * time.Minute
	assert.Error(t, c.Validate(), "saturation before last step")
}

func TestCurve_ValidateProportionalGap(t *testing.T) {
	c := Curve{
		Negligible:   2 * time.Second,
		Proportional: 10 * time.Second,
		Steps:        []Step{{From: time.Minute, Seconds: 15}},
		Saturate:     time.Hour,
	}
	assert.Greater(t, c.Seconds(59*time.Second, 90), c.Seconds(time.Minute, 90))
	assert.Error(t, c.Validate(), "step below the proportional rewind leading into it")

	c.Steps[0].Seconds = 60
	require.NoError(t, c.Validate())
	prev := 0
	for pause := time.Duration(0); pause <= 2*time.Hour; pause += time.Second {
		got := c.Seconds(pause, 90)
		require.GreaterOrEqual(t, got, prev, "pause %s", pause)
		prev = got
	}
}

func TestCurve_CustomBreakpoints(t *testing.T) {
	c := Curve{
		Negligible:   time.Second,
		Proportional: 5 * time.Second,
		Steps:        []Step{{From: 5 * time.Second, Seconds: 8}},
	}
	require.NoError(t, c.Validate())

	assert.Equal(t, 0, c.Seconds(time.Second, 60))
	assert.Equal(t, 4, c.Seconds(4*time.Second, 60))
	assert.Equal(t, 8, c.Seconds(5*time.Second, 60))
	assert.Equal(t, 8, c.Seconds(10*time.Hour, 60), "no saturation configured")
}
