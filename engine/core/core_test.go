package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeMismatchUnwraps(t *testing.T) {
	err := fmt.Errorf("adding quantity: %w", NewSizeMismatch(4, 3))
	assert.ErrorIs(t, err, ErrSizeMismatch)

	var sm *SizeMismatchError
	assert.True(t, errors.As(err, &sm))
	assert.Equal(t, 4, sm.Expected)
	assert.Equal(t, 3, sm.Actual)
}

func TestSurfaceRecoverable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"lost", fmt.Errorf("acquire: %w", ErrSurfaceLost), true},
		{"outdated", ErrSurfaceOutdated, true},
		{"timeout", ErrTimeout, true},
		{"oom", ErrOutOfMemory, false},
		{"render", NewRenderError("pipeline %s", "x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSurfaceRecoverable(tt.err))
		})
	}
}

func TestInputState(t *testing.T) {
	s := NewInputState()
	assert.True(t, s.ProcessKey(KEY_W, true))
	assert.False(t, s.ProcessKey(KEY_W, true))
	assert.True(t, s.IsKeyDown(KEY_W))
	assert.False(t, s.WasKeyDown(KEY_W))
	s.Update()
	assert.True(t, s.WasKeyDown(KEY_W))

	dx, dy := s.ProcessMouseMove(10, 5)
	assert.Equal(t, 10.0, dx)
	assert.Equal(t, 5.0, dy)
	dx, dy = s.ProcessMouseMove(12, 2)
	assert.Equal(t, 2.0, dx)
	assert.Equal(t, -3.0, dy)
}

func TestFrameMetrics(t *testing.T) {
	m := NewFrameMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.010)
	}
	assert.InDelta(t, 10.0, m.FrameTime(), 1e-9)
	assert.Equal(t, 0.0, TargetFrameSeconds(-1))
	assert.InDelta(t, 1.0/60.0, TargetFrameSeconds(60), 1e-12)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("warning"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("nonsense"))
}
