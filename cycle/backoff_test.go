package cycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_DoublesUntilCap(t *testing.T) {
	t.Parallel()
	cfg := BackoffConfig{BaseDelayMs: 1000, MaxDelayMs: 5000}

	d0 := cfg.Delay(0)
	assert.GreaterOrEqual(t, d0.Milliseconds(), int64(1000))
	assert.LessOrEqual(t, d0.Milliseconds(), int64(1200))

	d3 := cfg.Delay(3)
	assert.LessOrEqual(t, d3.Milliseconds(), int64(6000))
	assert.GreaterOrEqual(t, d3.Milliseconds(), int64(5000))
}

func TestBackoff_DefaultsWhenZero(t *testing.T) {
	t.Parallel()
	cfg := BackoffConfig{}
	d := cfg.Delay(0)
	assert.Greater(t, d.Milliseconds(), int64(0))
}
