package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCalculator(enabled bool) *SetpointCalculator {
	return NewSetpointCalculator(enabled, 5.0, 0.3, 1.0, 7.0)
}

func TestSetpointPassthroughWhenDisabled(t *testing.T) {

	assert := assert.New(t)
	c := newTestCalculator(false)

	assert.Equal(20.0, c.Compute(20.0, f(15.0), f(2.0)))
}

func TestSetpointPassthroughWithoutOffset(t *testing.T) {

	assert := assert.New(t)
	c := newTestCalculator(true)

	assert.Equal(20.0, c.Compute(20.0, f(15.0), nil))
}

func TestSetpointPassthroughWithoutRoomTemp(t *testing.T) {

	assert := assert.New(t)
	c := newTestCalculator(true)

	assert.Equal(20.0, c.Compute(20.0, nil, f(2.0)))
}

func TestSetpointDeficitTiers(t *testing.T) {

	assert := assert.New(t)
	c := newTestCalculator(true)
	offset := f(0.0)

	// deficit > 3 gets the maximum boost
	assert.Equal(25.0, c.Compute(20.0, f(16.0), offset))
	// 1.5 < deficit <= 3 scales with the deficit
	assert.Equal(23.0, c.Compute(20.0, f(18.0), offset))
	// 0.5 < deficit <= 1.5 gets a fixed moderate boost
	assert.Equal(21.5, c.Compute(20.0, f(19.0), offset))
	// small deficit gets a nudge
	assert.InDelta(20.5, c.Compute(20.0, f(19.8), offset), 1e-9)
}

func TestSetpointScaledBoostCapped(t *testing.T) {

	assert := assert.New(t)
	c := NewSetpointCalculator(true, 2.0, 0.3, 1.0, 7.0)

	// deficit 2.9 scales to 4.35 but is capped at the maximum
	assert.InDelta(22.0, c.Compute(20.0, f(17.1), f(0.0)), 1e-9)
}

func TestSetpointOffsetApplied(t *testing.T) {

	assert := assert.New(t)
	c := newTestCalculator(true)

	// deficit 1 gives boost 1.5, plus the learned offset
	assert.InDelta(23.5, c.Compute(20.0, f(19.0), f(2.0)), 1e-9)
}

func TestSetpointClampedToMaximum(t *testing.T) {

	assert := assert.New(t)
	c := newTestCalculator(true)

	// target 20, max boost 5, offset 6: raw 31 clamps to 30
	assert.Equal(30.0, c.Compute(20.0, f(15.0), f(6.0)))
}

func TestSetpointClampedToFrostProtection(t *testing.T) {

	assert := assert.New(t)
	c := newTestCalculator(true)

	// overshoot correction with a strongly negative offset
	assert.Equal(7.0, c.Compute(10.0, f(12.0), f(-5.0)))
	assert.Equal(7.0, c.Compute(5.0, nil, nil))
}

func TestSetpointOvershootCorrection(t *testing.T) {

	assert := assert.New(t)
	c := newTestCalculator(true)

	// room 20.5 against target 20 is past the threshold: command
	// below target, compensated by the offset
	assert.Equal(25.0, c.Compute(20.0, f(20.5), f(6.0)))
	// just under the threshold still uses the deficit path
	assert.InDelta(20.5, c.Compute(20.0, f(20.2), f(0.0)), 1e-9)
}

func TestSetpointCommandRecordsLast(t *testing.T) {

	require := require.New(t)
	c := newTestCalculator(true)

	cmd := c.Command("z", "r", "trv1", 20.0, f(19.0), f(2.0))
	require.Equal("trv1", cmd.TRVID)
	last := c.LastCommanded("trv1")
	require.NotNil(last)
	require.Equal(cmd.Setpoint, *last)

	require.Nil(c.LastCommanded("trv2"))
}
