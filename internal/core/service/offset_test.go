package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffsetFirstSampleSeedsEMA(t *testing.T) {

	require := require.New(t)
	l := NewOffsetLearner(0.15)

	l.Observe("trv1", f(22.0), f(20.0), time.Now())
	offset := l.Current("trv1")
	require.NotNil(offset)
	require.Equal(2.0, *offset)
}

func TestOffsetEMAUpdate(t *testing.T) {

	require := require.New(t)
	l := NewOffsetLearner(0.15)
	now := time.Now()

	l.Observe("trv1", f(22.0), f(20.0), now)
	l.Observe("trv1", f(23.0), f(20.0), now)

	// 0.15*3 + 0.85*2 = 2.15
	offset := l.Current("trv1")
	require.NotNil(offset)
	require.InDelta(2.15, *offset, 1e-9)
}

func TestOffsetEMAConvergence(t *testing.T) {

	require := require.New(t)
	l := NewOffsetLearner(0.15)
	now := time.Now()

	l.Observe("trv1", f(20.0), f(20.0), now)
	for i := 0; i < 100; i++ {
		l.Observe("trv1", f(23.0), f(20.0), now)
	}

	offset := l.Current("trv1")
	require.NotNil(offset)
	require.InDelta(3.0, *offset, 0.01)
}

func TestOffsetSkipsMissingReadings(t *testing.T) {

	assert := assert.New(t)
	l := NewOffsetLearner(0.15)
	now := time.Now()

	l.Observe("trv1", nil, f(20.0), now)
	l.Observe("trv1", f(22.0), nil, now)
	assert.Nil(l.Current("trv1"))

	l.Observe("trv1", f(22.0), f(20.0), now)
	// a later skipped tick does not decay the average
	l.Observe("trv1", nil, nil, now)
	offset := l.Current("trv1")
	assert.NotNil(offset)
	assert.Equal(2.0, *offset)
}

func TestOffsetRoundTrip(t *testing.T) {

	require := require.New(t)
	l := NewOffsetLearner(0.15)
	l.Observe("trv1", f(22.0), f(20.0), time.Now())

	restored := NewOffsetLearner(0.15)
	restored.Restore(l.SnapshotState())
	offset := restored.Current("trv1")
	require.NotNil(offset)
	require.Equal(2.0, *offset)
}
