package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalytics() *HeatingAnalytics {
	return NewHeatingAnalytics(true, 30, 3, 0.3)
}

// feed records evenly spaced samples and returns the final instant.
func feed(a *HeatingAnalytics, key string, start time.Time, step time.Duration, heating bool, temps ...float64) time.Time {
	at := start
	for _, temp := range temps {
		a.Record(key, f(temp), heating, at)
		at = at.Add(step)
	}
	return at
}

func TestAnalyticsDisabled(t *testing.T) {

	assert := assert.New(t)
	a := NewHeatingAnalytics(false, 30, 3, 0.3)

	a.Record("z/r", f(20.0), true, time.Now())
	assert.Nil(a.Report("z/r", f(20.0), 21.0))
}

func TestAnalyticsHeatingTrend(t *testing.T) {

	require := require.New(t)
	a := newTestAnalytics()
	start := time.Now()

	// 0.5 degrees every 10 minutes is 3 degC/h
	feed(a, "z/r", start, 10*time.Minute, true, 18.0, 18.5, 19.0, 19.5, 20.0)

	report := a.Report("z/r", f(20.0), 21.0)
	require.NotNil(report)
	require.Equal("heating_rapidly", report.Trend)
	require.NotNil(report.HeatingRate)
	require.InDelta(3.0, *report.HeatingRate, 0.01)
	require.Equal(5, report.Samples)
}

func TestAnalyticsETA(t *testing.T) {

	require := require.New(t)
	a := newTestAnalyticsWithRate(t)

	// 1 degree short at 3 degC/h is 20 minutes
	report := a.Report("z/r", f(20.0), 21.0)
	require.NotNil(report)
	require.NotNil(report.ETAMinutes)
	require.Equal(20, *report.ETAMinutes)
}

func TestAnalyticsNoETAWhenMovingAway(t *testing.T) {

	require := require.New(t)
	a := newTestAnalyticsWithRate(t)

	// heating but already above target
	report := a.Report("z/r", f(22.0), 21.0)
	require.NotNil(report)
	require.Nil(report.ETAMinutes)
}

func newTestAnalyticsWithRate(t *testing.T) *HeatingAnalytics {
	t.Helper()
	a := newTestAnalytics()
	feed(a, "z/r", time.Now(), 10*time.Minute, true, 18.0, 18.5, 19.0, 19.5, 20.0)
	return a
}

func TestAnalyticsCoolingRate(t *testing.T) {

	require := require.New(t)
	a := newTestAnalytics()

	feed(a, "z/r", time.Now(), 10*time.Minute, false, 21.0, 20.8, 20.6, 20.4)

	report := a.Report("z/r", f(20.4), 20.0)
	require.NotNil(report)
	require.NotNil(report.CoolingRate)
	require.Greater(*report.CoolingRate, 0.0)
	require.Nil(report.HeatingRate)
}

func TestAnalyticsConfidenceGrowsWithSamples(t *testing.T) {

	require := require.New(t)
	a := newTestAnalytics()
	start := time.Now()

	at := feed(a, "z/r", start, 10*time.Minute, true, 18.0, 18.5)
	report := a.Report("z/r", f(18.5), 21.0)
	require.NotNil(report)
	require.Equal(0.0, report.Confidence)

	// steady climb keeps the pairwise rates consistent
	temps := make([]float64, 20)
	for i := range temps {
		temps[i] = 18.5 + 0.5*float64(i+1)
	}
	feed(a, "z/r", at, 10*time.Minute, true, temps...)

	report = a.Report("z/r", f(20.0), 21.0)
	require.NotNil(report)
	require.GreaterOrEqual(report.Confidence, 0.75)
}

func TestAnalyticsHistoryBounded(t *testing.T) {

	require := require.New(t)
	a := NewHeatingAnalytics(true, 5, 3, 0.3)
	start := time.Now()

	temps := make([]float64, 12)
	for i := range temps {
		temps[i] = 18.0 + 0.5*float64(i)
	}
	feed(a, "z/r", start, 10*time.Minute, true, temps...)

	report := a.Report("z/r", f(20.0), 25.0)
	require.NotNil(report)
	require.Equal(5, report.Samples)
}

func TestAnalyticsSkipsFlatSamples(t *testing.T) {

	require := require.New(t)
	a := newTestAnalytics()
	start := time.Now()

	a.Record("z/r", f(20.0), true, start)
	// within the minimum change and the baseline interval: dropped
	a.Record("z/r", f(20.01), true, start.Add(time.Minute))
	a.Record("z/r", f(20.02), true, start.Add(2*time.Minute))
	// past the baseline interval: kept even though flat
	a.Record("z/r", f(20.02), true, start.Add(11*time.Minute))

	report := a.Report("z/r", f(20.02), 21.0)
	require.NotNil(report)
	require.Equal(2, report.Samples)
}

func TestAnalyticsNilTemperature(t *testing.T) {

	assert := assert.New(t)
	a := newTestAnalytics()

	a.Record("z/r", nil, true, time.Now())
	assert.Nil(a.Report("z/r", nil, 21.0))
}
