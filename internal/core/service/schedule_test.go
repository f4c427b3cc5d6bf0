package service

import (
	"testing"
	"time"

	"heatwarden2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

func testSchedule() domain.Schedule {
	return domain.Schedule{
		Weekday: []domain.SchedulePeriod{
			{StartMinutes: 6 * 60, EndMinutes: 9 * 60, Target: 20},
			{StartMinutes: 17 * 60, EndMinutes: 22 * 60, Target: 21},
		},
		Weekend: []domain.SchedulePeriod{
			{StartMinutes: 8 * 60, EndMinutes: 23 * 60, Target: 21.5},
		},
	}
}

func TestScheduledTargetWeekday(t *testing.T) {

	assert := assert.New(t)
	r := NewScheduleResolver(16)

	// 2026-01-05 is a Monday
	at := time.Date(2026, 1, 5, 7, 30, 0, 0, time.UTC)
	assert.Equal(20.0, r.ScheduledTarget(testSchedule(), at))

	at = time.Date(2026, 1, 5, 18, 0, 0, 0, time.UTC)
	assert.Equal(21.0, r.ScheduledTarget(testSchedule(), at))
}

func TestScheduledTargetWeekend(t *testing.T) {

	assert := assert.New(t)
	r := NewScheduleResolver(16)

	at := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC) // Saturday
	assert.Equal(21.5, r.ScheduledTarget(testSchedule(), at))
}

func TestScheduledTargetGapUsesMinimum(t *testing.T) {

	assert := assert.New(t)
	r := NewScheduleResolver(16)

	at := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	assert.Equal(16.0, r.ScheduledTarget(testSchedule(), at))
}

func TestPeriodBoundariesHalfOpen(t *testing.T) {

	assert := assert.New(t)
	r := NewScheduleResolver(16)

	// start minute is inside the period, end minute is not
	start := time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	assert.Equal(20.0, r.ScheduledTarget(testSchedule(), start))
	assert.Equal(16.0, r.ScheduledTarget(testSchedule(), end))
}

func TestTargetChangedEpsilon(t *testing.T) {

	assert := assert.New(t)

	assert.False(TargetChanged(20.0, 20.0))
	assert.False(TargetChanged(20.0, 20.005))
	assert.True(TargetChanged(20.0, 20.5))
}
