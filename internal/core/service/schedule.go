package service

import (
	"math"
	"time"

	"heatwarden2mqtt/internal/core/domain"
)

// targetEpsilon is the negligible difference below which two targets
// are considered equal.
const targetEpsilon = 0.01

// ScheduleResolver looks up the scheduled target temperature for a
// zone at a given instant.
type ScheduleResolver struct {
	minimumTemp float64
}

func NewScheduleResolver(minimumTemp float64) *ScheduleResolver {
	return &ScheduleResolver{minimumTemp: minimumTemp}
}

// ScheduledTarget returns the target of the first period containing
// now, or the configured minimum temperature when no period matches.
func (r *ScheduleResolver) ScheduledTarget(schedule domain.Schedule, now time.Time) float64 {
	periods := schedule.Weekday
	if isWeekend(now) {
		periods = schedule.Weekend
	}
	minutes := now.Hour()*60 + now.Minute()
	for _, p := range periods {
		if p.StartMinutes <= minutes && minutes < p.EndMinutes {
			return p.Target
		}
	}
	return r.minimumTemp
}

// ResolveTarget returns the scheduled target and whether it differs
// from the caller's previous effective target.
func (r *ScheduleResolver) ResolveTarget(schedule domain.Schedule, now time.Time, priorTarget float64) (float64, bool) {
	target := r.ScheduledTarget(schedule, now)
	return target, TargetChanged(target, priorTarget)
}

// TargetChanged reports whether two targets differ by more than the
// negligible epsilon.
func TargetChanged(target, prior float64) bool {
	return math.Abs(target-prior) > targetEpsilon
}

func isWeekend(now time.Time) bool {
	wd := now.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
