package service

// Reported setpoints further than this from the last commanded value
// count as a manual change on the valve itself.
const overrideBand = 0.5

// ManualOverride reports whether a TRV setpoint looks hand-adjusted.
// Without a reported or last commanded value there is nothing to
// compare, so no override is flagged.
func ManualOverride(reported, lastCommanded *float64, ignore bool) bool {
	if ignore || reported == nil || lastCommanded == nil {
		return false
	}
	diff := *reported - *lastCommanded
	if diff < 0 {
		diff = -diff
	}
	return diff > overrideBand
}
