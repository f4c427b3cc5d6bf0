package service

import (
	"heatwarden2mqtt/internal/core/domain"
)

// ZoneDemand aggregates per-room results into a zone heating demand.
// An active boost in any room always demands heat. Otherwise any_room
// takes the OR of the per-room deadband decisions, while zone_average
// compares the mean resolved temperature against the mean target.
func ZoneDemand(rooms []domain.RoomResult, mode domain.DemandMode, deadband float64) bool {
	for _, r := range rooms {
		if r.Boost != nil {
			return true
		}
	}

	switch mode {
	case domain.DemandZoneAverage:
		var tempSum, targetSum float64
		n := 0
		for _, r := range rooms {
			if r.Temperature == nil {
				continue
			}
			tempSum += *r.Temperature
			targetSum += r.EffectiveTarget
			n++
		}
		if n == 0 {
			return false
		}
		avgTemp := tempSum / float64(n)
		avgTarget := targetSum / float64(n)
		return avgTemp < avgTarget-deadband
	default:
		for _, r := range rooms {
			if r.NeedsHeating {
				return true
			}
		}
		return false
	}
}

// GlobalDemand is true when any zone demands heat.
func GlobalDemand(zones []domain.ZoneResult) bool {
	for _, z := range zones {
		if z.HeatingDemand {
			return true
		}
	}
	return false
}
