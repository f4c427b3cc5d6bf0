package service

import (
	"math"
	"time"

	"heatwarden2mqtt/internal/core/domain"
)

const (
	// Samples closer than this in temperature are only recorded on
	// state transitions or as periodic baselines.
	analyticsMinChange = 0.05
	// A baseline sample is taken at least this often even when the
	// temperature is flat.
	analyticsBaselineInterval = 600 * time.Second
	// Rates below this are treated as no movement when estimating
	// time to target.
	analyticsMinRate = 0.05
)

type analyticsSample struct {
	temperature float64
	at          time.Time
	heating     bool
}

type roomAnalytics struct {
	samples      []analyticsSample
	trendRate    float64
	trendSet     bool
	heatingRate  float64
	heatingSet   bool
	coolingRate  float64
	coolingSet   bool
	lastRecorded *analyticsSample
	lastHeating  bool
}

// HeatingAnalytics derives heating and cooling rates per room from the
// resolved temperature history and projects time to target. Purely
// informational, the control loop never reads it.
type HeatingAnalytics struct {
	enabled     bool
	historySize int
	minSamples  int
	smoothing   float64
	rooms       map[string]*roomAnalytics
}

func NewHeatingAnalytics(enabled bool, historySize, minSamples int, smoothing float64) *HeatingAnalytics {
	return &HeatingAnalytics{
		enabled:     enabled,
		historySize: historySize,
		minSamples:  minSamples,
		smoothing:   smoothing,
		rooms:       map[string]*roomAnalytics{},
	}
}

// Record feeds one tick's resolved temperature for a room. Samples are
// kept when the temperature moved, the heating state flipped, or the
// periodic baseline interval elapsed.
func (a *HeatingAnalytics) Record(key string, temperature *float64, heating bool, now time.Time) {
	if !a.enabled || temperature == nil {
		return
	}
	room, ok := a.rooms[key]
	if !ok {
		room = &roomAnalytics{}
		a.rooms[key] = room
	}

	keep := false
	switch {
	case room.lastRecorded == nil:
		keep = true
	case heating != room.lastHeating:
		keep = true
	case math.Abs(*temperature-room.lastRecorded.temperature) >= analyticsMinChange:
		keep = true
	case now.Sub(room.lastRecorded.at) >= analyticsBaselineInterval:
		keep = true
	}
	room.lastHeating = heating
	if !keep {
		return
	}

	sample := analyticsSample{temperature: *temperature, at: now, heating: heating}
	room.samples = append(room.samples, sample)
	if len(room.samples) > a.historySize {
		room.samples = room.samples[len(room.samples)-a.historySize:]
	}
	room.lastRecorded = &sample
	a.updateRates(room)
}

func (a *HeatingAnalytics) updateRates(room *roomAnalytics) {
	rate, heating, ok := room.instantRate()
	if !ok {
		return
	}

	if !room.trendSet {
		room.trendRate = rate
		room.trendSet = true
	} else {
		room.trendRate = a.smoothing*rate + (1-a.smoothing)*room.trendRate
	}

	if heating && rate > 0 {
		if !room.heatingSet {
			room.heatingRate = rate
			room.heatingSet = true
		} else {
			room.heatingRate = a.smoothing*rate + (1-a.smoothing)*room.heatingRate
		}
	} else if !heating && rate < 0 {
		if !room.coolingSet {
			room.coolingRate = rate
			room.coolingSet = true
		} else {
			room.coolingRate = a.smoothing*rate + (1-a.smoothing)*room.coolingRate
		}
	}
}

// instantRate returns the rate in degrees per hour between the last
// two samples, with a 2-sigma outlier cut once enough history exists.
// The heating flag of the interval is taken from the later sample.
func (r *roomAnalytics) instantRate() (float64, bool, bool) {
	if len(r.samples) < 2 {
		return 0, false, false
	}
	last := r.samples[len(r.samples)-1]
	prev := r.samples[len(r.samples)-2]
	elapsed := last.at.Sub(prev.at).Hours()
	if elapsed <= 0 {
		return 0, false, false
	}
	rate := (last.temperature - prev.temperature) / elapsed

	rates := r.pairwiseRates()
	if len(rates) >= 5 {
		mean, stddev := meanStddev(rates)
		if stddev > 0 && math.Abs(rate-mean) > 2*stddev {
			return 0, false, false
		}
	}
	return rate, last.heating, true
}

func (r *roomAnalytics) pairwiseRates() []float64 {
	var rates []float64
	for i := 1; i < len(r.samples); i++ {
		elapsed := r.samples[i].at.Sub(r.samples[i-1].at).Hours()
		if elapsed <= 0 {
			continue
		}
		rates = append(rates, (r.samples[i].temperature-r.samples[i-1].temperature)/elapsed)
	}
	return rates
}

// Report summarizes the room's trend against its current target.
func (a *HeatingAnalytics) Report(key string, temperature *float64, target float64) *domain.AnalyticsData {
	if !a.enabled {
		return nil
	}
	room, ok := a.rooms[key]
	if !ok || !room.trendSet || temperature == nil {
		return nil
	}

	data := &domain.AnalyticsData{
		Trend:      trendLabel(room.trendRate),
		Confidence: a.confidence(room),
		Samples:    len(room.samples),
	}
	if room.heatingSet {
		v := roundTo(room.heatingRate, 2)
		data.HeatingRate = &v
	}
	if room.coolingSet {
		v := roundTo(math.Abs(room.coolingRate), 2)
		data.CoolingRate = &v
	}

	diff := target - *temperature
	rate := room.trendRate
	movingToward := (diff > 0 && rate > 0) || (diff < 0 && rate < 0)
	if movingToward && math.Abs(rate) >= analyticsMinRate {
		minutes := int(math.Round(math.Abs(diff/rate) * 60))
		data.ETAMinutes = &minutes
	}
	return data
}

func trendLabel(rate float64) string {
	switch {
	case rate > 1.0:
		return "heating_rapidly"
	case rate > 0.2:
		return "heating_slowly"
	case rate >= -0.2:
		return "stable"
	case rate >= -1.0:
		return "cooling_slowly"
	default:
		return "cooling_rapidly"
	}
}

// confidence grows with sample count and shrinks when the pairwise
// rates disagree with each other.
func (a *HeatingAnalytics) confidence(r *roomAnalytics) float64 {
	n := len(r.samples)
	var base float64
	switch {
	case n < a.minSamples:
		return 0
	case n < 10:
		base = 0.5
	case n < 20:
		base = 0.75
	default:
		base = 0.9
	}

	rates := r.pairwiseRates()
	if len(rates) >= 2 {
		mean, stddev := meanStddev(rates)
		if mean != 0 {
			cv := math.Abs(stddev / mean)
			if cv > 1.0 {
				base *= 0.5
			} else if cv > 0.5 {
				base *= 0.75
			}
		}
	}
	return roundTo(base, 2)
}

func meanStddev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
