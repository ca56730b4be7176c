package predict

// TimeSync estimates clock skew against the authority and nudges the local
// tick rate so prediction depth neither grows without bound nor starves.
// Its only inputs are round-trip latency samples; its only output is a
// small multiplicative correction to the tick interval.
type TimeSync struct {
	samples      []float64 // round-trip latency samples, milliseconds
	minSamples   int
	maxNudge     float64 // clamp, e.g. 0.05 for +-5%
	baseInterval float64 // milliseconds per tick at 1.0x rate
}

// NewTimeSync returns a TimeSync requiring minSamples latency samples
// before it will produce a nudge, and clamping any nudge to +-maxNudgeFrac
// of baseIntervalMs.
func NewTimeSync(minSamples int, maxNudgeFrac, baseIntervalMs float64) *TimeSync {
	return &TimeSync{
		minSamples:   minSamples,
		maxNudge:     maxNudgeFrac,
		baseInterval: baseIntervalMs,
	}
}

// AddSample records a round-trip latency sample in milliseconds.
func (ts *TimeSync) AddSample(rttMs float64) {
	ts.samples = append(ts.samples, rttMs)
	if len(ts.samples) > 64 {
		ts.samples = ts.samples[len(ts.samples)-64:]
	}
}

// NeedsMoreSamples reports whether fewer than minSamples have been
// collected yet.
func (ts *TimeSync) NeedsMoreSamples() bool {
	return len(ts.samples) < ts.minSamples
}

// filteredMean returns the mean of ts.samples after discarding values more
// than one standard deviation from the raw mean — a cheap outlier filter
// against one-off latency spikes (a dropped packet, a GC pause on the
// server) skewing the estimate.
func (ts *TimeSync) filteredMean() float64 {
	n := len(ts.samples)
	if n == 0 {
		return 0
	}
	var sum float64
	for _, s := range ts.samples {
		sum += s
	}
	mean := sum / float64(n)

	var variance float64
	for _, s := range ts.samples {
		d := s - mean
		variance += d * d
	}
	variance /= float64(n)
	stddev := sqrt(variance)

	var filteredSum float64
	var filteredN int
	for _, s := range ts.samples {
		d := s - mean
		if d < 0 {
			d = -d
		}
		if d <= stddev || filteredN == 0 {
			filteredSum += s
			filteredN++
		}
	}
	if filteredN == 0 {
		return mean
	}
	return filteredSum / float64(filteredN)
}

func sqrt(x float64) float64 {
	if x <= 0 {
		return 0
	}
	guess := x
	for i := 0; i < 32; i++ {
		guess = (guess + x/guess) / 2
	}
	return guess
}

// TickRateMultiplier returns the multiplicative correction to apply to the
// local tick interval, clamped to +-maxNudge. Half of the filtered mean
// round-trip time is treated as one-way clock skew; a positive skew (we are
// ahead of the authority) slows the local clock down, a negative skew
// speeds it up.
func (ts *TimeSync) TickRateMultiplier() float64 {
	if ts.NeedsMoreSamples() {
		return 1.0
	}
	skewMs := ts.filteredMean() / 2
	nudge := skewMs / ts.baseInterval
	if nudge > ts.maxNudge {
		nudge = ts.maxNudge
	}
	if nudge < -ts.maxNudge {
		nudge = -ts.maxNudge
	}
	return 1.0 + nudge
}

// TargetFrame projects the frame number the authority is likely at right
// now, given its last known frame and the elapsed time since that was
// reported.
func (ts *TimeSync) TargetFrame(lastKnownAuthorityFrame uint32, elapsedMs float64) uint32 {
	ticksElapsed := elapsedMs / (ts.baseInterval * ts.TickRateMultiplier())
	return lastKnownAuthorityFrame + uint32(ticksElapsed)
}

// Reset discards all samples.
func (ts *TimeSync) Reset() { ts.samples = ts.samples[:0] }
