package features

// Thresholds is the fixed configuration surface of the derivation and
// classification stages. A Thresholds value must not change within a run:
// every item of a batch is scored against the same knobs so results stay
// comparable across the batch.
type Thresholds struct {
	// ShortMaxDurationSeconds classifies known durations strictly below it
	// as short-form. 60s matches the platform's original shorts cutoff;
	// exactly 60s is regular content.
	ShortMaxDurationSeconds int64

	// Engagement tier cutoffs on the raw (likes+comments)/views ratio.
	TierHighCutoff   float64
	TierMediumCutoff float64
	TierLowCutoff    float64

	// Engagement floors below which an item can never trend.
	ShortsEngagementFloor  float64
	RegularEngagementFloor float64

	// Absolute view-count floors.
	ShortsViewFloor  int64
	RegularViewFloor int64

	// Percentile gates for the velocity branch.
	CategoryPercentileGate float64
	ChannelPercentileGate  float64

	// Views-per-hour floors per age bucket. Short-form accrues views faster
	// at lower per-view engagement, so it carries its own floor table.
	ShortsVelocityFloor  map[string]float64
	RegularVelocityFloor map[string]float64

	// MinAgeHours caps the velocity denominator from below so that
	// just-published items do not produce explosive views-per-hour values.
	MinAgeHours float64

	// Content length bucket boundaries in seconds, closed-open.
	MediumMinSeconds   int64
	LongMinSeconds     int64
	VeryLongMinSeconds int64
}

// DefaultThresholds returns the production knob set.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ShortMaxDurationSeconds: 60,

		TierHighCutoff:   0.10,
		TierMediumCutoff: 0.05,
		TierLowCutoff:    0.01,

		ShortsEngagementFloor:  0.005,
		RegularEngagementFloor: 0.01,

		ShortsViewFloor:  1000,
		RegularViewFloor: 3000,

		CategoryPercentileGate: 0.90,
		ChannelPercentileGate:  0.95,

		ShortsVelocityFloor: map[string]float64{
			Age0To24h:  1000,
			Age24To72h: 500,
			Age3To7d:   200,
			Age7dPlus:  100,
		},
		RegularVelocityFloor: map[string]float64{
			Age0To24h:  200,
			Age24To72h: 100,
			Age3To7d:   50,
			Age7dPlus:  25,
		},

		MinAgeHours: 6.0,

		MediumMinSeconds:   60,
		LongMinSeconds:     600,
		VeryLongMinSeconds: 1800,
	}
}
