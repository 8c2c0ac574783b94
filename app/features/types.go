package features

import (
	"github.com/trendsift/trendsift/app/normalizer"
)

// Engagement tiers derived from the raw engagement ratio.
const (
	TierHigh    = "high"
	TierMedium  = "medium"
	TierLow     = "low"
	TierVeryLow = "very_low"
)

// Content length buckets over known duration, closed-open intervals.
const (
	LengthUnknown  = "unknown"
	LengthShort    = "short"
	LengthMedium   = "medium"
	LengthLong     = "long"
	LengthVeryLong = "very_long"
)

// Age buckets over hours since publication, closed-open intervals.
const (
	Age0To24h  = "0_24h"
	Age24To72h = "24_72h"
	Age3To7d   = "3_7d"
	Age7dPlus  = "7d_plus"
)

// Trending decision reasons.
const (
	ReasonSourceFlagged        = "source_flagged"
	ReasonShortsLowEngagement  = "shorts_low_engagement"
	ReasonRegularLowEngagement = "regular_low_engagement"
	ReasonShortsLowViews       = "shorts_low_views"
	ReasonRegularLowViews      = "regular_low_views"
	ReasonVelocityPercentile   = "velocity_percentile"
	ReasonMissingPublishedAt   = "missing_published_at"
)

// FeatureRecord is one fully derived item, keyed by ItemID. Velocity and
// percentile fields are nil for items without a publication timestamp; such
// items are excluded from trend classification but still emitted.
type FeatureRecord struct {
	normalizer.NormalizedItem

	TitleLen        int
	TitleHasNumbers bool
	HourOfDay       *int
	DayOfWeek       *int

	IsShort             bool
	ContentLengthBucket string

	EngagementRatioRaw float64
	EngagementRate     float64
	EngagementTier     string

	AgeHours       *float64
	AgeHoursCapped *float64
	AgeBucket      string

	ViewsPerHour          *float64
	ViewsPerHourPer1kSubs *float64

	VphPctInCategory *float64
	VphPctInChannel  *float64

	IsTrending     bool
	TrendingReason string
}

// Violation is one quality-gate finding. ItemID is nil for batch-level
// checks such as referential count mismatches.
type Violation struct {
	ItemID *string
	Check  string
	Detail string
}

func (v Violation) String() string {
	id := "<batch>"
	if v.ItemID != nil {
		id = *v.ItemID
	}
	return id + ": " + v.Check + ": " + v.Detail
}
