package features

import (
	"math"
	"strings"
	"time"

	"github.com/trendsift/trendsift/app/normalizer"
)

// Deriver computes item-local derived metrics from a normalized item. It is
// a pure function of (item, now) and holds no state besides its thresholds.
type Deriver struct {
	thresholds Thresholds
}

func NewDeriver(thresholds Thresholds) *Deriver {
	return &Deriver{thresholds: thresholds}
}

// Run derives the local feature fields. Cohort percentiles and the trending
// decision are filled in later by the Ranker and Classifier.
func (d *Deriver) Run(item normalizer.NormalizedItem, now time.Time) FeatureRecord {
	rec := FeatureRecord{
		NormalizedItem:      item,
		TitleLen:            len([]rune(item.Title)),
		TitleHasNumbers:     strings.ContainsAny(item.Title, "0123456789"),
		IsShort:             d.isShort(item),
		ContentLengthBucket: d.contentLengthBucket(item.DurationSeconds),
	}

	rec.EngagementRatioRaw = engagementRatio(item.ViewCount, item.LikeCount, item.CommentCount)
	rec.EngagementRate = round2(rec.EngagementRatioRaw * 100)
	rec.EngagementTier = d.engagementTier(rec.EngagementRatioRaw)

	if item.PublishedAt == nil {
		// No publication timestamp: age and velocity stay nil, and the item
		// is excluded from trend classification rather than aborting the run.
		rec.IsTrending = false
		rec.TrendingReason = ReasonMissingPublishedAt
		return rec
	}

	published := item.PublishedAt.UTC()
	hour := published.Hour()
	day := int(published.Weekday())
	rec.HourOfDay = &hour
	rec.DayOfWeek = &day

	ageHours := now.Sub(published).Hours()
	if ageHours < 0 {
		// Publication timestamps ahead of the evaluation clock are treated
		// as just published (clock skew between source and pipeline).
		ageHours = 0
	}
	ageCapped := math.Max(ageHours, d.thresholds.MinAgeHours)

	rec.AgeHours = &ageHours
	rec.AgeHoursCapped = &ageCapped
	rec.AgeBucket = ageBucket(ageHours)

	vph := float64(item.ViewCount) / ageCapped
	rec.ViewsPerHour = &vph

	if subs := item.ChannelSubscriberCount; subs != nil && *subs > 0 {
		perK := vph / (float64(*subs) / 1000.0)
		rec.ViewsPerHourPer1kSubs = &perK
	}

	return rec
}

func (d *Deriver) isShort(item normalizer.NormalizedItem) bool {
	if item.IsShortFlagged {
		return true
	}
	return item.DurationSeconds != nil && *item.DurationSeconds < d.thresholds.ShortMaxDurationSeconds
}

func (d *Deriver) contentLengthBucket(duration *int64) string {
	switch {
	case duration == nil:
		return LengthUnknown
	case *duration < d.thresholds.MediumMinSeconds:
		return LengthShort
	case *duration < d.thresholds.LongMinSeconds:
		return LengthMedium
	case *duration < d.thresholds.VeryLongMinSeconds:
		return LengthLong
	default:
		return LengthVeryLong
	}
}

func (d *Deriver) engagementTier(ratio float64) string {
	switch {
	case ratio >= d.thresholds.TierHighCutoff:
		return TierHigh
	case ratio >= d.thresholds.TierMediumCutoff:
		return TierMedium
	case ratio >= d.thresholds.TierLowCutoff:
		return TierLow
	default:
		return TierVeryLow
	}
}

// engagementRatio is (likes+comments)/views with the zero-view case pinned
// to exactly 0.0.
func engagementRatio(views, likes, comments int64) float64 {
	if views <= 0 {
		return 0.0
	}
	return float64(likes+comments) / float64(views)
}

func ageBucket(ageHours float64) string {
	switch {
	case ageHours < 24:
		return Age0To24h
	case ageHours < 72:
		return Age24To72h
	case ageHours < 168:
		return Age3To7d
	default:
		return Age7dPlus
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
