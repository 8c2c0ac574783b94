package features

import (
	"math"
	"testing"
	"time"

	"github.com/trendsift/trendsift/app/normalizer"
)

var testNow = time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)

func i64(v int64) *int64 { return &v }

func publishedHoursAgo(hours float64) *time.Time {
	t := testNow.Add(-time.Duration(hours * float64(time.Hour)))
	return &t
}

func TestDeriveTitleFeatures(t *testing.T) {
	d := NewDeriver(DefaultThresholds())

	rec := d.Run(normalizer.NormalizedItem{
		ItemID:      "a",
		Title:       "Top 10 Go Tips",
		PublishedAt: publishedHoursAgo(10),
	}, testNow)

	if rec.TitleLen != 14 {
		t.Errorf("Expected title length 14, got %d", rec.TitleLen)
	}
	if !rec.TitleHasNumbers {
		t.Error("Expected title to be flagged as containing numbers")
	}

	rec = d.Run(normalizer.NormalizedItem{Title: "Naïve café", PublishedAt: publishedHoursAgo(10)}, testNow)
	if rec.TitleLen != 10 {
		t.Errorf("Title length should count runes, expected 10, got %d", rec.TitleLen)
	}
	if rec.TitleHasNumbers {
		t.Error("Expected no numbers flag")
	}
}

func TestDeriveIsShort(t *testing.T) {
	d := NewDeriver(DefaultThresholds())

	tests := []struct {
		name     string
		duration *int64
		flagged  bool
		want     bool
	}{
		{"flagged overrides unknown duration", nil, true, true},
		{"flagged overrides long duration", i64(600), true, true},
		{"duration below cutoff", i64(59), false, true},
		{"duration exactly at cutoff is regular", i64(60), false, false},
		{"long duration", i64(1200), false, false},
		{"unknown duration unflagged", nil, false, false},
	}

	for _, tt := range tests {
		rec := d.Run(normalizer.NormalizedItem{
			DurationSeconds: tt.duration,
			IsShortFlagged:  tt.flagged,
			PublishedAt:     publishedHoursAgo(10),
		}, testNow)
		if rec.IsShort != tt.want {
			t.Errorf("%s: IsShort = %v, expected %v", tt.name, rec.IsShort, tt.want)
		}
	}
}

func TestDeriveContentLengthBucket(t *testing.T) {
	d := NewDeriver(DefaultThresholds())

	tests := []struct {
		duration *int64
		want     string
	}{
		{nil, LengthUnknown},
		{i64(0), LengthShort},
		{i64(59), LengthShort},
		{i64(60), LengthMedium},
		{i64(599), LengthMedium},
		{i64(600), LengthLong},
		{i64(1799), LengthLong},
		{i64(1800), LengthVeryLong},
		{i64(7200), LengthVeryLong},
	}

	for _, tt := range tests {
		rec := d.Run(normalizer.NormalizedItem{
			DurationSeconds: tt.duration,
			PublishedAt:     publishedHoursAgo(10),
		}, testNow)
		if rec.ContentLengthBucket != tt.want {
			t.Errorf("duration %v: bucket = %s, expected %s", tt.duration, rec.ContentLengthBucket, tt.want)
		}
	}
}

func TestDeriveEngagement(t *testing.T) {
	d := NewDeriver(DefaultThresholds())

	rec := d.Run(normalizer.NormalizedItem{
		ViewCount:    10000,
		LikeCount:    300,
		CommentCount: 45,
		PublishedAt:  publishedHoursAgo(10),
	}, testNow)

	if math.Abs(rec.EngagementRatioRaw-0.0345) > 1e-9 {
		t.Errorf("Expected ratio 0.0345, got %f", rec.EngagementRatioRaw)
	}
	if rec.EngagementRate != 3.45 {
		t.Errorf("Expected rate 3.45, got %f", rec.EngagementRate)
	}
	if rec.EngagementTier != TierLow {
		t.Errorf("Expected tier %s, got %s", TierLow, rec.EngagementTier)
	}
}

func TestDeriveEngagementZeroViews(t *testing.T) {
	d := NewDeriver(DefaultThresholds())

	rec := d.Run(normalizer.NormalizedItem{
		ViewCount:    0,
		LikeCount:    50,
		CommentCount: 10,
		PublishedAt:  publishedHoursAgo(10),
	}, testNow)

	if rec.EngagementRatioRaw != 0.0 {
		t.Errorf("Zero views must pin ratio to 0, got %f", rec.EngagementRatioRaw)
	}
	if rec.EngagementRate != 0.0 {
		t.Errorf("Expected rate 0, got %f", rec.EngagementRate)
	}
	if rec.EngagementTier != TierVeryLow {
		t.Errorf("Expected tier %s, got %s", TierVeryLow, rec.EngagementTier)
	}
}

func TestDeriveEngagementTiers(t *testing.T) {
	d := NewDeriver(DefaultThresholds())

	tests := []struct {
		likes int64
		want  string
	}{
		{1000, TierHigh},  // ratio 0.10
		{500, TierMedium}, // ratio 0.05
		{100, TierLow},    // ratio 0.01
		{99, TierVeryLow}, // just below low cutoff
		{1500, TierHigh},  // above high cutoff
	}

	for _, tt := range tests {
		rec := d.Run(normalizer.NormalizedItem{
			ViewCount:   10000,
			LikeCount:   tt.likes,
			PublishedAt: publishedHoursAgo(10),
		}, testNow)
		if rec.EngagementTier != tt.want {
			t.Errorf("likes=%d: tier = %s, expected %s", tt.likes, rec.EngagementTier, tt.want)
		}
	}
}

func TestDeriveMissingPublishedAt(t *testing.T) {
	d := NewDeriver(DefaultThresholds())

	rec := d.Run(normalizer.NormalizedItem{
		ItemID:    "no-ts",
		ViewCount: 5000,
		LikeCount: 100,
	}, testNow)

	if rec.IsTrending {
		t.Error("Item without publication timestamp must not trend")
	}
	if rec.TrendingReason != ReasonMissingPublishedAt {
		t.Errorf("Expected reason %s, got %s", ReasonMissingPublishedAt, rec.TrendingReason)
	}
	if rec.AgeHours != nil || rec.ViewsPerHour != nil || rec.HourOfDay != nil || rec.DayOfWeek != nil {
		t.Error("Time-derived fields must stay nil without a publication timestamp")
	}

	// Local features are still derived
	if rec.EngagementRatioRaw == 0 {
		t.Error("Engagement should still be derived for excluded items")
	}
}

func TestDeriveAgeAndVelocity(t *testing.T) {
	d := NewDeriver(DefaultThresholds())

	rec := d.Run(normalizer.NormalizedItem{
		ViewCount:   24000,
		PublishedAt: publishedHoursAgo(48),
	}, testNow)

	if rec.AgeHours == nil || math.Abs(*rec.AgeHours-48) > 1e-9 {
		t.Fatalf("Expected age 48h, got %v", rec.AgeHours)
	}
	if rec.AgeBucket != Age24To72h {
		t.Errorf("Expected bucket %s, got %s", Age24To72h, rec.AgeBucket)
	}
	if rec.ViewsPerHour == nil || math.Abs(*rec.ViewsPerHour-500) > 1e-9 {
		t.Errorf("Expected 500 views/hour, got %v", rec.ViewsPerHour)
	}
}

func TestDeriveVelocityDenominatorFloor(t *testing.T) {
	d := NewDeriver(DefaultThresholds())

	// 1 hour old: the denominator is floored at MinAgeHours
	rec := d.Run(normalizer.NormalizedItem{
		ViewCount:   6000,
		PublishedAt: publishedHoursAgo(1),
	}, testNow)

	if rec.AgeHours == nil || math.Abs(*rec.AgeHours-1) > 1e-9 {
		t.Fatalf("Expected raw age 1h, got %v", rec.AgeHours)
	}
	if rec.AgeHoursCapped == nil || *rec.AgeHoursCapped != 6.0 {
		t.Fatalf("Expected capped age 6h, got %v", rec.AgeHoursCapped)
	}
	if rec.ViewsPerHour == nil || math.Abs(*rec.ViewsPerHour-1000) > 1e-9 {
		t.Errorf("Expected 1000 views/hour with floored denominator, got %v", rec.ViewsPerHour)
	}
}

func TestDeriveClockSkew(t *testing.T) {
	d := NewDeriver(DefaultThresholds())

	future := testNow.Add(2 * time.Hour)
	rec := d.Run(normalizer.NormalizedItem{
		ViewCount:   1200,
		PublishedAt: &future,
	}, testNow)

	if rec.AgeHours == nil || *rec.AgeHours != 0 {
		t.Errorf("Future publication should clamp age to 0, got %v", rec.AgeHours)
	}
	if rec.AgeBucket != Age0To24h {
		t.Errorf("Expected bucket %s, got %s", Age0To24h, rec.AgeBucket)
	}
	if rec.ViewsPerHour == nil || math.Abs(*rec.ViewsPerHour-200) > 1e-9 {
		t.Errorf("Expected 1200/6 = 200 views/hour, got %v", rec.ViewsPerHour)
	}
}

func TestDeriveAgeBuckets(t *testing.T) {
	tests := []struct {
		hours float64
		want  string
	}{
		{0, Age0To24h},
		{23.9, Age0To24h},
		{24, Age24To72h},
		{71.9, Age24To72h},
		{72, Age3To7d},
		{167.9, Age3To7d},
		{168, Age7dPlus},
		{500, Age7dPlus},
	}

	for _, tt := range tests {
		if got := ageBucket(tt.hours); got != tt.want {
			t.Errorf("ageBucket(%.1f) = %s, expected %s", tt.hours, got, tt.want)
		}
	}
}

func TestDerivePerSubscriberVelocity(t *testing.T) {
	d := NewDeriver(DefaultThresholds())

	rec := d.Run(normalizer.NormalizedItem{
		ViewCount:              12000,
		ChannelSubscriberCount: i64(50000),
		PublishedAt:            publishedHoursAgo(12),
	}, testNow)

	// 1000 vph over 50 thousand-subscriber units
	if rec.ViewsPerHourPer1kSubs == nil || math.Abs(*rec.ViewsPerHourPer1kSubs-20) > 1e-9 {
		t.Errorf("Expected 20 views/hour per 1k subs, got %v", rec.ViewsPerHourPer1kSubs)
	}

	// Zero subscribers: field stays nil rather than dividing by zero
	rec = d.Run(normalizer.NormalizedItem{
		ViewCount:              12000,
		ChannelSubscriberCount: i64(0),
		PublishedAt:            publishedHoursAgo(12),
	}, testNow)
	if rec.ViewsPerHourPer1kSubs != nil {
		t.Error("Expected nil per-subscriber velocity for zero subscribers")
	}

	rec = d.Run(normalizer.NormalizedItem{
		ViewCount:   12000,
		PublishedAt: publishedHoursAgo(12),
	}, testNow)
	if rec.ViewsPerHourPer1kSubs != nil {
		t.Error("Expected nil per-subscriber velocity without subscriber count")
	}
}

func TestDeriveHourAndDay(t *testing.T) {
	d := NewDeriver(DefaultThresholds())

	published := time.Date(2025, 6, 18, 9, 30, 0, 0, time.UTC) // a Wednesday
	rec := d.Run(normalizer.NormalizedItem{PublishedAt: &published}, testNow)

	if rec.HourOfDay == nil || *rec.HourOfDay != 9 {
		t.Errorf("Expected hour 9, got %v", rec.HourOfDay)
	}
	if rec.DayOfWeek == nil || *rec.DayOfWeek != 3 {
		t.Errorf("Expected day 3 (Wednesday), got %v", rec.DayOfWeek)
	}
}
