package features

import (
	"testing"
	"time"

	"github.com/trendsift/trendsift/app/normalizer"
)

func classifiable(isShort bool, views int64, ratio float64, ageBucket string) FeatureRecord {
	published := time.Date(2025, 6, 19, 8, 0, 0, 0, time.UTC)
	return FeatureRecord{
		NormalizedItem: normalizer.NormalizedItem{
			ItemID:      "item",
			PublishedAt: &published,
			ViewCount:   views,
		},
		IsShort:            isShort,
		EngagementRatioRaw: ratio,
		AgeBucket:          ageBucket,
	}
}

func TestClassifyMissingPublishedAt(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	rec := classifiable(false, 100000, 0.5, Age0To24h)
	rec.PublishedAt = nil
	rec.IsTrendingSourceFlagged = true

	trending, reason := c.Run(rec)
	if trending {
		t.Error("Items without publication timestamp must never trend")
	}
	if reason != ReasonMissingPublishedAt {
		t.Errorf("Expected reason %s, got %s", ReasonMissingPublishedAt, reason)
	}
}

func TestClassifySourceFlagged(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	// Source flag wins even with terrible engagement and views
	rec := classifiable(false, 10, 0.0001, Age7dPlus)
	rec.IsTrendingSourceFlagged = true

	trending, reason := c.Run(rec)
	if !trending {
		t.Error("Source-flagged items always trend")
	}
	if reason != ReasonSourceFlagged {
		t.Errorf("Expected reason %s, got %s", ReasonSourceFlagged, reason)
	}
}

func TestClassifyEngagementFloors(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	trending, reason := c.Run(classifiable(true, 50000, 0.004, Age0To24h))
	if trending || reason != ReasonShortsLowEngagement {
		t.Errorf("Expected rejection %s, got trending=%v reason=%s", ReasonShortsLowEngagement, trending, reason)
	}

	trending, reason = c.Run(classifiable(false, 50000, 0.009, Age0To24h))
	if trending || reason != ReasonRegularLowEngagement {
		t.Errorf("Expected rejection %s, got trending=%v reason=%s", ReasonRegularLowEngagement, trending, reason)
	}
}

func TestClassifyViewFloors(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	trending, reason := c.Run(classifiable(true, 999, 0.05, Age0To24h))
	if trending || reason != ReasonShortsLowViews {
		t.Errorf("Expected rejection %s, got trending=%v reason=%s", ReasonShortsLowViews, trending, reason)
	}

	// Regular video with 500 views: engagement may pass but views cannot
	trending, reason = c.Run(classifiable(false, 500, 0.05, Age0To24h))
	if trending || reason != ReasonRegularLowViews {
		t.Errorf("Expected rejection %s, got trending=%v reason=%s", ReasonRegularLowViews, trending, reason)
	}
}

func TestClassifyVelocityBranchPasses(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	// Short, 2000 views, 0.02 engagement, 96th channel percentile, fresh,
	// 1200 views/hour: clears every gate via the channel percentile.
	rec := classifiable(true, 2000, 0.02, Age0To24h)
	rec.VphPctInChannel = f64(0.96)
	rec.VphPctInCategory = f64(0.50)
	rec.ViewsPerHour = f64(1200)

	trending, reason := c.Run(rec)
	if !trending {
		t.Error("Expected item to trend via the velocity branch")
	}
	if reason != ReasonVelocityPercentile {
		t.Errorf("Expected reason %s, got %s", ReasonVelocityPercentile, reason)
	}
}

func TestClassifyVelocityBranchPercentileGate(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	rec := classifiable(false, 50000, 0.05, Age0To24h)
	rec.ViewsPerHour = f64(5000)

	// Neither percentile clears its gate
	rec.VphPctInCategory = f64(0.89)
	rec.VphPctInChannel = f64(0.94)
	if trending, _ := c.Run(rec); trending {
		t.Error("Both percentiles below their gates must not trend")
	}

	// Category gate alone suffices
	rec.VphPctInCategory = f64(0.90)
	if trending, _ := c.Run(rec); !trending {
		t.Error("Category percentile at the gate should trend")
	}

	// Channel gate alone suffices
	rec.VphPctInCategory = f64(0.10)
	rec.VphPctInChannel = f64(0.95)
	if trending, _ := c.Run(rec); !trending {
		t.Error("Channel percentile at the gate should trend")
	}

	// Nil percentiles never pass
	rec.VphPctInCategory = nil
	rec.VphPctInChannel = nil
	if trending, _ := c.Run(rec); trending {
		t.Error("Nil percentiles must not pass the gate")
	}
}

func TestClassifyVelocityBranchEngagementFloor(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	// A short passing the shorts floor (0.005) but below the branch's
	// regular floor (0.01) fails the velocity branch.
	rec := classifiable(true, 5000, 0.007, Age0To24h)
	rec.VphPctInChannel = f64(0.99)
	rec.ViewsPerHour = f64(5000)

	trending, reason := c.Run(rec)
	if trending {
		t.Error("Velocity branch requires the regular engagement floor")
	}
	if reason != ReasonVelocityPercentile {
		t.Errorf("Expected reason %s, got %s", ReasonVelocityPercentile, reason)
	}
}

func TestClassifyVelocityFloorTables(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	tests := []struct {
		name    string
		isShort bool
		bucket  string
		vph     float64
		want    bool
	}{
		{"short fresh at floor", true, Age0To24h, 1000, true},
		{"short fresh below floor", true, Age0To24h, 999, false},
		{"short 1-3d at floor", true, Age24To72h, 500, true},
		{"short 3-7d at floor", true, Age3To7d, 200, true},
		{"short stale at floor", true, Age7dPlus, 100, true},
		{"regular fresh at floor", false, Age0To24h, 200, true},
		{"regular fresh below floor", false, Age0To24h, 199, false},
		{"regular 1-3d at floor", false, Age24To72h, 100, true},
		{"regular 3-7d at floor", false, Age3To7d, 50, true},
		{"regular stale at floor", false, Age7dPlus, 25, true},
		{"unknown bucket falls back to stale floor", false, "bogus", 25, true},
		{"unknown bucket below fallback floor", false, "bogus", 24, false},
	}

	for _, tt := range tests {
		rec := classifiable(tt.isShort, 50000, 0.05, tt.bucket)
		rec.VphPctInCategory = f64(0.99)
		rec.ViewsPerHour = f64(tt.vph)

		trending, _ := c.Run(rec)
		if trending != tt.want {
			t.Errorf("%s: trending = %v, expected %v", tt.name, trending, tt.want)
		}
	}
}

func TestClassifyVelocityBranchNilVelocity(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	rec := classifiable(false, 50000, 0.05, Age0To24h)
	rec.VphPctInCategory = f64(0.99)
	rec.ViewsPerHour = nil

	if trending, _ := c.Run(rec); trending {
		t.Error("Missing velocity must not pass the velocity branch")
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	rec := classifiable(true, 2000, 0.02, Age0To24h)
	rec.VphPctInChannel = f64(0.96)
	rec.ViewsPerHour = f64(1200)

	first, firstReason := c.Run(rec)
	for i := 0; i < 5; i++ {
		got, reason := c.Run(rec)
		if got != first || reason != firstReason {
			t.Fatal("Classifying the same record twice gave different answers")
		}
	}
}
