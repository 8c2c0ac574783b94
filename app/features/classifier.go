package features

// Classifier turns an item's local features and cohort percentiles into a
// trending decision with a human-readable reason. Pure and total over one
// record; evaluating the same record always yields the same answer.
type Classifier struct {
	thresholds Thresholds
}

func NewClassifier(thresholds Thresholds) *Classifier {
	return &Classifier{thresholds: thresholds}
}

// Run evaluates the decision ladder in order; the first matching rejection
// short-circuits with its reason. Items that clear every rejection land in
// the combined velocity/percentile branch, which is all-or-nothing: its
// reason is velocity_percentile whether it passes or fails.
func (c *Classifier) Run(rec FeatureRecord) (bool, string) {
	t := c.thresholds

	if rec.PublishedAt == nil {
		return false, ReasonMissingPublishedAt
	}

	if rec.IsTrendingSourceFlagged {
		return true, ReasonSourceFlagged
	}

	if rec.IsShort && rec.EngagementRatioRaw < t.ShortsEngagementFloor {
		return false, ReasonShortsLowEngagement
	}
	if !rec.IsShort && rec.EngagementRatioRaw < t.RegularEngagementFloor {
		return false, ReasonRegularLowEngagement
	}

	if rec.IsShort && rec.ViewCount < t.ShortsViewFloor {
		return false, ReasonShortsLowViews
	}
	if !rec.IsShort && rec.ViewCount < t.RegularViewFloor {
		return false, ReasonRegularLowViews
	}

	return c.velocityBranch(rec), ReasonVelocityPercentile
}

// velocityBranch is the combined predicate: cohort percentile gate AND
// engagement floor AND velocity floor. The view floor already held for any
// record that reaches this branch.
func (c *Classifier) velocityBranch(rec FeatureRecord) bool {
	t := c.thresholds

	categoryPass := rec.VphPctInCategory != nil && *rec.VphPctInCategory >= t.CategoryPercentileGate
	channelPass := rec.VphPctInChannel != nil && *rec.VphPctInChannel >= t.ChannelPercentileGate
	if !categoryPass && !channelPass {
		return false
	}

	if rec.EngagementRatioRaw < t.RegularEngagementFloor {
		return false
	}

	if rec.ViewsPerHour == nil {
		return false
	}

	floors := t.RegularVelocityFloor
	if rec.IsShort {
		floors = t.ShortsVelocityFloor
	}
	floor, ok := floors[rec.AgeBucket]
	if !ok {
		floor = floors[Age7dPlus]
	}

	return *rec.ViewsPerHour >= floor
}
