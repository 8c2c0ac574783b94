package features

import (
	"fmt"
)

// Quality gate check names, stable identifiers for the diagnostics boundary.
const (
	CheckUniqueItemID         = "unique_item_id"
	CheckEngagementTier       = "engagement_tier_domain"
	CheckEngagementRate       = "engagement_rate_non_negative"
	CheckReferentialIntegrity = "referential_integrity"
)

var validTiers = map[string]struct{}{
	TierHigh:    {},
	TierMedium:  {},
	TierLow:     {},
	TierVeryLow: {},
}

// QualityGate runs post-computation invariant checks over a finished batch.
// It never mutates its input; a non-empty result marks the batch untrusted
// for downstream consumption without dropping already-computed records.
type QualityGate struct{}

func NewQualityGate() *QualityGate {
	return &QualityGate{}
}

// Run validates the batch against the count of raw records it was computed
// from. rawCount < 0 skips the referential check for callers that validate
// a standalone batch.
func (g *QualityGate) Run(batch []FeatureRecord, rawCount int) []Violation {
	violations := []Violation{}

	seen := make(map[string]bool, len(batch))
	reported := make(map[string]bool)
	for _, rec := range batch {
		if seen[rec.ItemID] {
			if !reported[rec.ItemID] {
				violations = append(violations, itemViolation(rec.ItemID, CheckUniqueItemID,
					fmt.Sprintf("item_id %q appears more than once in the batch", rec.ItemID)))
				reported[rec.ItemID] = true
			}
			continue
		}
		seen[rec.ItemID] = true
	}

	for _, rec := range batch {
		if _, ok := validTiers[rec.EngagementTier]; !ok {
			violations = append(violations, itemViolation(rec.ItemID, CheckEngagementTier,
				fmt.Sprintf("engagement_tier %q is outside the allowed domain", rec.EngagementTier)))
		}
		if rec.EngagementRate < 0 {
			violations = append(violations, itemViolation(rec.ItemID, CheckEngagementRate,
				fmt.Sprintf("engagement_rate %.2f is negative", rec.EngagementRate)))
		}
	}

	if rawCount >= 0 && len(batch) != rawCount {
		violations = append(violations, Violation{
			Check: CheckReferentialIntegrity,
			Detail: fmt.Sprintf("batch holds %d feature records for %d raw records; every raw record maps to exactly one feature record",
				len(batch), rawCount),
		})
	}

	return violations
}

func itemViolation(itemID, check, detail string) Violation {
	id := itemID
	return Violation{ItemID: &id, Check: check, Detail: detail}
}
