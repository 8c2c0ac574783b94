package features

import (
	"sync"
)

// Ranker computes percentile standing of each item's velocity within its
// peer cohorts. It needs the full batch materialized: percentiles are
// batch-relative, so re-running with a different batch composition changes
// them. Partitions are independent and are ranked concurrently.
type Ranker struct{}

func NewRanker() *Ranker {
	return &Ranker{}
}

type cohortKey struct {
	dimension string
	bucket    string
}

// Run populates VphPctInCategory and VphPctInChannel in place and returns
// the same slice. Items without velocity (missing publication timestamp)
// keep nil percentiles and only ever rank among nothing.
func (r *Ranker) Run(batch []FeatureRecord) []FeatureRecord {
	categoryCohorts := partition(batch, func(rec FeatureRecord) cohortKey {
		// An empty category id groups all unknown-category items into one
		// implicit cohort per age bucket.
		return cohortKey{dimension: rec.CategoryID, bucket: rec.AgeBucket}
	})
	channelCohorts := partition(batch, func(rec FeatureRecord) cohortKey {
		return cohortKey{dimension: rec.ChannelID, bucket: rec.AgeBucket}
	})

	categoryPct := rankCohorts(batch, categoryCohorts)
	channelPct := rankCohorts(batch, channelCohorts)

	for i := range batch {
		if batch[i].ViewsPerHour == nil {
			continue
		}
		if pct, ok := categoryPct[i]; ok {
			v := pct
			batch[i].VphPctInCategory = &v
		}
		if pct, ok := channelPct[i]; ok {
			v := pct
			batch[i].VphPctInChannel = &v
		}
	}

	return batch
}

// partition groups batch indexes by cohort key, skipping items that carry
// no velocity value.
func partition(batch []FeatureRecord, keyFn func(FeatureRecord) cohortKey) map[cohortKey][]int {
	cohorts := make(map[cohortKey][]int)
	for i, rec := range batch {
		if rec.ViewsPerHour == nil {
			continue
		}
		key := keyFn(rec)
		cohorts[key] = append(cohorts[key], i)
	}
	return cohorts
}

// rankCohorts computes the percentile of every member of every cohort,
// cohorts in parallel. The result maps batch index to percentile.
func rankCohorts(batch []FeatureRecord, cohorts map[cohortKey][]int) map[int]float64 {
	var mu sync.Mutex
	var wg sync.WaitGroup
	result := make(map[int]float64, len(batch))

	for _, members := range cohorts {
		wg.Add(1)
		go func(members []int) {
			defer wg.Done()

			local := make(map[int]float64, len(members))
			for _, idx := range members {
				local[idx] = percentileRank(batch, members, *batch[idx].ViewsPerHour)
			}

			mu.Lock()
			for idx, pct := range local {
				result[idx] = pct
			}
			mu.Unlock()
		}(members)
	}

	wg.Wait()
	return result
}

// percentileRank is the strict-less-than rank convention: the count of peers
// with a smaller value divided by (n-1). Tied values share a percentile, and
// a cohort of one yields 0 — an item with no peers cannot be relatively
// extreme.
func percentileRank(batch []FeatureRecord, members []int, value float64) float64 {
	n := len(members)
	if n <= 1 {
		return 0
	}

	below := 0
	for _, idx := range members {
		if *batch[idx].ViewsPerHour < value {
			below++
		}
	}

	return float64(below) / float64(n-1)
}
