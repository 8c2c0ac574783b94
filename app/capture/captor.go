package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/trendsift/trendsift/app/normalizer"
	"github.com/trendsift/trendsift/app/payload"
	"github.com/trendsift/trendsift/app/sources"
)

// Program names recorded in the `_capture` payload annotation. The trending
// program marks items the source itself considers trending at capture time.
const (
	ProgramTrending    = "trending"
	ProgramCompetitors = "competitors"
	ProgramKeywords    = "keywords"
)

// Report summarizes one capture run.
type Report struct {
	Fetched          int
	AfterGate        int
	ProgramBreakdown map[string]int
	Duration         time.Duration
}

// Captor aggregates videos across the configured programs, applies the
// relevance gate, and emits annotated raw records ready for persistence.
type Captor struct {
	client   *Client
	feeds    *ChannelFeedReader
	taxonomy *sources.Taxonomy
}

func NewCaptor(client *Client, feeds *ChannelFeedReader, taxonomy *sources.Taxonomy) *Captor {
	return &Captor{client: client, feeds: feeds, taxonomy: taxonomy}
}

// Run executes every configured program for one source, deduplicating
// across programs. Quota exhaustion stops further fetching but keeps what
// was already aggregated.
func (c *Captor) Run(ctx context.Context, config *sources.Config) ([]normalizer.RawRecord, Report, error) {
	started := time.Now()
	gate := NewGate(c.taxonomy, config.Relevance)
	timeout := time.Duration(config.Settings.Timeout) * time.Second

	seen := make(map[string]bool)
	records := []normalizer.RawRecord{}
	report := Report{ProgramBreakdown: map[string]int{}}

	appendItems := func(program string, items []json.RawMessage) {
		for _, item := range items {
			report.Fetched++

			doc := payload.NewDoc(item)
			videoID := doc.String("id")
			if videoID == "" || seen[videoID] {
				continue
			}
			seen[videoID] = true

			title := doc.FirstString("snippet.localized.title", "snippet.title")
			description := doc.FirstString("snippet.localized.description", "snippet.description")

			result := gate.Run(
				title,
				description,
				doc.String("snippet.categoryId"),
				doc.String("snippet.defaultAudioLanguage"),
			)
			if !result.Allowed {
				continue
			}

			annotated, err := annotate(item, program, hasShortsMarker(title, description), result)
			if err != nil {
				slog.Warn("Failed to annotate payload, skipping", "video", videoID, "error", err)
				continue
			}

			records = append(records, normalizer.RawRecord{
				Source:     config.Source,
				ExternalID: videoID,
				FetchedAt:  time.Now().UTC(),
				Payload:    annotated,
			})
			report.AfterGate++
			report.ProgramBreakdown[program]++
		}
	}

	if len(config.Trending.Regions) > 0 {
		for _, region := range config.Trending.Regions {
			fetchCtx, cancel := timeoutContext(ctx, config.Settings.Timeout)
			items, err := c.client.MostPopular(fetchCtx, region, config.Settings.MaxPages)
			cancel()
			if err != nil {
				if quotaStop(err, ProgramTrending, "region", region) {
					break
				}
				continue
			}
			appendItems(ProgramTrending, items)
		}
	}

	if len(config.Channels) > 0 {
		ids := []string{}
		for _, channel := range config.Channels {
			channelIDs, err := c.feeds.RecentUploadIDs(ctx, channel.Handle, channel.FeedURL, timeout)
			if err != nil {
				slog.Warn("Failed to read channel feed", "channel", channel.Handle, "error", err)
				continue
			}
			for _, id := range channelIDs {
				if !seen[id] {
					ids = append(ids, id)
				}
			}
		}

		if len(ids) > 0 {
			fetchCtx, cancel := timeoutContext(ctx, config.Settings.Timeout)
			items, err := c.client.HydrateVideos(fetchCtx, ids)
			cancel()
			if err != nil {
				quotaStop(err, ProgramCompetitors, "ids", fmt.Sprint(len(ids)))
			}
			appendItems(ProgramCompetitors, items)
		}
	}

	if len(config.Keywords) > 0 {
		ids := []string{}
		pending := map[string]bool{}
		for _, keyword := range config.Keywords {
			fetchCtx, cancel := timeoutContext(ctx, config.Settings.Timeout)
			keywordIDs, err := c.client.SearchVideoIDs(fetchCtx, keyword, nil, config.Settings.MaxPages)
			cancel()
			if err != nil {
				if quotaStop(err, ProgramKeywords, "keyword", keyword) {
					break
				}
				continue
			}
			for _, id := range keywordIDs {
				if !seen[id] && !pending[id] {
					pending[id] = true
					ids = append(ids, id)
				}
			}
		}

		if len(ids) > 0 {
			fetchCtx, cancel := timeoutContext(ctx, config.Settings.Timeout)
			items, err := c.client.HydrateVideos(fetchCtx, ids)
			cancel()
			if err != nil {
				quotaStop(err, ProgramKeywords, "ids", fmt.Sprint(len(ids)))
			}
			appendItems(ProgramKeywords, items)
		}
	}

	if err := c.backfillChannelMetadata(ctx, records, timeout); err != nil {
		slog.Warn("Channel metadata backfill incomplete", "error", err)
	}

	report.Duration = time.Since(started)

	slog.Info("Capture run completed", "source", config.Name,
		"fetched", report.Fetched, "after_gate", report.AfterGate,
		"programs", report.ProgramBreakdown, "duration", report.Duration)

	return records, report, nil
}

// backfillChannelMetadata attaches subscriber counts to every captured
// payload so the deriver can compute per-subscriber velocity.
func (c *Captor) backfillChannelMetadata(ctx context.Context, records []normalizer.RawRecord, timeout time.Duration) error {
	channelIDs := []string{}
	seen := map[string]bool{}
	for _, rec := range records {
		id := payload.NewDoc(rec.Payload).String("snippet.channelId")
		if id != "" && !seen[id] {
			seen[id] = true
			channelIDs = append(channelIDs, id)
		}
	}
	if len(channelIDs) == 0 {
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	counts, err := c.client.ChannelSubscribers(fetchCtx, channelIDs)
	if err != nil {
		return err
	}

	for i, rec := range records {
		channelID := payload.NewDoc(rec.Payload).String("snippet.channelId")
		subs, ok := counts[channelID]
		if !ok {
			continue
		}

		var doc map[string]interface{}
		if err := json.Unmarshal(rec.Payload, &doc); err != nil {
			continue
		}
		doc["_channel_metadata"] = map[string]interface{}{"subscriber_count": subs}

		if updated, err := json.Marshal(doc); err == nil {
			records[i].Payload = updated
		}
	}

	return nil
}

// hasShortsMarker reports whether the creator labeled the upload as
// short-form. Duration alone misses shorts posted at exactly the cutoff.
func hasShortsMarker(title, description string) bool {
	return strings.Contains(strings.ToLower(title), "#shorts") ||
		strings.Contains(strings.ToLower(description), "#shorts")
}

// annotate merges the capture program and gate labels into the payload.
func annotate(item json.RawMessage, program string, shorts bool, result RelevanceResult) ([]byte, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(item, &doc); err != nil {
		return nil, fmt.Errorf("payload is not a JSON object: %w", err)
	}

	doc["_capture"] = map[string]interface{}{
		"program": program,
		"shorts":  shorts,
	}
	doc["_filter_metadata"] = map[string]interface{}{
		"detected_language": result.DetectedLanguage,
		"category_name":     result.CategoryName,
		"detected_topics":   result.Topics,
	}

	return json.Marshal(doc)
}

// quotaStop logs a fetch failure and reports whether it was quota
// exhaustion, in which case the program should stop fetching.
func quotaStop(err error, program, key, value string) bool {
	var quotaErr *ErrQuotaExceeded
	if errors.As(err, &quotaErr) {
		slog.Error("Quota exceeded, stopping program", "program", program, key, value, "error", err)
		return true
	}
	slog.Warn("Fetch failed", "program", program, key, value, "error", err)
	return false
}
