package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trendsift/trendsift/app/database"
	"github.com/trendsift/trendsift/app/features"
	"github.com/trendsift/trendsift/app/pipeline"
	"github.com/trendsift/trendsift/app/sources"
	"github.com/trendsift/trendsift/app/tasks"
)

func NewHandler(sourceCache *sources.Cache, rawRepo database.RawRecordRepository,
	featureRepo database.FeatureRepository, runRepo database.RunRepository,
	p *pipeline.Pipeline, batchWindowDays int,
	scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		rawRepo:         rawRepo,
		featureRepo:     featureRepo,
		runRepo:         runRepo,
		sourceCache:     sourceCache,
		pipeline:        p,
		batchWindowDays: batchWindowDays,
		scheduler:       scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if stats, err := h.featureRepo.GetStats(c.Request.Context()); err == nil {
		health["feature_records"] = stats.Total
	}

	health["loaded_configurations"] = h.sourceCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.featureRepo.GetStats(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "get_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"total":     stats.Total,
		"trending":  stats.Trending,
		"excluded":  stats.Excluded,
		"by_reason": stats.ByReason,
	})
}

func (h *Handler) GetTrending(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}

	records, err := h.featureRepo.GetTrending(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_trending", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	items := make([]map[string]interface{}, 0, len(records))
	for i := range records {
		items = append(items, trendingSummary(&records[i]))
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"items": items,
		"total": len(items),
	})
}

func (h *Handler) GetFeature(c *gin.Context) {
	itemID := c.Param("id")
	if itemID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing item id parameter"})
		return
	}

	record, err := h.featureRepo.GetByItemID(c.Request.Context(), itemID)
	if err != nil {
		slog.Error("Database error", "operation", "get_feature", "item_id", itemID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feature record not found"})
		return
	}

	c.JSON(http.StatusOK, featureDetails(record))
}

func (h *Handler) APIListSources(c *gin.Context) {
	configs := h.sourceCache.GetConfigs()

	list := make([]map[string]interface{}, 0, len(configs))

	for _, sourceConfig := range configs {
		list = append(list, map[string]interface{}{
			"name":             sourceConfig.Name,
			"source":           sourceConfig.Source,
			"enabled":          sourceConfig.Settings.Enabled,
			"refresh_interval": (time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second).String(),
			"regions":          sourceConfig.Trending.Regions,
			"channels":         len(sourceConfig.Channels),
			"keywords":         len(sourceConfig.Keywords),
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": list,
		"total":   len(list),
	})
}

func (h *Handler) APIListRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}

	runs, err := h.runRepo.ListRuns(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	list := make([]map[string]interface{}, 0, len(runs))
	for _, run := range runs {
		list = append(list, map[string]interface{}{
			"id":               run.ID,
			"source":           run.Source,
			"run_at":           run.RunAt,
			"raw_count":        run.RawCount,
			"classified_count": run.ClassifiedCount,
			"excluded_count":   run.ExcludedCount,
			"trending_count":   run.TrendingCount,
			"violation_count":  run.ViolationCount,
			"failed":           run.Failed,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"runs":  list,
		"total": len(list),
	})
}

func (h *Handler) APIGetRunViolations(c *gin.Context) {
	runID := c.Param("id")
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing run id parameter"})
		return
	}

	violations, err := h.runRepo.GetViolations(c.Request.Context(), runID)
	if err != nil {
		slog.Error("Database error", "operation", "get_violations", "run_id", runID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	list := make([]map[string]interface{}, 0, len(violations))
	for _, v := range violations {
		entry := map[string]interface{}{
			"check":  v.Check,
			"detail": v.Detail,
		}
		if v.ItemID != nil {
			entry["item_id"] = *v.ItemID
		}
		list = append(list, entry)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"run_id":     runID,
		"violations": list,
		"total":      len(list),
	})
}

func (h *Handler) APIComputeSource(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	sourceConfig, err := h.sourceCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	computeTask := tasks.NewComputeFeaturesTask(name, sourceConfig.Source, h.rawRepo, h.featureRepo, h.runRepo, h.pipeline, h.batchWindowDays)
	err = h.scheduler.EnqueueTask(computeTask)
	if err != nil {
		slog.Error("Error enqueueing compute task", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue compute task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Feature recompute enqueued successfully",
		"task": gin.H{
			"id":   computeTask.ID,
			"type": computeTask.Type,
		},
	})
}

func (h *Handler) APIReloadSource(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	if _, err := h.sourceCache.GetConfig(name); err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	syncTask := tasks.NewSyncSourceConfigTask(name, h.sourceCache)
	err := h.scheduler.EnqueueTask(syncTask)
	if err != nil {
		slog.Error("Error enqueueing sync task", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue sync task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Configuration reload enqueued successfully",
		"task": gin.H{
			"id":   syncTask.ID,
			"type": syncTask.Type,
		},
	})
}

// trendingSummary is the compact listing shape used by the trending
// endpoint.
func trendingSummary(rec *features.FeatureRecord) map[string]interface{} {
	entry := map[string]interface{}{
		"item_id":         rec.ItemID,
		"title":           rec.Title,
		"channel_title":   rec.ChannelTitle,
		"category_name":   rec.CategoryName,
		"view_count":      rec.ViewCount,
		"engagement_rate": rec.EngagementRate,
		"engagement_tier": rec.EngagementTier,
		"is_short":        rec.IsShort,
		"age_bucket":      rec.AgeBucket,
		"trending_reason": rec.TrendingReason,
	}
	if rec.PublishedAt != nil {
		entry["published_at"] = rec.PublishedAt.Format(time.RFC3339)
	}
	if rec.ViewsPerHour != nil {
		entry["views_per_hour"] = *rec.ViewsPerHour
	}
	return entry
}

// featureDetails is the full record shape used by the single-item endpoint.
// Nullable derived fields are omitted rather than rendered as null.
func featureDetails(rec *features.FeatureRecord) map[string]interface{} {
	details := trendingSummary(rec)

	details["description"] = rec.Description
	details["channel_id"] = rec.ChannelID
	details["category_id"] = rec.CategoryID
	details["audio_language"] = rec.AudioLanguage
	details["is_audio_english"] = rec.IsAudioEnglish
	details["like_count"] = rec.LikeCount
	details["comment_count"] = rec.CommentCount
	details["tags"] = rec.Tags
	details["detected_topics"] = rec.DetectedTopics
	details["topic_categories"] = rec.TopicCategories
	details["detected_language"] = rec.DetectedLanguage
	details["is_trending"] = rec.IsTrending
	details["title_len"] = rec.TitleLen
	details["title_has_numbers"] = rec.TitleHasNumbers
	details["content_length_bucket"] = rec.ContentLengthBucket
	details["engagement_ratio_raw"] = rec.EngagementRatioRaw
	details["fetched_at"] = rec.FetchedAt.Format(time.RFC3339)

	if rec.DurationSeconds != nil {
		details["duration_seconds"] = *rec.DurationSeconds
	}
	if rec.ChannelSubscriberCount != nil {
		details["channel_subscriber_count"] = *rec.ChannelSubscriberCount
	}
	if rec.HourOfDay != nil {
		details["hour_of_day"] = *rec.HourOfDay
	}
	if rec.DayOfWeek != nil {
		details["day_of_week"] = *rec.DayOfWeek
	}
	if rec.AgeHours != nil {
		details["age_hours"] = *rec.AgeHours
	}
	if rec.ViewsPerHourPer1kSubs != nil {
		details["views_per_hour_per_1k_subs"] = *rec.ViewsPerHourPer1kSubs
	}
	if rec.VphPctInCategory != nil {
		details["vph_pct_in_category"] = *rec.VphPctInCategory
	}
	if rec.VphPctInChannel != nil {
		details["vph_pct_in_channel"] = *rec.VphPctInChannel
	}

	return details
}
