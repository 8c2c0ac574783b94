package normalizer

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/trendsift/trendsift/app/payload"
)

// MaxDescriptionLength bounds stored descriptions.
const MaxDescriptionLength = 1000

// noLinguisticContent is the ISO 639-2 sentinel for content without spoken
// language (music, ambience). Such items pass the English gate.
const noLinguisticContent = "zxx"

var durationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// Normalizer converts raw source payloads into typed items. It is a total
// function: malformed or missing fields degrade to documented defaults and
// never abort processing.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Run normalizes one raw record. Exactly one NormalizedItem is produced per
// RawRecord regardless of payload shape.
func (n *Normalizer) Run(raw RawRecord) NormalizedItem {
	doc := payload.NewDoc(raw.Payload)

	audioLanguage := doc.String("snippet.defaultAudioLanguage")

	item := NormalizedItem{
		ItemID:                  raw.ExternalID,
		Title:                   doc.FirstString("snippet.localized.title", "snippet.title"),
		Description:             truncate(doc.FirstString("snippet.localized.description", "snippet.description"), MaxDescriptionLength),
		ChannelID:               doc.String("snippet.channelId"),
		ChannelTitle:            doc.String("snippet.channelTitle"),
		PublishedAt:             doc.Time("snippet.publishedAt"),
		CategoryID:              doc.String("snippet.categoryId"),
		AudioLanguage:           audioLanguage,
		IsAudioEnglish:          IsEnglishAudio(audioLanguage),
		ViewCount:               doc.Count("statistics.viewCount"),
		LikeCount:               doc.Count("statistics.likeCount"),
		CommentCount:            doc.Count("statistics.commentCount"),
		DurationSeconds:         parseDuration(doc.String("contentDetails.duration")),
		Tags:                    doc.Strings("snippet.tags"),
		DetectedTopics:          doc.Strings("_filter_metadata.detected_topics"),
		TopicCategories:         doc.Strings("topicDetails.topicCategories"),
		DetectedLanguage:        doc.String("_filter_metadata.detected_language"),
		CategoryName:            doc.String("_filter_metadata.category_name"),
		ChannelSubscriberCount:  doc.OptionalCount("_channel_metadata.subscriber_count"),
		IsShortFlagged:          doc.Bool("_capture.shorts"),
		IsTrendingSourceFlagged: doc.String("_capture.program") == "trending",
		FetchedAt:               raw.FetchedAt,
	}

	return item
}

// parseDuration parses an ISO-8601-style duration of the form PT#H#M#S with
// every component optional. It returns nil when the field is absent or does
// not match, keeping "unknown duration" distinct from a zero-second one.
func parseDuration(s string) *int64 {
	if s == "" {
		return nil
	}

	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return nil
	}

	var total int64
	for i, mult := range []int64{3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		v, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return nil
		}
		total += v * mult
	}

	return &total
}

// IsEnglishAudio reports whether the declared audio language passes the
// English gate: absent, the "no linguistic content" sentinel, or any tag
// rooted in English (en, en-US, en-GB, ...).
func IsEnglishAudio(lang string) bool {
	if lang == "" {
		return true
	}
	if strings.EqualFold(lang, noLinguisticContent) {
		return true
	}

	tag, err := language.Parse(lang)
	if err != nil {
		return false
	}

	base, conf := tag.Base()
	return conf > language.No && base.String() == "en"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
