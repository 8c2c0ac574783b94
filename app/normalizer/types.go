package normalizer

import (
	"time"
)

// RawRecord is one captured payload snapshot from an upstream source.
// (source, external_id) is unique per fetch snapshot; the payload is a
// source-specific JSON document that may omit any field.
type RawRecord struct {
	Source     string
	ExternalID string
	FetchedAt  time.Time
	Payload    []byte
}

// NormalizedItem is the fully typed projection of one RawRecord. Count
// fields default to 0 when absent, never nil; DurationSeconds is nil only
// when the source carried no duration at all.
type NormalizedItem struct {
	ItemID                  string
	Title                   string
	Description             string
	ChannelID               string
	ChannelTitle            string
	PublishedAt             *time.Time
	CategoryID              string
	AudioLanguage           string
	IsAudioEnglish          bool
	ViewCount               int64
	LikeCount               int64
	CommentCount            int64
	DurationSeconds         *int64
	Tags                    []string
	DetectedTopics          []string
	TopicCategories         []string
	DetectedLanguage        string
	CategoryName            string
	ChannelSubscriberCount  *int64
	IsShortFlagged          bool
	IsTrendingSourceFlagged bool
	FetchedAt               time.Time
}
