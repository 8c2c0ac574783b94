package payload

import (
	"testing"
	"time"
)

func TestString(t *testing.T) {
	doc := NewDoc([]byte(`{"snippet": {"title": "Test Video", "localized": {"title": "Localized Title"}}}`))

	if got := doc.String("snippet.title"); got != "Test Video" {
		t.Errorf("Expected 'Test Video', got '%s'", got)
	}
	if got := doc.String("snippet.localized.title"); got != "Localized Title" {
		t.Errorf("Expected 'Localized Title', got '%s'", got)
	}
	if got := doc.String("snippet.missing"); got != "" {
		t.Errorf("Expected empty string for missing path, got '%s'", got)
	}
}

func TestFirstString(t *testing.T) {
	doc := NewDoc([]byte(`{"snippet": {"title": "Plain Title", "localized": {"title": ""}}}`))

	got := doc.FirstString("snippet.localized.title", "snippet.title")
	if got != "Plain Title" {
		t.Errorf("Expected fallback to 'Plain Title', got '%s'", got)
	}

	doc = NewDoc([]byte(`{"snippet": {"title": "Plain Title", "localized": {"title": "Localized"}}}`))
	got = doc.FirstString("snippet.localized.title", "snippet.title")
	if got != "Localized" {
		t.Errorf("Expected 'Localized', got '%s'", got)
	}

	if got := doc.FirstString("a.b", "c.d"); got != "" {
		t.Errorf("Expected empty string when no path resolves, got '%s'", got)
	}
}

func TestCount(t *testing.T) {
	doc := NewDoc([]byte(`{
		"statistics": {
			"viewCount": "15000",
			"likeCount": 320,
			"commentCount": "-5",
			"favoriteCount": "abc"
		}
	}`))

	// String-encoded counters are the norm for the upstream API
	if got := doc.Count("statistics.viewCount"); got != 15000 {
		t.Errorf("Expected 15000, got %d", got)
	}
	if got := doc.Count("statistics.likeCount"); got != 320 {
		t.Errorf("Expected 320, got %d", got)
	}

	// Negative and malformed values degrade to 0
	if got := doc.Count("statistics.commentCount"); got != 0 {
		t.Errorf("Expected 0 for negative count, got %d", got)
	}
	if got := doc.Count("statistics.favoriteCount"); got != 0 {
		t.Errorf("Expected 0 for malformed count, got %d", got)
	}
	if got := doc.Count("statistics.missing"); got != 0 {
		t.Errorf("Expected 0 for absent count, got %d", got)
	}
}

func TestOptionalCount(t *testing.T) {
	doc := NewDoc([]byte(`{"_channel_metadata": {"subscriber_count": 0}}`))

	got := doc.OptionalCount("_channel_metadata.subscriber_count")
	if got == nil {
		t.Fatal("Expected non-nil pointer for present zero value")
	}
	if *got != 0 {
		t.Errorf("Expected 0, got %d", *got)
	}

	if got := doc.OptionalCount("_channel_metadata.missing"); got != nil {
		t.Errorf("Expected nil for absent field, got %d", *got)
	}

	doc = NewDoc([]byte(`{"_channel_metadata": {"subscriber_count": null}}`))
	if got := doc.OptionalCount("_channel_metadata.subscriber_count"); got != nil {
		t.Errorf("Expected nil for JSON null, got %d", *got)
	}
}

func TestTime(t *testing.T) {
	doc := NewDoc([]byte(`{"snippet": {"publishedAt": "2025-06-15T10:30:00Z", "updatedAt": "not-a-time"}}`))

	got := doc.Time("snippet.publishedAt")
	if got == nil {
		t.Fatal("Expected parsed timestamp")
	}
	want := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if got := doc.Time("snippet.updatedAt"); got != nil {
		t.Errorf("Expected nil for unparseable timestamp, got %v", got)
	}
	if got := doc.Time("snippet.missing"); got != nil {
		t.Errorf("Expected nil for absent timestamp, got %v", got)
	}
}

func TestTimeNormalizesToUTC(t *testing.T) {
	doc := NewDoc([]byte(`{"publishedAt": "2025-06-15T12:30:00+02:00"}`))

	got := doc.Time("publishedAt")
	if got == nil {
		t.Fatal("Expected parsed timestamp")
	}
	if got.Location() != time.UTC {
		t.Errorf("Expected UTC location, got %v", got.Location())
	}
	if got.Hour() != 10 {
		t.Errorf("Expected 10:30 UTC, got %v", got)
	}
}

func TestStrings(t *testing.T) {
	doc := NewDoc([]byte(`{"snippet": {"tags": ["go", "pipeline", ""]}}`))

	got := doc.Strings("snippet.tags")
	if len(got) != 2 {
		t.Fatalf("Expected 2 tags (empty dropped), got %d", len(got))
	}
	if got[0] != "go" || got[1] != "pipeline" {
		t.Errorf("Unexpected tags: %v", got)
	}

	// Absent arrays yield an empty, non-nil slice
	got = doc.Strings("snippet.missing")
	if got == nil {
		t.Error("Expected non-nil slice for absent array")
	}
	if len(got) != 0 {
		t.Errorf("Expected empty slice, got %v", got)
	}
}

func TestBoolAndExists(t *testing.T) {
	doc := NewDoc([]byte(`{"_capture": {"shorts": true, "program": "trending"}}`))

	if !doc.Bool("_capture.shorts") {
		t.Error("Expected true for _capture.shorts")
	}
	if doc.Bool("_capture.missing") {
		t.Error("Expected false for absent boolean")
	}
	if !doc.Exists("_capture.program") {
		t.Error("Expected _capture.program to exist")
	}
	if doc.Exists("_capture.nothing") {
		t.Error("Expected _capture.nothing to not exist")
	}
}
