package payload

import (
	"time"

	"github.com/tidwall/gjson"
)

// Doc wraps one raw source payload and provides tolerant key-path access.
// All dynamic-shape handling lives here; every other package works with
// fully typed records. Paths use dot notation, e.g. "snippet.localized.title".
type Doc struct {
	raw string
}

func NewDoc(data []byte) Doc {
	return Doc{raw: string(data)}
}

// String returns the string at path, or "" when the path is absent or not
// representable as a string.
func (d Doc) String(path string) string {
	res := gjson.Get(d.raw, path)
	if !res.Exists() {
		return ""
	}
	return res.String()
}

// FirstString returns the value of the first path that resolves to a
// non-empty string.
func (d Doc) FirstString(paths ...string) string {
	for _, p := range paths {
		if v := d.String(p); v != "" {
			return v
		}
	}
	return ""
}

// Count returns the non-negative integer at path. The YouTube API encodes
// counters as JSON strings, so both numeric and string-encoded values are
// accepted. Absent or malformed values resolve to 0.
func (d Doc) Count(path string) int64 {
	res := gjson.Get(d.raw, path)
	if !res.Exists() {
		return 0
	}
	switch res.Type {
	case gjson.Number:
		if v := res.Int(); v > 0 {
			return v
		}
		return 0
	case gjson.String:
		if v := res.Int(); v > 0 {
			return v
		}
		return 0
	default:
		return 0
	}
}

// OptionalCount is like Count but distinguishes "absent" from 0.
func (d Doc) OptionalCount(path string) *int64 {
	res := gjson.Get(d.raw, path)
	if !res.Exists() || res.Type == gjson.Null {
		return nil
	}
	v := res.Int()
	if v < 0 {
		v = 0
	}
	return &v
}

// Time parses an RFC3339 timestamp at path, returning nil when the field is
// absent or unparseable.
func (d Doc) Time(path string) *time.Time {
	s := d.String(path)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// Strings returns the string array at path. Absence yields an empty,
// non-nil slice.
func (d Doc) Strings(path string) []string {
	res := gjson.Get(d.raw, path)
	out := []string{}
	if !res.IsArray() {
		return out
	}
	res.ForEach(func(_, value gjson.Result) bool {
		if s := value.String(); s != "" {
			out = append(out, s)
		}
		return true
	})
	return out
}

// Bool returns the boolean at path, false when absent.
func (d Doc) Bool(path string) bool {
	return gjson.Get(d.raw, path).Bool()
}

// Exists reports whether path resolves to any value.
func (d Doc) Exists(path string) bool {
	return gjson.Get(d.raw, path).Exists()
}
