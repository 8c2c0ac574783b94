package capture

import (
	"sort"
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"

	"github.com/trendsift/trendsift/app/normalizer"
	"github.com/trendsift/trendsift/app/sources"
)

// RelevanceResult carries the gate decision plus the labels attached to the
// payload for downstream consumers.
type RelevanceResult struct {
	Allowed          bool
	DetectedLanguage string
	LanguageOK       bool
	CategoryName     string
	CategoryOK       bool
	Topics           []string
	TopicsOK         bool
}

// Gate keeps the captured dataset niche- and language-focused before
// anything is persisted. Items that fail the gate are dropped at capture
// time, not reported as errors.
type Gate struct {
	taxonomy  *sources.Taxonomy
	relevance sources.ConfigRelevance
}

func NewGate(taxonomy *sources.Taxonomy, relevance sources.ConfigRelevance) *Gate {
	return &Gate{taxonomy: taxonomy, relevance: relevance}
}

// Run evaluates one candidate item by its textual metadata and declared
// category/audio language.
func (g *Gate) Run(title, description, categoryID, audioLanguage string) RelevanceResult {
	result := RelevanceResult{
		DetectedLanguage: detectLanguage(title + " " + description),
		CategoryName:     g.taxonomy.CategoryName(categoryID),
		Topics:           g.topicLabels(title, description),
	}

	result.LanguageOK = languageAllowed(result.DetectedLanguage, g.relevance.AllowedLanguages)
	// The declared audio language is an additional gate when the source
	// config wants English; absent and "zxx" declarations pass it.
	if containsFold(g.relevance.AllowedLanguages, "en") {
		result.LanguageOK = result.LanguageOK && normalizer.IsEnglishAudio(audioLanguage)
	}

	result.CategoryOK = categoryAllowed(result.CategoryName, g.relevance.AllowedCategories, g.relevance.DeniedCategories)
	result.TopicsOK = topicsRelevant(result.Topics, g.relevance.RequiredTopics)

	result.Allowed = result.LanguageOK && result.CategoryOK && result.TopicsOK
	return result
}

// languageUnknown is stored when detection cannot commit to a language.
const languageUnknown = "unknown"

// detectionLanguages bounds the detector to the languages capture configs
// gate on. A narrow candidate set keeps detection reliable on short titles.
var detectionLanguages = []lingua.Language{
	lingua.English, lingua.Spanish, lingua.Portuguese, lingua.French,
	lingua.German, lingua.Italian, lingua.Japanese, lingua.Korean,
	lingua.Russian, lingua.Hindi, lingua.Arabic, lingua.Chinese,
}

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// languageDetector builds the shared detector on first use. Model data is
// loaded lazily per language, so unused candidates cost nothing.
func languageDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(detectionLanguages...).
			Build()
	})
	return detector
}

// detectLanguage returns the ISO 639-1 code of the text's language, or
// "unknown" when the text is empty or the detector cannot decide.
func detectLanguage(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return languageUnknown
	}

	lang, ok := languageDetector().DetectLanguageOf(text)
	if !ok {
		return languageUnknown
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

func languageAllowed(lang string, allowed []string) bool {
	return containsFold(allowed, lang)
}

func categoryAllowed(name string, allow, deny []string) bool {
	if containsFold(deny, name) {
		return false
	}
	if len(allow) == 0 {
		return true
	}
	return containsFold(allow, name)
}

// topicsRelevant passes when at least one required topic was detected. An
// unconfigured requirement list keeps the gate open.
func topicsRelevant(labels, required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, label := range labels {
		if containsFold(required, label) {
			return true
		}
	}
	return false
}

// topicLabels does lightweight keyword scoring against the taxonomy's topic
// map. Multi-word keywords are weighted higher; labels come back most
// relevant first, ties broken by name for stable output.
func (g *Gate) topicLabels(title, description string) []string {
	text := strings.ToLower(title)
	if description != "" {
		text += " " + strings.ToLower(description)
	}
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	scores := map[string]int{}
	for topic, keywords := range g.taxonomy.Topics {
		score := 0
		for _, keyword := range keywords {
			if keyword == "" || !strings.Contains(text, strings.ToLower(keyword)) {
				continue
			}
			if words := len(strings.Fields(keyword)); words > 1 {
				score += words * 2
			} else {
				score++
			}
		}
		if score > 0 {
			scores[topic] = score
		}
	}

	labels := make([]string, 0, len(scores))
	for topic := range scores {
		labels = append(labels, topic)
	}
	sort.Slice(labels, func(i, j int) bool {
		if scores[labels[i]] != scores[labels[j]] {
			return scores[labels[i]] > scores[labels[j]]
		}
		return labels[i] < labels[j]
	})

	return labels
}

func containsFold(haystack []string, needle string) bool {
	for _, v := range haystack {
		if strings.EqualFold(v, needle) {
			return true
		}
	}
	return false
}
