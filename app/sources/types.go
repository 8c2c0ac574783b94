package sources

// Config is one capture source definition, loaded from a YAML file in the
// sources directory. Name derives from the filename without extension.
type Config struct {
	Name      string          // Derived from filename (without .yml extension)
	Source    string          `yaml:"source"`
	Settings  ConfigSettings  `yaml:"settings"`
	Trending  ConfigTrending  `yaml:"trending"`
	Channels  []ConfigChannel `yaml:"channels"`
	Keywords  []string        `yaml:"keywords"`
	Relevance ConfigRelevance `yaml:"relevance"`
}

type ConfigSettings struct {
	Enabled         bool `yaml:"enabled"`
	RefreshInterval int  `yaml:"refresh_interval"` // seconds
	MaxPages        int  `yaml:"max_pages"`
	Timeout         int  `yaml:"timeout"` // seconds
	SkipRecentDays  int  `yaml:"skip_recent_days"`
}

type ConfigTrending struct {
	Regions []string `yaml:"regions"`
}

type ConfigChannel struct {
	Handle  string `yaml:"handle"`
	FeedURL string `yaml:"feed_url"`
}

// ConfigRelevance drives the pre-persistence relevance gate.
type ConfigRelevance struct {
	AllowedLanguages  []string `yaml:"allowed_languages"`
	AllowedCategories []string `yaml:"allowed_categories"`
	DeniedCategories  []string `yaml:"denied_categories"`
	RequiredTopics    []string `yaml:"required_topics"`
}

// Taxonomy maps raw source identifiers to the labels used by the relevance
// gate: category ids to names, and topic labels to the keyword lists that
// signal them.
type Taxonomy struct {
	Categories map[string]string   `yaml:"categories"`
	Topics     map[string][]string `yaml:"topics"`
}

// CategoryName resolves a source category id, "Unknown" when unmapped.
func (t *Taxonomy) CategoryName(categoryID string) string {
	if name, ok := t.Categories[categoryID]; ok {
		return name
	}
	return "Unknown"
}
