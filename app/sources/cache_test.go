package sources

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCacheLoadValidConfig(t *testing.T) {
	// Create temp directory
	tempDir := t.TempDir()

	// Create test YAML file
	content := `
source: "youtube"

settings:
  enabled: true
  refresh_interval: 1800
  max_pages: 3
  timeout: 15
  skip_recent_days: 3

trending:
  regions:
    - "US"
    - "GB"

channels:
  - handle: "somechannel"
    feed_url: "https://www.youtube.com/feeds/videos.xml?channel_id=UC123"

keywords:
  - "golang tutorial"

relevance:
  allowed_languages:
    - "en"
  denied_categories:
    - "Music"
  required_topics:
    - "programming"
`

	err := os.WriteFile(filepath.Join(tempDir, "tech.yml"), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	// Load source config
	cache := NewCache(tempDir)
	err = cache.Run()
	if err != nil {
		t.Fatal(err)
	}

	if cache.GetConfigCount() != 1 {
		t.Errorf("Expected 1 config, got %d", cache.GetConfigCount())
	}

	// Get the config by name
	config, err := cache.GetConfig("tech")
	if err != nil {
		t.Fatal(err)
	}

	// Validate loaded values
	if config.Name != "tech" {
		t.Errorf("Expected name 'tech', got '%s'", config.Name)
	}
	if config.Source != "youtube" {
		t.Errorf("Expected source 'youtube', got '%s'", config.Source)
	}
	if config.Settings.RefreshInterval != 1800 {
		t.Errorf("Expected refresh interval 1800, got %d", config.Settings.RefreshInterval)
	}
	if config.Settings.MaxPages != 3 {
		t.Errorf("Expected max pages 3, got %d", config.Settings.MaxPages)
	}
	if config.Settings.SkipRecentDays != 3 {
		t.Errorf("Expected skip recent days 3, got %d", config.Settings.SkipRecentDays)
	}
	if len(config.Trending.Regions) != 2 {
		t.Errorf("Expected 2 regions, got %d", len(config.Trending.Regions))
	}
	if len(config.Channels) != 1 || config.Channels[0].Handle != "somechannel" {
		t.Errorf("Unexpected channels: %v", config.Channels)
	}
	if len(config.Keywords) != 1 || config.Keywords[0] != "golang tutorial" {
		t.Errorf("Unexpected keywords: %v", config.Keywords)
	}
	if len(config.Relevance.RequiredTopics) != 1 {
		t.Errorf("Expected 1 required topic, got %d", len(config.Relevance.RequiredTopics))
	}
}

func TestCacheLoadConfigWithDefaults(t *testing.T) {
	// Create temp directory
	tempDir := t.TempDir()

	// Create minimal test YAML file
	content := `
settings:
  enabled: true
`

	err := os.WriteFile(filepath.Join(tempDir, "minimal.yml"), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	cache := NewCache(tempDir)
	err = cache.Run()
	if err != nil {
		t.Fatal(err)
	}

	config, err := cache.GetConfig("minimal")
	if err != nil {
		t.Fatal(err)
	}

	// Validate default values
	if config.Source != "youtube" {
		t.Errorf("Expected default source 'youtube', got '%s'", config.Source)
	}
	if config.Settings.RefreshInterval != 3600 {
		t.Errorf("Expected default refresh interval 3600, got %d", config.Settings.RefreshInterval)
	}
	if config.Settings.MaxPages != 2 {
		t.Errorf("Expected default max pages 2, got %d", config.Settings.MaxPages)
	}
	if config.Settings.Timeout != 30 {
		t.Errorf("Expected default timeout 30, got %d", config.Settings.Timeout)
	}
	if config.Settings.SkipRecentDays != 7 {
		t.Errorf("Expected default skip recent days 7, got %d", config.Settings.SkipRecentDays)
	}
	if len(config.Relevance.AllowedLanguages) != 1 || config.Relevance.AllowedLanguages[0] != "en" {
		t.Errorf("Expected default allowed languages [en], got %v", config.Relevance.AllowedLanguages)
	}
}

func TestCacheInvalidConfig(t *testing.T) {
	// Create temp directory
	tempDir := t.TempDir()

	// Channel entry without handle or feed URL is invalid
	content := `
settings:
  enabled: true

channels:
  - handle: ""
`

	err := os.WriteFile(filepath.Join(tempDir, "invalid.yml"), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	cache := NewCache(tempDir)
	err = cache.Run()
	if err == nil {
		t.Error("Expected error for invalid config")
	}
}

func TestCacheEmptyDirectory(t *testing.T) {
	tempDir := t.TempDir()

	cache := NewCache(tempDir)
	err := cache.Run()
	if err != nil {
		t.Fatal(err)
	}

	if cache.GetConfigCount() != 0 {
		t.Errorf("Expected 0 configs from empty directory, got %d", cache.GetConfigCount())
	}
}

func TestCacheGetEnabledConfigs(t *testing.T) {
	tempDir := t.TempDir()

	enabledContent := `
settings:
  enabled: true
`
	disabledContent := `
settings:
  enabled: false
`

	if err := os.WriteFile(filepath.Join(tempDir, "on.yml"), []byte(enabledContent), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, "off.yml"), []byte(disabledContent), 0644); err != nil {
		t.Fatal(err)
	}

	cache := NewCache(tempDir)
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}

	if cache.GetConfigCount() != 2 {
		t.Fatalf("Expected 2 configs, got %d", cache.GetConfigCount())
	}

	enabled := cache.GetEnabledConfigs()
	if len(enabled) != 1 {
		t.Fatalf("Expected 1 enabled config, got %d", len(enabled))
	}
	if _, ok := enabled["on"]; !ok {
		t.Error("Expected 'on' to be the enabled config")
	}
}

func TestCacheReloadConfig(t *testing.T) {
	tempDir := t.TempDir()

	initialContent := `
settings:
  enabled: true
`

	configFile := filepath.Join(tempDir, "tech.yml")
	if err := os.WriteFile(configFile, []byte(initialContent), 0644); err != nil {
		t.Fatal(err)
	}

	cache := NewCache(tempDir)
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}

	if _, err := cache.GetConfig("tech"); err != nil {
		t.Fatal(err)
	}

	// Update the file on disk with new content
	updatedContent := `
settings:
  enabled: true
  max_pages: 5

keywords:
  - "rust tutorial"
`

	if err := os.WriteFile(configFile, []byte(updatedContent), 0644); err != nil {
		t.Fatal(err)
	}

	// Reload config from disk
	reloaded, err := cache.LoadConfig("tech")
	if err != nil {
		t.Fatal(err)
	}

	if reloaded.Settings.MaxPages != 5 {
		t.Errorf("Expected updated max_pages 5, got %d", reloaded.Settings.MaxPages)
	}
	if len(reloaded.Keywords) != 1 {
		t.Errorf("Expected 1 keyword after reload, got %d", len(reloaded.Keywords))
	}

	// Test loading non-existent config
	if _, err := cache.LoadConfig("nonexistent"); err == nil {
		t.Error("Expected error for non-existent config")
	}
}

func TestLoadTaxonomy(t *testing.T) {
	tempDir := t.TempDir()

	content := `
categories:
  "20": "Gaming"
  "28": "Science & Technology"

topics:
  programming:
    - "golang"
    - "code review"
`

	path := filepath.Join(tempDir, "taxonomy.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	taxonomy, err := LoadTaxonomy(path)
	if err != nil {
		t.Fatal(err)
	}

	if taxonomy.CategoryName("28") != "Science & Technology" {
		t.Errorf("Expected 'Science & Technology', got '%s'", taxonomy.CategoryName("28"))
	}
	if taxonomy.CategoryName("999") != "Unknown" {
		t.Errorf("Expected 'Unknown' for unmapped id, got '%s'", taxonomy.CategoryName("999"))
	}
	if len(taxonomy.Topics["programming"]) != 2 {
		t.Errorf("Expected 2 programming keywords, got %d", len(taxonomy.Topics["programming"]))
	}
}

func TestLoadTaxonomyMissingFile(t *testing.T) {
	taxonomy, err := LoadTaxonomy(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("Missing taxonomy should not be an error: %v", err)
	}
	if taxonomy == nil {
		t.Fatal("Expected empty taxonomy, got nil")
	}
	if len(taxonomy.Categories) != 0 || len(taxonomy.Topics) != 0 {
		t.Error("Expected empty maps for missing file")
	}
	if taxonomy.CategoryName("28") != "Unknown" {
		t.Error("Empty taxonomy resolves everything to 'Unknown'")
	}
}
