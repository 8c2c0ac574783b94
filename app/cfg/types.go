package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Application configuration
	SourcesDir        string
	TaxonomyFile      string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Capture configuration
	YoutubeAPIKey   string
	QuotaDailyCap   int
	BatchWindowDays int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
