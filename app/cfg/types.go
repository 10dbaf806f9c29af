package cfg

type Cfg struct {
	// Storage configuration
	DBPath     string
	SourcesDir string
	RedisURL   string

	// Image object storage (optional)
	S3Bucket    string
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string

	// Application configuration
	Port              string
	BaseUrl           string
	UpdateKey         string
	FeedAuthor        string
	WorkerCount       int
	SchedulerInterval int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
