package feed

func defaultSettings() ConfigSettings {
	return ConfigSettings{
		RefreshInterval: 600,
		MaxItems:        30,
		Timeout:         30,
		FetchSummaries:  true,
		SummaryWorkers:  4,
	}
}

// DefaultConfig returns the built-in configuration of a known source.
func DefaultConfig(name string) (*Config, bool) {
	switch name {
	case HackerNews:
		return &Config{
			Name:      HackerNews,
			Title:     "Hacker News Digest",
			FeedTitle: "Hacker News",
			URL:       "https://news.ycombinator.com/news",
			Navs: []Nav{
				{Name: "Hacker News", URL: "https://news.ycombinator.com/news"},
				{Name: "New", URL: "https://news.ycombinator.com/newest"},
				{Name: "Comments", URL: "https://news.ycombinator.com/newcomments"},
				{Name: "Show", URL: "https://news.ycombinator.com/show"},
				{Name: "Ask", URL: "https://news.ycombinator.com/ask"},
				{Name: "Jobs", URL: "https://news.ycombinator.com/jobs"},
				{Name: "Submit", URL: "https://news.ycombinator.com/submit"},
			},
			Settings: defaultSettings(),
		}, true
	case StartupNews:
		return &Config{
			Name:      StartupNews,
			Title:     "Startup News Digest",
			FeedTitle: "Startup News",
			URL:       "http://news.dbanotes.net/news",
			Navs: []Nav{
				{Name: "Startup News", URL: "http://news.dbanotes.net/news"},
				{Name: "New", URL: "http://news.dbanotes.net/newest"},
				{Name: "Comments", URL: "http://news.dbanotes.net/newcomments"},
				{Name: "Leaders", URL: "http://news.dbanotes.net/leaders"},
				{Name: "Submit", URL: "http://news.dbanotes.net/submit"},
			},
			Settings: defaultSettings(),
		}, true
	default:
		return nil, false
	}
}
