package database

import (
	"time"

	"github.com/lysyi3m/news-digest/app/timeago"
)

// News is one ranked entry of a source listing.
type News struct {
	Source       string
	ID           string
	Rank         int
	Title        string
	URL          string
	Comhead      string // Site the link points to, e.g. "github.com"
	Author       string
	Score        int
	CommentCount int
	CommentURL   string
	SubmitTime   timeago.Phrase // Kept as scraped ("3 hours ago"), resolved on read
	Summary      string
	ImageID      string
	FetchedAt    time.Time
}

// Summary is the enrichment of an entry that is expensive to recompute.
type Summary struct {
	Summary string
	ImageID string
}

// ReplaceResult counts how a snapshot replacement changed a source.
type ReplaceResult struct {
	Added   int
	Updated int
	Removed int
}

// Image is an immutable binary asset served under /img/<id>.
type Image struct {
	ID          string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}
