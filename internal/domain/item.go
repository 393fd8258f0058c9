package domain

import "time"

// ContentFormat tells the feed builder how an item's content is encoded.
type ContentFormat string

const (
	FormatPlain  ContentFormat = "plain"
	FormatBBCode ContentFormat = "bbcode"
)

// NewsItem is a single upstream news entry. ID is the upstream global id and
// is unique across every source.
type NewsItem struct {
	ID            string
	Title         string
	URL           string
	IsExternalURL bool
	Author        string
	Content       string
	FeedLabel     string
	FeedName      string
	Format        ContentFormat
	PublishedAt   time.Time
	// SourceID is the source upstream filed the item under, which may differ
	// from the source it was fetched for.
	SourceID int64
}

// NewsBatch is the result of one successful upstream fetch for a source.
type NewsBatch struct {
	SourceID  int64
	Items     []NewsItem
	ExpiresAt time.Time
}
