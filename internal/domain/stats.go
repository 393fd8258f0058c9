package domain

import "time"

// FetchStats holds statistics about a fetch run.
type FetchStats struct {
	CacheHits     int
	FetchHits     int
	Failures      int
	ItemsStored   int
	ItemsNew      int
	ItemsStale    int
	Published     int
	PublishErrors int
	Duration      time.Duration
}
