package models

import "time"

// URL represents a shortened URL mapping and its associated metadata.
type URL struct {
	// ID is the unique identifier for the mapping record.
	ID int64
	// ShortCode is the short code associated with the original URL.
	ShortCode string
	// OriginalURL is the original, full-length URL that the short code points to.
	OriginalURL string
	// AccessCount tracks the number of verified redirects performed through the short code.
	AccessCount int64
	// CreatedAt is the timestamp indicating when the mapping was created.
	CreatedAt time.Time
	// UpdatedAt is the timestamp indicating when the mapping was last updated.
	UpdatedAt time.Time
}
