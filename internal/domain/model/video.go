package model

import (
	"strings"
	"time"
)

// VideoAsset is a catalog entry. Media files live elsewhere; the record only
// carries storage paths and metadata.
type VideoAsset struct {
	ID            string // UUID
	Title         string
	VideoPath     string
	TrailerPath   string
	ThumbnailPath string
	YearPublished int
	Introduction  string
	CastMembers   string
	Theme         string
	Length        string // display runtime, e.g. "1h 42m"
	MovieType     string
	DateUploaded  time.Time
	// ExpireDate is a hard cutoff: past it the video is unlisted and
	// unplayable even for customers who already paid.
	ExpireDate time.Time
}

func (v *VideoAsset) IsExpired(now time.Time) bool {
	return now.After(v.ExpireDate)
}

// IntroChunks splits the introduction into six-word lines for the teaser
// overlay on the storefront.
func (v *VideoAsset) IntroChunks() []string {
	words := strings.Fields(v.Introduction)
	if len(words) == 0 {
		return nil
	}
	chunks := make([]string, 0, (len(words)+5)/6)
	for i := 0; i < len(words); i += 6 {
		end := i + 6
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}
