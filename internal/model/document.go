package model

import "time"

// Document represents one uploaded PDF and its usage counters.
// This is a pure domain model with no database-specific dependencies or tags.
//
// StorageKey is assigned exactly once at creation time, from the owning
// course's domain and the original filename. It is never recomputed, even if
// the course is later renamed; the stored blob stays where it was written.
type Document struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	CourseID      string    `json:"course_id"`
	OwnerID       string    `json:"owner_id"`
	StorageKey    string    `json:"storage_key"`
	Size          int64     `json:"size"`
	DownloadCount int64     `json:"download_count"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SizeMB returns the blob size in megabytes, rounded to two decimals.
func (d *Document) SizeMB() float64 {
	mb := float64(d.Size) / (1024 * 1024)
	return float64(int64(mb*100+0.5)) / 100
}
