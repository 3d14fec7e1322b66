package model

import "time"

// Course is a taxonomy entry grouping documents under a unique domain slug.
// DocumentsCount is derived (active documents only) and computed live by the
// repository on every read; it is never persisted.
type Course struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Domain         string    `json:"domain"`
	Description    string    `json:"description"`
	DocumentsCount int64     `json:"documents_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
