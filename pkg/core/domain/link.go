package domain

import "time"

// ShortLink maps a short code to its destination
type ShortLink struct {
	ID          string    `json:"id"`
	ShortCode   string    `json:"short_code"`
	OriginalURL string    `json:"original_url"`
	Clicks      int64     `json:"clicks"`
	OwnerID     *string   `json:"user_id,omitempty"` // nil for anonymous links
	CreatedAt   time.Time `json:"created_at"`
}
