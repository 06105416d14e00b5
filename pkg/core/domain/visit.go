package domain

import "time"

// Visit represents a successful resolution of a short link
type Visit struct {
	ID        int64     `json:"id"`
	LinkID    string    `json:"link_id"`
	Referer   string    `json:"referer"`
	UserAgent string    `json:"user_agent"`
	IPHash    string    `json:"ip_hash"` // Anonymized IP
	CreatedAt time.Time `json:"created_at"`
}

// QRCodeEvent records that a QR code was generated. Append-only.
type QRCodeEvent struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"user_id"`
	Content      string    `json:"content"`
	WasShortened bool      `json:"was_shortened"`
	CreatedAt    time.Time `json:"created_at"`
}
