package domain

import "time"

// AbuseReport is a user-submitted report about a malicious link
type AbuseReport struct {
	ID        string    `json:"id"`
	URL       string    `json:"url" validate:"required,url,max=2048"`
	Reason    string    `json:"reason" validate:"required,max=64"`
	Message   string    `json:"message,omitempty" validate:"max=2000"`
	CreatedAt time.Time `json:"created_at"`
}
