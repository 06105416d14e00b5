package domain

// MonthlyStats aggregates links created in one calendar month
type MonthlyStats struct {
	Month       string `json:"month"` // YYYY-MM
	TotalClicks int64  `json:"totalClicks"`
	TotalUrls   int64  `json:"totalUrls"`
}

// MonthlyClicks counts resolutions of one link in a calendar month
type MonthlyClicks struct {
	Month  string `json:"month"` // YYYY-MM
	Clicks int64  `json:"clicks"`
}

type QRCodeStats struct {
	TotalGenerated int64 `json:"totalGenerated"`
	Shortened      int64 `json:"shortened"`
}

// Overview is the site-wide analytics summary
type Overview struct {
	TotalUrls    int64          `json:"totalUrls"`
	TotalClicks  int64          `json:"totalClicks"`
	MonthlyStats []MonthlyStats `json:"monthlyStats"`
	QRCodeStats  QRCodeStats    `json:"qrCodeStats"`
}

// LinkStats is the per-code analytics view
type LinkStats struct {
	Clicks        int64           `json:"clicks"`
	MonthlyClicks []MonthlyClicks `json:"monthlyClicks"`
	ShortCode     string          `json:"shortCode"`
}
