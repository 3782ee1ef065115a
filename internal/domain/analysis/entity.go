package analysis

import (
	"time"
)

// RiskLevel enum. Score banding: 0-30 safe, 31-60 suspicious, 61-100 scam.
// The banding is a contract on the model's output; only the enum itself is
// enforced here.
type RiskLevel string

const (
	RiskSafe       RiskLevel = "safe"
	RiskSuspicious RiskLevel = "suspicious"
	RiskScam       RiskLevel = "scam"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskSafe, RiskSuspicious, RiskScam:
		return true
	}
	return false
}

// Severity enum for a single indicator
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Indicator is one scam signal the model found in the image
type Indicator struct {
	Title       string   `json:"title"`
	Explanation string   `json:"explanation"`
	Severity    Severity `json:"severity"`
}

// Report is the validated analysis result returned to the caller
type Report struct {
	Score      int         `json:"score"`
	RiskLevel  RiskLevel   `json:"risk_level"`
	Indicators []Indicator `json:"indicators"`
	Summary    string      `json:"summary"`
}

// RecordID identifier type
type RecordID string

// Record is an analysis result stored for auditing and retrieval
type Record struct {
	ID        RecordID  `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	Result    string    `json:"result"` // JSON string of the Report
	Score     int       `json:"score"`
	RiskLevel RiskLevel `json:"risk_level"`
	CreatedAt time.Time `json:"created_at"`
}
