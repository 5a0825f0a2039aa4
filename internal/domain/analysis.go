package domain

import "time"

// RatingStatus is the qualitative bucket derived from a score.
type RatingStatus string

const (
	RatingExcellent RatingStatus = "excellent"
	RatingGood      RatingStatus = "good"
	RatingFair      RatingStatus = "fair"
	RatingPoor      RatingStatus = "poor"
)

// MaxScore is the upper bound of a compliance score.
const MaxScore = 10

// BucketForScore maps a 0-10 score to its qualitative bucket.
func BucketForScore(score int) RatingStatus {
	switch {
	case score >= 8:
		return RatingExcellent
	case score >= 6:
		return RatingGood
	case score >= 4:
		return RatingFair
	default:
		return RatingPoor
	}
}

// Rating is a per-image compliance score parsed from model output.
type Rating struct {
	Filename    string       `json:"filename"`
	Score       int          `json:"score"`
	Explanation string       `json:"explanation"`
	Status      RatingStatus `json:"status"`
	Path        string       `json:"path"`
}

// Usage accumulates token counters reported by the model provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add returns the sum of u and other.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}

// AnalysisResult is the terminal payload of an analysis job.
type AnalysisResult struct {
	Success           bool      `json:"success"`
	Message           string    `json:"message"`
	Ratings           []Rating  `json:"ratings"`
	Unrated           []string  `json:"unrated,omitempty"`
	AIResponse        string    `json:"ai_response,omitempty"`
	Usage             Usage     `json:"usage"`
	TotalBatches      int       `json:"total_batches"`
	SuccessfulBatches int       `json:"successful_batches"`
	FailedBatches     int       `json:"failed_batches"`
	JobID             string    `json:"job_id"`
	AnalyzedAt        time.Time `json:"timestamp"`
}

// AverageScore returns the mean score of the rated images, or 0 when none.
func (r *AnalysisResult) AverageScore() float64 {
	if len(r.Ratings) == 0 {
		return 0
	}
	total := 0
	for _, rating := range r.Ratings {
		total += rating.Score
	}
	return float64(total) / float64(len(r.Ratings))
}

// AnalysisRecord is the persisted summary of a finished analysis job.
type AnalysisRecord struct {
	JobID             string    `gorm:"type:text;primaryKey" json:"job_id"`
	GuidelinePath     string    `gorm:"type:text" json:"guideline_path"`
	Success           bool      `json:"success"`
	ImageCount        int       `gorm:"default:0" json:"image_count"`
	RatedCount        int       `gorm:"default:0" json:"rated_count"`
	AverageScore      float64   `gorm:"default:0" json:"average_score"`
	TotalTokens       int       `gorm:"default:0" json:"total_tokens"`
	TotalBatches      int       `gorm:"default:0" json:"total_batches"`
	SuccessfulBatches int       `gorm:"default:0" json:"successful_batches"`
	FailedBatches     int       `gorm:"default:0" json:"failed_batches"`
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
}

// TableName returns the database table name for AnalysisRecord.
func (AnalysisRecord) TableName() string {
	return "analysis_records"
}

// Inspiration is a live website suggested as a design reference.
type Inspiration struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}
