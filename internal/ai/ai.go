// Package ai defines the LLM-backed operations of Fit Check.
package ai

import (
	"context"

	"github.com/spigell/fit-check/internal/closet"
)

// StyleTarget describes the vibe an outfit is rated against.
type StyleTarget struct {
	ID          string
	Name        string
	Description string
}

// RatingRequest is everything the rater needs for one photo.
type RatingRequest struct {
	Style  StyleTarget
	Rubric *closet.Rubric
	Image  *Image
}

// Rating is the feedback for an outfit photo.
type Rating struct {
	TargetStyle     string   `json:"target_style"`
	DetectedStyle   string   `json:"detected_style"`
	MatchScore      float64  `json:"match_score"`
	Confidence      float64  `json:"confidence"`
	TopMatch        bool     `json:"top_match"`
	BottomMatch     bool     `json:"bottom_match"`
	Reasons         []string `json:"reasons"`
	Suggestions     []string `json:"suggestions"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	OverallFeedback string   `json:"overall_feedback,omitempty"`
	Grade           string   `json:"grade"`
	Raw             string   `json:"-"`
}

// Rater scores an outfit photo against a rubric.
type Rater interface {
	Rate(ctx context.Context, req RatingRequest) (*Rating, error)
}

// RubricGenerator synthesizes a rubric from a free text style description.
type RubricGenerator interface {
	GenerateRubric(ctx context.Context, description string) (*closet.Rubric, error)
}

// Grade maps a 0-100 match score to a letter band.
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "A - Excellent! 🔥"
	case score >= 80:
		return "B - Great job! ✨"
	case score >= 70:
		return "C - Good effort! 👍"
	case score >= 60:
		return "D - Room for improvement 💪"
	default:
		return "F - Let's try something else 🤔"
	}
}
