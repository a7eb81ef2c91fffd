package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ReviewTransaction is the slice of a transaction the reviewer needs.
type ReviewTransaction struct {
	Description string  `json:"description"`
	Date        string  `json:"date"` // YYYY-MM-DD
	Amount      float64 `json:"amount"`
}

// SubscriptionReviewRequest is the input of a subscription review.
type SubscriptionReviewRequest struct {
	Transactions         []ReviewTransaction `json:"transactions"`
	AnalysisPeriodMonths int                 `json:"analysisPeriodMonths"`
}

// Subscription is one recurring payment the model believes it found.
type Subscription struct {
	Name               string   `json:"name"`
	AverageAmount      float64  `json:"averageAmount"`
	EstimatedFrequency string   `json:"estimatedFrequency"`
	Confidence         float64  `json:"confidence"`
	SupportingEvidence []string `json:"supportingEvidence"`
	Notes              string   `json:"notes,omitempty"`
}

// SubscriptionReview is the result of a review.
type SubscriptionReview struct {
	PotentialSubscriptions []Subscription `json:"potentialSubscriptions"`
	Summary                string         `json:"summary,omitempty"`
}

// Validate checks every identified subscription.
func (r SubscriptionReview) Validate() error {
	var problems []string
	for i, s := range r.PotentialSubscriptions {
		if strings.TrimSpace(s.Name) == "" {
			problems = append(problems, fmt.Sprintf("potentialSubscriptions[%d].name: must not be empty", i))
		}
		if s.Confidence < 0 || s.Confidence > 1 {
			problems = append(problems, fmt.Sprintf("potentialSubscriptions[%d].confidence: %v out of range [0, 1]", i, s.Confidence))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// SubscriptionReviewer looks for recurring payments in a transaction list.
type SubscriptionReviewer struct {
	gen TextGenerator
}

// NewSubscriptionReviewer creates a reviewer over gen.
func NewSubscriptionReviewer(gen TextGenerator) *SubscriptionReviewer {
	return &SubscriptionReviewer{gen: gen}
}

// Review runs the analysis. A review of zero transactions returns an empty
// result without calling the model.
func (r *SubscriptionReviewer) Review(ctx context.Context, req SubscriptionReviewRequest) (*SubscriptionReview, error) {
	if req.AnalysisPeriodMonths <= 0 {
		return nil, fmt.Errorf("Review: analysis period must be a positive number of months, got %d", req.AnalysisPeriodMonths)
	}
	if len(req.Transactions) == 0 {
		return &SubscriptionReview{
			PotentialSubscriptions: []Subscription{},
			Summary:                "No transactions to analyze.",
		}, nil
	}

	raw, err := r.gen.GenerateJSON(ctx, reviewSystemPrompt, buildReviewPrompt(req), subscriptionReviewSchema())
	if err != nil {
		return nil, fmt.Errorf("Review: %w", err)
	}
	if raw == "" {
		return nil, fmt.Errorf("Review: AI did not return a response for subscription review")
	}

	var review SubscriptionReview
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &review); err != nil {
		return nil, fmt.Errorf("Review: unmarshal JSON: %w", err)
	}
	if err := review.Validate(); err != nil {
		return nil, fmt.Errorf("Review: %w", err)
	}
	if review.PotentialSubscriptions == nil {
		review.PotentialSubscriptions = []Subscription{}
	}
	return &review, nil
}
