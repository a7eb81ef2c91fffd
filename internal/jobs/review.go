package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/zerobalance/internal/assistant"
	"github.com/rs/zerolog"
)

// ReviewInputSource builds the review input for a number of months.
type ReviewInputSource interface {
	ReviewRequest(ctx context.Context, months int) (assistant.SubscriptionReviewRequest, error)
}

// SubscriptionReviewer runs the review itself.
// This interface enables mocking and testing of the model call.
type SubscriptionReviewer interface {
	Review(ctx context.Context, req assistant.SubscriptionReviewRequest) (*assistant.SubscriptionReview, error)
}

// NewReviewHandler returns the JobHandler for ReviewSubscriptionsJob.
func NewReviewHandler(source ReviewInputSource, reviewer SubscriptionReviewer, log zerolog.Logger) JobHandler {
	return func(ctx context.Context, job Job) error {
		review, ok := job.(*ReviewSubscriptionsJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log := log.With().Str("job_id", review.JobID).Int("months", review.Months).Logger()
		log.Info().Msg("Processing subscription review job")

		req, err := source.ReviewRequest(ctx, review.Months)
		if err != nil {
			log.Error().Err(err).Msg("Building review input failed")
			return err
		}

		result, err := reviewer.Review(ctx, req)
		if err != nil {
			log.Error().Err(err).Int("transactions", len(req.Transactions)).Msg("Subscription review failed")
			return err
		}

		review.Result = result
		log.Info().
			Int("transactions", len(req.Transactions)).
			Int("subscriptions", len(result.PotentialSubscriptions)).
			Msg("Subscription review completed")
		return nil
	}
}
