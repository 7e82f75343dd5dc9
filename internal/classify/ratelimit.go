// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/pdiddy/screening-engine/pkg/types"
)

// RateLimited wraps a Classifier so that calls start no faster than the
// limiter allows, independent of scheduler concurrency.
type RateLimited struct {
	next    Classifier
	limiter *rate.Limiter
}

// NewRateLimited returns next unchanged when rps is not positive.
func NewRateLimited(next Classifier, rps float64) Classifier {
	if rps <= 0 {
		return next
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Classify waits for a token, then delegates.
func (r *RateLimited) Classify(ctx context.Context, rec types.StudyRecord, criteria types.CriteriaSet) (Result, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Result{}, AsClassificationError(err)
	}
	return r.next.Classify(ctx, rec, criteria)
}
