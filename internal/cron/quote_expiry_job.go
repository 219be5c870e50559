package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/craftlane/craftlane-backend/pkg/logger"
)

type QuoteExpiryJobParams struct {
	Logger     *logger.Logger
	Repository quoteExpiryRepo
}

type quoteExpiryRepo interface {
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

func NewQuoteExpiryJob(params QuoteExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("quotes repository required")
	}
	return &quoteExpiryJob{
		logg: params.Logger,
		repo: params.Repository,
		now:  time.Now,
	}, nil
}

type quoteExpiryJob struct {
	logg *logger.Logger
	repo quoteExpiryRepo
	now  func() time.Time
}

func (j *quoteExpiryJob) Name() string { return "quote-expiry" }

func (j *quoteExpiryJob) Run(ctx context.Context) error {
	expired, err := j.repo.ExpireDue(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("quote expiry: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "rows_expired", expired)
	j.logg.Info(logCtx, "quote expiry complete")
	return nil
}
