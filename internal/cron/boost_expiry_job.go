package cron

import (
	"context"
	"fmt"

	"github.com/craftlane/craftlane-backend/pkg/logger"
)

type BoostExpiryJobParams struct {
	Logger *logger.Logger
	Boosts boostExpirer
}

type boostExpirer interface {
	ExpireDue(ctx context.Context) (int64, error)
}

func NewBoostExpiryJob(params BoostExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Boosts == nil {
		return nil, fmt.Errorf("boosts service required")
	}
	return &boostExpiryJob{
		logg:   params.Logger,
		boosts: params.Boosts,
	}, nil
}

type boostExpiryJob struct {
	logg   *logger.Logger
	boosts boostExpirer
}

func (j *boostExpiryJob) Name() string { return "boost-expiry" }

func (j *boostExpiryJob) Run(ctx context.Context) error {
	expired, err := j.boosts.ExpireDue(ctx)
	if err != nil {
		return fmt.Errorf("boost expiry: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "rows_expired", expired)
	j.logg.Info(logCtx, "boost expiry complete")
	return nil
}
