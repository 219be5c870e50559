package webhooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// replayTTL bounds how long a processed callback reference is remembered.
// The escrow transition itself is idempotent, so expiry here is harmless.
const replayTTL = 24 * time.Hour

const providerName = "gateway"

type sessionConfirmer interface {
	ConfirmSessionPayments(ctx context.Context, sessionID uuid.UUID) error
}

type replayGuard interface {
	MarkWebhookSeen(ctx context.Context, provider, reference string, ttl time.Duration) (bool, error)
}

// Callback is the payment gateway's signed notification payload after the
// transport layer has verified and decoded it.
type Callback struct {
	Reference string
	Status    string
	Amount    decimal.Decimal
}

// Gateway callback statuses this service understands.
const (
	CallbackStatusCompleted = "completed"
	CallbackStatusFailed    = "failed"
)

// Service maps payment gateway callbacks onto escrow transitions.
type Service interface {
	HandleGatewayCallback(ctx context.Context, callback Callback) error
}

type service struct {
	repo   Repository
	ledger sessionConfirmer
	replay replayGuard
	logg   *logger.Logger
}

// NewService builds the gateway webhook service.
func NewService(repo Repository, ledger sessionConfirmer, replay replayGuard, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("webhook repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if replay == nil {
		return nil, fmt.Errorf("replay guard required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, ledger: ledger, replay: replay, logg: logg}, nil
}

func (s *service) HandleGatewayCallback(ctx context.Context, callback Callback) error {
	if callback.Reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "callback reference required")
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"reference": callback.Reference,
		"status":    callback.Status,
	})

	session, err := s.repo.FindSessionByReference(ctx, callback.Reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "unknown payment reference")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
	}

	if callback.Status != CallbackStatusCompleted {
		s.logg.Warn(logCtx, "gateway reported unpaid callback, ignoring")
		return nil
	}
	if !callback.Amount.Equal(session.TotalAmount) {
		s.logg.Warn(s.logg.WithFields(logCtx, map[string]any{
			"expected": session.TotalAmount.String(),
			"received": callback.Amount.String(),
		}), "gateway amount mismatch")
		return pkgerrors.New(pkgerrors.CodeValidation, "callback amount does not match session total")
	}

	// The redis guard short-circuits replays cheaply. It is advisory only;
	// if redis is down the escrow transition below is still a no-op on
	// repeat delivery.
	seen, err := s.replay.MarkWebhookSeen(ctx, providerName, callback.Reference, replayTTL)
	if err != nil {
		s.logg.Warn(logCtx, "webhook replay guard unavailable, relying on ledger idempotence")
	} else if seen {
		s.logg.Info(logCtx, "duplicate gateway callback ignored")
		return nil
	}

	if err := s.ledger.ConfirmSessionPayments(ctx, session.ID); err != nil {
		return err
	}
	s.logg.Info(logCtx, "gateway payment escrowed")
	return nil
}
