package webhooks

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/craftlane/craftlane-backend/pkg/db/models"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/logger"
)

type fakeWebhookRepo struct {
	sessions map[string]*models.CheckoutSession
}

func (f *fakeWebhookRepo) FindSessionByReference(ctx context.Context, reference string) (*models.CheckoutSession, error) {
	session, ok := f.sessions[reference]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return session, nil
}

type fakeConfirmer struct {
	confirmed []uuid.UUID
	err       error
}

func (f *fakeConfirmer) ConfirmSessionPayments(ctx context.Context, sessionID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.confirmed = append(f.confirmed, sessionID)
	return nil
}

type fakeReplayGuard struct {
	seen map[string]bool
	err  error
}

func (f *fakeReplayGuard) MarkWebhookSeen(ctx context.Context, provider, reference string, ttl time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	key := provider + ":" + reference
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	already := f.seen[key]
	f.seen[key] = true
	return already, nil
}

func newWebhookService(t *testing.T, repo Repository, ledger sessionConfirmer, replay replayGuard) Service {
	t.Helper()
	svc, err := NewService(repo, ledger, replay, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seedSession(reference string, total decimal.Decimal) *fakeWebhookRepo {
	return &fakeWebhookRepo{sessions: map[string]*models.CheckoutSession{
		reference: {ID: uuid.New(), GatewayReference: &reference, TotalAmount: total},
	}}
}

func TestHandleGatewayCallbackConfirmsSession(t *testing.T) {
	repo := seedSession("cl-ref-1", decimal.NewFromInt(120))
	confirmer := &fakeConfirmer{}
	svc := newWebhookService(t, repo, confirmer, &fakeReplayGuard{})

	err := svc.HandleGatewayCallback(context.Background(), Callback{
		Reference: "cl-ref-1",
		Status:    CallbackStatusCompleted,
		Amount:    decimal.NewFromInt(120),
	})
	if err != nil {
		t.Fatalf("HandleGatewayCallback: %v", err)
	}
	if len(confirmer.confirmed) != 1 {
		t.Fatalf("expected one session confirmation, got %d", len(confirmer.confirmed))
	}
}

func TestHandleGatewayCallbackUnknownReference(t *testing.T) {
	svc := newWebhookService(t, &fakeWebhookRepo{}, &fakeConfirmer{}, &fakeReplayGuard{})
	err := svc.HandleGatewayCallback(context.Background(), Callback{
		Reference: "cl-missing",
		Status:    CallbackStatusCompleted,
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHandleGatewayCallbackIgnoresFailedStatus(t *testing.T) {
	repo := seedSession("cl-ref-2", decimal.NewFromInt(50))
	confirmer := &fakeConfirmer{}
	svc := newWebhookService(t, repo, confirmer, &fakeReplayGuard{})

	err := svc.HandleGatewayCallback(context.Background(), Callback{
		Reference: "cl-ref-2",
		Status:    CallbackStatusFailed,
		Amount:    decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("failed status must be acknowledged silently: %v", err)
	}
	if len(confirmer.confirmed) != 0 {
		t.Fatalf("failed callback must not escrow anything")
	}
}

func TestHandleGatewayCallbackRejectsAmountMismatch(t *testing.T) {
	repo := seedSession("cl-ref-3", decimal.NewFromInt(100))
	confirmer := &fakeConfirmer{}
	svc := newWebhookService(t, repo, confirmer, &fakeReplayGuard{})

	err := svc.HandleGatewayCallback(context.Background(), Callback{
		Reference: "cl-ref-3",
		Status:    CallbackStatusCompleted,
		Amount:    decimal.NewFromInt(99),
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(confirmer.confirmed) != 0 {
		t.Fatalf("mismatched amount must not escrow anything")
	}
}

func TestHandleGatewayCallbackDeduplicatesReplays(t *testing.T) {
	repo := seedSession("cl-ref-4", decimal.NewFromInt(80))
	confirmer := &fakeConfirmer{}
	svc := newWebhookService(t, repo, confirmer, &fakeReplayGuard{})

	callback := Callback{
		Reference: "cl-ref-4",
		Status:    CallbackStatusCompleted,
		Amount:    decimal.NewFromInt(80),
	}
	if err := svc.HandleGatewayCallback(context.Background(), callback); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := svc.HandleGatewayCallback(context.Background(), callback); err != nil {
		t.Fatalf("replay delivery: %v", err)
	}
	if len(confirmer.confirmed) != 1 {
		t.Fatalf("replay must not confirm twice, got %d", len(confirmer.confirmed))
	}
}

func TestHandleGatewayCallbackSurvivesGuardOutage(t *testing.T) {
	repo := seedSession("cl-ref-5", decimal.NewFromInt(80))
	confirmer := &fakeConfirmer{}
	svc := newWebhookService(t, repo, confirmer, &fakeReplayGuard{err: errors.New("redis down")})

	err := svc.HandleGatewayCallback(context.Background(), Callback{
		Reference: "cl-ref-5",
		Status:    CallbackStatusCompleted,
		Amount:    decimal.NewFromInt(80),
	})
	if err != nil {
		t.Fatalf("guard outage must not block confirmation: %v", err)
	}
	if len(confirmer.confirmed) != 1 {
		t.Fatalf("expected confirmation despite guard outage")
	}
}
