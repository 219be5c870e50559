package purchase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/craftlane/craftlane-backend/internal/catalog"
	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Machine-readable reasons surfaced to the UI when purchase is blocked.
const (
	ReasonQuoteRequired         = "quote_required"
	ReasonQuoteNotAccepted      = "quote_not_accepted"
	ReasonQuoteExpired          = "quote_expired"
	ReasonQuoteScopeMismatch    = "quote_scope_mismatch"
	ReasonQuoteQuantityMismatch = "quote_quantity_mismatch"
	ReasonDesignRequired        = "design_required"
	ReasonDesignNotLinked       = "design_not_linked"
)

// Input is one candidate purchase: a resolved item, the buyer, the intended
// quantity and the quote the cart line is bound to, if any.
type Input struct {
	BuyerID  uuid.UUID
	Item     catalog.Item
	Quantity int
	QuoteID  *uuid.UUID
}

// Decision reports whether purchase is permitted right now and why not. When
// allowed, Quote/Design carry the records that satisfied the gating so the
// caller can link provenance without re-reading.
type Decision struct {
	Allowed bool
	Reasons []string
	Quote   *models.Quote
	Design  *models.DesignApproval
}

// Validator decides purchase eligibility. It only reads; checkout calls it
// inside its own transaction immediately before creating each order line so
// a concurrent quote or design change cannot slip between check and commit.
type Validator struct {
	repo Repository
	now  func() time.Time
}

// NewValidator builds the purchase requirement validator.
func NewValidator(repo Repository) (*Validator, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchase repository required")
	}
	return &Validator{repo: repo, now: time.Now}, nil
}

// CanPurchase evaluates the gating rules for one item. Pass the enclosing
// transaction so the reads share the caller's snapshot; tx may be nil.
func (v *Validator) CanPurchase(ctx context.Context, tx *gorm.DB, input Input) (*Decision, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	repo := v.repo.WithTx(tx)
	decision := &Decision{Allowed: true}

	// A cart line bound to a quote is validated even when the item itself
	// does not require one, so the negotiated price always carries through
	// with provenance instead of silently falling back to the list price.
	if input.Item.RequiresQuote || input.QuoteID != nil {
		v.checkQuote(ctx, repo, input, decision)
	}
	if input.Item.RequiresDesign {
		if err := v.checkDesign(ctx, repo, input, decision); err != nil {
			return nil, err
		}
	}
	if input.Item.RequiresQuote && input.Item.RequiresDesign {
		v.checkLinkage(decision)
	}

	decision.Allowed = len(decision.Reasons) == 0
	return decision, nil
}

func (v *Validator) checkQuote(ctx context.Context, repo Repository, input Input, decision *Decision) {
	if input.QuoteID == nil {
		decision.Reasons = append(decision.Reasons, ReasonQuoteRequired)
		return
	}
	quote, err := repo.FindQuote(ctx, *input.QuoteID)
	if err != nil {
		decision.Reasons = append(decision.Reasons, ReasonQuoteRequired)
		return
	}
	if quote.BuyerID != input.BuyerID {
		decision.Reasons = append(decision.Reasons, ReasonQuoteScopeMismatch)
		return
	}
	if quote.Status != enums.QuoteStatusAccepted {
		decision.Reasons = append(decision.Reasons, ReasonQuoteNotAccepted)
		return
	}
	if quote.IsExpired(v.now()) {
		decision.Reasons = append(decision.Reasons, ReasonQuoteExpired)
		return
	}
	if !quote.MatchesScope(input.Item.ProductID, input.Item.VariantID, input.Item.ServiceID, input.Item.PackageID) {
		decision.Reasons = append(decision.Reasons, ReasonQuoteScopeMismatch)
		return
	}
	if quote.Quantity != input.Quantity {
		decision.Reasons = append(decision.Reasons, ReasonQuoteQuantityMismatch)
		return
	}
	decision.Quote = quote
}

func (v *Validator) checkDesign(ctx context.Context, repo Repository, input Input, decision *Decision) error {
	approval, err := repo.FindApprovedDesignForBuyer(ctx, input.BuyerID, input.Item.SellerID,
		input.Item.VariantID, input.Item.PackageID)
	if err == nil {
		decision.Design = approval
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup approved design")
	}

	// Legacy fallback: designs recorded before variants existed carry a
	// null variant id. Accept one only when the product has exactly one
	// active variant, so the null record is unambiguous. Do not extend.
	if input.Item.VariantID != nil && input.Item.ProductID != nil {
		count, err := repo.CountActiveVariants(ctx, *input.Item.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count variants")
		}
		if count == 1 {
			approval, err := repo.FindApprovedDesignForBuyer(ctx, input.BuyerID, input.Item.SellerID, nil, nil)
			if err == nil {
				decision.Design = approval
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup fallback design")
			}
		}
	}

	decision.Reasons = append(decision.Reasons, ReasonDesignRequired)
	return nil
}

// checkLinkage enforces combined gating: the accepted quote must reference
// the approved design that satisfied the design requirement.
func (v *Validator) checkLinkage(decision *Decision) {
	if decision.Quote == nil || decision.Design == nil {
		return
	}
	if decision.Quote.DesignApprovalID == nil || *decision.Quote.DesignApprovalID != decision.Design.ID {
		decision.Reasons = append(decision.Reasons, ReasonDesignNotLinked)
	}
}

// RequirementError converts a blocked decision into the typed error carried
// back to the buyer, with the machine-readable reasons attached.
func RequirementError(decision *Decision) error {
	if decision == nil || decision.Allowed {
		return nil
	}
	err := pkgerrors.New(pkgerrors.CodeRequirementNotMet, "purchase requirements not met")
	return err.WithDetails(map[string]any{"reasons": decision.Reasons})
}
