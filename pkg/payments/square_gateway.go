package payments

import (
	"context"
	"errors"

	"github.com/craftlane/craftlane-backend/pkg/config"
	"github.com/craftlane/craftlane-backend/pkg/square"
)

// SquareGateway implements Gateway on top of the Square checkout API.
type SquareGateway struct {
	client *square.Client
	cfg    config.SquareConfig
}

// NewSquareGateway wires the Square client into the gateway boundary.
func NewSquareGateway(client *square.Client, cfg config.SquareConfig) (*SquareGateway, error) {
	if client == nil {
		return nil, errors.New("square client is required")
	}
	return &SquareGateway{client: client, cfg: cfg}, nil
}

func (g *SquareGateway) CreateRedirect(ctx context.Context, charge Charge) (*Redirect, error) {
	link, err := g.client.CreatePaymentLink(ctx, square.PaymentLinkCreateParams{
		LocationID:  g.cfg.LocationID,
		Name:        charge.Description,
		AmountCents: AmountToCents(charge.Amount),
		ReferenceID: charge.Reference,
		RedirectURL: g.cfg.RedirectBase,
	})
	if err != nil {
		return nil, err
	}
	url := ""
	if u := link.GetURL(); u != nil {
		url = *u
	}
	return &Redirect{
		URL:       url,
		Reference: charge.Reference,
		Amount:    charge.Amount,
	}, nil
}

func (g *SquareGateway) RefundPayment(ctx context.Context, refund Refund) error {
	_, err := g.client.RefundPayment(ctx, square.RefundCreateParams{
		PaymentID:   refund.GatewayPaymentID,
		AmountCents: AmountToCents(refund.Amount),
		Reason:      refund.Reason,
	})
	return err
}
