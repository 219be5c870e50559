package square

import (
	"testing"

	sq "github.com/square/square-go-sdk"
)

func TestPaymentLinkCreateParamsToSquareRequest(t *testing.T) {
	params := PaymentLinkCreateParams{
		LocationID:  "loc-1",
		Name:        "checkout session",
		AmountCents: 2500,
		Currency:    "usd",
		ReferenceID: "ref-42",
		RedirectURL: "https://example.test/return",
	}

	req := params.toSquareRequest("key-1")
	if req.IdempotencyKey == nil || *req.IdempotencyKey != "key-1" {
		t.Fatalf("idempotency key not carried")
	}
	if req.QuickPay == nil || req.QuickPay.LocationID != "loc-1" {
		t.Fatalf("quick pay location missing")
	}
	if req.QuickPay.PriceMoney == nil || *req.QuickPay.PriceMoney.Amount != 2500 {
		t.Fatalf("price money missing")
	}
	if *req.QuickPay.PriceMoney.Currency != sq.Currency("USD") {
		t.Fatalf("currency not normalized: %v", req.QuickPay.PriceMoney.Currency)
	}
	if req.CheckoutOptions == nil || *req.CheckoutOptions.RedirectURL != "https://example.test/return" {
		t.Fatalf("redirect url missing")
	}
	if req.PaymentNote == nil || *req.PaymentNote != "ref-42" {
		t.Fatalf("reference not carried in payment note")
	}
}

func TestPaymentLinkCreateParamsOmitsEmptyOptions(t *testing.T) {
	params := PaymentLinkCreateParams{
		LocationID:  "loc-1",
		Name:        "checkout session",
		AmountCents: 100,
	}

	req := params.toSquareRequest("key-2")
	if req.CheckoutOptions != nil {
		t.Fatalf("blank redirect must not produce checkout options")
	}
	if req.PaymentNote != nil {
		t.Fatalf("blank reference must not produce a payment note")
	}
}
