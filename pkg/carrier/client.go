package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/types"
)

const requestBodyReadLimit int64 = 1024

var errAPIKeyRequired = errors.New("carrier api key is required")

// BookingRequest describes one consolidated shipment to hand to the carrier.
type BookingRequest struct {
	ShipmentID    string          `json:"shipment_id"`
	Destination   types.Address   `json:"destination"`
	TotalWeightKG decimal.Decimal `json:"total_weight_kg"`
	PieceCount    int             `json:"piece_count"`
}

// BookingResult carries the air waybill and label issued by the carrier.
type BookingResult struct {
	AWB      string `json:"awb"`
	LabelURL string `json:"label_url"`
}

// Booker is the carrier boundary used by shipment consolidation. A booking
// failure must never abort the surrounding consolidation.
type Booker interface {
	BookShipment(ctx context.Context, req BookingRequest) (*BookingResult, error)
}

// Client calls the carrier's shipment booking API over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the carrier client for the configured endpoint.
func NewClient(baseURL, apiKey string, timeout time.Duration, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// BookShipment registers the shipment with the carrier and returns the AWB.
func (c *Client) BookShipment(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "carrier client not configured")
	}
	if strings.TrimSpace(req.ShipmentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id is required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal booking request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/shipments", bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build booking request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute booking request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "booking request failed")
	}

	var result BookingResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode booking response")
	}
	if result.AWB == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "carrier returned empty awb")
	}
	return &result, nil
}
