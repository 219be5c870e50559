package types

import (
	"fmt"
	"strings"
)

// Address is a shipping destination stored as jsonb. Consolidation groups
// orders by Fingerprint, so normalization lives here and nowhere else.
type Address struct {
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state,omitempty"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}

// Validate checks the fields required to book a shipment.
func (a Address) Validate() error {
	if strings.TrimSpace(a.Line1) == "" {
		return fmt.Errorf("address: missing line1")
	}
	if strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("address: missing city")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		return fmt.Errorf("address: missing postal_code")
	}
	if strings.TrimSpace(a.Country) == "" {
		return fmt.Errorf("address: missing country")
	}
	return nil
}

// Fingerprint returns a normalized key identifying the destination. Two
// addresses with the same fingerprint ship together.
func (a Address) Fingerprint() string {
	parts := []string{a.Line1, stringValue(a.Line2), a.City, a.State, a.PostalCode, a.Country}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.Join(strings.Fields(p), " "))
	}
	return strings.Join(parts, "|")
}

// Equal reports whether both addresses normalize to the same destination.
func (a Address) Equal(other Address) bool {
	return a.Fingerprint() == other.Fingerprint()
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
