package enums

import "fmt"

// BoostStatus tracks the lifecycle of a paid listing boost.
type BoostStatus string

const (
	BoostStatusPendingPayment BoostStatus = "pending_payment"
	BoostStatusActive         BoostStatus = "active"
	BoostStatusExpired        BoostStatus = "expired"
	BoostStatusCancelled      BoostStatus = "cancelled"
)

var validBoostStatuses = []BoostStatus{
	BoostStatusPendingPayment,
	BoostStatusActive,
	BoostStatusExpired,
	BoostStatusCancelled,
}

// String implements fmt.Stringer.
func (b BoostStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BoostStatus.
func (b BoostStatus) IsValid() bool {
	for _, candidate := range validBoostStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBoostStatus converts raw input into a BoostStatus.
func ParseBoostStatus(value string) (BoostStatus, error) {
	for _, candidate := range validBoostStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid boost status %q", value)
}
