package enums

import "fmt"

// ReturnSellerStatus records the seller's recommendation on a return request,
// independent of the admin resolution that may override it.
type ReturnSellerStatus string

const (
	ReturnSellerStatusPending  ReturnSellerStatus = "pending"
	ReturnSellerStatusApproved ReturnSellerStatus = "approved"
	ReturnSellerStatusRejected ReturnSellerStatus = "rejected"
)

var validReturnSellerStatuses = []ReturnSellerStatus{
	ReturnSellerStatusPending,
	ReturnSellerStatusApproved,
	ReturnSellerStatusRejected,
}

// String implements fmt.Stringer.
func (r ReturnSellerStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnSellerStatus.
func (r ReturnSellerStatus) IsValid() bool {
	for _, candidate := range validReturnSellerStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReturnSellerStatus converts raw input into a ReturnSellerStatus.
func ParseReturnSellerStatus(value string) (ReturnSellerStatus, error) {
	for _, candidate := range validReturnSellerStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return seller status %q", value)
}
