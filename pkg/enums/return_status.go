package enums

import "fmt"

// ReturnStatus tracks the overall buyer -> seller -> admin return pipeline.
type ReturnStatus string

const (
	ReturnStatusRequested      ReturnStatus = "requested"
	ReturnStatusUnderReview    ReturnStatus = "under_review"
	ReturnStatusSellerApproved ReturnStatus = "seller_approved"
	ReturnStatusSellerRejected ReturnStatus = "seller_rejected"
	ReturnStatusAdminApproved  ReturnStatus = "admin_approved"
	ReturnStatusAdminRejected  ReturnStatus = "admin_rejected"
	ReturnStatusRefunded       ReturnStatus = "refunded"
	ReturnStatusCompleted      ReturnStatus = "completed"
	ReturnStatusCancelled      ReturnStatus = "cancelled"
)

var validReturnStatuses = []ReturnStatus{
	ReturnStatusRequested,
	ReturnStatusUnderReview,
	ReturnStatusSellerApproved,
	ReturnStatusSellerRejected,
	ReturnStatusAdminApproved,
	ReturnStatusAdminRejected,
	ReturnStatusRefunded,
	ReturnStatusCompleted,
	ReturnStatusCancelled,
}

// String implements fmt.Stringer.
func (r ReturnStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnStatus.
func (r ReturnStatus) IsValid() bool {
	for _, candidate := range validReturnStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the request can no longer move.
func (r ReturnStatus) IsTerminal() bool {
	return r == ReturnStatusCompleted || r == ReturnStatusAdminRejected || r == ReturnStatusCancelled
}

// IsActive reports whether the request still occupies its parent order/booking.
func (r ReturnStatus) IsActive() bool {
	return !r.IsTerminal()
}

// ParseReturnStatus converts raw input into a ReturnStatus.
func ParseReturnStatus(value string) (ReturnStatus, error) {
	for _, candidate := range validReturnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return status %q", value)
}
