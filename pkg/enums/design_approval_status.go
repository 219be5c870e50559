package enums

import "fmt"

// DesignApprovalStatus tracks the seller sign-off lifecycle of a submitted design.
type DesignApprovalStatus string

const (
	DesignApprovalStatusPending          DesignApprovalStatus = "pending"
	DesignApprovalStatusUnderReview      DesignApprovalStatus = "under_review"
	DesignApprovalStatusApproved         DesignApprovalStatus = "approved"
	DesignApprovalStatusRejected         DesignApprovalStatus = "rejected"
	DesignApprovalStatusChangesRequested DesignApprovalStatus = "changes_requested"
	DesignApprovalStatusResubmitted      DesignApprovalStatus = "resubmitted"
)

var validDesignApprovalStatuses = []DesignApprovalStatus{
	DesignApprovalStatusPending,
	DesignApprovalStatusUnderReview,
	DesignApprovalStatusApproved,
	DesignApprovalStatusRejected,
	DesignApprovalStatusChangesRequested,
	DesignApprovalStatusResubmitted,
}

// String implements fmt.Stringer.
func (d DesignApprovalStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DesignApprovalStatus.
func (d DesignApprovalStatus) IsValid() bool {
	for _, candidate := range validDesignApprovalStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// IsReviewable reports whether a seller decision may be recorded.
func (d DesignApprovalStatus) IsReviewable() bool {
	return d == DesignApprovalStatusPending ||
		d == DesignApprovalStatusUnderReview ||
		d == DesignApprovalStatusResubmitted
}

// IsTerminal reports whether no further transition is possible.
func (d DesignApprovalStatus) IsTerminal() bool {
	return d == DesignApprovalStatusApproved || d == DesignApprovalStatusRejected
}

// ParseDesignApprovalStatus converts raw input into a DesignApprovalStatus.
func ParseDesignApprovalStatus(value string) (DesignApprovalStatus, error) {
	for _, candidate := range validDesignApprovalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid design approval status %q", value)
}
