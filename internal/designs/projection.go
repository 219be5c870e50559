package designs

import (
	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
)

// BuyerView decorates a stored design approval with read-side flags. The
// stored status stays the source of truth; the changes-requested banner is
// suppressed when a newer submission exists for the same scope, so stale
// revision requests do not keep nagging the buyer.
type BuyerView struct {
	models.DesignApproval
	ShowChangesRequested bool `json:"show_changes_requested"`
}

// Project computes buyer-facing views over a conversation's approvals. Input
// order does not matter; suppression compares creation timestamps only.
func Project(approvals []models.DesignApproval) []BuyerView {
	views := make([]BuyerView, 0, len(approvals))
	for _, approval := range approvals {
		view := BuyerView{DesignApproval: approval}
		if approval.Status == enums.DesignApprovalStatusChangesRequested {
			view.ShowChangesRequested = !hasNewerSibling(approval, approvals)
		}
		views = append(views, view)
	}
	return views
}

func hasNewerSibling(approval models.DesignApproval, approvals []models.DesignApproval) bool {
	for _, candidate := range approvals {
		if candidate.ID == approval.ID {
			continue
		}
		if !candidate.MatchesScope(approval.VariantID, approval.PackageID) {
			continue
		}
		if candidate.CreatedAt.After(approval.CreatedAt) {
			return true
		}
	}
	return false
}
