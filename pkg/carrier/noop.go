package carrier

import (
	"context"

	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/logger"
)

// Noop is the Booker used when no carrier credentials are configured. Every
// booking attempt fails with a dependency error, which the consolidation flow
// absorbs by parking the shipment until a retry with a real client.
type Noop struct {
	logg *logger.Logger
}

// NewNoop builds the stand-in booker. The logger may be nil.
func NewNoop(logg *logger.Logger) *Noop {
	return &Noop{logg: logg}
}

func (n *Noop) BookShipment(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	if n.logg != nil {
		logCtx := n.logg.WithField(ctx, "shipment_id", req.ShipmentID)
		n.logg.Warn(logCtx, "carrier not configured, booking skipped")
	}
	return nil, pkgerrors.New(pkgerrors.CodeDependency, "carrier client not configured")
}
