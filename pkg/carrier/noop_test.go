package carrier

import (
	"bytes"
	"context"
	"strings"
	"testing"

	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/logger"
)

func TestNoopBookShipmentFailsAsDependency(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	booker := NewNoop(logg)

	result, err := booker.BookShipment(context.Background(), BookingRequest{ShipmentID: "ship-1"})
	if result != nil {
		t.Fatalf("noop booker must not return a booking")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if !strings.Contains(buf.String(), "ship-1") {
		t.Fatalf("expected shipment id in warning log: %s", buf.String())
	}
}

func TestNoopBookShipmentToleratesNilLogger(t *testing.T) {
	booker := NewNoop(nil)
	if _, err := booker.BookShipment(context.Background(), BookingRequest{ShipmentID: "ship-2"}); err == nil {
		t.Fatal("expected booking error")
	}
}
