package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeQuoteRequested     NotificationType = "quote_requested"
	NotificationTypeQuoteSent          NotificationType = "quote_sent"
	NotificationTypeQuoteDecided       NotificationType = "quote_decided"
	NotificationTypeDesignSubmitted    NotificationType = "design_submitted"
	NotificationTypeDesignDecided      NotificationType = "design_decided"
	NotificationTypeOrderAlert         NotificationType = "order_alert"
	NotificationTypePaymentAlert       NotificationType = "payment_alert"
	NotificationTypeShipmentAlert      NotificationType = "shipment_alert"
	NotificationTypeReturnAlert        NotificationType = "return_alert"
	NotificationTypeSystemAnnouncement NotificationType = "system_announcement"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeQuoteRequested,
	NotificationTypeQuoteSent,
	NotificationTypeQuoteDecided,
	NotificationTypeDesignSubmitted,
	NotificationTypeDesignDecided,
	NotificationTypeOrderAlert,
	NotificationTypePaymentAlert,
	NotificationTypeShipmentAlert,
	NotificationTypeReturnAlert,
	NotificationTypeSystemAnnouncement,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
