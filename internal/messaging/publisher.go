package messaging

import (
	"context"
	"time"
)

// NotificationType identifies what happened to a product
type NotificationType string

const (
	NotificationProductSold       NotificationType = "product.sold"
	NotificationDeliveryConfirmed NotificationType = "escrow.delivery_confirmed"
	NotificationEscrowReleased    NotificationType = "escrow.released"
	NotificationDisputeRaised     NotificationType = "escrow.dispute_raised"
	NotificationDisputeResolved   NotificationType = "escrow.dispute_resolved"
)

// Notification is published for downstream SMS and voice workers
type Notification struct {
	ID             string           `json:"id"`
	Type           NotificationType `json:"type"`
	ProductID      string           `json:"product_id"`
	ProductChainID int64            `json:"product_chain_id"`
	ProductName    string           `json:"product_name,omitempty"`
	Seller         string           `json:"seller,omitempty"`
	Buyer          string           `json:"buyer,omitempty"`
	Amount         string           `json:"amount,omitempty"`
	EscrowStatus   string           `json:"escrow_status,omitempty"`
	TxHash         string           `json:"tx_hash,omitempty"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

// Publisher defines the interface for publishing notifications to the message broker
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishNotification publishes a marketplace notification
	PublishNotification(ctx context.Context, n *Notification) error
	// Close closes the connection
	Close()
}
