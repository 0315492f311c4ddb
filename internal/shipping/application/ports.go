package application

import (
	"context"

	"github.com/kryslink/mediconnect-orders/internal/shipping/domain"
)

type ShipmentRepository interface {
	SaveWithOutbox(ctx context.Context, s domain.Shipment, eventType string, payload []byte, headers map[string]string, traceparent string) error
}
