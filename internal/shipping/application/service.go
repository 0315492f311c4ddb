package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/kryslink/mediconnect-orders/internal/shipping/domain"
)

type Service struct {
	repo ShipmentRepository
}

func NewService(repo ShipmentRepository) *Service {
	return &Service{repo: repo}
}

// Process opens a shipment for a newly created order and announces it via
// the outbox. The upsert in the repository makes replays harmless.
func (s *Service) Process(ctx context.Context, orderReference, supplierID, region string, headers map[string]string, traceparent string) error {
	now := time.Now().UTC()
	sh := domain.Shipment{
		TrackingNumber: uuid.New().String(),
		OrderReference: orderReference,
		SupplierID:     supplierID,
		Region:         region,
		Status:         domain.StatusPreparing,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	event := domain.ShipmentCreated{
		TrackingNumber: sh.TrackingNumber,
		OrderReference: sh.OrderReference,
		SupplierID:     sh.SupplierID,
		Region:         sh.Region,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.repo.SaveWithOutbox(ctx, sh, "ShipmentCreated", payload, headers, traceparent)
}
