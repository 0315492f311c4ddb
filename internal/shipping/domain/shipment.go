package domain

import "time"

type Status string

const (
	StatusPreparing  Status = "preparing"
	StatusDispatched Status = "dispatched"
	StatusDelivered  Status = "delivered"
)

// Shipment is the fulfillment record opened for every order the moment it
// is created. Region comes from the order's shipping address and routes
// the parcel to the right depot.
type Shipment struct {
	TrackingNumber string
	OrderReference string
	SupplierID     string
	Region         string
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
