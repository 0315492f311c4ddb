package domain

type ShipmentCreated struct {
	TrackingNumber string `json:"tracking_number"`
	OrderReference string `json:"order_reference"`
	SupplierID     string `json:"supplier_id"`
	Region         string `json:"region"`
}
