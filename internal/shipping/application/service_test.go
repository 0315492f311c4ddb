package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/kryslink/mediconnect-orders/internal/shipping/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	saved     []domain.Shipment
	eventType string
	payload   []byte
	err       error
}

func (f *fakeRepo) SaveWithOutbox(ctx context.Context, s domain.Shipment, eventType string, payload []byte, headers map[string]string, traceparent string) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, s)
	f.eventType = eventType
	f.payload = payload
	return nil
}

func TestProcess_OpensShipment(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	err := svc.Process(context.Background(), "MC-AAAA1111", "sup-1", "Nakuru", nil, "")
	require.NoError(t, err)

	require.Len(t, repo.saved, 1)
	sh := repo.saved[0]
	assert.Equal(t, "MC-AAAA1111", sh.OrderReference)
	assert.Equal(t, "sup-1", sh.SupplierID)
	assert.Equal(t, "Nakuru", sh.Region)
	assert.Equal(t, domain.StatusPreparing, sh.Status)

	_, err = uuid.Parse(sh.TrackingNumber)
	assert.NoError(t, err, "tracking number must be a uuid")

	assert.Equal(t, "ShipmentCreated", repo.eventType)
	var event domain.ShipmentCreated
	require.NoError(t, json.Unmarshal(repo.payload, &event))
	assert.Equal(t, sh.TrackingNumber, event.TrackingNumber)
	assert.Equal(t, "MC-AAAA1111", event.OrderReference)
	assert.Equal(t, "Nakuru", event.Region)
}

func TestProcess_RepoErrorPropagates(t *testing.T) {
	repo := &fakeRepo{err: errors.New("db down")}
	svc := NewService(repo)

	err := svc.Process(context.Background(), "MC-AAAA1111", "sup-1", "Nakuru", nil, "")
	assert.Error(t, err)
	assert.Empty(t, repo.saved)
}
