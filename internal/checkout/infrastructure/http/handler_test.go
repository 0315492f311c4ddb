package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kryslink/mediconnect-orders/internal/checkout/application"
	"github.com/kryslink/mediconnect-orders/internal/checkout/domain"
	"github.com/kryslink/mediconnect-orders/pkg/idempotency"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	orders []domain.Order
}

func (m *memRepo) CreateAll(ctx context.Context, orders []domain.Order, traceparent string) error {
	m.orders = append(m.orders, orders...)
	return nil
}

func (m *memRepo) GetByReference(ctx context.Context, reference string) (domain.Order, error) {
	for _, o := range m.orders {
		if o.Reference == reference {
			return o, nil
		}
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

func (m *memRepo) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memRepo) ListBySupplier(ctx context.Context, supplierID string, status domain.OrderStatus) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range m.orders {
		if o.SupplierID == supplierID && (status == "" || o.Status == status) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memRepo) UpdateStatus(ctx context.Context, o domain.Order, prev domain.OrderStatus, eventType string, payload []byte, traceparent string) error {
	for i := range m.orders {
		if m.orders[i].Reference == o.Reference && m.orders[i].Status == prev {
			m.orders[i] = o
			return nil
		}
	}
	return domain.ErrInvalidTransition
}

func (m *memRepo) SettlePayment(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error {
	for i := range m.orders {
		if m.orders[i].Reference == o.Reference && m.orders[i].PaymentStatus == domain.PaymentPending {
			m.orders[i] = o
			return nil
		}
	}
	return domain.ErrInvalidTransition
}

type seqRefs struct{ n int }

func (g *seqRefs) NewReference() (string, error) {
	g.n++
	return fmt.Sprintf("MC-HTTP%04d", g.n), nil
}

// staticSessions resolves a fixed token table.
type staticSessions map[string]string

func (s staticSessions) Resolve(ctx context.Context, token string) (string, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", idempotency.ErrSessionNotFound
}

func newTestServer(repo *memRepo) *httptest.Server {
	log := slog.New(slog.DiscardHandler)
	svc := application.NewService(repo, &seqRefs{}, domain.DefaultTaxRate)
	auth := NewAuth(log, staticSessions{
		"tok-pharmacy": "cust-1",
		"tok-supplier": "sup-1",
		"tok-rival":    "cust-9",
	})
	h := NewHandler(log, svc, auth)
	return httptest.NewServer(h.Routes())
}

func doJSON(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

const checkoutBody = `{
	"cart": [
		{"product_id":"p1","supplier_id":"sup-1","name":"Amoxicillin 500mg","unit_price":"100","quantity":2},
		{"product_id":"p2","supplier_id":"sup-2","name":"Paracetamol 1g","unit_price":"50","quantity":1}
	],
	"shipping_address": {"line1":"12 Biashara St","city":"Nakuru","region":"Nakuru","phone":"+254700000001"},
	"billing_details": {"name":"Afya Pharmacy Ltd","email":"accounts@afya.example"},
	"payment_method": "mobile_money"
}`

func TestCheckoutEndpoint(t *testing.T) {
	repo := &memRepo{}
	ts := newTestServer(repo)
	defer ts.Close()

	resp := doJSON(t, http.MethodPost, ts.URL+"/checkout", "tok-pharmacy", checkoutBody)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		References []string `json:"references"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Len(t, result.References, 2)
	assert.Len(t, repo.orders, 2)
	assert.Equal(t, "cust-1", repo.orders[0].CustomerID, "identity must come from the session, not the payload")
}

func TestCheckoutEndpoint_RequiresSession(t *testing.T) {
	ts := newTestServer(&memRepo{})
	defer ts.Close()

	resp := doJSON(t, http.MethodPost, ts.URL+"/checkout", "", checkoutBody)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, ts.URL+"/checkout", "tok-unknown", checkoutBody)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCheckoutEndpoint_ValidationErrorListsFields(t *testing.T) {
	repo := &memRepo{}
	ts := newTestServer(repo)
	defer ts.Close()

	resp := doJSON(t, http.MethodPost, ts.URL+"/checkout", "tok-pharmacy", `{"cart":[],"payment_method":"mobile_money"}`)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body struct {
		Error  string             `json:"error"`
		Fields []domain.FieldError `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.Fields)
	assert.Empty(t, repo.orders)
}

func TestGetOrderEndpoint(t *testing.T) {
	repo := &memRepo{}
	ts := newTestServer(repo)
	defer ts.Close()

	resp := doJSON(t, http.MethodPost, ts.URL+"/checkout", "tok-pharmacy", checkoutBody)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	ref := repo.orders[0].Reference
	resp = doJSON(t, http.MethodGet, ts.URL+"/orders/"+ref, "tok-pharmacy", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var o domain.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&o))
	assert.Equal(t, ref, o.Reference)
	assert.True(t, decimal.RequireFromString("232").Equal(o.TotalAmount))
}

func TestGetOrderEndpoint_HiddenFromOtherUsers(t *testing.T) {
	repo := &memRepo{}
	ts := newTestServer(repo)
	defer ts.Close()

	resp := doJSON(t, http.MethodPost, ts.URL+"/checkout", "tok-pharmacy", checkoutBody)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	ref := repo.orders[0].Reference

	// an unrelated customer must not learn the reference exists
	resp = doJSON(t, http.MethodGet, ts.URL+"/orders/"+ref, "tok-rival", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// the fulfilling supplier may read it
	resp = doJSON(t, http.MethodGet, ts.URL+"/orders/"+ref, "tok-supplier", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetOrderEndpoint_NotFound(t *testing.T) {
	ts := newTestServer(&memRepo{})
	defer ts.Close()

	resp := doJSON(t, http.MethodGet, ts.URL+"/orders/MC-NOPE0000", "tok-pharmacy", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestShipEndpoint_InvalidTransitionConflicts(t *testing.T) {
	repo := &memRepo{}
	ts := newTestServer(repo)
	defer ts.Close()

	resp := doJSON(t, http.MethodPost, ts.URL+"/checkout", "tok-pharmacy", checkoutBody)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	ref := repo.orders[0].Reference

	resp = doJSON(t, http.MethodPost, ts.URL+"/orders/"+ref+"/ship", "tok-supplier", `{"tracking_number":"TRK-001"}`)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, ts.URL+"/orders/"+ref+"/ship", "tok-supplier", `{"tracking_number":"TRK-002"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestListOrdersEndpoint(t *testing.T) {
	repo := &memRepo{}
	ts := newTestServer(repo)
	defer ts.Close()

	resp := doJSON(t, http.MethodPost, ts.URL+"/checkout", "tok-pharmacy", checkoutBody)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/orders", "tok-pharmacy", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var orders []domain.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&orders))
	assert.Len(t, orders, 2)
}
