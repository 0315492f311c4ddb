package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kryslink/mediconnect-orders/internal/checkout/application"
	"github.com/kryslink/mediconnect-orders/internal/checkout/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	auth    *Auth
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service, auth *Auth) *Handler {
	return &Handler{
		log:     log,
		service: service,
		auth:    auth,
		tracer:  otel.Tracer("checkout-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(h.auth.Middleware)
		r.Post("/checkout", h.checkout)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{reference}", h.getOrder)
		r.Get("/suppliers/{supplierID}/orders", h.listSupplierOrders)
		r.Post("/orders/{reference}/ship", h.shipOrder)
		r.Post("/orders/{reference}/deliver", h.deliverOrder)
		r.Post("/orders/{reference}/cancel", h.cancelOrder)
		r.Post("/orders/{reference}/payment", h.recordPayment)
	})
	return r
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Checkout")
	defer span.End()

	var req application.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.Checkout(ctx, UserID(ctx), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(result)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	o, err := h.service.GetOrder(ctx, UserID(ctx), chi.URLParam(r, "reference"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListOrders")
	defer span.End()

	orders, err := h.service.ListCustomerOrders(ctx, UserID(ctx))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) listSupplierOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListSupplierOrders")
	defer span.End()

	status := domain.OrderStatus(r.URL.Query().Get("status"))
	orders, err := h.service.ListSupplierOrders(ctx, chi.URLParam(r, "supplierID"), status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

type shipReq struct {
	TrackingNumber string `json:"tracking_number"`
}

func (h *Handler) shipOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ShipOrder")
	defer span.End()

	var req shipReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.service.ShipOrder(ctx, UserID(ctx), chi.URLParam(r, "reference"), req.TrackingNumber)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) deliverOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DeliverOrder")
	defer span.End()

	o, err := h.service.DeliverOrder(ctx, UserID(ctx), chi.URLParam(r, "reference"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CancelOrder")
	defer span.End()

	var req cancelReq
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	o, err := h.service.CancelOrder(ctx, UserID(ctx), chi.URLParam(r, "reference"), req.Reason)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type paymentReq struct {
	Outcome domain.PaymentStatus `json:"outcome"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RecordPayment")
	defer span.End()

	var req paymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.service.RecordPayment(ctx, UserID(ctx), chi.URLParam(r, "reference"), req.Outcome)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// writeServiceError converts the error taxonomy into one user-facing
// message per response. Internal causes are logged, never exposed.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	var txerr *domain.TransactionFailure

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "order state does not allow this action")
	case errors.As(err, &txerr):
		h.log.Error("checkout transaction failed", "path", r.URL.Path, "err", txerr.Cause)
		writeError(w, http.StatusInternalServerError, "could not complete your order, please try again")
	default:
		h.log.Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
