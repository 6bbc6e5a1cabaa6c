package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/rl1809/retail-checkout/internal/core/domain"
	"github.com/rl1809/retail-checkout/internal/core/service"
)

type HTTPHandler struct {
	catalog  *service.Catalog
	sessions *service.SessionStore
	ledger   *service.OrderLedger
}

type ProductResponse struct {
	ID          string `json:"id"`
	UnitPrice   string `json:"unit_price"`
	Description string `json:"description"`
}

type LineResponse struct {
	ProductID string `json:"product_id"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
}

type CartResponse struct {
	UserID string         `json:"user_id"`
	Lines  []LineResponse `json:"lines"`
	Total  string         `json:"total"`
}

type OrderResponse struct {
	ID        string         `json:"id"`
	CartID    string         `json:"cart_id"`
	Lines     []LineResponse `json:"lines"`
	Total     string         `json:"total"`
	CreatedAt time.Time      `json:"created_at"`
}

type SetQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(catalog *service.Catalog, sessions *service.SessionStore, ledger *service.OrderLedger) *HTTPHandler {
	return &HTTPHandler{catalog: catalog, sessions: sessions, ledger: ledger}
}

func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{productID}", h.GetProduct)

		r.Get("/carts/{userID}", h.GetCart)
		r.Delete("/carts/{userID}", h.EndSession)
		r.Put("/carts/{userID}/items/{productID}", h.SetItem)
		r.Delete("/carts/{userID}/items/{productID}", h.RemoveItem)
		r.Post("/carts/{userID}/checkout", h.Checkout)

		r.Get("/orders", h.ListOrders)
		r.Get("/orders/{orderID}", h.GetOrder)
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.List()
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Lookup(chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	cart, ok := h.sessions.Lookup(userID)
	if !ok {
		writeJSON(w, http.StatusOK, toCartResponse(userID, nil))
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(userID, cart.Lines()))
}

func (h *HTTPHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.End(chi.URLParam(r, "userID"))
	w.WriteHeader(http.StatusNoContent)
}

// SetItem puts a product in the cart. Without a body the quantity is 1;
// an existing line has its quantity replaced.
func (h *HTTPHandler) SetItem(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req SetQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	p, err := h.catalog.Lookup(chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, err)
		return
	}

	cart := h.sessions.Cart(userID)
	if err := cart.AddItem(p, quantity); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCartResponse(userID, cart.Lines()))
}

func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	cart, ok := h.sessions.Lookup(userID)
	if !ok {
		writeJSON(w, http.StatusOK, toCartResponse(userID, nil))
		return
	}
	cart.RemoveItem(chi.URLParam(r, "productID"))
	writeJSON(w, http.StatusOK, toCartResponse(userID, cart.Lines()))
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	cart, ok := h.sessions.Lookup(userID)
	if !ok {
		writeError(w, domain.ErrEmptyCart)
		return
	}

	order, err := h.ledger.Checkout(r.Context(), cart)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders := h.ledger.AllOrders()
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := h.ledger.Order(chi.URLParam(r, "orderID"))
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "order not found"})
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func mapErrorToStatusCode(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound, "product not found"
	case errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrEmptyCart):
		return http.StatusUnprocessableEntity, "cart is empty"
	case errors.Is(err, domain.ErrPaymentDeclined):
		return http.StatusPaymentRequired, "payment declined"
	case errors.Is(err, domain.ErrCheckoutInProgress):
		return http.StatusConflict, "checkout already in progress"
	case errors.Is(err, domain.ErrPaymentUnavailable):
		return http.StatusBadGateway, "payment could not be processed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, message := mapErrorToStatusCode(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, ErrorResponse{Error: message})
}

func toProductResponse(p domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		UnitPrice:   p.UnitPrice.StringFixed(2),
		Description: p.Description,
	}
}

// toCartResponse renders one copy of the cart so the total always matches
// the listed lines. A nil map is an empty cart.
func toCartResponse(userID string, cartLines map[string]domain.CartLine) CartResponse {
	lines := make([]LineResponse, 0, len(cartLines))
	total := decimal.Zero
	for _, l := range cartLines {
		total = total.Add(l.Subtotal())
		lines = append(lines, LineResponse{
			ProductID: l.Product.ID,
			UnitPrice: l.Product.UnitPrice.StringFixed(2),
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal().StringFixed(2),
		})
	}
	sortLines(lines)

	return CartResponse{
		UserID: userID,
		Lines:  lines,
		Total:  total.StringFixed(2),
	}
}

func toOrderResponse(o domain.Order) OrderResponse {
	lines := make([]LineResponse, 0, o.Len())
	for _, l := range o.Lines() {
		lines = append(lines, LineResponse{
			ProductID: l.ProductID,
			UnitPrice: l.UnitPrice.StringFixed(2),
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal().StringFixed(2),
		})
	}

	return OrderResponse{
		ID:        o.ID(),
		CartID:    o.CartID(),
		Lines:     lines,
		Total:     o.Total().StringFixed(2),
		CreatedAt: o.CreatedAt(),
	}
}

func sortLines(lines []LineResponse) {
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
