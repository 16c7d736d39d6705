package marketapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/FreshOps/MarketBox/internal/integrations/geocoder"
	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/FreshOps/MarketBox/internal/services/cart"
	"github.com/FreshOps/MarketBox/internal/services/catalog"
	"github.com/FreshOps/MarketBox/internal/services/delivery"
	"github.com/FreshOps/MarketBox/internal/services/loyalty"
	"github.com/FreshOps/MarketBox/internal/services/orders"
	"github.com/FreshOps/MarketBox/internal/services/promos"
	"github.com/FreshOps/MarketBox/internal/services/reviews"
	"github.com/FreshOps/MarketBox/internal/storage/pgmarket"
	"github.com/FreshOps/MarketBox/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
)

const userIDHeader = "X-User-Id"

// MarketAPI holds the HTTP surface of the storefront.
type MarketAPI struct {
	catalog  *catalog.Service
	cart     *cart.Service
	orders   *orders.Service
	reviews  *reviews.Service
	loyalty  *loyalty.Service
	promos   *promos.Service
	geocoder geocoder.Client
	hub      *ws.Hub

	reservations delivery.ReservationSource
}

func New(
	catalogSvc *catalog.Service,
	cartSvc *cart.Service,
	ordersSvc *orders.Service,
	reviewsSvc *reviews.Service,
	loyaltySvc *loyalty.Service,
	promosSvc *promos.Service,
	geo geocoder.Client,
	hub *ws.Hub,
	reservations delivery.ReservationSource,
) *MarketAPI {
	return &MarketAPI{
		catalog:      catalogSvc,
		cart:         cartSvc,
		orders:       ordersSvc,
		reviews:      reviewsSvc,
		loyalty:      loyaltySvc,
		promos:       promosSvc,
		geocoder:     geo,
		hub:          hub,
		reservations: reservations,
	}
}

func (a *MarketAPI) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", a.listProducts)
		r.Get("/products/{productID}", a.getProduct)
		r.Get("/products/{productID}/reviews", a.listReviews)
		r.Post("/products/{productID}/reviews", a.createReview)

		r.Get("/cart", a.getCart)
		r.Put("/cart/items", a.setCartItem)
		r.Delete("/cart/items/{productID}", a.removeCartItem)
		r.Delete("/cart", a.clearCart)

		r.Get("/delivery/zones", a.listZones)
		r.Get("/delivery/options", a.listOptions)
		r.Get("/delivery/slots", a.listSlots)
		r.Post("/delivery/quote", a.quoteFee)
		r.Get("/delivery/instructions", a.deriveInstructions)

		r.Get("/address/autocomplete", a.autocompleteAddress)

		r.Post("/promos/validate", a.validatePromo)

		r.Post("/checkout", a.checkout)

		r.Get("/orders", a.listOrders)
		r.Get("/orders/{orderID}", a.getOrder)
		r.Get("/orders/{orderID}/tracking", a.listTracking)
		r.Post("/orders/{orderID}/refresh", a.refreshOrder)

		r.Get("/loyalty", a.loyaltyBalance)
		r.Get("/loyalty/history", a.loyaltyHistory)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/products", a.upsertProduct)
			r.Get("/products/low-stock", a.listLowStock)
			r.Post("/orders/{orderID}/status", a.setOrderStatus)
		})
	})

	if a.hub != nil {
		r.Get("/ws", a.hub.HandleWebSocket)
	}

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto the response contract: validation
// problems are 400 with the message inline, availability problems are 409 or
// 422 with a banner-ready message, upstream failures are a generic 502.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pgmarket.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, delivery.ErrUnavailable):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "Delivery is not available for this address"})
	case errors.Is(err, delivery.ErrSlotFull), errors.Is(err, delivery.ErrSlotExpired):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "The selected delivery window is no longer available"})
	case errors.Is(err, delivery.ErrSlotRequired):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, orders.ErrPaymentDeclined):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "Payment was declined"})
	case errors.Is(err, orders.ErrEmptyCart),
		errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, reviews.ErrInvalidRating),
		errors.Is(err, cart.ErrInactiveProduct),
		errors.Is(err, cart.ErrNotEnoughStock),
		errors.Is(err, pgmarket.ErrOutOfStock),
		errors.Is(err, pgmarket.ErrInsufficientPoints),
		errors.Is(err, promos.ErrUnknownCode),
		errors.Is(err, promos.ErrExpiredCode),
		errors.Is(err, promos.ErrBelowMinimum):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		slog.Error("request failed", "error", err.Error())
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "Something went wrong, please try again"})
	}
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(userIDHeader))
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid := userID(r)
	if uid == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: userIDHeader + " header is required"})
		return "", false
	}
	return uid, true
}

func pathUint(r *http.Request, name string) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, name), 10, 64)
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (a *MarketAPI) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := a.catalog.ListProducts(r.Context(), q.Get("category"), q.Get("search"),
		queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *MarketAPI) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "productID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed product id"})
		return
	}
	out, err := a.catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *MarketAPI) listReviews(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "productID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed product id"})
		return
	}
	out, err := a.reviews.List(r.Context(), id, queryInt(r, "limit", 20), queryInt(r, "offset", 0))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type createReviewRequest struct {
	Rating int    `json:"rating"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

func (a *MarketAPI) createReview(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathUint(r, "productID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed product id"})
		return
	}
	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed body"})
		return
	}
	out, err := a.reviews.Create(r.Context(), &models.Review{
		ProductID: id, UserID: uid, Rating: req.Rating, Title: req.Title, Body: req.Body,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (a *MarketAPI) getCart(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	c, err := a.cart.GetCart(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type setCartItemRequest struct {
	ProductID uint64 `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

func (a *MarketAPI) setCartItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req setCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed body"})
		return
	}
	c, err := a.cart.SetItem(r.Context(), uid, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *MarketAPI) removeCartItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathUint(r, "productID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed product id"})
		return
	}
	c, err := a.cart.RemoveItem(r.Context(), uid, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *MarketAPI) clearCart(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := a.cart.Clear(r.Context(), uid); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *MarketAPI) listZones(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, delivery.Zones())
}

func (a *MarketAPI) listOptions(w http.ResponseWriter, r *http.Request) {
	postal := r.URL.Query().Get("postal_code")
	if postal == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "postal_code is required"})
		return
	}
	zone, ok := delivery.ZoneForPostalCode(postal)
	if !ok {
		writeError(w, delivery.ErrUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, delivery.OptionsForZone(zone))
}

func (a *MarketAPI) listSlots(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	postal := q.Get("postal_code")
	optionID := q.Get("option_id")
	if postal == "" || optionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "postal_code and option_id are required"})
		return
	}

	zone, found := delivery.ZoneForPostalCode(postal)
	if !found {
		writeError(w, delivery.ErrUnavailable)
		return
	}
	option, found := delivery.OptionByID(optionID)
	if !found {
		writeError(w, delivery.ErrUnavailable)
		return
	}

	c, err := a.cart.GetCart(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	perishable := false
	for _, it := range c.Items {
		if it.Perishable() {
			perishable = true
			break
		}
	}

	gen := delivery.NewSlotGenerator(zone, option, perishable, a.reservations)
	slots, err := gen.Collect(r.Context(), queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

type quoteRequest struct {
	PostalCode string `json:"postal_code"`
	OptionID   string `json:"option_id"`
	Rush       bool   `json:"rush"`
}

func (a *MarketAPI) quoteFee(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed body"})
		return
	}
	c, err := a.cart.GetCart(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	quote, err := delivery.CalculateFee(c.Items, req.PostalCode, req.OptionID, req.Rush)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (a *MarketAPI) deriveInstructions(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	c, err := a.cart.GetCart(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, delivery.DeriveInstructions(c.Items))
}

func (a *MarketAPI) autocompleteAddress(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if len(q) < 3 {
		writeJSON(w, http.StatusOK, []geocoder.Suggestion{})
		return
	}
	out, err := a.geocoder.Suggest(r.Context(), q, r.URL.Query().Get("country"), nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type validatePromoRequest struct {
	Code string `json:"code"`
}

type validatePromoResponse struct {
	Code          string `json:"code"`
	DiscountCents int64  `json:"discount_cents"`
}

func (a *MarketAPI) validatePromo(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req validatePromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed body"})
		return
	}
	c, err := a.cart.GetCart(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	discount, err := a.promos.Discount(req.Code, models.CartSubtotalCents(c.Items))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, validatePromoResponse{Code: req.Code, DiscountCents: discount})
}

type checkoutRequest struct {
	ShippingAddress models.Address `json:"shipping_address"`
	BillingAddress  models.Address `json:"billing_address"`

	ShippingOptionID string `json:"shipping_option_id"`
	SlotID           string `json:"slot_id"`
	Instructions     string `json:"instructions"`
	Contactless      bool   `json:"contactless"`
	Signature        bool   `json:"signature_required"`
	Rush             bool   `json:"rush"`

	PromoCode    string `json:"promo_code"`
	RedeemPoints int64  `json:"redeem_points"`
}

func (a *MarketAPI) checkout(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed body"})
		return
	}
	if req.BillingAddress.Line1 == "" {
		req.BillingAddress = req.ShippingAddress
	}

	c, err := a.cart.GetCart(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}

	order, err := a.orders.Checkout(r.Context(), orders.CheckoutInput{
		Cart:             c,
		ShippingAddress:  req.ShippingAddress,
		BillingAddress:   req.BillingAddress,
		ShippingOptionID: req.ShippingOptionID,
		SlotID:           req.SlotID,
		Instructions:     req.Instructions,
		Contactless:      req.Contactless,
		Signature:        req.Signature,
		Rush:             req.Rush,
		PromoCode:        req.PromoCode,
		RedeemPoints:     req.RedeemPoints,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if a.hub != nil {
		a.hub.Broadcast("order.created", order)
	}
	writeJSON(w, http.StatusCreated, order)
}

func (a *MarketAPI) listOrders(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	out, err := a.orders.ListOrders(r.Context(), uid, queryInt(r, "limit", 20), queryInt(r, "offset", 0))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *MarketAPI) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "orderID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed order id"})
		return
	}
	v, err := a.orders.View(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *MarketAPI) listTracking(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "orderID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed order id"})
		return
	}
	out, err := a.orders.ListTrackingEntries(r.Context(), id, true, queryInt(r, "limit", 100), queryInt(r, "offset", 0))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *MarketAPI) refreshOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "orderID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed order id"})
		return
	}
	if err := a.orders.RefreshOrder(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *MarketAPI) loyaltyBalance(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	out, err := a.loyalty.Balance(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *MarketAPI) loyaltyHistory(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	out, err := a.loyalty.History(r.Context(), uid, queryInt(r, "limit", 20), queryInt(r, "offset", 0))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *MarketAPI) upsertProduct(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed body"})
		return
	}
	out, err := a.catalog.UpsertProduct(r.Context(), &p)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *MarketAPI) listLowStock(w http.ResponseWriter, r *http.Request) {
	out, err := a.catalog.ListLowStock(r.Context(), int64(queryInt(r, "threshold", 5)))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type setStatusRequest struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (a *MarketAPI) setOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "orderID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed order id"})
		return
	}
	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed body"})
		return
	}
	o, err := a.orders.Transition(r.Context(), id, req.Status, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	if a.hub != nil {
		a.hub.Broadcast("order.status", o)
	}
	writeJSON(w, http.StatusOK, o)
}
