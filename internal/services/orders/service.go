package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FreshOps/MarketBox/internal/broker/messages"
	"github.com/FreshOps/MarketBox/internal/cache"
	"github.com/FreshOps/MarketBox/internal/integrations/payments"
	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/FreshOps/MarketBox/internal/services/delivery"
	"github.com/FreshOps/MarketBox/internal/storage/pgmarket"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrPaymentDeclined   = errors.New("payment declined")
	ErrInvalidTransition = errors.New("illegal status transition")
)

type Repository interface {
	CreateOrder(ctx context.Context, o *models.Order) (*models.Order, error)
	GetOrder(ctx context.Context, orderID uint64) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Order, error)
	ListTrackingEntries(ctx context.Context, orderID uint64, publicOnly bool, limit, offset int) ([]*models.TrackingEntry, error)
	ApplyStatusUpdate(ctx context.Context, upd pgmarket.StatusUpdate) error
	RescheduleCheck(ctx context.Context, orderID uint64, checkedAt, nextCheckAt time.Time) error
	TouchNextCheck(ctx context.Context, orderID uint64) error

	AdjustStock(ctx context.Context, deltas map[uint64]int64) error
	ClearCart(ctx context.Context, cartID uint64) error
	AddLoyaltyEntry(ctx context.Context, e *models.LoyaltyEntry) (*models.LoyaltyEntry, error)
}

// PromoSource validates a code against a subtotal and returns the discount.
type PromoSource interface {
	Discount(code string, subtotalCents int64) (int64, error)
}

type Service struct {
	repo       Repository
	cache      cache.BytesCache
	currentTTL time.Duration

	pay       payments.Client
	scheduler *delivery.Scheduler
	promos    PromoSource

	taxRatePercent int64

	now func() time.Time
}

func New(repo Repository, c cache.BytesCache, currentTTL time.Duration, pay payments.Client, scheduler *delivery.Scheduler, promos PromoSource, taxRatePercent int64) *Service {
	return &Service{
		repo:           repo,
		cache:          c,
		currentTTL:     currentTTL,
		pay:            pay,
		scheduler:      scheduler,
		promos:         promos,
		taxRatePercent: taxRatePercent,
		now:            time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type CheckoutInput struct {
	Cart *models.Cart

	ShippingAddress models.Address
	BillingAddress  models.Address

	ShippingOptionID string
	SlotID           string
	Instructions     string
	Contactless      bool
	Signature        bool
	Rush             bool

	PromoCode    string
	RedeemPoints int64
}

// Checkout prices the cart, books the delivery slot, charges the payment
// intent and records the order. Any failure after the slot was taken or the
// stock was moved rolls those back before returning.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (*models.Order, error) {
	if in.Cart == nil || len(in.Cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	quote, err := delivery.CalculateFee(in.Cart.Items, in.ShippingAddress.PostalCode, in.ShippingOptionID, in.Rush)
	if err != nil {
		return nil, err
	}

	option, ok := delivery.OptionByID(in.ShippingOptionID)
	if !ok {
		return nil, delivery.ErrUnavailable
	}

	var slot *models.DeliverySlot
	if in.SlotID != "" {
		slot = &models.DeliverySlot{ID: in.SlotID}
		if zoneID, start, perr := delivery.ParseSlotID(in.SlotID, s.now().Location()); perr == nil {
			// the slot must belong to the zone the order ships to
			if zoneID != quote.ZoneID {
				return nil, delivery.ErrUnavailable
			}
			slot.StartTime = start
		}
	}
	schedule, err := delivery.ConfirmSchedule(option, slot, in.Instructions, in.Contactless, in.Signature)
	if err != nil {
		return nil, err
	}

	subtotal := models.CartSubtotalCents(in.Cart.Items)

	var discount int64
	if in.PromoCode != "" && s.promos != nil {
		discount, err = s.promos.Discount(in.PromoCode, subtotal)
		if err != nil {
			return nil, err
		}
	}
	if in.RedeemPoints > 0 {
		// 1 point = 1 cent off, ledger-checked below before payment
		discount += in.RedeemPoints
	}
	if discount > subtotal {
		discount = subtotal
	}

	tax := (subtotal - discount) * s.taxRatePercent / 100
	total := subtotal - discount + tax + quote.TotalCents

	// stock first: fail fast before touching money or slots
	deltas := make(map[uint64]int64, len(in.Cart.Items))
	for _, it := range in.Cart.Items {
		deltas[it.ProductID] -= it.Quantity
	}
	if err := s.repo.AdjustStock(ctx, deltas); err != nil {
		return nil, err
	}
	restock := func() {
		for id := range deltas {
			deltas[id] = -deltas[id]
		}
		_ = s.repo.AdjustStock(ctx, deltas)
	}

	if in.SlotID != "" {
		if err := s.scheduler.Book(ctx, in.SlotID); err != nil {
			restock()
			return nil, err
		}
	}
	unbook := func() {
		if in.SlotID != "" {
			_ = s.scheduler.Cancel(ctx, in.SlotID)
		}
	}

	orderNumber := "ORD-" + strings.ToUpper(uuid.NewString()[:8])

	refundPoints := func() {}
	if in.RedeemPoints > 0 {
		_, err := s.repo.AddLoyaltyEntry(ctx, &models.LoyaltyEntry{
			UserID: in.Cart.UserID,
			Delta:  -in.RedeemPoints,
			Reason: "redeemed at checkout " + orderNumber,
		})
		if err != nil {
			unbook()
			restock()
			return nil, err
		}
		refundPoints = func() {
			_, rerr := s.repo.AddLoyaltyEntry(ctx, &models.LoyaltyEntry{
				UserID: in.Cart.UserID,
				Delta:  in.RedeemPoints,
				Reason: "checkout failed, points returned " + orderNumber,
			})
			if rerr != nil {
				slog.Error("return redeemed points", "order_number", orderNumber, "error", rerr.Error())
			}
		}
	}

	intent, err := s.pay.CreateIntent(ctx, total, "USD", orderNumber)
	if err == nil {
		intent, err = s.pay.Confirm(ctx, intent.ID)
	}
	if err != nil || intent.Status != payments.IntentStatusSucceeded {
		refundPoints()
		unbook()
		restock()
		if err != nil {
			return nil, errors.Wrap(err, "payment")
		}
		return nil, ErrPaymentDeclined
	}

	now := s.now().UTC()
	items := make([]*models.OrderItem, 0, len(in.Cart.Items))
	for _, it := range in.Cart.Items {
		items = append(items, &models.OrderItem{
			ProductID:      it.ProductID,
			ProductName:    it.ProductName,
			Category:       it.ProductCategory,
			UnitPriceCents: it.UnitPriceCents,
			Quantity:       it.Quantity,
		})
	}

	order, err := s.repo.CreateOrder(ctx, &models.Order{
		OrderNumber:      orderNumber,
		UserID:           in.Cart.UserID,
		Status:           models.OrderStatusPending,
		PaymentIntentID:  intent.ID,
		ShippingOptionID: option.ID,
		ZoneID:           quote.ZoneID,
		SubtotalCents:    subtotal,
		TaxCents:         tax,
		ShippingCents:    quote.TotalCents,
		DiscountCents:    discount,
		TotalCents:       total,
		ShippingAddress:  in.ShippingAddress,
		BillingAddress:   in.BillingAddress,
		TrackingNumber:   delivery.NewTrackingNumber(),
		Schedule:         schedule,
		NextCheckAt:      now.Add(time.Minute),
		Items:            items,
	})
	if err != nil {
		// the card was already charged, void it before unwinding
		if _, rerr := s.pay.Refund(ctx, intent.ID, 0, "order creation failed"); rerr != nil {
			slog.Error("refund after failed order insert", "intent_id", intent.ID, "error", rerr.Error())
		}
		refundPoints()
		unbook()
		restock()
		return nil, err
	}

	_ = s.repo.ClearCart(ctx, in.Cart.ID)

	s.refreshCache(ctx, order)
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID uint64) (*models.Order, error) {
	if s.cache != nil && s.currentTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, currentKey(orderID)); err == nil && ok {
			var o models.Order
			if json.Unmarshal(b, &o) == nil {
				return &o, nil
			}
		}
	}

	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.refreshCache(ctx, o)
	return o, nil
}

func (s *Service) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return s.repo.GetOrderByNumber(ctx, orderNumber)
}

func (s *Service) ListOrders(ctx context.Context, userID string, limit, offset int) ([]*models.Order, error) {
	return s.repo.ListOrdersByUser(ctx, userID, limit, offset)
}

func (s *Service) ListTrackingEntries(ctx context.Context, orderID uint64, publicOnly bool, limit, offset int) ([]*models.TrackingEntry, error) {
	return s.repo.ListTrackingEntries(ctx, orderID, publicOnly, limit, offset)
}

func (s *Service) RefreshOrder(ctx context.Context, orderID uint64) error {
	if orderID == 0 {
		return errors.New("orderId is required")
	}
	return s.repo.TouchNextCheck(ctx, orderID)
}

// OrderView is the order plus the rendered timeline and UI affordances.
type OrderView struct {
	Order       *models.Order  `json:"order"`
	Timeline    []TimelineStep `json:"timeline"`
	SideExit    bool           `json:"side_exit"`
	Trackable   bool           `json:"trackable"`
	Reorderable bool           `json:"reorderable"`
}

func (s *Service) View(ctx context.Context, orderID uint64) (*OrderView, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	steps, sideExit := Timeline(o.Status)
	return &OrderView{
		Order:       o,
		Timeline:    steps,
		SideExit:    sideExit,
		Trackable:   Trackable(o.Status),
		Reorderable: Reorderable(o.Status),
	}, nil
}

// Transition moves an order along the closed transition table. Moving to
// refunded refunds the payment intent; arriving at delivered awards loyalty
// points.
func (s *Service) Transition(ctx context.Context, orderID uint64, to, message string) (*models.Order, error) {
	if !IsValidStatus(to) {
		return nil, ErrInvalidTransition
	}

	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, ErrInvalidTransition
	}

	if to == models.OrderStatusRefunded && o.PaymentIntentID != "" {
		if _, err := s.pay.Refund(ctx, o.PaymentIntentID, 0, "order refunded"); err != nil {
			return nil, errors.Wrap(err, "refund")
		}
	}

	if message == "" {
		message = DefaultMessage(to)
	}

	now := s.now().UTC()
	next := now.Add(time.Minute)
	if IsTerminal(to) {
		next = now.Add(24 * time.Hour)
	}

	err = s.repo.ApplyStatusUpdate(ctx, pgmarket.StatusUpdate{
		OrderID:     orderID,
		CheckedAt:   now,
		Status:      to,
		Message:     message,
		NextCheckAt: next,
	})
	if err != nil {
		return nil, err
	}

	if to == models.OrderStatusDelivered {
		// 1 point per dollar spent
		points := o.TotalCents / 100
		if points > 0 {
			id := o.ID
			_, _ = s.repo.AddLoyaltyEntry(ctx, &models.LoyaltyEntry{
				UserID:  o.UserID,
				OrderID: &id,
				Delta:   points,
				Reason:  "order delivered " + o.OrderNumber,
			})
		}
	}

	o, err = s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.refreshCache(ctx, o)
	return o, nil
}

// ApplyCourierUpdate applies one courier-worker message. Error messages only
// move the bookkeeping columns. A status the table does not allow from the
// order's current position is recorded as a no-op check, not an error: feeds
// repeat themselves and replays must be harmless.
func (s *Service) ApplyCourierUpdate(ctx context.Context, msg messages.OrderStatusUpdated) error {
	if msg.OrderID == 0 {
		return errors.New("order_id is required")
	}
	if msg.CheckedAt.IsZero() {
		msg.CheckedAt = s.now().UTC()
	}
	if msg.NextCheckAt.IsZero() {
		msg.NextCheckAt = msg.CheckedAt.Add(60 * time.Minute)
	}

	if msg.Error != nil && *msg.Error != "" {
		err := s.repo.ApplyStatusUpdate(ctx, pgmarket.StatusUpdate{
			OrderID:     msg.OrderID,
			CheckedAt:   msg.CheckedAt,
			NextCheckAt: msg.NextCheckAt,
			Error:       msg.Error,
		})
		return err
	}

	o, err := s.repo.GetOrder(ctx, msg.OrderID)
	if err != nil {
		return err
	}

	if !IsValidStatus(msg.Status) || !CanTransition(o.Status, msg.Status) {
		// same status or an out-of-order replay: push the next check out
		// without touching the status or the history
		return s.repo.RescheduleCheck(ctx, msg.OrderID, msg.CheckedAt, msg.NextCheckAt)
	}

	message := msg.Message
	if message == "" {
		message = DefaultMessage(msg.Status)
	}

	err = s.repo.ApplyStatusUpdate(ctx, pgmarket.StatusUpdate{
		OrderID:     msg.OrderID,
		CheckedAt:   msg.CheckedAt,
		Status:      msg.Status,
		Message:     message,
		Location:    msg.Location,
		Driver:      msg.Driver,
		NextCheckAt: msg.NextCheckAt,
	})
	if err != nil {
		return err
	}

	if msg.Status == models.OrderStatusDelivered {
		points := o.TotalCents / 100
		if points > 0 {
			id := o.ID
			_, _ = s.repo.AddLoyaltyEntry(ctx, &models.LoyaltyEntry{
				UserID:  o.UserID,
				OrderID: &id,
				Delta:   points,
				Reason:  "order delivered " + o.OrderNumber,
			})
		}
	}

	if s.cache != nil && s.currentTTL > 0 {
		if fresh, err := s.repo.GetOrder(ctx, msg.OrderID); err == nil {
			s.refreshCache(ctx, fresh)
		}
	}
	return nil
}

func (s *Service) refreshCache(ctx context.Context, o *models.Order) {
	if s.cache == nil || s.currentTTL <= 0 {
		return
	}
	b, _ := json.Marshal(o)
	_ = s.cache.Set(ctx, currentKey(o.ID), b, s.currentTTL)
}

func currentKey(id uint64) string {
	return fmt.Sprintf("order:%d:current", id)
}
