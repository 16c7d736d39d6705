package models

import "time"

// DeliveryZone is immutable reference data: a named group of postal codes
// sharing delivery economics. Looked up by postal code membership.
type DeliveryZone struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	PostalCodes        []string `json:"postal_codes"`
	BaseRateCents      int64    `json:"base_rate_cents"`
	FreeDeliveryCents  int64    `json:"free_delivery_cents"`
	MaxDeliveryMinutes int      `json:"max_delivery_minutes"`
	IsActive           bool     `json:"is_active"`
	PerishableHandling bool     `json:"perishable_handling"`
	RushDelivery       bool     `json:"rush_delivery"`
}

func (z *DeliveryZone) ContainsPostalCode(code string) bool {
	for _, c := range z.PostalCodes {
		if c == code {
			return true
		}
	}
	return false
}

type ShippingOption struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Description        string `json:"description"`
	PriceCents         int64  `json:"price_cents"`
	EstimatedTime      string `json:"estimated_time"`
	IsDefault          bool   `json:"is_default"`
	RequiresScheduling bool   `json:"requires_scheduling"`
	RushTier           bool   `json:"rush_tier"`
}

// DeliverySlot is ephemeral: regenerated on each query from the zone, date
// and hour encoded in its ID. Booked counts combine a seeded figure with
// live reservations.
type DeliverySlot struct {
	ID                   string    `json:"id"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	Available            bool      `json:"available"`
	Capacity             int64     `json:"capacity"`
	Booked               int64     `json:"booked"`
	PriceCents           int64     `json:"price_cents"`
	PerishableCompatible bool      `json:"perishable_compatible"`
}

type DeliverySchedule struct {
	Date                time.Time `json:"date"`
	SlotID              string    `json:"slot_id"`
	SpecialInstructions string    `json:"special_instructions,omitempty"`
	Contactless         bool      `json:"contactless"`
	SignatureRequired   bool      `json:"signature_required"`
}
