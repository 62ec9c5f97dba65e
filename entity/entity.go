// Package entity defines the records the kauppa services persist and the
// store handlers that describe them to repositories and stores.
package entity

import (
	"fmt"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/kauppa/kauppa-sub001/store"
)

// Entity names used in routes, errors, logs and metrics.
const (
	NameAccount    = "account"
	NameProduct    = "product"
	NameCart       = "cart"
	NameCoupon     = "coupon"
	NameGiftCard   = "giftcard"
	NameOrder      = "order"
	NameShipment   = "shipment"
	NameTaxCountry = "country"
	NameRegion     = "region"
	NameReview     = "review"
)

// Secondary index names.
const (
	IndexEmail = "email"
	IndexCode  = "code"
	IndexName  = "name"
)

// Meta is embedded by every entity. Repositories own its fields.
type Meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Metadata gives generic code access to the embedded Meta.
func (m *Meta) Metadata() *Meta { return m }

// Record is satisfied by a pointer to any entity embedding Meta.
type Record[V any] interface {
	*V
	Metadata() *Meta
}

// Handlers builds store handlers for an entity type. newID defaults to
// random UUIDs; keys and clone may be nil.
func Handlers[V any, P Record[V]](name string, newID func() string, keys func(V) map[string]string, clone func(V) V) store.ModelHandlers[string, V] {
	if newID == nil {
		newID = uuid.NewString
	}
	return store.ModelHandlers[string, V]{
		Entity: name,
		NewID:  newID,
		GetID: func(v V) string {
			return P(&v).Metadata().ID
		},
		SetID: func(v *V, id string) {
			P(v).Metadata().ID = id
		},
		GetTimestamps: func(v V) (time.Time, time.Time) {
			m := P(&v).Metadata()
			return m.CreatedAt, m.UpdatedAt
		},
		SetTimestamps: func(v *V, created, updated time.Time) {
			m := P(v).Metadata()
			m.CreatedAt = created
			m.UpdatedAt = updated
		},
		SecondaryKeys: keys,
		Clone:         clone,
	}
}

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// Money is an amount in minor units of an ISO 4217 currency.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func (m Money) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Amount, validation.Min(int64(0))),
		validation.Field(&m.Currency, validation.Required, validation.Match(currencyCode)),
	)
}

// Add returns m+o. Both must share a currency; a zero Money adopts o's.
func (m Money) Add(o Money) (Money, error) {
	if m.Currency == "" {
		return o, nil
	}
	if o.Currency != m.Currency && o.Currency != "" {
		return Money{}, fmt.Errorf("currency mismatch: %s and %s", m.Currency, o.Currency)
	}
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}, nil
}

// Times returns m multiplied by n.
func (m Money) Times(n int) Money {
	return Money{Amount: m.Amount * int64(n), Currency: m.Currency}
}

// Address is a postal address carried by accounts, orders and shipments.
type Address struct {
	Name     string `json:"name,omitempty"`
	Line1    string `json:"line1"`
	Line2    string `json:"line2,omitempty"`
	City     string `json:"city"`
	Province string `json:"province,omitempty"`
	Code     string `json:"code"`
	Country  string `json:"country"`
}

func (a Address) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Line1, validation.Required),
		validation.Field(&a.City, validation.Required),
		validation.Field(&a.Code, validation.Required),
		validation.Field(&a.Country, validation.Required),
	)
}
