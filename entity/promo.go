package entity

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/kauppa/kauppa-sub001/pkg/errors"
	"github.com/kauppa/kauppa-sub001/store"
)

// Coupon discounts an order either by a percentage or by a fixed amount.
// Code is unique across coupons.
type Coupon struct {
	Meta
	Code      string     `json:"code"`
	Percent   int        `json:"percent,omitempty"`
	Amount    *Money     `json:"amount,omitempty"`
	Enabled   bool       `json:"enabled"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (c Coupon) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Code, validation.Required, validation.Length(3, 64)),
		validation.Field(&c.Percent, validation.Min(0), validation.Max(100),
			validation.When(c.Amount == nil, validation.Required.Error("percent or amount is required"))),
		validation.Field(&c.Amount),
	)
}

// NormalizeCode is applied before a coupon code is stored or looked up.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Usable reports why c cannot be applied at now, if it cannot.
func (c Coupon) Usable(now time.Time) error {
	if !c.Enabled {
		return errors.New(errors.KindConflict, NameCoupon, "coupon is disabled").With("code", c.Code)
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return errors.New(errors.KindConflict, NameCoupon, "coupon has expired").With("code", c.Code)
	}
	return nil
}

// DiscountFor returns the discount c grants on subtotal, capped at subtotal.
// A fixed amount in another currency grants nothing.
func (c Coupon) DiscountFor(subtotal Money) Money {
	discount := Money{Currency: subtotal.Currency}
	switch {
	case c.Amount != nil:
		if c.Amount.Currency == subtotal.Currency {
			discount.Amount = c.Amount.Amount
		}
	case c.Percent > 0:
		discount.Amount = subtotal.Amount * int64(c.Percent) / 100
	}
	if discount.Amount > subtotal.Amount {
		discount.Amount = subtotal.Amount
	}
	return discount
}

func CouponHandlers(newID func() string) store.ModelHandlers[string, Coupon] {
	return Handlers[Coupon](NameCoupon, newID,
		func(c Coupon) map[string]string {
			return map[string]string{IndexCode: c.Code}
		},
		func(c Coupon) Coupon {
			if c.Amount != nil {
				m := *c.Amount
				c.Amount = &m
			}
			if c.ExpiresAt != nil {
				t := *c.ExpiresAt
				c.ExpiresAt = &t
			}
			return c
		},
	)
}

// GiftCard is a prepaid balance.
type GiftCard struct {
	Meta
	Balance   Money      `json:"balance"`
	Note      string     `json:"note,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (g GiftCard) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.Balance),
	)
}

// Redeem takes amount off the balance.
func (g *GiftCard) Redeem(amount Money, now time.Time) error {
	if g.ExpiresAt != nil && !now.Before(*g.ExpiresAt) {
		return errors.New(errors.KindConflict, NameGiftCard, "gift card has expired").With("id", g.ID)
	}
	if amount.Currency != g.Balance.Currency {
		return errors.Newf(errors.KindValidationFailed, NameGiftCard, "gift card holds %s", g.Balance.Currency)
	}
	if amount.Amount <= 0 || amount.Amount > g.Balance.Amount {
		return errors.New(errors.KindConflict, NameGiftCard, "insufficient balance").With("id", g.ID)
	}
	g.Balance.Amount -= amount.Amount
	return nil
}

func GiftCardHandlers(newID func() string) store.ModelHandlers[string, GiftCard] {
	return Handlers[GiftCard](NameGiftCard, newID, nil, func(g GiftCard) GiftCard {
		if g.ExpiresAt != nil {
			t := *g.ExpiresAt
			g.ExpiresAt = &t
		}
		return g
	})
}
