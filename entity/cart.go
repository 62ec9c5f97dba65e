package entity

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/kauppa/kauppa-sub001/store"
)

// CartItem is one product line of a cart. UnitPrice is taken from the
// catalog when the item is added.
type CartItem struct {
	ProductID string `json:"productId"`
	Title     string `json:"title,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice Money  `json:"unitPrice"`
}

func (i CartItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.ProductID, validation.Required),
		validation.Field(&i.Quantity, validation.Required, validation.Min(1)),
	)
}

// Cart holds the items an account intends to order.
type Cart struct {
	Meta
	AccountID string     `json:"accountId"`
	Items     []CartItem `json:"items"`
}

func (c Cart) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.AccountID, validation.Required),
		validation.Field(&c.Items),
	)
}

// AddItem merges item into the cart. Adding a product already present
// increases its quantity and refreshes its price.
func (c *Cart) AddItem(item CartItem) {
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity += item.Quantity
			c.Items[i].UnitPrice = item.UnitPrice
			if item.Title != "" {
				c.Items[i].Title = item.Title
			}
			return
		}
	}
	c.Items = append(c.Items, item)
}

// RemoveItem drops the product from the cart and reports whether it was there.
func (c *Cart) RemoveItem(productID string) bool {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Total sums the cart. Items priced in different currencies are an error.
func (c Cart) Total() (Money, error) {
	var total Money
	for _, item := range c.Items {
		next, err := total.Add(item.UnitPrice.Times(item.Quantity))
		if err != nil {
			return Money{}, err
		}
		total = next
	}
	return total, nil
}

func CartHandlers(newID func() string) store.ModelHandlers[string, Cart] {
	return Handlers[Cart](NameCart, newID, nil, func(c Cart) Cart {
		c.Items = append([]CartItem(nil), c.Items...)
		return c
	})
}
