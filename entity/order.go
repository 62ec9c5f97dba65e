package entity

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/kauppa/kauppa-sub001/pkg/errors"
	"github.com/kauppa/kauppa-sub001/store"
)

type OrderStatus string

const (
	OrderPlaced    OrderStatus = "placed"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderLine is a priced, immutable copy of a cart item.
type OrderLine struct {
	ProductID string `json:"productId"`
	Title     string `json:"title,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice Money  `json:"unitPrice"`
	Total     Money  `json:"total"`
}

// Order is placed from a cart.
type Order struct {
	Meta
	AccountID  string      `json:"accountId"`
	CartID     string      `json:"cartId"`
	Lines      []OrderLine `json:"lines"`
	Subtotal   Money       `json:"subtotal"`
	Discount   Money       `json:"discount"`
	Total      Money       `json:"total"`
	CouponCode string      `json:"couponCode,omitempty"`
	Status     OrderStatus `json:"status"`
	ShipTo     *Address    `json:"shipTo,omitempty"`
}

func (o Order) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.AccountID, validation.Required),
		validation.Field(&o.Lines, validation.Required),
		validation.Field(&o.Status, validation.In(OrderPlaced, OrderPaid, OrderShipped, OrderDelivered, OrderCancelled)),
		validation.Field(&o.ShipTo),
	)
}

// NewOrder prices the cart into an order in the placed state.
func NewOrder(cart Cart) (Order, error) {
	if len(cart.Items) == 0 {
		return Order{}, errors.New(errors.KindValidationFailed, NameOrder, "cart is empty").With("cartId", cart.ID)
	}

	lines := make([]OrderLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, OrderLine{
			ProductID: item.ProductID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.UnitPrice.Times(item.Quantity),
		})
	}

	subtotal, err := cart.Total()
	if err != nil {
		return Order{}, errors.Wrap(errors.KindValidationFailed, NameOrder, "cart cannot be priced", err)
	}

	return Order{
		AccountID: cart.AccountID,
		CartID:    cart.ID,
		Lines:     lines,
		Subtotal:  subtotal,
		Discount:  Money{Currency: subtotal.Currency},
		Total:     subtotal,
		Status:    OrderPlaced,
	}, nil
}

// ApplyCoupon discounts the order with c. The discount never exceeds the
// subtotal.
func (o *Order) ApplyCoupon(c Coupon, now time.Time) error {
	if err := c.Usable(now); err != nil {
		return err
	}

	discount := c.DiscountFor(o.Subtotal)
	o.CouponCode = c.Code
	o.Discount = discount
	o.Total = Money{Amount: o.Subtotal.Amount - discount.Amount, Currency: o.Subtotal.Currency}
	return nil
}

// Cancel moves a placed or paid order to cancelled.
func (o *Order) Cancel() error {
	switch o.Status {
	case OrderPlaced, OrderPaid:
		o.Status = OrderCancelled
		return nil
	default:
		return errors.Newf(errors.KindConflict, NameOrder, "cannot cancel a %s order", o.Status)
	}
}

func OrderHandlers(newID func() string) store.ModelHandlers[string, Order] {
	return Handlers[Order](NameOrder, newID, nil, func(o Order) Order {
		o.Lines = append([]OrderLine(nil), o.Lines...)
		if o.ShipTo != nil {
			addr := *o.ShipTo
			o.ShipTo = &addr
		}
		return o
	})
}

type ShipmentStatus string

const (
	ShipmentPending   ShipmentStatus = "pending"
	ShipmentShipped   ShipmentStatus = "shipped"
	ShipmentDelivered ShipmentStatus = "delivered"
)

// Shipment tracks the delivery of an order.
type Shipment struct {
	Meta
	OrderID     string         `json:"orderId"`
	Address     Address        `json:"address"`
	Carrier     string         `json:"carrier,omitempty"`
	Tracking    string         `json:"tracking,omitempty"`
	Status      ShipmentStatus `json:"status"`
	ShippedAt   *time.Time     `json:"shippedAt,omitempty"`
	DeliveredAt *time.Time     `json:"deliveredAt,omitempty"`
}

func (s Shipment) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.OrderID, validation.Required),
		validation.Field(&s.Address),
		validation.Field(&s.Status, validation.In(ShipmentPending, ShipmentShipped, ShipmentDelivered)),
	)
}

// MarkShipped moves a pending shipment to shipped.
func (s *Shipment) MarkShipped(now time.Time) error {
	if s.Status != ShipmentPending {
		return errors.Newf(errors.KindConflict, NameShipment, "cannot ship a %s shipment", s.Status)
	}
	s.Status = ShipmentShipped
	s.ShippedAt = &now
	return nil
}

// MarkDelivered moves a shipped shipment to delivered.
func (s *Shipment) MarkDelivered(now time.Time) error {
	if s.Status != ShipmentShipped {
		return errors.Newf(errors.KindConflict, NameShipment, "cannot deliver a %s shipment", s.Status)
	}
	s.Status = ShipmentDelivered
	s.DeliveredAt = &now
	return nil
}

func ShipmentHandlers(newID func() string) store.ModelHandlers[string, Shipment] {
	return Handlers[Shipment](NameShipment, newID, nil, func(s Shipment) Shipment {
		if s.ShippedAt != nil {
			t := *s.ShippedAt
			s.ShippedAt = &t
		}
		if s.DeliveredAt != nil {
			t := *s.DeliveredAt
			s.DeliveredAt = &t
		}
		return s
	})
}
