package services

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/kauppa/kauppa-sub001/dispatch"
	"github.com/kauppa/kauppa-sub001/entity"
	"github.com/kauppa/kauppa-sub001/pkg/clock"
	"github.com/kauppa/kauppa-sub001/pkg/errors"
)

// Service is one entity service ready to be bound to a Dispatcher or Bridge.
type Service interface {
	Name() string
	Register(r dispatch.Registrar)
}

// Accounts serves accounts, looked up by id or email.
type Accounts struct {
	Repo Repository[entity.Account]
}

func (Accounts) Name() string { return ServiceAccounts }

func (s Accounts) Register(r dispatch.Registrar) {
	CRUD[entity.Account]{
		Routes: AccountRoutes,
		Repo:   s.Repo,
		Prepare: func(a *entity.Account) {
			a.Email = entity.NormalizeEmail(a.Email)
		},
	}.Register(r)
	r.AddRoute(AccountByEmail, Lookup(s.Repo, entity.IndexEmail, entity.NormalizeEmail))
}

// Products serves the catalog.
type Products struct {
	Repo Repository[entity.Product]
}

func (Products) Name() string { return ServiceProducts }

func (s Products) Register(r dispatch.Registrar) {
	CRUD[entity.Product]{Routes: ProductRoutes, Repo: s.Repo}.Register(r)
}

// Reviews serves product reviews. With Products set, a review must name an
// existing product.
type Reviews struct {
	Repo     Repository[entity.Review]
	Products *ProductsClient
}

func (Reviews) Name() string { return ServiceReviews }

func (s Reviews) Register(r dispatch.Registrar) {
	crud := CRUD[entity.Review]{Routes: ReviewRoutes, Repo: s.Repo}
	if s.Products != nil {
		crud.Verify = func(ctx context.Context, rv *entity.Review) error {
			_, err := s.Products.Lookup(ctx, rv.ProductID)
			return err
		}
	}
	crud.Register(r)
}

// Coupons serves discount coupons, looked up by id or code.
type Coupons struct {
	Repo Repository[entity.Coupon]
}

func (Coupons) Name() string { return ServiceCoupons }

func (s Coupons) Register(r dispatch.Registrar) {
	CRUD[entity.Coupon]{
		Routes: CouponRoutes,
		Repo:   s.Repo,
		Prepare: func(c *entity.Coupon) {
			c.Code = entity.NormalizeCode(c.Code)
		},
	}.Register(r)
	r.AddRoute(CouponByCode, Lookup(s.Repo, entity.IndexCode, entity.NormalizeCode))
}

// GiftCards serves prepaid cards and their redemption.
type GiftCards struct {
	Repo  Repository[entity.GiftCard]
	Clock clock.Clock
}

func (GiftCards) Name() string { return ServiceGiftCards }

func (s GiftCards) Register(r dispatch.Registrar) {
	CRUD[entity.GiftCard]{Routes: GiftCardRoutes, Repo: s.Repo}.Register(r)
	r.AddRoute(GiftCardRedeem, s.redeem)
}

func (s GiftCards) redeem(req dispatch.Request, res dispatch.ResponseSink) error {
	var amount entity.Money
	if err := req.Decode(&amount); err != nil {
		return err
	}
	if err := validate(entity.NameGiftCard, &amount); err != nil {
		return err
	}

	now := nowFrom(s.Clock)
	card, err := s.Repo.Update(req.Context(), req.Param("id"), func(g *entity.GiftCard) error {
		return g.Redeem(amount, now)
	})
	if err != nil {
		return err
	}
	return res.Write(http.StatusOK, card)
}

// Tax serves tax countries and regions, each looked up by id or name.
type Tax struct {
	Countries Repository[entity.TaxCountry]
	Regions   Repository[entity.Region]
}

func (Tax) Name() string { return ServiceTax }

func (s Tax) Register(r dispatch.Registrar) {
	CRUD[entity.TaxCountry]{Routes: TaxCountryRoutes, Repo: s.Countries}.Register(r)
	CRUD[entity.Region]{
		Routes: RegionRoutes,
		Repo:   s.Regions,
		Verify: func(ctx context.Context, region *entity.Region) error {
			_, err := s.Countries.Get(ctx, region.CountryID)
			return err
		},
	}.Register(r)
	r.AddRoute(TaxCountryByName, Lookup(s.Countries, entity.IndexName, nil))
	r.AddRoute(RegionByName, Lookup(s.Regions, entity.IndexName, nil))
}

// Shipments serves shipments and their delivery progress.
type Shipments struct {
	Repo  Repository[entity.Shipment]
	Clock clock.Clock
}

func (Shipments) Name() string { return ServiceShipments }

func (s Shipments) Register(r dispatch.Registrar) {
	CRUD[entity.Shipment]{
		Routes: ShipmentRoutes,
		Repo:   s.Repo,
		Prepare: func(sh *entity.Shipment) {
			if sh.Status == "" {
				sh.Status = entity.ShipmentPending
			}
		},
	}.Register(r)
	r.AddRoute(ShipmentShipped, s.transition((*entity.Shipment).MarkShipped))
	r.AddRoute(ShipmentDelivered, s.transition((*entity.Shipment).MarkDelivered))
}

func (s Shipments) transition(step func(*entity.Shipment, time.Time) error) dispatch.Handler {
	return func(req dispatch.Request, res dispatch.ResponseSink) error {
		now := nowFrom(s.Clock)
		sh, err := s.Repo.Update(req.Context(), req.Param("id"), func(sh *entity.Shipment) error {
			return step(sh, now)
		})
		if err != nil {
			return err
		}
		return res.Write(http.StatusOK, sh)
	}
}

// AddItemRequest is the body of CartAddItem.
type AddItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (a AddItemRequest) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.ProductID, validation.Required),
		validation.Field(&a.Quantity, validation.Required, validation.Min(1)),
	)
}

// Carts serves carts. Items are priced from the catalog when added.
type Carts struct {
	Repo     Repository[entity.Cart]
	Products *ProductsClient
}

func (Carts) Name() string { return ServiceCarts }

func (s Carts) Register(r dispatch.Registrar) {
	CRUD[entity.Cart]{Routes: CartRoutes, Repo: s.Repo}.Register(r)
	r.AddRoute(CartAddItem, s.addItem)
	r.AddRoute(CartRemoveItem, s.removeItem)
}

func (s Carts) addItem(req dispatch.Request, res dispatch.ResponseSink) error {
	var in AddItemRequest
	if err := req.Decode(&in); err != nil {
		return err
	}
	if err := validate(entity.NameCart, &in); err != nil {
		return err
	}

	// Price outside the repository lock; Update must not wait on the network.
	// Lookups go through the client's lookup cache when one is configured, so
	// price and stock may lag the products service by up to LOOKUP_CACHE_TTL.
	product, err := s.Products.Lookup(req.Context(), in.ProductID)
	if err != nil {
		return err
	}

	cart, err := s.Repo.Update(req.Context(), req.Param("id"), func(c *entity.Cart) error {
		wanted := in.Quantity
		for _, item := range c.Items {
			if item.ProductID == in.ProductID {
				wanted += item.Quantity
			}
		}
		if wanted > product.Stock {
			return errors.New(errors.KindConflict, entity.NameCart, "insufficient stock").
				With("productId", in.ProductID).With("available", product.Stock)
		}
		c.AddItem(entity.CartItem{
			ProductID: product.ID,
			Title:     product.Title,
			Quantity:  in.Quantity,
			UnitPrice: product.Price,
		})
		return nil
	})
	if err != nil {
		return err
	}
	return res.Write(http.StatusOK, cart)
}

func (s Carts) removeItem(req dispatch.Request, res dispatch.ResponseSink) error {
	productID := req.Param("product")
	cart, err := s.Repo.Update(req.Context(), req.Param("id"), func(c *entity.Cart) error {
		if !c.RemoveItem(productID) {
			return errors.New(errors.KindNotFound, entity.NameCart, "product not in cart").With("productId", productID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return res.Write(http.StatusOK, cart)
}

// PlaceOrderRequest is the body of POST /orders.
type PlaceOrderRequest struct {
	CartID     string          `json:"cartId"`
	CouponCode string          `json:"couponCode,omitempty"`
	ShipTo     *entity.Address `json:"shipTo,omitempty"`
}

func (p PlaceOrderRequest) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.CartID, validation.Required),
		validation.Field(&p.ShipTo),
	)
}

// Orders places orders from carts. Coupons is optional; without it orders
// naming a coupon are rejected.
type Orders struct {
	Repo    Repository[entity.Order]
	Carts   *CartsClient
	Coupons *CouponsClient
	Clock   clock.Clock
	Logger  *slog.Logger
}

func (Orders) Name() string { return ServiceOrders }

func (s Orders) Register(r dispatch.Registrar) {
	crud := CRUD[entity.Order]{Routes: OrderRoutes, Repo: s.Repo}
	r.AddRoute(OrderRoutes.Create, s.place)
	r.AddRoute(OrderRoutes.Get, crud.Get)
	r.AddRoute(OrderRoutes.Update, crud.Update)
	r.AddRoute(OrderRoutes.Delete, crud.Delete)
	r.AddRoute(OrderCancel, s.cancel)
}

func (s Orders) place(req dispatch.Request, res dispatch.ResponseSink) error {
	var in PlaceOrderRequest
	if err := req.Decode(&in); err != nil {
		return err
	}
	if err := validate(entity.NameOrder, &in); err != nil {
		return err
	}
	ctx := req.Context()

	cart, err := s.Carts.Get(ctx, in.CartID)
	if err != nil {
		return err
	}
	order, err := entity.NewOrder(cart)
	if err != nil {
		return err
	}
	order.ShipTo = in.ShipTo

	if in.CouponCode != "" {
		if s.Coupons == nil {
			return errors.New(errors.KindValidationFailed, entity.NameOrder, "coupons are not accepted")
		}
		coupon, err := s.Coupons.ByCode(ctx, entity.NormalizeCode(in.CouponCode))
		if err != nil {
			return err
		}
		if err := order.ApplyCoupon(coupon, nowFrom(s.Clock)); err != nil {
			return err
		}
	}

	placed, err := s.Repo.Create(ctx, order)
	if err != nil {
		return err
	}

	cart.Items = nil
	if _, err := s.Carts.Update(ctx, cart.ID, cart); err != nil {
		s.logger().Warn("order placed but cart not emptied",
			"order", placed.ID, "cart", cart.ID, "error", err)
	}
	return res.Write(http.StatusCreated, placed)
}

func (s Orders) cancel(req dispatch.Request, res dispatch.ResponseSink) error {
	order, err := s.Repo.Update(req.Context(), req.Param("id"), func(o *entity.Order) error {
		return o.Cancel()
	})
	if err != nil {
		return err
	}
	return res.Write(http.StatusOK, order)
}

func (s Orders) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func nowFrom(c clock.Clock) time.Time {
	if c == nil {
		return clock.Real().Now()
	}
	return c.Now()
}
