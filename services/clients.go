package services

import (
	"context"
	"net/url"

	"github.com/kauppa/kauppa-sub001/client"
	"github.com/kauppa/kauppa-sub001/entity"
	"github.com/kauppa/kauppa-sub001/route"
)

// EntityClient calls the CRUD routes of a remote entity service. Writes made
// through it invalidate its cached lookups.
type EntityClient[V any] struct {
	Client *client.ServiceClient
	Routes CRUDRoutes
}

func (e EntityClient[V]) Create(ctx context.Context, v V) (V, error) {
	created, err := client.Invoke[V](ctx, e.Client, e.Routes.Create, client.Call{Body: v})
	if err == nil {
		e.invalidate(ctx)
	}
	return created, err
}

// Get reads the current entity, bypassing the lookup cache.
func (e EntityClient[V]) Get(ctx context.Context, id string) (V, error) {
	return client.Invoke[V](ctx, e.Client, e.Routes.Get, client.Call{Path: idParam(id)})
}

// Lookup reads through the lookup cache when the client has one. Results may
// be stale for up to the cache TTL.
func (e EntityClient[V]) Lookup(ctx context.Context, id string) (V, error) {
	return client.Lookup[V](ctx, e.Client, e.Routes.Get, client.Call{Path: idParam(id)})
}

func (e EntityClient[V]) Update(ctx context.Context, id string, v V) (V, error) {
	updated, err := client.Invoke[V](ctx, e.Client, e.Routes.Update, client.Call{Path: idParam(id), Body: v})
	if err == nil {
		e.invalidate(ctx)
	}
	return updated, err
}

func (e EntityClient[V]) Delete(ctx context.Context, id string) error {
	err := e.Client.Do(ctx, e.Routes.Delete, client.Call{Path: idParam(id)}, nil)
	if err == nil {
		e.invalidate(ctx)
	}
	return err
}

// bySecondaryKey reads through a lookup route such as GET /accounts?email=.
func (e EntityClient[V]) bySecondaryKey(ctx context.Context, desc route.Descriptor, index, value string) (V, error) {
	return client.Invoke[V](ctx, e.Client, desc, client.Call{Query: url.Values{index: {value}}})
}

// call invokes a workflow route on one entity and invalidates lookups.
func (e EntityClient[V]) call(ctx context.Context, desc route.Descriptor, path map[string]string, body any) (V, error) {
	v, err := client.Invoke[V](ctx, e.Client, desc, client.Call{Path: path, Body: body})
	if err == nil {
		e.invalidate(ctx)
	}
	return v, err
}

func (e EntityClient[V]) invalidate(ctx context.Context) {
	_ = e.Client.Invalidate(ctx, e.Routes.Get)
}

func idParam(id string) map[string]string {
	return map[string]string{"id": id}
}

type AccountsClient struct {
	EntityClient[entity.Account]
}

func NewAccountsClient(c *client.ServiceClient) *AccountsClient {
	return &AccountsClient{EntityClient[entity.Account]{Client: c, Routes: AccountRoutes}}
}

func (a *AccountsClient) ByEmail(ctx context.Context, email string) (entity.Account, error) {
	return a.bySecondaryKey(ctx, AccountByEmail, entity.IndexEmail, email)
}

type ProductsClient struct {
	EntityClient[entity.Product]
}

func NewProductsClient(c *client.ServiceClient) *ProductsClient {
	return &ProductsClient{EntityClient[entity.Product]{Client: c, Routes: ProductRoutes}}
}

type CartsClient struct {
	EntityClient[entity.Cart]
}

func NewCartsClient(c *client.ServiceClient) *CartsClient {
	return &CartsClient{EntityClient[entity.Cart]{Client: c, Routes: CartRoutes}}
}

func (c *CartsClient) AddItem(ctx context.Context, cartID string, item AddItemRequest) (entity.Cart, error) {
	return c.call(ctx, CartAddItem, idParam(cartID), item)
}

func (c *CartsClient) RemoveItem(ctx context.Context, cartID, productID string) (entity.Cart, error) {
	return c.call(ctx, CartRemoveItem, map[string]string{"id": cartID, "product": productID}, nil)
}

type CouponsClient struct {
	EntityClient[entity.Coupon]
}

func NewCouponsClient(c *client.ServiceClient) *CouponsClient {
	return &CouponsClient{EntityClient[entity.Coupon]{Client: c, Routes: CouponRoutes}}
}

func (c *CouponsClient) ByCode(ctx context.Context, code string) (entity.Coupon, error) {
	return c.bySecondaryKey(ctx, CouponByCode, entity.IndexCode, code)
}

type GiftCardsClient struct {
	EntityClient[entity.GiftCard]
}

func NewGiftCardsClient(c *client.ServiceClient) *GiftCardsClient {
	return &GiftCardsClient{EntityClient[entity.GiftCard]{Client: c, Routes: GiftCardRoutes}}
}

func (g *GiftCardsClient) Redeem(ctx context.Context, id string, amount entity.Money) (entity.GiftCard, error) {
	return g.call(ctx, GiftCardRedeem, idParam(id), amount)
}

type OrdersClient struct {
	EntityClient[entity.Order]
}

func NewOrdersClient(c *client.ServiceClient) *OrdersClient {
	return &OrdersClient{EntityClient[entity.Order]{Client: c, Routes: OrderRoutes}}
}

// Place creates an order from a cart.
func (o *OrdersClient) Place(ctx context.Context, req PlaceOrderRequest) (entity.Order, error) {
	return o.call(ctx, OrderRoutes.Create, nil, req)
}

func (o *OrdersClient) Cancel(ctx context.Context, id string) (entity.Order, error) {
	return o.call(ctx, OrderCancel, idParam(id), nil)
}

type ShipmentsClient struct {
	EntityClient[entity.Shipment]
}

func NewShipmentsClient(c *client.ServiceClient) *ShipmentsClient {
	return &ShipmentsClient{EntityClient[entity.Shipment]{Client: c, Routes: ShipmentRoutes}}
}

func (s *ShipmentsClient) MarkShipped(ctx context.Context, id string) (entity.Shipment, error) {
	return s.call(ctx, ShipmentShipped, idParam(id), nil)
}

func (s *ShipmentsClient) MarkDelivered(ctx context.Context, id string) (entity.Shipment, error) {
	return s.call(ctx, ShipmentDelivered, idParam(id), nil)
}

// TaxClient covers countries and regions, both served by the tax service.
type TaxClient struct {
	Countries EntityClient[entity.TaxCountry]
	Regions   EntityClient[entity.Region]
}

func NewTaxClient(c *client.ServiceClient) *TaxClient {
	return &TaxClient{
		Countries: EntityClient[entity.TaxCountry]{Client: c, Routes: TaxCountryRoutes},
		Regions:   EntityClient[entity.Region]{Client: c, Routes: RegionRoutes},
	}
}

func (t *TaxClient) CountryByName(ctx context.Context, name string) (entity.TaxCountry, error) {
	return t.Countries.bySecondaryKey(ctx, TaxCountryByName, entity.IndexName, name)
}

func (t *TaxClient) RegionByName(ctx context.Context, name string) (entity.Region, error) {
	return t.Regions.bySecondaryKey(ctx, RegionByName, entity.IndexName, name)
}

type ReviewsClient struct {
	EntityClient[entity.Review]
}

func NewReviewsClient(c *client.ServiceClient) *ReviewsClient {
	return &ReviewsClient{EntityClient[entity.Review]{Client: c, Routes: ReviewRoutes}}
}
