package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kauppa/kauppa-sub001/cache"
	"github.com/kauppa/kauppa-sub001/client"
	"github.com/kauppa/kauppa-sub001/dispatch"
	"github.com/kauppa/kauppa-sub001/entity"
	"github.com/kauppa/kauppa-sub001/gateway"
	"github.com/kauppa/kauppa-sub001/pkg/clock"
	"github.com/kauppa/kauppa-sub001/pkg/errors"
	"github.com/kauppa/kauppa-sub001/pkg/testsupport"
)

func eur(amount int64) entity.Money { return entity.Money{Amount: amount, Currency: "EUR"} }

var home = entity.Address{Line1: "Mannerheimintie 1", City: "Helsinki", Code: "00100", Country: "FI"}

// shop runs every service in process, each behind its own Dispatcher, with
// typed clients talking to them over loopback transports.
type shop struct {
	t           *testing.T
	clock       *clock.Fake
	dispatchers map[string]*dispatch.Dispatcher

	accounts  *AccountsClient
	products  *ProductsClient
	carts     *CartsClient
	coupons   *CouponsClient
	giftcards *GiftCardsClient
	orders    *OrdersClient
	shipments *ShipmentsClient
	tax       *TaxClient
	reviews   *ReviewsClient
}

func newShop(t *testing.T) *shop {
	t.Helper()

	s := &shop{t: t, clock: clock.NewFake(testsupport.Epoch), dispatchers: map[string]*dispatch.Dispatcher{}}
	for _, name := range Names() {
		s.dispatchers[name] = dispatch.New(dispatch.NewMuxTransport(), dispatch.WithLogger(testsupport.DiscardLogger()))
	}

	lookups, err := cache.NewCacheService(cache.DefaultConfig())
	require.NoError(t, err)

	s.accounts = NewAccountsClient(s.client(ServiceAccounts))
	s.products = NewProductsClient(s.client(ServiceProducts, client.WithLookupCache(lookups)))
	s.carts = NewCartsClient(s.client(ServiceCarts))
	s.coupons = NewCouponsClient(s.client(ServiceCoupons))
	s.giftcards = NewGiftCardsClient(s.client(ServiceGiftCards))
	s.orders = NewOrdersClient(s.client(ServiceOrders))
	s.shipments = NewShipmentsClient(s.client(ServiceShipments))
	s.tax = NewTaxClient(s.client(ServiceTax))
	s.reviews = NewReviewsClient(s.client(ServiceReviews))

	accounts, _, _ := testsupport.NewRepository(t, entity.AccountHandlers(nil), 16)
	products, _, _ := testsupport.NewRepository(t, entity.ProductHandlers(nil), 16)
	carts, _, _ := testsupport.NewRepository(t, entity.CartHandlers(nil), 16)
	coupons, _, _ := testsupport.NewRepository(t, entity.CouponHandlers(nil), 16)
	giftcards, _, _ := testsupport.NewRepository(t, entity.GiftCardHandlers(nil), 16)
	orders, _, _ := testsupport.NewRepository(t, entity.OrderHandlers(nil), 16)
	shipments, _, _ := testsupport.NewRepository(t, entity.ShipmentHandlers(nil), 16)
	countries, _, _ := testsupport.NewRepository(t, entity.TaxCountryHandlers(nil), 16)
	regions, _, _ := testsupport.NewRepository(t, entity.RegionHandlers(nil), 16)
	reviews, _, _ := testsupport.NewRepository(t, entity.ReviewHandlers(nil), 16)

	services := []Service{
		Accounts{Repo: accounts},
		Products{Repo: products},
		Carts{Repo: carts, Products: s.products},
		Coupons{Repo: coupons},
		GiftCards{Repo: giftcards, Clock: s.clock},
		Orders{Repo: orders, Carts: s.carts, Coupons: s.coupons, Clock: s.clock, Logger: testsupport.DiscardLogger()},
		Shipments{Repo: shipments, Clock: s.clock},
		Tax{Countries: countries, Regions: regions},
		Reviews{Repo: reviews, Products: s.products},
	}
	for _, svc := range services {
		svc.Register(s.dispatchers[svc.Name()])
	}
	return s
}

func (s *shop) client(service string, opts ...client.Option) *client.ServiceClient {
	s.t.Helper()
	opts = append([]client.Option{client.WithServiceName(service), client.WithLogger(testsupport.DiscardLogger())}, opts...)
	c, err := client.New("http://"+service+".local", client.LoopbackTransport{Handler: s.dispatchers[service]}, opts...)
	require.NoError(s.t, err)
	return c
}

func kindOf(err error) errors.Kind { return errors.KindOf(err) }

func TestAccounts(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()

	created, err := s.accounts.Create(ctx, entity.Account{Name: "Aino", Email: " Aino@Example.FI "})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "aino@example.fi", created.Email)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := s.accounts.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	byEmail, err := s.accounts.ByEmail(ctx, "AINO@example.fi")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = s.accounts.ByEmail(ctx, "nobody@example.fi")
	assert.Equal(t, errors.KindNotFoundBySecondaryKey, kindOf(err))

	_, err = s.accounts.Create(ctx, entity.Account{Name: "Other", Email: "aino@example.fi"})
	assert.Equal(t, errors.KindConflict, kindOf(err))

	_, err = s.accounts.Create(ctx, entity.Account{Name: "Bad", Email: "not-an-email"})
	require.Equal(t, errors.KindValidationFailed, kindOf(err))
	var se *errors.Error
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Context, "fields")

	s.clock.Advance(time.Minute)
	updated, err := s.accounts.Update(ctx, created.ID, entity.Account{Name: "Aino V", Email: "aino.v@example.fi"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Aino V", updated.Name)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	_, err = s.accounts.ByEmail(ctx, "aino@example.fi")
	assert.Equal(t, errors.KindNotFoundBySecondaryKey, kindOf(err))

	require.NoError(t, s.accounts.Delete(ctx, created.ID))
	_, err = s.accounts.Get(ctx, created.ID)
	assert.Equal(t, errors.KindNotFound, kindOf(err))
}

func TestAccountLookupNeedsEmail(t *testing.T) {
	s := newShop(t)
	rec := httptest.NewRecorder()
	s.dispatchers[ServiceAccounts].ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartPricesItemsFromCatalog(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()

	bucket, err := s.products.Create(ctx, entity.Product{Title: "Sauna bucket", Price: eur(2450), Stock: 3})
	require.NoError(t, err)
	cart, err := s.carts.Create(ctx, entity.Cart{AccountID: "acct-1"})
	require.NoError(t, err)

	cart, err = s.carts.AddItem(ctx, cart.ID, AddItemRequest{ProductID: bucket.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, eur(2450), cart.Items[0].UnitPrice)
	assert.Equal(t, "Sauna bucket", cart.Items[0].Title)

	_, err = s.carts.AddItem(ctx, cart.ID, AddItemRequest{ProductID: bucket.ID, Quantity: 2})
	assert.Equal(t, errors.KindConflict, kindOf(err))

	_, err = s.carts.AddItem(ctx, cart.ID, AddItemRequest{ProductID: "no-such-product", Quantity: 1})
	assert.Equal(t, errors.KindNotFound, kindOf(err))

	_, err = s.carts.AddItem(ctx, cart.ID, AddItemRequest{ProductID: bucket.ID})
	assert.Equal(t, errors.KindValidationFailed, kindOf(err))

	_, err = s.carts.RemoveItem(ctx, cart.ID, "no-such-product")
	assert.Equal(t, errors.KindNotFound, kindOf(err))

	cart, err = s.carts.RemoveItem(ctx, cart.ID, bucket.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestPlaceOrderWithCoupon(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()

	lamp, err := s.products.Create(ctx, entity.Product{Title: "Lamp", Price: eur(10000), Stock: 5})
	require.NoError(t, err)
	cart, err := s.carts.Create(ctx, entity.Cart{AccountID: "acct-1"})
	require.NoError(t, err)
	_, err = s.carts.AddItem(ctx, cart.ID, AddItemRequest{ProductID: lamp.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = s.coupons.Create(ctx, entity.Coupon{Code: "spring", Percent: 20, Enabled: true})
	require.NoError(t, err)

	order, err := s.orders.Place(ctx, PlaceOrderRequest{CartID: cart.ID, CouponCode: "Spring", ShipTo: &home})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderPlaced, order.Status)
	assert.Equal(t, eur(10000), order.Subtotal)
	assert.Equal(t, eur(8000), order.Total)
	assert.Equal(t, "SPRING", order.CouponCode)
	require.NotNil(t, order.ShipTo)

	emptied, err := s.carts.Get(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, emptied.Items)

	_, err = s.orders.Place(ctx, PlaceOrderRequest{CartID: cart.ID})
	assert.Equal(t, errors.KindValidationFailed, kindOf(err))

	_, err = s.orders.Place(ctx, PlaceOrderRequest{CartID: "no-such-cart"})
	assert.Equal(t, errors.KindNotFound, kindOf(err))

	cancelled, err := s.orders.Cancel(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderCancelled, cancelled.Status)

	_, err = s.orders.Cancel(ctx, order.ID)
	assert.Equal(t, errors.KindConflict, kindOf(err))
}

func TestPlaceOrderWithUnknownCoupon(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()

	p, err := s.products.Create(ctx, entity.Product{Title: "Ladle", Price: eur(990), Stock: 1})
	require.NoError(t, err)
	cart, err := s.carts.Create(ctx, entity.Cart{AccountID: "acct-1"})
	require.NoError(t, err)
	_, err = s.carts.AddItem(ctx, cart.ID, AddItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = s.orders.Place(ctx, PlaceOrderRequest{CartID: cart.ID, CouponCode: "NOPE"})
	assert.Equal(t, errors.KindNotFoundBySecondaryKey, kindOf(err))

	still, err := s.carts.Get(ctx, cart.ID)
	require.NoError(t, err)
	assert.Len(t, still.Items, 1)
}

func TestShipmentWorkflow(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()

	sh, err := s.shipments.Create(ctx, entity.Shipment{OrderID: "o1", Address: home})
	require.NoError(t, err)
	assert.Equal(t, entity.ShipmentPending, sh.Status)

	_, err = s.shipments.MarkDelivered(ctx, sh.ID)
	assert.Equal(t, errors.KindConflict, kindOf(err))

	s.clock.Advance(time.Hour)
	sh, err = s.shipments.MarkShipped(ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ShipmentShipped, sh.Status)
	require.NotNil(t, sh.ShippedAt)
	assert.True(t, sh.ShippedAt.Equal(testsupport.Epoch.Add(time.Hour)))

	sh, err = s.shipments.MarkDelivered(ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ShipmentDelivered, sh.Status)

	_, err = s.shipments.MarkShipped(ctx, "missing")
	assert.Equal(t, errors.KindNotFound, kindOf(err))
}

func TestTaxCountriesAndRegions(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()

	fi, err := s.tax.Countries.Create(ctx, entity.TaxCountry{Name: "Finland", Rate: 25.5})
	require.NoError(t, err)

	_, err = s.tax.Regions.Create(ctx, entity.Region{CountryID: "nowhere", Name: "Atlantis", Kind: entity.RegionCity})
	assert.Equal(t, errors.KindNotFound, kindOf(err))

	region, err := s.tax.Regions.Create(ctx, entity.Region{CountryID: fi.ID, Name: "Ahvenanmaa", Kind: entity.RegionProvince, Rate: 24})
	require.NoError(t, err)

	byName, err := s.tax.CountryByName(ctx, "Finland")
	require.NoError(t, err)
	assert.Equal(t, fi.ID, byName.ID)

	regionByName, err := s.tax.RegionByName(ctx, "Ahvenanmaa")
	require.NoError(t, err)
	assert.Equal(t, region.ID, regionByName.ID)

	_, err = s.tax.Countries.Create(ctx, entity.TaxCountry{Name: "Finland", Rate: 10})
	assert.Equal(t, errors.KindConflict, kindOf(err))
}

func TestGiftCardRedeem(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()

	card, err := s.giftcards.Create(ctx, entity.GiftCard{Balance: eur(5000)})
	require.NoError(t, err)

	card, err = s.giftcards.Redeem(ctx, card.ID, eur(1500))
	require.NoError(t, err)
	assert.Equal(t, eur(3500), card.Balance)

	_, err = s.giftcards.Redeem(ctx, card.ID, eur(9999))
	assert.Equal(t, errors.KindConflict, kindOf(err))

	_, err = s.giftcards.Redeem(ctx, card.ID, entity.Money{Amount: 1, Currency: "usd"})
	assert.Equal(t, errors.KindValidationFailed, kindOf(err))
}

func TestReviewsNeedExistingProduct(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()

	_, err := s.reviews.Create(ctx, entity.Review{ProductID: "missing", AccountID: "a", Rating: 4})
	assert.Equal(t, errors.KindNotFound, kindOf(err))

	p, err := s.products.Create(ctx, entity.Product{Title: "Towel", Price: eur(1500)})
	require.NoError(t, err)

	rv, err := s.reviews.Create(ctx, entity.Review{ProductID: p.ID, AccountID: "a", Rating: 4, Comment: "soft"})
	require.NoError(t, err)
	assert.Equal(t, 4, rv.Rating)
}

func TestServicesBehindGatewayBridge(t *testing.T) {
	repo, _, _ := testsupport.NewRepository(t, entity.AccountHandlers(nil), 8)
	d := dispatch.New(dispatch.NewServeMuxTransport(), dispatch.WithLogger(testsupport.DiscardLogger()))
	bridge := gateway.New(d, gateway.WithServiceName(ServiceAccounts), gateway.WithLogger(testsupport.DiscardLogger()))
	Accounts{Repo: repo}.Register(bridge)

	assert.Len(t, bridge.Registrations(), len(AccountRoutes.All())+1)

	c, err := client.New("http://accounts.local", client.LoopbackTransport{Handler: bridge}, client.WithLogger(testsupport.DiscardLogger()))
	require.NoError(t, err)
	accounts := NewAccountsClient(c)

	created, err := accounts.Create(context.Background(), entity.Account{Name: "Eero", Email: "eero@example.fi"})
	require.NoError(t, err)

	got, err := accounts.ByEmail(context.Background(), "eero@example.fi")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestDecodeErrorsReachClient(t *testing.T) {
	s := newShop(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"title":`))
	s.dispatchers[ServiceProducts].ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
