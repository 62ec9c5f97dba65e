// Package services binds the kauppa entity services to route descriptors and
// provides typed clients for calling them from other services.
package services

import (
	"github.com/kauppa/kauppa-sub001/route"
)

// CRUDRoutes are the four routes every entity service exposes.
type CRUDRoutes struct {
	Create route.Descriptor
	Get    route.Descriptor
	Update route.Descriptor
	Delete route.Descriptor
}

// NewCRUDRoutes derives the routes of a collection, e.g. "accounts".
func NewCRUDRoutes(collection string) CRUDRoutes {
	base := "/" + collection
	item := base + "/:id"
	return CRUDRoutes{
		Create: route.Post(base),
		Get:    route.Get(item),
		Update: route.Put(item),
		Delete: route.Delete(item),
	}
}

// All lists the routes in registration order.
func (r CRUDRoutes) All() []route.Descriptor {
	return []route.Descriptor{r.Create, r.Get, r.Update, r.Delete}
}

var (
	AccountRoutes    = NewCRUDRoutes("accounts")
	ProductRoutes    = NewCRUDRoutes("products")
	CartRoutes       = NewCRUDRoutes("carts")
	CouponRoutes     = NewCRUDRoutes("coupons")
	GiftCardRoutes   = NewCRUDRoutes("giftcards")
	OrderRoutes      = NewCRUDRoutes("orders")
	ShipmentRoutes   = NewCRUDRoutes("shipments")
	TaxCountryRoutes = NewCRUDRoutes("countries")
	RegionRoutes     = NewCRUDRoutes("regions")
	ReviewRoutes     = NewCRUDRoutes("reviews")
)

// Secondary lookups. The key is passed as a query parameter.
var (
	AccountByEmail   = route.Get("/accounts")
	CouponByCode     = route.Get("/coupons")
	TaxCountryByName = route.Get("/countries")
	RegionByName     = route.Get("/regions")
)

// Workflow routes.
var (
	CartAddItem       = route.Post("/carts/:id/items")
	CartRemoveItem    = route.Delete("/carts/:id/items/:product")
	OrderCancel       = route.Put("/orders/:id/cancel")
	ShipmentShipped   = route.Put("/shipments/:id/shipped")
	ShipmentDelivered = route.Put("/shipments/:id/delivered")
	GiftCardRedeem    = route.Post("/giftcards/:id/redeem")
)

// Service names, used for configuration, logging and endpoint lookup.
const (
	ServiceAccounts  = "accounts"
	ServiceProducts  = "products"
	ServiceCarts     = "carts"
	ServiceCoupons   = "coupons"
	ServiceGiftCards = "giftcards"
	ServiceOrders    = "orders"
	ServiceShipments = "shipments"
	ServiceTax       = "tax"
	ServiceReviews   = "reviews"
)

// Names lists every service in startup order.
func Names() []string {
	return []string{
		ServiceAccounts, ServiceProducts, ServiceCarts, ServiceCoupons,
		ServiceGiftCards, ServiceOrders, ServiceShipments, ServiceTax, ServiceReviews,
	}
}
