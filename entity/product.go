package entity

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/kauppa/kauppa-sub001/store"
)

// Product is a sellable catalog item.
type Product struct {
	Meta
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Category    string            `json:"category,omitempty"`
	Price       Money             `json:"price"`
	Stock       int               `json:"stock"`
	Images      []string          `json:"images,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

func (p Product) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Price),
		validation.Field(&p.Stock, validation.Min(0)),
	)
}

func ProductHandlers(newID func() string) store.ModelHandlers[string, Product] {
	return Handlers[Product](NameProduct, newID, nil, func(p Product) Product {
		p.Images = append([]string(nil), p.Images...)
		if p.Attributes != nil {
			attrs := make(map[string]string, len(p.Attributes))
			for k, v := range p.Attributes {
				attrs[k] = v
			}
			p.Attributes = attrs
		}
		return p
	})
}

// Review is an account's rating of a product.
type Review struct {
	Meta
	ProductID string `json:"productId"`
	AccountID string `json:"accountId"`
	Rating    int    `json:"rating"`
	Title     string `json:"title,omitempty"`
	Comment   string `json:"comment,omitempty"`
}

func (r Review) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProductID, validation.Required),
		validation.Field(&r.AccountID, validation.Required),
		validation.Field(&r.Rating, validation.Required, validation.Min(1), validation.Max(5)),
		validation.Field(&r.Comment, validation.Length(0, 4000)),
	)
}

func ReviewHandlers(newID func() string) store.ModelHandlers[string, Review] {
	return Handlers[Review](NameReview, newID, nil, nil)
}
