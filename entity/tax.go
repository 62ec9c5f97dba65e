package entity

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/kauppa/kauppa-sub001/store"
)

// TaxCountry carries the default tax rate of a country. Name is unique.
type TaxCountry struct {
	Meta
	Name string  `json:"name"`
	Rate float64 `json:"rate"`
}

func (c TaxCountry) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Rate, validation.Min(0.0), validation.Max(100.0)),
	)
}

func TaxCountryHandlers(newID func() string) store.ModelHandlers[string, TaxCountry] {
	return Handlers[TaxCountry](NameTaxCountry, newID,
		func(c TaxCountry) map[string]string {
			return map[string]string{IndexName: c.Name}
		},
		nil,
	)
}

type RegionKind string

const (
	RegionState    RegionKind = "state"
	RegionProvince RegionKind = "province"
	RegionCity     RegionKind = "city"
)

// Region overrides the country rate inside a country. Name is unique.
type Region struct {
	Meta
	CountryID string     `json:"countryId"`
	Name      string     `json:"name"`
	Kind      RegionKind `json:"kind"`
	Rate      float64    `json:"rate"`
}

func (r Region) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CountryID, validation.Required),
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Kind, validation.In(RegionState, RegionProvince, RegionCity)),
		validation.Field(&r.Rate, validation.Min(0.0), validation.Max(100.0)),
	)
}

func RegionHandlers(newID func() string) store.ModelHandlers[string, Region] {
	return Handlers[Region](NameRegion, newID,
		func(r Region) map[string]string {
			return map[string]string{IndexName: r.Name}
		},
		nil,
	)
}
