package entity

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/kauppa/kauppa-sub001/store"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Account is a customer. Email is unique across accounts.
type Account struct {
	Meta
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Addresses []Address `json:"addresses,omitempty"`
}

func (a Account) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&a.Email, validation.Required, validation.Match(emailPattern)),
		validation.Field(&a.Addresses),
	)
}

// NormalizeEmail is applied before an email is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func AccountHandlers(newID func() string) store.ModelHandlers[string, Account] {
	return Handlers[Account](NameAccount, newID,
		func(a Account) map[string]string {
			return map[string]string{IndexEmail: a.Email}
		},
		func(a Account) Account {
			a.Addresses = append([]Address(nil), a.Addresses...)
			return a
		},
	)
}
