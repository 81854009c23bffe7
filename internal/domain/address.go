package domain

import (
	"strings"
	"time"
)

// BrazilianStates lists the 27 federative unit codes accepted in State.
var BrazilianStates = []string{
	"AC", "AL", "AP", "AM", "BA", "CE", "DF", "ES", "GO", "MA", "MT", "MS", "MG", "PA",
	"PB", "PR", "PE", "PI", "RJ", "RN", "RS", "RO", "RR", "SC", "SP", "SE", "TO",
}

// Address is one entry in a customer's address book.
type Address struct {
	ID            string    `json:"id" firestore:"-"`
	CustomerID    string    `json:"customer_id" firestore:"customer_id"`
	RecipientName string    `json:"recipient_name" firestore:"recipient_name" validate:"required"`
	Street        string    `json:"street" firestore:"street" validate:"required"`
	Number        string    `json:"number" firestore:"number" validate:"required"`
	Complement    string    `json:"complement,omitempty" firestore:"complement"`
	Neighborhood  string    `json:"neighborhood" firestore:"neighborhood" validate:"required"`
	PostalCode    string    `json:"postal_code" firestore:"postal_code" validate:"required,cep"`
	City          string    `json:"city" firestore:"city" validate:"required"`
	State         string    `json:"state" firestore:"state" validate:"required,uf"`
	Phone         string    `json:"phone" firestore:"phone" validate:"required"`
	IsDefault     bool      `json:"is_default" firestore:"is_default"`
	CreatedAt     time.Time `json:"created_at" firestore:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" firestore:"updated_at"`
}

// AddressPatch carries caller-supplied address fields. Nil fields are left
// untouched when merged onto an existing address.
type AddressPatch struct {
	RecipientName *string `json:"recipient_name"`
	Street        *string `json:"street"`
	Number        *string `json:"number"`
	Complement    *string `json:"complement"`
	Neighborhood  *string `json:"neighborhood"`
	PostalCode    *string `json:"postal_code"`
	City          *string `json:"city"`
	State         *string `json:"state"`
	Phone         *string `json:"phone"`
	IsDefault     *bool   `json:"is_default"`
}

// ApplyTo merges the non-nil fields of p onto a and normalises the result:
// strings are trimmed, the postal code keeps digits only and the state is
// upper-cased. IsDefault is not touched; callers decide it.
func (p AddressPatch) ApplyTo(a *Address) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&a.RecipientName, p.RecipientName)
	set(&a.Street, p.Street)
	set(&a.Number, p.Number)
	set(&a.Complement, p.Complement)
	set(&a.Neighborhood, p.Neighborhood)
	set(&a.PostalCode, p.PostalCode)
	set(&a.City, p.City)
	set(&a.State, p.State)
	set(&a.Phone, p.Phone)

	a.RecipientName = strings.TrimSpace(a.RecipientName)
	a.Street = strings.TrimSpace(a.Street)
	a.Number = strings.TrimSpace(a.Number)
	a.Complement = strings.TrimSpace(a.Complement)
	a.Neighborhood = strings.TrimSpace(a.Neighborhood)
	a.PostalCode = DigitsOnly(a.PostalCode)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.ToUpper(strings.TrimSpace(a.State))
	a.Phone = strings.TrimSpace(a.Phone)
}

// DigitsOnly drops every rune that is not an ASCII digit.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DefaultAddress returns the first default address in book, or nil.
func DefaultAddress(book []Address) *Address {
	for i := range book {
		if book[i].IsDefault {
			return &book[i]
		}
	}
	return nil
}
