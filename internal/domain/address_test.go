package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uaidecants/storefront/pkg/validator"
)

func strPtr(s string) *string { return &s }

func validPatch() AddressPatch {
	return AddressPatch{
		RecipientName: strPtr("  Ana Souza "),
		Street:        strPtr("Rua das Flores"),
		Number:        strPtr("123"),
		Neighborhood:  strPtr("Centro"),
		PostalCode:    strPtr("38600-000"),
		City:          strPtr("Paracatu"),
		State:         strPtr("mg"),
		Phone:         strPtr("38999990000"),
	}
}

func TestAddressPatch_ApplyToNormalizes(t *testing.T) {
	var a Address
	validPatch().ApplyTo(&a)

	assert.Equal(t, "Ana Souza", a.RecipientName)
	assert.Equal(t, "38600000", a.PostalCode)
	assert.Equal(t, "MG", a.State)
	assert.Empty(t, a.Complement)
	require.NoError(t, validator.Validate(a))
}

func TestAddressPatch_PartialMergeKeepsOtherFields(t *testing.T) {
	var a Address
	validPatch().ApplyTo(&a)

	AddressPatch{City: strPtr("Unaí")}.ApplyTo(&a)
	assert.Equal(t, "Unaí", a.City)
	assert.Equal(t, "Rua das Flores", a.Street)
}

func TestAddress_ValidationReportsEveryField(t *testing.T) {
	a := Address{PostalCode: "1234", State: "XX"}

	err := validator.Validate(a)
	require.Error(t, err)

	var ve *validator.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.ElementsMatch(t, []string{
		"recipient_name", "street", "number", "neighborhood",
		"postal_code", "city", "state", "phone",
	}, ve.FieldNames())
}

func TestAddress_StateSetMatchesList(t *testing.T) {
	for _, uf := range BrazilianStates {
		var a Address
		validPatch().ApplyTo(&a)
		a.State = uf
		assert.NoError(t, validator.Validate(a), uf)
	}
	assert.Len(t, BrazilianStates, 27)
}

func TestDefaultAddress(t *testing.T) {
	assert.Nil(t, DefaultAddress(nil))
	book := []Address{{ID: "a"}, {ID: "b", IsDefault: true}}
	require.NotNil(t, DefaultAddress(book))
	assert.Equal(t, "b", DefaultAddress(book).ID)
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "01001000", DigitsOnly(" 01.001-000 "))
	assert.Empty(t, DigitsOnly("abc"))
}
