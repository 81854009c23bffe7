package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/uaidecants/storefront/internal/domain"
)

func TestAddressBatch_Fold(t *testing.T) {
	b := AddressBatch{
		CustomerID:   "cust-1",
		Puts:         []domain.Address{{ID: "a2"}},
		DefaultFlags: map[string]bool{"a1": false, "a2": true},
		Deletes:      []string{"a0"},
	}

	folded := b.Fold()

	assert.True(t, folded.Puts[0].IsDefault)
	assert.Equal(t, map[string]bool{"a1": false}, folded.DefaultFlags)
	assert.Equal(t, []string{"a0"}, folded.Deletes)
	// The original batch is untouched.
	assert.False(t, b.Puts[0].IsDefault)
	assert.Len(t, b.DefaultFlags, 2)
}

func TestAddressBatch_Empty(t *testing.T) {
	assert.True(t, AddressBatch{CustomerID: "cust-1"}.Empty())
	assert.False(t, AddressBatch{Deletes: []string{"a1"}}.Empty())
}
