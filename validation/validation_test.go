package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRules(t *testing.T) {
	v := Violations{}
	Required("name", "  ", v)
	MaxLength("barcode", "123456", 5, v)
	MinLength("new_password", "short", 8, v)
	MinLength("optional", "", 8, v)
	Email("email", "not-an-email", v)
	Email("other_email", "kasir@pos.test", v)
	MinInt("quantity", 0, 1, v)
	NonNegative("discount_amount", decimal.RequireFromString("-0.01"), v)
	Confirmed("new_password", "a", "b", v)
	Invalid("product_id", v)

	assert.Equal(t, []string{"The name field is required."}, v["name"])
	assert.Equal(t, []string{"The barcode may not be greater than 5 characters."}, v["barcode"])
	assert.Equal(t, []string{
		"The new password must be at least 8 characters.",
		"The new password confirmation does not match.",
	}, v["new_password"])
	assert.False(t, v.Has("optional"))
	assert.True(t, v.Has("email"))
	assert.False(t, v.Has("other_email"))
	assert.Equal(t, []string{"The quantity must be at least 1."}, v["quantity"])
	assert.Equal(t, []string{"The discount amount must be at least 0."}, v["discount_amount"])
	assert.Equal(t, []string{"The selected product id is invalid."}, v["product_id"])
}

func TestMerge(t *testing.T) {
	v := Violations{}
	assert.True(t, v.Empty())
	v.Add("quantity", "a")
	v.Merge(Violations{"quantity": {"b"}, "sale_id": {"c"}})
	assert.Equal(t, []string{"a", "b"}, v["quantity"])
	assert.Equal(t, []string{"c"}, v["sale_id"])
	assert.False(t, v.Empty())
}
