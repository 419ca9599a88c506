package simplefields_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	simplefields "github.com/tendant/simple-fields/pkg/simplefields"
)

func TestValidateValue_RequiredPrecedesType(t *testing.T) {
	f := &simplefields.Field{ID: "price", Label: "Price", Type: simplefields.FieldNumber, Required: true}

	msg := simplefields.ValidateValue(f, "")
	assert.Equal(t, "Price is required", msg)

	msg = simplefields.ValidateValue(f, nil)
	assert.Equal(t, "Price is required", msg)
}

func TestValidateValue_EmptyOptionalShortCircuits(t *testing.T) {
	f := &simplefields.Field{ID: "email", Label: "Email", Type: simplefields.FieldEmail}

	// An empty value on an optional field never reaches type validation.
	assert.Equal(t, "", simplefields.ValidateValue(f, ""))
	assert.Equal(t, "", simplefields.ValidateValue(f, nil))
	assert.Equal(t, "", simplefields.ValidateValue(f, "   "))
}

func TestValidateValue_NumberConstraints(t *testing.T) {
	f := &simplefields.Field{
		ID: "price", Label: "Price", Type: simplefields.FieldNumber, Required: true,
		Attributes: map[string]string{"min": "0"},
	}

	assert.Equal(t, "Price is invalid", simplefields.ValidateValue(f, -5))
	assert.Equal(t, "Price is invalid", simplefields.ValidateValue(f, "-5"))
	assert.Equal(t, "", simplefields.ValidateValue(f, "19.90"))
	assert.Equal(t, "Price is invalid", simplefields.ValidateValue(f, "not-a-number"))

	f.Attributes["max"] = "100"
	assert.Equal(t, "Price is invalid", simplefields.ValidateValue(f, 250))

	f.Attributes["step"] = "0.5"
	assert.Equal(t, "", simplefields.ValidateValue(f, 2.5))
	assert.Equal(t, "Price is invalid", simplefields.ValidateValue(f, 2.3))
}

func TestValidateValue_TextConstraints(t *testing.T) {
	f := &simplefields.Field{
		ID: "sku", Label: "SKU", Type: simplefields.FieldText,
		Attributes: map[string]string{"minlength": "3", "maxlength": "8", "pattern": "^[A-Z0-9-]+$"},
	}

	assert.Equal(t, "", simplefields.ValidateValue(f, "AB-123"))
	assert.Equal(t, "SKU must be at least 3 characters", simplefields.ValidateValue(f, "AB"))
	assert.Equal(t, "SKU must be at most 8 characters", simplefields.ValidateValue(f, "ABCDEFGHI"))
	assert.Equal(t, "SKU is invalid", simplefields.ValidateValue(f, "lower"))
}

func TestValidateValue_TextLengthCountsRunes(t *testing.T) {
	f := &simplefields.Field{
		ID: "name", Label: "Name", Type: simplefields.FieldText,
		Attributes: map[string]string{"minlength": "3", "maxlength": "5"},
	}

	// Five runes, fifteen bytes.
	assert.Equal(t, "", simplefields.ValidateValue(f, "日本語です"))
	assert.Equal(t, "Name must be at least 3 characters", simplefields.ValidateValue(f, "日本"))
	assert.Equal(t, "Name must be at most 5 characters", simplefields.ValidateValue(f, "日本語ですよね"))
}

func TestValidateValue_EmailAndURL(t *testing.T) {
	email := &simplefields.Field{ID: "e", Label: "Email", Type: simplefields.FieldEmail}
	assert.Equal(t, "", simplefields.ValidateValue(email, "user@example.com"))
	assert.Equal(t, "Email is invalid", simplefields.ValidateValue(email, "not-an-email"))

	u := &simplefields.Field{ID: "u", Label: "Website", Type: simplefields.FieldURL}
	assert.Equal(t, "", simplefields.ValidateValue(u, "https://example.com/x"))
	assert.Equal(t, "", simplefields.ValidateValue(u, "example.com"))
	assert.Equal(t, "Website is invalid", simplefields.ValidateValue(u, "://"))
}

func TestValidateValue_Choice(t *testing.T) {
	f := &simplefields.Field{
		ID: "status", Label: "Status", Type: simplefields.FieldSelect,
		Options: []simplefields.FieldOption{
			{Value: "draft", Label: "Draft"},
			{Value: "published", Label: "Published"},
		},
	}

	assert.Equal(t, "", simplefields.ValidateValue(f, "draft"))
	assert.Equal(t, "Status is invalid", simplefields.ValidateValue(f, "archived"))
}

func TestValidateValue_Date(t *testing.T) {
	f := &simplefields.Field{
		ID: "released", Label: "Released", Type: simplefields.FieldDate,
		Attributes: map[string]string{"min": "2020-01-01", "max": "2030-12-31"},
	}

	assert.Equal(t, "", simplefields.ValidateValue(f, "2024-06-15"))
	assert.Equal(t, "Released is invalid", simplefields.ValidateValue(f, "15/06/2024"))
	assert.Equal(t, "Released is invalid", simplefields.ValidateValue(f, "2019-12-31"))
	assert.Equal(t, "Released is invalid", simplefields.ValidateValue(f, "2031-01-01"))
}

func TestValidateValue_CustomValidatorWins(t *testing.T) {
	f := &simplefields.Field{
		ID: "n", Label: "N", Type: simplefields.FieldNumber,
		Validate: func(raw interface{}, f *simplefields.Field) string {
			return "always wrong"
		},
	}

	// Built-in number validation would accept 5; the custom validator wins.
	assert.Equal(t, "always wrong", simplefields.ValidateValue(f, 5))
}

func TestSanitizeValue_Builtins(t *testing.T) {
	text := &simplefields.Field{ID: "t", Type: simplefields.FieldText}
	assert.Equal(t, "hello world", simplefields.SanitizeValue(text, "  hello\nworld  "))

	num := &simplefields.Field{ID: "n", Type: simplefields.FieldNumber}
	assert.Equal(t, 19.9, simplefields.SanitizeValue(num, "19.90"))
	assert.Nil(t, simplefields.SanitizeValue(num, "junk"))

	email := &simplefields.Field{ID: "e", Type: simplefields.FieldEmail}
	assert.Equal(t, "user@example.com", simplefields.SanitizeValue(email, " User@Example.COM "))

	u := &simplefields.Field{ID: "u", Type: simplefields.FieldURL}
	assert.Equal(t, "https://example.com", simplefields.SanitizeValue(u, "example.com"))

	color := &simplefields.Field{ID: "c", Type: simplefields.FieldColor}
	assert.Equal(t, "#a1b2c3", simplefields.SanitizeValue(color, "A1B2C3"))
	assert.Equal(t, "", simplefields.SanitizeValue(color, "zzz"))

	check := &simplefields.Field{ID: "b", Type: simplefields.FieldCheckbox}
	assert.Equal(t, true, simplefields.SanitizeValue(check, "on"))
	assert.Equal(t, false, simplefields.SanitizeValue(check, "0"))

	media := &simplefields.Field{ID: "m", Type: simplefields.FieldMedia}
	assert.Equal(t, []string{"7", "8"}, simplefields.SanitizeValue(media, "7, 8"))
}

func TestSanitizeValue_ChoiceRejectsUnknown(t *testing.T) {
	f := &simplefields.Field{
		ID: "status", Type: simplefields.FieldSelect,
		Options: []simplefields.FieldOption{{Value: "draft", Label: "Draft"}},
	}

	assert.Equal(t, "draft", simplefields.SanitizeValue(f, "draft"))
	assert.Equal(t, "", simplefields.SanitizeValue(f, "bogus"))
}

func TestRegisterFieldType_CustomKind(t *testing.T) {
	simplefields.RegisterFieldType("stars",
		func(raw interface{}, f *simplefields.Field) interface{} { return "*" },
		func(raw interface{}, f *simplefields.Field) string { return "" },
	)

	assert.True(t, simplefields.KnownFieldType("stars"))
	f := &simplefields.Field{ID: "rating", Label: "Rating", Type: "stars"}
	assert.Equal(t, "*", simplefields.SanitizeValue(f, 5))
	assert.Equal(t, "", simplefields.ValidateValue(f, 5))
}

func TestIsEmptyValue(t *testing.T) {
	assert.True(t, simplefields.IsEmptyValue(nil))
	assert.True(t, simplefields.IsEmptyValue(""))
	assert.True(t, simplefields.IsEmptyValue("  "))
	assert.True(t, simplefields.IsEmptyValue([]string{}))
	assert.True(t, simplefields.IsEmptyValue([]interface{}{}))
	assert.False(t, simplefields.IsEmptyValue(0))
	assert.False(t, simplefields.IsEmptyValue(false))
	assert.False(t, simplefields.IsEmptyValue("x"))
}
