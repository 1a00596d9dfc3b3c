package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidIdentifier(t *testing.T) {
	valid := []string{"user_042", "dev-1", "a", "alice@example.com", "sess:abc.1"}
	for _, s := range valid {
		assert.True(t, IsValidIdentifier(s), "expected valid: %q", s)
	}

	invalid := []string{"", "-leading", " spaced ", "has space", "null\x00byte", string(make([]byte, 200))}
	for _, s := range invalid {
		assert.False(t, IsValidIdentifier(s), "expected invalid: %q", s)
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("  hello  ", 100))
	assert.Equal(t, "ab", SanitizeString("abcdef", 2))
	assert.Equal(t, "ab", SanitizeString("a\x00b", 100))
}

func TestValidate_CollectsErrors(t *testing.T) {
	errs := Validate(
		Required("user_id", ""),
		Required("event_type", "login"),
		MaxLength("note", "too long", 3),
	)
	assert.Len(t, errs, 2)
	assert.Equal(t, "user_id", errs[0].Field)
	assert.Equal(t, "note", errs[1].Field)
	assert.Contains(t, errs.Error(), "user_id")
}

func TestValidate_NoErrors(t *testing.T) {
	errs := Validate(
		Required("user_id", "user_042"),
		ValidIdentifier("user_id", "user_042"),
	)
	assert.Empty(t, errs)
}

func TestOneOf(t *testing.T) {
	assert.Nil(t, OneOf("event_type", "login", "login", "logout", "failed_login")())
	assert.Nil(t, OneOf("event_type", "", "login")()) // empty handled by Required
	err := OneOf("event_type", "purchase", "login", "logout")()
	assert.NotNil(t, err)
	assert.Equal(t, "event_type", err.Field)
}

func TestValidIdentifier_EmptyPasses(t *testing.T) {
	assert.Nil(t, ValidIdentifier("device_id", "")())
	assert.NotNil(t, ValidIdentifier("device_id", "bad id")())
}
