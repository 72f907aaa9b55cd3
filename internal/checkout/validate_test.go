package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateContactAcceptsValidInput(t *testing.T) {
	valid := []string{
		"01712345678",
		"01312345678",
		"01912345678",
		"8801712345678",
		"+8801712345678",
	}
	for _, phone := range valid {
		err := ValidateContact(ContactInfo{Phone: phone, Address: "House 12, Road 5, Dhanmondi, Dhaka"})
		assert.NoError(t, err, "phone %q should be accepted", phone)
	}
}

func TestValidateContactRejectsMalformedPhone(t *testing.T) {
	invalid := []string{
		"12345",
		"01012345678",  // operator digit below 3
		"01212345678",  // operator digit below 3
		"017123456789", // too long
		"0171234567",   // too short
		"8617123456789",
		"abc",
	}
	for _, phone := range invalid {
		err := ValidateContact(ContactInfo{Phone: phone, Address: "Dhaka"})
		require.Error(t, err, "phone %q should be rejected", phone)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "phone", vErr.Field)
	}
}

func TestValidateContactRequiresBothFields(t *testing.T) {
	err := ValidateContact(ContactInfo{Phone: "", Address: "Dhaka"})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "phone", vErr.Field)

	err = ValidateContact(ContactInfo{Phone: "01712345678", Address: "   "})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "address", vErr.Field)
}
