package checkout

import (
	"regexp"
	"strings"
)

// ContactInfo is the delivery contact a customer fills in during
// checkout. It is transient: only the resulting order records keep it.
type ContactInfo struct {
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Bangladeshi mobile numbers: optional 88 country code, operator prefix
// 01, then an operator digit 3-9 and eight more digits.
var phonePattern = regexp.MustCompile(`^(\+?88)?01[3-9][0-9]{8}$`)

// ValidateContact checks the delivery details before any order request
// is issued.
func ValidateContact(info ContactInfo) error {
	phone := strings.TrimSpace(info.Phone)
	address := strings.TrimSpace(info.Address)

	if phone == "" {
		return &ValidationError{Field: "phone", Message: "phone is required"}
	}
	if address == "" {
		return &ValidationError{Field: "address", Message: "address is required"}
	}
	if !phonePattern.MatchString(phone) {
		return &ValidationError{Field: "phone", Message: "invalid mobile number"}
	}
	return nil
}
