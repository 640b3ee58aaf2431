package enums

import "fmt"

// AccountEntryType classifies manual merchant account entries created by staff.
type AccountEntryType string

const (
	AccountEntryTypeSettlement AccountEntryType = "settlement"
	AccountEntryTypeTopup      AccountEntryType = "topup"
)

var validAccountEntryTypes = []AccountEntryType{
	AccountEntryTypeSettlement,
	AccountEntryTypeTopup,
}

// IsValid reports whether the value matches the canonical account entry type enum.
func (a AccountEntryType) IsValid() bool {
	for _, candidate := range validAccountEntryTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAccountEntryType converts the raw string to AccountEntryType.
func ParseAccountEntryType(value string) (AccountEntryType, error) {
	for _, candidate := range validAccountEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account entry type %q", value)
}
