package enums

import "fmt"

// LedgerEntryKind maps to the ledger_entry_kind_enum enum in Postgres.
type LedgerEntryKind string

const (
	LedgerEntryKindUpfrontCommission   LedgerEntryKind = "upfront_commission"
	LedgerEntryKindRecurringCommission LedgerEntryKind = "recurring_commission"
	LedgerEntryKindPlatformRetained    LedgerEntryKind = "platform_retained"
)

var validLedgerEntryKinds = []LedgerEntryKind{
	LedgerEntryKindUpfrontCommission,
	LedgerEntryKindRecurringCommission,
	LedgerEntryKindPlatformRetained,
}

// IsValid reports whether the value matches the canonical ledger entry enum.
func (k LedgerEntryKind) IsValid() bool {
	for _, candidate := range validLedgerEntryKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// IsCommission reports whether the entry kind credits a partner share.
func (k LedgerEntryKind) IsCommission() bool {
	return k == LedgerEntryKindUpfrontCommission || k == LedgerEntryKindRecurringCommission
}

// ParseLedgerEntryKind converts raw input into LedgerEntryKind.
func ParseLedgerEntryKind(value string) (LedgerEntryKind, error) {
	for _, candidate := range validLedgerEntryKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry kind %q", value)
}
