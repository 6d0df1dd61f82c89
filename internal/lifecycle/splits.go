package lifecycle

import (
	"time"

	"github.com/google/uuid"
)

// PlatformRecipientID is the well-known ledger recipient for the platform's
// retained share.
var PlatformRecipientID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Split divides a gross amount between partner and platform. The partner
// share is floored to the nearest cent; any residual cent from rounding goes
// to the platform so the two shares always sum to the gross exactly.
func Split(grossCents int64, partnerPct int) (partnerCents, platformCents int64) {
	if grossCents <= 0 || partnerPct <= 0 {
		return 0, grossCents
	}
	if partnerPct >= 100 {
		return grossCents, 0
	}
	partnerCents = grossCents * int64(partnerPct) / 100
	platformCents = grossCents - partnerCents
	return partnerCents, platformCents
}

// PeriodLabel renders the billing period a payment belongs to, e.g. "2025-03".
func PeriodLabel(t time.Time) string {
	return t.UTC().Format("2006-01")
}
