package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/photovault/photovault-backend/internal/accounts"
	"github.com/photovault/photovault-backend/internal/ledger"
	"github.com/photovault/photovault-backend/internal/plans"
	dbpkg "github.com/photovault/photovault-backend/pkg/db"
	"github.com/photovault/photovault-backend/pkg/db/models"
	"github.com/photovault/photovault-backend/pkg/enums"
	pkgerrors "github.com/photovault/photovault-backend/pkg/errors"
	"github.com/photovault/photovault-backend/pkg/logger"
	"github.com/photovault/photovault-backend/pkg/metrics"
	"github.com/photovault/photovault-backend/pkg/outbox"
	"github.com/photovault/photovault-backend/pkg/outbox/payloads"
)

const (
	// ForfeitureThresholdMonths is how long a partner's commission right
	// survives without a payment before it is permanently cleared.
	ForfeitureThresholdMonths = 6

	// billingCycleMonths is the recurring billing cadence. An account is
	// considered delinquent after one full missed cycle.
	billingCycleMonths = 1
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// SessionEvent reports that a new photo session was recorded for a gallery.
type SessionEvent struct {
	GalleryID    uuid.UUID
	NewPartnerID uuid.UUID
	OccurredAt   time.Time
}

// CreateAccountInput opens a new billing lifecycle for a gallery.
type CreateAccountInput struct {
	GalleryID         uuid.UUID
	ClientID          uuid.UUID
	PlanID            string
	PartnerOfRecordID *uuid.UUID
}

// TransitionResult reports the outcome of a lifecycle command.
type TransitionResult struct {
	Account *models.BillingAccount
	Entries []models.LedgerEntry
}

// ServiceParams groups dependencies for the lifecycle engine.
type ServiceParams struct {
	DB       txRunner
	Logger   *logger.Logger
	Accounts accounts.Repository
	Plans    plans.Service
	Ledger   ledger.Service
	Outbox   outboxEmitter
	Metrics  *metrics.LifecycleMetrics
	Now      func() time.Time
}

// Service is the commission lifecycle state machine. Every command runs in a
// single transaction holding a row lock on the gallery's open account, so
// concurrent commands for one gallery serialize; a validation failure rolls
// the whole transition back.
type Service struct {
	db      txRunner
	logg    *logger.Logger
	repo    accounts.Repository
	plans   plans.Service
	ledger  ledger.Service
	outbox  outboxEmitter
	metrics *metrics.LifecycleMetrics
	now     func() time.Time
}

// NewService builds the lifecycle engine.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if params.Plans == nil {
		return nil, fmt.Errorf("plan service required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		db:      params.DB,
		logg:    params.Logger,
		repo:    params.Accounts,
		plans:   params.Plans,
		ledger:  params.Ledger,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

// CreateAccount opens a Pending billing account for a gallery. A lapsed open
// account may be superseded by a new lifecycle under a different plan; any
// other open account rejects the command.
func (s *Service) CreateAccount(ctx context.Context, input CreateAccountInput) (*models.BillingAccount, error) {
	if input.GalleryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gallery id is required")
	}
	if input.ClientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id is required")
	}
	plan, err := s.plans.FindPlanByID(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}

	account := &models.BillingAccount{
		ID:                uuid.New(),
		GalleryID:         input.GalleryID,
		ClientID:          input.ClientID,
		PlanID:            plan.ID,
		PartnerOfRecordID: input.PartnerOfRecordID,
		Status:            enums.AccountStatusPending,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		existing, err := s.repo.LockOpenByGalleryID(tx, input.GalleryID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Status != enums.AccountStatusLapsed {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("gallery already has an open %s billing account", existing.Status))
			}
			if existing.PlanID == plan.ID {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					"re-subscribing requires a different plan; record a payment to reactivate instead")
			}
			existing.SupersededBy = &account.ID
			if err := s.repo.UpdateWithTx(tx, existing); err != nil {
				return err
			}
		}
		if err := s.repo.CreateWithTx(tx, account); err != nil {
			// Two concurrent creates for a brand-new gallery both observe no
			// open account; the partial unique index breaks the tie.
			if dbpkg.IsUniqueViolation(err, "ux_billing_accounts_open_gallery") {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "gallery already has an open billing account")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithGalleryID(ctx, account.GalleryID.String())
	s.logg.Info(logCtx, "billing account created")
	return account, nil
}

// RecordUpfrontPayment applies a captured upfront payment. Valid from Pending
// (initial activation) and Lapsed (reactivation); the amount must equal the
// plan's upfront price exactly.
func (s *Service) RecordUpfrontPayment(ctx context.Context, galleryID uuid.UUID, amountCents int64, paidAt time.Time) (*TransitionResult, error) {
	return s.recordPayment(ctx, galleryID, amountCents, paidAt, true)
}

// RecordRecurringPayment applies a captured recurring payment. Valid from
// Active, Inactive (grace re-activation) and Lapsed (reactivation; with no
// partner of record the platform retains 100%). A plan without an upfront
// price also activates from Pending on its first recurring payment.
func (s *Service) RecordRecurringPayment(ctx context.Context, galleryID uuid.UUID, amountCents int64, paidAt time.Time) (*TransitionResult, error) {
	return s.recordPayment(ctx, galleryID, amountCents, paidAt, false)
}

func (s *Service) recordPayment(ctx context.Context, galleryID uuid.UUID, amountCents int64, paidAt time.Time, upfront bool) (*TransitionResult, error) {
	if galleryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gallery id is required")
	}
	if paidAt.IsZero() {
		paidAt = s.now().UTC()
	}

	var result *TransitionResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		account, err := s.repo.LockOpenByGalleryID(tx, galleryID)
		if err != nil {
			return err
		}
		if account == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "billing account not found")
		}
		plan, err := s.plans.FindPlanByID(ctx, account.PlanID)
		if err != nil {
			return err
		}

		// Time-based transitions observed as of the payment instant apply
		// first, so a payment arriving after the forfeiture threshold cannot
		// revive a commission right the sweep simply hadn't cleared yet.
		prev := account.Status
		s.advanceLocked(account, plan, paidAt)

		var price *int64
		var kind enums.LedgerEntryKind
		var splitPct int
		if upfront {
			price = plan.UpfrontPriceCents
			kind = enums.LedgerEntryKindUpfrontCommission
			splitPct = plan.UpfrontSplitPct
		} else {
			price = plan.RecurringPriceCents
			kind = enums.LedgerEntryKindRecurringCommission
			splitPct = plan.RecurringSplitPct
		}
		if price == nil {
			return pkgerrors.New(pkgerrors.CodePlanMismatch,
				fmt.Sprintf("plan %q does not define this charge", plan.ID))
		}
		if amountCents != *price {
			return pkgerrors.New(pkgerrors.CodePlanMismatch,
				fmt.Sprintf("amount %d does not equal plan price %d", amountCents, *price)).
				WithDetails(map[string]any{"expected_cents": *price, "submitted_cents": amountCents})
		}

		if err := s.validatePaymentState(account, plan, upfront); err != nil {
			return err
		}

		entries := s.buildEntries(account, kind, amountCents, splitPct, paidAt)
		if err := s.ledger.AppendBatch(ctx, tx, amountCents, entries); err != nil {
			return err
		}

		account.Status = enums.AccountStatusActive
		account.LastPaymentAt = &paidAt
		if upfront && plan.IsFixedTerm() {
			start := paidAt
			end := paidAt.AddDate(0, *plan.AccessDurationMonths, 0)
			account.PeriodStart = &start
			account.PeriodEnd = &end
		}
		if err := s.repo.UpdateWithTx(tx, account); err != nil {
			return err
		}

		if err := s.emitStatusChange(ctx, tx, account, prev, paidAt); err != nil {
			return err
		}
		if err := s.emitCommission(ctx, tx, account, plan.ID, kind, amountCents, entries, paidAt); err != nil {
			return err
		}

		s.observeTransition(prev, account.Status)
		s.observeCommissions(entries)
		result = &TransitionResult{Account: account, Entries: entries}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"gallery_id":   galleryID.String(),
		"amount_cents": amountCents,
		"status":       result.Account.Status,
	})
	s.logg.Info(logCtx, "payment recorded")
	return result, nil
}

func (s *Service) validatePaymentState(account *models.BillingAccount, plan *models.Plan, upfront bool) error {
	switch account.Status {
	case enums.AccountStatusPending:
		if upfront {
			return nil
		}
		if plan.HasUpfront() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				"account is pending; the upfront payment must be recorded first")
		}
		return nil
	case enums.AccountStatusLapsed:
		return nil
	case enums.AccountStatusActive, enums.AccountStatusInactive:
		if upfront {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("upfront payment not valid on an %s account", account.Status))
		}
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("payment not valid in status %q", account.Status))
}

func (s *Service) buildEntries(account *models.BillingAccount, kind enums.LedgerEntryKind, grossCents int64, splitPct int, paidAt time.Time) []models.LedgerEntry {
	period := PeriodLabel(paidAt)

	if account.PartnerOfRecordID == nil {
		// No partner of record: the platform retains the full amount.
		return []models.LedgerEntry{{
			GalleryID:   account.GalleryID,
			RecipientID: PlatformRecipientID,
			Kind:        enums.LedgerEntryKindPlatformRetained,
			AmountCents: grossCents,
			PeriodLabel: period,
			RecordedAt:  paidAt,
		}}
	}

	partnerCents, platformCents := Split(grossCents, splitPct)
	entries := make([]models.LedgerEntry, 0, 2)
	if partnerCents > 0 {
		entries = append(entries, models.LedgerEntry{
			GalleryID:   account.GalleryID,
			RecipientID: *account.PartnerOfRecordID,
			Kind:        kind,
			AmountCents: partnerCents,
			PeriodLabel: period,
			RecordedAt:  paidAt,
		})
	}
	if platformCents > 0 || partnerCents == 0 {
		entries = append(entries, models.LedgerEntry{
			GalleryID:   account.GalleryID,
			RecipientID: PlatformRecipientID,
			Kind:        enums.LedgerEntryKindPlatformRetained,
			AmountCents: platformCents,
			PeriodLabel: period,
			RecordedAt:  paidAt,
		})
	}
	return entries
}

// AdvanceClock applies time-based transitions for a gallery as of now. It is
// idempotent: running it twice with the same now leaves the account and
// ledger untouched the second time.
func (s *Service) AdvanceClock(ctx context.Context, galleryID uuid.UUID, now time.Time) (*TransitionResult, error) {
	if galleryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gallery id is required")
	}
	if now.IsZero() {
		now = s.now().UTC()
	}

	var result *TransitionResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		account, err := s.repo.LockOpenByGalleryID(tx, galleryID)
		if err != nil {
			return err
		}
		if account == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "billing account not found")
		}
		plan, err := s.plans.FindPlanByID(ctx, account.PlanID)
		if err != nil {
			return err
		}

		prev := account.Status
		prevPartner := account.PartnerOfRecordID
		s.advanceLocked(account, plan, now)

		if account.Status == prev && account.PartnerOfRecordID == prevPartner {
			result = &TransitionResult{Account: account}
			return nil
		}

		if err := s.repo.UpdateWithTx(tx, account); err != nil {
			return err
		}
		if err := s.emitStatusChange(ctx, tx, account, prev, now); err != nil {
			return err
		}
		s.observeTransition(prev, account.Status)
		result = &TransitionResult{Account: account}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// advanceLocked mutates the in-memory account through any time transitions
// due by now. No ledger entries are ever written for time transitions.
func (s *Service) advanceLocked(account *models.BillingAccount, plan *models.Plan, now time.Time) {
	if account.Status == enums.AccountStatusActive {
		if s.missedCycle(account, plan, now) {
			account.Status = enums.AccountStatusInactive
		}
	}
	if account.Status == enums.AccountStatusInactive {
		if s.pastForfeiture(account, plan, now) {
			account.Status = enums.AccountStatusLapsed
			account.PartnerOfRecordID = nil
		}
	}
}

func (s *Service) missedCycle(account *models.BillingAccount, plan *models.Plan, now time.Time) bool {
	if plan.IsFixedTerm() && !plan.RequiresOngoingPayment {
		return account.PeriodEnd != nil && now.After(*account.PeriodEnd)
	}
	if !plan.HasRecurring() {
		return false
	}
	if account.LastPaymentAt == nil {
		return false
	}
	return now.After(account.LastPaymentAt.AddDate(0, billingCycleMonths, 0))
}

func (s *Service) pastForfeiture(account *models.BillingAccount, plan *models.Plan, now time.Time) bool {
	// Fixed-term plans anchor forfeiture on the access period end; otherwise
	// the last payment alone would already exceed the threshold the moment a
	// long trial ends.
	anchor := account.LastPaymentAt
	if plan.IsFixedTerm() && !plan.RequiresOngoingPayment && account.PeriodEnd != nil {
		anchor = account.PeriodEnd
	}
	if anchor == nil {
		return false
	}
	return now.After(anchor.AddDate(0, ForfeitureThresholdMonths, 0))
}

// ApplySessionEvent reassigns the partner of record after a new photo session
// on a lapsed gallery. The account stays Lapsed; a payment is still required
// to resume billing, but once it arrives the new partner earns the share.
func (s *Service) ApplySessionEvent(ctx context.Context, event SessionEvent) (*TransitionResult, error) {
	if event.GalleryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gallery id is required")
	}
	if event.NewPartnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "new partner id is required")
	}
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now().UTC()
	}

	var result *TransitionResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		account, err := s.repo.LockOpenByGalleryID(tx, event.GalleryID)
		if err != nil {
			return err
		}
		if account == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "billing account not found")
		}
		if account.Status != enums.AccountStatusLapsed {
			// A session on an account that still has a partner of record is a
			// caller bug; rejecting it beats masking it.
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("session reset only applies to lapsed accounts, not %s", account.Status))
		}

		oldPartner := account.PartnerOfRecordID
		newPartner := event.NewPartnerID
		account.PartnerOfRecordID = &newPartner
		if err := s.repo.UpdateWithTx(tx, account); err != nil {
			return err
		}

		if s.outbox != nil {
			err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPartnerReassigned,
				AggregateType: enums.AggregateBillingAccount,
				AggregateID:   account.ID,
				Data: payloads.PartnerReassignedEvent{
					AccountID:    account.ID,
					GalleryID:    account.GalleryID,
					NewPartnerID: newPartner,
					OldPartnerID: oldPartner,
					OccurredAt:   occurredAt,
				},
				Version:    1,
				OccurredAt: occurredAt,
			})
			if err != nil {
				return err
			}
		}

		result = &TransitionResult{Account: account}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"gallery_id": event.GalleryID.String(),
		"partner_id": event.NewPartnerID.String(),
	})
	s.logg.Info(logCtx, "partner of record reassigned")
	return result, nil
}

// GetAccount returns the gallery's open billing account.
func (s *Service) GetAccount(ctx context.Context, galleryID uuid.UUID) (*models.BillingAccount, error) {
	if galleryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gallery id is required")
	}
	account, err := s.repo.FindOpenByGalleryID(ctx, galleryID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "billing account not found")
	}
	return account, nil
}

func (s *Service) emitStatusChange(ctx context.Context, tx *gorm.DB, account *models.BillingAccount, prev enums.AccountStatus, at time.Time) error {
	if s.outbox == nil || account.Status == prev {
		return nil
	}
	eventType := enums.EventAccountActivated
	switch account.Status {
	case enums.AccountStatusInactive:
		eventType = enums.EventAccountInactive
	case enums.AccountStatusLapsed:
		eventType = enums.EventAccountLapsed
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateBillingAccount,
		AggregateID:   account.ID,
		Data: payloads.AccountStatusChangedEvent{
			AccountID:         account.ID,
			GalleryID:         account.GalleryID,
			PlanID:            account.PlanID,
			PreviousStatus:    prev,
			Status:            account.Status,
			PartnerOfRecordID: account.PartnerOfRecordID,
			OccurredAt:        at,
		},
		Version:    1,
		OccurredAt: at,
	})
}

func (s *Service) emitCommission(ctx context.Context, tx *gorm.DB, account *models.BillingAccount, planID string, kind enums.LedgerEntryKind, grossCents int64, entries []models.LedgerEntry, at time.Time) error {
	if s.outbox == nil {
		return nil
	}
	var partnerCents int64
	for _, entry := range entries {
		if entry.Kind.IsCommission() {
			partnerCents += entry.AmountCents
		}
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventCommissionRecorded,
		AggregateType: enums.AggregateBillingAccount,
		AggregateID:   account.ID,
		Data: payloads.CommissionRecordedEvent{
			GalleryID:    account.GalleryID,
			PlanID:       planID,
			Kind:         kind,
			GrossCents:   grossCents,
			PartnerCents: partnerCents,
			PartnerID:    account.PartnerOfRecordID,
			PeriodLabel:  PeriodLabel(at),
			RecordedAt:   at,
		},
		Version:    1,
		OccurredAt: at,
	})
}

func (s *Service) observeTransition(from, to enums.AccountStatus) {
	if s.metrics == nil || from == to {
		return
	}
	s.metrics.IncTransition(string(from), string(to))
}

func (s *Service) observeCommissions(entries []models.LedgerEntry) {
	if s.metrics == nil {
		return
	}
	for _, entry := range entries {
		s.metrics.AddCommission(string(entry.Kind), entry.AmountCents)
	}
}
