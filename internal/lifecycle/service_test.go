package lifecycle

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/photovault/photovault-backend/internal/ledger"
	"github.com/photovault/photovault-backend/pkg/db/models"
	"github.com/photovault/photovault-backend/pkg/enums"
	pkgerrors "github.com/photovault/photovault-backend/pkg/errors"
	"github.com/photovault/photovault-backend/pkg/logger"
	"github.com/photovault/photovault-backend/pkg/outbox"
	"github.com/photovault/photovault-backend/pkg/pagination"
)

type fakeTxRunner struct{}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

// serialTxRunner stands in for the row lock the real repository takes: two
// transactions for the same gallery never overlap, whichever wins the lock
// runs first in full.
type serialTxRunner struct {
	mu sync.Mutex
}

func (s *serialTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&gorm.DB{})
}

type fakeAccountRepo struct {
	account  *models.BillingAccount
	lockErr  error
	sweepOut []models.BillingAccount
}

func (f *fakeAccountRepo) CreateWithTx(tx *gorm.DB, account *models.BillingAccount) error {
	clone := *account
	f.account = &clone
	return nil
}

func (f *fakeAccountRepo) FindOpenByGalleryID(ctx context.Context, galleryID uuid.UUID) (*models.BillingAccount, error) {
	return f.snapshot(galleryID), nil
}

func (f *fakeAccountRepo) LockOpenByGalleryID(tx *gorm.DB, galleryID uuid.UUID) (*models.BillingAccount, error) {
	if f.lockErr != nil {
		return nil, f.lockErr
	}
	return f.snapshot(galleryID), nil
}

func (f *fakeAccountRepo) snapshot(galleryID uuid.UUID) *models.BillingAccount {
	if f.account == nil || f.account.GalleryID != galleryID || f.account.SupersededBy != nil {
		return nil
	}
	clone := *f.account
	return &clone
}

func (f *fakeAccountRepo) UpdateWithTx(tx *gorm.DB, account *models.BillingAccount) error {
	if f.account != nil && f.account.ID == account.ID {
		clone := *account
		f.account = &clone
	}
	return nil
}

func (f *fakeAccountRepo) ListSweepCandidates(ctx context.Context, staleBefore, now time.Time, limit int) ([]models.BillingAccount, error) {
	return f.sweepOut, nil
}

type fakePlanService struct {
	plans map[string]*models.Plan
}

func (f *fakePlanService) FindPlanByID(ctx context.Context, id string) (*models.Plan, error) {
	plan, ok := f.plans[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	return plan, nil
}

func (f *fakePlanService) ListPlans(ctx context.Context, status *enums.PlanStatus) ([]models.Plan, error) {
	var out []models.Plan
	for _, plan := range f.plans {
		out = append(out, *plan)
	}
	return out, nil
}

// fakeLedgerRepo backs the real ledger service so the conservation check runs
// on every batch the engine writes.
type fakeLedgerRepo struct {
	entries []models.LedgerEntry
}

func (f *fakeLedgerRepo) CreateBatchWithTx(tx *gorm.DB, entries []models.LedgerEntry) error {
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *fakeLedgerRepo) ListByGalleryAndPeriod(ctx context.Context, galleryID uuid.UUID, periodLabel string) ([]models.LedgerEntry, error) {
	return nil, nil
}

func (f *fakeLedgerRepo) ListByGallery(ctx context.Context, galleryID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, error) {
	return nil, nil
}

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEmitter) eventTypes() []enums.OutboxEventType {
	var types []enums.OutboxEventType
	for _, e := range f.events {
		types = append(types, e.EventType)
	}
	return types
}

type engineFixture struct {
	svc     *Service
	repo    *fakeAccountRepo
	ledger  *fakeLedgerRepo
	emitter *fakeEmitter
}

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

func standardPlan() *models.Plan {
	return &models.Plan{
		ID:                     "standard",
		Name:                   "Standard",
		Status:                 enums.PlanStatusActive,
		UpfrontPriceCents:      int64Ptr(10000),
		UpfrontSplitPct:        50,
		RecurringPriceCents:    int64Ptr(800),
		RecurringSplitPct:      50,
		RequiresOngoingPayment: true,
	}
}

func monthlyPlan() *models.Plan {
	return &models.Plan{
		ID:                     "monthly",
		Name:                   "Monthly",
		Status:                 enums.PlanStatusActive,
		RecurringPriceCents:    int64Ptr(800),
		RecurringSplitPct:      50,
		RequiresOngoingPayment: true,
	}
}

func trialPlan() *models.Plan {
	return &models.Plan{
		ID:                   "trial-12mo",
		Name:                 "12 Month Trial",
		Status:               enums.PlanStatusActive,
		UpfrontPriceCents:    int64Ptr(5000),
		UpfrontSplitPct:      50,
		AccessDurationMonths: intPtr(12),
	}
}

func newEngine(t *testing.T, planList ...*models.Plan) *engineFixture {
	t.Helper()
	return newEngineWith(t, &fakeTxRunner{}, planList...)
}

func newEngineWith(t *testing.T, runner txRunner, planList ...*models.Plan) *engineFixture {
	t.Helper()
	planMap := map[string]*models.Plan{}
	for _, p := range planList {
		planMap[p.ID] = p
	}
	ledgerRepo := &fakeLedgerRepo{}
	ledgerSvc, err := ledger.NewService(ledgerRepo)
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}
	repo := &fakeAccountRepo{}
	emitter := &fakeEmitter{}
	svc, err := NewService(ServiceParams{
		DB:       runner,
		Logger:   logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard}),
		Accounts: repo,
		Plans:    &fakePlanService{plans: planMap},
		Ledger:   ledgerSvc,
		Outbox:   emitter,
	})
	if err != nil {
		t.Fatalf("lifecycle service: %v", err)
	}
	return &engineFixture{svc: svc, repo: repo, ledger: ledgerRepo, emitter: emitter}
}

func (f *engineFixture) create(t *testing.T, planID string, partner *uuid.UUID) *models.BillingAccount {
	t.Helper()
	account, err := f.svc.CreateAccount(context.Background(), CreateAccountInput{
		GalleryID:         uuid.New(),
		ClientID:          uuid.New(),
		PlanID:            planID,
		PartnerOfRecordID: partner,
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return account
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != code {
		t.Fatalf("expected code %s, got %v", code, err)
	}
}

func TestStandardPlanHappyPath(t *testing.T) {
	f := newEngine(t, standardPlan())
	partner := uuid.New()
	account := f.create(t, "standard", &partner)

	if account.Status != enums.AccountStatusPending {
		t.Fatalf("new account status = %s, want pending", account.Status)
	}

	paidAt := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	result, err := f.svc.RecordUpfrontPayment(context.Background(), account.GalleryID, 10000, paidAt)
	if err != nil {
		t.Fatalf("RecordUpfrontPayment: %v", err)
	}
	if result.Account.Status != enums.AccountStatusActive {
		t.Fatalf("status after upfront = %s, want active", result.Account.Status)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result.Entries))
	}
	if result.Entries[0].RecipientID != partner || result.Entries[0].AmountCents != 5000 {
		t.Fatalf("unexpected partner entry: %+v", result.Entries[0])
	}
	if result.Entries[0].Kind != enums.LedgerEntryKindUpfrontCommission {
		t.Fatalf("partner entry kind = %s", result.Entries[0].Kind)
	}
	if result.Entries[1].RecipientID != PlatformRecipientID || result.Entries[1].AmountCents != 5000 {
		t.Fatalf("unexpected platform entry: %+v", result.Entries[1])
	}
	if result.Entries[0].PeriodLabel != "2026-01" {
		t.Fatalf("period label = %s", result.Entries[0].PeriodLabel)
	}

	// First recurring cycle.
	recurAt := paidAt.AddDate(0, 1, -2)
	result, err = f.svc.RecordRecurringPayment(context.Background(), account.GalleryID, 800, recurAt)
	if err != nil {
		t.Fatalf("RecordRecurringPayment: %v", err)
	}
	if result.Entries[0].AmountCents != 400 || result.Entries[1].AmountCents != 400 {
		t.Fatalf("recurring split wrong: %+v", result.Entries)
	}
	if result.Entries[0].Kind != enums.LedgerEntryKindRecurringCommission {
		t.Fatalf("recurring entry kind = %s", result.Entries[0].Kind)
	}

	var total int64
	for _, e := range f.ledger.entries {
		total += e.AmountCents
	}
	if total != 10800 {
		t.Fatalf("ledger total %d, want 10800", total)
	}
}

func TestMissedCycleThenGracePayment(t *testing.T) {
	f := newEngine(t, standardPlan())
	partner := uuid.New()
	account := f.create(t, "standard", &partner)

	paidAt := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	if _, err := f.svc.RecordUpfrontPayment(context.Background(), account.GalleryID, 10000, paidAt); err != nil {
		t.Fatalf("upfront: %v", err)
	}

	// One missed cycle turns the account inactive, with no ledger writes.
	before := len(f.ledger.entries)
	result, err := f.svc.AdvanceClock(context.Background(), account.GalleryID, paidAt.AddDate(0, 1, 5))
	if err != nil {
		t.Fatalf("AdvanceClock: %v", err)
	}
	if result.Account.Status != enums.AccountStatusInactive {
		t.Fatalf("status = %s, want inactive", result.Account.Status)
	}
	if len(f.ledger.entries) != before {
		t.Fatal("time transition must not write ledger entries")
	}
	if result.Account.PartnerOfRecordID == nil {
		t.Fatal("inactive must keep the partner of record")
	}

	// A recurring payment during grace restores active and pays commission.
	payResult, err := f.svc.RecordRecurringPayment(context.Background(), account.GalleryID, 800, paidAt.AddDate(0, 2, 0))
	if err != nil {
		t.Fatalf("grace payment: %v", err)
	}
	if payResult.Account.Status != enums.AccountStatusActive {
		t.Fatalf("status = %s, want active", payResult.Account.Status)
	}
	if payResult.Entries[0].RecipientID != partner {
		t.Fatal("grace payment should still pay the partner of record")
	}
}

func TestAdvanceClockTraversesToLapsed(t *testing.T) {
	f := newEngine(t, standardPlan())
	partner := uuid.New()
	account := f.create(t, "standard", &partner)

	paidAt := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	if _, err := f.svc.RecordUpfrontPayment(context.Background(), account.GalleryID, 10000, paidAt); err != nil {
		t.Fatalf("upfront: %v", err)
	}

	// Eight months with no payment: active -> inactive -> lapsed in one call,
	// and the commission right is forfeited.
	result, err := f.svc.AdvanceClock(context.Background(), account.GalleryID, paidAt.AddDate(0, 8, 0))
	if err != nil {
		t.Fatalf("AdvanceClock: %v", err)
	}
	if result.Account.Status != enums.AccountStatusLapsed {
		t.Fatalf("status = %s, want lapsed", result.Account.Status)
	}
	if result.Account.PartnerOfRecordID != nil {
		t.Fatal("lapse must clear the partner of record")
	}

	// Lapsing is permanent for the partner: a later payment pays the platform
	// in full.
	payResult, err := f.svc.RecordRecurringPayment(context.Background(), account.GalleryID, 800, paidAt.AddDate(0, 9, 0))
	if err != nil {
		t.Fatalf("reactivation payment: %v", err)
	}
	if payResult.Account.Status != enums.AccountStatusActive {
		t.Fatalf("status = %s, want active", payResult.Account.Status)
	}
	if len(payResult.Entries) != 1 {
		t.Fatalf("expected single platform entry, got %d", len(payResult.Entries))
	}
	e := payResult.Entries[0]
	if e.RecipientID != PlatformRecipientID || e.AmountCents != 800 || e.Kind != enums.LedgerEntryKindPlatformRetained {
		t.Fatalf("unexpected reactivation entry: %+v", e)
	}
}

func TestAdvanceClockIdempotent(t *testing.T) {
	f := newEngine(t, standardPlan())
	partner := uuid.New()
	account := f.create(t, "standard", &partner)

	paidAt := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	if _, err := f.svc.RecordUpfrontPayment(context.Background(), account.GalleryID, 10000, paidAt); err != nil {
		t.Fatalf("upfront: %v", err)
	}

	now := paidAt.AddDate(0, 8, 0)
	if _, err := f.svc.AdvanceClock(context.Background(), account.GalleryID, now); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	eventsAfterFirst := len(f.emitter.events)

	result, err := f.svc.AdvanceClock(context.Background(), account.GalleryID, now)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if result.Account.Status != enums.AccountStatusLapsed {
		t.Fatalf("status = %s, want lapsed", result.Account.Status)
	}
	if len(f.emitter.events) != eventsAfterFirst {
		t.Fatal("repeated sweep must not emit new events")
	}
}

func TestConcurrentPaymentAndSweepSerialize(t *testing.T) {
	f := newEngineWith(t, &serialTxRunner{}, standardPlan())
	partner := uuid.New()
	account := f.create(t, "standard", &partner)

	paidAt := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	if _, err := f.svc.RecordUpfrontPayment(context.Background(), account.GalleryID, 10000, paidAt); err != nil {
		t.Fatalf("upfront: %v", err)
	}
	upfrontEntries := len(f.ledger.entries)

	// A recurring payment and a clock sweep land at the same instant, two
	// months after the last payment. Whichever transaction runs first, the
	// other observes its writes: sweep-first delinquency is cured by the
	// payment, payment-first leaves the sweep nothing to transition. A lost
	// update would leave the account inactive despite the payment.
	now := paidAt.AddDate(0, 2, 0)
	start := make(chan struct{})
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		_, err := f.svc.RecordRecurringPayment(context.Background(), account.GalleryID, 800, now)
		errs <- err
	}()
	go func() {
		defer wg.Done()
		<-start
		_, err := f.svc.AdvanceClock(context.Background(), account.GalleryID, now)
		errs <- err
	}()
	close(start)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent command: %v", err)
		}
	}

	final := f.repo.account
	if final.Status != enums.AccountStatusActive {
		t.Fatalf("final status = %s, want active", final.Status)
	}
	if final.LastPaymentAt == nil || !final.LastPaymentAt.Equal(now) {
		t.Fatalf("last payment at = %v, want %v", final.LastPaymentAt, now)
	}

	written := f.ledger.entries[upfrontEntries:]
	if len(written) != 2 {
		t.Fatalf("expected exactly one conserving payment batch, got %d entries", len(written))
	}
	var total int64
	for _, entry := range written {
		total += entry.AmountCents
	}
	if total != 800 {
		t.Fatalf("payment batch sums to %d, want 800", total)
	}
	if written[0].RecipientID != partner || written[0].AmountCents != 400 {
		t.Fatalf("partner entry wrong: %+v", written[0])
	}
}

func TestPaymentPastThresholdForfeitsFirst(t *testing.T) {
	f := newEngine(t, standardPlan())
	partner := uuid.New()
	account := f.create(t, "standard", &partner)

	paidAt := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	if _, err := f.svc.RecordUpfrontPayment(context.Background(), account.GalleryID, 10000, paidAt); err != nil {
		t.Fatalf("upfront: %v", err)
	}

	// No sweep ever ran, but the payment arrives eight months later: the
	// engine applies the lapse as of the payment instant before splitting, so
	// the old partner cannot collect on a forfeited account.
	result, err := f.svc.RecordRecurringPayment(context.Background(), account.GalleryID, 800, paidAt.AddDate(0, 8, 0))
	if err != nil {
		t.Fatalf("late payment: %v", err)
	}
	if len(result.Entries) != 1 || result.Entries[0].RecipientID != PlatformRecipientID {
		t.Fatalf("late payment must be fully platform retained: %+v", result.Entries)
	}
	if result.Account.PartnerOfRecordID != nil {
		t.Fatal("partner of record must stay cleared")
	}
}

func TestSessionEventReassignsPartner(t *testing.T) {
	f := newEngine(t, standardPlan())
	oldPartner := uuid.New()
	account := f.create(t, "standard", &oldPartner)

	paidAt := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	if _, err := f.svc.RecordUpfrontPayment(context.Background(), account.GalleryID, 10000, paidAt); err != nil {
		t.Fatalf("upfront: %v", err)
	}
	if _, err := f.svc.AdvanceClock(context.Background(), account.GalleryID, paidAt.AddDate(0, 8, 0)); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	newPartner := uuid.New()
	result, err := f.svc.ApplySessionEvent(context.Background(), SessionEvent{
		GalleryID:    account.GalleryID,
		NewPartnerID: newPartner,
		OccurredAt:   paidAt.AddDate(0, 9, 0),
	})
	if err != nil {
		t.Fatalf("ApplySessionEvent: %v", err)
	}
	if result.Account.Status != enums.AccountStatusLapsed {
		t.Fatalf("session event must not change status, got %s", result.Account.Status)
	}
	if result.Account.PartnerOfRecordID == nil || *result.Account.PartnerOfRecordID != newPartner {
		t.Fatal("partner of record not reassigned")
	}

	// A fresh upfront payment under the same plan credits the new partner,
	// not the original one.
	upfrontResult, err := f.svc.RecordUpfrontPayment(context.Background(), account.GalleryID, 10000, paidAt.AddDate(0, 9, 1))
	if err != nil {
		t.Fatalf("upfront after reassignment: %v", err)
	}
	if upfrontResult.Account.Status != enums.AccountStatusActive {
		t.Fatalf("status after reactivating upfront = %s, want active", upfrontResult.Account.Status)
	}
	if upfrontResult.Entries[0].RecipientID != newPartner || upfrontResult.Entries[0].AmountCents != 5000 {
		t.Fatalf("new partner upfront entry wrong: %+v", upfrontResult.Entries[0])
	}
	if upfrontResult.Entries[0].Kind != enums.LedgerEntryKindUpfrontCommission {
		t.Fatalf("upfront entry kind = %s", upfrontResult.Entries[0].Kind)
	}

	// Subsequent recurring payments follow the new partner too.
	payResult, err := f.svc.RecordRecurringPayment(context.Background(), account.GalleryID, 800, paidAt.AddDate(0, 9, 2))
	if err != nil {
		t.Fatalf("payment after reassignment: %v", err)
	}
	if payResult.Entries[0].RecipientID != newPartner || payResult.Entries[0].AmountCents != 400 {
		t.Fatalf("new partner entry wrong: %+v", payResult.Entries[0])
	}
}

func TestSessionEventRejectedUnlessLapsed(t *testing.T) {
	f := newEngine(t, standardPlan())
	partner := uuid.New()
	account := f.create(t, "standard", &partner)

	paidAt := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	if _, err := f.svc.RecordUpfrontPayment(context.Background(), account.GalleryID, 10000, paidAt); err != nil {
		t.Fatalf("upfront: %v", err)
	}

	_, err := f.svc.ApplySessionEvent(context.Background(), SessionEvent{
		GalleryID:    account.GalleryID,
		NewPartnerID: uuid.New(),
	})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestNilPartnerPaysPlatformInFull(t *testing.T) {
	f := newEngine(t, standardPlan())
	account := f.create(t, "standard", nil)

	paidAt := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	result, err := f.svc.RecordUpfrontPayment(context.Background(), account.GalleryID, 10000, paidAt)
	if err != nil {
		t.Fatalf("upfront: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("expected single entry, got %d", len(result.Entries))
	}
	e := result.Entries[0]
	if e.RecipientID != PlatformRecipientID || e.AmountCents != 10000 || e.Kind != enums.LedgerEntryKindPlatformRetained {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestPlanMismatchRejectsWrongAmount(t *testing.T) {
	f := newEngine(t, standardPlan())
	partner := uuid.New()
	account := f.create(t, "standard", &partner)

	_, err := f.svc.RecordUpfrontPayment(context.Background(), account.GalleryID, 9999, time.Now().UTC())
	requireCode(t, err, pkgerrors.CodePlanMismatch)
	if len(f.ledger.entries) != 0 {
		t.Fatal("rejected payment must not write ledger entries")
	}
	if f.repo.account.Status != enums.AccountStatusPending {
		t.Fatalf("rejected payment must not change status, got %s", f.repo.account.Status)
	}
}

func TestPlanMismatchRejectsMissingCharge(t *testing.T) {
	f := newEngine(t, monthlyPlan())
	partner := uuid.New()
	account := f.create(t, "monthly", &partner)

	_, err := f.svc.RecordUpfrontPayment(context.Background(), account.GalleryID, 800, time.Now().UTC())
	requireCode(t, err, pkgerrors.CodePlanMismatch)
}

func TestRecurringOnPendingUpfrontPlanConflicts(t *testing.T) {
	f := newEngine(t, standardPlan())
	partner := uuid.New()
	account := f.create(t, "standard", &partner)

	_, err := f.svc.RecordRecurringPayment(context.Background(), account.GalleryID, 800, time.Now().UTC())
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestRecurringOnlyPlanActivatesFromPending(t *testing.T) {
	f := newEngine(t, monthlyPlan())
	partner := uuid.New()
	account := f.create(t, "monthly", &partner)

	paidAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	result, err := f.svc.RecordRecurringPayment(context.Background(), account.GalleryID, 800, paidAt)
	if err != nil {
		t.Fatalf("first recurring payment: %v", err)
	}
	if result.Account.Status != enums.AccountStatusActive {
		t.Fatalf("status = %s, want active", result.Account.Status)
	}
}

func TestUpfrontOnActiveConflicts(t *testing.T) {
	f := newEngine(t, standardPlan())
	partner := uuid.New()
	account := f.create(t, "standard", &partner)

	paidAt := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	if _, err := f.svc.RecordUpfrontPayment(context.Background(), account.GalleryID, 10000, paidAt); err != nil {
		t.Fatalf("upfront: %v", err)
	}

	_, err := f.svc.RecordUpfrontPayment(context.Background(), account.GalleryID, 10000, paidAt.AddDate(0, 0, 1))
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestFixedTermPlanLapsesFromPeriodEnd(t *testing.T) {
	f := newEngine(t, trialPlan())
	partner := uuid.New()
	account := f.create(t, "trial-12mo", &partner)

	paidAt := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	result, err := f.svc.RecordUpfrontPayment(context.Background(), account.GalleryID, 5000, paidAt)
	if err != nil {
		t.Fatalf("upfront: %v", err)
	}
	if result.Account.PeriodEnd == nil || !result.Account.PeriodEnd.Equal(paidAt.AddDate(0, 12, 0)) {
		t.Fatalf("period end = %v, want 12 months out", result.Account.PeriodEnd)
	}

	// Mid-term: nothing to do even though months have passed with no payment.
	midTerm, err := f.svc.AdvanceClock(context.Background(), account.GalleryID, paidAt.AddDate(0, 7, 0))
	if err != nil {
		t.Fatalf("mid-term sweep: %v", err)
	}
	if midTerm.Account.Status != enums.AccountStatusActive {
		t.Fatalf("mid-term status = %s, want active", midTerm.Account.Status)
	}

	// Past the access period: inactive, partner retained while forfeiture is
	// measured from the period end.
	ended, err := f.svc.AdvanceClock(context.Background(), account.GalleryID, paidAt.AddDate(0, 13, 0))
	if err != nil {
		t.Fatalf("post-term sweep: %v", err)
	}
	if ended.Account.Status != enums.AccountStatusInactive {
		t.Fatalf("post-term status = %s, want inactive", ended.Account.Status)
	}
	if ended.Account.PartnerOfRecordID == nil {
		t.Fatal("partner must survive the grace window after the term ends")
	}

	// Six months past the period end the commission right lapses.
	lapsed, err := f.svc.AdvanceClock(context.Background(), account.GalleryID, paidAt.AddDate(0, 19, 0))
	if err != nil {
		t.Fatalf("forfeiture sweep: %v", err)
	}
	if lapsed.Account.Status != enums.AccountStatusLapsed || lapsed.Account.PartnerOfRecordID != nil {
		t.Fatalf("expected lapsed with cleared partner, got %s", lapsed.Account.Status)
	}
}

func TestCreateAccountRejectsSecondOpenLifecycle(t *testing.T) {
	f := newEngine(t, standardPlan(), monthlyPlan())
	partner := uuid.New()
	account := f.create(t, "standard", &partner)

	_, err := f.svc.CreateAccount(context.Background(), CreateAccountInput{
		GalleryID: account.GalleryID,
		ClientID:  account.ClientID,
		PlanID:    "monthly",
	})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestCreateAccountSupersedesLapsed(t *testing.T) {
	f := newEngine(t, standardPlan(), monthlyPlan())
	partner := uuid.New()
	account := f.create(t, "standard", &partner)

	paidAt := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	if _, err := f.svc.RecordUpfrontPayment(context.Background(), account.GalleryID, 10000, paidAt); err != nil {
		t.Fatalf("upfront: %v", err)
	}
	if _, err := f.svc.AdvanceClock(context.Background(), account.GalleryID, paidAt.AddDate(0, 8, 0)); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	replacement, err := f.svc.CreateAccount(context.Background(), CreateAccountInput{
		GalleryID: account.GalleryID,
		ClientID:  account.ClientID,
		PlanID:    "monthly",
	})
	if err != nil {
		t.Fatalf("CreateAccount over lapsed: %v", err)
	}
	if replacement.Status != enums.AccountStatusPending {
		t.Fatalf("replacement status = %s, want pending", replacement.Status)
	}
	if replacement.ID == account.ID {
		t.Fatal("replacement must be a new lifecycle")
	}
}

func TestUnknownGalleryNotFound(t *testing.T) {
	f := newEngine(t, standardPlan())

	_, err := f.svc.RecordUpfrontPayment(context.Background(), uuid.New(), 10000, time.Now().UTC())
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.AdvanceClock(context.Background(), uuid.New(), time.Now().UTC())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestOutboxEventsEmitted(t *testing.T) {
	f := newEngine(t, standardPlan())
	partner := uuid.New()
	account := f.create(t, "standard", &partner)

	paidAt := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	if _, err := f.svc.RecordUpfrontPayment(context.Background(), account.GalleryID, 10000, paidAt); err != nil {
		t.Fatalf("upfront: %v", err)
	}

	types := f.emitter.eventTypes()
	if len(types) != 2 {
		t.Fatalf("expected activation + commission events, got %v", types)
	}
	if types[0] != enums.EventAccountActivated || types[1] != enums.EventCommissionRecorded {
		t.Fatalf("unexpected event types: %v", types)
	}

	if _, err := f.svc.AdvanceClock(context.Background(), account.GalleryID, paidAt.AddDate(0, 8, 0)); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	types = f.emitter.eventTypes()
	if types[len(types)-1] != enums.EventAccountLapsed {
		t.Fatalf("expected lapse event last, got %v", types)
	}
}
