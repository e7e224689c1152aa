package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"messmate/internal/domain"
	"messmate/internal/models"
	"messmate/pkg/bkash"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakePaymentStore struct {
	nextID   uint
	payments map[uint]*models.Payment
	gateways map[string]*models.GatewayPayment
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{
		payments: make(map[uint]*models.Payment),
		gateways: make(map[string]*models.GatewayPayment),
	}
}

func (f *fakePaymentStore) Create(p *models.Payment) error {
	f.nextID++
	p.ID = f.nextID
	p.CreatedAt = time.Now()
	cp := *p
	f.payments[p.ID] = &cp
	return nil
}

func (f *fakePaymentStore) GetByID(id uint) (*models.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePaymentStore) MarkCompleted(id uint, description string) (bool, error) {
	p, ok := f.payments[id]
	if !ok || p.Status != domain.PaymentPending {
		return false, nil
	}
	now := time.Now()
	p.Status = domain.PaymentCompleted
	p.CompletedAt = &now
	p.Description = description
	return true, nil
}

func (f *fakePaymentStore) MarkFailed(id uint, description string) (bool, error) {
	p, ok := f.payments[id]
	if !ok || p.Status != domain.PaymentPending {
		return false, nil
	}
	p.Status = domain.PaymentFailed
	p.Description = description
	return true, nil
}

func (f *fakePaymentStore) ListByRoom(roomID uint, start, end time.Time) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range f.payments {
		if p.RoomID == roomID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePaymentStore) ListOrphans(olderThan time.Time) ([]models.Payment, error) {
	mirrored := make(map[uint]bool)
	for _, gp := range f.gateways {
		mirrored[gp.PaymentID] = true
	}
	var out []models.Payment
	for _, p := range f.payments {
		if p.Status == domain.PaymentPending && !mirrored[p.ID] && p.CreatedAt.Before(olderThan) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePaymentStore) CreateGatewayPayment(gp *models.GatewayPayment) error {
	cp := *gp
	f.gateways[gp.GatewayPaymentID] = &cp
	return nil
}

func (f *fakePaymentStore) GetGatewayPayment(gatewayPaymentID string) (*models.GatewayPayment, error) {
	gp, ok := f.gateways[gatewayPaymentID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *gp
	return &cp, nil
}

func (f *fakePaymentStore) GetGatewayPaymentByInvoice(invoiceID string) (*models.GatewayPayment, error) {
	for _, gp := range f.gateways {
		if gp.InvoiceID == invoiceID {
			cp := *gp
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePaymentStore) UpdateGatewayPayment(gp *models.GatewayPayment) error {
	cp := *gp
	f.gateways[gp.GatewayPaymentID] = &cp
	return nil
}

type countingNotifier struct {
	completed int
}

func (n *countingNotifier) NotifyPaymentCompleted(userID uint, amount float64, trxID string) {
	n.completed++
}

// downGateway fails every call, as if bKash were unreachable.
type downGateway struct{}

func (downGateway) CreatePayment(ctx context.Context, amount float64, invoiceID, callbackURL string) (*bkash.CreateResponse, error) {
	return nil, errors.New("connection refused")
}

func (downGateway) ExecutePayment(ctx context.Context, paymentID string) (*bkash.TransactionResponse, error) {
	return nil, errors.New("connection refused")
}

func (downGateway) QueryPayment(ctx context.Context, paymentID string) (*bkash.TransactionResponse, error) {
	return nil, errors.New("connection refused")
}

func newPaymentFixture(gateway bkash.Client) (*PaymentService, *fakePaymentStore, *countingNotifier) {
	store := newFakePaymentStore()
	notifier := &countingNotifier{}
	svc := NewPaymentService(store, twoMemberRoom(), gateway, notifier, zap.NewNop(), "http://localhost/webhooks/bkash")
	return svc, store, notifier
}

func TestInitiateCreatesPendingWithMirror(t *testing.T) {
	stub := bkash.NewStubClient()
	svc, store, _ := newPaymentFixture(stub)

	res, err := svc.Initiate(context.Background(), 10, 1, 250)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if !strings.HasPrefix(res.InvoiceID, "MS-") {
		t.Errorf("InvoiceID = %q, want MS- prefix", res.InvoiceID)
	}
	p, err := store.GetByID(res.PaymentID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if p.Status != domain.PaymentPending {
		t.Errorf("Status = %q, want PENDING", p.Status)
	}
	gp, err := store.GetGatewayPayment(res.GatewayPaymentID)
	if err != nil {
		t.Fatalf("mirror row missing: %v", err)
	}
	if gp.PaymentID != p.ID || gp.Amount != 250 {
		t.Errorf("mirror = %+v", gp)
	}
}

func TestInitiateValidation(t *testing.T) {
	svc, _, _ := newPaymentFixture(bkash.NewStubClient())

	if _, err := svc.Initiate(context.Background(), 10, 1, 0); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("zero amount: err = %v, want ErrValidation", err)
	}
	if _, err := svc.Initiate(context.Background(), 77, 1, 100); !errors.Is(err, domain.ErrNotRoomMember) {
		t.Errorf("non-member: err = %v, want ErrNotRoomMember", err)
	}
	if _, err := svc.Initiate(context.Background(), 10, 99, 100); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing room: err = %v, want ErrNotFound", err)
	}
}

func TestInitiateGatewayDownLeavesOrphanPending(t *testing.T) {
	svc, store, _ := newPaymentFixture(downGateway{})

	_, err := svc.Initiate(context.Background(), 10, 1, 100)
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
	}
	// the PENDING row exists but no mirror does, so the attempt is
	// provably unknown to the gateway
	if len(store.payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(store.payments))
	}
	for _, p := range store.payments {
		if p.Status != domain.PaymentPending {
			t.Errorf("Status = %q, want PENDING", p.Status)
		}
	}
	if len(store.gateways) != 0 {
		t.Errorf("gateway mirrors = %d, want 0", len(store.gateways))
	}
}

func TestReconcileSuccessCompletesOnce(t *testing.T) {
	stub := bkash.NewStubClient()
	svc, store, notifier := newPaymentFixture(stub)

	res, err := svc.Initiate(context.Background(), 10, 1, 500)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	stub.Complete(res.GatewayPaymentID)

	first, err := svc.Reconcile(context.Background(), res.GatewayPaymentID, OutcomeSuccess, []byte(`{"status":"success"}`))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if first.Status != domain.PaymentCompleted || first.TrxID == "" {
		t.Errorf("first = %+v", first)
	}
	if notifier.completed != 1 {
		t.Fatalf("notifications = %d, want 1", notifier.completed)
	}

	second, err := svc.Reconcile(context.Background(), res.GatewayPaymentID, OutcomeSuccess, nil)
	if err != nil {
		t.Fatalf("repeated Reconcile: %v", err)
	}
	if second.Status != domain.PaymentCompleted {
		t.Errorf("second.Status = %q, want COMPLETED", second.Status)
	}
	if notifier.completed != 1 {
		t.Errorf("notifications after replay = %d, want still 1", notifier.completed)
	}

	p, _ := store.GetByID(res.PaymentID)
	if p.CompletedAt == nil {
		t.Errorf("CompletedAt not set")
	}
}

func TestReconcileConflictingOutcome(t *testing.T) {
	stub := bkash.NewStubClient()
	svc, store, _ := newPaymentFixture(stub)

	res, err := svc.Initiate(context.Background(), 10, 1, 500)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	stub.Complete(res.GatewayPaymentID)
	if _, err := svc.Reconcile(context.Background(), res.GatewayPaymentID, OutcomeSuccess, nil); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	_, err = svc.Reconcile(context.Background(), res.GatewayPaymentID, OutcomeFailure, nil)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("opposite outcome: err = %v, want ErrConflict", err)
	}
	p, _ := store.GetByID(res.PaymentID)
	if p.Status != domain.PaymentCompleted {
		t.Errorf("Status = %q, conflict must not change a terminal payment", p.Status)
	}
}

func TestReconcileFailure(t *testing.T) {
	stub := bkash.NewStubClient()
	svc, store, notifier := newPaymentFixture(stub)

	res, err := svc.Initiate(context.Background(), 10, 1, 300)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	got, err := svc.Reconcile(context.Background(), res.GatewayPaymentID, OutcomeFailure, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got.Status != domain.PaymentFailed {
		t.Errorf("Status = %q, want FAILED", got.Status)
	}
	if notifier.completed != 0 {
		t.Errorf("notifications = %d, want 0", notifier.completed)
	}
	if _, err := svc.Reconcile(context.Background(), res.GatewayPaymentID, OutcomeSuccess, nil); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("success after failure: err = %v, want ErrConflict", err)
	}
	p, _ := store.GetByID(res.PaymentID)
	if p.Status != domain.PaymentFailed {
		t.Errorf("Status = %q, want FAILED", p.Status)
	}
}

func TestReconcileSuccessClaimNotVerified(t *testing.T) {
	stub := bkash.NewStubClient()
	svc, store, notifier := newPaymentFixture(stub)

	res, err := svc.Initiate(context.Background(), 10, 1, 300)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	// callback claims success but the gateway still reports the payment
	// as in progress; nothing may transition
	got, err := svc.Reconcile(context.Background(), res.GatewayPaymentID, OutcomeSuccess, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got.Status != domain.PaymentPending {
		t.Errorf("Status = %q, want PENDING", got.Status)
	}
	if notifier.completed != 0 {
		t.Errorf("notifications = %d, want 0", notifier.completed)
	}
	p, _ := store.GetByID(res.PaymentID)
	if p.Status != domain.PaymentPending {
		t.Errorf("stored Status = %q, want PENDING", p.Status)
	}
}

func TestReconcileVerifyUnavailable(t *testing.T) {
	stub := bkash.NewStubClient()
	svc, store, _ := newPaymentFixture(stub)

	res, err := svc.Initiate(context.Background(), 10, 1, 300)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	// swap the gateway out from under the service to fail the verify step
	svc.gateway = downGateway{}

	_, err = svc.Reconcile(context.Background(), res.GatewayPaymentID, OutcomeSuccess, nil)
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
	}
	p, _ := store.GetByID(res.PaymentID)
	if p.Status != domain.PaymentPending {
		t.Errorf("Status = %q, verify failure must leave the payment PENDING", p.Status)
	}
}

func TestReconcileUnknownGatewayPayment(t *testing.T) {
	svc, _, _ := newPaymentFixture(bkash.NewStubClient())

	_, err := svc.Reconcile(context.Background(), "no-such-id", OutcomeSuccess, nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestExecuteCompletesAndChecksOwnership(t *testing.T) {
	stub := bkash.NewStubClient()
	svc, _, notifier := newPaymentFixture(stub)

	res, err := svc.Initiate(context.Background(), 10, 1, 450)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if _, err := svc.Execute(context.Background(), 20, res.GatewayPaymentID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("other user's execute: err = %v, want ErrForbidden", err)
	}
	got, err := svc.Execute(context.Background(), 10, res.GatewayPaymentID)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got.Status != domain.PaymentCompleted {
		t.Errorf("Status = %q, want COMPLETED", got.Status)
	}
	if notifier.completed != 1 {
		t.Errorf("notifications = %d, want 1", notifier.completed)
	}
	// replaying the execute is an idempotent no-op
	again, err := svc.Execute(context.Background(), 10, res.GatewayPaymentID)
	if err != nil {
		t.Fatalf("replayed Execute: %v", err)
	}
	if again.Status != domain.PaymentCompleted || notifier.completed != 1 {
		t.Errorf("replay: status %q, notifications %d", again.Status, notifier.completed)
	}
}

func TestAwaitOutcomeTimeoutThenLateCallback(t *testing.T) {
	stub := bkash.NewStubClient()
	svc, store, notifier := newPaymentFixture(stub)

	res, err := svc.Initiate(context.Background(), 10, 1, 200)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	got, err := svc.AwaitOutcome(context.Background(), 10, res.GatewayPaymentID, time.Millisecond, 3)
	if err != nil {
		t.Fatalf("AwaitOutcome: %v", err)
	}
	if got != domain.GatewayTimeout {
		t.Fatalf("outcome = %q, want GATEWAY_TIMEOUT", got)
	}
	p, _ := store.GetByID(res.PaymentID)
	if p.Status != domain.PaymentPending {
		t.Fatalf("Status = %q, timeout must not touch the payment", p.Status)
	}

	// the gateway settles after the poller gave up; the late callback
	// still completes the payment
	stub.Complete(res.GatewayPaymentID)
	late, err := svc.Reconcile(context.Background(), res.GatewayPaymentID, OutcomeSuccess, nil)
	if err != nil {
		t.Fatalf("late Reconcile: %v", err)
	}
	if late.Status != domain.PaymentCompleted {
		t.Errorf("late Status = %q, want COMPLETED", late.Status)
	}
	if notifier.completed != 1 {
		t.Errorf("notifications = %d, want 1", notifier.completed)
	}
}

func TestAwaitOutcomeTerminal(t *testing.T) {
	stub := bkash.NewStubClient()
	svc, _, _ := newPaymentFixture(stub)

	res, err := svc.Initiate(context.Background(), 10, 1, 200)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if _, err := svc.Execute(context.Background(), 10, res.GatewayPaymentID); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got, err := svc.AwaitOutcome(context.Background(), 10, res.GatewayPaymentID, time.Millisecond, 3)
	if err != nil {
		t.Fatalf("AwaitOutcome: %v", err)
	}
	if got != domain.GatewayCompleted {
		t.Errorf("outcome = %q, want GATEWAY_COMPLETED", got)
	}
	if _, err := svc.AwaitOutcome(context.Background(), 20, res.GatewayPaymentID, time.Millisecond, 3); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("other user's await: err = %v, want ErrForbidden", err)
	}
}

// racingStore runs a hook just before each terminal transition, simulating a
// concurrent reconciler sneaking in between the caller's state read and its
// compare-and-set.
type racingStore struct {
	*fakePaymentStore
	beforeMark func(id uint)
}

func (s *racingStore) MarkCompleted(id uint, description string) (bool, error) {
	if s.beforeMark != nil {
		s.beforeMark(id)
	}
	return s.fakePaymentStore.MarkCompleted(id, description)
}

func (s *racingStore) MarkFailed(id uint, description string) (bool, error) {
	if s.beforeMark != nil {
		s.beforeMark(id)
	}
	return s.fakePaymentStore.MarkFailed(id, description)
}

func TestReconcileFailureLosingRaceKeepsWinnerMirror(t *testing.T) {
	stub := bkash.NewStubClient()
	store := newFakePaymentStore()
	racing := &racingStore{fakePaymentStore: store}
	notifier := &countingNotifier{}
	svc := NewPaymentService(racing, twoMemberRoom(), stub, notifier, zap.NewNop(), "http://localhost/webhooks/bkash")

	res, err := svc.Initiate(context.Background(), 10, 1, 500)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	// a success reconcile wins the pair transition between this caller's
	// read and its compare-and-set
	racing.beforeMark = func(id uint) {
		if won, _ := store.MarkCompleted(id, "bKash payment - TrxID: TRXWIN"); won {
			gp, _ := store.GetGatewayPayment(res.GatewayPaymentID)
			gp.Status = bkash.StatusCompleted
			gp.TrxID = "TRXWIN"
			store.UpdateGatewayPayment(gp)
		}
	}

	got, err := svc.Reconcile(context.Background(), res.GatewayPaymentID, OutcomeFailure, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got.Status != domain.PaymentCompleted || got.TrxID != "TRXWIN" {
		t.Errorf("loser result = %+v, want the winner's COMPLETED/TRXWIN", got)
	}
	p, _ := store.GetByID(res.PaymentID)
	if p.Status != domain.PaymentCompleted {
		t.Errorf("Payment.Status = %q, want COMPLETED", p.Status)
	}
	gp, _ := store.GetGatewayPayment(res.GatewayPaymentID)
	if gp.Status != bkash.StatusCompleted || gp.TrxID != "TRXWIN" {
		t.Errorf("mirror = %q/%q, loser must not overwrite the winner's mirror", gp.Status, gp.TrxID)
	}
}

func TestReconcileSuccessLosingRaceDoesNotNotify(t *testing.T) {
	stub := bkash.NewStubClient()
	store := newFakePaymentStore()
	racing := &racingStore{fakePaymentStore: store}
	notifier := &countingNotifier{}
	svc := NewPaymentService(racing, twoMemberRoom(), stub, notifier, zap.NewNop(), "http://localhost/webhooks/bkash")

	res, err := svc.Initiate(context.Background(), 10, 1, 500)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	stub.Complete(res.GatewayPaymentID)

	// a failure reconcile wins between the verify and the compare-and-set
	racing.beforeMark = func(id uint) {
		if won, _ := store.MarkFailed(id, "bKash payment failed"); won {
			gp, _ := store.GetGatewayPayment(res.GatewayPaymentID)
			gp.Status = bkash.StatusFailed
			store.UpdateGatewayPayment(gp)
		}
	}

	got, err := svc.Reconcile(context.Background(), res.GatewayPaymentID, OutcomeSuccess, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got.Status != domain.PaymentFailed {
		t.Errorf("loser result = %+v, want the winner's FAILED", got)
	}
	if notifier.completed != 0 {
		t.Errorf("notifications = %d, the losing success path must not notify", notifier.completed)
	}
	gp, _ := store.GetGatewayPayment(res.GatewayPaymentID)
	if gp.Status != bkash.StatusFailed {
		t.Errorf("mirror Status = %q, want Failed", gp.Status)
	}
}

func TestFailOrphansOnlySweepsUnmirroredPending(t *testing.T) {
	stub := bkash.NewStubClient()
	svc, store, _ := newPaymentFixture(stub)

	// one healthy pending payment with a mirror, one orphan without
	healthy, err := svc.Initiate(context.Background(), 10, 1, 100)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	svc.gateway = downGateway{}
	if _, err := svc.Initiate(context.Background(), 20, 1, 200); !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
	}
	svc.gateway = stub
	for _, p := range store.payments {
		p.CreatedAt = time.Now().Add(-time.Hour)
	}

	n, err := svc.FailOrphans(30 * time.Minute)
	if err != nil {
		t.Fatalf("FailOrphans: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept = %d, want 1", n)
	}
	gp, _ := store.GetGatewayPayment(healthy.GatewayPaymentID)
	p, _ := store.GetByID(gp.PaymentID)
	if p.Status != domain.PaymentPending {
		t.Errorf("mirrored payment Status = %q, sweep must not touch it", p.Status)
	}
	for _, p := range store.payments {
		if p.ID != gp.PaymentID && p.Status != domain.PaymentFailed {
			t.Errorf("orphan Status = %q, want FAILED", p.Status)
		}
	}
}

func TestHistoryRequiresMembership(t *testing.T) {
	stub := bkash.NewStubClient()
	svc, _, _ := newPaymentFixture(stub)

	if _, err := svc.Initiate(context.Background(), 10, 1, 100); err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	start, end := monthRange(t)
	if _, err := svc.History(77, 1, start, end); !errors.Is(err, domain.ErrNotRoomMember) {
		t.Errorf("non-member history: err = %v, want ErrNotRoomMember", err)
	}
	got, err := svc.History(20, 1, start, end)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("payments = %d, want 1", len(got))
	}
}

func TestStatusReportsLedgerAndGateway(t *testing.T) {
	stub := bkash.NewStubClient()
	svc, _, _ := newPaymentFixture(stub)

	res, err := svc.Initiate(context.Background(), 10, 1, 200)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if _, err := svc.Status(context.Background(), 20, res.GatewayPaymentID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("other user's status: err = %v, want ErrForbidden", err)
	}
	got, err := svc.Status(context.Background(), 10, res.GatewayPaymentID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if got.Status != domain.PaymentPending {
		t.Errorf("ledger status = %q, want PENDING", got.Status)
	}
	if got.GatewayStatus != "Initiated" {
		t.Errorf("gateway status = %q, want Initiated", got.GatewayStatus)
	}
}
