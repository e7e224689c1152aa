package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"messmate/internal/domain"
	"messmate/internal/models"
	"messmate/pkg/bkash"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentStore is the ledger access the reconciliation machine needs. The
// Mark* methods are compare-and-set: they only transition a PENDING row and
// report whether this caller won the transition.
type PaymentStore interface {
	Create(p *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	MarkCompleted(id uint, description string) (bool, error)
	MarkFailed(id uint, description string) (bool, error)
	ListByRoom(roomID uint, start, end time.Time) ([]models.Payment, error)
	ListOrphans(olderThan time.Time) ([]models.Payment, error)
	CreateGatewayPayment(gp *models.GatewayPayment) error
	GetGatewayPayment(gatewayPaymentID string) (*models.GatewayPayment, error)
	GetGatewayPaymentByInvoice(invoiceID string) (*models.GatewayPayment, error)
	UpdateGatewayPayment(gp *models.GatewayPayment) error
}

// Notifier is a fire-and-forget sink; delivery failure never affects payment
// state.
type Notifier interface {
	NotifyPaymentCompleted(userID uint, amount float64, trxID string)
}

// Outcome is what a callback or poll claims happened to a payment attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

type InitiateResult struct {
	PaymentID        uint   `json:"payment_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	InvoiceID        string `json:"invoice_id"`
	BkashURL         string `json:"bkash_url,omitempty"`
}

type ReconcileResult struct {
	PaymentID uint   `json:"payment_id"`
	Status    string `json:"status"`
	TrxID     string `json:"trx_id,omitempty"`
}

type StatusResult struct {
	PaymentID        uint   `json:"payment_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Status           string `json:"status"`
	GatewayStatus    string `json:"gateway_status"`
	TrxID            string `json:"trx_id,omitempty"`
}

// PaymentService drives a gateway payment attempt through
// create -> execute/callback -> verify and keeps the Payment ledger row and
// its GatewayPayment mirror consistent. Transitions are monotone: once a
// Payment is COMPLETED or FAILED it never changes, repeated deliveries of the
// same outcome are no-ops, and a delivery claiming the opposite terminal state
// is rejected as a conflict.
type PaymentService struct {
	payments    PaymentStore
	rooms       RoomStore
	gateway     bkash.Client
	notifier    Notifier
	log         *zap.Logger
	callbackURL string
}

func NewPaymentService(payments PaymentStore, rooms RoomStore, gateway bkash.Client, notifier Notifier, log *zap.Logger, callbackURL string) *PaymentService {
	return &PaymentService{
		payments:    payments,
		rooms:       rooms,
		gateway:     gateway,
		notifier:    notifier,
		log:         log,
		callbackURL: callbackURL,
	}
}

// Initiate creates a PENDING ledger entry and asks the gateway for a payment
// session. The gateway mirror row is only written after the gateway answered,
// so a PENDING payment without a mirror row always means the gateway was
// unreachable, never that a transaction might exist remotely.
func (s *PaymentService) Initiate(ctx context.Context, userID, roomID uint, amount float64) (*InitiateResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if _, err := s.rooms.GetByID(roomID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: room %d", domain.ErrNotFound, roomID)
		}
		return nil, err
	}
	member, err := s.rooms.IsMember(userID, roomID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, domain.ErrNotRoomMember
	}

	invoiceID := fmt.Sprintf("MS-%s-%d", uuid.New().String()[:8], time.Now().UnixMilli())
	p := &models.Payment{
		UserID:      userID,
		RoomID:      roomID,
		Amount:      amount,
		Method:      domain.MethodBkash,
		Status:      domain.PaymentPending,
		Description: fmt.Sprintf("bKash payment - Invoice #%s", invoiceID),
		Date:        time.Now(),
	}
	if err := s.payments.Create(p); err != nil {
		return nil, err
	}

	created, err := s.gateway.CreatePayment(ctx, amount, invoiceID, s.callbackURL)
	if err != nil {
		s.log.Warn("gateway create failed, payment left pending without mirror",
			zap.Uint("payment_id", p.ID), zap.String("invoice_id", invoiceID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}

	gp := &models.GatewayPayment{
		GatewayPaymentID: created.PaymentID,
		InvoiceID:        invoiceID,
		UserID:           userID,
		RoomID:           roomID,
		Amount:           amount,
		Status:           created.TransactionStatus,
		PaymentID:        p.ID,
	}
	if err := s.payments.CreateGatewayPayment(gp); err != nil {
		return nil, err
	}
	s.log.Info("payment initiated",
		zap.Uint("payment_id", p.ID),
		zap.String("gateway_payment_id", created.PaymentID),
		zap.Float64("amount", amount))

	return &InitiateResult{
		PaymentID:        p.ID,
		GatewayPaymentID: created.PaymentID,
		InvoiceID:        invoiceID,
		BkashURL:         created.BkashURL,
	}, nil
}

// Execute completes a payment attempt on behalf of the paying user. The
// execute call is authenticated against the gateway, so its response is the
// canonical transaction record and feeds the transition directly.
func (s *PaymentService) Execute(ctx context.Context, userID uint, gatewayPaymentID string) (*ReconcileResult, error) {
	gp, p, err := s.lookup(gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	if gp.UserID != userID {
		return nil, fmt.Errorf("%w: payment belongs to another user", domain.ErrForbidden)
	}
	if res, done, err := s.shortCircuit(p, OutcomeSuccess); done {
		return res, err
	}
	tx, err := s.gateway.ExecutePayment(ctx, gatewayPaymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	return s.apply(gp, p, tx, nil)
}

// Reconcile applies an outcome delivered by the gateway callback or observed
// by a poller. A success outcome is never trusted as-is: the transaction is
// re-verified with an authenticated query before any state changes. Repeated
// deliveries of the same outcome are idempotent no-ops.
func (s *PaymentService) Reconcile(ctx context.Context, gatewayPaymentID string, outcome Outcome, rawPayload []byte) (*ReconcileResult, error) {
	gp, p, err := s.lookup(gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	if len(rawPayload) > 0 {
		gp.RawCallback = datatypes.JSON(rawPayload)
	}
	if res, done, err := s.shortCircuit(p, outcome); done {
		return res, err
	}

	if outcome == OutcomeFailure {
		won, err := s.payments.MarkFailed(p.ID, "bKash payment failed")
		if err != nil {
			return nil, err
		}
		if !won {
			// lost the race; the winner owns the mirror, report its state
			return s.reload(p.ID, gatewayPaymentID)
		}
		gp.Status = bkash.StatusFailed
		if err := s.payments.UpdateGatewayPayment(gp); err != nil {
			return nil, err
		}
		s.log.Info("payment failed", zap.Uint("payment_id", p.ID), zap.String("gateway_payment_id", gatewayPaymentID))
		return &ReconcileResult{PaymentID: p.ID, Status: domain.PaymentFailed}, nil
	}

	tx, err := s.gateway.QueryPayment(ctx, gatewayPaymentID)
	if err != nil {
		// verify failure leaves the payment in its prior state for a later
		// callback or poll to settle
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	return s.apply(gp, p, tx, rawPayload)
}

// apply transitions the pair according to a verified gateway transaction
// record. The Payment compare-and-set always comes first: the mirror is only
// written by the caller that won the transition, so a losing caller is a pure
// no-op and can never clobber the winner's mirror state.
func (s *PaymentService) apply(gp *models.GatewayPayment, p *models.Payment, tx *bkash.TransactionResponse, rawPayload []byte) (*ReconcileResult, error) {
	gp.Status = tx.TransactionStatus
	gp.TrxID = tx.TrxID
	gp.CustomerMsisdn = tx.CustomerMsisdn
	if len(rawPayload) > 0 {
		gp.RawCallback = datatypes.JSON(rawPayload)
	}

	switch bkash.TranslateStatus(tx.TransactionStatus) {
	case bkash.OutcomeCompleted:
		won, err := s.payments.MarkCompleted(p.ID, fmt.Sprintf("bKash payment - TrxID: %s", tx.TrxID))
		if err != nil {
			return nil, err
		}
		if !won {
			return s.reload(p.ID, gp.GatewayPaymentID)
		}
		if err := s.payments.UpdateGatewayPayment(gp); err != nil {
			return nil, err
		}
		s.log.Info("payment completed",
			zap.Uint("payment_id", p.ID),
			zap.String("trx_id", tx.TrxID))
		s.notifier.NotifyPaymentCompleted(p.UserID, p.Amount, tx.TrxID)
		return &ReconcileResult{PaymentID: p.ID, Status: domain.PaymentCompleted, TrxID: tx.TrxID}, nil

	case bkash.OutcomeFailed:
		won, err := s.payments.MarkFailed(p.ID, "bKash payment failed")
		if err != nil {
			return nil, err
		}
		if !won {
			return s.reload(p.ID, gp.GatewayPaymentID)
		}
		if err := s.payments.UpdateGatewayPayment(gp); err != nil {
			return nil, err
		}
		s.log.Info("payment failed on verify", zap.Uint("payment_id", p.ID))
		return &ReconcileResult{PaymentID: p.ID, Status: domain.PaymentFailed}, nil

	default:
		// provider still processing; re-check the ledger so a transition
		// that landed since our read is not overwritten with stale data
		cur, err := s.payments.GetByID(p.ID)
		if err != nil {
			return nil, err
		}
		if cur.Status != domain.PaymentPending {
			return s.reload(p.ID, gp.GatewayPaymentID)
		}
		if err := s.payments.UpdateGatewayPayment(gp); err != nil {
			return nil, err
		}
		return &ReconcileResult{PaymentID: p.ID, Status: domain.PaymentPending}, nil
	}
}

// Status reports the stored ledger state alongside a live gateway reading.
func (s *PaymentService) Status(ctx context.Context, userID uint, gatewayPaymentID string) (*StatusResult, error) {
	gp, p, err := s.lookup(gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	return s.statusFor(ctx, userID, gp, p)
}

// StatusByInvoice is Status keyed by the merchant invoice number, for callers
// that held on to the invoice rather than the gateway's payment id.
func (s *PaymentService) StatusByInvoice(ctx context.Context, userID uint, invoiceID string) (*StatusResult, error) {
	gp, err := s.payments.GetGatewayPaymentByInvoice(invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invoice %s", domain.ErrNotFound, invoiceID)
		}
		return nil, err
	}
	p, err := s.payments.GetByID(gp.PaymentID)
	if err != nil {
		return nil, err
	}
	return s.statusFor(ctx, userID, gp, p)
}

func (s *PaymentService) statusFor(ctx context.Context, userID uint, gp *models.GatewayPayment, p *models.Payment) (*StatusResult, error) {
	if gp.UserID != userID {
		return nil, fmt.Errorf("%w: payment belongs to another user", domain.ErrForbidden)
	}
	tx, err := s.gateway.QueryPayment(ctx, gp.GatewayPaymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	return &StatusResult{
		PaymentID:        p.ID,
		GatewayPaymentID: gp.GatewayPaymentID,
		Status:           p.Status,
		GatewayStatus:    tx.TransactionStatus,
		TrxID:            tx.TrxID,
	}, nil
}

// History lists a room's payment ledger over the range, newest first.
func (s *PaymentService) History(userID, roomID uint, start, end time.Time) ([]models.Payment, error) {
	member, err := s.rooms.IsMember(userID, roomID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, domain.ErrNotRoomMember
	}
	return s.payments.ListByRoom(roomID, start, end)
}

// FailOrphans fails PENDING payments older than maxAge that never got a
// gateway mirror row. Such payments provably have no remote counterpart, so
// failing them can never contradict a gateway transaction. Returns how many
// were transitioned.
func (s *PaymentService) FailOrphans(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	orphans, err := s.payments.ListOrphans(cutoff)
	if err != nil {
		return 0, err
	}
	failed := 0
	for _, p := range orphans {
		won, err := s.payments.MarkFailed(p.ID, "gateway unreachable at initiation")
		if err != nil {
			return failed, err
		}
		if won {
			failed++
			s.log.Info("orphan payment failed", zap.Uint("payment_id", p.ID))
		}
	}
	return failed, nil
}

// AwaitOutcome polls the stored payment until it reaches a terminal state or
// the attempt budget runs out. Exhausting the budget reports GATEWAY_TIMEOUT
// to the caller only; the payment stays PENDING and a later callback can still
// complete it.
func (s *PaymentService) AwaitOutcome(ctx context.Context, userID uint, gatewayPaymentID string, interval time.Duration, maxAttempts int) (string, error) {
	gp, err := s.payments.GetGatewayPayment(gatewayPaymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: gateway payment %s", domain.ErrNotFound, gatewayPaymentID)
		}
		return "", err
	}
	if gp.UserID != userID {
		return "", fmt.Errorf("%w: payment belongs to another user", domain.ErrForbidden)
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		p, err := s.payments.GetByID(gp.PaymentID)
		if err != nil {
			return "", err
		}
		switch p.Status {
		case domain.PaymentCompleted:
			return domain.GatewayCompleted, nil
		case domain.PaymentFailed:
			return domain.GatewayFailed, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}
	}
	return domain.GatewayTimeout, nil
}

func (s *PaymentService) lookup(gatewayPaymentID string) (*models.GatewayPayment, *models.Payment, error) {
	gp, err := s.payments.GetGatewayPayment(gatewayPaymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: gateway payment %s", domain.ErrNotFound, gatewayPaymentID)
		}
		return nil, nil, err
	}
	p, err := s.payments.GetByID(gp.PaymentID)
	if err != nil {
		return nil, nil, err
	}
	return gp, p, nil
}

// shortCircuit handles attempts against an already-terminal payment: the same
// outcome is an idempotent no-op returning the terminal state, the opposite
// outcome is a conflict.
func (s *PaymentService) shortCircuit(p *models.Payment, outcome Outcome) (*ReconcileResult, bool, error) {
	switch p.Status {
	case domain.PaymentCompleted:
		if outcome == OutcomeSuccess {
			return &ReconcileResult{PaymentID: p.ID, Status: p.Status}, true, nil
		}
		return nil, true, fmt.Errorf("%w: payment %d already completed", domain.ErrConflict, p.ID)
	case domain.PaymentFailed:
		if outcome == OutcomeFailure {
			return &ReconcileResult{PaymentID: p.ID, Status: p.Status}, true, nil
		}
		return nil, true, fmt.Errorf("%w: payment %d already failed", domain.ErrConflict, p.ID)
	}
	return nil, false, nil
}

// reload re-reads both rows so a losing caller reports what the winner wrote,
// not its own stale view.
func (s *PaymentService) reload(paymentID uint, gatewayPaymentID string) (*ReconcileResult, error) {
	p, err := s.payments.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	gp, err := s.payments.GetGatewayPayment(gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	return &ReconcileResult{PaymentID: p.ID, Status: p.Status, TrxID: gp.TrxID}, nil
}
