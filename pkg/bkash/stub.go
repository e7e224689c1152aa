package bkash

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// StubClient simulates the checkout API for development and tests. Created
// payments stay pending until ExecutePayment or Complete/Fail is called.
type StubClient struct {
	mu       sync.Mutex
	payments map[string]*TransactionResponse
}

func NewStubClient() *StubClient {
	return &StubClient{payments: make(map[string]*TransactionResponse)}
}

func (s *StubClient) CreatePayment(ctx context.Context, amount float64, invoiceID, callbackURL string) (*CreateResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := fmt.Sprintf("stub-%d", time.Now().UnixNano())
	s.payments[id] = &TransactionResponse{
		PaymentID:         id,
		TransactionStatus: "Initiated",
		Amount:            fmt.Sprintf("%.2f", amount),
		Currency:          "BDT",
		MerchantInvoiceNo: invoiceID,
	}
	return &CreateResponse{
		PaymentID:         id,
		TransactionStatus: "Initiated",
		Amount:            fmt.Sprintf("%.2f", amount),
		Currency:          "BDT",
		MerchantInvoiceNo: invoiceID,
		BkashURL:          "https://sandbox.bka.sh/checkout/" + id,
	}, nil
}

func (s *StubClient) ExecutePayment(ctx context.Context, paymentID string) (*TransactionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("stub: unknown payment %s", paymentID)
	}
	p.TransactionStatus = StatusCompleted
	p.TrxID = "STUB" + paymentID[len(paymentID)-8:]
	return copyTx(p), nil
}

func (s *StubClient) QueryPayment(ctx context.Context, paymentID string) (*TransactionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("stub: unknown payment %s", paymentID)
	}
	return copyTx(p), nil
}

// Complete marks a stub payment completed, as if the customer finished the
// checkout flow out of band.
func (s *StubClient) Complete(paymentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.payments[paymentID]; ok {
		p.TransactionStatus = StatusCompleted
		p.TrxID = "STUB" + paymentID[len(paymentID)-8:]
	}
}

// Fail marks a stub payment failed, for exercising the failure path.
func (s *StubClient) Fail(paymentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.payments[paymentID]; ok {
		p.TransactionStatus = StatusFailed
	}
}

func copyTx(p *TransactionResponse) *TransactionResponse {
	out := *p
	return &out
}
