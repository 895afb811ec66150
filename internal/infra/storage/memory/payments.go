package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"rentflow/internal/app/policies"
)

// PaymentPage fakes a hosted checkout page. With Disabled set it behaves like a backend
// without a payment provider.
type PaymentPage struct {
	BaseURL  string
	Disabled bool

	mu       sync.Mutex
	sessions map[string]policies.PaymentSessionRequest
}

func (p *PaymentPage) Create(_ context.Context, req policies.PaymentSessionRequest) (policies.PaymentSession, error) {
	if p.Disabled {
		return policies.PaymentSession{}, policies.ErrPaymentNotConfigured
	}
	if req.BookingID == "" || req.Amount.Amount <= 0 {
		return policies.PaymentSession{}, fmt.Errorf("%w: booking id and amount required", policies.ErrPaymentSession)
	}
	id := "cs_local_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	p.mu.Lock()
	if p.sessions == nil {
		p.sessions = make(map[string]policies.PaymentSessionRequest)
	}
	p.sessions[id] = req
	p.mu.Unlock()
	base := strings.TrimRight(p.BaseURL, "/")
	if base == "" {
		base = "http://localhost:8080"
	}
	return policies.PaymentSession{ID: id, URL: fmt.Sprintf("%s/pay/%s?booking=%s", base, id, req.BookingID)}, nil
}

func (p *PaymentPage) Request(sessionID string) (policies.PaymentSessionRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	req, ok := p.sessions[sessionID]
	return req, ok
}

var _ policies.PaymentSessions = (*PaymentPage)(nil)
