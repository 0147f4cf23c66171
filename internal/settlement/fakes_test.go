package settlement

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/storelink/storelink-golang/internal/ledger"
	"github.com/storelink/storelink-golang/internal/models"
	"github.com/storelink/storelink-golang/internal/paystack"
)

// fakeGateway scripts Verify responses and counts calls.
type fakeGateway struct {
	mu          sync.Mutex
	verifyRes   *paystack.VerifyResult
	verifyErr   error
	verifyCalls int
}

func (g *fakeGateway) Initialize(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error) {
	return &paystack.InitializeResult{AuthorizationURL: "https://checkout.example/" + req.Reference, Reference: req.Reference}, nil
}

func (g *fakeGateway) Verify(ctx context.Context, reference string) (*paystack.VerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	res := *g.verifyRes
	res.Reference = reference
	return &res, nil
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verifyCalls
}

// memLedger is an in-memory ledger with the same idempotency semantics as
// the SQL store: one payment per reference, one code per order, one
// wallet credit per order.
type memLedger struct {
	mu          sync.Mutex
	orders      map[int64]*models.Order
	payments    map[string]*models.Payment
	codes       map[int64]string
	subs        map[int64]*models.Subscription
	shopActive  map[int64]bool
	billingRows int
	credits     map[int64]float64
	codeSeq     int
}

func newMemLedger() *memLedger {
	return &memLedger{
		orders:     make(map[int64]*models.Order),
		payments:   make(map[string]*models.Payment),
		codes:      make(map[int64]string),
		subs:       make(map[int64]*models.Subscription),
		shopActive: make(map[int64]bool),
		credits:    make(map[int64]float64),
	}
}

func (m *memLedger) addOrder(o *models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
}

func (m *memLedger) OrderByID(ctx context.Context, id int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memLedger) PaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[reference]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memLedger) SettleOrderPayment(ctx context.Context, p ledger.SettleOrderParams) (*ledger.OrderSettlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prior, ok := m.payments[p.GatewayReference]; ok {
		return &ledger.OrderSettlement{
			OrderNumber:    m.orders[prior.OrderID.Int64].OrderNumber,
			RedemptionCode: m.codes[prior.OrderID.Int64],
			Payment:        *prior,
			AlreadySettled: true,
		}, nil
	}

	order, ok := m.orders[p.OrderID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		for _, prior := range m.payments {
			if prior.OrderID.Valid && prior.OrderID.Int64 == order.ID {
				return &ledger.OrderSettlement{
					OrderNumber:    order.OrderNumber,
					RedemptionCode: m.codes[order.ID],
					Payment:        *prior,
					AlreadySettled: true,
				}, nil
			}
		}
		return nil, ledger.ErrNotFound
	}

	fee := p.AmountNaira * p.FeePercent / 100
	payment := &models.Payment{
		ID:               int64(len(m.payments) + 1),
		OrderID:          sql.NullInt64{Int64: order.ID, Valid: true},
		ShopID:           order.ShopID,
		GatewayReference: p.GatewayReference,
		Amount:           p.AmountNaira,
		PlatformFee:      fee,
		SellerAmount:     p.AmountNaira - fee,
		Status:           models.PaymentSuccess,
	}
	m.payments[p.GatewayReference] = payment
	order.PaymentStatus = models.PaymentStatusPaid
	order.Status = models.OrderStatusProcessing

	m.codeSeq++
	code := fmt.Sprintf("CODE%02d", m.codeSeq)
	m.codes[order.ID] = code

	return &ledger.OrderSettlement{
		OrderNumber:    order.OrderNumber,
		RedemptionCode: code,
		Payment:        *payment,
	}, nil
}

func (m *memLedger) SettlementByReference(ctx context.Context, reference string) (*ledger.OrderSettlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prior, ok := m.payments[reference]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &ledger.OrderSettlement{
		OrderNumber:    m.orders[prior.OrderID.Int64].OrderNumber,
		RedemptionCode: m.codes[prior.OrderID.Int64],
		Payment:        *prior,
		AlreadySettled: true,
	}, nil
}

func (m *memLedger) SubscriptionByShop(ctx context.Context, shopID int64) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[shopID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (m *memLedger) ActivateSubscription(ctx context.Context, p ledger.ActivateSubscriptionParams) (*ledger.SubscriptionActivation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.payments[p.GatewayReference]; ok {
		return &ledger.SubscriptionActivation{Subscription: *m.subs[p.ShopID], AlreadySettled: true}, nil
	}

	m.payments[p.GatewayReference] = &models.Payment{
		ShopID:           p.ShopID,
		GatewayReference: p.GatewayReference,
		Amount:           p.AmountNaira,
		Status:           models.PaymentSuccess,
	}
	sub := &models.Subscription{
		ShopID:             p.ShopID,
		Plan:               p.Plan,
		Status:             models.SubscriptionActive,
		CurrentPeriodStart: p.Now,
		CurrentPeriodEnd:   p.Now.AddDate(0, 1, 0),
	}
	m.subs[p.ShopID] = sub
	m.shopActive[p.ShopID] = true
	m.billingRows++

	return &ledger.SubscriptionActivation{Subscription: *sub}, nil
}

func (m *memLedger) ConfirmRedemption(ctx context.Context, orderID int64) (*ledger.ConfirmResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confirmLocked(orderID)
}

func (m *memLedger) ConfirmRedemptionByCode(ctx context.Context, code string) (*ledger.ConfirmResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for orderID, c := range m.codes {
		if c == code {
			if m.orders[orderID].RedemptionConfirmed {
				return nil, ledger.ErrCodeRedeemed
			}
			return m.confirmLocked(orderID)
		}
	}
	return nil, ledger.ErrNotFound
}

func (m *memLedger) confirmLocked(orderID int64) (*ledger.ConfirmResult, error) {
	order, ok := m.orders[orderID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	if order.PaymentStatus != models.PaymentStatusPaid {
		return nil, ledger.ErrOrderUnpaid
	}
	if order.RedemptionConfirmed {
		return nil, ledger.ErrAlreadyConfirmed
	}

	var sellerAmount float64
	for _, p := range m.payments {
		if p.OrderID.Valid && p.OrderID.Int64 == orderID {
			sellerAmount = p.SellerAmount
		}
	}

	order.RedemptionConfirmed = true
	m.credits[order.ShopID] += sellerAmount

	return &ledger.ConfirmResult{
		OrderNumber:    order.OrderNumber,
		CreditedAmount: sellerAmount,
	}, nil
}
