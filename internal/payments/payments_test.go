package payments

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-console/internal/accounts"
	"github.com/odyssey-erp/odyssey-console/internal/cache"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

var chart = []accounts.Account{
	{Code: "1010", Name: "Cash in hand", Type: accounts.TypeAsset, IsCash: true},
	{Code: "1020", Name: "City Bank", Type: accounts.TypeAsset, IsBank: true},
	{Code: "1030", Name: "Wallet clearing", Type: accounts.TypeAsset},
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func supplierTarget(due string) Target {
	return Target{Party: PartySupplier, EntityID: 7, Due: dec(due)}
}

func TestAllocateFullPayment(t *testing.T) {
	res, err := Allocate(supplierTarget("500"), Proposal{Amount: dec("500"), Method: MethodCash, AccountCode: "1010"}, chart)
	require.NoError(t, err)
	require.Equal(t, KindFull, res.Kind)
	require.Equal(t, FullPaymentNote, res.Submission.Note)
	require.Equal(t, PartySupplier, res.Submission.Type)
	require.EqualValues(t, 7, res.Submission.EntityID)
	require.Equal(t, "1010", res.Submission.PaymentAccountCode)
	require.Equal(t, MethodCash, res.Submission.Method)
	require.NotEmpty(t, res.Submission.IdempotencyKey)
	require.True(t, res.RemainingDue.IsZero())
	require.Equal(t, Cash{Account: "1010"}, res.Allocation)
}

func TestAllocateRejectsAmountAboveDue(t *testing.T) {
	_, err := Allocate(supplierTarget("500"), Proposal{Amount: dec("500.01"), Method: MethodCash, AccountCode: "1010"}, chart)
	require.ErrorIs(t, err, shared.ErrAmountExceedsDue)
}

func TestAllocateAmountProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 300; i++ {
		due := decimal.New(int64(rng.Intn(1_000_000)+1), -2)
		p := decimal.New(int64(rng.Intn(1_000_000)+1), -2)
		_, err := Allocate(supplierTarget(due.String()), Proposal{Amount: p, Method: MethodBank, AccountCode: "1020"}, chart)
		if p.GreaterThan(due) {
			require.ErrorIs(t, err, shared.ErrAmountExceedsDue)
		} else {
			require.NoError(t, err)
		}

		_, err = Allocate(supplierTarget(due.String()), Proposal{Amount: p.Neg(), Method: MethodBank, AccountCode: "1020"}, chart)
		require.ErrorIs(t, err, shared.ErrAmountNotPositive)
	}
	_, err := Allocate(supplierTarget("10"), Proposal{Amount: decimal.Zero, Method: MethodBank, AccountCode: "1020"}, chart)
	require.ErrorIs(t, err, shared.ErrAmountNotPositive)
}

func TestResolveNote(t *testing.T) {
	require.Equal(t, FullPaymentNote, ResolveNote("", dec("100"), dec("100")))
	require.Equal(t, PartialPaymentNote, ResolveNote("", dec("40"), dec("100")))
	// a note auto-filled for a previous amount follows the new amount
	require.Equal(t, PartialPaymentNote, ResolveNote(FullPaymentNote, dec("40"), dec("100")))
	require.Equal(t, FullPaymentNote, ResolveNote(PartialPaymentNote, dec("100"), dec("100")))
	require.Equal(t, "cheque #42", ResolveNote("cheque #42", dec("100"), dec("100")))
	require.Equal(t, "  spaced  ", ResolveNote("  spaced  ", dec("1"), dec("100")))
}

func TestAccountEligibilityByMethod(t *testing.T) {
	require.Len(t, EligibleAccounts(MethodCash, chart), 1)
	require.Equal(t, "1020", EligibleAccounts(MethodBank, chart)[0].Code)
	require.Len(t, EligibleAccounts(MethodWallet, chart), 3)
	require.Empty(t, EligibleAccounts("", chart))
	require.False(t, AccountSelectorEnabled(""))
	require.True(t, AccountSelectorEnabled(MethodWallet))

	_, err := NewAllocation(MethodCash, "1020", chart)
	require.ErrorIs(t, err, shared.ErrAccountNotEligible)
	_, err = NewAllocation(MethodBank, "", chart)
	require.ErrorIs(t, err, shared.ErrAccountRequired)
	_, err = NewAllocation("", "1010", chart)
	require.ErrorIs(t, err, shared.ErrMethodRequired)

	alloc, err := NewAllocation(MethodWallet, "1030", chart)
	require.NoError(t, err)
	require.Equal(t, Wallet{Account: "1030"}, alloc)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod(" Bank ")
	require.NoError(t, err)
	require.Equal(t, MethodBank, m)
	_, err = ParseMethod("")
	require.ErrorIs(t, err, shared.ErrMethodRequired)
	_, err = ParseMethod("crypto")
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

type fakeGateway struct {
	calls int
	err   error
	block chan struct{}
}

func (g *fakeGateway) CreatePayment(ctx context.Context, sub Submission) (Payment, error) {
	g.calls++
	if g.block != nil {
		<-g.block
	}
	if g.err != nil {
		return Payment{}, g.err
	}
	return Payment{ID: 99, Method: sub.Method, Amount: sub.Amount, AccountCode: sub.PaymentAccountCode, Note: sub.Note}, nil
}

type recordingInvalidator struct{ tags []cache.Tag }

func (r *recordingInvalidator) Invalidate(ctx context.Context, tags ...cache.Tag) error {
	r.tags = append(r.tags, tags...)
	return nil
}

func TestSubmitSendsOnceAndInvalidates(t *testing.T) {
	gw := &fakeGateway{}
	inv := &recordingInvalidator{}
	svc := NewService(gw, cache.NewDispatcher(inv, nil), nil)
	res, err := Allocate(Target{Party: PartyCustomer, EntityID: 3, Due: dec("80")}, Proposal{Amount: dec("30"), Method: MethodBank, AccountCode: "1020"}, chart)
	require.NoError(t, err)

	payment, err := svc.Submit(context.Background(), res.Submission)
	require.NoError(t, err)
	require.EqualValues(t, 99, payment.ID)
	require.Equal(t, PartialPaymentNote, payment.Note)
	require.Subset(t, inv.tags, []cache.Tag{cache.TagPurchases, cache.TagSales, cache.TagSuppliers, cache.TagPayments})

	_, err = svc.Submit(context.Background(), res.Submission)
	require.ErrorIs(t, err, ErrAlreadySubmitted)
	require.Equal(t, 1, gw.calls)
}

func TestSubmitRefusesDuplicateWhilePending(t *testing.T) {
	gw := &fakeGateway{block: make(chan struct{})}
	svc := NewService(gw, cache.NewDispatcher(nil, nil), nil)
	res, err := Allocate(supplierTarget("10"), Proposal{Amount: dec("10"), Method: MethodCash, AccountCode: "1010"}, chart)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background(), res.Submission)
		done <- err
	}()
	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		_, ok := svc.pending[res.Submission.IdempotencyKey]
		return ok
	}, time.Second, 5*time.Millisecond)

	_, err = svc.Submit(context.Background(), res.Submission)
	require.ErrorIs(t, err, ErrAlreadySubmitted)
	close(gw.block)
	require.NoError(t, <-done)
}

func TestSubmitFailureLeavesNothingInvalidated(t *testing.T) {
	gw := &fakeGateway{err: errors.New("amount exceeds due")}
	inv := &recordingInvalidator{}
	svc := NewService(gw, cache.NewDispatcher(inv, nil), nil)
	res, err := Allocate(supplierTarget("10"), Proposal{Amount: dec("10"), Method: MethodCash, AccountCode: "1010"}, chart)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), res.Submission)
	require.Error(t, err)
	require.Empty(t, inv.tags)

	_, err = svc.Submit(context.Background(), Submission{})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}
