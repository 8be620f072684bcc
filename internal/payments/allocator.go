// Package payments validates and submits supplier and customer payments.
package payments

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-console/internal/accounts"
	"github.com/odyssey-erp/odyssey-console/internal/amounts"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// Notes filled in when the user leaves the note empty.
const (
	FullPaymentNote    = "Full payment"
	PartialPaymentNote = "Partial payment"
)

// PartyType is who the payment settles with.
type PartyType string

const (
	PartySupplier PartyType = "supplier"
	PartyCustomer PartyType = "customer"
)

// Kind classifies a payment against the due amount.
type Kind string

const (
	KindFull    Kind = "full"
	KindPartial Kind = "partial"
)

// Target is the entity being paid down.
type Target struct {
	Party    PartyType
	EntityID int64
	Due      decimal.Decimal
}

// Proposal is what the user entered.
type Proposal struct {
	Amount      decimal.Decimal
	Method      Method
	AccountCode string
	Note        string
}

// ProposalInput is a proposal as posted to the console API.
type ProposalInput struct {
	Amount             amounts.Money `json:"amount"`
	Method             string        `json:"method"`
	PaymentAccountCode string        `json:"payment_account_code"`
	Note               string        `json:"note,omitempty"`
}

// Proposal parses the method and converts the input.
func (in ProposalInput) Proposal() (Proposal, error) {
	method, err := ParseMethod(in.Method)
	if err != nil {
		return Proposal{}, err
	}
	return Proposal{Amount: in.Amount.Decimal, Method: method, AccountCode: in.PaymentAccountCode, Note: in.Note}, nil
}

// Submission is the payload for POST /payments.
type Submission struct {
	Type               PartyType     `json:"type"`
	EntityID           int64         `json:"entity_id"`
	Amount             amounts.Money `json:"amount"`
	Method             Method        `json:"method"`
	PaymentAccountCode string        `json:"payment_account_code"`
	Note               string        `json:"note"`
	// IdempotencyKey identifies this submission; it is sent as a header, never retried.
	IdempotencyKey string `json:"-"`
}

// Result is an accepted proposal ready to submit.
type Result struct {
	Submission   Submission
	Kind         Kind
	Allocation   Allocation
	RemainingDue decimal.Decimal
}

// Payment is a recorded payment as returned by the API.
type Payment struct {
	ID          int64         `json:"id"`
	Method      Method        `json:"method"`
	Amount      amounts.Money `json:"amount"`
	AccountCode string        `json:"account_code"`
	Note        string        `json:"note,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// ValidateAmount checks 0 < amount <= due.
func ValidateAmount(amount, due decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.Invalid(shared.ErrAmountNotPositive, "amount", "")
	}
	if amount.GreaterThan(due) {
		return shared.Invalid(shared.ErrAmountExceedsDue, "amount",
			fmt.Sprintf("amount %s exceeds due %s", amount.String(), due.String()))
	}
	return nil
}

// Classify reports whether amount settles due completely.
func Classify(amount, due decimal.Decimal) Kind {
	if amount.Equal(due) {
		return KindFull
	}
	return KindPartial
}

// IsAutoNote reports whether note was generated rather than typed.
func IsAutoNote(note string) bool {
	switch strings.TrimSpace(note) {
	case "", FullPaymentNote, PartialPaymentNote:
		return true
	}
	return false
}

// ResolveNote keeps a typed note verbatim and otherwise fills the full/partial sentinel.
func ResolveNote(note string, amount, due decimal.Decimal) string {
	if !IsAutoNote(note) {
		return note
	}
	if Classify(amount, due) == KindFull {
		return FullPaymentNote
	}
	return PartialPaymentNote
}

// Allocate validates p against target and the chart of accounts and builds the submission.
func Allocate(target Target, p Proposal, chart []accounts.Account) (Result, error) {
	if err := ValidateAmount(p.Amount, target.Due); err != nil {
		return Result{}, err
	}
	alloc, err := NewAllocation(p.Method, p.AccountCode, chart)
	if err != nil {
		return Result{}, err
	}
	kind := Classify(p.Amount, target.Due)
	return Result{
		Submission: Submission{
			Type:               target.Party,
			EntityID:           target.EntityID,
			Amount:             amounts.NewMoney(p.Amount),
			Method:             alloc.Method(),
			PaymentAccountCode: alloc.AccountCode(),
			Note:               ResolveNote(p.Note, p.Amount, target.Due),
			IdempotencyKey:     uuid.NewString(),
		},
		Kind:         kind,
		Allocation:   alloc,
		RemainingDue: target.Due.Sub(p.Amount),
	}, nil
}
