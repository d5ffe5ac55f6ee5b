package billing

import (
	"fmt"
	"time"
)

// PaymentMethod is the fulfillment channel.
type PaymentMethod string

const (
	MethodPending PaymentMethod = "pending"
	MethodCash    PaymentMethod = "cash"
	MethodOnline  PaymentMethod = "online"
)

// Settlement is the payment processor outcome.
type Settlement string

const (
	SettlementPending Settlement = "pending"
	SettlementPaid    Settlement = "paid"
	SettlementFailed  Settlement = "failed"
)

// Ledger is the accounting status of the bill.
type Ledger string

const (
	LedgerUnpaid Ledger = "unpaid"
	LedgerPaid   Ledger = "paid"
	LedgerVoid   Ledger = "void"
)

// PaymentState keeps method, settlement and ledger consistent. Only the
// combinations accepted by NewPaymentState can be constructed.
type PaymentState struct {
	Method     PaymentMethod `json:"paymentMethod"`
	Settlement Settlement    `json:"paymentStatus"`
	Ledger     Ledger        `json:"status"`
	PaidAt     *time.Time    `json:"paidAt,omitempty"`
}

func NewPaymentState(method PaymentMethod, settlement Settlement, ledger Ledger, paidAt *time.Time) (PaymentState, error) {
	s := PaymentState{Method: method, Settlement: settlement, Ledger: ledger, PaidAt: paidAt}
	if !s.legal() {
		return PaymentState{}, fmt.Errorf("illegal payment state method=%s settlement=%s ledger=%s", method, settlement, ledger)
	}
	return s, nil
}

func (s PaymentState) legal() bool {
	switch s.Ledger {
	case LedgerPaid:
		return s.Settlement == SettlementPaid && (s.Method == MethodCash || s.Method == MethodOnline) && s.PaidAt != nil
	case LedgerUnpaid:
		switch s.Settlement {
		case SettlementPending:
			return (s.Method == MethodPending || s.Method == MethodOnline) && s.PaidAt == nil
		case SettlementFailed:
			return s.Method == MethodOnline && s.PaidAt == nil
		}
	case LedgerVoid:
		return (s.Settlement == SettlementPending || s.Settlement == SettlementFailed) && s.PaidAt == nil
	}
	return false
}

// Unbilled is the state of a freshly issued bill.
func Unbilled() PaymentState {
	return PaymentState{Method: MethodPending, Settlement: SettlementPending, Ledger: LedgerUnpaid}
}

func SettledCash(at time.Time) PaymentState {
	return PaymentState{Method: MethodCash, Settlement: SettlementPaid, Ledger: LedgerPaid, PaidAt: &at}
}

func AwaitingOnline() PaymentState {
	return PaymentState{Method: MethodOnline, Settlement: SettlementPending, Ledger: LedgerUnpaid}
}

func SettledOnline(at time.Time) PaymentState {
	return PaymentState{Method: MethodOnline, Settlement: SettlementPaid, Ledger: LedgerPaid, PaidAt: &at}
}

func FailedOnline() PaymentState {
	return PaymentState{Method: MethodOnline, Settlement: SettlementFailed, Ledger: LedgerUnpaid}
}

// Voided returns s moved to the void ledger. Paid states cannot be voided.
func (s PaymentState) Voided() (PaymentState, error) {
	return NewPaymentState(s.Method, s.Settlement, LedgerVoid, nil)
}

func (s PaymentState) IsPaid() bool { return s.Ledger == LedgerPaid }

func (s PaymentState) IsVoid() bool { return s.Ledger == LedgerVoid }

// Same reports whether s and o have the same method, settlement and ledger.
func (s PaymentState) Same(o PaymentState) bool {
	return s.Method == o.Method && s.Settlement == o.Settlement && s.Ledger == o.Ledger
}
