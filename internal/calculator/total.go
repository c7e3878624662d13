package calculator

import "github.com/mmynk/splitledger/internal/money"

// Breakdown is the derived view of an expense total. None of its fields can
// be set independently; they all come out of ComputeTotal.
type Breakdown struct {
	Base          money.Money
	Discount      money.Money
	AfterDiscount money.Money
	ServiceTax    money.Money
	GST           money.Money
	Total         money.Money
}

// ComputeTotal turns a base charge plus fixed-amount adjustments into the
// payable total:
//
//	afterDiscount = max(base - discount, 0)
//	total         = afterDiscount + serviceTax + gst
//
// All inputs are fixed amounts. Callers holding percentages convert them with
// money.PercentOf first.
func ComputeTotal(base, discount, serviceTax, gst money.Money) (Breakdown, error) {
	if base <= 0 {
		return Breakdown{}, &AmountError{Field: "base", Amount: base, Reason: "must be greater than zero"}
	}
	for _, in := range []struct {
		field  string
		amount money.Money
	}{
		{"discount", discount},
		{"service_tax", serviceTax},
		{"gst", gst},
	} {
		if in.amount < 0 {
			return Breakdown{}, &AmountError{Field: in.field, Amount: in.amount, Reason: "must not be negative"}
		}
	}

	afterDiscount := money.Max(base-discount, 0)
	return Breakdown{
		Base:          base,
		Discount:      discount,
		AfterDiscount: afterDiscount,
		ServiceTax:    serviceTax,
		GST:           gst,
		Total:         afterDiscount + serviceTax + gst,
	}, nil
}
