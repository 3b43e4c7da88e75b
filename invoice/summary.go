/*
summary.go - Billing summaries and statistics

PURPOSE:
  Aggregates a tenancy's invoices over a date range into the totals the
  dashboards read. The grouping and summing live here, in plain Go over a
  fetched invoice list, so the contract is testable without any query
  language: paid + pending + overdue always equals total for the
  non-cancelled set.
*/
package invoice

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/roomstay/billing-engine/billing"
)

// Summary is the aggregate billing view for one tenancy and range.
type Summary struct {
	TenancyID billing.TenancyID
	From, To  billing.Date

	TotalAmount   billing.Money
	PaidAmount    billing.Money
	PendingAmount billing.Money
	OverdueAmount billing.Money

	InvoiceCount int
	CountsByType map[billing.ChargeType]int

	AverageAmount billing.Money
	// CompletionPct is paid/total as a whole percentage.
	CompletionPct int64
}

// BillingSummary fetches the tenancy's invoices in range and aggregates them.
func (m *Manager) BillingSummary(ctx context.Context, id billing.TenancyID, from, to billing.Date) (Summary, error) {
	invoices, err := m.Invoices.ListByTenancy(ctx, id, from, to)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(id, from, to, invoices), nil
}

// Summarize aggregates an invoice set. Cancelled invoices are excluded from
// every figure, so the status partition invariant holds:
// paid + pending + overdue == total.
func Summarize(id billing.TenancyID, from, to billing.Date, invoices []*Invoice) Summary {
	s := Summary{
		TenancyID:     id,
		From:          from,
		To:            to,
		TotalAmount:   billing.Zero(),
		PaidAmount:    billing.Zero(),
		PendingAmount: billing.Zero(),
		OverdueAmount: billing.Zero(),
		AverageAmount: billing.Zero(),
		CountsByType:  make(map[billing.ChargeType]int),
	}

	for _, inv := range invoices {
		if inv.Status == StatusCancelled {
			continue
		}

		s.InvoiceCount++
		s.TotalAmount = s.TotalAmount.Add(inv.Amount)
		s.CountsByType[inv.ChargeType]++

		switch inv.Status {
		case StatusPaid:
			s.PaidAmount = s.PaidAmount.Add(inv.Amount)
		case StatusOverdue:
			s.OverdueAmount = s.OverdueAmount.Add(inv.Amount)
		default:
			s.PendingAmount = s.PendingAmount.Add(inv.Amount)
		}
	}

	if s.InvoiceCount > 0 {
		s.AverageAmount = s.TotalAmount.Div(decimal.NewFromInt(int64(s.InvoiceCount))).RoundCents()
	}
	if s.TotalAmount.IsPositive() {
		pct := s.PaidAmount.Value.Div(s.TotalAmount.Value).Mul(decimal.NewFromInt(100))
		s.CompletionPct = pct.Round(0).IntPart()
	}
	return s
}
