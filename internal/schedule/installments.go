package schedule

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/oikos-digital/oikos/internal/expense"
	"github.com/oikos-digital/oikos/internal/shared"
)

// ExpandSchedule turns a payment schedule into dated draft expenses. The sum
// of the produced expenses always equals the contract total exactly; any
// rounding residue lands on the final installment.
func ExpandSchedule(ps PaymentSchedule) ([]expense.Expense, error) {
	if !ps.TotalAmount.IsPositive() {
		return nil, errors.New("schedule total must be positive")
	}
	base := expense.Expense{
		BuildingID:   ps.BuildingID,
		Category:     ps.Category,
		Distribution: ps.Distribution,
	}

	switch ps.Shape {
	case ShapeLumpSum:
		e := base
		e.Title = ps.Title
		e.Amount = shared.Round2(ps.TotalAmount)
		e.Date = ps.StartDate
		return []expense.Expense{e}, nil

	case ShapeAdvanceInstallments:
		if ps.Installments <= 0 {
			return nil, errors.New("advance schedule needs at least one installment")
		}
		if ps.AdvanceAmount.IsNegative() || ps.AdvanceAmount.GreaterThan(ps.TotalAmount) {
			return nil, errors.New("advance amount out of range")
		}
		out := make([]expense.Expense, 0, ps.Installments+1)
		advance := base
		advance.Title = fmt.Sprintf("%s (advance)", ps.Title)
		advance.Amount = shared.Round2(ps.AdvanceAmount)
		advance.Date = ps.StartDate
		out = append(out, advance)

		remaining := ps.TotalAmount.Sub(advance.Amount)
		per := shared.Round2(remaining.Div(decimal.NewFromInt(int64(ps.Installments))))
		allocated := decimal.Zero
		month := shared.MonthOf(ps.StartDate)
		for i := 1; i <= ps.Installments; i++ {
			month = month.Next()
			amount := per
			if i == ps.Installments {
				amount = remaining.Sub(allocated)
			}
			allocated = allocated.Add(amount)
			inst := base
			inst.Title = fmt.Sprintf("%s (installment %d/%d)", ps.Title, i, ps.Installments)
			inst.Amount = amount
			inst.Date = month.Start()
			out = append(out, inst)
		}
		return out, nil

	case ShapePeriodic:
		if ps.Installments <= 0 {
			return nil, errors.New("periodic schedule needs at least one period")
		}
		interval := ps.IntervalMonths
		if interval <= 0 {
			interval = 1
		}
		per := shared.Round2(ps.TotalAmount.Div(decimal.NewFromInt(int64(ps.Installments))))
		allocated := decimal.Zero
		out := make([]expense.Expense, 0, ps.Installments)
		month := shared.MonthOf(ps.StartDate)
		for i := 1; i <= ps.Installments; i++ {
			amount := per
			if i == ps.Installments {
				amount = ps.TotalAmount.Sub(allocated)
			}
			allocated = allocated.Add(amount)
			e := base
			e.Title = fmt.Sprintf("%s (%d/%d)", ps.Title, i, ps.Installments)
			e.Amount = amount
			e.Date = month.Start()
			out = append(out, e)
			for j := 0; j < interval; j++ {
				month = month.Next()
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown schedule shape %q", ps.Shape)
	}
}
