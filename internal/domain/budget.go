package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// BudgetPeriod is how often a budget renews.
type BudgetPeriod string

const (
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"
)

// Valid reports whether p is a known budget period.
func (p BudgetPeriod) Valid() bool {
	return p == PeriodMonthly || p == PeriodYearly
}

// Budget is a spending limit a roommate sets for a period. CategoryID names
// the bucket it was set for; spending is counted across all of the user's
// expenses.
type Budget struct {
	ID         string       `json:"id"`
	UserID     string       `json:"userId"`
	CategoryID string       `json:"categoryId"`
	Name       string       `json:"name"`
	Amount     float64      `json:"amount"` // > 0
	Period     BudgetPeriod `json:"period"`
	StartDate  civil.Date   `json:"startDate"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// Window is a calendar filter. A zero Month matches every month and a zero
// Year matches every year.
type Window struct {
	Month time.Month
	Year  int
}

// All reports whether w matches every date.
func (w Window) All() bool {
	return w.Month == 0 && w.Year == 0
}

// Contains reports whether d falls in w.
func (w Window) Contains(d civil.Date) bool {
	return (w.Year == 0 || d.Year == w.Year) && (w.Month == 0 || d.Month == w.Month)
}

// CycleEnd is the last day of the budget's first period.
func (b Budget) CycleEnd() civil.Date {
	months := 1
	if b.Period == PeriodYearly {
		months = 12
	}
	return addMonths(b.StartDate, months).AddDays(-1)
}

// ActiveIn reports whether the budget applies to w. Monthly budgets apply to
// the month they start in. Yearly budgets apply to any window that overlaps
// the twelve months from their start date.
func (b Budget) ActiveIn(w Window) bool {
	if w.All() {
		return true
	}

	switch b.Period {
	case PeriodMonthly:
		return w.Contains(b.StartDate)
	case PeriodYearly:
		if w.Year == 0 {
			// Twelve consecutive months touch every calendar month.
			return true
		}
		end := b.CycleEnd()
		if w.Month == 0 {
			first := civil.Date{Year: w.Year, Month: time.January, Day: 1}
			last := civil.Date{Year: w.Year, Month: time.December, Day: 31}
			return !b.StartDate.After(last) && !end.Before(first)
		}
		first := civil.Date{Year: w.Year, Month: w.Month, Day: 1}
		return !first.Before(b.StartDate) && !first.After(end)
	}
	return false
}

// addMonths moves d by n months, clamping the day to the target month's
// length (Jan 31 plus one month is Feb 28 or 29).
func addMonths(d civil.Date, n int) civil.Date {
	first := time.Date(d.Year, d.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1).Day()
	day := d.Day
	if day > lastDay {
		day = lastDay
	}
	return civil.Date{Year: first.Year(), Month: first.Month(), Day: day}
}
