// Package report computes period summaries over a loaded transaction set:
// per-kind totals, a cumulative balance series and per-category breakdowns.
// All sums are carried in integer cents; two-decimal rounding happens only
// when a figure is rendered.
package report

import (
	"math"
	"sort"
	"time"

	"finanzas/internal/core"
)

// Bucket is the grouping width for the balance series.
type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketMonth Bucket = "month"
	BucketYear  Bucket = "year"
)

func (b Bucket) Valid() bool {
	switch b {
	case BucketDay, BucketMonth, BucketYear:
		return true
	}
	return false
}

// Start truncates t to the beginning of the bucket containing it.
func (b Bucket) Start(t time.Time) time.Time {
	switch b {
	case BucketMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case BucketYear:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		return core.Day(t)
	}
}

// KPISet holds the headline figures for a period.
type KPISet struct {
	Income     core.Money
	Expense    core.Money
	Investment core.Money
	// Balance = Income - Expense - Investment. May be negative.
	Balance int64
}

// BalancePoint is one bucket of the cumulative balance series.
type BalancePoint struct {
	Start time.Time
	// Net is the signed sum of the bucket's amounts.
	Net int64
	// Cumulative is the running sum of Net over all prior buckets: the
	// reconstructed account balance at the end of this bucket.
	Cumulative int64
}

// CategoryTotal is one row of a per-category breakdown.
type CategoryTotal struct {
	Category string
	Total    core.Money
	Count    int
	// PercentOfTotal is Total's share of the breakdown's grand total,
	// rounded to two decimals. Zero when the grand total is zero.
	PercentOfTotal float64
}

// FilterByRange returns the transactions dated within [start, end]
// inclusive, preserving order. Empty input or an empty intersection yields
// an empty slice. Filtering an already-filtered set by the same range
// returns the same set.
func FilterByRange(txs []core.Transaction, start, end time.Time) []core.Transaction {
	start, end = core.Day(start), core.Day(end)
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		d := core.Day(t.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// KPIs sums the filtered set per kind. Empty input yields all-zero KPIs.
func KPIs(txs []core.Transaction) KPISet {
	var k KPISet
	for _, t := range txs {
		switch t.Kind {
		case core.KindIncome:
			k.Income.Cents += t.Amount.Cents
		case core.KindExpense:
			k.Expense.Cents += t.Amount.Cents
		case core.KindInvestment:
			k.Investment.Cents += t.Amount.Cents
		}
	}
	k.Balance = k.Income.Cents - k.Expense.Cents - k.Investment.Cents
	return k
}

// BalanceSeries partitions txs into buckets and reconstructs the running
// account balance as a prefix sum of per-bucket signed nets. Only buckets
// containing at least one transaction appear, in chronological order.
// Callers decide the input window; the dashboard passes the owner's full
// history so the running balance is not truncated mid-stream.
func BalanceSeries(txs []core.Transaction, bucket Bucket) []BalancePoint {
	if !bucket.Valid() {
		bucket = BucketDay
	}
	nets := make(map[time.Time]int64)
	for _, t := range txs {
		nets[bucket.Start(t.Date)] += t.Amount.Signed(t.Kind)
	}
	starts := make([]time.Time, 0, len(nets))
	for s := range nets {
		starts = append(starts, s)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	series := make([]BalancePoint, 0, len(starts))
	var running int64
	for _, s := range starts {
		running += nets[s]
		series = append(series, BalancePoint{Start: s, Net: nets[s], Cumulative: running})
	}
	return series
}

// CategorySummary breaks the filtered set down by category name, keeping
// only transactions of the given kind, sorted by total descending (name
// ascending on ties). When the grand total is zero every percentage is
// zero rather than dividing by zero.
func CategorySummary(txs []core.Transaction, kind core.Kind) []CategoryTotal {
	totals := make(map[string]*CategoryTotal)
	var grand int64
	for _, t := range txs {
		if t.Kind != kind {
			continue
		}
		row, ok := totals[t.Category]
		if !ok {
			row = &CategoryTotal{Category: t.Category}
			totals[t.Category] = row
		}
		row.Total.Cents += t.Amount.Cents
		row.Count++
		grand += t.Amount.Cents
	}
	out := make([]CategoryTotal, 0, len(totals))
	for _, row := range totals {
		if grand > 0 {
			row.PercentOfTotal = round2(float64(row.Total.Cents) / float64(grand) * 100)
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
