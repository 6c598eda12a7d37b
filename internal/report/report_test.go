package report

import (
	"reflect"
	"testing"
	"time"

	"finanzas/internal/core"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func tx(d time.Time, cents int64, kind core.Kind, category string) core.Transaction {
	return core.Transaction{
		Date:     d,
		Amount:   core.Money{Cents: cents},
		Kind:     kind,
		Category: category,
	}
}

func januarySet() []core.Transaction {
	return []core.Transaction{
		tx(date(2024, 1, 1), 100000, core.KindIncome, "Salary"),
		tx(date(2024, 1, 15), 30000, core.KindExpense, "Food"),
		tx(date(2024, 1, 20), 20000, core.KindInvestment, "Savings"),
	}
}

func TestKPIsJanuaryScenario(t *testing.T) {
	filtered := FilterByRange(januarySet(), date(2024, 1, 1), date(2024, 1, 31))
	k := KPIs(filtered)

	if k.Income.Cents != 100000 {
		t.Errorf("income = %d, want 100000", k.Income.Cents)
	}
	if k.Expense.Cents != 30000 {
		t.Errorf("expense = %d, want 30000", k.Expense.Cents)
	}
	if k.Investment.Cents != 20000 {
		t.Errorf("investment = %d, want 20000", k.Investment.Cents)
	}
	if k.Balance != 50000 {
		t.Errorf("balance = %d, want 50000", k.Balance)
	}
}

func TestKPIsEmptyInput(t *testing.T) {
	k := KPIs(nil)
	if k.Income.Cents != 0 || k.Expense.Cents != 0 || k.Investment.Cents != 0 || k.Balance != 0 {
		t.Errorf("empty input should yield all-zero KPIs, got %+v", k)
	}
}

// The balance identity must hold exactly over large inputs; cent-based
// accumulation has no floating drift to accumulate.
func TestKPIsBalanceIdentityLargeInput(t *testing.T) {
	txs := make([]core.Transaction, 0, 12000)
	d := date(2020, 1, 1)
	for i := 0; i < 12000; i++ {
		kind := core.Kinds[i%3]
		// 0.01, 0.02, ... amounts exercise many small sums.
		txs = append(txs, tx(d.AddDate(0, 0, i%365), int64(i%100+1), kind, "C"))
	}
	k := KPIs(txs)
	if k.Balance != k.Income.Cents-k.Expense.Cents-k.Investment.Cents {
		t.Fatalf("balance identity violated: %d != %d - %d - %d",
			k.Balance, k.Income.Cents, k.Expense.Cents, k.Investment.Cents)
	}

	var wantIncome int64
	for i := 0; i < 12000; i += 3 {
		wantIncome += int64(i%100 + 1)
	}
	if k.Income.Cents != wantIncome {
		t.Errorf("income = %d, want %d (exact)", k.Income.Cents, wantIncome)
	}
}

func TestFilterByRange(t *testing.T) {
	txs := januarySet()
	txs = append(txs, tx(date(2024, 2, 1), 500, core.KindExpense, "Food"))

	got := FilterByRange(txs, date(2024, 1, 1), date(2024, 1, 31))
	if len(got) != 3 {
		t.Fatalf("filtered length = %d, want 3", len(got))
	}
	// Bounds are inclusive.
	if !got[0].Date.Equal(date(2024, 1, 1)) {
		t.Errorf("start-boundary transaction missing")
	}

	// Idempotence: filtering the filtered set by the same range is a fixpoint.
	again := FilterByRange(got, date(2024, 1, 1), date(2024, 1, 31))
	if !reflect.DeepEqual(got, again) {
		t.Error("FilterByRange is not idempotent")
	}
}

func TestFilterByRangeEmpty(t *testing.T) {
	if got := FilterByRange(nil, date(2024, 1, 1), date(2024, 1, 31)); len(got) != 0 || got == nil {
		t.Errorf("nil input should yield empty non-nil slice, got %#v", got)
	}
	got := FilterByRange(januarySet(), date(2030, 1, 1), date(2030, 12, 31))
	if len(got) != 0 {
		t.Errorf("empty intersection should yield empty slice, got %d entries", len(got))
	}
}

func TestBalanceSeriesPrefixSum(t *testing.T) {
	txs := []core.Transaction{
		tx(date(2024, 1, 1), 100000, core.KindIncome, "Salary"),
		tx(date(2024, 1, 1), 5000, core.KindExpense, "Food"),
		tx(date(2024, 1, 15), 30000, core.KindExpense, "Rent"),
		tx(date(2024, 3, 2), 20000, core.KindInvestment, "Savings"),
	}
	series := BalanceSeries(txs, BucketDay)

	// Sparse: only days with transactions appear, in order.
	if len(series) != 3 {
		t.Fatalf("series length = %d, want 3", len(series))
	}
	wantStarts := []time.Time{date(2024, 1, 1), date(2024, 1, 15), date(2024, 3, 2)}
	for i, p := range series {
		if !p.Start.Equal(wantStarts[i]) {
			t.Errorf("series[%d].Start = %v, want %v", i, p.Start, wantStarts[i])
		}
	}

	// Cumulative equals the prefix sum of net.
	var running int64
	for i, p := range series {
		running += p.Net
		if p.Cumulative != running {
			t.Errorf("series[%d].Cumulative = %d, want prefix sum %d", i, p.Cumulative, running)
		}
	}

	// Final cumulative equals the signed total of all input.
	var total int64
	for _, x := range txs {
		total += x.Amount.Signed(x.Kind)
	}
	if last := series[len(series)-1].Cumulative; last != total {
		t.Errorf("final cumulative = %d, want %d", last, total)
	}
	if series[0].Net != 95000 {
		t.Errorf("day-1 net = %d, want 95000", series[0].Net)
	}
}

func TestBalanceSeriesMonthBucket(t *testing.T) {
	txs := []core.Transaction{
		tx(date(2024, 1, 3), 1000, core.KindIncome, "Salary"),
		tx(date(2024, 1, 28), 400, core.KindExpense, "Food"),
		tx(date(2024, 3, 9), 250, core.KindIncome, "Extra"),
	}
	series := BalanceSeries(txs, BucketMonth)
	if len(series) != 2 {
		t.Fatalf("series length = %d, want 2 (sparse months)", len(series))
	}
	if !series[0].Start.Equal(date(2024, 1, 1)) || series[0].Net != 600 {
		t.Errorf("january bucket = %v net %d, want 2024-01-01 net 600", series[0].Start, series[0].Net)
	}
	if !series[1].Start.Equal(date(2024, 3, 1)) || series[1].Cumulative != 850 {
		t.Errorf("march bucket = %v cumulative %d, want 2024-03-01 cumulative 850", series[1].Start, series[1].Cumulative)
	}
}

func TestBalanceSeriesEmpty(t *testing.T) {
	if series := BalanceSeries(nil, BucketDay); len(series) != 0 {
		t.Errorf("empty input should yield empty series, got %d points", len(series))
	}
}

func TestCategorySummary(t *testing.T) {
	txs := []core.Transaction{
		tx(date(2024, 1, 2), 7500, core.KindExpense, "Rent"),
		tx(date(2024, 1, 5), 1500, core.KindExpense, "Food"),
		tx(date(2024, 1, 9), 1000, core.KindExpense, "Food"),
		tx(date(2024, 1, 9), 99999, core.KindIncome, "Salary"),
	}
	rows := CategorySummary(txs, core.KindExpense)

	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (income excluded)", len(rows))
	}
	if rows[0].Category != "Rent" || rows[0].Total.Cents != 7500 || rows[0].Count != 1 {
		t.Errorf("rows[0] = %+v, want Rent/7500/1", rows[0])
	}
	if rows[1].Category != "Food" || rows[1].Total.Cents != 2500 || rows[1].Count != 2 {
		t.Errorf("rows[1] = %+v, want Food/2500/2", rows[1])
	}

	if rows[0].PercentOfTotal != 75.0 || rows[1].PercentOfTotal != 25.0 {
		t.Errorf("percents = %v/%v, want 75/25", rows[0].PercentOfTotal, rows[1].PercentOfTotal)
	}
}

func TestCategorySummaryPercentsSumTo100(t *testing.T) {
	txs := []core.Transaction{
		tx(date(2024, 1, 1), 100, core.KindExpense, "A"),
		tx(date(2024, 1, 1), 100, core.KindExpense, "B"),
		tx(date(2024, 1, 1), 100, core.KindExpense, "C"),
	}
	rows := CategorySummary(txs, core.KindExpense)
	var sum float64
	for _, r := range rows {
		sum += r.PercentOfTotal
	}
	if sum < 99.95 || sum > 100.05 {
		t.Errorf("percent sum = %v, want 100 within rounding epsilon", sum)
	}
}

func TestCategorySummaryZeroTotal(t *testing.T) {
	// No expense rows at all: defined result, not an error or NaN.
	rows := CategorySummary([]core.Transaction{
		tx(date(2024, 1, 1), 100, core.KindIncome, "Salary"),
	}, core.KindExpense)
	if len(rows) != 0 {
		t.Fatalf("rows = %d, want 0", len(rows))
	}
}

func TestBucketStart(t *testing.T) {
	ts := time.Date(2024, 7, 19, 13, 5, 0, 0, time.UTC)
	if got := BucketDay.Start(ts); !got.Equal(date(2024, 7, 19)) {
		t.Errorf("day start = %v", got)
	}
	if got := BucketMonth.Start(ts); !got.Equal(date(2024, 7, 1)) {
		t.Errorf("month start = %v", got)
	}
	if got := BucketYear.Start(ts); !got.Equal(date(2024, 1, 1)) {
		t.Errorf("year start = %v", got)
	}
}
