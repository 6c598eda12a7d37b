package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"finanzas/internal/auth"
	"finanzas/internal/core"
	"finanzas/internal/report"
)

type kpiResponse struct {
	Income     string `json:"income"`
	Expense    string `json:"expense"`
	Investment string `json:"investment"`
	Balance    string `json:"balance"`
}

type balancePointResponse struct {
	Bucket     string `json:"bucket"`
	Net        string `json:"net"`
	Cumulative string `json:"cumulative"`
}

type summaryRowResponse struct {
	Category       string  `json:"category"`
	Total          string  `json:"total"`
	Count          int     `json:"count"`
	PercentOfTotal float64 `json:"percent_of_total"`
}

type dashboardResponse struct {
	From          string                          `json:"from"`
	To            string                          `json:"to"`
	Bucket        string                          `json:"bucket"`
	KPIs          kpiResponse                     `json:"kpis"`
	BalanceSeries []balancePointResponse          `json:"balance_series"`
	Summary       map[string][]summaryRowResponse `json:"summary"`
}

// parseRange reads optional from/to query parameters. Both must be present
// together; from must not be after to.
func parseRange(r *http.Request) (from, to time.Time, ok bool, err error) {
	fromRaw := r.URL.Query().Get("from")
	toRaw := r.URL.Query().Get("to")
	if fromRaw == "" && toRaw == "" {
		return time.Time{}, time.Time{}, false, nil
	}
	if fromRaw == "" || toRaw == "" {
		return time.Time{}, time.Time{}, false, errors.New("from and to must be provided together")
	}
	from, err = time.ParseInLocation(dateLayout, fromRaw, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("invalid from date %q", fromRaw)
	}
	to, err = time.ParseInLocation(dateLayout, toRaw, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("invalid to date %q", toRaw)
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, false, errors.New("from must not be after to")
	}
	return from, to, true, nil
}

// defaultRange is the first of the current month through today, matching
// the dashboard's initial filter.
func defaultRange(now time.Time) (time.Time, time.Time) {
	today := core.Day(now)
	return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), today
}

// handleDashboard returns KPIs and category summaries for the requested
// range, plus the cumulative balance series. KPIs cover only [from, to];
// the series covers the owner's full history so the running balance is a
// true reconstruction, not a window that starts from zero.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	txs, err := s.store.LoadTransactions(r.Context(), identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	from, to, hasRange, err := parseRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if !hasRange {
		from, to = defaultRange(time.Now())
	}

	bucket := report.Bucket(r.URL.Query().Get("bucket"))
	if bucket == "" {
		bucket = report.BucketDay
	}
	if !bucket.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bucket must be day, month or year"})
		return
	}

	filtered := report.FilterByRange(txs, from, to)
	kpis := report.KPIs(filtered)
	series := report.BalanceSeries(txs, bucket)

	summary := make(map[string][]summaryRowResponse, len(core.Kinds))
	for _, kind := range core.Kinds {
		rows := report.CategorySummary(filtered, kind)
		out := make([]summaryRowResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, summaryRowResponse{
				Category:       row.Category,
				Total:          row.Total.Format(),
				Count:          row.Count,
				PercentOfTotal: row.PercentOfTotal,
			})
		}
		summary[string(kind)] = out
	}

	points := make([]balancePointResponse, 0, len(series))
	for _, p := range series {
		points = append(points, balancePointResponse{
			Bucket:     p.Start.Format(dateLayout),
			Net:        core.FormatCents(p.Net),
			Cumulative: core.FormatCents(p.Cumulative),
		})
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		From:   from.Format(dateLayout),
		To:     to.Format(dateLayout),
		Bucket: string(bucket),
		KPIs: kpiResponse{
			Income:     kpis.Income.Format(),
			Expense:    kpis.Expense.Format(),
			Investment: kpis.Investment.Format(),
			Balance:    core.FormatCents(kpis.Balance),
		},
		BalanceSeries: points,
		Summary:       summary,
	})
}

// handleSummaryCSV streams the category summary for one kind as a CSV
// download.
func (s *Server) handleSummaryCSV(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	txs, err := s.store.LoadTransactions(r.Context(), identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	from, to, hasRange, err := parseRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if !hasRange {
		from, to = defaultRange(time.Now())
	}

	kind := core.Kind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = core.KindExpense
	}
	if !kind.Valid() {
		writeError(w, core.ErrInvalidKind)
		return
	}

	rows := report.CategorySummary(report.FilterByRange(txs, from, to), kind)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s_summary_%s_%s.csv",
			kind, from.Format(dateLayout), to.Format(dateLayout)))
	if err := report.WriteSummaryCSV(w, rows); err != nil {
		writeError(w, err)
	}
}
