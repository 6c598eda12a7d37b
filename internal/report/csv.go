package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"finanzas/internal/core"
)

// WriteSummaryCSV renders a category summary as CSV with a header row.
// Amounts are formatted to two decimals at this boundary only.
func WriteSummaryCSV(w io.Writer, rows []CategoryTotal) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"category", "total", "count", "percent_of_total"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.Category,
			core.FormatCents(r.Total.Cents),
			fmt.Sprintf("%d", r.Count),
			fmt.Sprintf("%.2f", r.PercentOfTotal),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
