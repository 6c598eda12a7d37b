// Package export mirrors recorded transactions to a Google Sheets backup.
// The sheet is append-only: deletes in the ledger are not replayed there.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finanzas/internal/core"
)

// RowAppender is the port the worker writes through.
type RowAppender interface {
	AppendTransaction(ctx context.Context, t core.Transaction) error
}

type SheetsClient struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ RowAppender = (*SheetsClient)(nil)

// NewSheetsClientFromEnv builds a client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS. GOOGLE_SHEET_NAME defaults to "Ledger".
func NewSheetsClientFromEnv(ctx context.Context) (*SheetsClient, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Ledger"
	}

	credentials, err := credentialsFromEnv()
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsClient{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func credentialsFromEnv() ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		return []byte(inline), nil
	}
	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	credentials, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return credentials, nil
}

// AppendTransaction appends one row for t to the backup sheet.
func (c *SheetsClient) AppendTransaction(ctx context.Context, t core.Transaction) error {
	row := []interface{}{
		t.Date.Format("2006-01-02"),
		string(t.Kind),
		t.Category,
		t.Amount.Format(),
		t.Note,
		t.OwnerID,
		t.ID,
	}
	values := &gsheet.ValueRange{Values: [][]interface{}{row}}

	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, c.sheetName+"!A:G", values).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}

	slog.InfoContext(ctx, "Appended transaction to backup sheet",
		"transaction_id", t.ID, "sheet", c.sheetName)
	return nil
}
