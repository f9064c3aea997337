package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"cuotas/internal/core"
	ports "cuotas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultContributionsSheet = "Abonos"
	DefaultExpensesSheet      = "Egresos"
)

// Config selects the spreadsheet and the credentials used to reach it.
// Sheet names are base names; the record's year is prefixed automatically.
type Config struct {
	SpreadsheetID      string
	ContributionsSheet string
	ExpensesSheet      string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// Client mirrors the ledger into year-prefixed sheets, one row per record,
// with the record ID in column A.
type Client struct {
	svc               *gsheet.Service
	spreadsheetID     string
	contributionsBase string
	expensesBase      string

	// serializes find-then-write so two events never claim the same row
	mu sync.Mutex
}

// Ensure interface conformance
var (
	_ ports.LedgerWriter = (*Client)(nil)
	_ ports.LedgerReader = (*Client)(nil)
)

func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, spreadsheetID, cfg), nil
}

func newClient(svc *gsheet.Service, spreadsheetID string, cfg Config) *Client {
	contributions := strings.TrimSpace(cfg.ContributionsSheet)
	if contributions == "" {
		contributions = DefaultContributionsSheet
	}
	expenses := strings.TrimSpace(cfg.ExpensesSheet)
	if expenses == "" {
		expenses = DefaultExpensesSheet
	}
	return &Client{
		svc:               svc,
		spreadsheetID:     spreadsheetID,
		contributionsBase: contributions,
		expensesBase:      expenses,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Falls back to GOOGLE_APPLICATION_CREDENTIALS when the config carries none.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		var err error
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

func (c *Client) contributionsSheet(year int) string {
	return yearPrefixedName(c.contributionsBase, year)
}

func (c *Client) expensesSheet(year int) string {
	return yearPrefixedName(c.expensesBase, year)
}

// AppendContribution writes the row unless a row with the same ID exists.
func (c *Client) AppendContribution(ctx context.Context, row ports.ContributionRow) (string, error) {
	if err := row.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheet := c.contributionsSheet(row.At.Year())

	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx, sheet)
	if err != nil {
		return "", err
	}
	if r := rowOf(ids, row.ID); r > 0 {
		return rowRef(sheet, r, contributionLastCol), nil
	}
	r, err := c.writeRow(ctx, sheet, ids, contributionHeader, contributionValues(row), contributionLastCol)
	if err != nil {
		return "", err
	}
	return rowRef(sheet, r, contributionLastCol), nil
}

// UpsertExpense rewrites the row holding e.ID or appends a new one.
func (c *Client) UpsertExpense(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheet := c.expensesSheet(e.Date.Year())

	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx, sheet)
	if err != nil {
		return "", err
	}
	if r := rowOf(ids, e.ID); r > 0 {
		if err := c.updateRow(ctx, sheet, r, expenseValues(e), expenseLastCol); err != nil {
			return "", err
		}
		return rowRef(sheet, r, expenseLastCol), nil
	}
	r, err := c.writeRow(ctx, sheet, ids, expenseHeader, expenseValues(e), expenseLastCol)
	if err != nil {
		return "", err
	}
	return rowRef(sheet, r, expenseLastCol), nil
}

// DeleteExpense clears the row holding e.ID. A missing row is not an error.
func (c *Client) DeleteExpense(ctx context.Context, e core.Expense) error {
	return c.clearRow(ctx, c.expensesSheet(e.Date.Year()), e.ID, expenseLastCol)
}

// DeleteContribution clears the row holding row.ID. A missing row is not an
// error.
func (c *Client) DeleteContribution(ctx context.Context, row core.Contribution) error {
	return c.clearRow(ctx, c.contributionsSheet(row.At.Year()), row.ID, contributionLastCol)
}

func (c *Client) clearRow(ctx context.Context, sheet, id, lastCol string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx, sheet)
	if err != nil {
		return err
	}
	r := rowOf(ids, id)
	if r == 0 {
		slog.WarnContext(ctx, "Row not found in sheet, nothing to delete", "id", id, "sheet", sheet)
		return nil
	}
	rng := rowRef(sheet, r, lastCol)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

func (c *Client) ListContributions(ctx context.Context, year int) ([]ports.ContributionRow, error) {
	values, err := c.readAll(ctx, c.contributionsSheet(year), contributionLastCol)
	if err != nil {
		return nil, err
	}
	var out []ports.ContributionRow
	for _, row := range values {
		if r, ok := parseContributionRow(toStrings(row)); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *Client) ListExpenses(ctx context.Context, year int) ([]core.Expense, error) {
	values, err := c.readAll(ctx, c.expensesSheet(year), expenseLastCol)
	if err != nil {
		return nil, err
	}
	var out []core.Expense
	for _, row := range values {
		if e, ok := parseExpenseRow(toStrings(row)); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (c *Client) readAll(ctx context.Context, sheet, lastCol string) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:%s", sheet, lastCol)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) readIDs(ctx context.Context, sheet string) ([]string, error) {
	values, err := c.readAll(ctx, sheet, "A")
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(values))
	for i, row := range values {
		if len(row) > 0 {
			ids[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return ids, nil
}

// writeRow appends values after the last used row, writing the header first
// on an empty sheet. It returns the 1-based row written.
func (c *Client) writeRow(ctx context.Context, sheet string, ids []string, header, values []any, lastCol string) (int, error) {
	next := len(ids) + 1
	if len(ids) == 0 {
		if err := c.updateRow(ctx, sheet, 1, header, lastCol); err != nil {
			return 0, fmt.Errorf("write header: %w", err)
		}
		next = 2
	}
	if err := c.updateRow(ctx, sheet, next, values, lastCol); err != nil {
		return 0, err
	}
	return next, nil
}

func (c *Client) updateRow(ctx context.Context, sheet string, row int, values []any, lastCol string) error {
	rng := rowRef(sheet, row, lastCol)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}
