package sink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/exp/slog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"ytbucket/internal/retry"
)

// ErrInvalidSpreadsheetID is returned when a spreadsheet id or URL cannot be
// parsed.
var ErrInvalidSpreadsheetID = errors.New("sink: invalid spreadsheet id")

var (
	spreadsheetURLRe = regexp.MustCompile(`/spreadsheets/d/([A-Za-z0-9_-]{25,60})`)
	spreadsheetIDRe  = regexp.MustCompile(`^[A-Za-z0-9_-]{25,60}$`)
)

// ParseSpreadsheetID accepts a bare spreadsheet id or a docs.google.com URL.
func ParseSpreadsheetID(value string) (string, error) {
	value = strings.TrimSpace(value)
	if m := spreadsheetURLRe.FindStringSubmatch(value); m != nil {
		return m[1], nil
	}
	if spreadsheetIDRe.MatchString(value) {
		return value, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSpreadsheetID, value)
}

// SheetsOptions configures a Sheets client. Credentials are tried in order:
// HTTPClient, CredentialsJSON, CredentialsFile, APIKey, then application
// default credentials.
type SheetsOptions struct {
	SpreadsheetID   string
	CredentialsJSON []byte
	CredentialsFile string
	// APIKey only grants read access to shared spreadsheets.
	APIKey     string
	Endpoint   string
	HTTPClient *http.Client
	Retry      retry.Config
}

// Sheets writes each section to its own tab and reads ranges back.
type Sheets struct {
	service       *sheets.Service
	spreadsheetID string
	retry         retry.Config
	logger        *slog.Logger
}

// NewSheets creates a Sheets client for one spreadsheet.
func NewSheets(ctx context.Context, opts SheetsOptions, logger *slog.Logger) (*Sheets, error) {
	id, err := ParseSpreadsheetID(opts.SpreadsheetID)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	var clientOpts []option.ClientOption
	switch {
	case opts.HTTPClient != nil:
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	case len(opts.CredentialsJSON) > 0:
		clientOpts = append(clientOpts,
			option.WithCredentialsJSON(opts.CredentialsJSON),
			option.WithScopes(sheets.SpreadsheetsScope))
	case opts.CredentialsFile != "":
		clientOpts = append(clientOpts,
			option.WithCredentialsFile(opts.CredentialsFile),
			option.WithScopes(sheets.SpreadsheetsScope))
	case opts.APIKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	default:
		clientOpts = append(clientOpts, option.WithScopes(sheets.SpreadsheetsScope))
	}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	service, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	cfg := opts.Retry
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	cfg.OnRetry = func(attempt int, wait time.Duration, err error) {
		logger.Warn("sheets call failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("err", err.Error()))
	}

	return &Sheets{
		service:       service,
		spreadsheetID: id,
		retry:         cfg,
		logger:        logger,
	}, nil
}

func (s *Sheets) Name() string { return "sheets" }

// Write creates missing tabs, clears every section tab and rewrites it.
func (s *Sheets) Write(ctx context.Context, table *Table) error {
	sections := table.Sections()
	names := make([]string, len(sections))
	for i, sec := range sections {
		names[i] = sec.Name
	}

	if err := s.ensureTabs(ctx, names); err != nil {
		return err
	}

	ranges := make([]string, len(names))
	for i, name := range names {
		ranges[i] = quoteSheet(name)
	}
	err := s.do(ctx, func(ctx context.Context) error {
		_, err := s.service.Spreadsheets.Values.BatchClear(s.spreadsheetID,
			&sheets.BatchClearValuesRequest{Ranges: ranges}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("clear tabs: %w", err)
	}

	data := make([]*sheets.ValueRange, 0, len(sections))
	for _, sec := range sections {
		data = append(data, &sheets.ValueRange{
			Range:  quoteSheet(sec.Name) + "!A1",
			Values: cells(table.Values(sec.Rows)),
		})
	}
	err = s.do(ctx, func(ctx context.Context) error {
		_, err := s.service.Spreadsheets.Values.BatchUpdate(s.spreadsheetID,
			&sheets.BatchUpdateValuesRequest{
				ValueInputOption: "USER_ENTERED",
				Data:             data,
			}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("update values: %w", err)
	}
	return nil
}

// ReadRange returns the cell values of an A1 range such as "AllVideos!A1:M".
func (s *Sheets) ReadRange(ctx context.Context, a1 string) ([][]string, error) {
	var resp *sheets.ValueRange
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = s.service.Spreadsheets.Values.Get(s.spreadsheetID, a1).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", a1, err)
	}

	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			out[i][j] = fmt.Sprint(cell)
		}
	}
	return out, nil
}

func (s *Sheets) ensureTabs(ctx context.Context, names []string) error {
	var doc *sheets.Spreadsheet
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.service.Spreadsheets.Get(s.spreadsheetID).
			Fields("sheets.properties.title").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}

	existing := make(map[string]bool, len(doc.Sheets))
	for _, sh := range doc.Sheets {
		if sh.Properties != nil {
			existing[sh.Properties.Title] = true
		}
	}

	var requests []*sheets.Request
	for _, name := range names {
		if existing[name] {
			continue
		}
		requests = append(requests, &sheets.Request{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: name},
			},
		})
	}
	if len(requests) == 0 {
		return nil
	}

	s.logger.Info("creating spreadsheet tabs", slog.Int("count", len(requests)))
	err = s.do(ctx, func(ctx context.Context) error {
		_, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID,
			&sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("add tabs: %w", err)
	}
	return nil
}

func (s *Sheets) do(ctx context.Context, fn func(context.Context) error) error {
	err := retry.Do(ctx, s.retry, retryableSheets, fn)
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) && s.retry.MaxAttempts == 1 {
		return exhausted.Err
	}
	return err
}

// retryableSheets treats client errors other than rate limiting as final.
func retryableSheets(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests {
		return false
	}
	return retry.IsRetryable(err)
}

// quoteSheet quotes a tab title for use in A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func cells(values [][]string) [][]interface{} {
	out := make([][]interface{}, len(values))
	for i, row := range values {
		out[i] = make([]interface{}, len(row))
		for j, v := range row {
			out[i][j] = v
		}
	}
	return out
}
