package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/petrikoro/tally/internal/common"
	"github.com/petrikoro/tally/internal/model"
	"github.com/petrikoro/tally/internal/service"
)

// Reader fetches taxonomy rows from a Google Sheet.
type Reader struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewReader creates a new Google Sheets taxonomy reader.
func NewReader(ctx context.Context, config Config, logger *slog.Logger) (*Reader, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Reader{
		config:  config,
		service: service,
		logger:  logger,
	}, nil
}

// FetchTaxonomy reads the taxonomy worksheet and returns its entries. The
// first row is treated as a header and skipped.
func (r *Reader) FetchTaxonomy(ctx context.Context) ([]model.TaxonomyEntry, error) {
	retryOpts := service.RetryOptions{
		MaxAttempts:  r.config.RetryAttempts,
		InitialDelay: r.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	readRange := fmt.Sprintf("%s!A:E", r.config.WorksheetName)

	var values [][]any
	err := common.WithRetry(ctx, func() error {
		resp, err := r.service.Spreadsheets.Values.Get(r.config.SpreadsheetID, readRange).Context(ctx).Do()
		if err != nil {
			return &common.RetryableError{Err: err, Retryable: true}
		}
		values = resp.Values
		return nil
	}, retryOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy worksheet: %w", err)
	}

	entries, err := ParseTaxonomyRows(values)
	if err != nil {
		return nil, err
	}

	r.logger.Info("fetched taxonomy from sheet",
		"spreadsheet_id", r.config.SpreadsheetID,
		"worksheet", r.config.WorksheetName,
		"entries", len(entries))

	return entries, nil
}

// ParseTaxonomyRows converts raw sheet rows into taxonomy entries. Expected
// columns: id, category, sub_category_i, sub_category_ii, description. Rows
// with a blank ID are skipped.
func ParseTaxonomyRows(rows [][]any) ([]model.TaxonomyEntry, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("taxonomy sheet has no data rows")
	}

	// Skip the header row.
	entries := make([]model.TaxonomyEntry, 0, len(rows)-1)
	for i, row := range rows[1:] {
		id := strings.TrimSpace(cellString(row, 0))
		if id == "" {
			continue
		}

		entry := model.TaxonomyEntry{
			ID:            id,
			Category:      strings.TrimSpace(cellString(row, 1)),
			SubCategoryI:  strings.TrimSpace(cellString(row, 2)),
			SubCategoryII: strings.TrimSpace(cellString(row, 3)),
			Description:   strings.TrimSpace(cellString(row, 4)),
		}
		if entry.Category == "" {
			return nil, fmt.Errorf("taxonomy row %d (%s) has no category", i+2, id)
		}
		entry.FullPath = entry.BuildFullPath()
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("taxonomy sheet has no usable rows")
	}
	return entries, nil
}

func cellString(row []any, idx int) string {
	if idx >= len(row) {
		return ""
	}
	s, _ := row[idx].(string)
	return s
}

// createSheetsService creates a Google Sheets API service using either a
// service account or OAuth2 refresh token credentials.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		oauthConfig := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsReadonlyScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}

		tokenSource = oauthConfig.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}
