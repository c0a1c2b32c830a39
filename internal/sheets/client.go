// Google Sheets v4 REST implementation of [Spreadsheet]
//
// Endpoint shapes based on https://developers.google.com/sheets/api/reference/rest
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/desertthunder/playlog/internal/shared"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
)

const (
	sheetsBaseURL = "https://sheets.googleapis.com/v4"
	sheetsScope   = "https://www.googleapis.com/auth/spreadsheets"
)

// Client talks to the Google Sheets API and implements [Opener].
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Client using the provided HTTP client, which is
// expected to carry authentication. A nil client falls back to
// [http.DefaultClient]; an empty baseURL falls back to the public API.
func NewClient(baseURL string, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = sheetsBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: client,
		// Sheets quota is 60 requests per minute per user.
		limiter: rate.NewLimiter(rate.Every(time.Second), 10),
	}
}

// NewServiceAccountClient creates a Client authenticated with a Google
// service account JSON key file.
func NewServiceAccountClient(ctx context.Context, keyFile string, timeout time.Duration) (*Client, error) {
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account key: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, sheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid service account key: %v", shared.ErrInvalidConfig, err)
	}

	httpClient := conf.Client(ctx)
	httpClient.Timeout = timeout
	return NewClient("", httpClient), nil
}

// Open fetches the spreadsheet's worksheet index and returns a handle for
// row-level operations.
func (c *Client) Open(ctx context.Context, sheetID string) (Spreadsheet, error) {
	ss := &apiSpreadsheet{client: c, id: sheetID}
	if err := ss.refreshIndex(ctx); err != nil {
		return nil, err
	}
	return ss, nil
}

// doRequest performs an authenticated HTTP request against the Sheets API.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reqBody *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: sheets API status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// sheetProperties mirrors the API's SheetProperties resource.
type sheetProperties struct {
	SheetID int    `json:"sheetId"`
	Title   string `json:"title"`
	Hidden  bool   `json:"hidden,omitempty"`
}

type valueRange struct {
	Range  string     `json:"range,omitempty"`
	Values [][]string `json:"values"`
}

// apiSpreadsheet implements [Spreadsheet] over the REST API.
type apiSpreadsheet struct {
	client *Client
	id     string
	index  map[string]int // title -> numeric sheetId, for batchUpdate ops
}

func (s *apiSpreadsheet) ID() string { return s.id }

func (s *apiSpreadsheet) refreshIndex(ctx context.Context) error {
	var meta struct {
		Sheets []struct {
			Properties sheetProperties `json:"properties"`
		} `json:"sheets"`
	}

	endpoint := fmt.Sprintf("/spreadsheets/%s?fields=sheets.properties", s.id)
	if err := s.client.doRequest(ctx, http.MethodGet, endpoint, nil, &meta); err != nil {
		return fmt.Errorf("failed to load spreadsheet %s: %w", s.id, err)
	}

	s.index = make(map[string]int, len(meta.Sheets))
	for _, sheet := range meta.Sheets {
		s.index[sheet.Properties.Title] = sheet.Properties.SheetID
	}
	return nil
}

func (s *apiSpreadsheet) Worksheet(ctx context.Context, title string) (Worksheet, error) {
	if _, ok := s.index[title]; !ok {
		return nil, fmt.Errorf("%w: %q in spreadsheet %s", shared.ErrWorksheetNotFound, title, s.id)
	}
	return &apiWorksheet{spreadsheet: s, title: title}, nil
}

func (s *apiSpreadsheet) AddWorksheet(ctx context.Context, title string, rows, cols int) (Worksheet, error) {
	request := map[string]any{
		"requests": []map[string]any{{
			"addSheet": map[string]any{
				"properties": map[string]any{
					"title": title,
					"gridProperties": map[string]int{
						"rowCount":    rows,
						"columnCount": cols,
					},
				},
			},
		}},
	}

	endpoint := fmt.Sprintf("/spreadsheets/%s:batchUpdate", s.id)
	if err := s.client.doRequest(ctx, http.MethodPost, endpoint, request, nil); err != nil {
		return nil, fmt.Errorf("failed to add worksheet %q: %w", title, err)
	}

	if err := s.refreshIndex(ctx); err != nil {
		return nil, err
	}
	return &apiWorksheet{spreadsheet: s, title: title}, nil
}

func (s *apiSpreadsheet) SetHidden(ctx context.Context, title string, hidden bool) error {
	sheetID, ok := s.index[title]
	if !ok {
		return fmt.Errorf("%w: %q in spreadsheet %s", shared.ErrWorksheetNotFound, title, s.id)
	}

	request := map[string]any{
		"requests": []map[string]any{{
			"updateSheetProperties": map[string]any{
				"properties": map[string]any{
					"sheetId": sheetID,
					"hidden":  hidden,
				},
				"fields": "hidden",
			},
		}},
	}

	endpoint := fmt.Sprintf("/spreadsheets/%s:batchUpdate", s.id)
	return s.client.doRequest(ctx, http.MethodPost, endpoint, request, nil)
}

// apiWorksheet implements [Worksheet] using A1-notation value endpoints.
type apiWorksheet struct {
	spreadsheet *apiSpreadsheet
	title       string
}

func (w *apiWorksheet) Title() string { return w.title }

func (w *apiWorksheet) valuesEndpoint(a1Range string, params string) string {
	full := url.PathEscape(fmt.Sprintf("%s!%s", w.title, a1Range))
	endpoint := fmt.Sprintf("/spreadsheets/%s/values/%s", w.spreadsheet.id, full)
	if params != "" {
		endpoint += "?" + params
	}
	return endpoint
}

func (w *apiWorksheet) getValues(ctx context.Context, a1Range string) ([][]string, error) {
	var vr valueRange
	if err := w.spreadsheet.client.doRequest(ctx, http.MethodGet, w.valuesEndpoint(a1Range, ""), nil, &vr); err != nil {
		return nil, err
	}
	return vr.Values, nil
}

func (w *apiWorksheet) RowValues(ctx context.Context, row int) ([]string, error) {
	values, err := w.getValues(ctx, fmt.Sprintf("%d:%d", row, row))
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}

func (w *apiWorksheet) ColValues(ctx context.Context, col int) ([]string, error) {
	letter := colLetter(col)
	values, err := w.getValues(ctx, fmt.Sprintf("%s:%s", letter, letter))
	if err != nil {
		return nil, err
	}

	column := make([]string, 0, len(values))
	for _, row := range values {
		if len(row) > 0 {
			column = append(column, row[0])
		} else {
			column = append(column, "")
		}
	}
	return column, nil
}

func (w *apiWorksheet) Rows(ctx context.Context) ([][]string, error) {
	var vr valueRange
	full := url.PathEscape(w.title)
	endpoint := fmt.Sprintf("/spreadsheets/%s/values/%s", w.spreadsheet.id, full)
	if err := w.spreadsheet.client.doRequest(ctx, http.MethodGet, endpoint, nil, &vr); err != nil {
		return nil, err
	}
	return vr.Values, nil
}

func (w *apiWorksheet) UpdateRow(ctx context.Context, row int, values []string) error {
	return w.UpdateRows(ctx, row, [][]string{values})
}

func (w *apiWorksheet) UpdateRows(ctx context.Context, startRow int, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	a1Range := fmt.Sprintf("%d:%d", startRow, startRow+len(rows)-1)
	endpoint := w.valuesEndpoint(a1Range, "valueInputOption=RAW")
	body := valueRange{Values: rows}
	return w.spreadsheet.client.doRequest(ctx, http.MethodPut, endpoint, body, nil)
}

func (w *apiWorksheet) AppendRows(ctx context.Context, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	endpoint := fmt.Sprintf("/spreadsheets/%s/values/%s:append?valueInputOption=RAW&insertDataOption=INSERT_ROWS",
		w.spreadsheet.id, url.PathEscape(fmt.Sprintf("%s!A1", w.title)))
	body := valueRange{Values: rows}
	return w.spreadsheet.client.doRequest(ctx, http.MethodPost, endpoint, body, nil)
}

func (w *apiWorksheet) Resize(ctx context.Context, rows, cols int) error {
	sheetID, ok := w.spreadsheet.index[w.title]
	if !ok {
		return fmt.Errorf("%w: %q", shared.ErrWorksheetNotFound, w.title)
	}

	request := map[string]any{
		"requests": []map[string]any{{
			"updateSheetProperties": map[string]any{
				"properties": map[string]any{
					"sheetId": sheetID,
					"gridProperties": map[string]int{
						"rowCount":    rows,
						"columnCount": cols,
					},
				},
				"fields": "gridProperties.rowCount,gridProperties.columnCount",
			},
		}},
	}

	endpoint := fmt.Sprintf("/spreadsheets/%s:batchUpdate", w.spreadsheet.id)
	return w.spreadsheet.client.doRequest(ctx, http.MethodPost, endpoint, request, nil)
}
