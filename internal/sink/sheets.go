// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/grant-screener/internal/evidence"
	"github.com/pdiddy/grant-screener/internal/httputil"
	"github.com/pdiddy/grant-screener/pkg/types"
)

// sheetsAPIBase is the Sheets v4 endpoint. Declared as a var so tests can
// substitute an httptest server.
var sheetsAPIBase = "https://sheets.googleapis.com/v4/spreadsheets"

// DefaultWorksheet is the tab decisions land on when none is configured.
const DefaultWorksheet = "Grant Screening"

// sheetHeader is row 1 of the worksheet.
var sheetHeader = []string{
	"Foundation", "Classification", "Confidence", "Rationale",
	"Next Application Date", "Sources", "Opportunity", "Amount", "Screened At",
}

// classColors are the row background fills per classification.
var classColors = map[types.Classification]map[string]float64{
	types.ClassGreen:  {"red": 0.85, "green": 0.94, "blue": 0.83},
	types.ClassYellow: {"red": 1.0, "green": 0.95, "blue": 0.80},
	types.ClassRed:    {"red": 0.96, "green": 0.80, "blue": 0.80},
}

// accessTokens abstracts the OAuth token source so tests can stub it.
type accessTokens interface {
	Token(ctx context.Context) (string, error)
}

// Sheets records decisions on a Google Sheets worksheet, one row per
// decision, color-coded by classification.
type Sheets struct {
	spreadsheetID string
	worksheet     string
	client        *http.Client
	tokens        accessTokens

	sheetID int64
	ensured bool
}

// NewSheets builds the worksheet sink from a service-account key file.
func NewSheets(cfg types.SheetsConfig) (*Sheets, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets spreadsheet_id not configured")
	}
	if cfg.CredentialsFile == "" {
		return nil, fmt.Errorf("sheets credentials_file not configured")
	}
	creds, err := loadCredentials(cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	worksheet := cfg.Worksheet
	if worksheet == "" {
		worksheet = DefaultWorksheet
	}

	client := &http.Client{Timeout: timeout}
	return &Sheets{
		spreadsheetID: cfg.SpreadsheetID,
		worksheet:     worksheet,
		client:        client,
		tokens:        newTokenSource(creds, client),
	}, nil
}

// Processed returns the normalized foundation names already on the
// worksheet (column A, below the header).
func (s *Sheets) Processed(ctx context.Context) (map[string]bool, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}

	var body struct {
		Values [][]string `json:"values"`
	}
	path := fmt.Sprintf("%s/%s/values/%s", sheetsAPIBase, s.spreadsheetID, rangeRef(s.worksheet, "A2:A"))
	if err := s.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, fmt.Errorf("reading processed foundations: %w", err)
	}

	processed := make(map[string]bool, len(body.Values))
	for _, row := range body.Values {
		if len(row) > 0 && strings.TrimSpace(row[0]) != "" {
			processed[evidence.Normalize(row[0])] = true
		}
	}
	return processed, nil
}

// Append writes one decision row and fills its background with the
// classification color.
func (s *Sheets) Append(ctx context.Context, d *types.Decision) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}

	row := []any{
		d.Candidate.FoundationName,
		string(d.Classification),
		d.Confidence,
		CleanRationale(d.Rationale),
		dateCell(d.NextActionDate),
		sourcesCell(d.Sources),
		d.Candidate.Name,
		amountCell(d.Candidate.Amount),
		time.Now().Format("2006-01-02 15:04"),
	}

	var appended struct {
		Updates struct {
			UpdatedRange string `json:"updatedRange"`
		} `json:"updates"`
	}
	path := fmt.Sprintf("%s/%s/values/%s:append?valueInputOption=USER_ENTERED&insertDataOption=INSERT_ROWS",
		sheetsAPIBase, s.spreadsheetID, rangeRef(s.worksheet, "A1"))
	payload := map[string]any{"values": [][]any{row}}
	if err := s.do(ctx, http.MethodPost, path, payload, &appended); err != nil {
		return fmt.Errorf("appending decision row: %w", err)
	}

	// The data row is already written at this point.
	if rowNum, ok := parseRowNumber(appended.Updates.UpdatedRange); ok {
		_ = s.formatRow(ctx, rowNum, d)
	}
	return nil
}

// Clear wipes every decision row and its background color, keeping the
// header.
func (s *Sheets) Clear(ctx context.Context) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	path := fmt.Sprintf("%s/%s/values/%s:clear", sheetsAPIBase, s.spreadsheetID, rangeRef(s.worksheet, "A2:Z"))
	if err := s.do(ctx, http.MethodPost, path, map[string]any{}, nil); err != nil {
		return fmt.Errorf("clearing worksheet: %w", err)
	}

	reset := map[string]any{
		"requests": []any{
			map[string]any{
				"repeatCell": map[string]any{
					"range": map[string]any{
						"sheetId":       s.sheetID,
						"startRowIndex": 1,
					},
					"cell":   map[string]any{},
					"fields": "userEnteredFormat.backgroundColor",
				},
			},
		},
	}
	path = fmt.Sprintf("%s/%s:batchUpdate", sheetsAPIBase, s.spreadsheetID)
	if err := s.do(ctx, http.MethodPost, path, reset, nil); err != nil {
		return fmt.Errorf("resetting row colors: %w", err)
	}
	return nil
}

// ensure looks up the worksheet's sheet ID, creating the tab with its header
// row on first use.
func (s *Sheets) ensure(ctx context.Context) error {
	if s.ensured {
		return nil
	}

	var meta struct {
		Sheets []struct {
			Properties struct {
				SheetID int64  `json:"sheetId"`
				Title   string `json:"title"`
			} `json:"properties"`
		} `json:"sheets"`
	}
	path := fmt.Sprintf("%s/%s?fields=sheets.properties", sheetsAPIBase, s.spreadsheetID)
	if err := s.do(ctx, http.MethodGet, path, nil, &meta); err != nil {
		return fmt.Errorf("reading spreadsheet metadata: %w", err)
	}

	for _, sh := range meta.Sheets {
		if sh.Properties.Title == s.worksheet {
			s.sheetID = sh.Properties.SheetID
			s.ensured = true
			return nil
		}
	}

	// Tab does not exist yet.
	var created struct {
		Replies []struct {
			AddSheet struct {
				Properties struct {
					SheetID int64 `json:"sheetId"`
				} `json:"properties"`
			} `json:"addSheet"`
		} `json:"replies"`
	}
	addReq := map[string]any{
		"requests": []any{
			map[string]any{"addSheet": map[string]any{"properties": map[string]any{"title": s.worksheet}}},
		},
	}
	path = fmt.Sprintf("%s/%s:batchUpdate", sheetsAPIBase, s.spreadsheetID)
	if err := s.do(ctx, http.MethodPost, path, addReq, &created); err != nil {
		return fmt.Errorf("creating worksheet %q: %w", s.worksheet, err)
	}
	if len(created.Replies) > 0 {
		s.sheetID = created.Replies[0].AddSheet.Properties.SheetID
	}

	header := make([]any, len(sheetHeader))
	for i, h := range sheetHeader {
		header[i] = h
	}
	path = fmt.Sprintf("%s/%s/values/%s:append?valueInputOption=RAW",
		sheetsAPIBase, s.spreadsheetID, rangeRef(s.worksheet, "A1"))
	if err := s.do(ctx, http.MethodPost, path, map[string]any{"values": [][]any{header}}, nil); err != nil {
		return fmt.Errorf("writing worksheet header: %w", err)
	}

	s.ensured = true
	return nil
}

// sourcesColumn is the zero-based index of the Sources column.
const sourcesColumn = 5

// formatRow fills the row's background with the classification color and
// rewrites the Sources cell as hyperlinked domain labels.
func (s *Sheets) formatRow(ctx context.Context, rowNum int, d *types.Decision) error {
	var requests []any

	if color, ok := classColors[d.Classification]; ok {
		requests = append(requests, map[string]any{
			"repeatCell": map[string]any{
				"range": map[string]any{
					"sheetId":       s.sheetID,
					"startRowIndex": rowNum - 1,
					"endRowIndex":   rowNum,
				},
				"cell": map[string]any{
					"userEnteredFormat": map[string]any{"backgroundColor": color},
				},
				"fields": "userEnteredFormat.backgroundColor",
			},
		})
	}

	if len(d.Sources) > 0 {
		requests = append(requests, map[string]any{
			"updateCells": map[string]any{
				"range": map[string]any{
					"sheetId":          s.sheetID,
					"startRowIndex":    rowNum - 1,
					"endRowIndex":      rowNum,
					"startColumnIndex": sourcesColumn,
					"endColumnIndex":   sourcesColumn + 1,
				},
				"rows":   []any{map[string]any{"values": []any{sourcesCellData(d.Sources)}}},
				"fields": "userEnteredValue,textFormatRuns",
			},
		})
	}

	if len(requests) == 0 {
		return nil
	}
	path := fmt.Sprintf("%s/%s:batchUpdate", sheetsAPIBase, s.spreadsheetID)
	return s.do(ctx, http.MethodPost, path, map[string]any{"requests": requests}, nil)
}

// sourcesCellData builds the Sources cell: newline-joined domain labels, each
// carrying a text-format run linking to the full URL.
func sourcesCellData(cites []types.Citation) map[string]any {
	var b strings.Builder
	var runs []any
	for i, c := range cites {
		if i > 0 {
			b.WriteString("\n")
		}
		runs = append(runs, map[string]any{
			"startIndex": b.Len(),
			"format":     map[string]any{"link": map[string]any{"uri": c.URL}},
		})
		b.WriteString(c.Domain)
	}
	return map[string]any{
		"userEnteredValue": map[string]any{"stringValue": b.String()},
		"textFormatRuns":   runs,
	}
}

// do executes one authenticated Sheets API call, decoding the JSON response
// into out when out is non-nil.
func (s *Sheets) do(ctx context.Context, method, url string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sheets API returned HTTP %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// rationalePrefix matches the structured flag summary the rationale starts
// with. The sheet shows the plain-English remainder; the full text stays in
// the ledger.
var rationalePrefix = regexp.MustCompile(`(?is)^red flags:\s*.*?green flags:\s*\d+\s*/\s*\d+\s*(\([^)]*\))?\.?\s*`)

// CleanRationale strips the structured flag summary for display. When
// nothing would remain, the original text is kept.
func CleanRationale(r string) string {
	cleaned := strings.TrimSpace(rationalePrefix.ReplaceAllString(r, ""))
	if cleaned == "" {
		return strings.TrimSpace(r)
	}
	return cleaned
}

// updatedRangeRow matches the first row number in an A1-style range like
// "Screening!A5:I5".
var updatedRangeRow = regexp.MustCompile(`![A-Z]+(\d+)`)

func parseRowNumber(updatedRange string) (int, bool) {
	m := updatedRangeRow.FindStringSubmatch(updatedRange)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// rangeRef builds a URL-safe A1 reference for a worksheet range.
func rangeRef(worksheet, cells string) string {
	return strings.ReplaceAll(worksheet, " ", "%20") + "!" + cells
}

func dateCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func sourcesCell(cites []types.Citation) string {
	var urls []string
	for _, c := range cites {
		urls = append(urls, c.URL)
	}
	return strings.Join(urls, "\n")
}

func amountCell(amount *float64) string {
	if amount == nil {
		return ""
	}
	return strconv.FormatFloat(*amount, 'f', 0, 64)
}
