package ecfr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hrprag/internal/domain"
)

const DefaultBaseURL = "https://www.ecfr.gov/api/versioner/v1"

// Client downloads title XML from the eCFR versioner API.
type Client struct {
	baseURL string
	http    *http.Client
	now     func() time.Time
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// LatestIssueDate returns the newest issue date of a title, or today when
// the API does not report one.
func (c *Client) LatestIssueDate(ctx context.Context, title int) (string, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/titles/%d", c.baseURL, title))
	if err != nil {
		return "", err
	}

	var resp struct {
		LatestIssueDate string `json:"latest_issue_date"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decode title info: %v", domain.ErrIngest, err)
	}
	if resp.LatestIssueDate == "" {
		return c.now().Format("2006-01-02"), nil
	}
	return resp.LatestIssueDate, nil
}

// FetchTitle downloads the full XML of title 10 at its latest issue date.
func (c *Client) FetchTitle(ctx context.Context) (string, error) {
	date, err := c.LatestIssueDate(ctx, 10)
	if err != nil {
		return "", err
	}
	body, err := c.get(ctx, fmt.Sprintf("%s/full/%s/title-10.xml", c.baseURL, date))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Download saves the title XML as <dir>/10cfr<part>_<today>.xml.
func (c *Client) Download(ctx context.Context, dir string, part Part) (string, error) {
	xmlContent, err := c.FetchTitle(ctx)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("10cfr%s_%s.xml", part.Number, c.now().Format("2006-01-02")))
	if err := os.WriteFile(path, []byte(xmlContent), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", domain.ErrIngest, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrIngest, url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s returned status %d", domain.ErrIngest, url, resp.StatusCode)
	}
	return body, nil
}
