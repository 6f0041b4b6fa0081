package handbook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hrprag/internal/domain"
)

// DoclingClient converts PDFs to markdown through a docling-serve instance.
type DoclingClient struct {
	baseURL string
	http    *http.Client
}

func NewDoclingClient(baseURL string, timeout time.Duration) *DoclingClient {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &DoclingClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type doclingResponse struct {
	Document struct {
		MdContent string `json:"md_content"`
	} `json:"document"`
}

// Convert uploads path to /v1/convert/file and returns the markdown.
func (c *DoclingClient) Convert(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/convert/file", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: docling request failed: %v", domain.ErrIngest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read docling response: %v", domain.ErrIngest, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: docling returned status %d", domain.ErrIngest, resp.StatusCode)
	}

	var d doclingResponse
	if err := json.Unmarshal(body, &d); err != nil {
		return "", fmt.Errorf("%w: decode docling response: %v", domain.ErrIngest, err)
	}
	if strings.TrimSpace(d.Document.MdContent) == "" {
		return "", fmt.Errorf("%w: docling returned no markdown for %s", domain.ErrIngest, path)
	}
	return d.Document.MdContent, nil
}
