// Package pdftext implements the PDF-to-text capability: fetch a
// datasheet over HTTP and extract its plain text. Parsing is delegated
// to github.com/ledongthuc/pdf; this package only adds fetching, size
// limits and whitespace cleanup.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	pdf "github.com/ledongthuc/pdf"

	"github.com/yungbote/partbase-backend/internal/pkg/httpx"
	"github.com/yungbote/partbase-backend/internal/pkg/logger"
	"github.com/yungbote/partbase-backend/internal/utils"
)

// Result is the extracted text of one datasheet.
type Result struct {
	Text      string
	PageCount int
}

type Client interface {
	ExtractFromURL(ctx context.Context, url string) (*Result, error)
}

type client struct {
	log        *logger.Logger
	httpClient *http.Client
	maxBytes   int64
	maxRetries int
}

func NewClient(log *logger.Logger) Client {
	maxMB := utils.GetEnvAsInt("PDF_MAX_DOWNLOAD_MB", 30, log)
	timeout := utils.GetEnvAsDuration("PDF_FETCH_TIMEOUT", 60*time.Second, log)
	return &client{
		log:        log.With("service", "PDFTextClient"),
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   int64(maxMB) * 1024 * 1024,
		maxRetries: 2,
	}
}

type fetchHTTPError struct {
	StatusCode int
}

func (e *fetchHTTPError) Error() string {
	return fmt.Sprintf("pdf fetch http %d", e.StatusCode)
}

func (e *fetchHTTPError) HTTPStatusCode() int { return e.StatusCode }

func (c *client) fetch(ctx context.Context, url string) ([]byte, error) {
	backoff := 1 * time.Second
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		data, err := c.fetchOnce(ctx, url)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return nil, err
		}
		time.Sleep(httpx.JitterSleep(backoff))
		backoff *= 2
	}
	return nil, lastErr
}

func (c *client) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "partbase-datasheet-fetcher/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &fetchHTTPError{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("pdf exceeds %d byte limit", c.maxBytes)
	}
	return data, nil
}

func (c *client) ExtractFromURL(ctx context.Context, url string) (*Result, error) {
	data, err := c.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch datasheet: %w", err)
	}
	if !isPDF(data) {
		return nil, fmt.Errorf("url did not return a pdf (first bytes %q)", string(data[:minInt(len(data), 8)]))
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return nil, fmt.Errorf("pdf read: %w", err)
	}

	return &Result{
		Text:      collapseWhitespace(string(b)),
		PageCount: r.NumPage(),
	}, nil
}

func isPDF(b []byte) bool {
	// PDF starts with "%PDF-"
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

var wsPattern = regexp.MustCompile(`[ \t]+`)

func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = wsPattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
