package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/vietddude/luna/internal/core/domain"
)

// ProgressFunc receives bytes written so far and the expected total
// (-1 when the server sent no Content-Length).
type ProgressFunc func(done, total int64)

// Client fetches URLs to local files.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a downloader. timeout bounds a whole transfer.
func NewClient(timeout time.Duration, userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: userAgent,
	}
}

// Fetch downloads url into dest. Data is written to dest+".part" and renamed
// on success so a failed transfer never leaves a truncated dest behind.
func (c *Client) Fetch(ctx context.Context, url, dest string, progress ProgressFunc) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, domain.NewError(domain.KindConfig, "download", url, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, domain.NewError(classifyTransport(err), "download", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("unexpected status %s", resp.Status)
		return 0, domain.NewError(ClassifyStatus(resp.StatusCode), "download", url, statusErr)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, domain.NewError(domain.KindFile, "download", dest, err)
	}
	part := dest + ".part"
	f, err := os.Create(part)
	if err != nil {
		return 0, domain.NewError(domain.KindFile, "download", part, err)
	}

	body := io.Reader(resp.Body)
	if progress != nil {
		body = &progressReader{r: resp.Body, total: resp.ContentLength, fn: progress}
	}
	n, copyErr := io.Copy(f, body)
	closeErr := f.Close()
	if copyErr != nil {
		_ = os.Remove(part)
		return n, domain.NewError(classifyTransport(copyErr), "download", url, copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(part)
		return n, domain.NewError(domain.KindFile, "download", part, closeErr)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		_ = os.Remove(part)
		short := fmt.Errorf("short body: got %d of %d bytes", n, resp.ContentLength)
		return n, domain.NewError(domain.KindNetwork, "download", url, short)
	}

	if err := os.Rename(part, dest); err != nil {
		_ = os.Remove(part)
		return n, domain.NewError(domain.KindFile, "download", dest, err)
	}
	return n, nil
}

// ClassifyStatus maps an HTTP status to an error kind. Server-side and
// throttling statuses are worth retrying, client errors are not.
func ClassifyStatus(code int) domain.ErrorKind {
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return domain.KindNetwork
	case code >= 500:
		return domain.KindNetwork
	default:
		return domain.KindRecoverable
	}
}

func classifyTransport(err error) domain.ErrorKind {
	if errors.Is(err, context.Canceled) {
		return domain.KindInterrupted
	}
	// Timeouts, resets, truncated bodies and TLS failures are all transient.
	return domain.KindNetwork
}

type progressReader struct {
	r     io.Reader
	done  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.done += int64(n)
		p.fn(p.done, p.total)
	}
	return n, err
}
