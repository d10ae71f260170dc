package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"
)

// MinValidFileSize rejects downloads that are really an error page or an
// empty stub. Anything under 5 KiB is not media.
const MinValidFileSize = 5 * 1024

const (
	manualConnectTimeout = 15 * time.Second
	manualHeaderTimeout  = 120 * time.Second
	manualChunkSize      = 64 * 1024
)

// ErrFileTooSmall marks a fetched file that failed the size sanity check.
var ErrFileTooSmall = errors.New("downloaded file is too small to be media")

// ManualDownloader fetches a direct media URL over plain HTTP with the
// headers captured during sniffing. An optional rate limit smooths bursts on
// CDNs that throttle aggressive clients.
type ManualDownloader struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewManualDownloader returns a downloader capped at bytesPerSec, or
// uncapped when bytesPerSec is zero.
func NewManualDownloader(bytesPerSec int) *ManualDownloader {
	d := &ManualDownloader{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: manualConnectTimeout}).DialContext,
				ResponseHeaderTimeout: manualHeaderTimeout,
			},
		},
	}
	if bytesPerSec > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), manualChunkSize)
	}
	return d
}

// Fetch streams url into dest. The file is removed again when it fails the
// minimum-size check, so a server's HTML error page never masquerades as a
// finished download.
func (d *ManualDownloader) Fetch(ctx context.Context, url, dest string, headers map[string]string, onProgress func(written, total int64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("media request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("media server returned status %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	total := resp.ContentLength
	var written int64
	buf := make([]byte, manualChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			os.Remove(dest)
			return err
		}
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if d.limiter != nil {
				if err := d.limiter.WaitN(ctx, n); err != nil {
					os.Remove(dest)
					return err
				}
			}
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				os.Remove(dest)
				return writeErr
			}
			written += int64(n)
			if onProgress != nil {
				onProgress(written, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			os.Remove(dest)
			return readErr
		}
	}
	if err := out.Close(); err != nil {
		return err
	}

	if written < MinValidFileSize {
		os.Remove(dest)
		return fmt.Errorf("%w: %d bytes from %s", ErrFileTooSmall, written, url)
	}
	return nil
}
