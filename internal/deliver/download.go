package deliver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"pagewatch/internal/storage"
)

// ErrFileTooLarge marks a file that exceeds the configured size cap. It is
// a per-file failure like any other; the rest of the batch proceeds.
var ErrFileTooLarge = errors.New("file exceeds size limit")

// download fetches f into the batch directory and returns the local path.
// Partial writes are removed before returning an error.
func (p *Pipeline) download(ctx context.Context, b *batch, f storage.FileRef) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("http status %s", resp.Status)
	}
	if resp.ContentLength > p.maxBytes {
		return "", ErrFileTooLarge
	}

	localPath := b.claim(filename(f, resp.Header.Get("Content-Type")))

	out, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}

	written, err := io.Copy(out, io.LimitReader(resp.Body, p.maxBytes+1))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err == nil && written > p.maxBytes {
		err = ErrFileTooLarge
	}
	if err != nil {
		os.Remove(localPath)
		return "", err
	}
	return localPath, nil
}
