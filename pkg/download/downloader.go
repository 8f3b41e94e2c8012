// Package download fetches source archives to local disk.
package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/Gobusters/ectologger"
	"golang.org/x/sync/errgroup"

	pipeerrors "github.com/postcode-lookup/pipeline/pkg/errors"
)

// Source names one archive to fetch and where to put it.
type Source struct {
	Name string
	URL  string
	Dest string
}

type Downloader struct {
	client      *http.Client
	concurrency int
	logger      ectologger.Logger
}

func New(client *http.Client, concurrency int, logger ectologger.Logger) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Downloader{
		client:      client,
		concurrency: concurrency,
		logger:      logger,
	}
}

// FetchAll downloads the given sources concurrently, bounded by the
// configured concurrency. It returns the sha256 hex digest per source name.
// The first failure cancels the remaining downloads.
func (d *Downloader) FetchAll(ctx context.Context, sources []Source, force bool) (map[string]string, error) {
	digests := make(map[string]string, len(sources))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for _, src := range sources {
		g.Go(func() error {
			digest, err := d.Fetch(ctx, src, force)
			if err != nil {
				return err
			}

			mu.Lock()
			digests[src.Name] = digest
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return digests, nil
}

// Fetch downloads a single source unless the destination already exists.
// The body streams to a temp file which is renamed into place only after a
// complete read, so a partial download never shadows the destination.
func (d *Downloader) Fetch(ctx context.Context, src Source, force bool) (string, error) {
	log := d.logger.WithContext(ctx).WithFields(map[string]any{
		"source": src.Name,
		"dest":   src.Dest,
	})

	if !force {
		if _, err := os.Stat(src.Dest); err == nil {
			log.Info("File already present, skipping download")
			digest, err := hashFile(src.Dest)
			if err != nil {
				return "", pipeerrors.NewDownloadError(src.Name, src.URL, err)
			}
			return digest, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(src.Dest), 0o755); err != nil {
		return "", pipeerrors.NewDownloadError(src.Name, src.URL, err)
	}

	log.Infof("Downloading %s", src.URL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return "", pipeerrors.NewDownloadError(src.Name, src.URL, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", pipeerrors.NewDownloadError(src.Name, src.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", pipeerrors.NewDownloadError(src.Name, src.URL, fmt.Errorf("unexpected status %s", resp.Status)).
			WithStatusCode(resp.StatusCode)
	}

	tmp := src.Dest + ".tmp"
	digest, err := d.writeFile(tmp, resp.Body)
	if err != nil {
		_ = os.Remove(tmp)
		return "", pipeerrors.NewDownloadError(src.Name, src.URL, err)
	}

	if err := os.Rename(tmp, src.Dest); err != nil {
		_ = os.Remove(tmp)
		return "", pipeerrors.NewDownloadError(src.Name, src.URL, err)
	}

	log.WithField("sha256", digest).Info("Download complete")
	return digest, nil
}

func (d *Downloader) writeFile(path string, body io.Reader) (string, error) {
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(f, hasher), body); err != nil {
		f.Close()
		return "", err
	}

	if err := f.Close(); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
