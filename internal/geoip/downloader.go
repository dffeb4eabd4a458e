// Package geoip resolves country codes of registering game servers from a MaxMind GeoLite2 database,
// downloading and refreshing the database file when it is missing or outdated.
package geoip

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// downloadTimeout bounds a single database download.
const downloadTimeout = 2 * time.Minute

// EnsureDB checks if the GeoIP database exists at path and is younger than maxAge.
// If the file is missing or outdated it is downloaded from url. An empty url disables downloads.
func EnsureDB(ctx context.Context, path, url string, maxAge time.Duration) error {
	info, err := os.Stat(path)

	switch {
	case err == nil:
		if url == "" || time.Since(info.ModTime()) < maxAge {
			log.Info().Str("path", path).Msg("GeoIP database is up to date")
			return nil
		}
		log.Info().Str("path", path).Msg("GeoIP database is outdated, updating...")
	case os.IsNotExist(err):
		if url == "" {
			return fmt.Errorf("geoip database %s missing and no download url set", path)
		}
		log.Info().Str("path", path).Msg("GeoIP database missing, downloading...")
	default:
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	return downloadFile(ctx, path, url)
}

// downloadFile downloads url into a temporary file next to path and renames it into place.
func downloadFile(ctx context.Context, path string, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req) //nolint:gosec
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %d", url, resp.StatusCode)
	}

	tmpPath := path + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, path)
}
