package agent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "modernc.org/sqlite"
)

// ShortsPattern is the LIKE pattern matching YouTube Shorts URLs.
const ShortsPattern = "%youtube.com/shorts/%"

// unixEpochChrome is 1970-01-01 UTC in Chrome time. The gap to 1601 is
// longer than a time.Duration can hold, so conversions go through Unix
// microseconds.
const unixEpochChrome = 11644473600 * 1_000_000

// ChromeTime converts t to Chrome's timestamp format: microseconds since
// 1601-01-01 UTC.
func ChromeTime(t time.Time) int64 {
	return t.UnixMicro() + unixEpochChrome
}

// FromChromeTime converts a Chrome timestamp back to a time.Time.
func FromChromeTime(v int64) time.Time {
	return time.UnixMicro(v - unixEpochChrome)
}

// DefaultHistoryPath returns the History database of Chrome's default
// profile for the current platform.
func DefaultHistoryPath() (string, error) {
	return historyPath(runtime.GOOS, os.Getenv)
}

func historyPath(goos string, getenv func(string) string) (string, error) {
	switch goos {
	case "windows":
		base := getenv("LOCALAPPDATA")
		if base == "" {
			user := getenv("USERNAME")
			if user == "" {
				return "", errors.New("LOCALAPPDATA and USERNAME are not set")
			}
			base = filepath.Join(`C:\Users`, user, "AppData", "Local")
		}
		return filepath.Join(base, "Google", "Chrome", "User Data", "Default", "History"), nil
	case "darwin":
		home := getenv("HOME")
		if home == "" {
			return "", errors.New("HOME is not set")
		}
		return filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default", "History"), nil
	default:
		home := getenv("HOME")
		if home == "" {
			return "", errors.New("HOME is not set")
		}
		return filepath.Join(home, ".config", "google-chrome", "Default", "History"), nil
	}
}

// Visit is one matching row of the history database.
type Visit struct {
	URL       string
	VisitTime int64 // Chrome timestamp
}

// HistoryReader queries a Chrome History database. Chrome keeps the file
// locked while running, so every query works on a private copy.
type HistoryReader struct {
	path    string
	tempDir string
	pattern string
}

// NewHistoryReader returns a reader for the database at path. Copies are
// written to os.TempDir.
func NewHistoryReader(path string) *HistoryReader {
	return &HistoryReader{path: path, tempDir: os.TempDir(), pattern: ShortsPattern}
}

// VisitsSince returns Shorts visits with a last-visit time after since,
// oldest first, at most limit rows.
func (r *HistoryReader) VisitsSince(ctx context.Context, since int64, limit int) ([]Visit, error) {
	snapshot, err := r.snapshot()
	if err != nil {
		return nil, err
	}
	defer os.Remove(snapshot)

	db, err := sql.Open("sqlite", snapshot)
	if err != nil {
		return nil, fmt.Errorf("opening history copy: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT url, last_visit_time FROM urls
		WHERE url LIKE ? AND last_visit_time > ?
		ORDER BY last_visit_time ASC
		LIMIT ?`, r.pattern, since, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.URL, &v.VisitTime); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// snapshot copies the database to a temp file and returns its path.
func (r *HistoryReader) snapshot() (string, error) {
	src, err := os.Open(r.path)
	if err != nil {
		return "", fmt.Errorf("opening history: %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(r.tempDir, "guardian-history-*.db")
	if err != nil {
		return "", fmt.Errorf("creating history copy: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("copying history: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("copying history: %w", err)
	}
	return dst.Name(), nil
}
