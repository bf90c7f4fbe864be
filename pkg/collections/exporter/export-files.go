package exporter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	exportFileSep      = "##"
	exportFileKind     = "submissions"
	exportFileDateForm = "2006-01-02"
)

// ExportFileName returns the file name of a scheduled export, e.g.
// 2025-01-02##submissions##community-grant.csv
func ExportFileName(date time.Time, taskName string, format string) string {
	parts := []string{
		date.Format(exportFileDateForm),
		exportFileKind,
		taskName,
	}
	return strings.Join(parts, exportFileSep) + "." + format
}

// ParseExportFileDate reads the date from a file name created by ExportFileName. ok is false for
// any other file.
func ParseExportFileDate(filename string) (date time.Time, ok bool) {
	parts := strings.Split(filepath.Base(filename), exportFileSep)
	if len(parts) < 3 || parts[1] != exportFileKind {
		return time.Time{}, false
	}
	date, err := time.Parse(exportFileDateForm, parts[0])
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

// WriteExportFile creates filename and fills it with write. If anything fails the file is removed,
// so a file with an export name on disk is always complete.
func WriteExportFile(filename string, write func(w io.Writer) error) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if err == nil {
			return
		}
		if rmErr := os.Remove(filename); rmErr != nil && !os.IsNotExist(rmErr) {
			err = errors.Join(err, rmErr)
		}
	}()

	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// CleanUpExports removes export files under folder that are older than the retention period and
// returns how many were removed. Other files are left alone.
func CleanUpExports(folder string, retention time.Duration, now time.Time) (int, error) {
	cutoff := now.Add(-retention)
	removed := 0
	err := filepath.Walk(folder, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		date, ok := ParseExportFileDate(path)
		if !ok || !date.Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			slog.Error("Failed to remove old submission export", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("cleaning up %s: %w", folder, err)
	}
	return removed, nil
}
