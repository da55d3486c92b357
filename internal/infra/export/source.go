package export

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultURLColumn is the URL column of GDELT snippet exports.
const DefaultURLColumn = "content_url"

// ReadURLs loads a URL list. Files ending in .csv are read as CSV with a
// header row and the URLs taken from column; anything else is read as one
// URL per line, ignoring blank lines and lines starting with '#'.
func ReadURLs(path, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open url list: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		if column == "" {
			column = DefaultURLColumn
		}
		return readCSVColumn(f, column)
	}
	return readLines(f)
}

func readLines(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read url list: %w", err)
	}
	return urls, nil
}

func readCSVColumn(r io.Reader, column string) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	idx := -1
	for i, name := range header {
		if strings.TrimSpace(name) == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found in csv header", column)
	}

	var urls []string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		if idx < len(rec) {
			if u := strings.TrimSpace(rec[idx]); u != "" {
				urls = append(urls, u)
			}
		}
	}
	return urls, nil
}

// Window selects rows [start, end) from urls. end <= 0 means start+ndocs,
// or the end of the list when ndocs is also <= 0. Out of range bounds are
// clamped.
func Window(urls []string, start, end, ndocs int) ([]string, int, int, error) {
	if start < 0 {
		return nil, 0, 0, fmt.Errorf("start row must be >= 0, got %d", start)
	}
	if end <= 0 {
		if ndocs > 0 {
			end = start + ndocs
		} else {
			end = len(urls)
		}
	}
	if end < start && end != len(urls) {
		return nil, 0, 0, fmt.Errorf("end row %d before start row %d", end, start)
	}
	start = min(start, len(urls))
	end = max(min(end, len(urls)), start)
	return urls[start:end], start, end, nil
}
