package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vietddude/argmine/internal/core/domain"
	"github.com/vietddude/argmine/internal/reduce"
)

// Table names used in output file names.
const (
	DataDocs      = "docs"
	DataSentences = "sentences"
	DataMissing   = "missing"
)

// Config holds CSV output settings.
type Config struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

// Writer writes reduced tables to CSV files in one directory.
type Writer struct {
	dir    string
	prefix string
	digits int
}

// NewWriter creates the output directory. total is the size of the full
// input list and sets the zero padding of row numbers in file names.
func NewWriter(cfg Config, total int) (*Writer, error) {
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "argmine"
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &Writer{dir: cfg.Dir, prefix: cfg.Prefix, digits: len(strconv.Itoa(total))}, nil
}

// FileName returns e.g. "gdelt_2020_docs0100-0199.csv" for rows 100..199.
func (w *Writer) FileName(data string, start, end int) string {
	return fmt.Sprintf("%s_%s_docs%0*d-%0*d.csv", w.prefix, data, w.digits, start, w.digits, end)
}

// WriteTables writes the three tables for the inclusive row range
// [start, end] and returns the paths written.
func (w *Writer) WriteTables(t reduce.Tables, start, end int) ([]string, error) {
	docs := make([][]string, 0, len(t.Documents))
	for _, d := range t.Documents {
		docs = append(docs, d.Row())
	}
	sentences := make([][]string, 0, len(t.Sentences))
	for _, s := range t.Sentences {
		sentences = append(sentences, s.Row())
	}
	missing := make([][]string, 0, len(t.MissingURLs))
	for _, u := range t.MissingURLs {
		missing = append(missing, []string{u})
	}

	files := []struct {
		data   string
		header []string
		rows   [][]string
	}{
		{DataDocs, domain.DocumentColumns, docs},
		{DataSentences, domain.SentenceColumns, sentences},
		{DataMissing, []string{"url"}, missing},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(w.dir, w.FileName(f.data, start, end))
		if err := writeCSV(path, f.header, f.rows); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Sync()
}
