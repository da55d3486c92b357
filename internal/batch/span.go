package batch

import "fmt"

// Span is a half-open window [Start, End) over a URL list.
type Span struct {
	Start int
	End   int
}

// String returns the span in "start-end" format, with End inclusive.
func (s Span) String() string {
	return fmt.Sprintf("%d-%d", s.Start, s.End-1)
}

// Size returns the number of rows in the span.
func (s Span) Size() int {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

// Split splits the span into consecutive spans of at most maxSize rows.
func (s Span) Split(maxSize int) []Span {
	if s.Size() == 0 {
		return nil
	}
	if maxSize <= 0 || s.Size() <= maxSize {
		return []Span{s}
	}

	var spans []Span
	for current := s.Start; current < s.End; current += maxSize {
		spans = append(spans, Span{Start: current, End: min(current+maxSize, s.End)})
	}
	return spans
}

// Chunk partitions items into consecutive slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	spans := Span{Start: 0, End: len(items)}.Split(size)
	chunks := make([][]T, 0, len(spans))
	for _, sp := range spans {
		chunks = append(chunks, items[sp.Start:sp.End])
	}
	return chunks
}
