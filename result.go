package neokit

import (
	"context"
	"iter"
)

// Stream is the driver-side half of a Result. Implementations pull records
// from the server as Next is called.
type Stream interface {
	Keys() ([]string, error)
	Next(ctx context.Context) bool
	Record() Record
	Err() error
	Consume(ctx context.Context) (Summary, error)
}

// Result is a lazy, finite, non-restartable sequence of records.
// Callers may read a prefix and stop; records already read cannot be replayed.
type Result struct {
	stream  Stream
	current Record
	read    int
	done    bool
	summary *Summary
}

// NewResult wraps a Stream.
func NewResult(s Stream) *Result {
	return &Result{stream: s}
}

// Keys returns the column names.
func (r *Result) Keys() ([]string, error) {
	return r.stream.Keys()
}

// Next advances to the next record. It returns false once the result is
// exhausted, consumed, or failed; check Err afterwards.
func (r *Result) Next(ctx context.Context) bool {
	if r.done {
		return false
	}

	if !r.stream.Next(ctx) {
		r.done = true
		r.current = Record{}

		return false
	}

	r.current = r.stream.Record()
	r.read++

	return true
}

// Record returns the record Next moved to.
func (r *Result) Record() Record {
	return r.current
}

// Err returns the error that stopped iteration, if any.
func (r *Result) Err() error {
	return r.stream.Err()
}

// All iterates over the remaining records. Iteration stops at the first error,
// which is yielded with a zero Record.
func (r *Result) All(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for r.Next(ctx) {
			if !yield(r.current, nil) {
				return
			}
		}

		if err := r.Err(); err != nil {
			yield(Record{}, err)
		}
	}
}

// Collect reads all remaining records. It fails with ErrResultConsumed when the
// cursor was already exhausted after records had been read.
func (r *Result) Collect(ctx context.Context) ([]Record, error) {
	if r.done && r.read > 0 {
		return nil, ErrResultConsumed
	}

	records := []Record{}

	for r.Next(ctx) {
		records = append(records, r.current)
	}

	if err := r.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// Single returns the only remaining record.
func (r *Result) Single(ctx context.Context) (Record, error) {
	if !r.Next(ctx) {
		if err := r.Err(); err != nil {
			return Record{}, err
		}

		return Record{}, ErrNoRecords
	}

	rec := r.current

	if r.Next(ctx) {
		_, _ = r.Consume(ctx)

		return Record{}, ErrMultipleRecords
	}

	return rec, r.Err()
}

// Consume discards the remaining records and returns the summary.
func (r *Result) Consume(ctx context.Context) (Summary, error) {
	if r.summary != nil {
		return *r.summary, nil
	}

	r.done = true

	s, err := r.stream.Consume(ctx)
	if err != nil {
		return Summary{}, err
	}

	r.summary = &s

	return s, nil
}

// StaticStream serves records from memory.
type StaticStream struct {
	keys    []string
	records []Record
	summary Summary
	pos     int
}

// NewStaticResult returns a Result over in-memory records.
func NewStaticResult(keys []string, records []Record, summary Summary) *Result {
	return NewResult(&StaticStream{keys: keys, records: records, summary: summary, pos: -1})
}

// Keys returns the column names.
func (s *StaticStream) Keys() ([]string, error) { return s.keys, nil }

// Next advances to the next record.
func (s *StaticStream) Next(context.Context) bool {
	if s.pos+1 >= len(s.records) {
		s.pos = len(s.records)

		return false
	}

	s.pos++

	return true
}

// Record returns the current record.
func (s *StaticStream) Record() Record {
	if s.pos < 0 || s.pos >= len(s.records) {
		return Record{}
	}

	return s.records[s.pos]
}

// Err always returns nil.
func (s *StaticStream) Err() error { return nil }

// Consume returns the configured summary.
func (s *StaticStream) Consume(context.Context) (Summary, error) {
	s.pos = len(s.records)

	return s.summary, nil
}
