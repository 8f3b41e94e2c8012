// Package ingest parses the three source archives into record batches.
// Parsers are lazy: nothing is read until the returned BatchFunc runs, and a
// BatchFunc can be invoked again to restart the sequence from the beginning.
package ingest

import "context"

// BatchFunc streams record batches to the emit callback. Returning an error
// from emit stops the stream and propagates the error unchanged.
type BatchFunc[T any] func(ctx context.Context, emit func(batch []T) error) error

// Transformer converts British National Grid coordinates to WGS84.
type Transformer interface {
	ToWGS84(easting, northing float64) (lat, lon float64, err error)
}

// batcher accumulates records and emits them in fixed-size batches.
type batcher[T any] struct {
	size int
	buf  []T
	emit func(batch []T) error
}

func newBatcher[T any](size int, emit func(batch []T) error) *batcher[T] {
	if size < 1 {
		size = 1
	}
	return &batcher[T]{
		size: size,
		buf:  make([]T, 0, size),
		emit: emit,
	}
}

func (b *batcher[T]) add(rec T) error {
	b.buf = append(b.buf, rec)
	if len(b.buf) >= b.size {
		return b.flush()
	}
	return nil
}

func (b *batcher[T]) flush() error {
	if len(b.buf) == 0 {
		return nil
	}
	batch := b.buf
	b.buf = make([]T, 0, b.size)
	return b.emit(batch)
}
