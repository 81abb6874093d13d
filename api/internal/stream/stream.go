// Package stream collects the text fragments of a streaming generation.
package stream

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/api/iterator"
)

// Source yields fragments in delivery order and iterator.Done once the
// stream is finished.
type Source interface {
	Next() (string, error)
}

// Accumulate concatenates every fragment of src. If ctx is cancelled or src
// fails before completion, the partial text is dropped and only the error is
// returned.
func Accumulate(ctx context.Context, src Source) (string, error) {
	var sb strings.Builder
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		frag, err := src.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return "", err
		}
		sb.WriteString(frag)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
