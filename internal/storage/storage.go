// Package storage holds line-item photo attachments.
package storage

import (
	"context"
	"io"
)

// Store saves an uploaded image and returns the public URL that goes
// into the line item's image reference.
type Store interface {
	Save(ctx context.Context, filename string, r io.Reader) (url string, err error)
}
