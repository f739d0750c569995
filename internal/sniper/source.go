package sniper

import (
	"context"

	"wyvern-matchbot/internal/opensea"
)

// Source yields marketplace order records. Both channels are closed when the
// source is exhausted or ctx is done.
type Source interface {
	Orders(ctx context.Context) (<-chan opensea.Order, <-chan error)
}

// StaticSource replays a fixed list of records, e.g. one read from a file.
type StaticSource []opensea.Order

func (s StaticSource) Orders(ctx context.Context) (<-chan opensea.Order, <-chan error) {
	out := make(chan opensea.Order)
	errs := make(chan error)
	go func() {
		defer close(out)
		defer close(errs)
		for _, o := range s {
			select {
			case out <- o:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, errs
}
