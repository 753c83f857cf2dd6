package raw

import "context"

// Pager is a per-call, forward-only cursor over listing results.
//
// NextPage returns a non-empty page while results remain and (nil, nil)
// exactly once when exhausted; callers must stop after that. Implementations
// must never return an empty non-final page: a page is either non-empty or
// the nil exhaustion marker.
type Pager interface {
	NextPage(ctx context.Context) ([]Entry, error)
}

// slicePager pages over an already-materialized entry list. Used by services
// whose backing call returns the whole listing in one response.
type slicePager struct {
	entries  []Entry
	pageSize int
	offset   int
	done     bool
}

// NewSlicePager builds a pager over entries, yielding pageSize entries per
// page. A pageSize <= 0 falls back to 256.
func NewSlicePager(entries []Entry, pageSize int) Pager {
	if pageSize <= 0 {
		pageSize = 256
	}
	return &slicePager{entries: entries, pageSize: pageSize}
}

func (p *slicePager) NextPage(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.done || p.offset >= len(p.entries) {
		p.done = true
		return nil, nil
	}
	end := p.offset + p.pageSize
	if end > len(p.entries) {
		end = len(p.entries)
	}
	page := p.entries[p.offset:end]
	p.offset = end
	return page, nil
}
