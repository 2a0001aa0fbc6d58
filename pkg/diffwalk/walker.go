package diffwalk

import (
	"context"
	"errors"
	"fmt"
)

// ErrRepository is returned when a repository cannot be opened or a diff
// cannot be computed from it.
var ErrRepository = errors.New("repository error")

// Conventional refs and the context size that keeps whole files in one hunk.
const (
	DefaultHead         = "HEAD"
	DefaultMergeBase    = "master"
	DefaultContextLines = 10000
)

// Request selects the revisions to compare. The diff runs from the merge base
// of MergeBase and Head to Head.
type Request struct {
	MergeBase    string
	Head         string
	ContextLines int
}

// WithDefaults fills empty fields with the conventional values.
func (r Request) WithDefaults() Request {
	if r.MergeBase == "" {
		r.MergeBase = DefaultMergeBase
	}

	if r.Head == "" {
		r.Head = DefaultHead
	}

	if r.ContextLines <= 0 {
		r.ContextLines = DefaultContextLines
	}

	return r
}

// Provider computes patch sets.
type Provider interface {
	Diff(ctx context.Context, req Request) (PatchSet, error)
}

// Walker asks its provider for a fresh patch set on every Walk. Nothing is
// cached between calls.
type Walker struct {
	provider Provider
	request  Request
}

// NewWalker binds a provider to a request.
func NewWalker(provider Provider, req Request) *Walker {
	return &Walker{provider: provider, request: req.WithDefaults()}
}

// Request returns the request the walker issues.
func (w *Walker) Request() Request {
	return w.request
}

// Walk computes the diff.
func (w *Walker) Walk(ctx context.Context) (PatchSet, error) {
	err := ctx.Err()
	if err != nil {
		return PatchSet{}, fmt.Errorf("walk diff: %w", err)
	}

	return w.provider.Diff(ctx, w.request)
}
