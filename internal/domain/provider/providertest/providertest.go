// Package providertest provides scripted completion providers for tests.
package providertest

import (
	"context"
	"sync"

	"jan-server/services/chat-api/internal/domain/provider"
)

// SliceStream replays fixed fragments, then reports Err.
type SliceStream struct {
	fragments []string
	err       error
	gate      <-chan struct{}
	ctx       context.Context
	idx       int
	current   string
	closed    bool
	mu        sync.Mutex
}

// NewSliceStream returns a stream yielding fragments followed by err (nil for a clean finish).
func NewSliceStream(fragments []string, err error) *SliceStream {
	return &SliceStream{fragments: fragments, err: err}
}

// WithGate makes every fragment wait for a receive on gate. It lets tests interleave actions
// with an in-flight stream.
func (s *SliceStream) WithGate(gate <-chan struct{}) *SliceStream {
	s.gate = gate
	return s
}

// WithContext ends the stream with ctx.Err() once ctx is cancelled.
func (s *SliceStream) WithContext(ctx context.Context) *SliceStream {
	s.ctx = ctx
	return s
}

func (s *SliceStream) Next() bool {
	if s.idx >= len(s.fragments) {
		return false
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-s.ctx.Done():
			s.err = s.ctx.Err()
			s.idx = len(s.fragments)
			return false
		}
	}
	if s.ctx.Err() != nil {
		s.err = s.ctx.Err()
		s.idx = len(s.fragments)
		return false
	}
	s.current = s.fragments[s.idx]
	s.idx++
	return true
}

func (s *SliceStream) Content() string { return s.current }

func (s *SliceStream) Err() error {
	if s.idx < len(s.fragments) {
		return nil
	}
	return s.err
}

func (s *SliceStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *SliceStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Provider is a func-field CompletionProvider that records every request.
type Provider struct {
	StreamFunc   func(ctx context.Context, req provider.Request) (provider.Stream, error)
	CompleteFunc func(ctx context.Context, req provider.Request) (string, error)

	mu       sync.Mutex
	streams  []provider.Request
	complete []provider.Request
}

// Fragments returns a Provider whose streams replay fragments and whose completions return title.
func Fragments(title string, fragments ...string) *Provider {
	return &Provider{
		StreamFunc: func(context.Context, provider.Request) (provider.Stream, error) {
			return NewSliceStream(fragments, nil), nil
		},
		CompleteFunc: func(context.Context, provider.Request) (string, error) {
			return title, nil
		},
	}
}

func (p *Provider) Stream(ctx context.Context, req provider.Request) (provider.Stream, error) {
	p.mu.Lock()
	p.streams = append(p.streams, req)
	p.mu.Unlock()
	stream, err := p.StreamFunc(ctx, req)
	// Bind scripted streams to the caller's context so cancellation ends them.
	if s, ok := stream.(*SliceStream); ok && err == nil && s.ctx == nil {
		s.ctx = ctx
	}
	return stream, err
}

func (p *Provider) Complete(ctx context.Context, req provider.Request) (string, error) {
	p.mu.Lock()
	p.complete = append(p.complete, req)
	p.mu.Unlock()
	return p.CompleteFunc(ctx, req)
}

// StreamRequests returns a copy of the recorded Stream requests.
func (p *Provider) StreamRequests() []provider.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]provider.Request(nil), p.streams...)
}

// CompleteRequests returns a copy of the recorded Complete requests.
func (p *Provider) CompleteRequests() []provider.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]provider.Request(nil), p.complete...)
}
