package provider

import (
	"context"
)

// Stream delivers one streaming chat completion. Content carries text deltas
// in arrival order, Final carries at most one terminal response, Err carries
// at most one error. All three channels are closed when the exchange ends.
type Stream struct {
	Content <-chan string
	Final   <-chan ChatResponse
	Err     <-chan error
}

// Wait drains the stream until every channel is closed, invoking onDelta for
// each content chunk. It returns the terminal response, or the first error
// observed on Err or from the context.
func (s Stream) Wait(ctx context.Context, onDelta func(delta string)) (ChatResponse, error) {
	content, final, errs := s.Content, s.Final, s.Err

	var resp ChatResponse
	var done bool

	for content != nil || final != nil || errs != nil {
		select {
		case delta, ok := <-content:
			if !ok {
				content = nil
				continue
			}
			if onDelta != nil {
				onDelta(delta)
			}

		case r, ok := <-final:
			if !ok {
				final = nil
				continue
			}
			resp = r
			done = true

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return resp, err
			}

		case <-ctx.Done():
			return resp, ctx.Err()
		}
	}

	if !done {
		return resp, ErrNoChoices
	}
	return resp, nil
}

// Collect drains the stream and returns the concatenated content alongside
// the terminal response.
func (s Stream) Collect(ctx context.Context) (string, ChatResponse, error) {
	var buf []byte
	resp, err := s.Wait(ctx, func(delta string) {
		buf = append(buf, delta...)
	})
	return string(buf), resp, err
}
