package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeStream(deltas []string, final *ChatResponse, err error) Stream {
	contentCh := make(chan string, len(deltas)+1)
	finalCh := make(chan ChatResponse, 1)
	errCh := make(chan error, 1)

	for _, d := range deltas {
		contentCh <- d
	}
	if final != nil {
		finalCh <- *final
	}
	if err != nil {
		errCh <- err
	}
	close(contentCh)
	close(finalCh)
	close(errCh)

	return Stream{Content: contentCh, Final: finalCh, Err: errCh}
}

func TestStreamCollect(t *testing.T) {
	final := ChatResponse{
		Message:      AssistantMessage("hello world", nil),
		FinishReason: "stop",
	}
	s := makeStream([]string{"hello", " ", "world"}, &final, nil)

	text, resp, err := s.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, "hello world", resp.Text())
}

func TestStreamWaitError(t *testing.T) {
	wantErr := errors.New("boom")
	s := makeStream([]string{"partial"}, nil, wantErr)

	var got []string
	_, err := s.Wait(context.Background(), func(d string) { got = append(got, d) })
	assert.ErrorIs(t, err, wantErr)
}

func TestStreamWaitNoFinal(t *testing.T) {
	s := makeStream(nil, nil, nil)
	_, err := s.Wait(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestStreamWaitContextCancel(t *testing.T) {
	// Channels that never close.
	contentCh := make(chan string)
	finalCh := make(chan ChatResponse)
	errCh := make(chan error)
	s := Stream{Content: contentCh, Final: finalCh, Err: errCh}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Wait(ctx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
