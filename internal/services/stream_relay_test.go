package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "chatseek_go_backend/internal/errors"

	"github.com/stretchr/testify/assert"
)

func fragmentChan(fragments ...Fragment) <-chan Fragment {
	ch := make(chan Fragment, len(fragments))
	for _, f := range fragments {
		ch <- f
	}
	close(ch)
	return ch
}

type panickingError struct{}

func (panickingError) Error() string { panic("boom") }

// failingWriter accepts headers but fails every body write.
type failingWriter struct {
	header http.Header
	writes int
}

func (w *failingWriter) Header() http.Header {
	if w.header == nil {
		w.header = http.Header{}
	}
	return w.header
}

func (w *failingWriter) WriteHeader(int) {}

func (w *failingWriter) Write([]byte) (int, error) {
	w.writes++
	return 0, errors.New("broken pipe")
}

func TestStreamRelay_Relay(t *testing.T) {
	upstreamErr := fmt.Errorf("%w: connection refused", apperrors.ErrUpstreamUnavailable)

	testCases := []struct {
		name            string
		fragments       []Fragment
		expectedBody    string
		expectedText    string
		expectedOutcome StreamOutcome
	}{
		{
			name:            "Fragments then done",
			fragments:       []Fragment{{Text: "Hel"}, {Text: "lo"}, {Done: true}},
			expectedBody:    "data: Hel\n\ndata: lo\n\ndata: [DONE]\n\n",
			expectedText:    "Hello",
			expectedOutcome: OutcomeCompleted,
		},
		{
			name:            "Done without fragments",
			fragments:       []Fragment{{Done: true}},
			expectedBody:    "data: [DONE]\n\n",
			expectedOutcome: OutcomeCompleted,
		},
		{
			name:            "Closed sequence counts as completion",
			fragments:       []Fragment{{Text: "partial"}},
			expectedBody:    "data: partial\n\ndata: [DONE]\n\n",
			expectedText:    "partial",
			expectedOutcome: OutcomeCompleted,
		},
		{
			name:            "Immediate upstream failure",
			fragments:       []Fragment{{Err: upstreamErr}},
			expectedBody:    "data: [ERROR] " + upstreamErr.Error() + "\n\n",
			expectedOutcome: OutcomeFailed,
		},
		{
			name:            "Failure after fragments stops the stream",
			fragments:       []Fragment{{Text: "Hi "}, {Err: upstreamErr}, {Text: "ignored"}, {Done: true}},
			expectedBody:    "data: Hi \n\ndata: [ERROR] " + upstreamErr.Error() + "\n\n",
			expectedText:    "Hi ",
			expectedOutcome: OutcomeFailed,
		},
		{
			name:            "Panic while relaying",
			fragments:       []Fragment{{Text: "a"}, {Err: panickingError{}}},
			expectedBody:    "data: a\n\ndata: [ERROR] inference engine unavailable: boom\n\n",
			expectedText:    "a",
			expectedOutcome: OutcomeFailed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			relay := NewStreamRelay(rec)

			result := relay.Relay(context.Background(), fragmentChan(tc.fragments...))

			assert.Equal(t, tc.expectedBody, rec.Body.String())
			assert.Equal(t, tc.expectedText, result.Text)
			assert.Equal(t, tc.expectedOutcome, result.Outcome)
			if tc.expectedOutcome == OutcomeFailed {
				assert.True(t, errors.Is(result.Err, apperrors.ErrUpstreamUnavailable))
			} else {
				assert.NoError(t, result.Err)
			}
			assert.True(t, rec.Flushed)
		})
	}
}

func TestStreamRelay_Headers(t *testing.T) {
	rec := httptest.NewRecorder()

	NewStreamRelay(rec).Relay(context.Background(), fragmentChan(Fragment{Done: true}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rec.Header().Get("Connection"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))
}

func TestStreamRelay_CancelledContext(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Never delivers anything; only the context can end the relay.
	fragments := make(chan Fragment)

	result := NewStreamRelay(rec).Relay(ctx, fragments)

	assert.Equal(t, OutcomeCancelled, result.Outcome)
	assert.True(t, errors.Is(result.Err, apperrors.ErrCancelled))
	assert.Empty(t, rec.Body.String())
}

func TestStreamRelay_WriteFailureIsCancellation(t *testing.T) {
	w := &failingWriter{}

	result := NewStreamRelay(w).Relay(context.Background(), fragmentChan(Fragment{Text: "a"}, Fragment{Text: "b"}, Fragment{Done: true}))

	assert.Equal(t, OutcomeCancelled, result.Outcome)
	assert.Empty(t, result.Text)
	assert.Equal(t, 1, w.writes)
}

func TestStreamOutcome_String(t *testing.T) {
	assert.Equal(t, "completed", OutcomeCompleted.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "cancelled", OutcomeCancelled.String())
}
