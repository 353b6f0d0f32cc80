package xerrors

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	go_json "github.com/goccy/go-json"
)

func TestAs(t *testing.T) {
	t.Parallel()

	cause := errors.New("redis down")
	wrapped := fmt.Errorf("list notifications: %w", ServiceUnavailable(WithCause(cause)))

	got := As(wrapped)
	if got == nil {
		t.Fatal("As() = nil, want *Error")
	}
	if got.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want %d", got.StatusCode, http.StatusServiceUnavailable)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
	if As(cause) != nil {
		t.Error("As() on a plain error should be nil")
	}
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		err            error
		wantStatus     int
		wantBody       Response
		wantRetryAfter string
	}{
		{
			name:       "plain error becomes internal",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   Response{Code: CodeInternal, Message: "internal server error"},
		},
		{
			name:       "not found with message",
			err:        NotFound(WithMessage("notification not found")),
			wantStatus: http.StatusNotFound,
			wantBody:   Response{Code: CodeNotFound, Message: "notification not found"},
		},
		{
			name:       "validation fields",
			err:        Validation(map[string]string{"recipientId": "required"}),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody: Response{
				Code:    CodeValidation,
				Message: "unprocessable entity",
				Fields:  map[string]string{"recipientId": "required"},
			},
		},
		{
			name:       "overridden code",
			err:        BadRequest(WithCode(CodeValidation), WithMessage("bad")),
			wantStatus: http.StatusBadRequest,
			wantBody:   Response{Code: CodeValidation, Message: "bad"},
		},
		{
			name:       "decode over limit",
			err:        Decode(fmt.Errorf("read: %w", &http.MaxBytesError{Limit: 8})),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantBody:   Response{Code: CodePayloadTooLarge, Message: "request entity too large"},
		},
		{
			name:       "decode syntax",
			err:        Decode(errors.New("unexpected EOF")),
			wantStatus: http.StatusBadRequest,
			wantBody:   Response{Code: CodeInvalidRequest, Message: "invalid JSON body"},
		},
		{
			name:           "rate limited",
			err:            TooManyRequests(WithRetryAfter(3*time.Second), WithReason("ip")),
			wantStatus:     http.StatusTooManyRequests,
			wantBody:       Response{Code: CodeRateLimited, Message: "too many requests"},
			wantRetryAfter: "3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			WriteError(t.Context(), rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var got Response
			if err := go_json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if diff := cmp.Diff(tt.wantBody, got); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
			if tt.wantRetryAfter != "" && rec.Header().Get("Retry-After") != tt.wantRetryAfter {
				t.Errorf("Retry-After = %q, want %q", rec.Header().Get("Retry-After"), tt.wantRetryAfter)
			}
		})
	}
}
