package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/edgard/groupmate/internal/errors"
)

func TestCode(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("disk full")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "store error", err: errors.NewStoreError("write profiles", cause), want: errors.CodeStore},
		{name: "wrapped api error", err: fmt.Errorf("answer: %w", errors.NewAPIError("completion", cause)), want: errors.CodeAPI},
		{name: "config error without cause", err: errors.NewConfigError("token missing", nil), want: errors.CodeConfig},
		{name: "plain error", err: cause, want: errors.CodeUnknown},
		{name: "nil", err: nil, want: errors.CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := errors.Code(tt.err); got != tt.want {
				t.Errorf("Code() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSentinels(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("boom")
	err := fmt.Errorf("flush: %w", errors.NewStoreError("save history", cause))

	if !stderrors.Is(err, errors.ErrStore) {
		t.Error("expected errors.Is to match ErrStore")
	}
	if stderrors.Is(err, errors.ErrAPI) {
		t.Error("did not expect errors.Is to match ErrAPI")
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected the cause to stay reachable")
	}
	if got, want := err.Error(), "flush: save history: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
