package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindTooManyRequests, http.StatusTooManyRequests},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.kind.Status())
	}
}

func TestKindOf_SurvivesWrapping(t *testing.T) {
	req := require.New(t)
	base := NotFound("receiver not found")
	wrapped := fmt.Errorf("send message: %w", base)

	req.Equal(KindNotFound, KindOf(wrapped))
	req.ErrorIs(wrapped, base)

	appErr, ok := As(wrapped)
	req.True(ok)
	req.Equal("receiver not found", appErr.Message)

	req.Equal(KindInternal, KindOf(errors.New("boom")))
}

func TestWrap_KeepsCause(t *testing.T) {
	req := require.New(t)
	cause := errors.New("dial tcp: refused")
	err := Wrap(KindInternal, "database unavailable", cause)

	req.ErrorIs(err, cause)
	req.Equal("database unavailable: dial tcp: refused", err.Error())
}
