package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatus_WrappedSentinel(t *testing.T) {
	req := require.New(t)

	err := fmt.Errorf("%w: disk full", ErrStoreUnavailable)

	req.Equal(http.StatusServiceUnavailable, HTTPStatus(err))
	req.Equal("store_unavailable", Code(err))
}

func TestHTTPStatus_Unknown(t *testing.T) {
	req := require.New(t)

	err := fmt.Errorf("boom")

	req.Equal(http.StatusInternalServerError, HTTPStatus(err))
	req.Equal("internal", Code(err))
}

func TestHTTPStatus_Forbidden(t *testing.T) {
	req := require.New(t)
	req.Equal(http.StatusForbidden, HTTPStatus(ErrForbidden))
	req.Equal(http.StatusUnauthorized, HTTPStatus(ErrUnauthenticated))
	req.Equal("profile_required", Code(ErrProfileRequired))
}
