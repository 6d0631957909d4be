package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthenticated  = fmt.Errorf("unauthenticated")
	ErrForbidden        = fmt.Errorf("forbidden")
	ErrInvalidContent   = fmt.Errorf("invalid content")
	ErrNotFound         = fmt.Errorf("not found")
	ErrStoreUnavailable = fmt.Errorf("store unavailable")
	ErrFeedUnavailable  = fmt.Errorf("feed unavailable")
	ErrInvalidState     = fmt.Errorf("invalid state")
	ErrProfileRequired  = fmt.Errorf("profile required")
	ErrSessionClosed    = fmt.Errorf("session closed")
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrInvalidPayload   = fmt.Errorf("invalid payload")
	ErrSinkFull         = fmt.Errorf("sink buffer full")
)

type mapping struct {
	err    error
	status int
	code   string
}

var mappings = []mapping{
	{ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{ErrForbidden, http.StatusForbidden, "forbidden"},
	{ErrProfileRequired, http.StatusPreconditionRequired, "profile_required"},
	{ErrInvalidContent, http.StatusBadRequest, "invalid_content"},
	{ErrInvalidPayload, http.StatusBadRequest, "invalid_payload"},
	{ErrNotFound, http.StatusNotFound, "not_found"},
	{ErrInvalidState, http.StatusConflict, "invalid_state"},
	{ErrSessionClosed, http.StatusGone, "session_closed"},
	{ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
	{ErrFeedUnavailable, http.StatusServiceUnavailable, "feed_unavailable"},
}

func lookup(err error) (mapping, bool) {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return m, true
		}
	}
	return mapping{}, false
}

// HTTPStatus maps an error to the status returned by the HTTP edge.
func HTTPStatus(err error) int {
	if m, ok := lookup(err); ok {
		return m.status
	}
	return http.StatusInternalServerError
}

// Code maps an error to the stable code written in error payloads and frames.
func Code(err error) string {
	if m, ok := lookup(err); ok {
		return m.code
	}
	return "internal"
}

// Is lets callers compare against sentinels without importing both errors packages.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
