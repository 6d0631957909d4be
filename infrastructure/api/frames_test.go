package api

import (
	"testing"

	"group-chat/errors"

	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    any
		wantErr bool
	}{
		{name: "subscribe", raw: `{"type":"subscribe","group_id":"g1"}`, want: subscribeCommand{GroupID: "g1"}},
		{name: "unsubscribe", raw: `{"type":"unsubscribe","group_id":"g1"}`, want: unsubscribeCommand{GroupID: "g1"}},
		{name: "send", raw: `{"type":"send","group_id":"g1","correlation_id":"c-1","content":"hi"}`,
			want: sendCommand{GroupID: "g1", CorrelationID: "c-1", Content: "hi"}},
		{name: "ping", raw: `{"type":"ping"}`, want: pingCommand{}},
		{name: "subscribe without group", raw: `{"type":"subscribe"}`, wantErr: true},
		{name: "send without group", raw: `{"type":"send","content":"hi"}`, wantErr: true},
		{name: "unknown type", raw: `{"type":"join","group_id":"g1"}`, wantErr: true},
		{name: "not json", raw: `subscribe g1`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			got, err := parseFrame([]byte(tt.raw))
			if tt.wantErr {
				req.ErrorIs(err, errors.ErrInvalidPayload)
				return
			}
			req.NoError(err)
			req.Equal(tt.want, got)
		})
	}
}
