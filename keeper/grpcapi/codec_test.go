package grpcapi

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestJSONCodecRoundTrip(t *testing.T) {
	c := jsonCodec{}
	req := OpRequest{Xid: 1, SessionID: 2, Op: "create", Path: "/a", Data: []byte("v")}

	data, err := c.Marshal(req)
	require.NoError(t, err)

	var got OpRequest
	require.NoError(t, c.Unmarshal(data, &got))
	require.Equal(t, req, got)
}

func TestJSONCodecRegisteredByContentSubtype(t *testing.T) {
	require.Equal(t, jsonCodec{}, encoding.GetCodec(jsonCodecName))
}

func TestJSONCodecUnmarshalRejectsInvalidJSON(t *testing.T) {
	var got OpRequest
	err := jsonCodec{}.Unmarshal([]byte("{not json"), &got)
	require.Error(t, err)
}
