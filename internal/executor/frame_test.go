package executor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	errno := int32(0)
	req := Request{
		Call: &CallRequest{
			Func: "fd_write",
			Params: []wasitype.Wire{
				{Kind: wasitype.KindU32, Int: 3},
			},
		},
	}
	require.NoError(t, writeFrame(&buf, req))

	var got Request
	require.NoError(t, readFrame(&buf, &got))
	require.Equal(t, req.Call.Func, got.Call.Func)
	require.Equal(t, req.Call.Params, got.Call.Params)

	buf.Reset()
	resp := CallResponse{
		Errno:  &errno,
		Params: []wasitype.Wire{{Kind: wasitype.KindU32, Int: 42}},
	}
	require.NoError(t, writeFrame(&buf, resp))

	var gotResp CallResponse
	require.NoError(t, readFrame(&buf, &gotResp))
	require.Equal(t, *resp.Errno, *gotResp.Errno)
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xff, 0xff, 0xff})

	var v Request
	err := readFrame(&buf, &v)
	require.ErrorIs(t, err, ErrFrameTooLarge)
}
