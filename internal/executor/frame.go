package executor

import (
	"encoding/binary"
	"io"

	"github.com/hashicorp/go-msgpack/codec"
	"github.com/pkg/errors"
)

// ErrFrameTooLarge guards against a corrupt or adversarial length
// prefix turning a single frame into an unbounded allocation.
var ErrFrameTooLarge = errors.New("executor: frame exceeds maximum size")

// MaxFrameBytes bounds a single frame's payload size.
const MaxFrameBytes = 64 << 20

var mpHandle = &codec.MsgpackHandle{}

// writeFrame writes v as msgpack, prefixed with its big-endian u32
// length, per spec §6's "length-prefixed framed messages".
func writeFrame(w io.Writer, v interface{}) error {
	var payload []byte
	enc := codec.NewEncoderBytes(&payload, mpHandle)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "executor: encode frame")
	}
	if len(payload) > MaxFrameBytes {
		return ErrFrameTooLarge
	}

	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(payload)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return errors.Wrap(err, "executor: write frame length")
	}
	if _, err := w.Write(payload); err != nil {
		return errors.Wrap(err, "executor: write frame payload")
	}
	return nil
}

// readFrame reads one length-prefixed msgpack message into v.
func readFrame(r io.Reader, v interface{}) error {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return errors.Wrap(err, "executor: read frame length")
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])
	if n > MaxFrameBytes {
		return ErrFrameTooLarge
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return errors.Wrap(err, "executor: read frame payload")
	}

	dec := codec.NewDecoderBytes(payload, mpHandle)
	return errors.Wrap(dec.Decode(v), "executor: decode frame")
}
