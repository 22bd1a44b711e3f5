package codec

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/zhaox1n/datafuse/datablocks"
	dv "github.com/zhaox1n/datafuse/datavalues"
)

// maxFrameSize bounds a single frame read from a stream.
const maxFrameSize = 1 << 30

// Writer appends length-prefixed frames to an io.Writer.
type Writer struct {
	w      io.Writer
	codec  *Codec
	blocks int
}

func NewWriter(w io.Writer, codec *Codec) *Writer {
	return &Writer{w: w, codec: codec}
}

func (w *Writer) Write(block *datablocks.DataBlock) error {
	frame, err := w.codec.Encode(block)
	if err != nil {
		return err
	}
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(frame)))
	if _, err := w.w.Write(size[:]); err != nil {
		return errors.Wrap(err, "write frame size")
	}
	if _, err := w.w.Write(frame); err != nil {
		return errors.Wrap(err, "write frame")
	}
	w.blocks++
	return nil
}

// Blocks is the number of frames written so far.
func (w *Writer) Blocks() int { return w.blocks }

// Reader decodes the frames written by Writer. The schema is taken from the
// first frame, so an empty stream cannot be opened.
type Reader struct {
	r       io.Reader
	codec   *Codec
	schema  *dv.DataSchema
	pending *datablocks.DataBlock
}

func NewReader(r io.Reader, codec *Codec) (*Reader, error) {
	reader := &Reader{r: r, codec: codec}
	first, err := reader.readFrame()
	if err == io.EOF {
		return nil, errors.Wrap(ErrCorruptFrame, "empty block stream")
	}
	if err != nil {
		return nil, err
	}
	reader.schema = first.Schema()
	reader.pending = first
	return reader, nil
}

func (r *Reader) Schema() *dv.DataSchema { return r.schema }

// Next returns the next block or io.EOF at the end of the stream.
func (r *Reader) Next() (*datablocks.DataBlock, error) {
	if r.pending != nil {
		b := r.pending
		r.pending = nil
		return b, nil
	}
	return r.readFrame()
}

func (r *Reader) readFrame() (*datablocks.DataBlock, error) {
	var size [4]byte
	if _, err := io.ReadFull(r.r, size[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "read frame size")
	}
	n := binary.LittleEndian.Uint32(size[:])
	if n > maxFrameSize {
		return nil, errors.Wrapf(ErrCorruptFrame, "frame of %d bytes exceeds limit", n)
	}
	frame := make([]byte, n)
	if _, err := io.ReadFull(r.r, frame); err != nil {
		return nil, errors.Wrap(err, "read frame")
	}
	block, err := r.codec.Decode(frame)
	if err != nil {
		return nil, err
	}
	if r.schema != nil && !r.schema.Equal(block.Schema()) {
		return nil, errors.Wrapf(ErrCorruptFrame, "frame schema %s differs from stream schema %s", block.Schema(), r.schema)
	}
	return block, nil
}
