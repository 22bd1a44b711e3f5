package codec

import (
	"bytes"
	"encoding/binary"
	"math"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/zhaox1n/datafuse/datablocks"
	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/trace"
)

var (
	frameMagic = []byte("DFBK")

	// ErrCorruptFrame is returned for frames that are truncated or malformed.
	ErrCorruptFrame = errors.New("corrupt block frame")
)

const (
	frameVersion byte = 1

	columnArray    byte = 0
	columnConstant byte = 1

	valueNull  byte = 0
	valueValid byte = 1
)

// Codec encodes blocks with one compression and decodes frames of any
// compression.
type Codec struct {
	compressor Compressor

	mu       sync.Mutex
	decoders map[CompressionType]Compressor
}

func NewCodec(t CompressionType) (*Codec, error) {
	c, err := NewCompressor(t)
	if err != nil {
		return nil, err
	}
	return &Codec{
		compressor: c,
		decoders:   map[CompressionType]Compressor{t: c},
	}, nil
}

func (c *Codec) Compression() CompressionType { return c.compressor.Type() }

func (c *Codec) decoder(t CompressionType) (Compressor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.decoders[t]; ok {
		return d, nil
	}
	d, err := NewCompressor(t)
	if err != nil {
		return nil, err
	}
	c.decoders[t] = d
	return d, nil
}

// Encode serializes block into a self-describing frame:
// magic, version, compression, uvarint raw length, compressed payload.
func (c *Codec) Encode(block *datablocks.DataBlock) ([]byte, error) {
	payload := encodeSchema(nil, block.Schema())
	payload = binary.AppendUvarint(payload, uint64(block.NumRows()))
	for _, col := range block.Columns() {
		payload = encodeColumn(payload, col)
	}

	compressed, err := c.compressor.Compress(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "compress block with %s", c.compressor.Type())
	}
	frame := make([]byte, 0, len(compressed)+16)
	frame = append(frame, frameMagic...)
	frame = append(frame, frameVersion, byte(c.compressor.Type()))
	frame = binary.AppendUvarint(frame, uint64(len(payload)))
	frame = append(frame, compressed...)

	trace.GetTracer().Verbose(trace.ComponentCodec, "Encoded block", trace.Context(
		"rows", block.NumRows(),
		"raw_bytes", len(payload),
		"frame_bytes", len(frame),
		"compression", c.compressor.Type().String(),
	))
	return frame, nil
}

// Decode restores a block from a frame produced by Encode.
func (c *Codec) Decode(frame []byte) (*datablocks.DataBlock, error) {
	if len(frame) < len(frameMagic)+2 || !bytes.Equal(frame[:len(frameMagic)], frameMagic) {
		return nil, errors.Wrap(ErrCorruptFrame, "bad magic")
	}
	frame = frame[len(frameMagic):]
	if frame[0] != frameVersion {
		return nil, errors.Wrapf(ErrCorruptFrame, "unsupported frame version %d", frame[0])
	}
	d, err := c.decoder(CompressionType(frame[1]))
	if err != nil {
		return nil, err
	}
	rawLen, n := binary.Uvarint(frame[2:])
	if n <= 0 {
		return nil, errors.Wrap(ErrCorruptFrame, "bad payload length")
	}
	payload, err := d.Decompress(frame[2+n:])
	if err != nil {
		return nil, err
	}
	if uint64(len(payload)) != rawLen {
		return nil, errors.Wrapf(ErrCorruptFrame, "payload is %d bytes, expected %d", len(payload), rawLen)
	}

	r := &cursor{buf: payload}
	schema := decodeSchema(r)
	rows := int(r.readUvarint())
	if r.err != nil {
		return nil, r.err
	}
	columns := make([]dv.DataColumn, schema.NumFields())
	for i, f := range schema.Fields() {
		columns[i] = decodeColumn(r, f.DataType, rows)
		if r.err != nil {
			return nil, errors.Wrapf(r.err, "column %s", f.Name)
		}
	}
	if len(r.buf) != 0 {
		return nil, errors.Wrapf(ErrCorruptFrame, "%d trailing bytes", len(r.buf))
	}
	return datablocks.Create(schema, columns)
}

func encodeString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func encodeType(buf []byte, t dv.DataType) []byte {
	buf = append(buf, byte(t.ID()))
	if t.ID() == dv.TypeList {
		buf = encodeType(buf, t.Elem())
	}
	return buf
}

func encodeSchema(buf []byte, schema *dv.DataSchema) []byte {
	buf = binary.AppendUvarint(buf, uint64(schema.NumFields()))
	for _, f := range schema.Fields() {
		buf = encodeString(buf, f.Name)
		buf = encodeType(buf, f.DataType)
		if f.Nullable {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	return buf
}

func encodeColumn(buf []byte, col dv.DataColumn) []byte {
	if col.IsConstant() {
		buf = append(buf, columnConstant)
		return encodeValue(buf, col.ConstantValue())
	}
	buf = append(buf, columnArray)
	for i := 0; i < col.Len(); i++ {
		buf = encodeValue(buf, col.Get(i))
	}
	return buf
}

func encodeValue(buf []byte, v dv.DataValue) []byte {
	if v.IsNull() {
		return append(buf, valueNull)
	}
	buf = append(buf, valueValid)
	switch v.DataType().ID() {
	case dv.TypeBoolean:
		b, _ := v.AsBool()
		if b {
			return append(buf, 1)
		}
		return append(buf, 0)
	case dv.TypeInt8, dv.TypeInt16, dv.TypeInt32, dv.TypeInt64, dv.TypeDate32, dv.TypeDate64:
		x, _ := v.AsInt64()
		return binary.AppendVarint(buf, x)
	case dv.TypeUInt8, dv.TypeUInt16, dv.TypeUInt32, dv.TypeUInt64:
		x, _ := v.AsUint64()
		return binary.AppendUvarint(buf, x)
	case dv.TypeFloat32:
		x, _ := v.AsFloat64()
		return binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(x)))
	case dv.TypeFloat64:
		x, _ := v.AsFloat64()
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(x))
	case dv.TypeUtf8:
		s, _ := v.AsString()
		return encodeString(buf, s)
	case dv.TypeBinary:
		b, _ := v.AsBytes()
		buf = binary.AppendUvarint(buf, uint64(len(b)))
		return append(buf, b...)
	case dv.TypeList:
		items, _ := v.AsList()
		buf = binary.AppendUvarint(buf, uint64(len(items)))
		for _, item := range items {
			buf = encodeValue(buf, item)
		}
	}
	return buf
}

type cursor struct {
	buf []byte
	err error
}

func (r *cursor) fail(what string) {
	if r.err == nil {
		r.err = errors.Wrapf(ErrCorruptFrame, "truncated %s", what)
	}
	r.buf = nil
}

func (r *cursor) readByte() byte {
	if r.err != nil || len(r.buf) < 1 {
		r.fail("byte")
		return 0
	}
	b := r.buf[0]
	r.buf = r.buf[1:]
	return b
}

func (r *cursor) readN(n int) []byte {
	if r.err != nil || n < 0 || len(r.buf) < n {
		r.fail("bytes")
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *cursor) readUvarint() uint64 {
	if r.err != nil {
		return 0
	}
	x, n := binary.Uvarint(r.buf)
	if n <= 0 {
		r.fail("uvarint")
		return 0
	}
	r.buf = r.buf[n:]
	return x
}

func (r *cursor) readVarint() int64 {
	if r.err != nil {
		return 0
	}
	x, n := binary.Varint(r.buf)
	if n <= 0 {
		r.fail("varint")
		return 0
	}
	r.buf = r.buf[n:]
	return x
}

func (r *cursor) readString() string {
	return string(r.readN(int(r.readUvarint())))
}

var typesByID = map[dv.TypeID]dv.DataType{
	dv.TypeNull:    dv.NullType,
	dv.TypeBoolean: dv.BooleanType,
	dv.TypeInt8:    dv.Int8Type,
	dv.TypeInt16:   dv.Int16Type,
	dv.TypeInt32:   dv.Int32Type,
	dv.TypeInt64:   dv.Int64Type,
	dv.TypeUInt8:   dv.UInt8Type,
	dv.TypeUInt16:  dv.UInt16Type,
	dv.TypeUInt32:  dv.UInt32Type,
	dv.TypeUInt64:  dv.UInt64Type,
	dv.TypeFloat32: dv.Float32Type,
	dv.TypeFloat64: dv.Float64Type,
	dv.TypeUtf8:    dv.Utf8Type,
	dv.TypeBinary:  dv.BinaryType,
	dv.TypeDate32:  dv.Date32Type,
	dv.TypeDate64:  dv.Date64Type,
}

func decodeType(r *cursor) dv.DataType {
	id := dv.TypeID(r.readByte())
	if id == dv.TypeList {
		return dv.ListOf(decodeType(r))
	}
	t, ok := typesByID[id]
	if !ok && r.err == nil {
		r.err = errors.Wrapf(ErrCorruptFrame, "unknown type id %d", id)
	}
	return t
}

func decodeSchema(r *cursor) *dv.DataSchema {
	n := int(r.readUvarint())
	fields := make([]dv.DataField, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		name := r.readString()
		t := decodeType(r)
		nullable := r.readByte() == 1
		fields = append(fields, dv.NewDataField(name, t, nullable))
	}
	return dv.NewDataSchema(fields...)
}

func decodeColumn(r *cursor, t dv.DataType, rows int) dv.DataColumn {
	switch r.readByte() {
	case columnConstant:
		return dv.ConstantColumn(decodeValue(r, t), rows)
	case columnArray:
	default:
		if r.err == nil {
			r.err = errors.Wrap(ErrCorruptFrame, "unknown column kind")
		}
		return dv.DataColumn{}
	}
	b := dv.NewSeriesBuilder(t, rows)
	for i := 0; i < rows && r.err == nil; i++ {
		b.Append(decodeValue(r, t))
	}
	s, err := b.Finish()
	if err != nil {
		if r.err == nil {
			r.err = err
		}
		return dv.DataColumn{}
	}
	return dv.ArrayColumn(s)
}

func decodeValue(r *cursor, t dv.DataType) dv.DataValue {
	if r.readByte() == valueNull || t.IsNull() {
		return dv.NullOf(t)
	}
	switch t.ID() {
	case dv.TypeBoolean:
		return dv.Boolean(r.readByte() == 1)
	case dv.TypeInt8:
		return dv.Int8(int8(r.readVarint()))
	case dv.TypeInt16:
		return dv.Int16(int16(r.readVarint()))
	case dv.TypeInt32:
		return dv.Int32(int32(r.readVarint()))
	case dv.TypeInt64:
		return dv.Int64(r.readVarint())
	case dv.TypeDate32:
		return dv.Date32(int32(r.readVarint()))
	case dv.TypeDate64:
		return dv.Date64(r.readVarint())
	case dv.TypeUInt8:
		return dv.UInt8(uint8(r.readUvarint()))
	case dv.TypeUInt16:
		return dv.UInt16(uint16(r.readUvarint()))
	case dv.TypeUInt32:
		return dv.UInt32(uint32(r.readUvarint()))
	case dv.TypeUInt64:
		return dv.UInt64(r.readUvarint())
	case dv.TypeFloat32:
		b := r.readN(4)
		if b == nil {
			return dv.NullOf(t)
		}
		return dv.Float32(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case dv.TypeFloat64:
		b := r.readN(8)
		if b == nil {
			return dv.NullOf(t)
		}
		return dv.Float64(math.Float64frombits(binary.LittleEndian.Uint64(b)))
	case dv.TypeUtf8:
		return dv.Utf8(r.readString())
	case dv.TypeBinary:
		return dv.Binary(append([]byte(nil), r.readN(int(r.readUvarint()))...))
	case dv.TypeList:
		n := int(r.readUvarint())
		items := make([]dv.DataValue, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			items = append(items, decodeValue(r, t.Elem()))
		}
		return dv.List(t.Elem(), items...)
	}
	return dv.NullOf(t)
}
