package gpumul

import (
	"encoding/binary"
	"math"
)

// Record is one element of a compute batch. The kernel multiplies the two
// fields and writes one float32 result per record.
//
// The layout is shared between host and device: two float32 fields in this
// exact order, 8 bytes total, no padding. This must match the Record struct
// declared in the WGSL shaders, so a byte-for-byte copy between host memory
// and a storage buffer is valid. Do not reorder or add fields.
type Record struct {
	// Value is the left operand.
	Value float32

	// Multiplier is the right operand.
	Multiplier float32
}

// Layout constants for the shared host/device representation.
const (
	// RecordSize is the byte size of one encoded Record.
	RecordSize = 8

	// ResultSize is the byte size of one encoded result scalar.
	ResultSize = 4
)

// Product returns the record's result as computed by the kernel.
func (r Record) Product() float32 {
	return r.Value * r.Multiplier
}

// EncodeRecords serializes records into the device representation:
// consecutive (Value, Multiplier) float32 pairs in little-endian byte order.
// The returned slice is suitable for a direct storage buffer upload.
func EncodeRecords(records []Record) []byte {
	buf := make([]byte, len(records)*RecordSize)
	le := binary.LittleEndian
	for i, r := range records {
		off := i * RecordSize
		le.PutUint32(buf[off:off+4], math.Float32bits(r.Value))
		le.PutUint32(buf[off+4:off+8], math.Float32bits(r.Multiplier))
	}
	return buf
}

// DecodeResults deserializes a device result buffer: consecutive
// little-endian float32 scalars. The byte length must be a multiple of
// ResultSize; trailing partial words are ignored.
func DecodeResults(data []byte) []float32 {
	n := len(data) / ResultSize
	out := make([]float32, n)
	le := binary.LittleEndian
	for i := range out {
		out[i] = math.Float32frombits(le.Uint32(data[i*ResultSize:]))
	}
	return out
}
