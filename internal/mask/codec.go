package mask

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// magic prefixes an encoded mask.
var magic = [4]byte{'T', 'M', 'S', 'K'}

// ErrBadMask is returned when decoded data is not a mask.
var ErrBadMask = errors.New("mask: malformed data")

type header struct {
	Magic      [4]byte
	Resolution uint32
	WorldWidth float64
	SizeScale  float64
	Threshold  float64
	Sentinel   float64
}

// Encode writes m as a little-endian header followed by the flat value array.
func (m *Mask) Encode(w io.Writer) error {
	if m.Resolution < 0 || len(m.Values) != m.Resolution*m.Resolution {
		return fmt.Errorf("encode mask: %d values for resolution %d: %w", len(m.Values), m.Resolution, ErrBadMask)
	}
	h := header{
		Magic:      magic,
		Resolution: uint32(m.Resolution),
		WorldWidth: m.WorldWidth,
		SizeScale:  m.SizeScale,
		Threshold:  m.Threshold,
		Sentinel:   m.Sentinel,
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("encode mask header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, m.Values); err != nil {
		return fmt.Errorf("encode mask values: %w", err)
	}
	return nil
}

// maxResolution caps decoded masks to keep a corrupt header from allocating
// gigabytes.
const maxResolution = 8192

// Decode reads a mask written by Encode.
func Decode(r io.Reader) (*Mask, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("decode mask header: %w", err)
	}
	if h.Magic != magic || h.Resolution > maxResolution {
		return nil, ErrBadMask
	}
	n := int(h.Resolution) * int(h.Resolution)
	values := make([]float64, n)
	if err := binary.Read(r, binary.LittleEndian, values); err != nil {
		return nil, fmt.Errorf("decode mask values: %w", err)
	}
	for _, v := range values {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("decode mask values: NaN: %w", ErrBadMask)
		}
	}
	return &Mask{
		Values:     values,
		Resolution: int(h.Resolution),
		WorldWidth: h.WorldWidth,
		SizeScale:  h.SizeScale,
		Threshold:  h.Threshold,
		Sentinel:   h.Sentinel,
	}, nil
}
