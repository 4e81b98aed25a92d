// Package codec implements the 36-bit tag code: 1024 identifiers protected by
// a CRC-16 and a punctured rate-1/2 convolutional code.
//
// An identifier is first XORed with a fixed mask (so that identifier 682
// becomes the all-zero, all-black pattern), then extended with its CRC
// remainder, then run through a 4-state convolutional encoder whose output is
// truncated to 36 bits. The 36 bits fill a 6x6 grid in row-major order, a set
// bit meaning a white cell.
//
// Decoding compares a sampled pattern against every precomputed codeword and
// accepts the closest one within a small Hamming distance.
package codec

import (
	"fmt"
	"math/bits"
)

const (
	// IDBits is the number of identifier bits.
	IDBits = 10
	// CRCBits is the number of checksum bits appended to the identifier.
	CRCBits = 16
	// Bits is the number of cells in the data grid.
	Bits = 36
	// GridSize is the side of the data grid in cells.
	GridSize = 6
	// NumIDs is the number of distinct identifiers.
	NumIDs = 1 << IDBits

	// DefaultMaxDistance is the Hamming distance accepted by default.
	DefaultMaxDistance = 2

	// BlackID encodes to a grid with no white cell. It is never reported,
	// since any dark square would match it.
	BlackID = xorMask

	xorMask = 0x2AA   // 1010101010
	crcPoly = 0x11021 // 10001000000100001
)

// fsm is the convolutional encoder: for a state and an input bit it gives
// the two output bits and the next state.
var fsm = [4]struct {
	out  [2]uint8
	next [2]uint8
}{
	{out: [2]uint8{0, 3}, next: [2]uint8{0, 2}},
	{out: [2]uint8{1, 2}, next: [2]uint8{0, 2}},
	{out: [2]uint8{3, 0}, next: [2]uint8{1, 3}},
	{out: [2]uint8{2, 1}, next: [2]uint8{1, 3}},
}

// Codeword holds the 36 grid bits of one identifier; bit i is cell i of the
// 6x6 grid in row-major order.
type Codeword uint64

// Bit reports the value of cell (row, col).
func (c Codeword) Bit(row, col int) bool {
	return c&(1<<uint(row*GridSize+col)) != 0
}

// Codec owns the table of all codewords.
type Codec struct {
	codes       [NumIDs]Codeword
	maxDistance int
}

// New builds a codec accepting matches up to maxDistance differing cells.
// A negative value selects DefaultMaxDistance.
func New(maxDistance int) *Codec {
	if maxDistance < 0 {
		maxDistance = DefaultMaxDistance
	}
	c := &Codec{maxDistance: maxDistance}
	for id := 0; id < NumIDs; id++ {
		c.codes[id] = encode(id)
	}
	return c
}

// MaxDistance returns the accepted Hamming distance.
func (c *Codec) MaxDistance() int { return c.maxDistance }

// Encode returns the codeword for id.
func (c *Codec) Encode(id int) (Codeword, error) {
	if id < 0 || id >= NumIDs {
		return 0, fmt.Errorf("tag id %d out of range [0,%d)", id, NumIDs)
	}
	return c.codes[id], nil
}

// Match is the best codeword found for a pattern.
type Match struct {
	ID       int
	Distance int
}

// Decode returns the identifier whose codeword is closest to pattern. ok is
// false when nothing lies within the accepted distance. Ties go to the
// lowest identifier.
func (c *Codec) Decode(pattern Codeword) (m Match, ok bool) {
	m = Match{ID: -1, Distance: Bits + 1}
	for id := 0; id < NumIDs; id++ {
		if id == BlackID {
			continue
		}
		d := bits.OnesCount64(uint64(pattern ^ c.codes[id]))
		if d < m.Distance {
			m = Match{ID: id, Distance: d}
			if d == 0 {
				break
			}
		}
	}
	if m.Distance > c.maxDistance {
		return Match{ID: -1, Distance: m.Distance}, false
	}
	return m, true
}

func encode(id int) Codeword {
	xored := uint64(id ^ xorMask)

	// polynomial division of xored*x^16 by the CRC polynomial
	shifted := xored << CRCBits
	crc := shifted
	poly := uint64(crcPoly) << IDBits
	current := uint64(1) << (IDBits + CRCBits)
	for i := 0; i <= IDBits; i++ {
		if crc&current != 0 {
			crc ^= poly
		}
		current >>= 1
		poly >>= 1
	}
	crc |= shifted

	// two trailing zeros flush the encoder registers
	input := crc << 2
	var out Codeword
	n := 0
	state := 0
	for i := IDBits + CRCBits + 1; i >= 0 && n < Bits; i-- {
		b := 0
		if input&(1<<uint(i)) != 0 {
			b = 1
		}
		o := fsm[state].out[b]
		if o&2 != 0 {
			out |= 1 << uint(n)
		}
		n++
		if n < Bits && o&1 != 0 {
			out |= 1 << uint(n)
		}
		n++
		state = int(fsm[state].next[b])
	}
	return out
}
