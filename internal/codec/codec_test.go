package codec

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeBlackID(t *testing.T) {
	c := New(-1)
	code, err := c.Encode(BlackID)
	require.NoError(t, err)
	assert.Equal(t, Codeword(0), code, "masked identifier must produce an all-black grid")
}

func TestEncodeRange(t *testing.T) {
	c := New(-1)
	_, err := c.Encode(-1)
	assert.Error(t, err)
	_, err = c.Encode(NumIDs)
	assert.Error(t, err)
}

func TestCodewordsFitGrid(t *testing.T) {
	c := New(-1)
	for id := 0; id < NumIDs; id++ {
		code, err := c.Encode(id)
		require.NoError(t, err)
		assert.Zero(t, uint64(code)>>Bits, "id %d uses bits beyond the grid", id)
	}
}

func TestCodewordsDistinct(t *testing.T) {
	c := New(-1)
	seen := make(map[Codeword]int, NumIDs)
	for id := 0; id < NumIDs; id++ {
		code, _ := c.Encode(id)
		prev, dup := seen[code]
		require.False(t, dup, "ids %d and %d share codeword %036b", prev, id, code)
		seen[code] = id
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	c := New(-1)
	for id := 0; id < NumIDs; id++ {
		if id == BlackID {
			continue
		}
		code, _ := c.Encode(id)
		m, ok := c.Decode(code)
		require.True(t, ok, "id %d", id)
		assert.Equal(t, id, m.ID)
		assert.Zero(t, m.Distance)
	}
}

func TestDecodeSingleBitErrors(t *testing.T) {
	c := New(-1)
	for id := 0; id < NumIDs; id += 7 {
		if id == BlackID {
			continue
		}
		code, _ := c.Encode(id)
		for b := 0; b < Bits; b++ {
			m, ok := c.Decode(code ^ (1 << uint(b)))
			require.True(t, ok, "id %d bit %d", id, b)
			assert.Equal(t, id, m.ID, "id %d bit %d", id, b)
			assert.Equal(t, 1, m.Distance)
		}
	}
}

func TestDecodeTwoBitErrors(t *testing.T) {
	c := New(-1)
	for _, id := range []int{0, 1, 42, 511, 1023} {
		code, _ := c.Encode(id)
		m, ok := c.Decode(code ^ (1 << 3) ^ (1 << 30))
		require.True(t, ok, "id %d", id)
		assert.Equal(t, id, m.ID)
		assert.Equal(t, 2, m.Distance)
	}
}

func TestDecodeRejectsBlack(t *testing.T) {
	c := New(-1)
	m, ok := c.Decode(0)
	if ok {
		assert.NotEqual(t, BlackID, m.ID)
		assert.Positive(t, m.Distance)
	}
}

func TestDecodeZeroTolerance(t *testing.T) {
	c := New(0)
	code, _ := c.Encode(5)
	_, ok := c.Decode(code ^ 1)
	assert.False(t, ok)
	m, ok := c.Decode(code)
	assert.True(t, ok)
	assert.Equal(t, 5, m.ID)
}

func TestDecodeNoise(t *testing.T) {
	c := New(-1)
	// a checkerboard is far from every codeword or decodes with a real distance
	var checker Codeword
	for r := 0; r < GridSize; r++ {
		for col := 0; col < GridSize; col++ {
			if (r+col)%2 == 0 {
				checker |= 1 << uint(r*GridSize+col)
			}
		}
	}
	m, ok := c.Decode(checker)
	if ok {
		code, _ := c.Encode(m.ID)
		assert.Equal(t, bits.OnesCount64(uint64(checker^code)), m.Distance)
	}
}

func TestCodewordBit(t *testing.T) {
	var code Codeword = 1 | 1<<7 | 1<<35
	assert.True(t, code.Bit(0, 0))
	assert.True(t, code.Bit(1, 1))
	assert.True(t, code.Bit(5, 5))
	assert.False(t, code.Bit(0, 1))
}
