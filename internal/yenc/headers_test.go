package yenc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBegin(t *testing.T) {
	t.Parallel()

	h, err := ParseBegin("line=128 size=500000 name=testfile with spaces.bin")
	require.NoError(t, err)
	assert.Equal(t, uint16(128), h.Line)
	assert.Equal(t, int64(500000), h.Size)
	assert.Equal(t, "testfile with spaces.bin", h.Name)
	assert.Nil(t, h.Part)
	assert.Nil(t, h.Total)
}

func TestParseBegin_WithPartAndTotal(t *testing.T) {
	t.Parallel()

	h, err := ParseBegin("line=128 size=500000 part=2 total=5 name=testfile.bin")
	require.NoError(t, err)
	require.NotNil(t, h.Part)
	require.NotNil(t, h.Total)
	assert.Equal(t, uint16(2), *h.Part)
	assert.Equal(t, uint16(5), *h.Total)
}

func TestParseBegin_MissingMandatoryField(t *testing.T) {
	t.Parallel()

	_, err := ParseBegin("size=500000 name=testfile.bin")
	require.Error(t, err)
	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)

	_, err = ParseBegin("line=128 name=testfile.bin")
	require.Error(t, err)

	_, err = ParseBegin("line=128 size=500000")
	require.Error(t, err)
}

func TestApplyPart(t *testing.T) {
	t.Parallel()

	h, err := ParseBegin("line=128 size=500000 name=testfile.bin")
	require.NoError(t, err)

	h, err = ApplyPart(h, "begin=1 end=250000")
	require.NoError(t, err)
	require.NotNil(t, h.PartBegin)
	require.NotNil(t, h.PartEnd)
	assert.Equal(t, int64(1), *h.PartBegin)
	assert.Equal(t, int64(250000), *h.PartEnd)
}

func TestApplyPart_MissingField(t *testing.T) {
	t.Parallel()

	h, _ := ParseBegin("line=128 size=500000 name=testfile.bin")

	_, err := ApplyPart(h, "end=250000")
	require.Error(t, err)

	_, err = ApplyPart(h, "begin=1")
	require.Error(t, err)
}

func TestParseEnd(t *testing.T) {
	t.Parallel()

	trailer, err := ParseEnd("size=500000 part=2 pcrc32=deadbeef crc32=0xcafebabe")
	require.NoError(t, err)
	assert.Equal(t, int64(500000), trailer.Size)
	require.NotNil(t, trailer.Part)
	assert.Equal(t, uint16(2), *trailer.Part)
	require.NotNil(t, trailer.PCRC32)
	assert.Equal(t, uint32(0xdeadbeef), *trailer.PCRC32)
	require.NotNil(t, trailer.CRC32)
	assert.Equal(t, uint32(0xcafebabe), *trailer.CRC32)
}

func TestParseEnd_MissingSize(t *testing.T) {
	t.Parallel()

	_, err := ParseEnd("crc32=deadbeef")
	require.Error(t, err)
}

func TestTrailer_CRC_PrefersPCRC32(t *testing.T) {
	t.Parallel()

	pcrc := uint32(0x11111111)
	crc := uint32(0x22222222)

	trailer := Trailer{PCRC32: &pcrc, CRC32: &crc}
	v, ok := trailer.CRC()
	assert.True(t, ok)
	assert.Equal(t, pcrc, v)

	trailer = Trailer{CRC32: &crc}
	v, ok = trailer.CRC()
	assert.True(t, ok)
	assert.Equal(t, crc, v)

	trailer = Trailer{}
	_, ok = trailer.CRC()
	assert.False(t, ok)
}
