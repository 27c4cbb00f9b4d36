package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_AlignUp(t *testing.T) {
	require.Equal(t, 64, AlignUp(1, 64))
	require.Equal(t, 64, AlignUp(64, 64))
	require.Equal(t, 128, AlignUp(65, 64))
	require.Equal(t, 0, AlignUp(0, 16))
}

func Test_PageAlign(t *testing.T) {
	require.Equal(t, 4096, PageAlign(1, 4096))
	require.Equal(t, 4096, PageAlign(4096, 4096))
	require.Equal(t, 8192, PageAlign(4097, 4096))
	// Non-power-of-two page sizes must still round correctly.
	require.Equal(t, 3000, PageAlign(2999, 1500))
}

func Test_EncodingRoundTrip(t *testing.T) {
	b := make([]byte, 32)
	PutU32(b, 0, 0xDEADBEEF)
	PutU64(b, 8, 0x0102030405060708)
	PutI64(b, 16, -42)
	require.Equal(t, uint32(0xDEADBEEF), ReadU32(b, 0))
	require.Equal(t, uint64(0x0102030405060708), ReadU64(b, 8))
	require.Equal(t, int64(-42), ReadI64(b, 16))
}

func Test_RegistryLayout(t *testing.T) {
	// The entry array must start right after the header and slots must not
	// overlap. These are layout-contract checks, not arithmetic tests.
	require.Equal(t, HeaderSize, EntryOffset(0))
	require.Equal(t, HeaderSize+EntrySize, EntryOffset(1))
	require.Equal(t, HeaderSize+DefaultCapacity*EntrySize, RegistryAreaSize(DefaultCapacity))

	// Name field plus reserved tail must close exactly at EntrySize.
	require.Equal(t, EntrySize, EntryNameOffset+EntryNameSize+8)
}

func Test_Signature(t *testing.T) {
	area := make([]byte, HeaderSize)
	require.False(t, IsRegistrySignature(area))
	copy(area, RegistrySignature)
	require.True(t, IsRegistrySignature(area))
	require.False(t, IsRegistrySignature(area[:2]))
}
