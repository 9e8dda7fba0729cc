package base

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/common"
)

func cacheBlob(t *testing.T, header CacheHeader) []byte {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, common.ByteOrder, header.Length))
	require.NoError(t, binary.Write(&buf, common.ByteOrder, header.Version))
	require.NoError(t, binary.Write(&buf, common.ByteOrder, header.Vendor))
	require.NoError(t, binary.Write(&buf, common.ByteOrder, header.Device))
	require.NoError(t, binary.Write(&buf, common.ByteOrder, header.UUID))
	return buf.Bytes()
}

func TestValidateCacheBlobAccepts(t *testing.T) {
	id := uuid.New()
	blob := cacheBlob(t, CacheHeader{
		Length:  32,
		Version: common.PipelineCacheHeaderVersion1,
		Vendor:  0x10de,
		Device:  0x2482,
		UUID:    id,
	})

	assert.NoError(t, ValidateCacheBlob(blob, 0x10de, 0x2482, id))
}

func TestValidateCacheBlobRejectsMismatches(t *testing.T) {
	id := uuid.New()
	header := CacheHeader{
		Length:  32,
		Version: common.PipelineCacheHeaderVersion1,
		Vendor:  0x10de,
		Device:  0x2482,
		UUID:    id,
	}

	wrongVendor := header
	wrongVendor.Vendor = 0x1002
	assert.Error(t, ValidateCacheBlob(cacheBlob(t, wrongVendor), 0x10de, 0x2482, id))

	wrongDevice := header
	wrongDevice.Device = 0x1234
	assert.Error(t, ValidateCacheBlob(cacheBlob(t, wrongDevice), 0x10de, 0x2482, id))

	wrongUUID := header
	wrongUUID.UUID = uuid.New()
	assert.Error(t, ValidateCacheBlob(cacheBlob(t, wrongUUID), 0x10de, 0x2482, id))

	wrongVersion := header
	wrongVersion.Version = common.PipelineCacheHeaderVersion(99)
	assert.Error(t, ValidateCacheBlob(cacheBlob(t, wrongVersion), 0x10de, 0x2482, id))

	zeroLength := header
	zeroLength.Length = 0
	assert.Error(t, ValidateCacheBlob(cacheBlob(t, zeroLength), 0x10de, 0x2482, id))
}

func TestValidateCacheBlobRejectsTruncated(t *testing.T) {
	id := uuid.New()
	blob := cacheBlob(t, CacheHeader{
		Length:  32,
		Version: common.PipelineCacheHeaderVersion1,
		Vendor:  0x10de,
		Device:  0x2482,
		UUID:    id,
	})

	assert.Error(t, ValidateCacheBlob(blob[:8], 0x10de, 0x2482, id))
	assert.Error(t, ValidateCacheBlob(nil, 0x10de, 0x2482, id))
}
