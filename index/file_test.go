package index

import (
	"bytes"
	"context"
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/answerit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadFile(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	vectors := randomVectors(r, 12, 6)
	f, err := Build(vectors, MetricL2)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "course.idx")
	require.NoError(t, WriteFile(path, f, core.ID(0xfeedface)))

	loaded, hdr, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Header{
		Version:     fileVersion,
		Metric:      MetricL2,
		Dimension:   6,
		Count:       12,
		Fingerprint: core.ID(0xfeedface),
	}, hdr)

	query := vectors[4]
	want, err := f.Search(context.Background(), query, 3)
	require.NoError(t, err)
	got, err := loaded.Search(context.Background(), query, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 4, got[0].Position)
}

func TestWriteReadFile_Empty(t *testing.T) {
	f, err := Build(nil, MetricCosine)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "empty.idx")
	require.NoError(t, WriteFile(path, f, 0))

	loaded, hdr, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())
	assert.Equal(t, MetricCosine, hdr.Metric)
}

func TestDecode_Corrupt(t *testing.T) {
	f, err := Build([][]float32{{1, 2, 3}, {4, 5, 6}}, MetricL2)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, f, 1))
	good := buf.Bytes()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", good[:10]},
		{"bad magic", append([]byte("XXXX"), good[4:]...)},
		{"truncated rows", good[:len(good)-2]},
		{"trailing data", append(bytes.Clone(good), 0)},
		{"huge count", rawHeader(t, 0xFFFFFFFF, 0xFFFFFFFF)},
		{"large count without rows", rawHeader(t, 1<<14, 1<<14)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, _, err := Decode(bytes.NewReader(tt.data))
				assert.ErrorIs(t, err, ErrCorrupt)
			})
		})
	}
}

func rawHeader(t *testing.T, dim, count uint32) []byte {
	t.Helper()
	hdr := fileHeader{
		Version:   fileVersion,
		Metric:    uint8(MetricCosine),
		Dimension: dim,
		Count:     count,
	}
	copy(hdr.Magic[:], fileMagic)

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, &hdr))
	require.Len(t, buf.Bytes(), int(headerSize))
	return buf.Bytes()
}

func TestReadFile_SizeMismatch(t *testing.T) {
	dir := t.TempDir()

	huge := filepath.Join(dir, "huge.idx")
	require.NoError(t, os.WriteFile(huge, rawHeader(t, 1<<10, 1<<10), 0644))
	_, _, err := ReadFile(huge)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.ErrorContains(t, err, "header implies")

	f, err := Build([][]float32{{1, 2}, {3, 4}}, MetricL2)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, f, 0))

	short := filepath.Join(dir, "short.idx")
	require.NoError(t, os.WriteFile(short, buf.Bytes()[:buf.Len()-4], 0644))
	_, _, err = ReadFile(short)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestReadFile_Missing(t *testing.T) {
	_, _, err := ReadFile(filepath.Join(t.TempDir(), "nope.idx"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
