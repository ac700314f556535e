package index

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/poiesic/answerit/core"
)

const (
	fileMagic   = "AIDX"
	fileVersion = 1

	// maxValues bounds Count*Dimension read from a header.
	maxValues = 1 << 30

	// readChunk is the number of values preallocated at a time when the
	// input size is unknown.
	readChunk = 1 << 16
)

var headerSize = int64(binary.Size(fileHeader{}))

// Header describes a persisted index.
type Header struct {
	Version     uint16
	Metric      Metric
	Dimension   int
	Count       int
	Fingerprint core.ID
}

// fileHeader is the fixed-size on-disk header, little endian.
type fileHeader struct {
	Magic       [4]byte
	Version     uint16
	Metric      uint8
	_           uint8
	Dimension   uint32
	Count       uint32
	Fingerprint uint64
}

// WriteFile persists f to path. fingerprint identifies the chunk store the
// index was built from (see core.Fingerprint).
func WriteFile(path string, f *Flat, fingerprint core.ID) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if err := Encode(file, f, fingerprint); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Encode writes f in the index file format.
func Encode(w io.Writer, f *Flat, fingerprint core.ID) error {
	bw := bufio.NewWriter(w)

	hdr := fileHeader{
		Version:     fileVersion,
		Metric:      uint8(f.metric),
		Dimension:   uint32(f.dim),
		Count:       uint32(f.count),
		Fingerprint: uint64(fingerprint),
	}
	copy(hdr.Magic[:], fileMagic)

	if err := binary.Write(bw, binary.LittleEndian, &hdr); err != nil {
		return err
	}

	buf := make([]byte, 4)
	for _, v := range f.data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadFile loads an index written by WriteFile.
func ReadFile(path string) (*Flat, Header, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, Header{}, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, Header{}, err
	}

	f, hdr, err := decode(file, info.Size())
	if err != nil {
		return nil, Header{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, hdr, nil
}

// Decode reads an index in the index file format.
func Decode(r io.Reader) (*Flat, Header, error) {
	return decode(r, -1)
}

// decode reads an index from r. A non-negative size is the total input
// length and must match the length the header implies.
func decode(r io.Reader, size int64) (*Flat, Header, error) {
	br := bufio.NewReader(r)

	var raw fileHeader
	if err := binary.Read(br, binary.LittleEndian, &raw); err != nil {
		return nil, Header{}, fmt.Errorf("%w: header: %w", ErrCorrupt, err)
	}
	if string(raw.Magic[:]) != fileMagic {
		return nil, Header{}, fmt.Errorf("%w: bad magic %q", ErrCorrupt, raw.Magic[:])
	}
	if raw.Version != fileVersion {
		return nil, Header{}, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, raw.Version)
	}

	hdr := Header{
		Version:     raw.Version,
		Metric:      Metric(raw.Metric),
		Dimension:   int(raw.Dimension),
		Count:       int(raw.Count),
		Fingerprint: core.ID(raw.Fingerprint),
	}
	if !hdr.Metric.Valid() {
		return nil, Header{}, fmt.Errorf("%w: %w %d", ErrCorrupt, ErrUnknownMetric, raw.Metric)
	}
	if hdr.Count > 0 && hdr.Dimension == 0 {
		return nil, Header{}, fmt.Errorf("%w: %d rows of dimension 0", ErrCorrupt, hdr.Count)
	}

	total := uint64(raw.Count) * uint64(raw.Dimension)
	if total > maxValues {
		return nil, Header{}, fmt.Errorf("%w: %d rows of dimension %d exceed the size limit", ErrCorrupt, raw.Count, raw.Dimension)
	}
	if size >= 0 {
		if want := headerSize + 4*int64(total); size != want {
			return nil, Header{}, fmt.Errorf("%w: file has %d bytes, header implies %d", ErrCorrupt, size, want)
		}
	}

	f := &Flat{metric: hdr.Metric, dim: hdr.Dimension, count: hdr.Count}
	if total > 0 {
		n := int(total)
		if size >= 0 {
			f.data = make([]float32, 0, n)
		} else {
			f.data = make([]float32, 0, min(n, readChunk))
		}
		buf := make([]byte, 4)
		for i := range n {
			if _, err := io.ReadFull(br, buf); err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					return nil, Header{}, fmt.Errorf("%w: truncated at value %d of %d", ErrCorrupt, i, n)
				}
				return nil, Header{}, err
			}
			f.data = append(f.data, math.Float32frombits(binary.LittleEndian.Uint32(buf)))
		}
	}

	if _, err := br.ReadByte(); err == nil {
		return nil, Header{}, fmt.Errorf("%w: trailing data", ErrCorrupt)
	}

	return f, hdr, nil
}
