package scene

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Magic starts every encoded cloud.
var Magic = [4]byte{'C', 'M', 'P', 'C'}

// FormatVersion is the version of the binary layout.
const FormatVersion uint32 = 1

// ErrBadMagic is returned when decoding data that is not an encoded cloud.
var ErrBadMagic = errors.New("not a point cloud")

// WriteTo encodes c as: magic, version, metadata length and JSON metadata,
// point count, then the four attribute buffers as little-endian float32 in
// Attributes order.
func (c *Cloud) WriteTo(w io.Writer) (int64, error) {
	meta, err := json.Marshal(c.Metadata)
	if err != nil {
		return 0, fmt.Errorf("encoding metadata: %w", err)
	}

	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}
	le := binary.LittleEndian
	write := func(v any) {
		if err == nil {
			err = binary.Write(cw, le, v)
		}
	}
	write(Magic)
	write(FormatVersion)
	write(uint32(len(meta)))
	write(meta)
	write(uint32(c.Len()))
	write(c.Positions)
	write(c.ConfirmedTime)
	write(c.RecoveredTime)
	write(c.DeadTime)
	if err == nil {
		err = bw.Flush()
	}
	if err != nil {
		return cw.n, fmt.Errorf("encoding point cloud: %w", err)
	}
	return cw.n, nil
}

// ReadCloud decodes a cloud written by WriteTo.
func ReadCloud(r io.Reader) (*Cloud, error) {
	br := bufio.NewReader(r)
	le := binary.LittleEndian

	var magic [4]byte
	if err := binary.Read(br, le, &magic); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if magic != Magic {
		return nil, ErrBadMagic
	}
	var version, metaLen uint32
	if err := binary.Read(br, le, &version); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("unsupported point cloud version %d", version)
	}
	if err := binary.Read(br, le, &metaLen); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	meta := make([]byte, metaLen)
	if _, err := io.ReadFull(br, meta); err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}

	var n uint32
	if err := binary.Read(br, le, &n); err != nil {
		return nil, fmt.Errorf("reading point count: %w", err)
	}
	c := &Cloud{
		Positions:     make([]float32, 3*n),
		ConfirmedTime: make([]float32, n),
		RecoveredTime: make([]float32, n),
		DeadTime:      make([]float32, n),
	}
	if err := json.Unmarshal(meta, &c.Metadata); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	for _, buf := range [][]float32{c.Positions, c.ConfirmedTime, c.RecoveredTime, c.DeadTime} {
		if err := binary.Read(br, le, buf); err != nil {
			return nil, fmt.Errorf("reading buffers: %w", err)
		}
	}
	return c, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
