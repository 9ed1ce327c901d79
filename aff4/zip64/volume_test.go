package zip64

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aff4-go/aff4/lib/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBacking is an in-memory stand-in for an *os.File, growing on
// WriteAt past the current length the way a sparse file would.
type memBacking struct {
	buf []byte
}

func (m *memBacking) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.buf)) {
		return 0, errShortRead
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, errShortRead
	}
	return n, nil
}

var errShortRead = bytes.ErrTooLarge

func (m *memBacking) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[off:end], p)
	return len(p), nil
}

func (m *memBacking) Seek(offset int64, whence int) (int64, error) { return offset, nil }
func (m *memBacking) Truncate(size int64) error {
	m.buf = m.buf[:size]
	return nil
}

func TestVolumeCreateMemberAndFlushRoundTrip(t *testing.T) {
	backing := &memBacking{}
	v := Create(backing, "aff4://test-volume")

	seg := v.CreateMember("information.turtle")
	seg.Write([]byte("<aff4://x> <aff4://y> \"z\" .\n"))
	seg.Commit()

	require.NoError(t, v.Flush())

	loaded, err := Open(backing, int64(len(backing.buf)))
	require.NoError(t, err)
	assert.Equal(t, "aff4://test-volume", loaded.VolumeURN())
	assert.Contains(t, loaded.Members(), "information.turtle")

	r, err := loaded.OpenZipSegment("information.turtle")
	require.NoError(t, err)
	content, err := readAll(r)
	require.NoError(t, err)
	assert.Equal(t, "<aff4://x> <aff4://y> \"z\" .\n", string(content))
}

func TestVolumeStreamAddMemberStoredAndDeflate(t *testing.T) {
	backing := &memBacking{}
	v := Create(backing, "aff4://test-volume")

	payload := bytes.Repeat([]byte("hello world "), 1000)

	require.NoError(t, v.StreamAddMember(context.Background(), "data/stored.bin", bytes.NewReader(payload), MethodStored, progress.Noop{}))
	require.NoError(t, v.StreamAddMember(context.Background(), "data/deflated.bin", bytes.NewReader(payload), MethodDeflate, progress.Noop{}))
	require.NoError(t, v.Flush())

	loaded, err := Open(backing, int64(len(backing.buf)))
	require.NoError(t, err)

	for _, name := range []string{"data/stored.bin", "data/deflated.bin"} {
		r, err := loaded.OpenZipSegment(name)
		require.NoError(t, err)
		got, err := readAll(r)
		require.NoError(t, err)
		assert.Equal(t, payload, got, "member %s", name)
	}
}

func readAll(r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return out, nil
}
