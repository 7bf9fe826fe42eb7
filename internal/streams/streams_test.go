package streams

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/require"
)

func TestRangeLimitedReadStream(t *testing.T) {
	data := []byte("0123456789ABCDEF")
	base := bytes.NewReader(data)

	rl, err := NewRangeLimitedReadStream(base, 4, 6)
	require.NoError(t, err)

	buf := make([]byte, 6)
	n, err := rl.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.Equal(t, "456789", string(buf))

	_, err = rl.Read(buf)
	require.ErrorIs(t, err, io.EOF)

	pos, err := rl.Seek(2, io.SeekStart)
	require.NoError(t, err)
	require.Equal(t, int64(2), pos)

	n, err = rl.Read(buf[:2])
	require.NoError(t, err)
	require.Equal(t, "67", string(buf[:n]))

	_, err = rl.Seek(100, io.SeekStart)
	require.Error(t, err)
}

func TestMutexProtectedStreamConcurrentViews(t *testing.T) {
	data := []byte("abcdefghijklmnopqrstuvwxyz")
	shared := NewMutexProtectedStream(bytes.NewReader(data), int64(len(data)))

	v1 := shared.NewView()
	v2 := shared.NewView()

	v1.Seek(0, io.SeekStart)
	v2.Seek(10, io.SeekStart)

	buf1 := make([]byte, 3)
	buf2 := make([]byte, 3)

	n1, err := v1.Read(buf1)
	require.NoError(t, err)
	n2, err := v2.Read(buf2)
	require.NoError(t, err)

	require.Equal(t, "abc", string(buf1[:n1]))
	require.Equal(t, "klm", string(buf2[:n2]))
}

func TestDeflateDecompressStreamRoundTrip(t *testing.T) {
	var compressed bytes.Buffer
	fw, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	require.NoError(t, err)
	original := bytes.Repeat([]byte("hello deflate world "), 100)
	_, err = fw.Write(original)
	require.NoError(t, err)
	require.NoError(t, fw.Close())

	compressedBytes := compressed.Bytes()
	ds, err := NewDeflateDecompressStream(NewBytesOpener(compressedBytes))
	require.NoError(t, err)
	defer ds.Close()

	got, err := io.ReadAll(ds)
	require.NoError(t, err)
	require.Equal(t, original, got)

	require.NoError(t, ds.SeekStart(0))
	got2, err := io.ReadAll(ds)
	require.NoError(t, err)
	require.Equal(t, original, got2)
}

func TestBlobDedupAndHash(t *testing.T) {
	a := NewBlob([]byte("same content"))
	b := NewBlob([]byte("same content"))
	c := NewBlob([]byte("different"))

	require.True(t, a.Equal(b))
	require.Equal(t, a.Hash(), b.Hash())
	require.False(t, a.Equal(c))
}

func TestReadAllWriteAll(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	require.NoError(t, WriteAll(buf, []byte("payload")))

	out := make([]byte, 7)
	require.NoError(t, ReadAll(bytes.NewReader(buf.Bytes()), out))
	require.Equal(t, "payload", string(out))

	err := ReadAll(bytes.NewReader([]byte("short")), make([]byte, 10))
	require.Error(t, err)
}
