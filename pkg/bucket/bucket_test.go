package bucket

import (
	"fmt"
	"os"
	"testing"

	"github.com/adamwolf/humming/internal/datafile"
	"github.com/adamwolf/humming/pkg/kv"
	"github.com/stretchr/testify/assert"
)

func TestOpenDefaults(t *testing.T) {
	assert := assert.New(t)
	tmpDir, err := os.MkdirTemp("", "bucket")
	assert.NoError(err)
	defer os.RemoveAll(tmpDir)

	b, err := Open(WithDir(tmpDir))
	assert.NoError(err)
	assert.NotEmpty(b)
	assert.Equal(tmpDir, b.opts.dir)
	assert.False(b.opts.readOnly)
	assert.False(b.opts.direct)

	assert.NoError(b.Close())
}

func TestOpenLocksDirectory(t *testing.T) {
	assert := assert.New(t)
	tmpDir, err := os.MkdirTemp("", "bucket")
	assert.NoError(err)
	defer os.RemoveAll(tmpDir)

	b1, err := Open(WithDir(tmpDir))
	assert.NoError(err)

	_, err = Open(WithDir(tmpDir))
	assert.ErrorIs(err, ErrLocked)

	assert.NoError(b1.Close())

	b2, err := Open(WithDir(tmpDir))
	assert.NoError(err)
	assert.NoError(b2.Close())
}

func TestInsertAndRead(t *testing.T) {
	assert := assert.New(t)
	tmpDir, err := os.MkdirTemp("", "bucket")
	assert.NoError(err)
	defer os.RemoveAll(tmpDir)

	b, err := Open(WithDir(tmpDir))
	assert.NoError(err)
	defer b.Close()

	assert.NoError(b.Insert(kv.Batch{
		kv.New("a", []byte("A")),
		kv.New("b", []byte("B")),
		kv.New("c", []byte("C")),
	}))

	got, err := b.Read("b")
	assert.NoError(err)
	assert.Equal([][]byte{[]byte("B")}, got)

	got, err = b.Read("missing")
	assert.NoError(err)
	assert.Empty(got)
}

func TestMultiFileAccumulation(t *testing.T) {
	assert := assert.New(t)
	tmpDir, err := os.MkdirTemp("", "bucket")
	assert.NoError(err)
	defer os.RemoveAll(tmpDir)

	b, err := Open(WithDir(tmpDir))
	assert.NoError(err)
	defer b.Close()

	assert.NoError(b.Insert(kv.Batch{kv.New("x", []byte("1"))}))
	assert.NoError(b.Insert(kv.Batch{kv.New("x", []byte("2"))}))

	got, err := b.Read("x")
	assert.NoError(err)
	assert.Equal([][]byte{[]byte("1"), []byte("2")}, got)
	assert.Equal(2, b.Len())
}

func TestReadOnlyRejectsInsert(t *testing.T) {
	assert := assert.New(t)
	tmpDir, err := os.MkdirTemp("", "bucket")
	assert.NoError(err)
	defer os.RemoveAll(tmpDir)

	w, err := Open(WithDir(tmpDir))
	assert.NoError(err)
	assert.NoError(w.Insert(kv.Batch{kv.New("a", []byte("A"))}))
	assert.NoError(w.Close())

	b, err := Open(WithDir(tmpDir), WithReadOnly())
	assert.NoError(err)
	defer b.Close()

	err = b.Insert(kv.Batch{kv.New("z", []byte("Z"))})
	assert.ErrorIs(err, ErrReadOnly)
}

func TestEmptyKeyRejected(t *testing.T) {
	assert := assert.New(t)
	tmpDir, err := os.MkdirTemp("", "bucket")
	assert.NoError(err)
	defer os.RemoveAll(tmpDir)

	b, err := Open(WithDir(tmpDir))
	assert.NoError(err)
	defer b.Close()

	_, err = b.Read("")
	assert.ErrorIs(err, ErrEmptyKey)
}

func TestEmptyBatchInsert(t *testing.T) {
	assert := assert.New(t)
	tmpDir, err := os.MkdirTemp("", "bucket")
	assert.NoError(err)
	defer os.RemoveAll(tmpDir)

	b, err := Open(WithDir(tmpDir))
	assert.NoError(err)
	defer b.Close()

	assert.NoError(b.Insert(nil))
	got, err := b.Read("anything")
	assert.NoError(err)
	assert.Empty(got)
}

func TestHashCollisionWithinBatch(t *testing.T) {
	assert := assert.New(t)
	tmpDir, err := os.MkdirTemp("", "bucket")
	assert.NoError(err)
	defer os.RemoveAll(tmpDir)

	b, err := Open(WithDir(tmpDir))
	assert.NoError(err)
	defer b.Close()

	k1 := kv.New("k1", []byte("v1"))
	k2 := kv.New("k2", []byte("v2"))
	k1.Hash = 42
	k2.Hash = 42

	assert.NoError(b.Insert(kv.Batch{k1, k2}))

	// Read recomputes each key's hash with hashfn, so the forced collision
	// is looked up in the registered file under the hash both records were
	// written with.
	val, ok, err := datafile.Lookup(b.files[0], "k1", 42)
	assert.NoError(err)
	assert.True(ok)
	assert.Equal([]byte("v1"), val)

	val, ok, err = datafile.Lookup(b.files[0], "k2", 42)
	assert.NoError(err)
	assert.True(ok)
	assert.Equal([]byte("v2"), val)
}

func TestLargeBatchAcrossPages(t *testing.T) {
	assert := assert.New(t)
	tmpDir, err := os.MkdirTemp("", "bucket")
	assert.NoError(err)
	defer os.RemoveAll(tmpDir)

	b, err := Open(WithDir(tmpDir))
	assert.NoError(err)
	defer b.Close()

	n := 2000
	batch := make(kv.Batch, n)
	for i := 0; i < n; i++ {
		batch[i] = kv.New(fmt.Sprintf("key-%06d", i), []byte(fmt.Sprintf("val-%06d", i)))
	}
	assert.NoError(b.Insert(batch))

	for _, i := range []int{0, 1, n / 2, n - 2, n - 1} {
		got, err := b.Read(batch[i].Key)
		assert.NoError(err)
		assert.Equal([][]byte{batch[i].Value}, got)
	}
}
