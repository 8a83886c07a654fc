package mapcache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Greenplumwine/mbnav/internal/types"
)

func pair(i, s string) types.Mapping {
	return types.Mapping{InterfacePath: i, StatementPath: s}
}

func TestPutAndGetBothDirections(t *testing.T) {
	c := New()
	c.Put(pair("a/UserMapper.java", "b/UserMapper.xml"))

	stmt, ok := c.Get("a/UserMapper.java")
	assert.True(t, ok)
	assert.Equal(t, "b/UserMapper.xml", stmt)

	iface, ok := c.GetReverse("b/UserMapper.xml")
	assert.True(t, ok)
	assert.Equal(t, "a/UserMapper.java", iface)
}

func TestPutIgnoresIncompletePairs(t *testing.T) {
	c := New()
	c.Put(pair("", "b.xml"))
	c.Put(pair("a.java", ""))
	assert.Equal(t, 0, c.Len())
}

// Re-pointing either side of a pairing must drop the stale counterpart so
// the two maps stay a bijection.
func TestPutRepointKeepsBijection(t *testing.T) {
	c := New()
	c.Put(pair("a.java", "old.xml"))
	c.Put(pair("a.java", "new.xml"))

	_, ok := c.GetReverse("old.xml")
	assert.False(t, ok, "stale reverse entry survived")

	c.Put(pair("other.java", "new.xml"))
	_, ok = c.Get("a.java")
	assert.False(t, ok, "stale forward entry survived")

	assert.Equal(t, len(c.Mappings()), len(c.ReverseMappings()))
}

func TestRemoveEitherSideDropsBoth(t *testing.T) {
	c := New()

	c.Put(pair("a.java", "a.xml"))
	c.Remove("a.java")
	assert.Equal(t, 0, c.Len())
	_, ok := c.GetReverse("a.xml")
	assert.False(t, ok)

	c.Put(pair("b.java", "b.xml"))
	c.Remove("b.xml")
	assert.Equal(t, 0, c.Len())
	_, ok = c.Get("b.java")
	assert.False(t, ok)
}

func TestRemoveUnknownPathIsNoop(t *testing.T) {
	c := New()
	c.Put(pair("a.java", "a.xml"))
	c.Remove("nothing.java")
	assert.Equal(t, 1, c.Len())
}

func TestClear(t *testing.T) {
	c := New()
	c.Put(pair("a.java", "a.xml"))
	c.SetFingerprint("a.xml", []byte("x"))
	c.Clear()

	assert.Equal(t, 0, c.Len())
	assert.False(t, c.UnchangedSince("a.xml", []byte("x")))
}

func TestMappingsAreDefensiveCopies(t *testing.T) {
	c := New()
	c.Put(pair("a.java", "a.xml"))

	snapshot := c.Mappings()
	snapshot["b.java"] = "b.xml"
	delete(snapshot, "a.java")

	stmt, ok := c.Get("a.java")
	assert.True(t, ok)
	assert.Equal(t, "a.xml", stmt)
	assert.Equal(t, 1, c.Len())
}

func TestFingerprints(t *testing.T) {
	c := New()
	content := []byte("<mapper/>")

	assert.False(t, c.UnchangedSince("a.xml", content), "unknown path must not match")

	c.SetFingerprint("a.xml", content)
	assert.True(t, c.UnchangedSince("a.xml", content))
	assert.False(t, c.UnchangedSince("a.xml", []byte("<mapper></mapper>")))
}

func TestRemoveDropsFingerprintsOfBothSides(t *testing.T) {
	c := New()
	c.Put(pair("a.java", "a.xml"))
	c.SetFingerprint("a.java", []byte("j"))
	c.SetFingerprint("a.xml", []byte("x"))

	c.Remove("a.java")

	assert.False(t, c.UnchangedSince("a.java", []byte("j")))
	assert.False(t, c.UnchangedSince("a.xml", []byte("x")))
}

func TestConcurrentAccess(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("%d-%d", n, j)
				c.Put(pair(key+".java", key+".xml"))
				c.Get(key + ".java")
				c.Mappings()
				c.Remove(key + ".xml")
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, c.Len())
}
