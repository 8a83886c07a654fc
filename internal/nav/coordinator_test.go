package nav

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Greenplumwine/mbnav/internal/config"
	"github.com/Greenplumwine/mbnav/internal/errors"
	"github.com/Greenplumwine/mbnav/internal/mapcache"
	"github.com/Greenplumwine/mbnav/internal/resolve"
	"github.com/Greenplumwine/mbnav/internal/types"
)

type fakeSource struct {
	statements []string
	interfaces []string
	calls      int
}

func (f *fakeSource) StatementFiles(ctx context.Context, limit int) ([]string, error) {
	f.calls++
	return f.statements, nil
}

func (f *fakeSource) InterfaceFiles(ctx context.Context, limit int) ([]string, error) {
	f.calls++
	return f.interfaces, nil
}

type fakeExternal struct {
	result string
	called bool
}

func (f *fakeExternal) LocateStatement(ctx context.Context, interfacePath string) (string, error) {
	f.called = true
	return f.result, nil
}

func writeNavFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newCoordinator(t *testing.T, root string, source CandidateSource, external ExternalLocator) (*Coordinator, *mapcache.Cache) {
	t.Helper()
	cfg := config.Default()
	cfg.Project.Root = root
	cache := mapcache.New()
	return NewCoordinator(cfg, cache, resolve.New(cfg), source, external), cache
}

func TestLocateStatementCacheHitSkipsEverything(t *testing.T) {
	root := t.TempDir()
	source := &fakeSource{}
	c, cache := newCoordinator(t, root, source, nil)

	iface := filepath.Join(root, "UserMapper.java")
	stmt := filepath.Join(root, "elsewhere", "UserMapper.xml")
	cache.Put(types.Mapping{InterfacePath: iface, StatementPath: stmt})

	res, err := c.LocateStatement(context.Background(), iface)
	require.NoError(t, err)
	assert.Equal(t, stmt, res.Path)
	assert.Equal(t, StateCacheLookup, res.State)
	assert.Equal(t, 0, source.calls)
}

func TestLocateStatementQuickPathPopulatesCache(t *testing.T) {
	root := t.TempDir()
	iface := filepath.Join(root, "dao", "UserMapper.java")
	stmt := filepath.Join(root, "dao", "UserMapper.xml")
	writeNavFile(t, iface, "package dao;\npublic interface UserMapper {}\n")
	writeNavFile(t, stmt, "<mapper/>")

	source := &fakeSource{}
	c, cache := newCoordinator(t, root, source, nil)

	res, err := c.LocateStatement(context.Background(), iface)
	require.NoError(t, err)
	assert.Equal(t, stmt, res.Path)
	assert.Equal(t, StateQuickPath, res.State)
	assert.Equal(t, 0, source.calls)

	cached, ok := cache.Get(iface)
	assert.True(t, ok)
	assert.Equal(t, stmt, cached)
}

func TestLocateStatementFullScan(t *testing.T) {
	root := t.TempDir()
	iface := filepath.Join(root, "dao", "UserMapper.java")
	stmt := filepath.Join(root, "statements", "UserMapper.xml")
	writeNavFile(t, iface, "package dao;\npublic interface UserMapper {}\n")
	writeNavFile(t, stmt, `<mapper namespace="dao.UserMapper"><select id="a">q</select></mapper>`)

	source := &fakeSource{statements: []string{stmt}}
	c, _ := newCoordinator(t, root, source, nil)

	res, err := c.LocateStatement(context.Background(), iface)
	require.NoError(t, err)
	assert.Equal(t, stmt, res.Path)
	assert.Equal(t, StateFullScan, res.State)
}

func TestLocateStatementExternalFallback(t *testing.T) {
	root := t.TempDir()
	iface := filepath.Join(root, "dao", "UserMapper.java")
	writeNavFile(t, iface, "package dao;\npublic interface UserMapper {}\n")

	external := &fakeExternal{result: filepath.Join(root, "remote", "UserMapper.xml")}
	c, cache := newCoordinator(t, root, &fakeSource{}, external)

	res, err := c.LocateStatement(context.Background(), iface)
	require.NoError(t, err)
	assert.True(t, external.called)
	assert.Equal(t, StateExternal, res.State)

	_, ok := cache.Get(iface)
	assert.True(t, ok)
}

func TestLocateStatementNotFoundCarriesSuggestions(t *testing.T) {
	root := t.TempDir()
	iface := filepath.Join(root, "dao", "UserMapper.java")
	near := filepath.Join(root, "statements", "UserMaper.xml")
	writeNavFile(t, iface, "package dao;\npublic interface UserMapper {}\n")
	writeNavFile(t, near, `<mapper namespace="dao.SomethingElse"/>`)

	source := &fakeSource{statements: []string{near}}
	c, _ := newCoordinator(t, root, source, nil)

	_, err := c.LocateStatement(context.Background(), iface)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	var nf *errors.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, nf.Suggestions, near)
}

// A request whose context dies mid-scan surfaces as a TimeoutError, which
// users see exactly like a NotFound.
func TestLocateStatementTimeoutSurfacesAsNotFound(t *testing.T) {
	root := t.TempDir()
	iface := filepath.Join(root, "dao", "UserMapper.java")
	stmt := filepath.Join(root, "statements", "UserMapper.xml")
	writeNavFile(t, iface, "package dao;\npublic interface UserMapper {}\n")
	writeNavFile(t, stmt, `<mapper namespace="dao.UserMapper"><select id="a">q</select></mapper>`)

	source := &fakeSource{statements: []string{stmt}}
	c, cache := newCoordinator(t, root, source, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.LocateStatement(ctx, iface)
	require.Error(t, err)

	var to *errors.TimeoutError
	require.ErrorAs(t, err, &to)
	assert.Equal(t, "navigate", to.Operation)
	assert.True(t, errors.IsNotFound(err))

	_, ok := cache.Get(iface)
	assert.False(t, ok, "a timed-out lookup must not populate the cache")
}

func TestLocateInterfaceByNamespace(t *testing.T) {
	root := t.TempDir()
	iface := filepath.Join(root, "src", "dao", "UserMapper.java")
	stmt := filepath.Join(root, "statements", "UserMapper.xml")
	writeNavFile(t, iface, "package dao;\npublic interface UserMapper {}\n")
	writeNavFile(t, stmt, `<mapper namespace="dao.UserMapper"/>`)

	source := &fakeSource{interfaces: []string{iface}}
	c, cache := newCoordinator(t, root, source, nil)

	res, err := c.LocateInterface(context.Background(), stmt)
	require.NoError(t, err)
	assert.Equal(t, iface, res.Path)

	// The forward direction is cached too.
	got, ok := cache.Get(iface)
	assert.True(t, ok)
	assert.Equal(t, stmt, got)
}

func TestLocateInterfaceNotFound(t *testing.T) {
	root := t.TempDir()
	stmt := filepath.Join(root, "statements", "UserMapper.xml")
	writeNavFile(t, stmt, `<mapper namespace="dao.UserMapper"/>`)

	c, _ := newCoordinator(t, root, &fakeSource{}, nil)

	_, err := c.LocateInterface(context.Background(), stmt)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}
