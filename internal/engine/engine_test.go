package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Greenplumwine/mbnav/internal/config"
	"github.com/Greenplumwine/mbnav/internal/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const mapperSource = `package com.shop.dao;

import org.apache.ibatis.annotations.Mapper;
import org.apache.ibatis.annotations.Param;

@Mapper
public interface UserMapper {

    User selectById(@Param("id") Long id);

    int updateName(@Param("id") Long id, @Param("name") String name);
}
`

const statementSource = `<?xml version="1.0" encoding="UTF-8"?>
<mapper namespace="com.shop.dao.UserMapper">
  <select id="selectById" resultType="User">
    SELECT * FROM users WHERE id = #{id}
  </select>
  <update id="updateName">
    UPDATE users SET name = #{name} WHERE id = #{id}
  </update>
</mapper>
`

// newWorkspace lays out a Maven-style project with one mapped pair and
// returns the interface and statement paths.
func newWorkspace(t *testing.T) (root, iface, stmt string) {
	t.Helper()
	root = t.TempDir()
	iface = filepath.Join(root, "src", "main", "java", "com", "shop", "dao", "UserMapper.java")
	stmt = filepath.Join(root, "src", "main", "resources", "com", "shop", "dao", "UserMapper.xml")
	write(t, iface, mapperSource)
	write(t, stmt, statementSource)
	return root, iface, stmt
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newEngine(t *testing.T, root string, opts ...Option) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Project.Root = root
	cfg.Watch.DebounceMs = 20
	e, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, e.Close())
	})
	return e
}

func TestRefreshAllMappingsFindsPair(t *testing.T) {
	root, iface, stmt := newWorkspace(t)
	e := newEngine(t, root)

	n, err := e.RefreshAllMappings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, map[string]string{iface: stmt}, e.Mappings())
	assert.Equal(t, map[string]string{stmt: iface}, e.ReverseMappings())
}

func TestRefreshAllMappingsIsIdempotent(t *testing.T) {
	root, _, _ := newWorkspace(t)
	e := newEngine(t, root)

	first, err := e.RefreshAllMappings(context.Background())
	require.NoError(t, err)
	second, err := e.RefreshAllMappings(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, len(e.Mappings()))
}

func TestRefreshSkipsPlainInterfaces(t *testing.T) {
	root, _, _ := newWorkspace(t)
	// A Java interface without mapper markers must not produce a mapping.
	write(t, filepath.Join(root, "src", "main", "java", "com", "shop", "service", "UserService.java"),
		"package com.shop.service;\npublic interface UserService {}\n")

	e := newEngine(t, root)
	n, err := e.RefreshAllMappings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestJumpToStatementFilePosition(t *testing.T) {
	root, iface, stmt := newWorkspace(t)
	e := newEngine(t, root)

	res, err := e.JumpToStatementFile(context.Background(), iface, "updateName")
	require.NoError(t, err)
	assert.Equal(t, stmt, res.Path)
	// <update id="updateName"> sits on line 6 (zero-based 5).
	assert.Equal(t, 5, res.Position.Line)
	assert.Greater(t, res.Position.Column, 0)
}

func TestJumpToInterfaceFilePosition(t *testing.T) {
	root, iface, stmt := newWorkspace(t)
	e := newEngine(t, root)

	res, err := e.JumpToInterfaceFile(context.Background(), stmt, "selectById")
	require.NoError(t, err)
	assert.Equal(t, iface, res.Path)
	assert.Equal(t, 8, res.Position.Line)
}

func TestJumpToDispatchesOnExtension(t *testing.T) {
	root, iface, stmt := newWorkspace(t)
	e := newEngine(t, root)

	res, err := e.JumpTo(context.Background(), iface, "")
	require.NoError(t, err)
	assert.Equal(t, stmt, res.Path)

	res, err = e.JumpTo(context.Background(), stmt, "")
	require.NoError(t, err)
	assert.Equal(t, iface, res.Path)

	_, err = e.JumpTo(context.Background(), filepath.Join(root, "pom.xml.bak"), "")
	assert.True(t, errors.IsNotFound(err))
}

func TestExtractParameters(t *testing.T) {
	root, iface, _ := newWorkspace(t)
	e := newEngine(t, root)

	params, err := e.ExtractParameters(context.Background(), iface, "updateName")
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, "id", params[0].Name)
	assert.Equal(t, "name", params[1].Name)
}

func TestWatchRemovalInvalidatesBothDirections(t *testing.T) {
	root, iface, stmt := newWorkspace(t)
	e := newEngine(t, root)

	_, err := e.RefreshAllMappings(context.Background())
	require.NoError(t, err)
	require.NoError(t, e.Watch())

	require.NoError(t, os.Remove(stmt))

	require.Eventually(t, func() bool {
		_, fwd := e.Mappings()[iface]
		_, rev := e.ReverseMappings()[stmt]
		return !fwd && !rev
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatchCreateAddsMapping(t *testing.T) {
	root := t.TempDir()
	iface := filepath.Join(root, "dao", "OrderMapper.java")
	write(t, iface, "package dao;\nimport org.apache.ibatis.annotations.Mapper;\n@Mapper\npublic interface OrderMapper {}\n")

	// Directory exists up front so the watch is in place before the file
	// lands in it.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "statements"), 0755))

	e := newEngine(t, root)
	require.NoError(t, e.Watch())

	stmt := filepath.Join(root, "statements", "OrderMapper.xml")
	write(t, stmt, `<mapper namespace="dao.OrderMapper"/>`)

	require.Eventually(t, func() bool {
		got, ok := e.ReverseMappings()[stmt]
		return ok && got == iface
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatchSpuriousWriteKeepsMapping(t *testing.T) {
	root, iface, stmt := newWorkspace(t)
	e := newEngine(t, root)

	_, err := e.RefreshAllMappings(context.Background())
	require.NoError(t, err)
	require.NoError(t, e.Watch())

	// Same bytes rewritten: the fingerprint matches and the pairing stays.
	require.NoError(t, os.WriteFile(stmt, []byte(statementSource), 0644))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, stmt, e.Mappings()[iface])
}
