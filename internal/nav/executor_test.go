package nav

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Greenplumwine/mbnav/internal/config"
	"github.com/Greenplumwine/mbnav/internal/errors"
	"github.com/Greenplumwine/mbnav/internal/types"
)

type fakeEditor struct {
	open   map[string]bool
	opened []string
	splits []bool
}

func (f *fakeEditor) IsOpen(path string) bool { return f.open[path] }

func (f *fakeEditor) Open(ctx context.Context, path string, pos types.Position, split bool) error {
	f.opened = append(f.opened, path)
	f.splits = append(f.splits, split)
	return nil
}

func newExecutor(editor *fakeEditor, policy types.WindowPolicy) (*Executor, *time.Time) {
	cfg := config.Default()
	cfg.Navigation.WindowPolicy = policy
	e := NewExecutor(cfg, editor)
	now := time.Unix(1000, 0)
	e.now = func() time.Time { return now }
	e.exists = func(string) bool { return true }
	return e, &now
}

func TestJumpThrottlesSameKind(t *testing.T) {
	editor := &fakeEditor{}
	e, now := newExecutor(editor, types.WindowReuse)

	require.NoError(t, e.Jump(context.Background(), types.JumpToStatement, "a.xml", types.Position{}))
	err := e.Jump(context.Background(), types.JumpToStatement, "b.xml", types.Position{})
	assert.ErrorIs(t, err, ErrThrottled)
	assert.Len(t, editor.opened, 1)

	*now = now.Add(time.Second)
	require.NoError(t, e.Jump(context.Background(), types.JumpToStatement, "b.xml", types.Position{}))
	assert.Len(t, editor.opened, 2)
}

func TestJumpOppositeKindsThrottleIndependently(t *testing.T) {
	editor := &fakeEditor{}
	e, _ := newExecutor(editor, types.WindowReuse)

	require.NoError(t, e.Jump(context.Background(), types.JumpToStatement, "a.xml", types.Position{}))
	require.NoError(t, e.Jump(context.Background(), types.JumpToInterface, "A.java", types.Position{}))
	assert.Len(t, editor.opened, 2)
}

func TestJumpMissingTargetFails(t *testing.T) {
	editor := &fakeEditor{}
	e := NewExecutor(config.Default(), editor)

	path := filepath.Join(t.TempDir(), "UserMapper.xml")
	require.NoError(t, os.WriteFile(path, []byte("<mapper/>"), 0644))
	require.NoError(t, e.Jump(context.Background(), types.JumpToStatement, path, types.Position{}))

	require.NoError(t, os.Remove(path))
	err := e.Jump(context.Background(), types.JumpToInterface, path, types.Position{})
	var nf *errors.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, path, nf.Path)
	assert.Len(t, editor.opened, 1)

	// The failed jump must not have consumed the throttle window.
	require.NoError(t, os.WriteFile(path, []byte("<mapper/>"), 0644))
	require.NoError(t, e.Jump(context.Background(), types.JumpToInterface, path, types.Position{}))
	assert.Len(t, editor.opened, 2)
}

func TestJumpWindowPolicies(t *testing.T) {
	tests := []struct {
		policy    types.WindowPolicy
		alreadyOn bool
		wantSplit bool
	}{
		{types.WindowAlwaysSplit, false, true},
		{types.WindowAlwaysSplit, true, true},
		{types.WindowNeverSplit, false, false},
		{types.WindowNeverSplit, true, false},
		{types.WindowReuse, false, true},
		{types.WindowReuse, true, false},
	}
	for _, tt := range tests {
		editor := &fakeEditor{open: map[string]bool{}}
		if tt.alreadyOn {
			editor.open["a.xml"] = true
		}
		e, _ := newExecutor(editor, tt.policy)

		require.NoError(t, e.Jump(context.Background(), types.JumpToStatement, "a.xml", types.Position{}))
		require.Len(t, editor.splits, 1)
		assert.Equal(t, tt.wantSplit, editor.splits[0], "policy %s open=%v", tt.policy, tt.alreadyOn)
	}
}
