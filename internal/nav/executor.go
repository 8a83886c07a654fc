package nav

import (
	"context"
	stderrors "errors"
	"os"
	"sync"
	"time"

	"github.com/Greenplumwine/mbnav/internal/config"
	"github.com/Greenplumwine/mbnav/internal/debug"
	"github.com/Greenplumwine/mbnav/internal/errors"
	"github.com/Greenplumwine/mbnav/internal/types"
)

// ErrThrottled is returned when a jump of the same kind fired inside the
// cooldown window. Callers treat it as "already on the way", not a failure.
var ErrThrottled = stderrors.New("jump throttled")

// Editor is the host surface jumps execute against. IsOpen reports whether
// the file is already visible in some editor window.
type Editor interface {
	IsOpen(path string) bool
	Open(ctx context.Context, path string, pos types.Position, split bool) error
}

// Executor performs jumps with per-kind throttling and the configured
// window policy.
type Executor struct {
	editor   Editor
	policy   types.WindowPolicy
	throttle time.Duration

	mu       sync.Mutex
	lastJump map[types.JumpKind]time.Time

	// now and exists are swappable in tests.
	now    func() time.Time
	exists func(string) bool
}

// NewExecutor creates an executor bound to an editor host.
func NewExecutor(cfg *config.Config, editor Editor) *Executor {
	throttle := time.Duration(cfg.Navigation.ThrottleMs) * time.Millisecond
	if throttle <= 0 {
		throttle = types.DefaultThrottleMs * time.Millisecond
	}
	return &Executor{
		editor:   editor,
		policy:   cfg.Navigation.WindowPolicy,
		throttle: throttle,
		lastJump: make(map[types.JumpKind]time.Time),
		now:      time.Now,
		exists:   targetExists,
	}
}

func targetExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Jump opens path at pos according to the window policy. Jumps of the same
// kind inside the throttle window return ErrThrottled without touching the
// editor; opposite-direction jumps are throttled independently. A target
// missing on disk, typically a cache entry outliving a delete, fails
// without opening the editor and without consuming the throttle window.
func (e *Executor) Jump(ctx context.Context, kind types.JumpKind, path string, pos types.Position) error {
	if !e.exists(path) {
		debug.LogNav("jump target missing %s\n", path)
		return errors.NewNotFoundError("jump target", path)
	}

	if !e.admit(kind) {
		debug.LogNav("throttled %s to %s\n", kind, path)
		return ErrThrottled
	}

	split := e.wantSplit(path)
	debug.LogNav("jump %s to %s:%d:%d split=%v\n", kind, path, pos.Line, pos.Column, split)
	return e.editor.Open(ctx, path, pos, split)
}

// admit records the jump time and reports whether it may proceed. The
// window opens from the last admitted jump of the same kind.
func (e *Executor) admit(kind types.JumpKind) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if last, ok := e.lastJump[kind]; ok && now.Sub(last) < e.throttle {
		return false
	}
	e.lastJump[kind] = now
	return true
}

// wantSplit applies the window policy. Reuse opens beside the current
// window only when the target is not already visible, so repeated jumps
// land in the same editor instead of stacking splits.
func (e *Executor) wantSplit(path string) bool {
	switch e.policy {
	case types.WindowAlwaysSplit:
		return true
	case types.WindowNeverSplit:
		return false
	default:
		return !e.editor.IsOpen(path)
	}
}
