// Package engine wires the scanner, resolver, cache, watcher, and
// navigation layers into the public mapping-navigation surface.
package engine

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Greenplumwine/mbnav/internal/config"
	"github.com/Greenplumwine/mbnav/internal/debug"
	"github.com/Greenplumwine/mbnav/internal/errors"
	"github.com/Greenplumwine/mbnav/internal/inspect"
	"github.com/Greenplumwine/mbnav/internal/langsvc"
	"github.com/Greenplumwine/mbnav/internal/mapcache"
	"github.com/Greenplumwine/mbnav/internal/nav"
	"github.com/Greenplumwine/mbnav/internal/resolve"
	"github.com/Greenplumwine/mbnav/internal/scan"
	"github.com/Greenplumwine/mbnav/internal/types"
	"github.com/Greenplumwine/mbnav/internal/watch"
	"github.com/Greenplumwine/mbnav/pkg/pathutil"
)

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithEditor attaches an editor host so jumps actually open files. Without
// one, jump operations resolve the destination and stop there.
func WithEditor(editor nav.Editor) Option {
	return func(e *Engine) { e.editor = editor }
}

// WithExternalLocator adds a last-resort statement lookup consulted when
// the workspace scan finds nothing.
func WithExternalLocator(l nav.ExternalLocator) Option {
	return func(e *Engine) { e.external = l }
}

// WithoutLanguageService disables the tree-sitter locator; method positions
// then come from the regex fallback only.
func WithoutLanguageService() Option {
	return func(e *Engine) { e.noLangSvc = true }
}

// Engine is the mapping resolution and navigation facade.
type Engine struct {
	cfg      *config.Config
	cache    *mapcache.Cache
	resolver *resolve.Resolver
	enum     *scan.Enumerator
	coord    *nav.Coordinator
	executor *nav.Executor
	locator  *langsvc.JavaLocator

	editor    nav.Editor
	external  nav.ExternalLocator
	noLangSvc bool

	watchMu sync.Mutex
	watcher *watch.Watcher
}

// New assembles an engine from a validated configuration.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil || cfg.Project.Root == "" {
		return nil, errors.NewConfigError("project.root", "", nil)
	}

	e := &Engine{
		cfg:   cfg,
		cache: mapcache.New(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.resolver = resolve.New(cfg)
	e.enum = scan.NewEnumerator(cfg)
	e.coord = nav.NewCoordinator(cfg, e.cache, e.resolver, e.enum, e.external)
	if e.editor != nil {
		e.executor = nav.NewExecutor(cfg, e.editor)
	}
	if !e.noLangSvc {
		e.locator = langsvc.NewJavaLocator()
	}

	return e, nil
}

// JumpResult is the destination of a jump operation.
type JumpResult struct {
	Path     string         `json:"path"`
	Position types.Position `json:"position"`
	State    string         `json:"state"`
}

// JumpToStatementFile navigates from a mapper interface to its statement
// file, landing on the statement whose id equals methodName when given.
func (e *Engine) JumpToStatementFile(ctx context.Context, interfacePath, methodName string) (JumpResult, error) {
	res, err := e.coord.LocateStatement(ctx, interfacePath)
	if err != nil {
		return JumpResult{}, err
	}

	pos := types.Position{}
	if methodName != "" {
		if p, err := inspect.FindStatementPosition(res.Path, methodName); err == nil && p != nil {
			pos = *p
		}
	}

	out := JumpResult{Path: res.Path, Position: pos, State: res.State.String()}
	if e.executor != nil {
		if err := e.executor.Jump(ctx, types.JumpToStatement, res.Path, pos); err != nil {
			return out, err
		}
	}
	return out, nil
}

// JumpToInterfaceFile navigates from a statement file to its mapper
// interface, landing on the method whose name equals statementID when given.
func (e *Engine) JumpToInterfaceFile(ctx context.Context, statementPath, statementID string) (JumpResult, error) {
	res, err := e.coord.LocateInterface(ctx, statementPath)
	if err != nil {
		return JumpResult{}, err
	}

	pos := e.methodPosition(res.Path, statementID)

	out := JumpResult{Path: res.Path, Position: pos, State: res.State.String()}
	if e.executor != nil {
		if err := e.executor.Jump(ctx, types.JumpToInterface, res.Path, pos); err != nil {
			return out, err
		}
	}
	return out, nil
}

// JumpTo dispatches on the file extension: interface files jump to their
// statement file and statement files jump back.
func (e *Engine) JumpTo(ctx context.Context, path, name string) (JumpResult, error) {
	switch filepath.Ext(path) {
	case types.InterfaceExt:
		return e.JumpToStatementFile(ctx, path, name)
	case types.StatementExt:
		return e.JumpToInterfaceFile(ctx, path, name)
	default:
		return JumpResult{}, errors.NewNotFoundError("navigable file", path)
	}
}

// methodPosition prefers the syntax-aware locator and falls back to the
// regex scan. Either failing quietly yields the top of the file.
func (e *Engine) methodPosition(interfacePath, methodName string) types.Position {
	if methodName == "" {
		return types.Position{}
	}
	if e.locator != nil {
		if content, err := os.ReadFile(interfacePath); err == nil {
			if pos, ok := e.locator.MethodPosition(content, methodName); ok {
				return pos
			}
		}
	}
	if p, err := inspect.FindMethodPosition(interfacePath, methodName); err == nil && p != nil {
		return *p
	}
	return types.Position{}
}

// RefreshAllMappings rebuilds the cache from a full workspace scan and
// returns the number of pairings found. The cache is cleared first so
// deleted pairings do not survive a refresh.
func (e *Engine) RefreshAllMappings(ctx context.Context) (int, error) {
	interfaces, err := e.enum.InterfaceFiles(ctx, 0)
	if err != nil {
		return 0, err
	}
	statements, err := e.enum.StatementFiles(ctx, 0)
	if err != nil {
		return 0, err
	}
	provide := func(context.Context) ([]string, error) { return statements, nil }

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	var mu sync.Mutex
	var found []types.Mapping

	for _, ifacePath := range interfaces {
		g.Go(func() error {
			if !inspect.IsMapperInterface(ifacePath) {
				return nil
			}
			stmt, err := e.resolver.Resolve(gctx, ifacePath, provide)
			if err != nil {
				return err
			}
			if stmt == "" {
				return nil
			}
			mu.Lock()
			found = append(found, types.Mapping{InterfacePath: ifacePath, StatementPath: stmt})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	e.cache.Clear()
	for _, m := range found {
		e.cache.Put(m)
		e.fingerprint(m.InterfacePath)
		e.fingerprint(m.StatementPath)
	}
	debug.LogResolve("refresh complete: %d mappings\n", len(found))
	return len(found), nil
}

func (e *Engine) fingerprint(path string) {
	if content, err := os.ReadFile(path); err == nil {
		e.cache.SetFingerprint(path, content)
	}
}

// Mappings returns a snapshot of interface -> statement pairings.
func (e *Engine) Mappings() map[string]string { return e.cache.Mappings() }

// ReverseMappings returns a snapshot of statement -> interface pairings.
func (e *Engine) ReverseMappings() map[string]string { return e.cache.ReverseMappings() }

// ParseStatementNamespace reads the mapper namespace from a statement file.
func (e *Engine) ParseStatementNamespace(path string) (string, error) {
	return inspect.ParseStatementNamespace(path)
}

// StatementIDs lists the statement ids declared in a statement file, in
// file order.
func (e *Engine) StatementIDs(path string) ([]string, error) {
	return inspect.StatementIDs(path)
}

// ExtractParameters lists the parameters of a mapper method, expanding
// object parameters into their field names when the type's source can be
// found in the workspace.
func (e *Engine) ExtractParameters(ctx context.Context, interfacePath, methodName string) ([]types.Parameter, error) {
	finder := func(typeName, nearDir string) string {
		local := filepath.Join(nearDir, typeName+types.InterfaceExt)
		if info, err := os.Stat(local); err == nil && !info.IsDir() {
			return local
		}
		files, err := e.enum.InterfaceFiles(ctx, 0)
		if err != nil {
			return ""
		}
		for _, f := range files {
			if pathutil.BaseName(f) == typeName {
				return f
			}
		}
		return ""
	}
	return inspect.ExtractParameters(interfacePath, methodName, finder)
}

// Watch starts filesystem watching so external edits invalidate the cache.
// Idempotent; a second call is a no-op while a watcher is running.
func (e *Engine) Watch() error {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	if e.watcher != nil {
		return nil
	}

	w, err := watch.New(e.cfg, watch.Callbacks{
		OnRemoved: e.onRemoved,
		OnChanged: e.onChanged,
		OnCreated: e.onCreated,
	})
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	e.watcher = w
	return nil
}

func (e *Engine) onRemoved(path string) {
	debug.LogWatch("invalidating removed %s\n", path)
	e.cache.Remove(path)
}

// onChanged drops the pairing for the changed file only and re-resolves
// it, leaving unrelated cache entries intact. A content fingerprint match
// means the event was spurious and nothing is touched.
func (e *Engine) onChanged(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		e.cache.Remove(path)
		return
	}
	if e.cache.UnchangedSince(path, content) {
		debug.LogWatch("unchanged content for %s, keeping mapping\n", path)
		return
	}
	e.cache.Remove(path)
	e.rescanFile(path)
	e.cache.SetFingerprint(path, content)
}

func (e *Engine) onCreated(path string) {
	e.rescanFile(path)
	e.fingerprint(path)
}

// rescanFile re-derives the pairing a single file participates in.
func (e *Engine) rescanFile(path string) {
	ctx := context.Background()
	switch filepath.Ext(path) {
	case types.InterfaceExt:
		if !inspect.IsMapperInterface(path) {
			return
		}
		stmt, err := e.resolver.Resolve(ctx, path, func(c context.Context) ([]string, error) {
			return e.enum.StatementFiles(c, 0)
		})
		if err == nil && stmt != "" {
			e.cache.Put(types.Mapping{InterfacePath: path, StatementPath: stmt})
		}
	case types.StatementExt:
		iface, err := e.resolver.ResolveReverse(ctx, path, func(c context.Context) ([]string, error) {
			return e.enum.InterfaceFiles(c, 0)
		})
		if err == nil && iface != "" {
			e.cache.Put(types.Mapping{InterfacePath: iface, StatementPath: path})
		}
	}
}

// Close stops the watcher and releases the language service.
func (e *Engine) Close() error {
	e.watchMu.Lock()
	w := e.watcher
	e.watcher = nil
	e.watchMu.Unlock()

	var err error
	if w != nil {
		err = w.Stop()
	}
	e.locator.Close()
	return err
}
