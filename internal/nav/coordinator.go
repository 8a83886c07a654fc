// Package nav coordinates navigation requests: cache-first lookup, the
// escalating resolution states behind it, and jump execution against an
// editor host.
package nav

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/Greenplumwine/mbnav/internal/config"
	"github.com/Greenplumwine/mbnav/internal/debug"
	"github.com/Greenplumwine/mbnav/internal/errors"
	"github.com/Greenplumwine/mbnav/internal/mapcache"
	"github.com/Greenplumwine/mbnav/internal/resolve"
	"github.com/Greenplumwine/mbnav/internal/types"
	"github.com/Greenplumwine/mbnav/pkg/pathutil"
)

// State names a stage of a navigation request. Requests always move
// forward; a hit at any stage resolves, exhaustion fails.
type State int

const (
	StateCacheLookup State = iota
	StateQuickPath
	StateFullScan
	StateExternal
	StateResolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCacheLookup:
		return "cache-lookup"
	case StateQuickPath:
		return "quick-path"
	case StateFullScan:
		return "full-scan"
	case StateExternal:
		return "external"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ExternalLocator is an optional last-resort lookup consulted after the
// full scan comes up empty, typically backed by an external index service.
type ExternalLocator interface {
	LocateStatement(ctx context.Context, interfacePath string) (string, error)
}

// CandidateSource enumerates candidate files for the full-scan state.
type CandidateSource interface {
	StatementFiles(ctx context.Context, limit int) ([]string, error)
	InterfaceFiles(ctx context.Context, limit int) ([]string, error)
}

// Coordinator drives a navigation request through its states.
type Coordinator struct {
	cfg      *config.Config
	cache    *mapcache.Cache
	resolver *resolve.Resolver
	source   CandidateSource
	external ExternalLocator
}

// NewCoordinator assembles a coordinator. external may be nil.
func NewCoordinator(cfg *config.Config, cache *mapcache.Cache, resolver *resolve.Resolver, source CandidateSource, external ExternalLocator) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		cache:    cache,
		resolver: resolver,
		source:   source,
		external: external,
	}
}

// Result reports where a navigation landed and which state produced it.
type Result struct {
	Path  string
	State State
}

// LocateStatement finds the statement file for interfacePath, escalating
// through the cache, the quick path, a full workspace scan, and any
// configured external locator. The whole request runs under the configured
// navigation timeout.
func (c *Coordinator) LocateStatement(ctx context.Context, interfacePath string) (Result, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if hit, ok := c.cache.Get(interfacePath); ok {
		debug.LogNav("%s: %s -> %s\n", StateCacheLookup, interfacePath, hit)
		return Result{Path: hit, State: StateCacheLookup}, nil
	}

	if hit := c.resolver.QuickPath(interfacePath); hit != "" {
		debug.LogNav("%s: %s -> %s\n", StateQuickPath, interfacePath, hit)
		c.cache.Put(types.Mapping{InterfacePath: interfacePath, StatementPath: hit})
		return Result{Path: hit, State: StateQuickPath}, nil
	}

	hit, err := c.resolver.Resolve(ctx, interfacePath, c.statementCandidates)
	if err != nil {
		return Result{State: StateFailed}, c.classify(err, interfacePath)
	}
	if hit != "" {
		debug.LogNav("%s: %s -> %s\n", StateFullScan, interfacePath, hit)
		c.cache.Put(types.Mapping{InterfacePath: interfacePath, StatementPath: hit})
		return Result{Path: hit, State: StateFullScan}, nil
	}

	if c.external != nil {
		hit, err := c.external.LocateStatement(ctx, interfacePath)
		if err != nil {
			debug.LogNav("external locator failed for %s: %v\n", interfacePath, err)
		} else if hit != "" {
			debug.LogNav("%s: %s -> %s\n", StateExternal, interfacePath, hit)
			c.cache.Put(types.Mapping{InterfacePath: interfacePath, StatementPath: hit})
			return Result{Path: hit, State: StateExternal}, nil
		}
	}

	return Result{State: StateFailed}, c.notFound(ctx, interfacePath)
}

// LocateInterface finds the interface file owning statementPath.
func (c *Coordinator) LocateInterface(ctx context.Context, statementPath string) (Result, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if hit, ok := c.cache.GetReverse(statementPath); ok {
		debug.LogNav("%s: %s -> %s\n", StateCacheLookup, statementPath, hit)
		return Result{Path: hit, State: StateCacheLookup}, nil
	}

	hit, err := c.resolver.ResolveReverse(ctx, statementPath, c.interfaceCandidates)
	if err != nil {
		return Result{State: StateFailed}, c.classify(err, statementPath)
	}
	if hit != "" {
		debug.LogNav("%s: %s -> %s\n", StateFullScan, statementPath, hit)
		c.cache.Put(types.Mapping{InterfacePath: hit, StatementPath: statementPath})
		return Result{Path: hit, State: StateFullScan}, nil
	}

	return Result{State: StateFailed}, errors.NewNotFoundError("mapper interface", statementPath)
}

func (c *Coordinator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(c.cfg.Navigation.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = types.DefaultNavigationTimeoutMs * time.Millisecond
	}
	return context.WithTimeout(ctx, timeout)
}

func (c *Coordinator) statementCandidates(ctx context.Context) ([]string, error) {
	return c.source.StatementFiles(ctx, 0)
}

func (c *Coordinator) interfaceCandidates(ctx context.Context) ([]string, error) {
	return c.source.InterfaceFiles(ctx, 0)
}

func (c *Coordinator) classify(err error, path string) error {
	if ctxErr := contextCause(err); ctxErr != nil {
		return errors.NewTimeoutError("navigate", time.Duration(c.cfg.Navigation.TimeoutMs)*time.Millisecond)
	}
	return errors.NewParseError("navigate", path, err)
}

func contextCause(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// notFound builds the failure with near-name suggestions when the scan can
// still enumerate candidates inside the remaining deadline.
func (c *Coordinator) notFound(ctx context.Context, interfacePath string) error {
	nf := errors.NewNotFoundError("statement file", interfacePath)
	candidates, err := c.source.StatementFiles(ctx, 0)
	if err != nil {
		return nf
	}
	return nf.WithSuggestions(resolve.SuggestForStatement(
		pathutil.BaseName(interfacePath),
		candidates,
		c.cfg.Resolution.IgnoredSuffixes,
	))
}
