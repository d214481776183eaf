// Package callctx carries the per-request call context: the realm, the
// shared persistence handle, the configuration snapshot, and the
// principal name of the caller.
//
// A call context is created before authentication has finished, so the
// principal is filled in later, exactly once, via AttachPrincipal (or
// resolved lazily by a PrincipalResolver). Reading the principal before
// that point is an error, never a silent empty name.
package callctx

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rhuss/lakegate/pkg/config"
	"github.com/rhuss/lakegate/pkg/storage"
)

var (
	// ErrPrincipalUnresolved is returned when the principal is read
	// before it was attached or resolved.
	ErrPrincipalUnresolved = errors.New("principal not yet resolved")

	// ErrPrincipalAlreadyAttached is returned by a second AttachPrincipal.
	ErrPrincipalAlreadyAttached = errors.New("principal already attached")
)

// RealmContext identifies the realm a request operates in.
type RealmContext interface {
	RealmID() string
}

// StaticRealm is a RealmContext with a fixed identifier.
type StaticRealm string

// RealmID returns the realm identifier.
func (r StaticRealm) RealmID() string { return string(r) }

// PrincipalResolver produces the principal name on first read.
type PrincipalResolver func() (string, error)

// CallContext is the request-scoped context. Realm, persistence, and
// configuration are fixed at construction; the principal is set once.
type CallContext struct {
	realm RealmContext
	store storage.Persistence
	cfg   *config.Config

	principal atomic.Pointer[string]

	resolveMu sync.Mutex
	resolver  PrincipalResolver
}

// Option configures a CallContext.
type Option func(*CallContext)

// WithPrincipal sets the principal name eagerly.
func WithPrincipal(name string) Option {
	return func(c *CallContext) {
		c.principal.Store(&name)
	}
}

// WithPrincipalResolver defers the principal to fn, called at most once
// successfully, on the first read.
func WithPrincipalResolver(fn PrincipalResolver) Option {
	return func(c *CallContext) {
		c.resolver = fn
	}
}

// New creates a call context.
func New(realm RealmContext, store storage.Persistence, cfg *config.Config, opts ...Option) *CallContext {
	c := &CallContext{realm: realm, store: store, cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Realm returns the realm context.
func (c *CallContext) Realm() RealmContext { return c.realm }

// RealmID returns the realm identifier.
func (c *CallContext) RealmID() string {
	if c.realm == nil {
		return ""
	}
	return c.realm.RealmID()
}

// Persistence returns the shared persistence handle.
func (c *CallContext) Persistence() storage.Persistence { return c.store }

// Config returns the configuration snapshot. Callers must not modify it.
func (c *CallContext) Config() *config.Config { return c.cfg }

// AttachPrincipal sets the principal name. It succeeds once; later
// calls return ErrPrincipalAlreadyAttached and leave the name unchanged.
func (c *CallContext) AttachPrincipal(name string) error {
	if !c.principal.CompareAndSwap(nil, &name) {
		return ErrPrincipalAlreadyAttached
	}
	return nil
}

// PrincipalName returns the principal name, invoking the resolver on the
// first read if one was configured.
func (c *CallContext) PrincipalName() (string, error) {
	if p := c.principal.Load(); p != nil {
		return *p, nil
	}
	if c.resolver == nil {
		return "", ErrPrincipalUnresolved
	}

	c.resolveMu.Lock()
	defer c.resolveMu.Unlock()

	if p := c.principal.Load(); p != nil {
		return *p, nil
	}
	name, err := c.resolver()
	if err != nil {
		return "", err
	}
	if !c.principal.CompareAndSwap(nil, &name) {
		return *c.principal.Load(), nil
	}
	return name, nil
}

// MustPrincipalName is PrincipalName for code paths that run strictly
// after authentication. It panics if the principal is unresolved.
func (c *CallContext) MustPrincipalName() string {
	name, err := c.PrincipalName()
	if err != nil {
		panic("callctx: " + err.Error())
	}
	return name
}

// Copy returns a snapshot suitable for handing to work that outlives the
// request. The realm is frozen into a StaticRealm and the principal is
// captured now; if it cannot be resolved yet the copy stays unresolved.
// Persistence and configuration are shared.
func (c *CallContext) Copy() *CallContext {
	cp := &CallContext{
		realm: StaticRealm(c.RealmID()),
		store: c.store,
		cfg:   c.cfg,
	}
	if name, err := c.PrincipalName(); err == nil {
		cp.principal.Store(&name)
	}
	return cp
}

// callContextKey is a private type for the call context key.
type callContextKey struct{}

// WithCallContext stores c in ctx.
func WithCallContext(ctx context.Context, c *CallContext) context.Context {
	return context.WithValue(ctx, callContextKey{}, c)
}

// FromContext returns the call context stored in ctx, or nil.
func FromContext(ctx context.Context) *CallContext {
	if c, ok := ctx.Value(callContextKey{}).(*CallContext); ok {
		return c
	}
	return nil
}
