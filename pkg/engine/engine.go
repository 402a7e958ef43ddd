// Package engine wires the resolution pipeline together: tree and path
// validation, root-to-leaf path, variable store, config merge and request resolution.
// It also evaluates an item's assertions against a response.
//
// An Engine holds no per-call state and may be shared across goroutines.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/blackcoderx/opencollection/pkg/assertion"
	"github.com/blackcoderx/opencollection/pkg/collection"
	"github.com/blackcoderx/opencollection/pkg/logging"
	"github.com/blackcoderx/opencollection/pkg/merge"
	"github.com/blackcoderx/opencollection/pkg/resolve"
	"github.com/blackcoderx/opencollection/pkg/template"
	"github.com/blackcoderx/opencollection/pkg/variables"
)

var (
	// ErrEnvironmentNotFound is returned when the requested environment key
	// matches neither an environment id nor a name.
	ErrEnvironmentNotFound = errors.New("environment not found")
	// ErrNotResolvable is returned for items that do not describe an HTTP
	// request (folders, scripts, graphql and grpc requests).
	ErrNotResolvable = errors.New("item cannot be resolved to an http request")
)

// Engine resolves items of a collection.
type Engine struct {
	logger   *zap.Logger
	selector variables.Selector
	workers  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithSelector sets the variant selector used when building variable stores.
func WithSelector(sel variables.Selector) Option {
	return func(e *Engine) { e.selector = sel }
}

// WithWorkers bounds the concurrency of ResolveAll. Values below one mean
// runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// New returns an Engine. A nil logger disables logging.
func New(logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{logger: logging.OrNop(logger)}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = runtime.NumCPU()
	}
	return e
}

// Result is one resolved item together with the variable store it was
// resolved against. The store is kept for assertion templating.
type Result struct {
	Item        *collection.HTTPRequest
	Environment string
	*resolve.Resolution
	Variables *variables.Store
}

// Resolve resolves the item id against the environment envKey. An empty
// envKey resolves without an environment.
//
// The tree shape of c is checked, then the base and every item on the path
// to id. A malformed item elsewhere in the tree does not affect id. No
// partial request is returned on error.
func (e *Engine) Resolve(c *collection.Collection, id collection.ItemID, envKey string) (*Result, error) {
	if err := collection.ValidateShape(c); err != nil {
		return nil, err
	}
	env, err := e.environment(c, envKey)
	if err != nil {
		return nil, err
	}
	return e.resolve(c, id, env)
}

// ResolveAll resolves every id concurrently. Results are returned in the
// order of ids. The first failure cancels the remaining work and is
// returned.
func (e *Engine) ResolveAll(ctx context.Context, c *collection.Collection, ids []collection.ItemID, envKey string) ([]*Result, error) {
	if err := collection.ValidateShape(c); err != nil {
		return nil, err
	}
	env, err := e.environment(c, envKey)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.resolve(c, id, env)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Assert interpolates each assertion value against the item's variables and
// evaluates the enabled assertions against resp.
func (e *Engine) Assert(res *Result, resp *assertion.Response) []assertion.Result {
	var assertions []collection.Assertion
	if res != nil && res.Item != nil {
		assertions = make([]collection.Assertion, len(res.Item.Assertions))
		var unresolved []string
		for i, a := range res.Item.Assertions {
			a.Value = template.String(a.Value, res.Variables, &unresolved)
			assertions[i] = a
		}
		if len(unresolved) > 0 {
			e.logger.Warn("unresolved placeholders in assertions",
				zap.String("item", string(res.Item.ID)),
				zap.Strings("names", unresolved))
		}
	}
	results := assertion.EvaluateAll(assertions, resp)

	passed := 0
	for _, r := range results {
		if r.Pass {
			passed++
		}
	}
	e.logger.Debug("assertions evaluated", zap.Int("total", len(results)), zap.Int("passed", passed))
	return results
}

// HTTPItems lists the resolvable items under root in document order. An
// empty root lists the whole collection.
func HTTPItems(c *collection.Collection, root collection.ItemID) ([]collection.ItemID, error) {
	var ids []collection.ItemID
	collect := func(item collection.Item, _ int) error {
		if _, ok := item.(*collection.HTTPRequest); ok {
			ids = append(ids, item.Info().ID)
		}
		return nil
	}
	if root == "" {
		if err := collection.Walk(c, collect); err != nil {
			return nil, err
		}
		return ids, nil
	}

	item, ok := c.Item(root)
	if !ok {
		return nil, fmt.Errorf("%q: %w", root, collection.ErrItemNotFound)
	}
	folder, ok := item.(*collection.Folder)
	if !ok {
		if _, ok := item.(*collection.HTTPRequest); ok {
			ids = append(ids, root)
		}
		return ids, nil
	}
	sub := &collection.Collection{Items: c.Items, Root: folder.Children}
	if err := collection.Walk(sub, collect); err != nil {
		return nil, err
	}
	return ids, nil
}

func (e *Engine) environment(c *collection.Collection, key string) (*collection.Environment, error) {
	if key == "" {
		return nil, nil
	}
	env, ok := c.Environment(key)
	if !ok {
		return nil, fmt.Errorf("%q: %w", key, ErrEnvironmentNotFound)
	}
	return env, nil
}

func (e *Engine) resolve(c *collection.Collection, id collection.ItemID, env *collection.Environment) (*Result, error) {
	item, ok := c.Item(id)
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, collection.ErrItemNotFound)
	}
	req, ok := item.(*collection.HTTPRequest)
	if !ok {
		return nil, fmt.Errorf("%q is a %s item: %w", id, item.Type(), ErrNotResolvable)
	}

	path, err := collection.PathTo(c, id)
	if err != nil {
		return nil, err
	}
	if err := collection.ValidatePath(c, path); err != nil {
		return nil, err
	}
	layers, err := merge.Layers(c, path)
	if err != nil {
		return nil, err
	}

	var opts []variables.Option
	if e.selector != nil {
		opts = append(opts, variables.WithSelector(e.selector))
	}
	store := variables.Build(env, layers, opts...)

	var cfg merge.Config
	for _, layer := range layers {
		cfg = merge.Apply(cfg, layer)
	}

	envName := ""
	if env != nil {
		envName = env.Name
	}
	e.logger.Debug("resolving item",
		zap.String("item", string(id)),
		zap.String("environment", envName),
		zap.Int("depth", len(path)),
		zap.Int("variables", store.Len()))

	resolution, err := resolve.Resolve(req, cfg, store)
	if err != nil {
		return nil, err
	}
	if len(resolution.Unresolved) > 0 {
		e.logger.Warn("unresolved placeholders",
			zap.String("item", string(id)),
			zap.Strings("names", resolution.Unresolved))
	}
	return &Result{Item: req, Environment: envName, Resolution: resolution, Variables: store}, nil
}
