package migrate

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/settings-sdk/pkg/model"
	"github.com/mesh-intelligence/settings-sdk/pkg/types"
	"github.com/mesh-intelligence/settings-sdk/pkg/value"
)

// ErrMigratorPanic is the cause recorded when a migrator panics.
var ErrMigratorPanic = errors.New("migrator panicked")

// Resolver finds the model of a version. *registry.Registry implements it.
type Resolver interface {
	Resolve(v types.Version) (*model.Model, error)
}

// Run applies the migrators of p to doc in order. Each migrator's output is
// decoded under its target model before it is fed to the next one, and the
// final document must validate under the last model. The first failure aborts
// the chain and is returned as a MigratorFailureError naming the edge; no
// partially migrated document is ever returned.
func Run(p Path, doc model.Document, models Resolver) (model.Document, error) {
	if doc.Version() != p.from {
		return model.Document{}, fmt.Errorf("run %s: document has version %q", p, doc.Version())
	}
	cur := doc
	for _, e := range p.edges {
		next, err := e.apply(cur, models)
		if err != nil {
			return model.Document{}, &types.MigratorFailureError{From: e.From, To: e.To, Err: err}
		}
		cur = next
	}
	if n := len(p.edges); n > 0 {
		last := p.edges[n-1]
		target, err := models.Resolve(last.To)
		if err != nil {
			return model.Document{}, err
		}
		if _, err := target.Check(cur.Value(), value.Null()); err != nil {
			return model.Document{}, &types.MigratorFailureError{From: last.From, To: last.To, Err: err}
		}
	}
	return cur, nil
}

func (e Edge) apply(in model.Document, models Resolver) (model.Document, error) {
	target, err := models.Resolve(e.To)
	if err != nil {
		return model.Document{}, err
	}
	tree, err := e.call(in.Value())
	if err != nil {
		return model.Document{}, err
	}
	return target.Decode(tree)
}

func (e Edge) call(in value.Value) (out value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrMigratorPanic, r)
		}
	}()
	return e.fn(in)
}
