package mutation

import (
	"github.com/chameleon-db/chameleon-mock/pkg/engine"
	builders "github.com/chameleon-db/chameleon-mock/pkg/engine/mutation"
)

// ============================================================
// MUTATION FACTORY
// ============================================================
//

// Factory creates builders bound to an engine: its schema for validation,
// its provider for execution and its debug context for SQL logging.
type Factory struct {
	engine *engine.Engine
}

func NewFactory(eng *engine.Engine) *Factory {
	return &Factory{engine: eng}
}

// Register installs a Factory on the engine
func Register(eng *engine.Engine) *Factory {
	f := NewFactory(eng)
	eng.SetMutationFactory(f)
	return f
}

func (f *Factory) NewInsert(entity string) engine.InsertMutation {
	b := builders.NewInsertBuilder(f.engine.Schema(), entity).
		WithExecutor(f.engine).
		WithDebugContext(f.engine.Debug)
	b.SetDialect(f.engine.Dialect())
	return b
}

func (f *Factory) NewUpdate(entity string) engine.UpdateMutation {
	b := builders.NewUpdateBuilder(f.engine.Schema(), entity).
		WithExecutor(f.engine).
		WithDebugContext(f.engine.Debug)
	b.SetDialect(f.engine.Dialect())
	return b
}

func (f *Factory) NewDelete(entity string) engine.DeleteMutation {
	b := builders.NewDeleteBuilder(f.engine.Schema(), entity).
		WithExecutor(f.engine).
		WithDebugContext(f.engine.Debug)
	b.SetDialect(f.engine.Dialect())
	return b
}
