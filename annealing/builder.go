package annealing

import (
	"math/rand/v2"

	"github.com/go-logr/logr"

	"github.com/sarchlab/meshplace/hooking"
	"github.com/sarchlab/meshplace/placement"
)

// Builder can be used to build an Annealer.
type Builder struct {
	run    int
	config Config
	random placement.RandomSource
	hooks  []hooking.Hook
	log    logr.Logger
}

// MakeBuilder creates a builder with the default schedule.
func MakeBuilder() Builder {
	return Builder{
		config: DefaultConfig(),
		log:    logr.Discard(),
	}
}

// WithConfig sets the cooling schedule.
func (b Builder) WithConfig(c Config) Builder {
	b.config = c
	return b
}

// WithRandomSource sets the random source of the acceptance test. When not
// set, the annealer draws from a source seeded by the runtime.
func (b Builder) WithRandomSource(r placement.RandomSource) Builder {
	b.random = r
	return b
}

// WithRun sets the number that identifies the search among parallel ones.
func (b Builder) WithRun(run int) Builder {
	b.run = run
	return b
}

// WithHook attaches a hook to every annealer built.
func (b Builder) WithHook(h hooking.Hook) Builder {
	hooks := make([]hooking.Hook, len(b.hooks), len(b.hooks)+1)
	copy(hooks, b.hooks)
	b.hooks = append(hooks, h)

	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l logr.Logger) Builder {
	b.log = l
	return b
}

func (b Builder) parametersMustBeValid() {
	if err := b.config.Validate(); err != nil {
		panic(err)
	}
}

// Build creates an annealer that works on the given state. The state is
// modified by the search.
func (b Builder) Build(state *placement.State) *Annealer {
	b.parametersMustBeValid()

	a := &Annealer{
		run:    b.run,
		config: b.config,
		random: b.random,
		log:    b.log,
		state:  state,
		best:   state.Clone(),
	}

	if a.random == nil {
		a.random = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	for _, h := range b.hooks {
		a.AcceptHook(h)
	}

	return a
}
