// Package hooking lets observers follow a search without being part of it.
package hooking

// HookPos names a point of a search where hooks are invoked.
type HookPos struct {
	Name string
}

func (p *HookPos) String() string {
	return p.Name
}

// HookCtx is passed to every hook. Item is the object the event is about and
// Detail carries optional extra information.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   any
	Detail any
}

// Hookable is something that hooks can be attached to.
type Hookable interface {
	// AcceptHook registers a hook.
	AcceptHook(hook Hook)

	// NumHooks returns the number of hooks registered.
	NumHooks() int

	// Hooks returns all the hooks registered.
	Hooks() []Hook
}

// A Hook reacts to events of a Hookable.
type Hook interface {
	Func(ctx HookCtx)
}

// HookableBase implements Hookable and can be embedded.
type HookableBase struct {
	hooks []Hook
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

// Hooks returns all the hooks registered.
func (h *HookableBase) Hooks() []Hook {
	return h.hooks
}

// AcceptHook registers a hook. Registering the same hook twice panics.
func (h *HookableBase) AcceptHook(hook Hook) {
	for _, existing := range h.hooks {
		if existing == hook {
			panic("duplicated hook")
		}
	}

	h.hooks = append(h.hooks, hook)
}

// InvokeHook calls every hook in registration order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}
