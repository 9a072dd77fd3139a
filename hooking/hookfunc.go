package hooking

// HookFunc turns a function into a Hook. Positions limits the hook to the
// listed positions; an empty list means every position.
type HookFunc struct {
	Positions []*HookPos
	Fn        func(ctx HookCtx)
}

// OnPositions creates a HookFunc that only runs at the given positions, or at
// every position if none is given.
func OnPositions(fn func(ctx HookCtx), positions ...*HookPos) *HookFunc {
	return &HookFunc{Positions: positions, Fn: fn}
}

// Func calls the function if the position is of interest.
func (h *HookFunc) Func(ctx HookCtx) {
	if h.wants(ctx.Pos) {
		h.Fn(ctx)
	}
}

func (h *HookFunc) wants(pos *HookPos) bool {
	if len(h.Positions) == 0 {
		return true
	}

	for _, p := range h.Positions {
		if p == pos {
			return true
		}
	}

	return false
}
