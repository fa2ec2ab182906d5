package ade

import "sync"

// Workspace holds the three solution arrays of one solve.
type Workspace struct {
	U        []float64
	Forward  []float64
	Backward []float64
}

// NewWorkspace allocates arrays for ns spatial steps (ns+1 nodes).
func NewWorkspace(ns int) *Workspace {
	return &Workspace{
		U:        make([]float64, ns+1),
		Forward:  make([]float64, ns+1),
		Backward: make([]float64, ns+1),
	}
}

// Arena recycles workspaces between solves of the same spatial resolution.
// A workspace is owned by exactly one solve between Get and Put.
type Arena struct {
	mu    sync.Mutex
	pools map[int]*sync.Pool
}

func NewArena() *Arena {
	return &Arena{pools: make(map[int]*sync.Pool)}
}

func (a *Arena) pool(ns int) *sync.Pool {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pools[ns]
	if !ok {
		p = &sync.Pool{New: func() any { return NewWorkspace(ns) }}
		a.pools[ns] = p
	}
	return p
}

// Get returns a zeroed workspace for ns spatial steps. A nil Arena allocates.
func (a *Arena) Get(ns int) *Workspace {
	if a == nil {
		return NewWorkspace(ns)
	}
	ws := a.pool(ns).Get().(*Workspace)
	clear(ws.U)
	clear(ws.Forward)
	clear(ws.Backward)
	return ws
}

// Put hands a workspace back. The caller must not touch it afterwards.
func (a *Arena) Put(ws *Workspace) {
	if a == nil || ws == nil || len(ws.U) < 3 {
		return
	}
	a.pool(len(ws.U) - 1).Put(ws)
}
