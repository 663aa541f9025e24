package progress

import "sync"

// Combine returns n reporters that feed one phase of next.
// next sees a single Begin once every part has begun, carrying the summed
// totals, and a single Done once every part is done. Progress reported by a
// part before that first Begin is held back and replayed after it.
//
// A part that reports Done without having begun counts as an empty part, so
// a producer that failed early still lets next finish. Repeated Begin or
// Done calls on one part are ignored.
func Combine(next Reporter, n int) []Reporter {
	if n < 1 {
		n = 1
	}
	g := &combined{next: next, parts: n}
	parts := make([]Reporter, n)
	for i := range parts {
		parts[i] = &combinedPart{group: g}
	}
	return parts
}

type eventKind int

const (
	eventAdvance eventKind = iota
	eventSkip
	eventDone
)

type event struct {
	kind  eventKind
	path  string
	bytes int64
	err   error
}

type combined struct {
	mu      sync.Mutex
	next    Reporter
	parts   int
	begun   int
	done    int
	ready   bool // next has begun and the backlog is drained
	phase   Phase
	files   int
	bytes   int64
	pending []event
}

type combinedPart struct {
	group *combined
	begun bool // guarded by group.mu
	done  bool
}

func (p *combinedPart) Begin(phase Phase, totalFiles int, totalBytes int64) {
	g := p.group
	g.mu.Lock()
	if p.begun {
		g.mu.Unlock()
		return
	}
	p.begun = true
	if phase != "" {
		g.phase = phase
	}
	g.files += totalFiles
	g.bytes += totalBytes
	g.begun++
	last := g.begun == g.parts
	g.mu.Unlock()

	if !last {
		return
	}

	g.next.Begin(g.phase, g.files, g.bytes)
	for {
		g.mu.Lock()
		pending := g.pending
		g.pending = nil
		if len(pending) == 0 {
			g.ready = true
			g.mu.Unlock()
			return
		}
		g.mu.Unlock()

		for _, e := range pending {
			g.forward(e)
		}
	}
}

func (p *combinedPart) Advance(path string, bytes int64) {
	p.group.send(event{kind: eventAdvance, path: path, bytes: bytes})
}

func (p *combinedPart) Skip(path string, err error) {
	p.group.send(event{kind: eventSkip, path: path, err: err})
}

func (p *combinedPart) Done() {
	g := p.group
	g.mu.Lock()
	if p.done {
		g.mu.Unlock()
		return
	}
	p.done = true
	begun := p.begun
	g.mu.Unlock()

	if !begun {
		p.Begin("", 0, 0)
	}
	g.send(event{kind: eventDone})
}

// send forwards e, or queues it until next has begun
func (g *combined) send(e event) {
	g.mu.Lock()
	if !g.ready {
		g.pending = append(g.pending, e)
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	g.forward(e)
}

func (g *combined) forward(e event) {
	switch e.kind {
	case eventAdvance:
		g.next.Advance(e.path, e.bytes)
	case eventSkip:
		g.next.Skip(e.path, e.err)
	case eventDone:
		g.mu.Lock()
		g.done++
		last := g.done == g.parts
		g.mu.Unlock()
		if last {
			g.next.Done()
		}
	}
}
