// Package autosave persists program edits after a quiet period.
package autosave

import (
	"sort"
	"sync"
	"time"

	"github.com/kayz/promptblocks/internal/logger"
	"github.com/kayz/promptblocks/internal/program"
)

// DefaultDelay is the idle time before a pending edit is saved.
const DefaultDelay = 500 * time.Millisecond

// SaveFunc persists one program.
type SaveFunc func(p program.Program) error

type pending struct {
	program program.Program
	timer   *time.Timer
	gen     uint64
}

// Debouncer coalesces rapid edits per program id and saves only the latest
// value once no new edit arrived for the configured delay.
type Debouncer struct {
	delay time.Duration
	save  SaveFunc

	mu      sync.Mutex
	pending map[string]*pending
	gen     uint64
	stopped bool
	wg      sync.WaitGroup
}

// New creates a Debouncer. A non-positive delay uses DefaultDelay.
func New(delay time.Duration, save SaveFunc) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{
		delay:   delay,
		save:    save,
		pending: make(map[string]*pending),
	}
}

// Trigger schedules p to be saved, replacing any value still waiting for the
// same program id. After Stop it saves immediately.
func (d *Debouncer) Trigger(p program.Program) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		d.run(p)
		return
	}

	d.gen++
	gen := d.gen
	if e, ok := d.pending[p.ID]; ok {
		e.timer.Stop()
	}
	id := p.ID
	d.pending[id] = &pending{
		program: p.Clone(),
		gen:     gen,
		timer:   time.AfterFunc(d.delay, func() { d.fire(id, gen) }),
	}
	d.mu.Unlock()
}

// Pending reports how many programs are waiting to be saved.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush saves every pending program now.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	batch := make([]program.Program, 0, len(d.pending))
	for id, e := range d.pending {
		e.timer.Stop()
		batch = append(batch, e.program)
		delete(d.pending, id)
	}
	d.mu.Unlock()

	sort.Slice(batch, func(i, j int) bool { return batch[i].ID < batch[j].ID })
	for _, p := range batch {
		d.run(p)
	}
}

// Stop flushes pending edits and waits for saves already running.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	d.Flush()
	d.wg.Wait()
}

func (d *Debouncer) fire(id string, gen uint64) {
	d.mu.Lock()
	e, ok := d.pending[id]
	if !ok || e.gen != gen {
		d.mu.Unlock()
		return
	}
	delete(d.pending, id)
	d.wg.Add(1)
	d.mu.Unlock()

	defer d.wg.Done()
	d.run(e.program)
}

func (d *Debouncer) run(p program.Program) {
	if d.save == nil {
		return
	}
	if err := d.save(p); err != nil {
		logger.Error("[Autosave] Failed to save program %s: %v", p.ID, err)
		return
	}
	logger.Debug("[Autosave] Saved program %s (%d blocks)", p.ID, len(p.Blocks))
}
