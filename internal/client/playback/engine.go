// Package playback is the per-session story viewer state machine. A session
// owns its progress ticker outright: open and close are the only code paths
// that start or stop it, and every exit path releases it.
package playback

import (
	"context"
	"sync"
	"time"

	"github.com/syqdur/wedpxres-sub001/internal/models"
)

type State string

const (
	StateLoading State = "loading"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateClosed  State = "closed"
)

const (
	DefaultTickPeriod    = 100 * time.Millisecond
	DefaultStoryDuration = 5 * time.Second
)

// Snapshot is the read-only render state of a session. Story is nil once
// the session is closed.
type Snapshot struct {
	State    State
	Index    int
	Progress float64
	Story    *models.Story
}

// Options configures a session. Preload warms the media cache before a
// story starts playing; its failure is never fatal. MarkViewed fires
// exactly once per entry into a story; the tracker behind it is idempotent,
// so repeated entries are safe. Preload runs on the session goroutine;
// MarkViewed runs on a dedicated marker goroutine so a slow tracker
// round-trip never stalls progress or command handling. Neither hook may
// call back into the engine.
type Options struct {
	TickPeriod    time.Duration
	StoryDuration time.Duration
	Preload       func(ctx context.Context, story *models.Story) error
	MarkViewed    func(ctx context.Context, storyID string)
}

func (o *Options) normalize() {
	if o.TickPeriod <= 0 {
		o.TickPeriod = DefaultTickPeriod
	}
	if o.StoryDuration <= 0 {
		o.StoryDuration = DefaultStoryDuration
	}
}

// Engine runs one playback session. All transitions execute strictly
// sequentially on a single internal goroutine; public methods enqueue
// commands and State() reads a published snapshot, so no transition ever
// overlaps another.
type Engine struct {
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc

	// markCtx is the caller's context, not the session's: a mark queued
	// just before the session closes must still reach the tracker.
	markCtx context.Context

	cmds   chan func()
	closed chan struct{}
	marks  chan string

	// Owned by the loop goroutine.
	stories  []*models.Story
	index    int
	progress float64
	state    State
	ticker   *time.Ticker
	tickC    <-chan time.Time

	mu   sync.Mutex
	snap Snapshot
}

// Open starts a session over a snapshot of the ordered story list. An empty
// list closes immediately. startIndex is clamped into range.
func Open(ctx context.Context, stories []*models.Story, startIndex int, opts Options) *Engine {
	opts.normalize()

	markCtx := ctx
	ctx, cancel := context.WithCancel(ctx)
	e := &Engine{
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		markCtx: markCtx,
		cmds:    make(chan func()),
		closed:  make(chan struct{}),
		marks:   make(chan string, 16),
		stories: append([]*models.Story(nil), stories...),
		state:   StateLoading,
		ticker:  time.NewTicker(opts.TickPeriod),
	}
	e.ticker.Stop()

	if opts.MarkViewed != nil {
		go e.markLoop()
	}
	go e.loop(startIndex)
	return e
}

// State returns the latest published snapshot. Safe from any goroutine.
func (e *Engine) State() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

func (e *Engine) Pause()  { e.do(func() { e.pause() }) }
func (e *Engine) Resume() { e.do(func() { e.resume() }) }

// Next behaves like natural completion: advance, or close at the last
// index.
func (e *Engine) Next() { e.do(func() { e.advance() }) }

// Previous steps back one story; at index 0 it is a no-op.
func (e *Engine) Previous() {
	e.do(func() {
		if e.index > 0 {
			e.enter(e.index - 1)
		}
	})
}

// DeleteCurrent removes the current story from the session's list and
// re-enters. An emptied list closes the session; deleting the last index
// steps back one, otherwise the next story slides into the vacated
// position.
func (e *Engine) DeleteCurrent() { e.do(func() { e.deleteCurrent() }) }

// SetStories replaces the session's story list after an external mutation.
// The current index is re-validated and clamped; an emptied list closes the
// session.
func (e *Engine) SetStories(stories []*models.Story) {
	snapshot := append([]*models.Story(nil), stories...)
	e.do(func() {
		e.stories = snapshot
		if len(e.stories) == 0 {
			e.close()
			return
		}
		if e.index >= len(e.stories) {
			e.enter(len(e.stories) - 1)
			return
		}
		e.publish()
	})
}

// Close ends the session and releases the ticker. Idempotent, reachable
// from every state.
func (e *Engine) Close() {
	e.do(func() { e.close() })
	e.cancel()
}

// do runs f on the session goroutine, or drops it if the session already
// ended.
func (e *Engine) do(f func()) {
	select {
	case e.cmds <- f:
	case <-e.closed:
	}
}

func (e *Engine) loop(startIndex int) {
	defer close(e.closed)
	defer e.ticker.Stop()
	defer e.cancel()

	e.enter(startIndex)

	for e.state != StateClosed {
		select {
		case cmd := <-e.cmds:
			cmd()
		case <-e.tickC:
			e.tick()
		case <-e.ctx.Done():
			e.close()
		}
	}
}

// enter transitions into the story at index i: Loading, preload, then
// Playing from progress 0 with a view mark.
func (e *Engine) enter(i int) {
	if len(e.stories) == 0 {
		e.close()
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= len(e.stories) {
		i = len(e.stories) - 1
	}

	e.index = i
	e.progress = 0
	e.state = StateLoading
	e.stopTick()
	e.publish()

	story := e.stories[i]
	if e.opts.Preload != nil {
		// A failed preload still starts the timer; the renderer shows a
		// fallback instead.
		_ = e.opts.Preload(e.ctx, story)
	}

	e.state = StatePlaying
	e.startTick()
	e.publish()

	if e.opts.MarkViewed != nil {
		// Hand the mark to the marker goroutine. A backed-up tracker sheds
		// marks rather than stalling playback; the view set is lossy-tolerant.
		select {
		case e.marks <- story.ID:
		default:
		}
	}
}

// markLoop drains queued view marks in entry order, keeping the tracker
// round-trip off the session goroutine. Marks still queued at close are
// flushed before the goroutine exits.
func (e *Engine) markLoop() {
	for {
		select {
		case id := <-e.marks:
			e.opts.MarkViewed(e.markCtx, id)
		case <-e.closed:
			for {
				select {
				case id := <-e.marks:
					e.opts.MarkViewed(e.markCtx, id)
				default:
					return
				}
			}
		}
	}
}

func (e *Engine) tick() {
	if e.state != StatePlaying {
		return
	}

	e.progress += 100 / (float64(e.opts.StoryDuration) / float64(e.opts.TickPeriod))
	if e.progress >= 100 {
		e.advance()
		return
	}
	e.publish()
}

func (e *Engine) advance() {
	if e.state == StateClosed {
		return
	}
	if e.index >= len(e.stories)-1 {
		e.close()
		return
	}
	e.enter(e.index + 1)
}

func (e *Engine) pause() {
	if e.state != StatePlaying {
		return
	}
	e.state = StatePaused
	e.stopTick()
	e.publish()
}

func (e *Engine) resume() {
	if e.state != StatePaused {
		return
	}
	e.state = StatePlaying
	e.startTick()
	e.publish()
}

func (e *Engine) deleteCurrent() {
	if e.state == StateClosed || len(e.stories) == 0 {
		return
	}

	i := e.index
	e.stories = append(e.stories[:i], e.stories[i+1:]...)

	if len(e.stories) == 0 {
		e.close()
		return
	}
	if i >= len(e.stories) {
		i = len(e.stories) - 1
	}
	e.enter(i)
}

func (e *Engine) close() {
	if e.state == StateClosed {
		return
	}
	e.state = StateClosed
	e.stopTick()
	e.publish()
}

func (e *Engine) startTick() {
	e.ticker.Reset(e.opts.TickPeriod)
	e.tickC = e.ticker.C
}

func (e *Engine) stopTick() {
	e.ticker.Stop()
	select {
	case <-e.ticker.C:
	default:
	}
	e.tickC = nil
}

func (e *Engine) publish() {
	snap := Snapshot{State: e.state, Index: e.index, Progress: e.progress}
	if e.state != StateClosed && e.index < len(e.stories) {
		snap.Story = e.stories[e.index]
	}

	e.mu.Lock()
	e.snap = snap
	e.mu.Unlock()
}
