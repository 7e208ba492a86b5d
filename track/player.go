package track

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Player drives a Playback on its own goroutine. Every state transition (commands,
// fired ticks, route loads) runs on that goroutine, and at most one tick timer is
// outstanding at a time.
type Player struct {
	clock    Clock
	logger   zerolog.Logger
	commands chan command
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once

	// owned by the player goroutine
	callbacks []func(Frame)
}

type command struct {
	name string
	// rearm cancels the outstanding tick before apply runs.
	rearm bool
	// quiet commands do not notify callbacks.
	quiet bool
	apply func(p *Playback)
	reply chan Frame
}

// NewPlayer starts a stopped player with no route. A nil clock uses the system clock.
func NewPlayer(clock Clock, interval time.Duration, logger zerolog.Logger) *Player {
	if clock == nil {
		clock = SystemClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	pl := &Player{
		clock:    clock,
		logger:   logger,
		commands: make(chan command),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go pl.run(NewPlayback(interval))
	return pl
}

// AddCallback registers fn to receive a frame after every state change. Callbacks run on
// the player goroutine in registration order and must not block.
func (pl *Player) AddCallback(fn func(Frame)) error {
	_, err := pl.do(command{name: "subscribe", quiet: true, apply: func(*Playback) {
		pl.callbacks = append(pl.callbacks, fn)
	}})
	return err
}

// Load replaces the route and rewinds, stopped. Any pending tick is cancelled first.
func (pl *Player) Load(route Route) (Frame, error) {
	return pl.do(command{name: "load", rearm: true, apply: func(p *Playback) { p.Load(route) }})
}

// Toggle starts or pauses playback.
func (pl *Player) Toggle() (Frame, error) {
	return pl.do(command{name: "toggle", apply: (*Playback).ToggleRun})
}

// Seek jumps to a fraction of the route and resumes playback.
func (pl *Player) Seek(fraction float64) (Frame, error) {
	return pl.do(command{name: "seek", apply: func(p *Playback) { p.Seek(fraction) }})
}

// Retry rewinds to the first record, stopped.
func (pl *Player) Retry() (Frame, error) {
	return pl.do(command{name: "retry", apply: (*Playback).Retry})
}

// SetInterval changes the tick interval from the next scheduled tick on.
func (pl *Player) SetInterval(d time.Duration) (Frame, error) {
	return pl.do(command{name: "interval", apply: func(p *Playback) { p.SetInterval(d) }})
}

// Snapshot returns the current frame without changing state.
func (pl *Player) Snapshot() (Frame, error) {
	return pl.do(command{name: "snapshot", quiet: true})
}

// Done is closed once the player goroutine has exited.
func (pl *Player) Done() <-chan struct{} {
	return pl.done
}

// Close stops the player, cancelling any pending tick. It is safe to call more than once.
func (pl *Player) Close() error {
	pl.once.Do(pl.cancel)
	<-pl.done
	return nil
}

func (pl *Player) do(c command) (Frame, error) {
	c.reply = make(chan Frame, 1)
	select {
	case pl.commands <- c:
	case <-pl.done:
		return Frame{}, ErrPlayerClosed
	}
	select {
	case f := <-c.reply:
		return f, nil
	case <-pl.done:
		select {
		case f := <-c.reply:
			return f, nil
		default:
			return Frame{}, ErrPlayerClosed
		}
	}
}

// run is the player loop. tickC is nil whenever no tick is scheduled, so a stopped
// timer's channel is never read again.
func (pl *Player) run(p *Playback) {
	defer close(pl.done)

	var timer Timer
	var tickC <-chan time.Time

	cancelTick := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			tickC = nil
		}
	}
	armTick := func() {
		if timer == nil && p.Running() {
			timer = pl.clock.NewTimer(p.Interval())
			tickC = timer.C()
		}
	}
	defer cancelTick()

	for {
		select {
		case <-pl.ctx.Done():
			pl.logger.Debug().Msg("Player stopped")
			return

		case c := <-pl.commands:
			if c.rearm {
				cancelTick()
			}
			if c.apply != nil {
				c.apply(p)
			}
			if p.Running() {
				armTick()
			} else {
				cancelTick()
			}
			f := p.Frame()
			if !c.quiet {
				pl.logger.Debug().
					Str("command", c.name).
					Int("index", f.Index).
					Int("total", f.Total).
					Str("state", p.State().String()).
					Msg("Playback updated")
				pl.notify(f)
			}
			c.reply <- f

		case <-tickC:
			timer = nil
			tickC = nil
			if !p.Tick() {
				continue
			}
			armTick()
			f := p.Frame()
			if !f.Running {
				pl.logger.Debug().Int("index", f.Index).Msg("Playback reached end of route")
			}
			pl.notify(f)
		}
	}
}

func (pl *Player) notify(f Frame) {
	for _, fn := range pl.callbacks {
		fn(f)
	}
}
