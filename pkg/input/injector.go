package input

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/peerhelp/peerhelp/pkg/config"
	"github.com/peerhelp/peerhelp/pkg/logger"
)

// wheelStep is the web delta of one wheel notch.
const wheelStep = 100

// Injector applies the viewer input with the first working strategy.
// Its errors never reach the callers, they are only logged.
type Injector struct {
	conf    config.Input
	ranked  []Strategy
	limiter *Limiter
	display Display

	mu     sync.RWMutex
	active Strategy

	queue chan []byte
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
	log   *logger.Logger
}

type Option func(*Injector)

// WithStrategies replaces the configured strategies.
func WithStrategies(s ...Strategy) Option { return func(i *Injector) { i.ranked = s } }

func WithDisplay(d Display) Option { return func(i *Injector) { i.display = d } }

func WithClock(now func() time.Time) Option {
	return func(i *Injector) { i.limiter = NewLimiter(i.conf.RateLimit, now) }
}

func New(conf config.Input, log *logger.Logger, opts ...Option) (*Injector, error) {
	size := conf.QueueSize
	if size <= 0 {
		size = 256
	}
	i := &Injector{
		conf:    conf,
		limiter: NewLimiter(conf.RateLimit, nil),
		display: NewDrmDisplay(conf.DrmPath, Size{W: conf.Screen.Width, H: conf.Screen.Height}),
		queue:   make(chan []byte, size),
		done:    make(chan struct{}),
		log:     log.Extend(log.With().Str("mod", "input")),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.ranked == nil {
		ranked, err := newStrategies(conf, i.log)
		if err != nil {
			return nil, err
		}
		i.ranked = ranked
	}
	return i, nil
}

// Initialize picks the first strategy that works here.
func (i *Injector) Initialize() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.active != nil {
		return nil
	}
	for _, s := range i.ranked {
		if err := s.Init(); err != nil {
			i.log.Debug().Err(err).Msgf("Input strategy [%v] is not available", s.Name())
			continue
		}
		i.active = s
		i.log.Info().Msgf("Input strategy: %v", s.Name())
		return nil
	}
	i.log.Warn().Msg("No input strategy available, remote control is off")
	return ErrUnavailable
}

// Strategy returns the name of the active strategy.
func (i *Injector) Strategy() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.active == nil {
		return ""
	}
	return i.active.Name()
}

// Run starts the processing of the pushed events.
func (i *Injector) Run() {
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		for {
			select {
			case data := <-i.queue:
				e, err := ParseEvent(data)
				if err != nil {
					eventsDropped.WithLabelValues("malformed").Inc()
					i.log.Debug().Err(err).Msgf("Bad control event %s", data)
					continue
				}
				i.SimulateEvent(e)
			case <-i.done:
				return
			}
		}
	}()
}

// Push queues the raw control event, it never blocks.
func (i *Injector) Push(data []byte) bool {
	select {
	case <-i.done:
		return false
	default:
	}
	select {
	case i.queue <- data:
		return true
	default:
		eventsDropped.WithLabelValues("queue").Inc()
		return false
	}
}

// SimulateEvent injects a single event.
func (i *Injector) SimulateEvent(e Event) {
	defer func() {
		if r := recover(); r != nil {
			eventsFailed.Inc()
			i.log.Error().Msgf("Recovered from the input [%v]: %v", e.Type, r)
		}
	}()

	i.mu.RLock()
	s := i.active
	i.mu.RUnlock()
	if s == nil {
		i.log.Debug().Msgf("No input strategy for [%v]", e.Type)
		return
	}
	if !i.limiter.Allow() {
		eventsDropped.WithLabelValues("rate").Inc()
		return
	}
	if err := i.dispatch(s, e); err != nil {
		eventsFailed.Inc()
		i.log.Warn().Err(err).Msgf("Input [%v] has failed", e.Type)
		return
	}
	eventsDispatched.Inc()
}

func (i *Injector) dispatch(s Strategy, e Event) error {
	switch e.Type {
	case MouseMove:
		if !e.hasPoint() {
			return ErrBadEvent
		}
		return i.move(s, e)
	case MouseDown, MouseUp, Click, DoubleClick:
		if e.hasPoint() {
			if err := i.move(s, e); err != nil {
				return err
			}
		}
		return button(s, e)
	case Scroll:
		return s.Scroll(wheelSteps(e.DeltaX), wheelSteps(e.DeltaY))
	case KeyDown:
		return s.KeyDown(e.Key)
	case KeyUp:
		return s.KeyUp(e.Key)
	case KeyPress:
		if err := s.KeyDown(e.Key); err != nil {
			return err
		}
		return s.KeyUp(e.Key)
	}
	return fmt.Errorf("%w: unknown type %v", ErrBadEvent, e.Type)
}

// move reads the screen size on every call, it may change anytime.
func (i *Injector) move(s Strategy, e Event) error {
	size := i.display.Size()
	return s.MoveTo(toPixels(*e.X, *e.Y, size), size)
}

func button(s Strategy, e Event) error {
	switch e.Type {
	case MouseDown:
		return s.ButtonDown(e.Button)
	case MouseUp:
		return s.ButtonUp(e.Button)
	case Click:
		return click(s, e.Button)
	}
	if dc, ok := s.(DoubleClicker); ok {
		return dc.DoubleClick(e.Button)
	}
	if err := click(s, e.Button); err != nil {
		return err
	}
	return click(s, e.Button)
}

func click(s Strategy, b Button) error {
	if err := s.ButtonDown(b); err != nil {
		return err
	}
	return s.ButtonUp(b)
}

// wheelSteps converts the web wheel delta into the signed notches,
// any non-zero delta makes at least one.
func wheelSteps(delta float64) int {
	if delta == 0 {
		return 0
	}
	n := int(math.Max(1, math.Round(math.Abs(delta)/wheelStep)))
	if delta < 0 {
		return -n
	}
	return n
}

// Close stops the processing and releases the strategy.
func (i *Injector) Close() {
	i.once.Do(func() {
		close(i.done)
		i.wg.Wait()
		i.mu.Lock()
		defer i.mu.Unlock()
		if i.active != nil {
			if err := i.active.Close(); err != nil {
				i.log.Warn().Err(err).Msg("input strategy close")
			}
			i.active = nil
		}
	})
}

func (i *Injector) Shutdown(context.Context) error { i.Close(); return nil }

func (i *Injector) String() string { return "input injector" }
