package tracking

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/device"
	"github.com/trezcool/masomo-tracking/core/geo"
)

// Locator resolves the location attached to a payload. It must never fail (see geo.Chain).
type Locator interface {
	ResolveLocation(ctx context.Context) geo.LocationResult
}

type (
	Deps struct {
		Context    *Context
		Locator    Locator
		Env        device.Environment // used when the call's context carries none
		Dispatcher Dispatcher         // optional
		Logger     core.Logger
	}

	// Service assembles tracking payloads and hands them to a Dispatcher.
	// None of its methods fail: every failure degrades to null/placeholder fields.
	Service struct {
		tctx       *Context
		locator    Locator
		env        device.Environment
		dispatcher Dispatcher
		logger     core.Logger
	}
)

func NewService(deps Deps) *Service {
	svc := &Service{
		tctx:       deps.Context,
		locator:    deps.Locator,
		env:        deps.Env,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
	if svc.tctx == nil {
		svc.tctx = NewContext(nil, nil)
	}
	if svc.logger == nil {
		svc.logger = core.NopLogger{}
	}
	return svc
}

func (svc *Service) Session() Session {
	return svc.tctx.Session()
}

// Initialized reports whether the session initialization record has been produced.
func (svc *Service) Initialized() bool {
	return svc.tctx.Initialized()
}

// InitializeSession produces and dispatches the session initialization record.
// Only the first call does any work; later calls return nil.
func (svc *Service) InitializeSession(ctx context.Context) *Payload {
	if !svc.tctx.markInitialized() {
		return nil
	}
	p := svc.assemble(ctx, nil, true)
	svc.dispatch(ctx, p)
	return &p
}

// TrackEvent builds a user action descriptor. No I/O.
func (svc *Service) TrackEvent(action, buttonID string, extra map[string]interface{}) *Event {
	return NewEvent(action, buttonID, extra, svc.tctx.now())
}

// RecordEvent assembles a payload for ev with a fresh location and device capture.
// It works whether or not the session has been initialized.
func (svc *Service) RecordEvent(ctx context.Context, ev *Event) Payload {
	return svc.assemble(ctx, ev, false)
}

// Track is RecordEvent followed by a best-effort dispatch.
func (svc *Service) Track(ctx context.Context, ev *Event) Payload {
	p := svc.RecordEvent(ctx, ev)
	svc.dispatch(ctx, p)
	return p
}

func (svc *Service) environment(ctx context.Context) device.Environment {
	if env, ok := device.FromContext(ctx); ok {
		if svc.env != nil {
			return device.Layered(env, svc.env)
		}
		return env
	}
	return svc.env
}

func (svc *Service) assemble(ctx context.Context, ev *Event, extended bool) Payload {
	sess := svc.tctx.Session()

	var (
		loc geo.LocationResult
		dev device.Snapshot
	)

	// location & device captures are independent; the event is already built.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return safely(func() {
			if svc.locator == nil {
				loc = geo.DegradedResult(geo.SourceUnknown, "no locator configured", svc.tctx.now())
				return
			}
			loc = svc.locator.ResolveLocation(gctx)
		})
	})
	g.Go(func() error {
		return safely(func() {
			env := svc.environment(gctx)
			if extended {
				dev = device.CaptureExtended(env)
			} else {
				dev = device.Capture(env)
			}
		})
	})
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		svc.logger.Warn("tracking capture failed, using fallback payload", errors.Wrap(err, "assembling payload"), sess)
		return svc.fallback(ev, sess, err)
	}

	return Payload{
		Event:    ev,
		Location: loc,
		Device:   dev,
		Session:  sess,
	}
}

// fallback is the all-null payload carrying the current session.
func (svc *Service) fallback(ev *Event, sess Session, cause error) Payload {
	now := svc.tctx.now()
	return Payload{
		Event:    ev,
		Location: geo.DegradedResult(geo.SourceUnknown, fmt.Sprintf("tracking capture failed: %v", cause), now),
		Device:   device.Snapshot{CapturedAt: now},
		Session:  sess,
	}
}

// dispatch sends p and swallows any failure: tracking never interrupts the caller.
func (svc *Service) dispatch(ctx context.Context, p Payload) {
	if svc.dispatcher == nil {
		return
	}
	var err error
	if pErr := safely(func() { err = svc.dispatcher.Send(ctx, p) }); pErr != nil {
		err = pErr
	}
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("dropping %q tracking payload", p.Action()), err, p.Session)
	}
}

// safely runs fn and turns a panic into an error.
func safely(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rErr, ok := r.(error); ok {
				err = rErr
				return
			}
			err = errors.Errorf("panic: %v", r)
		}
	}()
	fn()
	return nil
}
