// Package gate delivers at most one decision per prompt to a listener.
//
// Several affordances of one prompt (the decline button, the close button, an
// auto-dismiss timer, host teardown) may each try to report an outcome. A Gate
// wraps the caller's listener so that only the first report is forwarded and
// every later one, of any kind, is dropped. The outcome is a single-assignment
// cell set by compare-and-swap, so the guarantee holds even when reports arrive
// from different goroutines.
package gate

import (
	"sync/atomic"

	"github.com/benvon/saveprompt/internal/models"
	"go.uber.org/zap"
)

// Listener receives the decision of a prompt
type Listener interface {
	OnSave()
	OnCancel(target models.CancelTarget)
	OnDestroy()
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are no-ops.
type ListenerFuncs struct {
	Save    func()
	Cancel  func(target models.CancelTarget)
	Destroy func()
}

func (f ListenerFuncs) OnSave() {
	if f.Save != nil {
		f.Save()
	}
}

func (f ListenerFuncs) OnCancel(target models.CancelTarget) {
	if f.Cancel != nil {
		f.Cancel(target)
	}
}

func (f ListenerFuncs) OnDestroy() {
	if f.Destroy != nil {
		f.Destroy()
	}
}

// Gate forwards the first decision it sees and ignores the rest
type Gate struct {
	real    Listener
	outcome atomic.Pointer[models.Decision]
	logger  *zap.Logger
}

var _ Listener = (*Gate)(nil)

// New wraps real. A nil logger disables debug tracing.
func New(real Listener, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{real: real, logger: logger}
}

// OnSave forwards a save decision if none was delivered yet
func (g *Gate) OnSave() {
	if g.claim(models.SaveDecision()) {
		g.real.OnSave()
	}
}

// OnCancel forwards a cancel decision carrying target if none was delivered yet
func (g *Gate) OnCancel(target models.CancelTarget) {
	if g.claim(models.CancelDecision(target)) {
		g.real.OnCancel(target)
	}
}

// OnDestroy forwards the closed-without-answer decision if none was delivered yet
func (g *Gate) OnDestroy() {
	if g.claim(models.DestroyedDecision()) {
		g.real.OnDestroy()
	}
}

// Delivered reports whether a decision has been forwarded
func (g *Gate) Delivered() bool {
	return g.outcome.Load() != nil
}

// Outcome returns the delivered decision, if any
func (g *Gate) Outcome() (models.Decision, bool) {
	d := g.outcome.Load()
	if d == nil {
		return models.Decision{}, false
	}
	return *d, true
}

func (g *Gate) claim(d models.Decision) bool {
	won := g.outcome.CompareAndSwap(nil, &d)
	g.logger.Debug("Save prompt decision",
		zap.String("decision", string(d.Kind)),
		zap.Bool("already_delivered", !won),
	)
	return won
}
