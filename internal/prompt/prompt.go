// Package prompt shows a save prompt and tears it down.
//
// CreatePrompt composes the title, renders it through a Surface and wires every
// affordance to one shared gate.Gate, which is the only way the caller hears
// about the outcome. The first decision tears the prompt down; Destroy is the
// host's way to close it without one, and the single operation with an error
// path: a prompt can be torn down exactly once.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benvon/saveprompt/internal/compose"
	"github.com/benvon/saveprompt/internal/gate"
	"github.com/benvon/saveprompt/internal/logger"
	"github.com/benvon/saveprompt/internal/metrics"
	"github.com/benvon/saveprompt/internal/models"
	"github.com/benvon/saveprompt/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrInvalidState is returned when a destroyed prompt is used again
var ErrInvalidState = errors.New("invalid state")

// State is the lifecycle state of a prompt
type State int

const (
	StateActive State = iota
	StateDestroyed
)

func (s State) String() string {
	if s == StateDestroyed {
		return "destroyed"
	}
	return "active"
}

type options struct {
	ctx          context.Context
	logger       *zap.Logger
	metrics      *metrics.Metrics
	scheduler    Scheduler
	composer     *compose.Composer
	autoDismiss  time.Duration
	hostTeardown bool
}

// Option configures CreatePrompt
type Option func(*options)

// WithContext sets the parent context for the prompt's trace span
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithScheduler sets the scheduler that owns the prompt's pending callbacks
func WithScheduler(s Scheduler) Option {
	return func(o *options) { o.scheduler = s }
}

// WithComposer sets the composer, e.g. one backed by a localized catalog
func WithComposer(c *compose.Composer) Option {
	return func(o *options) { o.composer = c }
}

// WithAutoDismiss closes the prompt without a decision after d. Needs a scheduler.
func WithAutoDismiss(d time.Duration) Option {
	return func(o *options) { o.autoDismiss = d }
}

// WithHostTeardown keeps the prompt Active after an affordance or the
// auto-dismiss timer delivers a decision, leaving teardown to the host's
// Destroy call. Without it the prompt destroys itself on the first decision
// and a later Destroy returns ErrInvalidState.
func WithHostTeardown() Option {
	return func(o *options) { o.hostTeardown = true }
}

// Prompt is a handle to a shown save prompt
type Prompt struct {
	id      uuid.UUID
	gate    *gate.Gate
	title   models.PromptTitle
	surface Surface

	scheduler    Scheduler
	hostTeardown bool
	logger       *zap.Logger
	metrics      *metrics.Metrics
	span         trace.Span

	mu    sync.Mutex
	state State
}

// CreatePrompt shows a prompt for req on surface and returns its handle.
// providerLabel replaces req.ProviderLabel. Composition never fails; the only
// errors are missing collaborators or the surface refusing to show.
func CreatePrompt(providerLabel string, req models.PromptRequest, listener gate.Listener, surface Surface, opts ...Option) (*Prompt, error) {
	if listener == nil {
		return nil, errors.New("save prompt listener is required")
	}
	if surface == nil {
		return nil, errors.New("save prompt surface is required")
	}

	o := options{ctx: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.composer == nil {
		o.composer = compose.New(nil)
	}
	if o.scheduler == nil {
		if o.autoDismiss > 0 {
			o.logger.Warn("Auto-dismiss ignored: no scheduler configured", zap.Duration("auto_dismiss", o.autoDismiss))
		}
		o.scheduler = nopScheduler{}
	}

	req.ProviderLabel = providerLabel
	title := o.composer.Compose(req)

	p := &Prompt{
		id:           uuid.New(),
		title:        title,
		surface:      surface,
		scheduler:    o.scheduler,
		hostTeardown: o.hostTeardown,
		metrics:      o.metrics,
		state:        StateActive,
	}
	p.logger = o.logger.With(zap.String("prompt_id", p.id.String()))
	_, p.span = telemetry.Tracer().Start(o.ctx, "saveprompt.prompt", trace.WithAttributes(
		attribute.String("saveprompt.id", p.id.String()),
		attribute.String("saveprompt.template", title.Bucket.String()),
		attribute.Int("saveprompt.categories", req.Categories.Len()),
	))
	p.gate = gate.New(&observedListener{prompt: p, next: listener}, p.logger)

	cancelTarget := req.NegativeTarget
	view := View{
		ID:                 p.id,
		Title:              title.Title,
		Subtitle:           title.Subtitle,
		PositiveLabel:      o.composer.PositiveLabel(),
		NegativeLabel:      title.NegativeLabel,
		CloseLabel:         o.composer.CloseLabel(),
		AccessibilityTitle: o.composer.AccessibilityTitle(),
		OnAffirm: func() {
			p.gate.OnSave()
			p.afterDecision()
		},
		OnDecline: func() {
			p.gate.OnCancel(cancelTarget)
			p.afterDecision()
		},
		OnClose: func() {
			p.gate.OnCancel(cancelTarget)
			p.afterDecision()
		},
	}

	p.logger.Info("Showing save prompt",
		zap.String("title", logger.SanitizeLabel(title.Title.Display)),
		zap.String("template", title.Bucket.String()),
	)
	if title.Subtitle != nil {
		p.logger.Debug("Save prompt subtitle", zap.String("subtitle", logger.SanitizeLabel(*title.Subtitle)))
	}

	if err := surface.Show(view); err != nil {
		p.span.RecordError(err)
		p.span.SetStatus(codes.Error, "show failed")
		p.span.End()
		return nil, fmt.Errorf("failed to show save prompt: %w", err)
	}
	p.metrics.IncrementShown(title.Bucket)

	if o.autoDismiss > 0 {
		if err := p.scheduler.PostDelayed(p.id, o.autoDismiss, p.expire); err != nil {
			p.logger.Warn("Failed to schedule auto-dismiss", zap.String("error", logger.SanitizeError(err)))
		}
	}

	return p, nil
}

// ID returns the prompt's identifier, also used as its scheduler token
func (p *Prompt) ID() uuid.UUID {
	return p.id
}

// Title returns the composed presentation
func (p *Prompt) Title() models.PromptTitle {
	return p.title
}

// State returns the lifecycle state
func (p *Prompt) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Outcome returns the decision delivered so far, if any
func (p *Prompt) Outcome() (models.Decision, bool) {
	return p.gate.Outcome()
}

// Destroy tears the prompt down. If no decision was made yet the listener
// receives OnDestroy. Pending callbacks keyed by the prompt are dropped and the
// surface is dismissed. Calling Destroy on a destroyed prompt returns an error
// wrapping ErrInvalidState and has no other effect.
func (p *Prompt) Destroy() error {
	if !p.markDestroyed() {
		p.metrics.IncrementInvalidTeardown()
		return fmt.Errorf("save prompt %s: cannot interact with a destroyed instance: %w", p.id, ErrInvalidState)
	}
	p.release()
	return nil
}

// markDestroyed claims the Active to Destroyed transition before any teardown
// effect runs, so a listener that calls Destroy from OnDestroy gets ErrInvalidState.
func (p *Prompt) markDestroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateDestroyed {
		return false
	}
	p.state = StateDestroyed
	return true
}

func (p *Prompt) release() {
	p.gate.OnDestroy()
	p.scheduler.RemoveCallbacks(p.id)
	p.surface.Dismiss()
	p.span.End()
	p.logger.Debug("Save prompt destroyed")
}

func (p *Prompt) expire() {
	p.logger.Debug("Save prompt auto-dismissed")
	p.gate.OnDestroy()
	p.afterDecision()
}

func (p *Prompt) afterDecision() {
	if !p.hostTeardown && p.markDestroyed() {
		p.release()
	}
}

// observedListener records the delivered decision before handing it to the caller
type observedListener struct {
	prompt *Prompt
	next   gate.Listener
}

func (o *observedListener) OnSave() {
	o.record(models.DecisionSave)
	o.next.OnSave()
}

func (o *observedListener) OnCancel(target models.CancelTarget) {
	o.record(models.DecisionCancel)
	o.next.OnCancel(target)
}

func (o *observedListener) OnDestroy() {
	o.record(models.DecisionDestroyed)
	o.next.OnDestroy()
}

func (o *observedListener) record(kind models.DecisionKind) {
	o.prompt.metrics.IncrementDecision(kind)
	o.prompt.span.AddEvent("decision", trace.WithAttributes(attribute.String("saveprompt.decision", string(kind))))
}
