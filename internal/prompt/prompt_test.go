package prompt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benvon/saveprompt/internal/compose"
	"github.com/benvon/saveprompt/internal/gate"
	"github.com/benvon/saveprompt/internal/metrics"
	"github.com/benvon/saveprompt/internal/models"
	"github.com/benvon/saveprompt/internal/uithread"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// mockSurface records what it was asked to show
type mockSurface struct {
	mu        sync.Mutex
	view      *View
	dismissed int
	showErr   error
}

func (m *mockSurface) Show(view View) error {
	if m.showErr != nil {
		return m.showErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.view = &view
	return nil
}

func (m *mockSurface) Dismiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dismissed++
}

func (m *mockSurface) Fire(a Affordance) {
	m.mu.Lock()
	v := m.view
	m.mu.Unlock()
	v.Fire(a)
}

func (m *mockSurface) Dismissed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dismissed
}

var _ Surface = (*mockSurface)(nil)

// mockScheduler keeps posted callbacks so tests can fire them by hand
type mockScheduler struct {
	posted  map[any][]func()
	removed []any
}

func newMockScheduler() *mockScheduler {
	return &mockScheduler{posted: make(map[any][]func())}
}

func (m *mockScheduler) PostDelayed(token any, _ time.Duration, fn func()) error {
	m.posted[token] = append(m.posted[token], fn)
	return nil
}

func (m *mockScheduler) RemoveCallbacks(token any) {
	m.removed = append(m.removed, token)
	delete(m.posted, token)
}

var _ Scheduler = (*mockScheduler)(nil)

// recordingListener counts decisions
type recordingListener struct {
	mu        sync.Mutex
	decisions []models.Decision
}

func (r *recordingListener) OnSave() { r.add(models.SaveDecision()) }
func (r *recordingListener) OnCancel(target models.CancelTarget) {
	r.add(models.CancelDecision(target))
}
func (r *recordingListener) OnDestroy() { r.add(models.DestroyedDecision()) }

func (r *recordingListener) add(d models.Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, d)
}

func (r *recordingListener) Decisions() []models.Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Decision(nil), r.decisions...)
}

var _ gate.Listener = (*recordingListener)(nil)

type resumeTarget struct{ action string }

func newRequest() models.PromptRequest {
	desc := "Ends in 1234"
	return models.PromptRequest{
		Categories:     models.NewSelection(models.CategoryCreditCard),
		Description:    &desc,
		NegativeStyle:  models.NegativeStyleReject,
		NegativeTarget: &resumeTarget{action: "continue-checkout"},
	}
}

func TestCreatePrompt_ShowsComposedView(t *testing.T) {
	surface := &mockSurface{}
	p, err := CreatePrompt("Example Bank", newRequest(), &recordingListener{}, surface)
	require.NoError(t, err)

	require.NotNil(t, surface.view)
	v := surface.view
	assert.Equal(t, p.ID(), v.ID)
	assert.Equal(t, "Save credit card to Example Bank?", v.Title.Display)
	require.NotNil(t, v.Subtitle)
	assert.Equal(t, "Ends in 1234", *v.Subtitle)
	assert.Equal(t, "Not now", v.NegativeLabel)
	assert.Equal(t, "Save", v.PositiveLabel)
	assert.Equal(t, "Close", v.CloseLabel)
	assert.Equal(t, "Save for autofill", v.AccessibilityTitle)
	assert.Equal(t, StateActive, p.State())
	assert.Equal(t, models.BucketOneCategory, p.Title().Bucket)
}

func TestCreatePrompt_ProviderLabelArgumentWins(t *testing.T) {
	surface := &mockSurface{}
	req := newRequest()
	req.ProviderLabel = "ignored"
	_, err := CreatePrompt("Example Bank", req, &recordingListener{}, surface)
	require.NoError(t, err)
	assert.Contains(t, surface.view.Title.Display, "Example Bank")
	assert.NotContains(t, surface.view.Title.Display, "ignored")
}

func TestCreatePrompt_Errors(t *testing.T) {
	t.Run("nil listener", func(t *testing.T) {
		_, err := CreatePrompt("Acme", newRequest(), nil, &mockSurface{})
		require.Error(t, err)
	})

	t.Run("nil surface", func(t *testing.T) {
		_, err := CreatePrompt("Acme", newRequest(), &recordingListener{}, nil)
		require.Error(t, err)
	})

	t.Run("surface fails to show", func(t *testing.T) {
		listener := &recordingListener{}
		showErr := errors.New("no display")
		_, err := CreatePrompt("Acme", newRequest(), listener, &mockSurface{showErr: showErr})
		require.ErrorIs(t, err, showErr)
		assert.Empty(t, listener.Decisions())
	})
}

func TestPrompt_AffordancesDeliverOnce(t *testing.T) {
	tests := []struct {
		name   string
		fire   []Affordance
		want   models.DecisionKind
		target bool
	}{
		{"affirm", []Affordance{AffordanceAffirm}, models.DecisionSave, false},
		{"decline", []Affordance{AffordanceDecline}, models.DecisionCancel, true},
		{"close", []Affordance{AffordanceClose}, models.DecisionCancel, true},
		{"decline then close", []Affordance{AffordanceDecline, AffordanceClose}, models.DecisionCancel, true},
		{"affirm then decline", []Affordance{AffordanceAffirm, AffordanceDecline, AffordanceClose}, models.DecisionSave, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listener := &recordingListener{}
			surface := &mockSurface{}
			req := newRequest()
			p, err := CreatePrompt("Acme", req, listener, surface)
			require.NoError(t, err)

			for _, a := range tt.fire {
				surface.Fire(a)
			}
			assert.Equal(t, StateDestroyed, p.State())
			assert.Equal(t, 1, surface.Dismissed())
			assert.ErrorIs(t, p.Destroy(), ErrInvalidState)

			got := listener.Decisions()
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Kind)
			if tt.target {
				assert.Same(t, req.NegativeTarget, got[0].Target)
			}
		})
	}
}

func TestPrompt_Destroy(t *testing.T) {
	t.Run("destroy without decision notifies listener", func(t *testing.T) {
		listener := &recordingListener{}
		surface := &mockSurface{}
		scheduler := newMockScheduler()
		p, err := CreatePrompt("Acme", newRequest(), listener, surface, WithScheduler(scheduler))
		require.NoError(t, err)

		require.NoError(t, p.Destroy())

		assert.Equal(t, []models.Decision{models.DestroyedDecision()}, listener.Decisions())
		assert.Equal(t, 1, surface.Dismissed())
		assert.Equal(t, []any{p.ID()}, scheduler.removed)
		assert.Equal(t, StateDestroyed, p.State())
	})

	t.Run("host destroy after save does not notify again", func(t *testing.T) {
		listener := &recordingListener{}
		surface := &mockSurface{}
		p, err := CreatePrompt("Acme", newRequest(), listener, surface, WithHostTeardown())
		require.NoError(t, err)

		surface.Fire(AffordanceAffirm)
		require.NoError(t, p.Destroy())

		assert.Equal(t, []models.Decision{models.SaveDecision()}, listener.Decisions())
		assert.Equal(t, 1, surface.Dismissed())
	})

	t.Run("destroy twice fails", func(t *testing.T) {
		listener := &recordingListener{}
		surface := &mockSurface{}
		reg := prometheus.NewRegistry()
		m := metrics.New(reg)
		p, err := CreatePrompt("Acme", newRequest(), listener, surface, WithMetrics(m))
		require.NoError(t, err)

		require.NoError(t, p.Destroy())
		err = p.Destroy()
		require.ErrorIs(t, err, ErrInvalidState)

		assert.Len(t, listener.Decisions(), 1)
		assert.Equal(t, 1, surface.Dismissed())
		assert.Equal(t, 1.0, testutil.ToFloat64(m.InvalidTeardowns))
	})

	t.Run("listener destroying from OnDestroy gets invalid state", func(t *testing.T) {
		surface := &mockSurface{}
		var p *Prompt
		var nested error
		listener := gate.ListenerFuncs{Destroy: func() { nested = p.Destroy() }}
		p, err := CreatePrompt("Acme", newRequest(), listener, surface)
		require.NoError(t, err)

		require.NoError(t, p.Destroy())
		assert.ErrorIs(t, nested, ErrInvalidState)
		assert.Equal(t, 1, surface.Dismissed())
	})
}

func TestPrompt_AutoDismiss(t *testing.T) {
	t.Run("timer delivers destroy through the gate", func(t *testing.T) {
		listener := &recordingListener{}
		scheduler := newMockScheduler()
		p, err := CreatePrompt("Acme", newRequest(), listener, &mockSurface{},
			WithScheduler(scheduler), WithAutoDismiss(time.Minute))
		require.NoError(t, err)
		require.Len(t, scheduler.posted[p.ID()], 1)

		scheduler.posted[p.ID()][0]()

		assert.Equal(t, []models.Decision{models.DestroyedDecision()}, listener.Decisions())
		assert.Equal(t, StateDestroyed, p.State())
		assert.ErrorIs(t, p.Destroy(), ErrInvalidState)
		assert.Len(t, listener.Decisions(), 1)
	})

	t.Run("save drops the pending timer", func(t *testing.T) {
		listener := &recordingListener{}
		scheduler := newMockScheduler()
		surface := &mockSurface{}
		p, err := CreatePrompt("Acme", newRequest(), listener, surface,
			WithScheduler(scheduler), WithAutoDismiss(time.Minute))
		require.NoError(t, err)

		surface.Fire(AffordanceAffirm)

		assert.Empty(t, scheduler.posted[p.ID()])
		assert.Equal(t, []any{p.ID()}, scheduler.removed)
		assert.Equal(t, []models.Decision{models.SaveDecision()}, listener.Decisions())
	})

	t.Run("timer after save is a no-op with host teardown", func(t *testing.T) {
		listener := &recordingListener{}
		scheduler := newMockScheduler()
		surface := &mockSurface{}
		p, err := CreatePrompt("Acme", newRequest(), listener, surface,
			WithScheduler(scheduler), WithAutoDismiss(time.Minute), WithHostTeardown())
		require.NoError(t, err)

		surface.Fire(AffordanceAffirm)
		scheduler.posted[p.ID()][0]()

		assert.Equal(t, []models.Decision{models.SaveDecision()}, listener.Decisions())
		assert.Equal(t, StateActive, p.State())
		require.NoError(t, p.Destroy())
	})

	t.Run("without scheduler auto-dismiss is ignored", func(t *testing.T) {
		listener := &recordingListener{}
		_, err := CreatePrompt("Acme", newRequest(), listener, &mockSurface{}, WithAutoDismiss(time.Millisecond))
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
		assert.Empty(t, listener.Decisions())
	})
}

func TestPrompt_DecisionTearsDown(t *testing.T) {
	listener := &recordingListener{}
	surface := &mockSurface{}
	scheduler := newMockScheduler()
	p, err := CreatePrompt("Acme", newRequest(), listener, surface, WithScheduler(scheduler))
	require.NoError(t, err)

	surface.Fire(AffordanceDecline)

	assert.Equal(t, StateDestroyed, p.State())
	assert.Equal(t, 1, surface.Dismissed())
	assert.Equal(t, []any{p.ID()}, scheduler.removed)

	// A stale click on the dismissed surface changes nothing.
	surface.Fire(AffordanceAffirm)
	assert.Equal(t, 1, surface.Dismissed())
	require.Len(t, listener.Decisions(), 1)
	assert.Equal(t, models.DecisionCancel, listener.Decisions()[0].Kind)

	assert.ErrorIs(t, p.Destroy(), ErrInvalidState)
}

func TestPrompt_HostTeardown(t *testing.T) {
	listener := &recordingListener{}
	surface := &mockSurface{}
	scheduler := newMockScheduler()
	p, err := CreatePrompt("Acme", newRequest(), listener, surface,
		WithScheduler(scheduler), WithHostTeardown())
	require.NoError(t, err)

	surface.Fire(AffordanceDecline)

	assert.Equal(t, StateActive, p.State())
	assert.Equal(t, 0, surface.Dismissed())
	assert.Empty(t, scheduler.removed)

	require.NoError(t, p.Destroy())
	assert.Equal(t, StateDestroyed, p.State())
	assert.Equal(t, 1, surface.Dismissed())
	require.Len(t, listener.Decisions(), 1)
	assert.Equal(t, models.DecisionCancel, listener.Decisions()[0].Kind)
}

func TestPrompt_UILoopIntegration(t *testing.T) {
	loop := uithread.NewLoop(nil)
	defer loop.Close()

	decided := make(chan models.Decision, 4)
	listener := gate.ListenerFuncs{
		Save:    func() { decided <- models.SaveDecision() },
		Cancel:  func(tgt models.CancelTarget) { decided <- models.CancelDecision(tgt) },
		Destroy: func() { decided <- models.DestroyedDecision() },
	}
	surface := &mockSurface{}

	var p *Prompt
	var err error
	require.NoError(t, loop.Invoke(func() {
		p, err = CreatePrompt("Acme", newRequest(), listener, surface,
			WithScheduler(loop), WithAutoDismiss(20*time.Millisecond))
	}))
	require.NoError(t, err)

	select {
	case d := <-decided:
		assert.Equal(t, models.DecisionDestroyed, d.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("auto-dismiss never fired")
	}

	require.NoError(t, loop.Invoke(func() { err = p.Destroy() }))
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, StateDestroyed, p.State())
	assert.Equal(t, 1, surface.Dismissed())
	assert.Equal(t, 0, loop.Pending(p.ID()))
	assert.Len(t, decided, 0)
}

func TestPrompt_DecisionCancelsPendingAutoDismiss(t *testing.T) {
	loop := uithread.NewLoop(nil)
	defer loop.Close()

	listener := &recordingListener{}
	surface := &mockSurface{}
	var p *Prompt
	var err error
	require.NoError(t, loop.Invoke(func() {
		p, err = CreatePrompt("Acme", newRequest(), listener, surface,
			WithScheduler(loop), WithAutoDismiss(30*time.Millisecond))
	}))
	require.NoError(t, err)

	require.NoError(t, loop.Invoke(func() { surface.Fire(AffordanceAffirm) }))
	assert.Equal(t, StateDestroyed, p.State())
	assert.Equal(t, 0, loop.Pending(p.ID()))

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, loop.Invoke(func() {}))
	assert.Equal(t, []models.Decision{models.SaveDecision()}, listener.Decisions())
}

func TestPrompt_Metrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	surface := &mockSurface{}
	p, err := CreatePrompt("Acme", newRequest(), &recordingListener{}, surface, WithMetrics(m))
	require.NoError(t, err)

	surface.Fire(AffordanceDecline)
	assert.ErrorIs(t, p.Destroy(), ErrInvalidState)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PromptsShown.WithLabelValues("one")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("cancel")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Decisions.WithLabelValues("destroyed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvalidTeardowns))
}

func TestPrompt_TraceSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	surface := &mockSurface{}
	p, err := CreatePrompt("Acme", newRequest(), &recordingListener{}, surface, WithContext(context.Background()))
	require.NoError(t, err)
	assert.Empty(t, exporter.GetSpans(), "span stays open while the prompt is shown")

	surface.Fire(AffordanceAffirm)
	assert.Equal(t, StateDestroyed, p.State())

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "saveprompt.prompt", spans[0].Name)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "decision", spans[0].Events[0].Name)
}

func TestPrompt_LocalizedComposer(t *testing.T) {
	surface := &mockSurface{}
	c := compose.New(staticResolver{"title.one_category": "Enregistrer %[1]s dans <b>%[2]s</b> ?", "category.credit_card": "carte"})
	_, err := CreatePrompt("Acme", newRequest(), &recordingListener{}, surface, WithComposer(c))
	require.NoError(t, err)
	assert.Equal(t, "Enregistrer carte dans Acme ?", surface.view.Title.Display)
}
