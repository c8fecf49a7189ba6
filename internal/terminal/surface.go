// Package terminal renders a save prompt as text and reads the answer from a
// line-oriented input.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/benvon/saveprompt/internal/catalog"
	"github.com/benvon/saveprompt/internal/prompt"
)

// ErrNotShown is returned by Await before Show was called
var ErrNotShown = errors.New("no prompt shown")

var answers = map[string]prompt.Affordance{
	"y":     prompt.AffordanceAffirm,
	"yes":   prompt.AffordanceAffirm,
	"s":     prompt.AffordanceAffirm,
	"save":  prompt.AffordanceAffirm,
	"n":     prompt.AffordanceDecline,
	"no":    prompt.AffordanceDecline,
	"x":     prompt.AffordanceClose,
	"close": prompt.AffordanceClose,
}

type line struct {
	text string
	err  error
}

// Surface is a prompt.Surface on a pair of streams
type Surface struct {
	out     io.Writer
	strings catalog.Resolver
	lines   chan line
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	mu        sync.Mutex
	view      *prompt.View
	dismissed bool
}

var _ prompt.Surface = (*Surface)(nil)

// Option configures a Surface
type Option func(*Surface)

// WithStrings sets the catalog used for the surface's own text. Defaults to
// the built-in catalog.
func WithStrings(r catalog.Resolver) Option {
	return func(s *Surface) {
		if r != nil {
			s.strings = r
		}
	}
}

// NewSurface creates a surface. Input is read on a background goroutine that
// ends when in reaches EOF or the surface is dismissed.
func NewSurface(in io.Reader, out io.Writer, opts ...Option) *Surface {
	s := &Surface{
		out:     out,
		strings: catalog.Default(),
		lines:   make(chan line),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.read(in)
	return s
}

// Show prints the prompt
func (s *Surface) Show(view prompt.View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != nil {
		return fmt.Errorf("surface already showing prompt %s", s.view.ID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", view.Title.Display)
	if view.Subtitle != nil {
		fmt.Fprintf(&b, "  %s\n", *view.Subtitle)
	}
	closeLabel := view.CloseLabel
	if closeLabel == "" {
		closeLabel = s.strings.String(catalog.KeyButtonClose)
	}
	fmt.Fprintf(&b, "[y] %s  [n] %s  [x] %s\n> ", view.PositiveLabel, view.NegativeLabel, closeLabel)
	if _, err := io.WriteString(s.out, b.String()); err != nil {
		return fmt.Errorf("failed to render prompt: %w", err)
	}

	s.view = &view
	return nil
}

// Dismiss marks the prompt closed and stops reading input. Later answers are
// ignored.
func (s *Surface) Dismiss() {
	s.once.Do(func() { close(s.done) })

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dismissed || s.view == nil {
		return
	}
	s.dismissed = true
	_, _ = io.WriteString(s.out, "\n")
}

// Dismissed reports whether Dismiss was called
func (s *Surface) Dismissed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dismissed
}

// Await blocks until the user picks an affordance. Unrecognized input is
// re-prompted. It returns io.EOF when input ends or the surface is dismissed,
// and ctx.Err() when ctx is done.
func (s *Surface) Await(ctx context.Context) (prompt.Affordance, error) {
	s.mu.Lock()
	shown := s.view != nil
	s.mu.Unlock()
	if !shown {
		return 0, ErrNotShown
	}

	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-s.done:
			return 0, io.EOF
		case l, ok := <-s.lines:
			if !ok {
				return 0, io.EOF
			}
			if l.err != nil {
				return 0, l.err
			}
			if a, ok := answers[strings.ToLower(strings.TrimSpace(l.text))]; ok {
				return a, nil
			}
			_, _ = io.WriteString(s.out, s.strings.String(catalog.KeyAnswerRetry)+"\n> ")
		}
	}
}

// Fire invokes the shown prompt's affordance unless the surface was dismissed
func (s *Surface) Fire(a prompt.Affordance) {
	s.mu.Lock()
	v := s.view
	dismissed := s.dismissed
	s.mu.Unlock()
	if v == nil || dismissed {
		return
	}
	v.Fire(a)
}

func (s *Surface) read(in io.Reader) {
	defer close(s.stopped)
	defer close(s.lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if !s.send(line{text: scanner.Text()}) {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.send(line{err: fmt.Errorf("failed to read answer: %w", err)})
	}
}

// send hands l to Await, giving up once the surface is dismissed
func (s *Surface) send(l line) bool {
	select {
	case s.lines <- l:
		return true
	case <-s.done:
		return false
	}
}
