package prompt

import (
	"fmt"
	"time"

	"github.com/benvon/saveprompt/internal/models"
	"github.com/google/uuid"
)

// Affordance is one of the interactive elements of a prompt
type Affordance int

const (
	AffordanceAffirm Affordance = iota
	AffordanceDecline
	AffordanceClose
)

func (a Affordance) String() string {
	switch a {
	case AffordanceAffirm:
		return "affirm"
	case AffordanceDecline:
		return "decline"
	case AffordanceClose:
		return "close"
	default:
		return fmt.Sprintf("Affordance(%d)", int(a))
	}
}

// View is everything a surface needs to render a prompt: two text regions,
// button labels, and the three affordance callbacks.
type View struct {
	ID                 uuid.UUID
	Title              models.RichText
	Subtitle           *string
	PositiveLabel      string
	NegativeLabel      string
	CloseLabel         string
	AccessibilityTitle string

	OnAffirm  func()
	OnDecline func()
	OnClose   func()
}

// Fire invokes the callback bound to a
func (v View) Fire(a Affordance) {
	var fn func()
	switch a {
	case AffordanceAffirm:
		fn = v.OnAffirm
	case AffordanceDecline:
		fn = v.OnDecline
	case AffordanceClose:
		fn = v.OnClose
	}
	if fn != nil {
		fn()
	}
}

// Surface displays and dismisses a prompt. Window creation, layout and styling
// all live behind it.
type Surface interface {
	Show(view View) error
	Dismiss()
}

// Scheduler posts callbacks to the UI context and drops them by token.
// *uithread.Loop satisfies it.
type Scheduler interface {
	PostDelayed(token any, delay time.Duration, fn func()) error
	RemoveCallbacks(token any)
}

type nopScheduler struct{}

func (nopScheduler) PostDelayed(any, time.Duration, func()) error { return nil }
func (nopScheduler) RemoveCallbacks(any)                          {}
