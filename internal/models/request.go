package models

import (
	"fmt"
	"strings"
)

// NegativeStyle selects the phrasing of the decline button
type NegativeStyle int

const (
	// NegativeStyleNeutral uses the generic "no" phrasing
	NegativeStyleNeutral NegativeStyle = iota
	// NegativeStyleReject uses the "not now" phrasing
	NegativeStyleReject
)

func (s NegativeStyle) String() string {
	switch s {
	case NegativeStyleNeutral:
		return "neutral"
	case NegativeStyleReject:
		return "reject"
	default:
		return fmt.Sprintf("NegativeStyle(%d)", int(s))
	}
}

// ParseNegativeStyle parses "neutral" or "reject". The empty string means neutral.
func ParseNegativeStyle(s string) (NegativeStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "neutral":
		return NegativeStyleNeutral, nil
	case "reject":
		return NegativeStyleReject, nil
	default:
		return NegativeStyleNeutral, fmt.Errorf("invalid negative style: %s (must be 'neutral' or 'reject')", s)
	}
}

// CancelTarget is an opaque reference handed back with a cancel decision so the
// caller can resume whatever flow the decline button stands for. It may be nil.
type CancelTarget any

// PromptRequest describes one save prompt
type PromptRequest struct {
	ProviderLabel  string `validate:"required"`
	Categories     CategorySelection
	Description    *string
	NegativeStyle  NegativeStyle `validate:"negative_style"`
	NegativeTarget CancelTarget
}

// HasDescription reports whether the request carries a non-empty description
func (r PromptRequest) HasDescription() bool {
	return r.Description != nil && *r.Description != ""
}

// TemplateBucket identifies which title template was used
type TemplateBucket int

const (
	BucketGeneric TemplateBucket = iota
	BucketOneCategory
	BucketTwoCategories
	BucketThreeCategories
)

func (b TemplateBucket) String() string {
	switch b {
	case BucketOneCategory:
		return "one"
	case BucketTwoCategories:
		return "two"
	case BucketThreeCategories:
		return "three"
	default:
		return "generic"
	}
}

// Span is a run of display text sharing one emphasis state
type Span struct {
	Text     string
	Emphasis bool
}

// RichText is markup that has already been expanded. Display is what a plain
// text surface shows; HTML is a re-escaped form safe to hand to a markup surface.
type RichText struct {
	Display string
	HTML    string
	Spans   []Span
}

func (t RichText) String() string {
	return t.Display
}

// PromptTitle is the composed presentation of a request
type PromptTitle struct {
	Title         RichText
	Subtitle      *string
	NegativeLabel string
	Bucket        TemplateBucket
	// CategoryNames holds the localized category names in rank order
	CategoryNames []string
}
