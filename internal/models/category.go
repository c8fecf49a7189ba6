package models

import (
	"fmt"
	"slices"
	"strings"
)

// DataCategory is the kind of data offered for saving
type DataCategory string

const (
	CategoryPassword     DataCategory = "password"
	CategoryAddress      DataCategory = "address"
	CategoryCreditCard   DataCategory = "credit-card"
	CategoryUsername     DataCategory = "username"
	CategoryEmailAddress DataCategory = "email-address"
)

// AllCategories lists every category in display rank order
var AllCategories = []DataCategory{
	CategoryPassword,
	CategoryAddress,
	CategoryCreditCard,
	CategoryUsername,
	CategoryEmailAddress,
}

// categoryRank is the display priority. Lower ranks render first.
var categoryRank = map[DataCategory]int{
	CategoryPassword:     0,
	CategoryAddress:      1,
	CategoryCreditCard:   2,
	CategoryUsername:     3,
	CategoryEmailAddress: 4,
}

// categoryBit is the flag each category occupies in a save-type mask
var categoryBit = map[DataCategory]uint32{
	CategoryPassword:     0x01,
	CategoryAddress:      0x02,
	CategoryCreditCard:   0x04,
	CategoryUsername:     0x08,
	CategoryEmailAddress: 0x10,
}

// Rank returns the display rank of the category, or -1 if it is unknown
func (c DataCategory) Rank() int {
	if r, ok := categoryRank[c]; ok {
		return r
	}
	return -1
}

// Bit returns the mask flag for the category (0 if unknown)
func (c DataCategory) Bit() uint32 {
	return categoryBit[c]
}

// Valid reports whether c is one of the known categories
func (c DataCategory) Valid() bool {
	_, ok := categoryRank[c]
	return ok
}

// ParseCategory parses a category name. Underscores are accepted in place of dashes.
func ParseCategory(s string) (DataCategory, error) {
	c := DataCategory(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	if !c.Valid() {
		return "", fmt.Errorf("invalid data category: %q (must be one of %s)", s, joinCategories(AllCategories))
	}
	return c, nil
}

// CategorySelection is a set of categories. Iteration always follows rank order.
type CategorySelection struct {
	members map[DataCategory]struct{}
}

// NewSelection builds a selection from categories in any order.
// Duplicates collapse and unknown categories are dropped.
func NewSelection(categories ...DataCategory) CategorySelection {
	s := CategorySelection{members: make(map[DataCategory]struct{}, len(categories))}
	for _, c := range categories {
		if c.Valid() {
			s.members[c] = struct{}{}
		}
	}
	return s
}

// SelectionFromMask decodes a save-type bitmask. Unknown bits are ignored.
func SelectionFromMask(mask uint32) CategorySelection {
	s := CategorySelection{members: make(map[DataCategory]struct{})}
	for c, bit := range categoryBit {
		if mask&bit != 0 {
			s.members[c] = struct{}{}
		}
	}
	return s
}

// Len returns the number of distinct categories
func (s CategorySelection) Len() int {
	return len(s.members)
}

// Has reports whether c is in the selection
func (s CategorySelection) Has(c DataCategory) bool {
	_, ok := s.members[c]
	return ok
}

// Ordered returns the members sorted by rank
func (s CategorySelection) Ordered() []DataCategory {
	out := make([]DataCategory, 0, len(s.members))
	for c := range s.members {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b DataCategory) int {
		return categoryRank[a] - categoryRank[b]
	})
	return out
}

// Mask encodes the selection back into a save-type bitmask
func (s CategorySelection) Mask() uint32 {
	var mask uint32
	for c := range s.members {
		mask |= categoryBit[c]
	}
	return mask
}

func (s CategorySelection) String() string {
	return joinCategories(s.Ordered())
}

func joinCategories(cs []DataCategory) string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
