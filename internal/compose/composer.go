// Package compose turns a prompt request into the strings a surface shows:
// the title, the optional subtitle and the decline button label.
package compose

import (
	"github.com/benvon/saveprompt/internal/catalog"
	"github.com/benvon/saveprompt/internal/models"
	"github.com/benvon/saveprompt/internal/richtext"
)

var categoryKeys = map[models.DataCategory]catalog.Key{
	models.CategoryPassword:     catalog.KeyCategoryPassword,
	models.CategoryAddress:      catalog.KeyCategoryAddress,
	models.CategoryCreditCard:   catalog.KeyCategoryCreditCard,
	models.CategoryUsername:     catalog.KeyCategoryUsername,
	models.CategoryEmailAddress: catalog.KeyCategoryEmailAddress,
}

// titleTemplates is indexed by the number of enumerated categories
var titleTemplates = [...]struct {
	key    catalog.Key
	bucket models.TemplateBucket
}{
	{catalog.KeyTitleGeneric, models.BucketGeneric},
	{catalog.KeyTitleOneCategory, models.BucketOneCategory},
	{catalog.KeyTitleTwoCategories, models.BucketTwoCategories},
	{catalog.KeyTitleThreeCategories, models.BucketThreeCategories},
}

// Composer builds prompt titles. It holds no per-request state and is safe for
// concurrent use.
type Composer struct {
	strings catalog.Resolver
}

// New creates a Composer. A nil resolver uses the built-in catalog.
func New(strings catalog.Resolver) *Composer {
	if strings == nil {
		strings = catalog.Default()
	}
	return &Composer{strings: strings}
}

// Compose maps a request to its presentation. It never fails: zero categories,
// or more than three, fall back to the generic provider-only title.
func (c *Composer) Compose(req models.PromptRequest) models.PromptTitle {
	ordered := req.Categories.Ordered()
	names := make([]string, len(ordered))
	for i, cat := range ordered {
		names[i] = c.strings.String(categoryKeys[cat])
	}

	tmpl := titleTemplates[0]
	args := []string{req.ProviderLabel}
	if n := len(names); n > 0 && n < len(titleTemplates) {
		tmpl = titleTemplates[n]
		args = append(append([]string{}, names...), req.ProviderLabel)
	}

	title := models.PromptTitle{
		Title:         richtext.Format(c.strings.String(tmpl.key), args...),
		Bucket:        tmpl.bucket,
		CategoryNames: names,
		NegativeLabel: c.NegativeLabel(req.NegativeStyle),
	}
	if req.HasDescription() {
		subtitle := *req.Description
		title.Subtitle = &subtitle
	}
	return title
}

// NegativeLabel picks the decline button text for a style
func (c *Composer) NegativeLabel(style models.NegativeStyle) string {
	if style == models.NegativeStyleReject {
		return c.strings.String(catalog.KeyButtonNotNow)
	}
	return c.strings.String(catalog.KeyButtonNo)
}

// PositiveLabel is the affirm button text
func (c *Composer) PositiveLabel() string {
	return c.strings.String(catalog.KeyButtonSave)
}

// CloseLabel is the close affordance text
func (c *Composer) CloseLabel() string {
	return c.strings.String(catalog.KeyButtonClose)
}

// AccessibilityTitle is the window title announced by assistive tools
func (c *Composer) AccessibilityTitle() string {
	return c.strings.String(catalog.KeyTitleAccessibility)
}

var defaultComposer = New(nil)

// Compose composes with the built-in catalog
func Compose(req models.PromptRequest) models.PromptTitle {
	return defaultComposer.Compose(req)
}
