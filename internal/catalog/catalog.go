// Package catalog resolves the user-visible strings of the save prompt from
// symbolic keys. Locale selection is left to whoever loads the catalog file.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/benvon/saveprompt/internal/validation"
	"gopkg.in/yaml.v3"
)

// Key names a string in the catalog
type Key string

const (
	KeyCategoryPassword     Key = "category.password"
	KeyCategoryAddress      Key = "category.address"
	KeyCategoryCreditCard   Key = "category.credit_card"
	KeyCategoryUsername     Key = "category.username"
	KeyCategoryEmailAddress Key = "category.email_address"

	KeyTitleGeneric         Key = "title.generic"
	KeyTitleOneCategory     Key = "title.one_category"
	KeyTitleTwoCategories   Key = "title.two_categories"
	KeyTitleThreeCategories Key = "title.three_categories"
	KeyTitleAccessibility   Key = "title.accessibility"

	KeyButtonSave   Key = "button.save"
	KeyButtonNo     Key = "button.no"
	KeyButtonNotNow Key = "button.not_now"
	KeyButtonClose  Key = "button.close"

	KeyAnswerRetry Key = "answer.retry"
)

// templateArity is the number of arguments each title template receives: the
// category names followed by the provider label.
var templateArity = map[Key]int{
	KeyTitleGeneric:         1,
	KeyTitleOneCategory:     2,
	KeyTitleTwoCategories:   3,
	KeyTitleThreeCategories: 4,
}

// Resolver looks up display strings
type Resolver interface {
	String(key Key) string
}

//go:embed default.yaml
var defaultYAML []byte

var defaultCatalog *Catalog

func init() {
	c, err := parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("failed to parse built-in catalog: %v", err))
	}
	defaultCatalog = c
}

// Catalog is a flat key/value string table for one locale
type Catalog struct {
	Locale  string         `yaml:"locale" validate:"required"`
	Strings map[Key]string `yaml:"strings" validate:"required,dive,required"`
}

// Default returns the built-in English catalog
func Default() *Catalog {
	return defaultCatalog
}

// String returns the value for key. Unknown keys resolve to the key itself so a
// missing translation stays visible instead of rendering blank.
func (c *Catalog) String(key Key) string {
	if c != nil {
		if v, ok := c.Strings[key]; ok {
			return v
		}
	}
	return string(key)
}

// Keys returns all keys in sorted order
func (c *Catalog) Keys() []Key {
	keys := make([]Key, 0, len(c.Strings))
	for k := range c.Strings {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Parse decodes a YAML catalog and layers it over the built-in strings, so a
// partial translation still resolves every key.
func Parse(data []byte) (*Catalog, error) {
	c, err := parse(data)
	if err != nil {
		return nil, err
	}
	merged := &Catalog{
		Locale:  c.Locale,
		Strings: make(map[Key]string, len(defaultCatalog.Strings)),
	}
	for k, v := range defaultCatalog.Strings {
		merged.Strings[k] = v
	}
	for k, v := range c.Strings {
		merged.Strings[k] = v
	}
	return merged, nil
}

// Load reads and parses a catalog file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
	}
	return c, nil
}

func parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if err := validation.Validate.Struct(c); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	for key, arity := range templateArity {
		tmpl, ok := c.Strings[key]
		if !ok {
			continue
		}
		if err := checkTemplate(tmpl, arity); err != nil {
			return nil, fmt.Errorf("invalid catalog: %s: %w", key, err)
		}
	}
	return &c, nil
}

// checkTemplate reports an error unless tmpl uses only %s verbs and refers to
// every argument 1..arity and nothing else.
func checkTemplate(tmpl string, arity int) error {
	used, err := templateArgs(tmpl)
	if err != nil {
		return err
	}
	for n := range used {
		if n > arity {
			return fmt.Errorf("refers to argument %d but only %d are given", n, arity)
		}
	}
	for n := 1; n <= arity; n++ {
		if !used[n] {
			return fmt.Errorf("does not use argument %d", n)
		}
	}
	return nil
}

// templateArgs returns the argument indexes a fmt template refers to, following
// fmt's rule that a plain verb takes the argument after the previous one.
func templateArgs(tmpl string) (map[int]bool, error) {
	used := make(map[int]bool)
	next := 1
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] != '%' {
			continue
		}
		i++
		if i >= len(tmpl) {
			return nil, errors.New("ends with a bare %")
		}
		if tmpl[i] == '%' {
			continue
		}
		n := next
		if tmpl[i] == '[' {
			end := strings.IndexByte(tmpl[i:], ']')
			if end < 0 {
				return nil, errors.New("unterminated argument index")
			}
			idx, err := strconv.Atoi(tmpl[i+1 : i+end])
			if err != nil || idx < 1 {
				return nil, fmt.Errorf("bad argument index %q", tmpl[i:i+end+1])
			}
			n = idx
			i += end + 1
			if i >= len(tmpl) {
				return nil, errors.New("argument index without a verb")
			}
		}
		if tmpl[i] != 's' {
			return nil, fmt.Errorf("unsupported verb %q", "%"+tmpl[i:i+1])
		}
		used[n] = true
		next = n + 1
	}
	return used, nil
}
