// Package entity defines the core data structures used throughout the application
package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BlockType enumerates every kind of block a form can contain.
type BlockType string

const (
	// Informational blocks carry no answer.
	TypeWelcome   BlockType = "welcome"
	TypeHeading   BlockType = "heading"
	TypeParagraph BlockType = "paragraph"
	TypeImage     BlockType = "image"
	TypeYoutube   BlockType = "youtube"
	TypeMenu      BlockType = "menu"

	// Input blocks collect a value keyed by the block id.
	TypeText           BlockType = "text"
	TypeTextarea       BlockType = "textarea"
	TypeEmail          BlockType = "email"
	TypePhone          BlockType = "phone"
	TypeNumber         BlockType = "number"
	TypeSlider         BlockType = "slider"
	TypeDate           BlockType = "date"
	TypeYesNo          BlockType = "yes-no"
	TypeSingleChoice   BlockType = "single-choice"
	TypeMultipleChoice BlockType = "multiple-choice"
	TypeDropdown       BlockType = "dropdown"
	TypeRating         BlockType = "rating"
	TypeAddress        BlockType = "address"
	TypeWebsite        BlockType = "website"
	TypeFile           BlockType = "file"

	// Integrity blocks gate submission.
	TypeConsent BlockType = "consent"
	TypeCaptcha BlockType = "captcha"
)

// RuleAction decides what a matching visibility rule does to the block.
type RuleAction string

const (
	ActionShow RuleAction = "show"
	ActionHide RuleAction = "hide"
)

// RuleOperator combines the condition results within one rule.
type RuleOperator string

const (
	OperatorAnd RuleOperator = "and"
	OperatorOr  RuleOperator = "or"
)

// ConditionOperator compares a referenced answer against the condition value.
type ConditionOperator string

const (
	CondEquals      ConditionOperator = "equals"
	CondNotEquals   ConditionOperator = "not-equals"
	CondContains    ConditionOperator = "contains"
	CondGreaterThan ConditionOperator = "greater-than"
	CondLessThan    ConditionOperator = "less-than"
)

type (
	// Condition compares the answer of another block against a value.
	// A condition pointing at an unknown block id is inert, never an error.
	Condition struct {
		BlockID  string            `json:"block_id"`
		Operator ConditionOperator `json:"operator"`
		Value    string            `json:"value"`
	}

	// Rule is one show/hide instruction. Conditions are combined with
	// Operator; rules with no conditions never match.
	Rule struct {
		Action     RuleAction   `json:"action"`
		Operator   RuleOperator `json:"operator"`
		Conditions []Condition  `json:"conditions"`
	}

	// Visibility holds the conditional display rules of a block.
	// Disabled visibility means the block is always shown.
	Visibility struct {
		Enabled bool   `json:"enabled"`
		Rules   []Rule `json:"rules"`
	}

	// Block represents a single question or content unit within a form.
	// Type-specific fields (options, min/max, placeholder, country prefix
	// flag, ...) live in the Attrs bag; the typed accessors below read them.
	Block struct {
		ID         string         `json:"id"`
		Type       BlockType      `json:"type"`
		Label      string         `json:"label"`
		Required   bool           `json:"required"`
		Visibility *Visibility    `json:"visibility,omitempty"`
		Attrs      map[string]any `json:"attrs,omitempty"`
	}
)

// IsInformational reports whether the block carries no answer.
func (t BlockType) IsInformational() bool {
	switch t {
	case TypeWelcome, TypeHeading, TypeParagraph, TypeImage, TypeYoutube, TypeMenu:
		return true
	}
	return false
}

// IsInput reports whether the block collects an answer value.
func (t BlockType) IsInput() bool {
	return !t.IsInformational()
}

// NewBlockID generates an id that is unique for the block's lifetime.
// Timestamp plus random suffix keeps collisions negligible without
// needing cryptographic guarantees.
func NewBlockID() string {
	return fmt.Sprintf("%d-%.8s", time.Now().UnixMilli(), uuid.NewString())
}

// Attr returns a raw attribute from the open bag.
func (b *Block) Attr(key string) (any, bool) {
	if b.Attrs == nil {
		return nil, false
	}
	v, ok := b.Attrs[key]
	return v, ok
}

// Options returns the declared choice options for choice-like blocks.
// Both []string and []any bags are accepted since attrs survive a JSON
// round trip as []any.
func (b *Block) Options() []string {
	raw, ok := b.Attr("options")
	if !ok {
		return nil
	}

	switch vs := raw.(type) {
	case []string:
		return vs
	case []any:
		out := make([]string, 0, len(vs))
		for _, v := range vs {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// MinMax returns the declared numeric bounds, if any.
func (b *Block) MinMax() (min, max float64, ok bool) {
	minRaw, minOK := b.numAttr("min")
	maxRaw, maxOK := b.numAttr("max")
	if !minOK && !maxOK {
		return 0, 0, false
	}
	return minRaw, maxRaw, true
}

// HasMin and HasMax distinguish one-sided bounds.
func (b *Block) HasMin() bool { _, ok := b.numAttr("min"); return ok }
func (b *Block) HasMax() bool { _, ok := b.numAttr("max"); return ok }

// MinLength returns the declared minimum text length.
func (b *Block) MinLength() (int, bool) {
	v, ok := b.numAttr("min_length")
	return int(v), ok
}

// MaxLength returns the declared maximum text length.
func (b *Block) MaxLength() (int, bool) {
	v, ok := b.numAttr("max_length")
	return int(v), ok
}

// HasCountryPrefix reports whether a phone block expects an
// international prefix before the national number.
func (b *Block) HasCountryPrefix() bool {
	v, ok := b.Attr("country_prefix")
	if !ok {
		return false
	}
	flag, _ := v.(bool)
	return flag
}

// Placeholder returns the display placeholder, empty when unset.
func (b *Block) Placeholder() string {
	v, ok := b.Attr("placeholder")
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (b *Block) numAttr(key string) (float64, bool) {
	raw, ok := b.Attr(key)
	if !ok {
		return 0, false
	}

	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	}
	return 0, false
}

// Clone returns a deep copy of the block, attrs and visibility included.
func (b *Block) Clone() Block {
	out := *b

	if b.Attrs != nil {
		out.Attrs = make(map[string]any, len(b.Attrs))
		for k, v := range b.Attrs {
			out.Attrs[k] = cloneValue(v)
		}
	}

	if b.Visibility != nil {
		vis := Visibility{Enabled: b.Visibility.Enabled}
		vis.Rules = make([]Rule, len(b.Visibility.Rules))
		for i, r := range b.Visibility.Rules {
			rc := Rule{Action: r.Action, Operator: r.Operator}
			rc.Conditions = append(rc.Conditions, r.Conditions...)
			vis.Rules[i] = rc
		}
		out.Visibility = &vis
	}

	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
