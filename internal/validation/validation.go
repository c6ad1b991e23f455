// Package validation implements the per-block answer validator.
//
// Two modes exist: Lenient powers per-keystroke feedback and only
// rejects what would be hostile to let through (emptiness, obviously
// truncated phone numbers, captcha token shape), Strict is the
// authoritative gate run at submission time with full per-type rules.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/formloom/formloom/internal/entity"
)

// Mode selects the validation depth.
type Mode string

const (
	Strict  Mode = "strict"
	Lenient Mode = "lenient"
)

// Verdict is the structured result of validating one block. Validation
// problems are values, never errors.
type Verdict struct {
	Valid bool
	Err   string
}

func ok() Verdict               { return Verdict{Valid: true} }
func reject(msg string) Verdict { return Verdict{Valid: false, Err: msg} }

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validate checks one collected value against one block. Checks run in
// a fixed order, each short-circuiting:
//
//  1. not-required blocks accept anything, empty included
//  2. required and empty rejects
//  3. captcha token shape, checked in both modes
//  4. lenient phone prefix/digit floor, rejecting "only typed the prefix"
//  5. lenient accepts any remaining non-empty value
//  6. strict per-type rules
func Validate(b *entity.Block, value any, mode Mode) Verdict {
	if !b.Required {
		return ok()
	}

	if entity.IsEmptyValue(value) {
		return reject("This field is required")
	}

	// The captcha check is a token-shape heuristic only; actual
	// challenge verification happens outside the engine.
	if b.Type == entity.TypeCaptcha {
		token, isStr := value.(string)
		if !isStr || len(token) < 10 {
			return reject("Please complete the captcha")
		}
		return ok()
	}

	if b.Type == entity.TypePhone && mode == Lenient {
		return validatePhoneLenient(b, value)
	}

	if mode == Lenient {
		return ok()
	}

	return validateStrict(b, value)
}

func validateStrict(b *entity.Block, value any) Verdict {
	switch b.Type {
	case entity.TypeEmail:
		s, isStr := entity.AnswerString(value)
		if !isStr || !emailRe.MatchString(s) {
			return reject("Invalid email address")
		}

	case entity.TypePhone:
		return validatePhoneStrict(b, value)

	case entity.TypeNumber, entity.TypeSlider:
		n, isNum := entity.AnswerNumber(value)
		if !isNum {
			return reject("Must be a number")
		}
		if b.HasMin() {
			if min, _, _ := b.MinMax(); n < min {
				return reject(fmt.Sprintf("Must be at least %v", min))
			}
		}
		if b.HasMax() {
			if _, max, _ := b.MinMax(); n > max {
				return reject(fmt.Sprintf("Must be at most %v", max))
			}
		}

	case entity.TypeDate:
		s, isStr := entity.AnswerString(value)
		if !isStr || !parseableDate(s) {
			return reject("Invalid date")
		}

	case entity.TypeSingleChoice, entity.TypeDropdown:
		s, isStr := entity.AnswerString(value)
		if !isStr || !memberOf(s, b.Options()) {
			return reject("Invalid option")
		}

	case entity.TypeMultipleChoice:
		picks, valid := stringSlice(value)
		if !valid || len(picks) == 0 {
			return reject("Select at least one option")
		}
		for _, pick := range picks {
			if !memberOf(pick, b.Options()) {
				return reject("Invalid option")
			}
		}

	case entity.TypeConsent:
		if agreed, isBool := value.(bool); !isBool || !agreed {
			return reject("Consent is required")
		}

	case entity.TypeFile:
		if !hasFileDescriptor(value) {
			return reject("A file is required")
		}

	case entity.TypeText, entity.TypeTextarea:
		s, isStr := entity.AnswerString(value)
		if !isStr || strings.TrimSpace(s) == "" {
			return reject("This field is required")
		}
		length := len([]rune(s))
		if min, declared := b.MinLength(); declared && length < min {
			return reject(fmt.Sprintf("Must be at least %d characters", min))
		}
		if max, declared := b.MaxLength(); declared && length > max {
			return reject(fmt.Sprintf("Must be at most %d characters", max))
		}

	case entity.TypeYesNo:
		if !yesNoValue(value) {
			return reject("Please answer yes or no")
		}
	}

	// Remaining types carry only the generic non-empty requirement,
	// already enforced above.
	return ok()
}

func parseableDate(s string) bool {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "02/01/2006"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func memberOf(s string, options []string) bool {
	for _, opt := range options {
		if opt == s {
			return true
		}
	}
	return false
}

func stringSlice(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, isStr := e.(string)
			if !isStr {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func yesNoValue(v any) bool {
	if _, isBool := v.(bool); isBool {
		return true
	}
	if s, isStr := v.(string); isStr {
		switch strings.ToLower(s) {
		case "yes", "no", "oui", "non":
			return true
		}
	}
	return false
}

// hasFileDescriptor accepts any object-shaped value that carries an
// originalName, the marker the upload collaborator sets.
func hasFileDescriptor(v any) bool {
	switch desc := v.(type) {
	case map[string]any:
		name, isStr := desc["originalName"].(string)
		return isStr && name != ""
	case map[string]string:
		return desc["originalName"] != ""
	}
	return false
}
