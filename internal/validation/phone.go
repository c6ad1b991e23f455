package validation

import (
	"strings"

	"github.com/formloom/formloom/internal/entity"
)

// countrySpec bounds the national significant number for one calling
// code. Bounds are inclusive.
type countrySpec struct {
	iso string
	min int
	max int
}

// countryPrefixes maps international calling codes to national number
// length bounds. Not exhaustive; unknown prefixes fall back to the
// generic digit rule.
var countryPrefixes = map[string]countrySpec{
	"1":   {"US", 10, 10},
	"7":   {"RU", 10, 10},
	"20":  {"EG", 8, 10},
	"27":  {"ZA", 9, 9},
	"30":  {"GR", 10, 10},
	"31":  {"NL", 9, 9},
	"32":  {"BE", 8, 9},
	"33":  {"FR", 9, 9},
	"34":  {"ES", 9, 9},
	"36":  {"HU", 8, 9},
	"39":  {"IT", 6, 11},
	"40":  {"RO", 9, 9},
	"41":  {"CH", 9, 9},
	"43":  {"AT", 4, 13},
	"44":  {"GB", 10, 10},
	"45":  {"DK", 8, 8},
	"46":  {"SE", 7, 13},
	"47":  {"NO", 8, 8},
	"48":  {"PL", 9, 9},
	"49":  {"DE", 6, 13},
	"52":  {"MX", 10, 10},
	"54":  {"AR", 10, 10},
	"55":  {"BR", 10, 11},
	"61":  {"AU", 9, 9},
	"64":  {"NZ", 8, 10},
	"65":  {"SG", 8, 8},
	"81":  {"JP", 9, 10},
	"82":  {"KR", 8, 11},
	"86":  {"CN", 11, 11},
	"90":  {"TR", 10, 10},
	"91":  {"IN", 10, 10},
	"212": {"MA", 9, 9},
	"213": {"DZ", 9, 9},
	"216": {"TN", 8, 8},
	"234": {"NG", 7, 10},
	"254": {"KE", 9, 9},
	"351": {"PT", 9, 9},
	"352": {"LU", 4, 11},
	"353": {"IE", 7, 9},
	"358": {"FI", 5, 12},
	"377": {"MC", 8, 9},
	"966": {"SA", 9, 9},
	"971": {"AE", 8, 9},
	"972": {"IL", 8, 9},
}

// trunkZeroISO lists the countries that conventionally write a
// parenthesized leading zero in international format; exactly one
// leading 0 is stripped from the national part before counting.
var trunkZeroISO = map[string]bool{
	"FR": true, "BE": true, "CH": true, "LU": true, "MC": true,
	"MA": true, "DZ": true, "TN": true, "TR": true,
}

const genericMinDigits = 8

// splitPrefix separates a leading +NNN calling code from the national
// remainder by longest-prefix match. The bool reports whether a known
// calling code matched.
func splitPrefix(s string) (spec countrySpec, national string, matched bool) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "+")

	raw := digitsOf(trimmed)
	for n := 3; n >= 1; n-- {
		if len(raw) < n {
			continue
		}
		if spec, found := countryPrefixes[raw[:n]]; found {
			return spec, raw[n:], true
		}
	}

	return countrySpec{}, raw, false
}

func digitsOf(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// validatePhoneLenient rejects payloads that are clearly just a typed
// prefix while leaving full national-format rules to strict mode.
func validatePhoneLenient(b *entity.Block, value any) Verdict {
	s, isStr := entity.AnswerString(value)
	if !isStr || strings.TrimSpace(s) == "" {
		return reject("This field is required")
	}

	if b.HasCountryPrefix() {
		_, national, _ := splitPrefix(s)
		if len(national) < 4 {
			return reject("Phone number is too short")
		}
		return ok()
	}

	if len(digitsOf(s)) < 4 {
		return reject("Phone number is too short")
	}
	return ok()
}

func validatePhoneStrict(b *entity.Block, value any) Verdict {
	s, isStr := entity.AnswerString(value)
	if !isStr || strings.TrimSpace(s) == "" {
		return reject("This field is required")
	}

	if !b.HasCountryPrefix() {
		if len(digitsOf(s)) < genericMinDigits {
			return reject("Invalid phone number")
		}
		return ok()
	}

	spec, national, matched := splitPrefix(s)
	if !matched {
		if len(national) < genericMinDigits {
			return reject("Invalid phone number")
		}
		return ok()
	}

	if trunkZeroISO[spec.iso] && strings.HasPrefix(national, "0") {
		national = national[1:]
	}

	if len(national) < spec.min || len(national) > spec.max {
		return reject("Invalid phone number")
	}

	return ok()
}
