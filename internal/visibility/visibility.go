// Package visibility decides which blocks are shown given the answers
// collected so far. Evaluation is pure and total: malformed rules and
// dangling block references never error, they just do not match.
package visibility

import (
	"strings"

	"github.com/formloom/formloom/internal/entity"
)

// Visible evaluates the display rules of one block against the current
// answers.
//
// Rules are applied in declaration order and every rule is evaluated:
// each matching rule overwrites the result with its action, so the last
// matching rule wins. This is a deliberate contract, not first-match.
func Visible(b *entity.Block, answers entity.AnswerSet) bool {
	if b.Visibility == nil || !b.Visibility.Enabled {
		return true
	}

	visible := true

	for _, rule := range b.Visibility.Rules {
		if !ruleMatches(rule, answers) {
			continue
		}

		switch rule.Action {
		case entity.ActionShow:
			visible = true
		case entity.ActionHide:
			visible = false
		}
	}

	return visible
}

// VisibleSet evaluates every block of a form at once, keyed by block id.
func VisibleSet(blocks []entity.Block, answers entity.AnswerSet) map[string]bool {
	out := make(map[string]bool, len(blocks))
	for i := range blocks {
		out[blocks[i].ID] = Visible(&blocks[i], answers)
	}
	return out
}

// ruleMatches combines the rule's condition results. A rule with no
// conditions never matches.
func ruleMatches(rule entity.Rule, answers entity.AnswerSet) bool {
	if len(rule.Conditions) == 0 {
		return false
	}

	if rule.Operator == entity.OperatorOr {
		for _, cond := range rule.Conditions {
			if conditionHolds(cond, answers) {
				return true
			}
		}
		return false
	}

	// "and" is the default for unknown operators as well.
	for _, cond := range rule.Conditions {
		if !conditionHolds(cond, answers) {
			return false
		}
	}
	return true
}

// conditionHolds compares the referenced answer with the condition
// value. An unanswered or blank referenced value is false for every
// operator, no type coercion attempted.
func conditionHolds(cond entity.Condition, answers entity.AnswerSet) bool {
	raw, ok := answers[cond.BlockID]
	if !ok || entity.IsEmptyValue(raw) {
		return false
	}

	switch cond.Operator {
	case entity.CondEquals:
		s, ok := entity.AnswerString(raw)
		return ok && s == cond.Value
	case entity.CondNotEquals:
		s, ok := entity.AnswerString(raw)
		return ok && s != cond.Value
	case entity.CondContains:
		s, ok := entity.AnswerString(raw)
		return ok && strings.Contains(s, cond.Value)
	case entity.CondGreaterThan:
		left, lok := entity.AnswerNumber(raw)
		right, rok := entity.AnswerNumber(cond.Value)
		return lok && rok && left > right
	case entity.CondLessThan:
		left, lok := entity.AnswerNumber(raw)
		right, rok := entity.AnswerNumber(cond.Value)
		return lok && rok && left < right
	}

	return false
}
