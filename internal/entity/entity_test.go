package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEmptyValue(t *testing.T) {
	assert.True(t, IsEmptyValue(nil))
	assert.True(t, IsEmptyValue(""))
	assert.True(t, IsEmptyValue([]any{}))
	assert.True(t, IsEmptyValue([]string{}))

	assert.False(t, IsEmptyValue("x"))
	assert.False(t, IsEmptyValue(0), "zero is a real answer")
	assert.False(t, IsEmptyValue(false), "false is a real answer")
	assert.False(t, IsEmptyValue([]string{"a"}))
}

func TestAnswerString(t *testing.T) {
	s, ok := AnswerString("hello")
	assert.True(t, ok)
	assert.Equal(t, "hello", s)

	s, ok = AnswerString(true)
	assert.True(t, ok)
	assert.Equal(t, "true", s)

	s, ok = AnswerString(float64(7))
	assert.True(t, ok)
	assert.Equal(t, "7", s)

	_, ok = AnswerString([]string{"a"})
	assert.False(t, ok)
}

func TestAnswerNumber(t *testing.T) {
	n, ok := AnswerNumber("3.5")
	assert.True(t, ok)
	assert.Equal(t, 3.5, n)

	_, ok = AnswerNumber("abc")
	assert.False(t, ok)

	_, ok = AnswerNumber(nil)
	assert.False(t, ok)
}

func TestFormValidate(t *testing.T) {
	form := &Form{ID: uuid.New(), OwnerID: "org-1"}
	assert.NoError(t, form.Validate())

	form.Blocks = []Block{{ID: "b1"}, {ID: "b1"}}
	assert.Error(t, form.Validate(), "duplicate block ids must be rejected")

	form.Blocks = []Block{{ID: "b1"}, {ID: ""}}
	assert.Error(t, form.Validate())

	assert.Error(t, (&Form{OwnerID: "org-1"}).Validate())
	assert.Error(t, (&Form{ID: uuid.New()}).Validate())
}

func TestNewBlockID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewBlockID()
		assert.False(t, seen[id], "id %s repeated", id)
		seen[id] = true
	}
}

func TestBlockClone_Independent(t *testing.T) {
	block := Block{
		ID:    "b1",
		Type:  TypeSingleChoice,
		Attrs: map[string]any{"options": []string{"A", "B"}},
		Visibility: &Visibility{
			Enabled: true,
			Rules: []Rule{{
				Action:     ActionHide,
				Operator:   OperatorAnd,
				Conditions: []Condition{{BlockID: "q1", Operator: CondEquals, Value: "v"}},
			}},
		},
	}

	clone := block.Clone()
	clone.Attrs["options"] = []string{"X"}
	clone.Visibility.Rules[0].Action = ActionShow

	assert.Equal(t, []string{"A", "B"}, block.Options())
	assert.Equal(t, ActionHide, block.Visibility.Rules[0].Action)
}

func TestBlockAccessors(t *testing.T) {
	block := Block{
		Type: TypeNumber,
		Attrs: map[string]any{
			"min": 1, "max": 10,
			"min_length": 2, "max_length": 4,
			"country_prefix": true,
			"placeholder":    "hi",
		},
	}

	min, max, ok := block.MinMax()
	require.True(t, ok)
	assert.Equal(t, float64(1), min)
	assert.Equal(t, float64(10), max)

	minLen, ok := block.MinLength()
	require.True(t, ok)
	assert.Equal(t, 2, minLen)

	maxLen, ok := block.MaxLength()
	require.True(t, ok)
	assert.Equal(t, 4, maxLen)

	assert.True(t, block.HasCountryPrefix())
	assert.Equal(t, "hi", block.Placeholder())

	empty := Block{Type: TypeText}
	assert.False(t, empty.HasMin())
	assert.Nil(t, empty.Options())
}

func TestSnapshotEqual(t *testing.T) {
	snap := Snapshot{
		Title:  "T",
		Blocks: []Block{{ID: "b1", Type: TypeText, Attrs: map[string]any{"placeholder": "x"}}},
	}

	same := Snapshot{
		Title:  "T",
		Blocks: []Block{{ID: "b1", Type: TypeText, Attrs: map[string]any{"placeholder": "x"}}},
	}
	assert.True(t, snap.Equal(same))

	different := same
	different.Title = "U"
	assert.False(t, snap.Equal(different))
}

func TestSnapshotDigest_MatchesEquality(t *testing.T) {
	a := Snapshot{Title: "T", Blocks: []Block{{ID: "b1", Type: TypeText}}}
	b := Snapshot{Title: "T", Blocks: []Block{{ID: "b1", Type: TypeText}}}

	da, err := a.Digest()
	require.NoError(t, err)
	db, err := b.Digest()
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestSnapshotClone_Detached(t *testing.T) {
	limit := 10
	expires := time.Now().Add(time.Hour)
	snap := Snapshot{
		Blocks:   []Block{{ID: "b1", Attrs: map[string]any{"k": "v"}}},
		Settings: Settings{MaxResponses: &limit, ExpiresAt: &expires},
	}

	clone := snap.Clone()
	clone.Blocks[0].Attrs["k"] = "changed"
	*clone.Settings.MaxResponses = 99

	assert.Equal(t, "v", snap.Blocks[0].Attrs["k"])
	assert.Equal(t, 10, *snap.Settings.MaxResponses)
}

func TestEventValidate(t *testing.T) {
	event := NewEvent("form.updated", []byte(`{"id":"x"}`))
	assert.NoError(t, event.Validate())

	assert.Error(t, (&Event{Type: "t", Payload: []byte("x")}).Validate())
	assert.Error(t, (&Event{ID: "1", Payload: []byte("x")}).Validate())
	assert.Error(t, (&Event{ID: "1", Type: "t"}).Validate())
}
