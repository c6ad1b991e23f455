package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formloom/formloom/internal/entity"
)

func sessionWithBlocks(types ...entity.BlockType) *Session {
	s := NewSession("form-1")
	for _, t := range types {
		s.AddBlock(t, -1)
	}
	return s
}

func blockIDs(s *Session) []string {
	ids := make([]string, len(s.Blocks))
	for i, b := range s.Blocks {
		ids[i] = b.ID
	}
	return ids
}

func TestAddBlock_AppendsAndSelects(t *testing.T) {
	s := NewSession("form-1")

	block := s.AddBlock(entity.TypeText, -1)

	require.Len(t, s.Blocks, 1)
	assert.NotEmpty(t, block.ID)
	assert.Equal(t, entity.TypeText, block.Type)
	assert.Equal(t, block.ID, s.SelectedBlockID)
}

func TestAddBlock_InsertAtPosition(t *testing.T) {
	s := sessionWithBlocks(entity.TypeText, entity.TypeEmail)

	inserted := s.AddBlock(entity.TypeHeading, 1)

	require.Len(t, s.Blocks, 3)
	assert.Equal(t, inserted.ID, s.Blocks[1].ID)
	assert.Equal(t, entity.TypeText, s.Blocks[0].Type)
	assert.Equal(t, entity.TypeEmail, s.Blocks[2].Type)
}

func TestAddBlock_TypeDefaults(t *testing.T) {
	s := NewSession("form-1")

	choice := s.AddBlock(entity.TypeSingleChoice, -1)
	assert.Equal(t, []string{"Option 1", "Option 2"}, choice.Options())

	phone := s.AddBlock(entity.TypePhone, -1)
	assert.True(t, phone.HasCountryPrefix())
}

func TestAddThenDelete_RestoresPriorSequence(t *testing.T) {
	s := sessionWithBlocks(entity.TypeText, entity.TypeEmail, entity.TypeNumber)
	before := blockIDs(s)

	added := s.AddBlock(entity.TypeHeading, 1)
	s.DeleteBlock(added.ID)

	assert.Equal(t, before, blockIDs(s))
}

func TestDeleteBlock_ClearsSelection(t *testing.T) {
	s := sessionWithBlocks(entity.TypeText)
	id := s.Blocks[0].ID
	s.SelectBlock(id)

	s.DeleteBlock(id)

	assert.Empty(t, s.Blocks)
	assert.Empty(t, s.SelectedBlockID)
}

func TestDeleteBlock_UnknownIDIsNoop(t *testing.T) {
	s := sessionWithBlocks(entity.TypeText)
	rev := s.Rev

	s.DeleteBlock("nope")

	assert.Len(t, s.Blocks, 1)
	assert.Equal(t, rev, s.Rev)
}

func TestUpdateBlock_MergesPatch(t *testing.T) {
	s := sessionWithBlocks(entity.TypeText)
	id := s.Blocks[0].ID

	s.UpdateBlock(id, map[string]any{
		"label":       "Your name",
		"required":    true,
		"placeholder": "Jane Doe",
	})

	block := s.Blocks[0]
	assert.Equal(t, "Your name", block.Label)
	assert.True(t, block.Required)
	assert.Equal(t, "Jane Doe", block.Placeholder())
}

func TestUpdateBlock_UnknownIDIsNoop(t *testing.T) {
	s := sessionWithBlocks(entity.TypeText)
	rev := s.Rev

	s.UpdateBlock("nope", map[string]any{"label": "x"})

	assert.Equal(t, rev, s.Rev)
	assert.NotEqual(t, "x", s.Blocks[0].Label)
}

func TestUpdateBlock_VisibilityPatchFromJSON(t *testing.T) {
	s := sessionWithBlocks(entity.TypeText)
	id := s.Blocks[0].ID

	// Broker patches decode into plain maps.
	s.UpdateBlock(id, map[string]any{
		"visibility": map[string]any{
			"enabled": true,
			"rules": []any{
				map[string]any{
					"action":   "hide",
					"operator": "and",
					"conditions": []any{
						map[string]any{"block_id": "q1", "operator": "equals", "value": "v"},
					},
				},
			},
		},
	})

	vis := s.Blocks[0].Visibility
	require.NotNil(t, vis)
	assert.True(t, vis.Enabled)
	require.Len(t, vis.Rules, 1)
	assert.Equal(t, entity.ActionHide, vis.Rules[0].Action)
	assert.Equal(t, "q1", vis.Rules[0].Conditions[0].BlockID)
}

func TestDuplicateBlock(t *testing.T) {
	s := sessionWithBlocks(entity.TypeSingleChoice, entity.TypeEmail)
	source := s.Blocks[0]

	clone := s.DuplicateBlock(source.ID)

	require.NotNil(t, clone)
	require.Len(t, s.Blocks, 3)
	assert.Equal(t, clone.ID, s.Blocks[1].ID, "copy sits right after the source")
	assert.NotEqual(t, source.ID, clone.ID)
	assert.Equal(t, source.Label, clone.Label)
	assert.Equal(t, source.Options(), clone.Options())

	// The clone's attrs are independent of the source's.
	s.UpdateBlock(clone.ID, map[string]any{"options": []string{"X"}})
	assert.Equal(t, []string{"Option 1", "Option 2"}, s.Blocks[0].Options())
}

func TestMoveBlock(t *testing.T) {
	s := sessionWithBlocks(entity.TypeText, entity.TypeEmail, entity.TypeNumber, entity.TypeDate)
	ids := blockIDs(s)

	s.MoveBlock(1, 3)

	assert.Equal(t, []string{ids[0], ids[2], ids[3], ids[1]}, blockIDs(s))
}

func TestMoveBlock_InverseRestoresOrder(t *testing.T) {
	s := sessionWithBlocks(entity.TypeText, entity.TypeEmail, entity.TypeNumber, entity.TypeDate)
	before := blockIDs(s)

	s.MoveBlock(1, 3)
	s.MoveBlock(3, 1)

	assert.Equal(t, before, blockIDs(s))
}

func TestMoveBlock_OutOfRangeIsNoop(t *testing.T) {
	s := sessionWithBlocks(entity.TypeText, entity.TypeEmail)
	before := blockIDs(s)

	s.MoveBlock(-1, 1)
	s.MoveBlock(0, 2)
	s.MoveBlock(5, 0)

	assert.Equal(t, before, blockIDs(s))
}

func TestSelectBlock_UnknownIDClearsSelection(t *testing.T) {
	s := sessionWithBlocks(entity.TypeText)
	s.SelectBlock(s.Blocks[0].ID)

	s.SelectBlock("gone")

	assert.Empty(t, s.SelectedBlockID)
}

func TestReset(t *testing.T) {
	s := sessionWithBlocks(entity.TypeText)
	s.SetTitle("My form")

	s.Reset()

	assert.Empty(t, s.Title)
	assert.Empty(t, s.Blocks)
	assert.Empty(t, s.SelectedBlockID)
}

func TestLoad_CopiesBlocks(t *testing.T) {
	form := &entity.Form{
		Title: "Loaded",
		Blocks: []entity.Block{
			{ID: "b1", Type: entity.TypeText, Attrs: map[string]any{"placeholder": "x"}},
		},
	}

	s := NewSession("form-1")
	s.Load(form)

	s.UpdateBlock("b1", map[string]any{"placeholder": "changed"})
	assert.Equal(t, "x", form.Blocks[0].Attrs["placeholder"], "session edits must not leak into the source form")
}

func TestSnapshot_IsDetachedFromSession(t *testing.T) {
	s := sessionWithBlocks(entity.TypeText)
	snap := s.Snapshot()

	s.UpdateBlock(s.Blocks[0].ID, map[string]any{"label": "changed"})

	assert.NotEqual(t, snap.Blocks[0].Label, s.Blocks[0].Label)
}

func TestRev_IncrementsOnMutation(t *testing.T) {
	s := NewSession("form-1")
	rev := s.Rev

	s.AddBlock(entity.TypeText, -1)
	assert.Greater(t, s.Rev, rev)
}
