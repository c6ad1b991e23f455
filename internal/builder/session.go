// Package builder holds the authoritative in-memory state of one form
// being edited. The session is an explicit container owned by the
// editor, never ambient global state; every mutation goes through a
// method so invariants (unique ids, order as navigation sequence,
// selection consistency) hold after each step.
package builder

import (
	"encoding/json"

	"github.com/formloom/formloom/internal/entity"
)

// Session is the editor state for a single form.
type Session struct {
	FormID          string
	Title           string
	Blocks          []entity.Block
	Theme           entity.Theme
	Settings        entity.Settings
	SelectedBlockID string

	// Rev increments on every mutation; observers use it to detect
	// change without diffing.
	Rev uint64
}

// NewSession returns an empty session for the given form id.
func NewSession(formID string) *Session {
	return &Session{FormID: formID}
}

// Load replaces the session state with a stored form.
func (s *Session) Load(form *entity.Form) {
	s.FormID = form.ID.String()
	s.Title = form.Title
	s.Theme = form.Theme
	s.Settings = form.Settings
	s.SelectedBlockID = ""

	s.Blocks = make([]entity.Block, len(form.Blocks))
	for i := range form.Blocks {
		s.Blocks[i] = form.Blocks[i].Clone()
	}

	s.Rev++
}

// AddBlock creates a block of the given type with its type defaults,
// inserts it at position (appends when position is out of range) and
// selects it.
func (s *Session) AddBlock(blockType entity.BlockType, position int) *entity.Block {
	block := entity.Block{
		ID:    entity.NewBlockID(),
		Type:  blockType,
		Label: defaultLabel(blockType),
		Attrs: defaultAttrs(blockType),
	}

	if position < 0 || position > len(s.Blocks) {
		position = len(s.Blocks)
	}

	s.Blocks = append(s.Blocks, entity.Block{})
	copy(s.Blocks[position+1:], s.Blocks[position:])
	s.Blocks[position] = block

	s.SelectedBlockID = block.ID
	s.Rev++

	return &s.Blocks[position]
}

// UpdateBlock shallow-merges a patch into the block with the given id.
// Label, required and visibility are recognized fields, everything else
// lands in the attribute bag. Unknown ids are a no-op, tolerating UI
// races during rapid editing.
func (s *Session) UpdateBlock(id string, patch map[string]any) {
	block := s.blockByID(id)
	if block == nil {
		return
	}

	for key, value := range patch {
		switch key {
		case "label":
			if label, isStr := value.(string); isStr {
				block.Label = label
			}
		case "required":
			if required, isBool := value.(bool); isBool {
				block.Required = required
			}
		case "visibility":
			if vis := decodeVisibility(value); vis != nil {
				block.Visibility = vis
			}
		default:
			if block.Attrs == nil {
				block.Attrs = make(map[string]any)
			}
			block.Attrs[key] = value
		}
	}

	s.Rev++
}

// DeleteBlock removes the block with the given id. Deleting the
// selected block clears the selection. Unknown ids are a no-op.
func (s *Session) DeleteBlock(id string) {
	for i := range s.Blocks {
		if s.Blocks[i].ID != id {
			continue
		}

		s.Blocks = append(s.Blocks[:i], s.Blocks[i+1:]...)

		if s.SelectedBlockID == id {
			s.SelectedBlockID = ""
		}
		s.Rev++
		return
	}
}

// DuplicateBlock clones a block under a fresh id and inserts the copy
// immediately after the source.
func (s *Session) DuplicateBlock(id string) *entity.Block {
	for i := range s.Blocks {
		if s.Blocks[i].ID != id {
			continue
		}

		clone := s.Blocks[i].Clone()
		clone.ID = entity.NewBlockID()

		s.Blocks = append(s.Blocks, entity.Block{})
		copy(s.Blocks[i+2:], s.Blocks[i+1:])
		s.Blocks[i+1] = clone

		s.SelectedBlockID = clone.ID
		s.Rev++
		return &s.Blocks[i+1]
	}
	return nil
}

// MoveBlock relocates the block at from to position to. Order is the
// only carrier of display and navigation sequence, so the relocation
// must neither lose nor duplicate blocks. Out-of-range indices are a
// no-op.
func (s *Session) MoveBlock(from, to int) {
	if from < 0 || from >= len(s.Blocks) || to < 0 || to >= len(s.Blocks) || from == to {
		return
	}

	moved := s.Blocks[from]
	rest := append(s.Blocks[:from], s.Blocks[from+1:]...)

	s.Blocks = append(rest, entity.Block{})
	copy(s.Blocks[to+1:], s.Blocks[to:])
	s.Blocks[to] = moved

	s.Rev++
}

// SelectBlock focuses a block. Selecting an unknown id clears the
// selection rather than pointing at a removed block.
func (s *Session) SelectBlock(id string) {
	if s.blockByID(id) == nil {
		s.SelectedBlockID = ""
		return
	}
	s.SelectedBlockID = id
}

// Reset returns the session to the empty default state.
func (s *Session) Reset() {
	s.Title = ""
	s.Blocks = nil
	s.Theme = entity.Theme{}
	s.Settings = entity.Settings{}
	s.SelectedBlockID = ""
	s.Rev++
}

// SetTitle renames the form in edit.
func (s *Session) SetTitle(title string) {
	s.Title = title
	s.Rev++
}

// SetTheme replaces the theme.
func (s *Session) SetTheme(theme entity.Theme) {
	s.Theme = theme
	s.Rev++
}

// SetSettings replaces the submission settings.
func (s *Session) SetSettings(settings entity.Settings) {
	s.Settings = settings
	s.Rev++
}

// Snapshot captures the persistable state for autosave comparison.
func (s *Session) Snapshot() entity.Snapshot {
	return entity.Snapshot{
		Title:    s.Title,
		Blocks:   s.Blocks,
		Theme:    s.Theme,
		Settings: s.Settings,
	}.Clone()
}

// decodeVisibility accepts both an in-process Visibility value and the
// map shape a JSON patch decodes into.
func decodeVisibility(value any) *entity.Visibility {
	switch v := value.(type) {
	case *entity.Visibility:
		return v
	case entity.Visibility:
		return &v
	case map[string]any:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		var vis entity.Visibility
		if err := json.Unmarshal(raw, &vis); err != nil {
			return nil
		}
		return &vis
	}
	return nil
}

func (s *Session) blockByID(id string) *entity.Block {
	for i := range s.Blocks {
		if s.Blocks[i].ID == id {
			return &s.Blocks[i]
		}
	}
	return nil
}
