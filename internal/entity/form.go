package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Layout selects how a published form presents its blocks.
type Layout string

const (
	LayoutOneQuestionPerStep Layout = "one-question-per-step"
	LayoutAllInOne           Layout = "all-in-one"
)

type (
	// Theme carries presentation settings. The engine never interprets
	// them, it only keeps them consistent between editor and store.
	Theme struct {
		Color    string `json:"color,omitempty"`
		Font     string `json:"font,omitempty"`
		Rounded  bool   `json:"rounded,omitempty"`
		DarkMode bool   `json:"dark_mode,omitempty"`
	}

	// Settings are consulted by the submission gate, not by the
	// validator or the visibility evaluator.
	Settings struct {
		MaxResponses *int       `json:"max_responses,omitempty"`
		ExpiresAt    *time.Time `json:"expires_at,omitempty"`
		RedirectURL  string     `json:"redirect_url,omitempty"`
	}

	// Form represents a questionnaire assembled from typed blocks.
	// Block slice order is the display and navigation order.
	Form struct {
		ID        uuid.UUID `json:"id"`
		OwnerID   string    `json:"owner_id"`
		Title     string    `json:"title"`
		Layout    Layout    `json:"layout"`
		Blocks    []Block   `json:"blocks"`
		Theme     Theme     `json:"theme"`
		Settings  Settings  `json:"settings"`
		Published bool      `json:"published"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	// OutputForm is a DTO for form data in API responses and events.
	OutputForm struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		Layout     string `json:"layout"`
		Published  bool   `json:"published"`
		BlockCount int    `json:"block_count"`
		UpdatedAt  string `json:"updated_at"`
	}
)

func (f *Form) Validate() error {
	if f.ID == uuid.Nil {
		return errors.New("form ID can not be nil")
	}
	if f.OwnerID == "" {
		return errors.New("owner ID can not be empty")
	}

	seen := make(map[string]struct{}, len(f.Blocks))
	for _, b := range f.Blocks {
		if b.ID == "" {
			return errors.New("block ID can not be empty")
		}
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("duplicate block ID %q", b.ID)
		}
		seen[b.ID] = struct{}{}
	}

	return nil
}

// BlockByID returns the block with the given id, nil when absent.
func (f *Form) BlockByID(id string) *Block {
	for i := range f.Blocks {
		if f.Blocks[i].ID == id {
			return &f.Blocks[i]
		}
	}
	return nil
}

// ToOutput converts a Form entity to its DTO representation
func (f *Form) ToOutput() OutputForm {
	return OutputForm{
		ID:         f.ID.String(),
		Title:      f.Title,
		Layout:     string(f.Layout),
		Published:  f.Published,
		BlockCount: len(f.Blocks),
		UpdatedAt:  f.UpdatedAt.String(),
	}
}

// ToJson converts a Form entity to its JSON representation
func (f *Form) ToJson() ([]byte, error) {
	return json.Marshal(f)
}
