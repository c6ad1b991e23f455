package service

import (
	"context"

	"github.com/formloom/formloom/internal/entity"
	"github.com/google/uuid"
)

type (
	Repository interface {
		CreateForm(*entity.Form) error
		LoadForm(uuid.UUID) (*entity.Form, error)
		PersistForm(uuid.UUID, entity.Snapshot) error
		SetPublished(uuid.UUID, bool) error
		DeleteForm(uuid.UUID) error
		CreateSubmission(uuid.UUID, entity.AnswerSet, string) (uuid.UUID, error)
		CountSubmissions(uuid.UUID) (int64, error)
	}

	Publisher interface {
		Publish(any, string) error
	}

	// Casher is the local fallback draft cache, keyed per form id.
	Casher interface {
		PutDraft(ctx context.Context, formID string, payload []byte) error
		GetDraft(ctx context.Context, formID string) ([]byte, error)
		RemoveDraft(ctx context.Context, formID string) error
	}
)
