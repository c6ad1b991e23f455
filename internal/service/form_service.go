package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formloom/formloom/internal/autosave"
	"github.com/formloom/formloom/internal/builder"
	"github.com/formloom/formloom/internal/entity"
	"github.com/formloom/formloom/internal/validation"
	"github.com/formloom/formloom/internal/visibility"
	"github.com/formloom/formloom/pkg/logger"
	"github.com/formloom/formloom/pkg/retrier"
)

// EditSession pairs the builder state of one open form with its
// autosave pipeline.
type EditSession struct {
	Builder  *builder.Session
	Pipeline *autosave.Pipeline
}

// Service orchestrates editing sessions and the submission gate.
type Service struct {
	repo      Repository
	publisher Publisher
	casher    Casher
	logger    *logger.Logger

	autosaveOpts autosave.Options

	mu       sync.Mutex
	sessions map[string]*EditSession

	ctx context.Context
}

func Init(ctx context.Context, repo Repository, publisher Publisher, casher Casher, opts autosave.Options) *Service {
	return &Service{
		repo:         repo,
		publisher:    publisher,
		casher:       casher,
		logger:       logger.Get(),
		autosaveOpts: opts,
		sessions:     make(map[string]*EditSession),
		ctx:          ctx,
	}
}

// CreateForm stores a new empty form and announces it.
func (s *Service) CreateForm(title, ownerID string) (*entity.Form, error) {
	form := &entity.Form{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Title:   title,
		Layout:  entity.LayoutOneQuestionPerStep,
	}

	if err := form.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.CreateForm(form); err != nil {
		return nil, fmt.Errorf("failed to create form in repository: %w", err)
	}

	s.publish(form, "form.created")

	return form, nil
}

// OpenSession loads a form into a fresh editing session. The loaded
// snapshot primes the autosave baseline so opening never writes.
func (s *Service) OpenSession(formID string) (*EditSession, error) {
	uid, err := uuid.Parse(formID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, open := s.sessions[formID]; open {
		return existing, nil
	}

	form, err := s.repo.LoadForm(uid)
	if err != nil {
		return nil, err
	}

	session := builder.NewSession(formID)
	session.Load(form)

	pipeline := autosave.NewPipeline(s.ctx, formID, s.storeAdapter(), s.casher, s.autosaveOpts)
	pipeline.Prime(session.Snapshot())

	edit := &EditSession{Builder: session, Pipeline: pipeline}
	s.sessions[formID] = edit

	return edit, nil
}

// CloseSession flushes pending autosave work and drops the session.
func (s *Service) CloseSession(formID string) error {
	s.mu.Lock()
	edit, open := s.sessions[formID]
	delete(s.sessions, formID)
	s.mu.Unlock()

	if !open {
		return nil
	}

	err := edit.Pipeline.Flush(s.ctx)
	edit.Pipeline.Close()
	return err
}

// Mutate runs one builder mutation inside the session and mirrors the
// new snapshot into the autosave pipeline. Sessions open lazily so
// broker-driven edits work without an explicit OpenSession.
func (s *Service) Mutate(formID string, mutate func(*builder.Session)) error {
	s.mu.Lock()
	edit, open := s.sessions[formID]
	s.mu.Unlock()

	if !open {
		var err error
		if edit, err = s.OpenSession(formID); err != nil {
			return fmt.Errorf("open session for form %s: %w", formID, err)
		}
	}

	before := edit.Builder.Rev
	mutate(edit.Builder)

	if edit.Builder.Rev == before {
		return nil
	}

	edit.Pipeline.Notify(edit.Builder.Snapshot())
	return nil
}

// AddBlock appends or inserts a new block of the given type.
func (s *Service) AddBlock(formID string, blockType entity.BlockType, position int) error {
	return s.Mutate(formID, func(b *builder.Session) {
		b.AddBlock(blockType, position)
	})
}

// UpdateBlock shallow-merges a patch into one block.
func (s *Service) UpdateBlock(formID, blockID string, patch map[string]any) error {
	return s.Mutate(formID, func(b *builder.Session) {
		b.UpdateBlock(blockID, patch)
	})
}

// DeleteBlock removes one block.
func (s *Service) DeleteBlock(formID, blockID string) error {
	return s.Mutate(formID, func(b *builder.Session) {
		b.DeleteBlock(blockID)
	})
}

// DuplicateBlock inserts a copy right after the source block.
func (s *Service) DuplicateBlock(formID, blockID string) error {
	return s.Mutate(formID, func(b *builder.Session) {
		b.DuplicateBlock(blockID)
	})
}

// MoveBlock relocates a block in the display order.
func (s *Service) MoveBlock(formID string, from, to int) error {
	return s.Mutate(formID, func(b *builder.Session) {
		b.MoveBlock(from, to)
	})
}

// SetPublished flips the publication gate and announces the change.
func (s *Service) SetPublished(formID string, published bool) error {
	uid, err := uuid.Parse(formID)
	if err != nil {
		return err
	}

	if err := s.repo.SetPublished(uid, published); err != nil {
		return err
	}

	form, err := s.repo.LoadForm(uid)
	if err != nil {
		return err
	}

	s.publish(form, "form.updated")
	return nil
}

// DeleteForm removes the form, its submissions and its fallback draft.
func (s *Service) DeleteForm(formID string) error {
	uid, err := uuid.Parse(formID)
	if err != nil {
		return err
	}

	if closeErr := s.CloseSession(formID); closeErr != nil {
		s.logger.Error("error flushing session before delete",
			zap.String("form_id", formID),
			zap.Error(closeErr))
	}

	if err := s.repo.DeleteForm(uid); err != nil {
		return fmt.Errorf("failed to delete form: %w", err)
	}

	cherr := make(chan error, 1)

	go func() {
		cherr <- retrier.Do(3, 1, func() error {
			return s.casher.RemoveDraft(s.ctx, formID)
		})
	}()

	if err := <-cherr; err != nil {
		s.logger.Error("error removing draft",
			zap.String("form_id", formID),
			zap.Error(err))
	}

	s.publish(&entity.Form{ID: uid}, "form.deleted")
	return nil
}

// DraftFor reads the fallback draft cache for manual recovery. The
// engine never rehydrates drafts on its own.
func (s *Service) DraftFor(formID string) ([]byte, error) {
	return s.casher.GetDraft(s.ctx, formID)
}

func (s *Service) publish(form *entity.Form, eventType string) {
	if err := s.publisher.Publish(form.ToOutput(), eventType); err != nil {
		// Event fan-out is best effort; the edit already succeeded.
		s.logger.Error("error publishing event",
			zap.String("event_type", eventType),
			zap.String("form_id", form.ID.String()),
			zap.Error(err))
	}
}

// storeAdapter binds the repository to the autosave Store contract.
func (s *Service) storeAdapter() autosave.Store {
	return storeFunc(func(ctx context.Context, formID string, snap entity.Snapshot) error {
		uid, err := uuid.Parse(formID)
		if err != nil {
			return err
		}
		return s.repo.PersistForm(uid, snap)
	})
}

type storeFunc func(context.Context, string, entity.Snapshot) error

func (f storeFunc) PersistForm(ctx context.Context, formID string, snap entity.Snapshot) error {
	return f(ctx, formID, snap)
}

// SubmissionMeta carries request metadata attached to a submission.
type SubmissionMeta struct {
	IP string
}

// Rejection explains why a submission was not accepted.
type Rejection struct {
	Reason      string            `json:"reason"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

func (r *Rejection) Error() string {
	return r.Reason
}

// SubmitAnswers is the strict submission gate: the form must be
// published, not expired and under its response cap, and every visible
// input block must pass strict validation. Hidden blocks are never
// validated, whatever their answers.
func (s *Service) SubmitAnswers(formID string, answers entity.AnswerSet, meta SubmissionMeta) (uuid.UUID, error) {
	uid, err := uuid.Parse(formID)
	if err != nil {
		return uuid.Nil, err
	}

	form, err := s.repo.LoadForm(uid)
	if err != nil {
		return uuid.Nil, err
	}

	if !form.Published {
		return uuid.Nil, &Rejection{Reason: "form is not published"}
	}

	if exp := form.Settings.ExpiresAt; exp != nil && time.Now().After(*exp) {
		return uuid.Nil, &Rejection{Reason: "form has expired"}
	}

	if limit := form.Settings.MaxResponses; limit != nil {
		count, err := s.repo.CountSubmissions(uid)
		if err != nil {
			return uuid.Nil, err
		}
		if count >= int64(*limit) {
			return uuid.Nil, &Rejection{Reason: "form is no longer accepting responses"}
		}
	}

	visible := visibility.VisibleSet(form.Blocks, answers)

	fieldErrors := make(map[string]string)
	for i := range form.Blocks {
		block := &form.Blocks[i]
		if !block.Type.IsInput() || !visible[block.ID] {
			continue
		}

		verdict := validation.Validate(block, answers[block.ID], validation.Strict)
		if !verdict.Valid {
			fieldErrors[block.ID] = verdict.Err
		}
	}

	if len(fieldErrors) > 0 {
		return uuid.Nil, &Rejection{Reason: "validation failed", FieldErrors: fieldErrors}
	}

	responseID, err := s.repo.CreateSubmission(uid, answers, meta.IP)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to store submission: %w", err)
	}

	s.publish(form, "response.submitted")

	return responseID, nil
}
