// Package repository provides data persistence functionality using GORM
package repository

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/formloom/formloom/internal/entity"
	"github.com/formloom/formloom/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a form id matches no stored record.
var ErrNotFound = errors.New("form not found")

type (
	// FormRecord is the stored shape of a form. The block schema is
	// kept as one JSON document: the editor always reads and writes
	// the form as a whole, so a relational block table would only add
	// join overhead.
	FormRecord struct {
		ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
		OwnerID   string    `gorm:"index"`
		Title     string
		Layout    string
		Published bool
		Schema    []byte `gorm:"type:blob"` // blocks + theme + settings, JSON
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// SubmissionRecord stores one accepted response.
	SubmissionRecord struct {
		ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
		FormID    uuid.UUID `gorm:"type:uuid;index"`
		Payload   []byte    `gorm:"type:blob"` // answer map, JSON
		IP        string
		CreatedAt time.Time
	}

	// schemaDoc is the JSON layout of FormRecord.Schema.
	schemaDoc struct {
		Blocks   []entity.Block  `json:"blocks"`
		Theme    entity.Theme    `json:"theme"`
		Settings entity.Settings `json:"settings"`
	}

	// Repository handles database operations using GORM
	Repository struct {
		db     *gorm.DB
		logger *logger.Logger
	}
)

// Init creates a Repository and migrates its tables.
func Init(db *gorm.DB, logger *logger.Logger) (*Repository, error) {
	if err := db.AutoMigrate(&FormRecord{}, &SubmissionRecord{}); err != nil {
		logger.Error("error migrating schema", zap.Error(err))
		return nil, err
	}

	return &Repository{
		db:     db,
		logger: logger,
	}, nil
}

// CreateForm persists a new form.
func (repo *Repository) CreateForm(form *entity.Form) error {
	record, err := toRecord(form)
	if err != nil {
		repo.logger.Error("error encoding form schema",
			zap.String("form_id", form.ID.String()),
			zap.Error(err))
		return err
	}

	if res := repo.db.Create(record); res.Error != nil {
		repo.logger.Error("error create form",
			zap.String("form_id", form.ID.String()),
			zap.Error(res.Error))
		return res.Error
	}

	return nil
}

// LoadForm retrieves a form by id, ErrNotFound when absent.
func (repo *Repository) LoadForm(id uuid.UUID) (*entity.Form, error) {
	var record FormRecord

	res := repo.db.Where("id = ?", id).First(&record)
	if err := res.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		repo.logger.Error("error get form",
			zap.String("form_id", id.String()),
			zap.Error(err))
		return nil, err
	}

	return fromRecord(&record)
}

// PersistForm overwrites the editable part of a stored form with an
// editor snapshot. This is the autosave pipeline's sole write call.
func (repo *Repository) PersistForm(id uuid.UUID, snap entity.Snapshot) error {
	schema, err := json.Marshal(schemaDoc{
		Blocks:   snap.Blocks,
		Theme:    snap.Theme,
		Settings: snap.Settings,
	})
	if err != nil {
		repo.logger.Error("error encoding snapshot",
			zap.String("form_id", id.String()),
			zap.Error(err))
		return err
	}

	res := repo.db.Model(&FormRecord{}).Where("id = ?", id).Updates(map[string]any{
		"title":  snap.Title,
		"schema": schema,
	})
	if err := res.Error; err != nil {
		repo.logger.Error("error persist form",
			zap.String("form_id", id.String()),
			zap.Error(err))
		return err
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// SetPublished flips the publication gate.
func (repo *Repository) SetPublished(id uuid.UUID, published bool) error {
	res := repo.db.Model(&FormRecord{}).Where("id = ?", id).Update("published", published)
	if err := res.Error; err != nil {
		repo.logger.Error("error update published",
			zap.String("form_id", id.String()),
			zap.Error(err))
		return err
	}

	return nil
}

// DeleteForm removes a form and its submissions.
func (repo *Repository) DeleteForm(id uuid.UUID) error {
	if res := repo.db.Where("form_id = ?", id).Delete(&SubmissionRecord{}); res.Error != nil {
		repo.logger.Error("error delete submissions",
			zap.String("form_id", id.String()),
			zap.Error(res.Error))
		return res.Error
	}

	res := repo.db.Where("id = ?", id).Delete(&FormRecord{})
	if err := res.Error; err != nil {
		repo.logger.Error("error delete form",
			zap.String("form_id", id.String()),
			zap.Error(err))
		return err
	}

	return nil
}

// CreateSubmission stores one accepted response and returns its id.
func (repo *Repository) CreateSubmission(formID uuid.UUID, answers entity.AnswerSet, ip string) (uuid.UUID, error) {
	payload, err := json.Marshal(answers)
	if err != nil {
		repo.logger.Error("error encoding answers",
			zap.String("form_id", formID.String()),
			zap.Error(err))
		return uuid.Nil, err
	}

	record := SubmissionRecord{
		ID:      uuid.New(),
		FormID:  formID,
		Payload: payload,
		IP:      ip,
	}

	if res := repo.db.Create(&record); res.Error != nil {
		repo.logger.Error("error create submission",
			zap.String("form_id", formID.String()),
			zap.Error(res.Error))
		return uuid.Nil, res.Error
	}

	return record.ID, nil
}

// CountSubmissions returns how many responses a form has collected,
// used by the response-cap gate.
func (repo *Repository) CountSubmissions(formID uuid.UUID) (int64, error) {
	var count int64

	res := repo.db.Model(&SubmissionRecord{}).Where("form_id = ?", formID).Count(&count)
	if err := res.Error; err != nil {
		repo.logger.Error("error count submissions",
			zap.String("form_id", formID.String()),
			zap.Error(err))
		return 0, err
	}

	return count, nil
}

// IsHealthy pings the underlying connection.
func (repo *Repository) IsHealthy() bool {
	db, err := repo.db.DB()
	if err != nil {
		return false
	}
	return db.Ping() == nil
}

func toRecord(form *entity.Form) (*FormRecord, error) {
	schema, err := json.Marshal(schemaDoc{
		Blocks:   form.Blocks,
		Theme:    form.Theme,
		Settings: form.Settings,
	})
	if err != nil {
		return nil, err
	}

	return &FormRecord{
		ID:        form.ID,
		OwnerID:   form.OwnerID,
		Title:     form.Title,
		Layout:    string(form.Layout),
		Published: form.Published,
		Schema:    schema,
	}, nil
}

func fromRecord(record *FormRecord) (*entity.Form, error) {
	var doc schemaDoc
	if len(record.Schema) > 0 {
		if err := json.Unmarshal(record.Schema, &doc); err != nil {
			return nil, err
		}
	}

	layout := entity.Layout(record.Layout)
	if layout == "" {
		layout = entity.LayoutOneQuestionPerStep
	}

	return &entity.Form{
		ID:        record.ID,
		OwnerID:   record.OwnerID,
		Title:     record.Title,
		Layout:    layout,
		Blocks:    doc.Blocks,
		Theme:     doc.Theme,
		Settings:  doc.Settings,
		Published: record.Published,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}, nil
}
