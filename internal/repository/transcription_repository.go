package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/medscribe/medscribe-api/internal/domain/transcription"
)

type TranscriptionRepository struct {
	db *gorm.DB
}

func NewTranscriptionRepository(db *gorm.DB) *TranscriptionRepository {
	return &TranscriptionRepository{db: db}
}

func (r *TranscriptionRepository) Create(ctx context.Context, t *transcription.Transcription) error {
	t.WorkflowStatus = t.DeriveStatus()
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("inserting transcription: %w", err)
	}
	return nil
}

func (r *TranscriptionRepository) GetByID(ctx context.Context, id uint) (*transcription.Transcription, error) {
	var t transcription.Transcription
	err := r.db.WithContext(ctx).First(&t, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, transcription.ErrTranscriptionNotFound
		}
		return nil, fmt.Errorf("loading transcription %d: %w", id, err)
	}
	return &t, nil
}

// List returns a newest-first page plus the total count. Ordering by
// (created_at, id) descending is stable across calls for identical data.
func (r *TranscriptionRepository) List(ctx context.Context, q *transcription.ListTranscriptionsQuery) (*transcription.PagedTranscriptions, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&transcription.Transcription{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting transcriptions: %w", err)
	}

	var records []*transcription.Transcription
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("listing transcriptions: %w", err)
	}

	return &transcription.PagedTranscriptions{
		Records:    records,
		TotalCount: total,
		Page:       (q.Offset / q.Limit) + 1,
		PageSize:   q.Limit,
	}, nil
}

func (r *TranscriptionRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&transcription.Transcription{}, id)
	if res.Error != nil {
		return fmt.Errorf("deleting transcription %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return transcription.ErrTranscriptionNotFound
	}
	return nil
}

func (r *TranscriptionRepository) UpdateMedicalNote(ctx context.Context, id uint, note string) (*transcription.Transcription, error) {
	return r.applyStep(ctx, id, func(t *transcription.Transcription) {
		t.MedicalNote = &note
	})
}

func (r *TranscriptionRepository) UpdateICD10Codes(ctx context.Context, id uint, codes []transcription.ICD10Code) (*transcription.Transcription, error) {
	return r.applyStep(ctx, id, func(t *transcription.Transcription) {
		t.ICD10Codes = codes
	})
}

func (r *TranscriptionRepository) UpdateCPTCodes(ctx context.Context, id uint, codes []transcription.CPTCode) (*transcription.Transcription, error) {
	return r.applyStep(ctx, id, func(t *transcription.Transcription) {
		t.CPTCodes = codes
	})
}

func (r *TranscriptionRepository) UpdateCMS1500Form(ctx context.Context, id uint, form *transcription.CMS1500Form) (*transcription.Transcription, error) {
	return r.applyStep(ctx, id, func(t *transcription.Transcription) {
		t.CMS1500Form = form
	})
}

// UpdateFullWorkflow persists all four step outputs in a single save,
// so a partial pipeline result is never half-written.
func (r *TranscriptionRepository) UpdateFullWorkflow(ctx context.Context, id uint, result *transcription.FullWorkflowResult) (*transcription.Transcription, error) {
	return r.applyStep(ctx, id, func(t *transcription.Transcription) {
		t.MedicalNote = &result.MedicalNote
		t.ICD10Codes = result.ICD10Codes
		t.CPTCodes = result.CPTCodes
		t.CMS1500Form = result.CMS1500Form
	})
}

// applyStep loads the record, applies the mutation, recomputes the derived
// workflow status, and saves the whole row inside one transaction.
func (r *TranscriptionRepository) applyStep(ctx context.Context, id uint, mutate func(*transcription.Transcription)) (*transcription.Transcription, error) {
	var t transcription.Transcription

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&t, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return transcription.ErrTranscriptionNotFound
			}
			return fmt.Errorf("loading transcription %d: %w", id, err)
		}

		mutate(&t)
		t.WorkflowStatus = t.DeriveStatus()

		if err := tx.Save(&t).Error; err != nil {
			return fmt.Errorf("%w: %v", transcription.ErrUpdateFailed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &t, nil
}
