package repository

import (
	"context"

	"credit-risk/domain"
)

// AssessmentRepository keeps an audit trail of completed assessments.
type AssessmentRepository interface {
	Save(ctx context.Context, assessment domain.Assessment) error
	// List returns up to limit assessments, newest first.
	List(ctx context.Context, limit int) ([]domain.Assessment, error)
}
