package nabl

import (
	"context"
	"strings"

	"github.com/lims/lims/internal/domain/audit"
	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/db"
)

type CreateInput struct {
	DocumentType string `json:"document_type"`
	DocumentID   string `json:"document_id"`
	Title        string `json:"title"`
	Version      string `json:"version"`
}

type Service struct {
	repo  Repository
	audit *audit.Recorder
	tx    db.Transactor
}

func NewService(repo Repository, recorder *audit.Recorder, tx db.Transactor) *Service {
	if tx == nil {
		tx = db.NoTx{}
	}
	return &Service{repo: repo, audit: recorder, tx: tx}
}

// Create registers a draft document uploaded by the calling user.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Document, error) {
	in.DocumentType = strings.TrimSpace(in.DocumentType)
	in.DocumentID = strings.TrimSpace(in.DocumentID)
	in.Title = strings.TrimSpace(in.Title)
	in.Version = strings.TrimSpace(in.Version)
	switch {
	case in.DocumentType == "":
		return nil, apperr.Validation("document_type is required")
	case in.DocumentID == "":
		return nil, apperr.Validation("document_id is required")
	case in.Title == "":
		return nil, apperr.Validation("title is required")
	case in.Version == "":
		return nil, apperr.Validation("version is required")
	}

	actor := auth.ActorFromContext(ctx)
	d := &Document{
		DocumentType: in.DocumentType,
		DocumentID:   in.DocumentID,
		Title:        in.Title,
		Version:      in.Version,
		Status:       StatusDraft,
		UploadedBy:   actor.UserID,
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, d); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, audit.ActionCreate, audit.ModuleNABL, audit.Details{
			"document_id": d.ID.String(),
			"type":        d.DocumentType,
		})
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) List(ctx context.Context, docType string, limit, offset int) ([]*Document, int, error) {
	return s.repo.List(ctx, strings.TrimSpace(docType), limit, offset)
}
