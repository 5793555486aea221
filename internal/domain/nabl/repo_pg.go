package nabl

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lims/lims/internal/platform/db"
)

type documentRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &documentRepoPG{pool: pool}
}

func (r *documentRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const docCols = `id, document_type, document_id, title, version, status, uploaded_by, approved_by, created_at, updated_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.DocumentType, &d.DocumentID, &d.Title, &d.Version, &d.Status,
		&d.UploadedBy, &d.ApprovedBy, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *documentRepoPG) Create(ctx context.Context, d *Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO nabl_documents (id, document_type, document_id, title, version, status, uploaded_by, approved_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		d.ID, d.DocumentType, d.DocumentID, d.Title, d.Version, d.Status, d.UploadedBy, d.ApprovedBy,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	return db.MapError(err, "nabl document")
}

func (r *documentRepoPG) List(ctx context.Context, docType string, limit, offset int) ([]*Document, int, error) {
	where := ` WHERE $1 = '' OR document_type = $1`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM nabl_documents`+where, docType).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count nabl documents: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+docCols+` FROM nabl_documents`+where+`
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`, docType, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list nabl documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, d)
	}
	return docs, total, rows.Err()
}
