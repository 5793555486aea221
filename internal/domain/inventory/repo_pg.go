package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lims/lims/internal/platform/db"
)

type inventoryRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &inventoryRepoPG{pool: pool}
}

func (r *inventoryRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const itemCols = `id, name, category, lot_number, quantity, unit, minimum_quantity, expiry_date, supplier, created_at`

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Name, &it.Category, &it.LotNumber, &it.Quantity, &it.Unit,
		&it.MinimumQuantity, &it.ExpiryDate, &it.Supplier, &it.CreatedAt)
	return &it, err
}

func (r *inventoryRepoPG) Create(ctx context.Context, it *Item) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO inventory_items (id, name, category, lot_number, quantity, unit, minimum_quantity, expiry_date, supplier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		it.ID, it.Name, it.Category, it.LotNumber, it.Quantity, it.Unit, it.MinimumQuantity, it.ExpiryDate, it.Supplier,
	).Scan(&it.CreatedAt)
	return db.MapError(err, "inventory item")
}

func (r *inventoryRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Item, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *inventoryRepoPG) List(ctx context.Context, name string, limit, offset int) ([]*Item, int, error) {
	where := ` WHERE $1 = '' OR name ILIKE '%' || $1 || '%'`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM inventory_items`+where, name).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count inventory: %w", err)
	}
	items, err := r.query(ctx, `SELECT `+itemCols+` FROM inventory_items`+where+`
		ORDER BY name LIMIT $2 OFFSET $3`, name, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *inventoryRepoPG) AlertCandidates(ctx context.Context, cutoff time.Time) ([]*Item, error) {
	return r.query(ctx, `SELECT `+itemCols+` FROM inventory_items
		WHERE quantity <= minimum_quantity OR expiry_date <= $1
		ORDER BY name`, cutoff)
}
