package inventory

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/lims/lims/internal/domain/audit"
	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/db"
)

// ExpiryWindowDays is how far ahead expiring stock is reported.
const ExpiryWindowDays = 30

type CreateInput struct {
	Name            string     `json:"item_name"`
	Category        string     `json:"category"`
	LotNumber       string     `json:"lot_number"`
	Quantity        int        `json:"quantity"`
	Unit            string     `json:"unit"`
	MinimumQuantity int        `json:"minimum_quantity"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
	Supplier        string     `json:"supplier"`
}

type Service struct {
	repo  Repository
	audit *audit.Recorder
	tx    db.Transactor
	now   func() time.Time
}

func NewService(repo Repository, recorder *audit.Recorder, tx db.Transactor) *Service {
	if tx == nil {
		tx = db.NoTx{}
	}
	return &Service{repo: repo, audit: recorder, tx: tx, now: time.Now}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Item, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperr.Validation("item_name is required")
	}
	if in.Category != CategoryReagent && in.Category != CategoryConsumable {
		return nil, apperr.Validation("category must be %s or %s", CategoryReagent, CategoryConsumable)
	}
	if in.Quantity < 0 || in.MinimumQuantity < 0 {
		return nil, apperr.Validation("quantities must not be negative")
	}

	it := &Item{
		Name:            in.Name,
		Category:        in.Category,
		LotNumber:       in.LotNumber,
		Quantity:        in.Quantity,
		Unit:            in.Unit,
		MinimumQuantity: in.MinimumQuantity,
		ExpiryDate:      in.ExpiryDate,
		Supplier:        in.Supplier,
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, it); err != nil {
			return err
		}
		return s.audit.Record(ctx, auth.ActorFromContext(ctx), audit.ActionCreate, audit.ModuleInventory, audit.Details{
			"item_id":   it.ID.String(),
			"item_name": it.Name,
		})
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (s *Service) List(ctx context.Context, name string, limit, offset int) ([]*Item, int, error) {
	return s.repo.List(ctx, strings.TrimSpace(name), limit, offset)
}

// DaysToExpire counts whole days from now until expiry, rounding down. An
// item that expired earlier today is at -1.
func DaysToExpire(expiry, now time.Time) int {
	return int(math.Floor(expiry.Sub(now).Hours() / 24))
}

// Alerts lists low stock (quantity at or below minimum) and items expiring
// within ExpiryWindowDays. Already expired items are not reported as expiring.
func (s *Service) Alerts(ctx context.Context) (*Alerts, error) {
	now := s.now().UTC()
	items, err := s.repo.AlertCandidates(ctx, now.AddDate(0, 0, ExpiryWindowDays+1))
	if err != nil {
		return nil, err
	}
	out := &Alerts{LowStock: []Item{}, ExpiringSoon: []ExpiringItem{}}
	for _, it := range items {
		if it.Quantity <= it.MinimumQuantity {
			out.LowStock = append(out.LowStock, *it)
		}
		if it.ExpiryDate != nil {
			days := DaysToExpire(*it.ExpiryDate, now)
			if days >= 0 && days <= ExpiryWindowDays {
				out.ExpiringSoon = append(out.ExpiringSoon, ExpiringItem{Item: *it, DaysToExpire: days})
			}
		}
	}
	return out, nil
}
