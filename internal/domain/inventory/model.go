package inventory

import (
	"time"

	"github.com/google/uuid"
)

const (
	CategoryReagent    = "reagent"
	CategoryConsumable = "consumable"
)

type Item struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"item_name"`
	Category        string     `json:"category"`
	LotNumber       string     `json:"lot_number"`
	Quantity        int        `json:"quantity"`
	Unit            string     `json:"unit"`
	MinimumQuantity int        `json:"minimum_quantity"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
	Supplier        string     `json:"supplier"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ExpiringItem is an item with its remaining shelf life in whole days.
type ExpiringItem struct {
	Item
	DaysToExpire int `json:"days_to_expire"`
}

type Alerts struct {
	LowStock     []Item         `json:"low_stock"`
	ExpiringSoon []ExpiringItem `json:"expiring_soon"`
}
