package models

import "time"

// Product is a purchasable digital item (document, software, game). The
// actual bytes live in object storage under FileKey.
type Product struct {
	ID          int     `json:"id"`
	UserID      int     `json:"user_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	// UniquePrice, when positive, is the cost of buying the item
	// exclusively: the product is archived from the catalog and the buyer
	// becomes its sole owner.
	UniquePrice float64    `json:"unique_price"`
	FileKey     string     `json:"-"`
	FileName    string     `json:"file_name"`
	ContentType string     `json:"content_type"`
	Status      string     `json:"status"`
	UniqueOwner *int       `json:"unique_owner,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ArchivedAt  *time.Time `json:"-"`
}

const (
	ProductStatusActive  = "active"
	ProductStatusArchive = "archive"
)
