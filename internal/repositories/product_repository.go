package repositories

import (
	"context"
	"database/sql"

	"tbarimtBack/internal/models"
)

type ProductRepository struct {
	DB *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository { return &ProductRepository{DB: db} }

func (r *ProductRepository) GetByID(ctx context.Context, id int) (models.Product, error) {
	row := r.DB.QueryRowContext(ctx, `
SELECT id, user_id, title, description, price, unique_price, file_key, file_name, content_type, status, unique_owner, created_at, archived_at
FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return models.Product{}, models.ErrProductNotFound
	}
	return p, err
}

func (r *ProductRepository) GetByUser(ctx context.Context, userID int) ([]models.Product, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT id, user_id, title, description, price, unique_price, file_key, file_name, content_type, status, unique_owner, created_at, archived_at
FROM products WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// MarkUnique records the exclusive buyer and pulls the product out of the
// public catalog.
func (r *ProductRepository) MarkUnique(ctx context.Context, productID, buyerID int) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE products SET unique_owner = ?, status = 'archive', archived_at = NOW() WHERE id = ? AND unique_owner IS NULL`,
		buyerID, productID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrProductNotForSale
	}
	return nil
}

// RecordSale appends a purchase row. Ordinary sales do not change the
// product itself; the same item can be bought by many users.
func (r *ProductRepository) RecordSale(ctx context.Context, productID, buyerID int, amount float64, method string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO product_sales (product_id, buyer_id, amount, method, created_at) VALUES (?, ?, ?, ?, NOW())`,
		productID, buyerID, amount, method)
	return err
}

func scanProduct(scanner interface{ Scan(dest ...any) error }) (models.Product, error) {
	var p models.Product
	var uniqueOwner sql.NullInt64
	var archivedAt sql.NullTime
	err := scanner.Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &p.Price, &p.UniquePrice,
		&p.FileKey, &p.FileName, &p.ContentType, &p.Status, &uniqueOwner, &p.CreatedAt, &archivedAt)
	if err != nil {
		return models.Product{}, err
	}
	if uniqueOwner.Valid {
		v := int(uniqueOwner.Int64)
		p.UniqueOwner = &v
	}
	if archivedAt.Valid {
		t := archivedAt.Time
		p.ArchivedAt = &t
	}
	return p, nil
}
