package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) Create(product domain.Product) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (description, price_minor, barcode, section, stock, expiry_date)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`,
		product.Description, product.PriceMinor, product.Barcode,
		product.Section, product.Stock, product.ExpiryDate,
	).Scan(&product.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Product{}, domain.ErrBarcodeTaken
		}
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}

	product.Images = make([]domain.ProductImage, 0)
	return product, nil
}

func (r *productRepository) Get(id int64) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	product, err := r.scanOne(ctx, `
		SELECT id, description, price_minor, barcode, section, stock, expiry_date
		FROM products
		WHERE id = $1
	`, id)
	if err != nil {
		return domain.Product{}, err
	}

	images, err := r.loadImages(ctx, product.ID)
	if err != nil {
		return domain.Product{}, err
	}
	product.Images = images

	return product, nil
}

func (r *productRepository) GetByBarcode(barcode string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	product, err := r.scanOne(ctx, `
		SELECT id, description, price_minor, barcode, section, stock, expiry_date
		FROM products
		WHERE barcode = $1
	`, barcode)
	if err != nil {
		return domain.Product{}, err
	}

	images, err := r.loadImages(ctx, product.ID)
	if err != nil {
		return domain.Product{}, err
	}
	product.Images = images

	return product, nil
}

func (r *productRepository) List(filter domain.ProductFilter) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		conditions []string
		args       []any
	)
	if filter.Section != "" {
		args = append(args, filter.Section)
		conditions = append(conditions, fmt.Sprintf("LOWER(section) = LOWER($%d)", len(args)))
	}
	if filter.OnlyAvailable {
		conditions = append(conditions, "stock > 0")
	}

	query := `
		SELECT id, description, price_minor, barcode, section, stock, expiry_date
		FROM products
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	if filter.Limit > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, (page-1)*filter.Limit)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var (
			product domain.Product
			expiry  sql.NullTime
		)
		if err := rows.Scan(
			&product.ID, &product.Description, &product.PriceMinor,
			&product.Barcode, &product.Section, &product.Stock, &expiry,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		if expiry.Valid {
			date := expiry.Time
			product.ExpiryDate = &date
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	for i := range products {
		images, err := r.loadImages(ctx, products[i].ID)
		if err != nil {
			return nil, err
		}
		products[i].Images = images
	}

	return products, nil
}

// Update перезаписывает поля товара, кроме остатка: его меняет только AdjustStock.
func (r *productRepository) Update(product domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET description = $1,
		    price_minor = $2,
		    barcode = $3,
		    section = $4,
		    expiry_date = $5
		WHERE id = $6
	`,
		product.Description, product.PriceMinor, product.Barcode,
		product.Section, product.ExpiryDate, product.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrBarcodeTaken
		}
		return fmt.Errorf("update product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) Delete(id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// AdjustStock применяет набор дельт в одной транзакции. Условное обновление
// stock + delta >= 0 закрывает гонку check-then-act между конкурентными
// списаниями: недостаточный остаток откатывает весь набор.
func (r *productRepository) AdjustStock(deltas map[int64]int32) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = adjustStockTx(ctx, tx, deltas); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit adjust stock: %w", err)
	}
	return nil
}

func (r *productRepository) AddImage(image domain.ProductImage) (domain.ProductImage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO product_images (product_id, path, position)
		VALUES ($1,$2,$3)
		RETURNING id
	`, image.ProductID, image.Path, image.Position).Scan(&image.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ProductImage{}, domain.ErrProductNotFound
		}
		return domain.ProductImage{}, fmt.Errorf("insert product image: %w", err)
	}

	return image, nil
}

func (r *productRepository) DeleteImage(imageID int64) (domain.ProductImage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	image := domain.ProductImage{ID: imageID}
	err := r.db.QueryRowContext(ctx, `
		DELETE FROM product_images
		WHERE id = $1
		RETURNING product_id, path, position
	`, imageID).Scan(&image.ProductID, &image.Path, &image.Position)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProductImage{}, domain.ErrImageNotFound
		}
		return domain.ProductImage{}, fmt.Errorf("delete product image: %w", err)
	}

	return image, nil
}

func (r *productRepository) scanOne(ctx context.Context, query string, arg any) (domain.Product, error) {
	var (
		product domain.Product
		expiry  sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&product.ID, &product.Description, &product.PriceMinor,
		&product.Barcode, &product.Section, &product.Stock, &expiry,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	if expiry.Valid {
		date := expiry.Time
		product.ExpiryDate = &date
	}
	return product, nil
}

func (r *productRepository) loadImages(ctx context.Context, productID int64) ([]domain.ProductImage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, path, position
		FROM product_images
		WHERE product_id = $1
		ORDER BY position, id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("load product images: %w", err)
	}
	defer rows.Close()

	images := make([]domain.ProductImage, 0)
	for rows.Next() {
		var image domain.ProductImage
		if err := rows.Scan(&image.ID, &image.ProductID, &image.Path, &image.Position); err != nil {
			return nil, fmt.Errorf("scan product image: %w", err)
		}
		images = append(images, image)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product images: %w", err)
	}

	return images, nil
}

// adjustStockTx выполняет условные обновления остатков внутри переданной
// транзакции. Товары обрабатываются в порядке возрастания ID, чтобы
// конкурентные наборы не взаимоблокировались.
func adjustStockTx(ctx context.Context, tx *sql.Tx, deltas map[int64]int32) error {
	for _, productID := range sortedProductIDs(deltas) {
		delta := deltas[productID]
		if delta == 0 {
			continue
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock + $1
			WHERE id = $2
			  AND stock + $1 >= 0
		`, delta, productID)
		if err != nil {
			return fmt.Errorf("adjust stock for product %d: %w", productID, err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			var available int32
			err := tx.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&available)
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrProductNotFound
			}
			if err != nil {
				return fmt.Errorf("check product stock: %w", err)
			}
			return &domain.InsufficientStockError{
				ProductID: productID,
				Requested: -delta,
				Available: available,
			}
		}
	}

	return nil
}

func sortedProductIDs(deltas map[int64]int32) []int64 {
	ids := make([]int64, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

var _ domain.ProductRepository = (*productRepository)(nil)
