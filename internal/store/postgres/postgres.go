package postgres

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Najinc/painperdu/internal/domain"
	"github.com/Najinc/painperdu/internal/guard"
	"github.com/Najinc/painperdu/internal/query"
	"github.com/Najinc/painperdu/internal/store"
	"github.com/Najinc/painperdu/internal/xid"
)

type Store struct {
	db *sql.DB
}

var _ store.Repository = (*Store)(nil)

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) beginSerializable(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

// ---- categories ----

const categoryColumns = `id, name, description, color, active, created_by, created_at, updated_at`

func scanCategory(row rowScanner) (domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.Active, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	c.CreatedAt, c.UpdatedAt = c.CreatedAt.UTC(), c.UpdatedAt.UTC()
	return c, err
}

func (s *Store) ListCategories(ctx context.Context, filter query.CategoryFilter) ([]domain.Category, error) {
	b := &query.Builder{}
	b.Bool("active", filter.Active).Search(filter.Search, "name", "description")

	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories`+b.Where()+` ORDER BY lower(name), id`, b.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 16)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, description, color, active, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, category.ID, category.Name, category.Description, category.Color, category.Active, category.CreatedBy, category.CreatedAt, category.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateName
		}
		return nil, err
	}
	return s.GetCategory(ctx, category.ID)
}

func (s *Store) UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE categories
		SET name = $2, description = $3, color = $4, active = $5, updated_at = $6
		WHERE id = $1
	`, category.ID, category.Name, category.Description, category.Color, category.Active, category.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateName
		}
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	return s.GetCategory(ctx, category.ID)
}

func (s *Store) DeactivateCategory(ctx context.Context, id string, at time.Time) error {
	tx, err := s.beginSerializable(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM categories WHERE id = $1 FOR UPDATE`, id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}

	var activeProducts int
	if err := tx.QueryRowContext(ctx, `
		SELECT count(*) FROM products WHERE category_id = $1 AND active = true
	`, id).Scan(&activeProducts); err != nil {
		return err
	}
	if activeProducts > 0 {
		return domain.ErrCategoryInUse
	}

	if _, err := tx.ExecContext(ctx, `UPDATE categories SET active = false, updated_at = $2 WHERE id = $1`, id, at); err != nil {
		return err
	}
	return tx.Commit()
}

// ---- products ----

const productSelect = `
	SELECT p.id, p.name, p.description, p.price_cents, p.unit, p.category_id, p.min_stock,
		p.active, p.created_by, p.created_at, p.updated_at, c.name, c.color
	FROM products p
	JOIN categories c ON c.id = p.category_id`

var productOrder = map[string]string{
	"name":      "lower(p.name)",
	"price":     "p.price_cents",
	"createdAt": "p.created_at",
	"updatedAt": "p.updated_at",
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var price int64
	var categoryName, categoryColor string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Unit, &p.CategoryID, &p.MinStock,
		&p.Active, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt, &categoryName, &categoryColor); err != nil {
		return domain.Product{}, err
	}
	p.Price = domain.Money(price)
	p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
	p.Category = &domain.CategorySummary{ID: p.CategoryID, Name: categoryName, Color: categoryColor}
	return p, nil
}

func productFilter(filter query.ProductFilter) *query.Builder {
	b := &query.Builder{}
	b.EqIf(filter.CategoryID != "", "p.category_id", filter.CategoryID).
		Bool("p.active", filter.Active).
		Search(filter.Search, "p.name", "p.description")
	return b
}

func (s *Store) ListProducts(ctx context.Context, filter query.ProductFilter) ([]domain.Product, int, error) {
	b := productFilter(filter)
	where := b.Where()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM products p`+where, b.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	stmt := productSelect + where + query.OrderBy(filter.Sort, productOrder, "lower(p.name)", "p.id") + b.Paging(filter.Page)
	rows, err := s.db.QueryContext(ctx, stmt, b.Args()...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 32)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, productSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, productSelect+` WHERE p.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (
			id, name, description, price_cents, unit, category_id, min_stock, active, created_by, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, product.ID, product.Name, product.Description, int64(product.Price), product.Unit, product.CategoryID,
		product.MinStock, product.Active, product.CreatedBy, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		return nil, productWriteError(err)
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, price_cents = $4, unit = $5, category_id = $6,
			min_stock = $7, active = $8, updated_at = $9
		WHERE id = $1
	`, product.ID, product.Name, product.Description, int64(product.Price), product.Unit, product.CategoryID,
		product.MinStock, product.Active, product.UpdatedAt)
	if err != nil {
		return nil, productWriteError(err)
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, product.ID)
}

func productWriteError(err error) error {
	switch {
	case isUniqueViolation(err):
		return domain.ErrDuplicateName
	case isForeignKeyViolation(err):
		return domain.ErrCategoryNotFound
	default:
		return err
	}
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrProductInUse
		}
		return err
	}
	return expectAffected(res)
}

// ---- inventories ----

const inventorySelect = `
	SELECT i.id, i.date, i.type, i.seller_id, i.notes, i.total_value_cents, i.confirmed, i.confirmed_at,
		i.created_at, i.updated_at, u.username, u.first_name, u.last_name
	FROM inventories i
	LEFT JOIN users u ON u.id = i.seller_id`

var inventoryOrder = map[string]string{
	"date":      "i.date",
	"createdAt": "i.created_at",
	"updatedAt": "i.updated_at",
}

func scanInventory(row rowScanner) (domain.Inventory, error) {
	var inv domain.Inventory
	var date time.Time
	var total int64
	var confirmedAt sql.NullTime
	var username, firstName, lastName sql.NullString
	if err := row.Scan(&inv.ID, &date, &inv.Type, &inv.SellerID, &inv.Notes, &total, &inv.Confirmed, &confirmedAt,
		&inv.CreatedAt, &inv.UpdatedAt, &username, &firstName, &lastName); err != nil {
		return domain.Inventory{}, err
	}
	inv.Date = domain.NewDate(date)
	inv.TotalValue = domain.Money(total)
	inv.CreatedAt, inv.UpdatedAt = inv.CreatedAt.UTC(), inv.UpdatedAt.UTC()
	if confirmedAt.Valid {
		at := confirmedAt.Time.UTC()
		inv.ConfirmedAt = &at
	}
	if username.Valid {
		inv.Seller = &domain.UserSummary{ID: inv.SellerID, Username: username.String, FirstName: firstName.String, LastName: lastName.String}
	}
	inv.Items = []domain.InventoryItem{}
	return inv, nil
}

// attachItems loads the item lines of every inventory in one query.
func attachItems(ctx context.Context, q queryer, inventories []domain.Inventory) error {
	if len(inventories) == 0 {
		return nil
	}
	ids := make([]string, 0, len(inventories))
	index := make(map[string]int, len(inventories))
	for i, inv := range inventories {
		ids = append(ids, inv.ID)
		index[inv.ID] = i
	}

	rows, err := q.QueryContext(ctx, `
		SELECT it.id, it.inventory_id, it.product_id, it.quantity, it.sold_quantity, it.notes,
			p.name, p.price_cents, p.unit, p.active
		FROM inventory_items it
		JOIN products p ON p.id = it.product_id
		WHERE it.inventory_id = ANY($1)
		ORDER BY it.inventory_id, it.position, it.id
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.InventoryItem
		var sold sql.NullInt64
		var summary domain.ProductSummary
		var price int64
		if err := rows.Scan(&item.ID, &item.InventoryID, &item.ProductID, &item.Quantity, &sold, &item.Notes,
			&summary.Name, &price, &summary.Unit, &summary.Active); err != nil {
			return err
		}
		if sold.Valid {
			v := int(sold.Int64)
			item.SoldQuantity = &v
		}
		summary.ID = item.ProductID
		summary.Price = domain.Money(price)
		item.Product = &summary

		i := index[item.InventoryID]
		inventories[i].Items = append(inventories[i].Items, item)
	}
	return rows.Err()
}

func (s *Store) loadInventory(ctx context.Context, q queryer, where string, args ...any) (*domain.Inventory, error) {
	inv, err := scanInventory(q.QueryRowContext(ctx, inventorySelect+where, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	list := []domain.Inventory{inv}
	if err := attachItems(ctx, q, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func inventoryFilter(filter query.InventoryFilter) *query.Builder {
	b := &query.Builder{}
	b.EqIf(filter.SellerID != "", "i.seller_id", filter.SellerID).
		EqIf(filter.Type != "", "i.type", filter.Type).
		Bool("i.confirmed", filter.Confirmed).
		Range("i.date", filter.Range)
	return b
}

func (s *Store) ListInventories(ctx context.Context, filter query.InventoryFilter) ([]domain.Inventory, int, error) {
	b := inventoryFilter(filter)
	where := b.Where()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM inventories i`+where, b.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	stmt := inventorySelect + where + query.OrderBy(filter.Sort, inventoryOrder, "i.date", "i.id") + b.Paging(filter.Page)
	rows, err := s.db.QueryContext(ctx, stmt, b.Args()...)
	if err != nil {
		return nil, 0, err
	}
	inventories := make([]domain.Inventory, 0, 32)
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			_ = rows.Close()
			return nil, 0, err
		}
		inventories = append(inventories, inv)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, 0, err
	}
	_ = rows.Close()

	if err := attachItems(ctx, s.db, inventories); err != nil {
		return nil, 0, err
	}
	return inventories, total, nil
}

func (s *Store) GetInventory(ctx context.Context, id string) (*domain.Inventory, error) {
	return s.loadInventory(ctx, s.db, ` WHERE i.id = $1`, id)
}

func (s *Store) FindInventory(ctx context.Context, sellerID string, day domain.Date, inventoryType string) (*domain.Inventory, error) {
	return s.loadInventory(ctx, s.db, ` WHERE i.seller_id = $1 AND i.date = $2 AND i.type = $3`, sellerID, day.Time, inventoryType)
}

func (s *Store) CreateInventory(ctx context.Context, inv domain.Inventory) (*domain.Inventory, error) {
	if inv.ID == "" {
		inv.ID = xid.New("inv")
	}

	tx, err := s.beginSerializable(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO inventories (
			id, date, type, seller_id, notes, total_value_cents, confirmed, confirmed_at, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, inv.ID, inv.Date.Time, inv.Type, inv.SellerID, inv.Notes, int64(inv.TotalValue), inv.Confirmed,
		nullTime(inv.ConfirmedAt), inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return nil, domain.ErrDuplicateInventory
		case isForeignKeyViolation(err):
			return nil, domain.ErrSellerNotFound
		}
		return nil, err
	}
	if err := insertItems(ctx, tx, inv.ID, inv.Items); err != nil {
		return nil, err
	}

	created, err := s.loadInventory(ctx, tx, ` WHERE i.id = $1`, inv.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

func insertItems(ctx context.Context, tx *sql.Tx, inventoryID string, items []domain.InventoryItem) error {
	for i, item := range items {
		if item.ID == "" {
			item.ID = xid.New("itm")
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO inventory_items (id, inventory_id, product_id, quantity, sold_quantity, notes, position)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, item.ID, inventoryID, item.ProductID, item.Quantity, nullInt(item.SoldQuantity), item.Notes, i)
		if err != nil {
			switch {
			case isUniqueViolation(err):
				return domain.ErrDuplicateProduct
			case isForeignKeyViolation(err):
				return domain.ErrInvalidOrInactiveProduct
			}
			return err
		}
	}
	return nil
}

// lockInventory takes the row lock and applies the confirmed lock policy.
func lockInventory(ctx context.Context, tx *sql.Tx, id string, lock store.LockPolicy) error {
	var current domain.Inventory
	err := tx.QueryRowContext(ctx, `SELECT confirmed FROM inventories WHERE id = $1 FOR UPDATE`, id).Scan(&current.Confirmed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}
	return current.CheckEditable(lock == store.OverrideLock)
}

func (s *Store) UpdateInventory(ctx context.Context, inv domain.Inventory, replaceItems bool, lock store.LockPolicy) (*domain.Inventory, error) {
	tx, err := s.beginSerializable(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockInventory(ctx, tx, inv.ID, lock); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE inventories
		SET date = $2, type = $3, notes = $4, total_value_cents = $5, updated_at = $6
		WHERE id = $1
	`, inv.ID, inv.Date.Time, inv.Type, inv.Notes, int64(inv.TotalValue), inv.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateInventory
		}
		return nil, err
	}

	if replaceItems {
		if _, err := tx.ExecContext(ctx, `DELETE FROM inventory_items WHERE inventory_id = $1`, inv.ID); err != nil {
			return nil, err
		}
		if err := insertItems(ctx, tx, inv.ID, inv.Items); err != nil {
			return nil, err
		}
	}

	updated, err := s.loadInventory(ctx, tx, ` WHERE i.id = $1`, inv.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteInventory(ctx context.Context, id string, lock store.LockPolicy) error {
	tx, err := s.beginSerializable(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockInventory(ctx, tx, id, lock); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM inventories WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) RecordSales(ctx context.Context, id string, sales []domain.SaleEntry, lock store.LockPolicy, at time.Time) (*domain.Inventory, error) {
	tx, err := s.beginSerializable(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockInventory(ctx, tx, id, lock); err != nil {
		return nil, err
	}

	type line struct {
		quantity int
		name     string
	}
	rows, err := tx.QueryContext(ctx, `
		SELECT it.product_id, it.quantity, p.name
		FROM inventory_items it
		JOIN products p ON p.id = it.product_id
		WHERE it.inventory_id = $1
		FOR UPDATE OF it
	`, id)
	if err != nil {
		return nil, err
	}
	lines := make(map[string]line, 16)
	for rows.Next() {
		var productID string
		var l line
		if err := rows.Scan(&productID, &l.quantity, &l.name); err != nil {
			_ = rows.Close()
			return nil, err
		}
		lines[productID] = l
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for _, sale := range sales {
		l, ok := lines[sale.ProductID]
		if !ok {
			continue
		}
		if sale.SoldQuantity > l.quantity {
			return nil, &domain.OversoldError{ProductID: sale.ProductID, ProductName: l.name, Sold: sale.SoldQuantity, Counted: l.quantity}
		}
	}
	for _, sale := range sales {
		if _, ok := lines[sale.ProductID]; !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE inventory_items SET sold_quantity = $3 WHERE inventory_id = $1 AND product_id = $2
		`, id, sale.ProductID, sale.SoldQuantity); err != nil {
			return nil, err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE inventories SET updated_at = $2 WHERE id = $1`, id, at); err != nil {
		return nil, err
	}

	updated, err := s.loadInventory(ctx, tx, ` WHERE i.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) ConfirmInventory(ctx context.Context, id string, at time.Time) (*domain.Inventory, error) {
	tx, err := s.beginSerializable(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var current domain.Inventory
	if err := tx.QueryRowContext(ctx, `SELECT confirmed FROM inventories WHERE id = $1 FOR UPDATE`, id).Scan(&current.Confirmed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if err := domain.Transition(current.State(), domain.StateConfirmed); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE inventories SET confirmed = true, confirmed_at = $2, updated_at = $2 WHERE id = $1
	`, id, at); err != nil {
		return nil, err
	}

	confirmed, err := s.loadInventory(ctx, tx, ` WHERE i.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return confirmed, nil
}

func (s *Store) LatestInventory(ctx context.Context, sellerID string, inventoryType string, confirmedOnly bool) (*domain.Inventory, error) {
	b := &query.Builder{}
	b.Eq("i.type", inventoryType).EqIf(sellerID != "", "i.seller_id", sellerID)
	if confirmedOnly {
		b.Cond("i.confirmed = true")
	}
	return s.loadInventory(ctx, s.db, b.Where()+` ORDER BY i.date DESC, i.updated_at DESC LIMIT 1`, b.Args()...)
}

func (s *Store) ProductMovements(ctx context.Context, r query.DateRange) ([]domain.ProductMovement, error) {
	b := &query.Builder{}
	b.Cond("i.confirmed = true").Range("i.date", r)

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, c.name, p.price_cents,
			COALESCE(SUM(CASE WHEN i.type = 'opening' THEN it.quantity END), 0),
			COALESCE(SUM(CASE WHEN i.type = 'closing' THEN it.quantity END), 0)
		FROM inventory_items it
		JOIN inventories i ON i.id = it.inventory_id
		JOIN products p ON p.id = it.product_id
		JOIN categories c ON c.id = p.category_id
	`+b.Where()+`
		GROUP BY p.id, p.name, c.name, p.price_cents
	`, b.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]domain.ProductMovement, 0, 32)
	for rows.Next() {
		var m domain.ProductMovement
		var price int64
		if err := rows.Scan(&m.ProductID, &m.ProductName, &m.CategoryName, &price, &m.Opening, &m.Closing); err != nil {
			return nil, err
		}
		m.Price = domain.Money(price)
		m.OpeningValue = m.Price.Times(m.Opening)
		m.ClosingValue = m.Price.Times(m.Closing)
		m.SoldQuantity = m.Opening - m.Closing
		m.SalesValue = m.OpeningValue - m.ClosingValue
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(movements, func(a, b domain.ProductMovement) int {
		if c := cmp.Compare(b.SalesValue, a.SalesValue); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductName, b.ProductName)
	})
	return movements, nil
}

// ---- schedules ----

const scheduleSelect = `
	SELECT s.id, s.seller_id, s.date, s.type, s.start_minutes, s.end_minutes, s.location, s.notes,
		s.active, s.created_at, s.updated_at, u.username, u.first_name, u.last_name
	FROM schedules s
	LEFT JOIN users u ON u.id = s.seller_id`

var scheduleOrder = map[string]string{
	"date":      "s.date",
	"startTime": "s.start_minutes",
	"endTime":   "s.end_minutes",
	"createdAt": "s.created_at",
	"updatedAt": "s.updated_at",
}

func scanSchedule(row rowScanner) (domain.Schedule, error) {
	var sc domain.Schedule
	var date time.Time
	var start, end sql.NullInt64
	var username, firstName, lastName sql.NullString
	if err := row.Scan(&sc.ID, &sc.SellerID, &date, &sc.Type, &start, &end, &sc.Location, &sc.Notes,
		&sc.Active, &sc.CreatedAt, &sc.UpdatedAt, &username, &firstName, &lastName); err != nil {
		return domain.Schedule{}, err
	}
	sc.Date = domain.NewDate(date)
	sc.StartTime = clockOrNil(start)
	sc.EndTime = clockOrNil(end)
	sc.CreatedAt, sc.UpdatedAt = sc.CreatedAt.UTC(), sc.UpdatedAt.UTC()
	if username.Valid {
		sc.Seller = &domain.UserSummary{ID: sc.SellerID, Username: username.String, FirstName: firstName.String, LastName: lastName.String}
	}
	return sc, nil
}

func (s *Store) ListSchedules(ctx context.Context, filter query.ScheduleFilter) ([]domain.Schedule, int, error) {
	b := &query.Builder{}
	b.EqIf(filter.SellerID != "", "s.seller_id", filter.SellerID).
		EqIf(filter.Type != "", "s.type", filter.Type).
		Bool("s.active", filter.Active).
		Range("s.date", filter.Range)
	where := b.Where()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM schedules s`+where, b.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := query.OrderBy(filter.Sort, scheduleOrder, "s.date", "s.id")
	if filter.Sort.Field == "" || filter.Sort.Field == "date" {
		order = strings.Replace(order, ", s.id", ", COALESCE(s.start_minutes, 0), s.id", 1)
	}
	rows, err := s.db.QueryContext(ctx, scheduleSelect+where+order+b.Paging(filter.Page), b.Args()...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	schedules := make([]domain.Schedule, 0, 32)
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, 0, err
		}
		schedules = append(schedules, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return schedules, total, nil
}

func (s *Store) GetSchedule(ctx context.Context, id string) (*domain.Schedule, error) {
	sc, err := scanSchedule(s.db.QueryRowContext(ctx, scheduleSelect+` WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &sc, nil
}

// checkScheduleConflict re-reads the seller's entries for the day inside
// the transaction and applies the overlap rules.
func checkScheduleConflict(ctx context.Context, tx *sql.Tx, candidate domain.Schedule) error {
	rows, err := tx.QueryContext(ctx, scheduleSelect+`
		WHERE s.seller_id = $1 AND s.date = $2 AND s.active = true
		FOR UPDATE OF s
	`, candidate.SellerID, candidate.Date.Time)
	if err != nil {
		return err
	}
	defer rows.Close()

	existing := make([]domain.Schedule, 0, 4)
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return err
		}
		existing = append(existing, sc)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if _, conflict := guard.FindScheduleConflict(existing, candidate); conflict {
		return domain.ErrScheduleConflict
	}
	return nil
}

func (s *Store) CreateSchedule(ctx context.Context, schedule domain.Schedule) (*domain.Schedule, error) {
	if schedule.ID == "" {
		schedule.ID = xid.New("sch")
	}

	tx, err := s.beginSerializable(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := checkScheduleConflict(ctx, tx, schedule); err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO schedules (
			id, seller_id, date, type, start_minutes, end_minutes, location, notes, active, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, schedule.ID, schedule.SellerID, schedule.Date.Time, schedule.Type, nullClock(schedule.StartTime), nullClock(schedule.EndTime),
		schedule.Location, schedule.Notes, schedule.Active, schedule.CreatedAt, schedule.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.ErrSellerNotFound
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetSchedule(ctx, schedule.ID)
}

func (s *Store) UpdateSchedule(ctx context.Context, schedule domain.Schedule) (*domain.Schedule, error) {
	tx, err := s.beginSerializable(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := checkScheduleConflict(ctx, tx, schedule); err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE schedules
		SET date = $2, type = $3, start_minutes = $4, end_minutes = $5, location = $6, notes = $7,
			active = $8, updated_at = $9
		WHERE id = $1
	`, schedule.ID, schedule.Date.Time, schedule.Type, nullClock(schedule.StartTime), nullClock(schedule.EndTime),
		schedule.Location, schedule.Notes, schedule.Active, schedule.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetSchedule(ctx, schedule.ID)
}

func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// ---- users ----

const userColumns = `id, username, email, password_hash, role, first_name, last_name, active, last_login_at, created_at, updated_at`

var userOrder = map[string]string{
	"username":  "lower(username)",
	"lastName":  "lower(last_name)",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.FirstName, &u.LastName,
		&u.Active, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return domain.User{}, err
	}
	if lastLogin.Valid {
		at := lastLogin.Time.UTC()
		u.LastLoginAt = &at
	}
	u.CreatedAt, u.UpdatedAt = u.CreatedAt.UTC(), u.UpdatedAt.UTC()
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context, filter query.UserFilter) ([]domain.User, int, error) {
	b := &query.Builder{}
	b.EqIf(filter.Role != "", "role", filter.Role).
		Bool("active", filter.Active).
		Search(filter.Search, "username", "email", "first_name", "last_name")
	where := b.Where()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM users`+where, b.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	stmt := `SELECT ` + userColumns + ` FROM users` + where + query.OrderBy(filter.Sort, userOrder, "lower(username)", "id") + b.Paging(filter.Page)
	rows, err := s.db.QueryContext(ctx, stmt, b.Args()...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]domain.User, 0, 16)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.getUser(ctx, `id = $1`, id)
}

func (s *Store) GetUserByLogin(ctx context.Context, login string) (*domain.User, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, store.ErrNotFound
	}
	return s.getUser(ctx, `lower(username) = lower($1) OR lower(email) = lower($1) LIMIT 1`, login)
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (
			id, username, email, password_hash, role, first_name, last_name, active, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, user.ID, user.Username, user.Email, user.PasswordHash, user.Role, user.FirstName, user.LastName,
		user.Active, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateUser
		}
		return nil, err
	}
	return s.GetUser(ctx, user.ID)
}

func (s *Store) UpdateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET username = $2, email = $3, password_hash = $4, role = $5, first_name = $6, last_name = $7,
			active = $8, updated_at = $9
		WHERE id = $1
	`, user.ID, user.Username, user.Email, user.PasswordHash, user.Role, user.FirstName, user.LastName,
		user.Active, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateUser
		}
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, user.ID)
}

func (s *Store) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrUserInUse
		}
		return err
	}
	return expectAffected(res)
}

// ---- audit ----

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, actor_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.ActorID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1
			AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

// ---- helpers ----

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
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

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullInt(val *int) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullClock(val *domain.ClockTime) any {
	if val == nil {
		return nil
	}
	return int(*val)
}

func clockOrNil(v sql.NullInt64) *domain.ClockTime {
	if !v.Valid {
		return nil
	}
	c := domain.ClockTime(v.Int64)
	return &c
}
