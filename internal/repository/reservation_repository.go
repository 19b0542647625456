// Package repository is the persistence collaborator for reservations,
// backed by SQLite.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/shinmj/reservecheck/internal/domain"
	"github.com/shinmj/reservecheck/internal/pkg/errors"
)

// Filter narrows a reservation search.
type Filter struct {
	ItemID     int64
	CategoryID string
	Status     domain.Status
	Keyword    string // matched against the purpose text
}

// Page is a zero-based page request.
type Page struct {
	Number int
	Size   int
}

func (p Page) limitOffset() (int, int) {
	size := p.Size
	if size <= 0 {
		size = 20
	}
	number := p.Number
	if number < 0 {
		number = 0
	}
	return size, number * size
}

// SQLiteRepository stores reservations in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (and if needed initializes) the reservation
// database at the given path.
func NewSQLiteRepository(dbPath string, maxConns int) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns / 2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.initSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reserve (
		reserve_id TEXT PRIMARY KEY,
		reserve_item_id INTEGER NOT NULL,
		location_id INTEGER,
		category_id TEXT,
		reserve_qty INTEGER NOT NULL DEFAULT 0,
		reserve_purpose_content TEXT,
		attachment_code TEXT,
		reserve_start_date DATETIME,
		reserve_end_date DATETIME,
		reserve_status_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		user_contact_no TEXT,
		user_email_addr TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reserve_item ON reserve(reserve_item_id);
	CREATE INDEX IF NOT EXISTS idx_reserve_user ON reserve(user_id);
	CREATE INDEX IF NOT EXISTS idx_reserve_status ON reserve(reserve_status_id);
	CREATE INDEX IF NOT EXISTS idx_reserve_window
		ON reserve(reserve_item_id, reserve_start_date, reserve_end_date);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

const reserveColumns = `reserve_id, reserve_item_id, location_id, category_id,
	reserve_qty, reserve_purpose_content, attachment_code,
	reserve_start_date, reserve_end_date, reserve_status_id,
	user_id, user_contact_no, user_email_addr, created_at, updated_at`

// Insert persists a new reservation.
func (r *SQLiteRepository) Insert(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reserve (`+reserveColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		res.ID, res.ItemID, res.LocationID, res.CategoryID,
		res.Quantity, res.Purpose, res.AttachmentCode,
		res.StartDate, res.EndDate, string(res.Status),
		res.UserID, res.UserContactNo, res.UserEmail,
		res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert reservation: %w", err)
	}
	return res, nil
}

// Save updates an existing reservation.
func (r *SQLiteRepository) Save(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE reserve SET
			reserve_item_id = ?, location_id = ?, category_id = ?,
			reserve_qty = ?, reserve_purpose_content = ?, attachment_code = ?,
			reserve_start_date = ?, reserve_end_date = ?, reserve_status_id = ?,
			user_id = ?, user_contact_no = ?, user_email_addr = ?, updated_at = ?
		WHERE reserve_id = ?
	`,
		res.ItemID, res.LocationID, res.CategoryID,
		res.Quantity, res.Purpose, res.AttachmentCode,
		res.StartDate, res.EndDate, string(res.Status),
		res.UserID, res.UserContactNo, res.UserEmail, res.UpdatedAt,
		res.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save reservation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, errors.NotFound(res.ID)
	}
	return res, nil
}

// FindByID returns the reservation or a not-found error.
func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (*domain.Reservation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+reserveColumns+` FROM reserve WHERE reserve_id = ?
	`, id)

	res, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	return res, nil
}

// Search returns a page of reservations matching the filter plus the
// total match count.
func (r *SQLiteRepository) Search(ctx context.Context, filter Filter, page Page) ([]*domain.Reservation, int, error) {
	return r.search(ctx, filter, page, "")
}

// SearchForUser is Search limited to reservations owned by the user.
func (r *SQLiteRepository) SearchForUser(ctx context.Context, filter Filter, page Page, userID string) ([]*domain.Reservation, int, error) {
	return r.search(ctx, filter, page, userID)
}

func (r *SQLiteRepository) search(ctx context.Context, filter Filter, page Page, userID string) ([]*domain.Reservation, int, error) {
	var conds []string
	var args []interface{}

	if filter.ItemID > 0 {
		conds = append(conds, "reserve_item_id = ?")
		args = append(args, filter.ItemID)
	}
	if filter.CategoryID != "" {
		conds = append(conds, "category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.Status != "" {
		conds = append(conds, "reserve_status_id = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Keyword != "" {
		conds = append(conds, "reserve_purpose_content LIKE ?")
		args = append(args, "%"+filter.Keyword+"%")
	}
	if userID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, userID)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reserve"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	limit, offset := page.limitOffset()
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+reserveColumns+" FROM reserve"+where+" ORDER BY created_at DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search reservations: %w", err)
	}
	defer rows.Close()

	items, err := scanReservations(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// FindAllInWindow returns reservations of an item whose period
// intersects [start, end]. Used by the catalog service to compute live
// availability.
func (r *SQLiteRepository) FindAllInWindow(ctx context.Context, itemID int64, start, end time.Time) ([]*domain.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reserveColumns+` FROM reserve
		WHERE reserve_item_id = ?
		  AND reserve_start_date <= ?
		  AND reserve_end_date >= ?
		ORDER BY reserve_start_date ASC
	`, itemID, end, start)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations in window: %w", err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

// LoadRelations re-reads the reservation row so callers assemble the
// response from committed state. The item snapshot is attached by the
// service through the catalog gateway.
func (r *SQLiteRepository) LoadRelations(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	return r.FindByID(ctx, res.ID)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	var res domain.Reservation
	var status string
	var locationID sql.NullInt64
	var category, purpose, attachment, contact, email sql.NullString
	var start, end sql.NullTime

	err := row.Scan(
		&res.ID, &res.ItemID, &locationID, &category,
		&res.Quantity, &purpose, &attachment,
		&start, &end, &status,
		&res.UserID, &contact, &email,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	res.LocationID = locationID.Int64
	res.CategoryID = category.String
	res.Purpose = purpose.String
	res.AttachmentCode = attachment.String
	res.UserContactNo = contact.String
	res.UserEmail = email.String
	res.StartDate = start.Time
	res.EndDate = end.Time
	res.Status = domain.Status(status)
	return &res, nil
}

func scanReservations(rows *sql.Rows) ([]*domain.Reservation, error) {
	var items []*domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		items = append(items, res)
	}
	return items, rows.Err()
}
