package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/crucial707/cashcard/internal/models"
	"github.com/crucial707/cashcard/internal/paging"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no cash card matches the id (and owner, where scoped).
var ErrNotFound = errors.New("cash card not found")

// SortFields are the cash card fields ListByOwner can order by.
var SortFields = []string{"id", "amount", "owner"}

var sortColumns = map[string]string{
	"id":     "id",
	"amount": "amount",
	"owner":  "owner",
}

// ========================
// REPOSITORY STRUCT
// ========================

type CashCardRepo struct {
	DB *sqlx.DB
}

func NewCashCardRepo(db *sqlx.DB) *CashCardRepo {
	return &CashCardRepo{DB: db}
}

// ========================
// CREATE
// ========================

// Create inserts a card for owner and returns it with the id assigned by the database.
func (r *CashCardRepo) Create(ctx context.Context, owner string, amount decimal.Decimal) (models.CashCard, error) {
	card := models.CashCard{Amount: amount, Owner: owner}
	err := r.DB.QueryRowxContext(ctx,
		`INSERT INTO cash_card (amount, owner) VALUES ($1, $2) RETURNING id`,
		amount, owner,
	).Scan(&card.ID)
	if err != nil {
		return models.CashCard{}, fmt.Errorf("insert cash card: %w", err)
	}
	return card, nil
}

// ========================
// GET
// ========================

func (r *CashCardRepo) GetByID(ctx context.Context, id int64) (models.CashCard, error) {
	var card models.CashCard
	err := r.DB.GetContext(ctx, &card,
		`SELECT id, amount, owner FROM cash_card WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CashCard{}, ErrNotFound
	}
	if err != nil {
		return models.CashCard{}, fmt.Errorf("get cash card %d: %w", id, err)
	}
	return card, nil
}

// GetByIDAndOwner returns ErrNotFound both for unknown ids and for cards owned by someone else.
func (r *CashCardRepo) GetByIDAndOwner(ctx context.Context, id int64, owner string) (models.CashCard, error) {
	var card models.CashCard
	err := r.DB.GetContext(ctx, &card,
		`SELECT id, amount, owner FROM cash_card WHERE id = $1 AND owner = $2`, id, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CashCard{}, ErrNotFound
	}
	if err != nil {
		return models.CashCard{}, fmt.Errorf("get cash card %d: %w", id, err)
	}
	return card, nil
}

// ========================
// LIST BY OWNER
// ========================

// ListByOwner returns one page of owner's cards. The order always ends on id so
// pages are stable across calls.
func (r *CashCardRepo) ListByOwner(ctx context.Context, owner string, page paging.PageRequest) ([]models.CashCard, error) {
	orderBy, err := orderClause(page)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, amount, owner FROM cash_card WHERE owner = $1 ORDER BY ` + orderBy + ` LIMIT $2 OFFSET $3`
	cards := []models.CashCard{}
	if err := r.DB.SelectContext(ctx, &cards, query, owner, page.Size, page.Offset()); err != nil {
		return nil, fmt.Errorf("list cash cards: %w", err)
	}
	return cards, nil
}

func (r *CashCardRepo) CountByOwner(ctx context.Context, owner string) (int64, error) {
	var n int64
	if err := r.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM cash_card WHERE owner = $1`, owner); err != nil {
		return 0, fmt.Errorf("count cash cards: %w", err)
	}
	return n, nil
}

func orderClause(page paging.PageRequest) (string, error) {
	parts := make([]string, 0, len(page.Sort)+1)
	for _, o := range page.Sort {
		col, ok := sortColumns[o.Field]
		if !ok {
			return "", fmt.Errorf("%w: unknown field %q", paging.ErrInvalidSort, o.Field)
		}
		dir := "ASC"
		if o.Direction == paging.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	if !page.Sorted("id") {
		parts = append(parts, "id ASC")
	}
	return strings.Join(parts, ", "), nil
}

// ========================
// UPDATE / DELETE
// ========================

// UpdateAmount replaces the amount of owner's card. Nothing is inserted when the card is missing.
func (r *CashCardRepo) UpdateAmount(ctx context.Context, id int64, owner string, amount decimal.Decimal) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE cash_card SET amount = $1 WHERE id = $2 AND owner = $3`,
		amount, id, owner,
	)
	if err != nil {
		return fmt.Errorf("update cash card %d: %w", id, err)
	}
	return requireOneRow(res)
}

func (r *CashCardRepo) Delete(ctx context.Context, id int64, owner string) error {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM cash_card WHERE id = $1 AND owner = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("delete cash card %d: %w", id, err)
	}
	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
