package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/jewelbill/internal/bill/calc"
	"github.com/smallbiznis/jewelbill/internal/bill/domain"
	"github.com/smallbiznis/jewelbill/pkg/db"
	"github.com/smallbiznis/jewelbill/pkg/db/option"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Insert re-verifies the bill before writing it together with its lines.
func (r *repo) Insert(ctx context.Context, conn *gorm.DB, bill *domain.Bill) error {
	if err := calc.Verify(bill); err != nil {
		return err
	}
	for i := range bill.Items {
		bill.Items[i].BillID = bill.ID
		bill.Items[i].Position = i + 1
	}

	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(bill).Error; err != nil {
			return err
		}
		return tx.Create(&bill.Items).Error
	})
	if db.IsDuplicateKeyErr(err) {
		return fmt.Errorf("%s: %w", bill.BillNumber, domain.ErrDuplicateNumber)
	}
	return err
}

// NextSequence advances the day's counter and returns the new value. The first
// bill of a day seeds the counter from the bills already stored for that day.
// Callers must run it inside the transaction that inserts the bill.
func (r *repo) NextSequence(ctx context.Context, conn *gorm.DB, billDate string, now time.Time) (int64, error) {
	tx := conn.WithContext(ctx)

	var existing int64
	if err := tx.Model(&domain.Bill{}).Where("bill_date = ?", billDate).Count(&existing).Error; err != nil {
		return 0, err
	}

	seq := domain.BillSequence{BillDate: billDate, LastSeq: existing + 1, UpdatedAt: now}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "bill_date"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_seq":   gorm.Expr("bill_sequences.last_seq + 1"),
			"updated_at": now,
		}),
	}).Create(&seq).Error
	if err != nil {
		return 0, err
	}

	var current domain.BillSequence
	if err := tx.Where("bill_date = ?", billDate).Take(&current).Error; err != nil {
		return 0, err
	}
	return current.LastSeq, nil
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Bill, error) {
	return r.findOne(ctx, conn, "id = ?", id)
}

func (r *repo) FindByNumber(ctx context.Context, conn *gorm.DB, number string) (*domain.Bill, error) {
	return r.findOne(ctx, conn, "bill_number = ?", strings.TrimSpace(number))
}

func (r *repo) findOne(ctx context.Context, conn *gorm.DB, query string, args ...any) (*domain.Bill, error) {
	var bill domain.Bill
	err := withItems(conn.WithContext(ctx)).Where(query, args...).Take(&bill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

// List returns bills newest first. Limit is applied as given; callers ask for
// one extra row to detect a following page.
func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListFilter) ([]domain.Bill, error) {
	stmt := withItems(conn.WithContext(ctx)).Model(&domain.Bill{})

	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		stmt = stmt.Where("LOWER(customer_name) LIKE ?", "%"+search+"%")
	}
	if filter.CreatedFrom != nil {
		stmt = stmt.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		stmt = stmt.Where("created_at <= ?", *filter.CreatedTo)
	}
	if filter.AfterID != nil && filter.AfterCreatedAt != nil {
		stmt = stmt.Where("(created_at < ? OR (created_at = ? AND id < ?))",
			*filter.AfterCreatedAt, *filter.AfterCreatedAt, *filter.AfterID)
	}

	for _, opt := range []option.QueryOption{
		option.WithSortBy(option.SortBy{Column: "created_at", Desc: true}),
		option.WithSortBy(option.SortBy{Column: "id", Desc: true}),
		option.WithLimit(filter.Limit),
	} {
		stmt = opt.Apply(stmt)
	}

	var bills []domain.Bill
	if err := stmt.Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}

func withItems(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}
