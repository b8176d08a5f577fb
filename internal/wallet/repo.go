package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/pagination"
)

// Repository persists wallets and their ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	CreateIfMissing(ctx context.Context, wallet *models.Wallet) error
	LockByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Debit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, at time.Time) (bool, error)
	Credit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, at time.Time) error
	InsertTransaction(ctx context.Context, txn *models.WalletTransaction) error
	ListTransactions(ctx context.Context, walletID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.WalletTransaction, *pagination.Cursor, error)
	UpdateSettings(ctx context.Context, walletID uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// CreateIfMissing inserts the wallet unless the user already has one.
func (r *repository) CreateIfMissing(ctx context.Context, wallet *models.Wallet) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(wallet).Error
}

func (r *repository) LockByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Debit subtracts amount only while the balance covers it. It reports false
// when no row qualified.
func (r *repository) Debit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ? AND balance >= ?", walletID, amount).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Credit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": at,
		}).Error
}

func (r *repository) InsertTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

// ListTransactions pages newest first. The returned cursor is nil on the last page.
func (r *repository) ListTransactions(ctx context.Context, walletID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.WalletTransaction, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.WalletTransaction{}).Where("wallet_id = ?", walletID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.WalletTransaction
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, limit, func(txn models.WalletTransaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: txn.CreatedAt, ID: txn.ID}
	})
	return page, next, nil
}

func (r *repository) UpdateSettings(ctx context.Context, walletID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Updates(updates).Error
}
