package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/domain"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/ports"
	"github.com/TrulyGourav/OrchexPay/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const walletColumns = `id, merchant_id, wallet_type, vendor_user_id, currency, status, created_at, updated_at`

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet within a database transaction.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, merchant_id, wallet_type, vendor_user_id, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.MerchantID, w.WalletType, w.VendorUserID,
		w.Currency, w.Status, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert wallet: %w", ports.ErrDuplicateKey)
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID fetches a wallet by UUID.
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := fmt.Sprintf(`SELECT %s FROM wallets WHERE id = $1`, walletColumns)
	return scanWallet(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a wallet by UUID with a row lock.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	query := fmt.Sprintf(`SELECT %s FROM wallets WHERE id = $1 FOR UPDATE`, walletColumns)
	return scanWallet(tx.QueryRow(ctx, query, id))
}

// GetByTypeKey resolves a wallet by its identity key.
func (r *WalletRepo) GetByTypeKey(ctx context.Context, merchantID uuid.UUID, currency money.Currency, walletType domain.WalletType, vendorUserID *uuid.UUID) (*domain.Wallet, error) {
	query := fmt.Sprintf(`SELECT %s FROM wallets
		WHERE merchant_id = $1 AND currency = $2 AND wallet_type = $3
		AND vendor_user_id IS NOT DISTINCT FROM $4`, walletColumns)
	return scanWallet(r.pool.QueryRow(ctx, query, merchantID, currency, walletType, vendorUserID))
}

// ListByMerchant fetches all wallets owned by a merchant.
func (r *WalletRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]domain.Wallet, error) {
	query := fmt.Sprintf(`SELECT %s FROM wallets WHERE merchant_id = $1 ORDER BY created_at`, walletColumns)

	rows, err := r.pool.Query(ctx, query, merchantID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		var w domain.Wallet
		if err := scanWalletInto(rows, &w); err != nil {
			return nil, fmt.Errorf("scan wallet row: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet rows: %w", err)
	}
	return wallets, nil
}

// UpdateStatus updates a wallet's lifecycle status.
func (r *WalletRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.WalletStatus) error {
	query := `UPDATE wallets SET status = $1, updated_at = $2 WHERE id = $3`

	tag, err := r.pool.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update wallet status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", id)
	}
	return nil
}

// Count returns the total number of wallets.
func (r *WalletRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM wallets`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count wallets: %w", err)
	}
	return count, nil
}

// scanWallet is a helper to scan a single row into a Wallet.
func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.MerchantID, &w.WalletType, &w.VendorUserID,
		&w.Currency, &w.Status, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return w, nil
}

func scanWalletInto(row pgx.Row, w *domain.Wallet) error {
	return row.Scan(
		&w.ID, &w.MerchantID, &w.WalletType, &w.VendorUserID,
		&w.Currency, &w.Status, &w.CreatedAt, &w.UpdatedAt,
	)
}
