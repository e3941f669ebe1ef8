package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/TrulyGourav/OrchexPay/internal/payout/domain"
	"github.com/TrulyGourav/OrchexPay/internal/payout/ports"
	"github.com/TrulyGourav/OrchexPay/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const payoutColumns = `id, merchant_id, vendor_id, vendor_wallet_id, amount::text, currency, status, ledger_entry_id, idempotency_key, created_at, updated_at`

// PayoutRepo implements ports.PayoutRepository. Amounts live in NUMERIC(19,4)
// columns and cross the wire as text, so no float ever touches them.
type PayoutRepo struct {
	pool Pool
}

// NewPayoutRepo creates a new PayoutRepo.
func NewPayoutRepo(pool Pool) *PayoutRepo {
	return &PayoutRepo{pool: pool}
}

// Create inserts a new payout. A unique violation on idempotency_key is
// reported as ports.ErrDuplicateKey.
func (r *PayoutRepo) Create(ctx context.Context, p *domain.Payout) error {
	query := `INSERT INTO payouts (id, merchant_id, vendor_id, vendor_wallet_id, amount, currency,
		status, ledger_entry_id, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.MerchantID, p.VendorID, p.VendorWalletID,
		p.Amount.StringAmount(), p.Amount.Currency(),
		p.Status, p.LedgerEntryID, p.IdempotencyKey, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert payout: %w", ports.ErrDuplicateKey)
		}
		return fmt.Errorf("insert payout: %w", err)
	}
	return nil
}

// GetByID fetches a payout by UUID.
func (r *PayoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payout, error) {
	query := fmt.Sprintf(`SELECT %s FROM payouts WHERE id = $1`, payoutColumns)
	return scanPayout(r.pool.QueryRow(ctx, query, id))
}

// GetByIdempotencyKey fetches the payout holding the idempotency key.
func (r *PayoutRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payout, error) {
	query := fmt.Sprintf(`SELECT %s FROM payouts WHERE idempotency_key = $1`, payoutColumns)
	return scanPayout(r.pool.QueryRow(ctx, query, key))
}

// Update persists the payout's status, ledger entry id and updated_at.
func (r *PayoutRepo) Update(ctx context.Context, p *domain.Payout) error {
	query := `UPDATE payouts SET status = $1, ledger_entry_id = $2, updated_at = $3 WHERE id = $4`

	tag, err := r.pool.Exec(ctx, query, p.Status, p.LedgerEntryID, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("update payout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payout not found: %s", p.ID)
	}
	return nil
}

// ListByMerchant fetches a merchant's payouts, newest first.
func (r *PayoutRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]domain.Payout, error) {
	query := fmt.Sprintf(`SELECT %s FROM payouts WHERE merchant_id = $1 ORDER BY created_at DESC`, payoutColumns)
	return r.list(ctx, query, merchantID)
}

// ListByVendor fetches a vendor's payouts, newest first.
func (r *PayoutRepo) ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]domain.Payout, error) {
	query := fmt.Sprintf(`SELECT %s FROM payouts WHERE vendor_id = $1 ORDER BY created_at DESC`, payoutColumns)
	return r.list(ctx, query, vendorID)
}

func (r *PayoutRepo) list(ctx context.Context, query string, arg any) ([]domain.Payout, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	defer rows.Close()

	var payouts []domain.Payout
	for rows.Next() {
		p, err := scanPayoutRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payout row: %w", err)
		}
		payouts = append(payouts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payout rows: %w", err)
	}
	return payouts, nil
}

func scanPayout(row pgx.Row) (*domain.Payout, error) {
	p, err := scanPayoutRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payout: %w", err)
	}
	return p, nil
}

func scanPayoutRow(row pgx.Row) (*domain.Payout, error) {
	p := &domain.Payout{}
	var amountStr, currencyStr string
	err := row.Scan(
		&p.ID, &p.MerchantID, &p.VendorID, &p.VendorWalletID,
		&amountStr, &currencyStr, &p.Status, &p.LedgerEntryID,
		&p.IdempotencyKey, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	amount, err := money.Parse(amountStr, currencyStr)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q %q: %w", amountStr, currencyStr, err)
	}
	p.Amount = amount
	return p, nil
}
