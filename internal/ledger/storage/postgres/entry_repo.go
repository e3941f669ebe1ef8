package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/domain"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/ports"
	"github.com/TrulyGourav/OrchexPay/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const entryColumns = `id, wallet_id, merchant_id, vendor_id, type, amount::text, currency, reference_type, reference_id, status, description, created_at`

// EntryRepo implements ports.EntryRepository. Amounts live in NUMERIC(19,4)
// columns and cross the wire as text, so no float ever touches them.
type EntryRepo struct {
	pool Pool
}

// NewEntryRepo creates a new EntryRepo.
func NewEntryRepo(pool Pool) *EntryRepo {
	return &EntryRepo{pool: pool}
}

// Create inserts a new ledger entry within a database transaction.
// A unique violation on (wallet_id, reference_id, reference_type) is reported
// as ports.ErrDuplicateKey.
func (r *EntryRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (id, wallet_id, merchant_id, vendor_id, type, amount, currency,
		reference_type, reference_id, status, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.WalletID, e.MerchantID, e.VendorID,
		e.Type, e.Amount.StringAmount(), e.Amount.Currency(),
		e.ReferenceType, e.ReferenceID, e.Status, e.Description, e.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert ledger entry: %w", ports.ErrDuplicateKey)
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// GetByID fetches a ledger entry by UUID.
func (r *EntryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM ledger_entries WHERE id = $1`, entryColumns)
	return scanEntry(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a ledger entry by UUID with a row lock.
func (r *EntryRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.LedgerEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM ledger_entries WHERE id = $1 FOR UPDATE`, entryColumns)
	return scanEntry(tx.QueryRow(ctx, query, id))
}

// GetByReference fetches the entry holding the idempotency key, inside the
// given transaction or on the pool when tx is nil.
func (r *EntryRepo) GetByReference(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, referenceID string, refType domain.ReferenceType) (*domain.LedgerEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM ledger_entries
		WHERE wallet_id = $1 AND reference_id = $2 AND reference_type = $3`, entryColumns)
	return scanEntry(r.q(tx).QueryRow(ctx, query, walletID, referenceID, refType))
}

// UpdateStatus flips an entry's status within a database transaction.
func (r *EntryRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.EntryStatus) error {
	query := `UPDATE ledger_entries SET status = $1 WHERE id = $2`

	tag, err := tx.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update entry status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ledger entry not found: %s", id)
	}
	return nil
}

// ConfirmedBalance computes sum(CONFIRMED credits) - sum(CONFIRMED debits).
func (r *EntryRepo) ConfirmedBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(CASE WHEN type = 'CREDIT' THEN amount ELSE -amount END), 0)::text
		FROM ledger_entries WHERE wallet_id = $1 AND status = 'CONFIRMED'`

	var raw string
	if err := r.q(tx).QueryRow(ctx, query, walletID).Scan(&raw); err != nil {
		return decimal.Decimal{}, fmt.Errorf("compute balance: %w", err)
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse balance %q: %w", raw, err)
	}
	return balance, nil
}

// ConfirmedSum totals CONFIRMED entries of one direction on a wallet,
// optionally restricted to a reference type.
func (r *EntryRepo) ConfirmedSum(ctx context.Context, walletID uuid.UUID, entryType domain.EntryType, refType *domain.ReferenceType) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0)::text FROM ledger_entries
		WHERE wallet_id = $1 AND status = 'CONFIRMED' AND type = $2`
	args := []any{walletID, entryType}
	if refType != nil {
		query += ` AND reference_type = $3`
		args = append(args, *refType)
	}

	var raw string
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		return decimal.Decimal{}, fmt.Errorf("sum confirmed entries: %w", err)
	}
	sum, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse sum %q: %w", raw, err)
	}
	return sum, nil
}

// List fetches ledger entries with filtering and pagination.
func (r *EntryRepo) List(ctx context.Context, params ports.EntryListParams) ([]domain.LedgerEntry, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	add := func(cond string, val any) {
		conditions = append(conditions, fmt.Sprintf(cond, argIdx))
		args = append(args, val)
		argIdx++
	}

	if params.WalletID != nil {
		add("wallet_id = $%d", *params.WalletID)
	}
	if params.MerchantID != nil {
		add("merchant_id = $%d", *params.MerchantID)
	}
	if params.Status != nil {
		add("status = $%d", *params.Status)
	}
	if params.Type != nil {
		add("type = $%d", *params.Type)
	}
	if params.ReferenceType != nil {
		add("reference_type = $%d", *params.ReferenceType)
	}
	if params.From != nil {
		add("created_at >= $%d", *params.From)
	}
	if params.To != nil {
		add("created_at <= $%d", *params.To)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM ledger_entries %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM ledger_entries %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		entryColumns, where, argIdx, argIdx+1)
	args = append(args, pageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanEntryRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan entry row: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate entry rows: %w", err)
	}
	return entries, total, nil
}

// GetStats retrieves aggregated entry statistics.
func (r *EntryRepo) GetStats(ctx context.Context) (*ports.EntryStats, error) {
	query := `SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status = 'PENDING') AS pending,
		COUNT(*) FILTER (WHERE status = 'CONFIRMED') AS confirmed,
		COUNT(*) FILTER (WHERE status = 'REVERSED') AS reversed,
		COALESCE(SUM(amount) FILTER (WHERE status = 'CONFIRMED' AND type = 'CREDIT'), 0)::text AS confirmed_volume
		FROM ledger_entries`

	stats := &ports.EntryStats{}
	var volume string
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalEntries, &stats.Pending, &stats.Confirmed, &stats.Reversed, &volume,
	)
	if err != nil {
		return nil, fmt.Errorf("get entry stats: %w", err)
	}
	stats.ConfirmedVolume, err = decimal.NewFromString(volume)
	if err != nil {
		return nil, fmt.Errorf("parse confirmed volume %q: %w", volume, err)
	}
	return stats, nil
}

func (r *EntryRepo) q(tx pgx.Tx) querier {
	if tx == nil {
		return r.pool
	}
	return tx
}

// scanEntry is a helper to scan a single row into a LedgerEntry.
func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	e, err := scanEntryRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	return e, nil
}

func scanEntryRow(row pgx.Row) (*domain.LedgerEntry, error) {
	e := &domain.LedgerEntry{}
	var amountStr, currencyStr string
	err := row.Scan(
		&e.ID, &e.WalletID, &e.MerchantID, &e.VendorID,
		&e.Type, &amountStr, &currencyStr,
		&e.ReferenceType, &e.ReferenceID, &e.Status, &e.Description, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	amount, err := money.Parse(amountStr, currencyStr)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q %q: %w", amountStr, currencyStr, err)
	}
	e.Amount = amount
	return e, nil
}
