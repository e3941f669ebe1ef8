package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/domain"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, password_hash, role, merchant_id, created_at`

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	pool Pool
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(pool Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Create inserts a new user within a database transaction.
func (r *UserRepo) Create(ctx context.Context, tx pgx.Tx, u *domain.User) error {
	query := `INSERT INTO users (id, username, password_hash, role, merchant_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query, u.ID, u.Username, u.PasswordHash, u.Role, u.MerchantID, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user: %w", ports.ErrDuplicateKey)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID fetches a user by UUID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetByUsername fetches a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1`, userColumns)
	return scanUser(r.pool.QueryRow(ctx, query, username))
}

// ListVendorsByMerchant fetches the vendor users of a merchant.
func (r *UserRepo) ListVendorsByMerchant(ctx context.Context, merchantID uuid.UUID) ([]domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE merchant_id = $1 AND role = 'VENDOR' ORDER BY created_at`, userColumns)

	rows, err := r.pool.Query(ctx, query, merchantID)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.MerchantID, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}
	return users, nil
}

// scanUser is a helper to scan a single row into a User.
func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.MerchantID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}
