package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/streambox/internal/apperror"
	"github.com/sakif/streambox/internal/model"
	"github.com/sakif/streambox/internal/repository"
)

var _ repository.AccountRepository = (*DB)(nil)

const accountColumns = `id, email, password_hash, github_id, created_at`

// CreateAccount inserts an email/password account. Emails are stored lower-cased
// so lookups are case-insensitive on both engines.
func (db *DB) CreateAccount(ctx context.Context, account *model.Account) error {
	account.ID = xid.New().String()
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	account.CreatedAt = now()

	_, err := db.exec(ctx,
		`INSERT INTO accounts (id, email, password_hash, github_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		account.ID,
		account.Email,
		account.PasswordHash,
		nullGitHubID(account.GitHubID),
		account.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("User already registered")
		}
		return fmt.Errorf("sqlstore: creating account: %w", err)
	}

	return nil
}

func (db *DB) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	row := db.queryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", id)
		}
		return nil, fmt.Errorf("sqlstore: getting account %s: %w", id, err)
	}
	return account, nil
}

func (db *DB) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := db.queryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", email)
		}
		return nil, fmt.Errorf("sqlstore: getting account by email: %w", err)
	}
	return account, nil
}

// UpsertGitHubAccount inserts or refreshes the account linked to a GitHub id.
// An existing account keeps its internal id; only the email is refreshed.
func (db *DB) UpsertGitHubAccount(ctx context.Context, account *model.Account) error {
	if account.GitHubID == 0 {
		return apperror.ValidationFailed("github_id", "GitHub id is required")
	}
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))

	var existingID string
	err := db.queryRow(ctx,
		`SELECT id FROM accounts WHERE github_id = ?`, account.GitHubID,
	).Scan(&existingID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlstore: looking up account by github_id %d: %w", account.GitHubID, err)
	}

	if existingID != "" {
		account.ID = existingID
		_, err = db.exec(ctx,
			`UPDATE accounts SET email = ? WHERE id = ?`,
			account.Email, account.ID,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("Email is already used by another account")
			}
			return fmt.Errorf("sqlstore: updating account %s: %w", account.ID, err)
		}
		return db.queryRow(ctx,
			`SELECT created_at FROM accounts WHERE id = ?`, account.ID,
		).Scan(&account.CreatedAt)
	}

	return db.CreateAccount(ctx, account)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var (
		a        model.Account
		githubID sql.NullInt64
	)
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &githubID, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.GitHubID = githubID.Int64
	return &a, nil
}

func nullGitHubID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
