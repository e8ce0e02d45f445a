package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Role is the account type of a user.
type Role string

const (
	RoleHost     Role = "Host"
	RoleListener Role = "Listener"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleHost || r == RoleListener
}

// User is a registered host or listener.
type User struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Role          Role      `json:"role"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

const userColumns = `id, email, password_hash, role, email_verified, created_at, updated_at`

// CreateUser inserts the user together with its email verification code.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string, role Role, verificationCode string) (int64, error) {
	var userID int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO users (email, password_hash, role)
			VALUES ($1, $2, $3)
			RETURNING id
		`, email, passwordHash, string(role)).Scan(&userID)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrEmailTaken
			}
			return fmt.Errorf("insert user: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO verifications (code, user_id)
			VALUES ($1, $2)
		`, verificationCode, userID); err != nil {
			return fmt.Errorf("insert verification: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// UserByID loads a user by primary key.
func (s *Store) UserByID(ctx context.Context, id int64) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

// UserByEmail loads a user, including its password hash, by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email)
	return scanUser(row)
}

// UpdateUserEmail changes the email, clears the verified flag and replaces
// the pending verification code.
func (s *Store) UpdateUserEmail(ctx context.Context, userID int64, email, verificationCode string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE users
			SET email = $1, email_verified = FALSE, updated_at = NOW()
			WHERE id = $2
		`, email, userID)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrEmailTaken
			}
			return fmt.Errorf("update email: %w", err)
		}
		if err := checkAffected(result, "update email"); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM verifications
			WHERE user_id = $1
		`, userID); err != nil {
			return fmt.Errorf("delete verification: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO verifications (code, user_id)
			VALUES ($1, $2)
		`, verificationCode, userID); err != nil {
			return fmt.Errorf("insert verification: %w", err)
		}
		return nil
	})
}

// UpdatePasswordHash stores a new password hash for the user.
func (s *Store) UpdatePasswordHash(ctx context.Context, userID int64, passwordHash string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $1, updated_at = NOW()
		WHERE id = $2
	`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return checkAffected(result, "update password")
}

// VerifyEmail marks the owner of code as verified and consumes the code.
func (s *Store) VerifyEmail(ctx context.Context, code string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var userID int64
		err := tx.QueryRowContext(ctx, `
			SELECT user_id
			FROM verifications
			WHERE code = $1
		`, code).Scan(&userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lookup verification: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE users
			SET email_verified = TRUE, updated_at = NOW()
			WHERE id = $1
		`, userID); err != nil {
			return fmt.Errorf("verify user: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM verifications
			WHERE code = $1
		`, code); err != nil {
			return fmt.Errorf("delete verification: %w", err)
		}
		return nil
	})
}

// ToggleSubscription subscribes the user to the podcast, or unsubscribes when
// already subscribed. It reports the resulting state.
func (s *Store) ToggleSubscription(ctx context.Context, userID, podcastID int64) (bool, error) {
	var subscribed bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			DELETE FROM subscriptions
			WHERE user_id = $1 AND podcast_id = $2
		`, userID, podcastID)
		if err != nil {
			return fmt.Errorf("delete subscription: %w", err)
		}
		removed, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete subscription rows affected: %w", err)
		}
		if removed > 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO subscriptions (user_id, podcast_id)
			VALUES ($1, $2)
		`, userID, podcastID); err != nil {
			return fmt.Errorf("insert subscription: %w", err)
		}
		subscribed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return subscribed, nil
}

// SubscriptionsByUser lists the podcasts the user subscribes to.
func (s *Store) SubscriptionsByUser(ctx context.Context, userID int64) ([]Podcast, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+podcastColumnsP+`
		FROM podcasts p
		JOIN subscriptions s ON s.podcast_id = p.id
		WHERE s.user_id = $1
		ORDER BY p.title ASC, p.id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("select subscriptions: %w", err)
	}
	defer rows.Close()

	return scanPodcastRows(rows)
}

// MarkEpisodePlayed records that the user played the episode. Repeated calls
// are no-ops.
func (s *Store) MarkEpisodePlayed(ctx context.Context, userID, episodeID int64) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO played_episodes (user_id, episode_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, episode_id) DO NOTHING
	`, userID, episodeID); err != nil {
		return fmt.Errorf("insert played episode: %w", err)
	}
	return nil
}

func scanUser(scanner rowScanner) (User, error) {
	var (
		u    User
		role string
	)
	err := scanner.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Role = Role(role)
	return u, nil
}
