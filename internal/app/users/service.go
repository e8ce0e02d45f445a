package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hsu0403/hcast-backend/internal/app"
	"github.com/hsu0403/hcast-backend/internal/auth"
	"github.com/hsu0403/hcast-backend/internal/mailer"
	"github.com/hsu0403/hcast-backend/internal/store"
)

// generatedPasswordLength is the length of passwords issued by ForgotPassword.
const generatedPasswordLength = 10

// dummyPasswordHash keeps login timing similar for unknown emails.
var dummyPasswordHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z0bJXcY3VG3eQe3l6Z5G1j7G")

// Store describes the persistence operations required by the user service.
type Store interface {
	CreateUser(ctx context.Context, email, passwordHash string, role store.Role, verificationCode string) (int64, error)
	UserByID(ctx context.Context, id int64) (store.User, error)
	UserByEmail(ctx context.Context, email string) (store.User, error)
	UpdateUserEmail(ctx context.Context, userID int64, email, verificationCode string) error
	UpdatePasswordHash(ctx context.Context, userID int64, passwordHash string) error
	VerifyEmail(ctx context.Context, code string) error
	ToggleSubscription(ctx context.Context, userID, podcastID int64) (bool, error)
	SubscriptionsByUser(ctx context.Context, userID int64) ([]store.Podcast, error)
	MarkEpisodePlayed(ctx context.Context, userID, episodeID int64) error
	PodcastExists(ctx context.Context, id int64) (bool, error)
	EpisodeExists(ctx context.Context, id int64) (bool, error)
}

// TokenSigner issues login tokens.
type TokenSigner interface {
	Sign(userID int64) (string, error)
}

// Mailer queues outgoing email.
type Mailer interface {
	Dispatch(ctx context.Context, msg mailer.Message)
}

// EditProfileInput carries optional account changes.
type EditProfileInput struct {
	Email    *string
	Password *string
}

// Service exposes account workflows.
type Service interface {
	CreateAccount(ctx context.Context, email, password string, role store.Role) error
	Login(ctx context.Context, email, password string) (string, error)
	Me(ctx context.Context, actor *auth.Actor) (store.User, error)
	Profile(ctx context.Context, userID int64) (store.User, error)
	EditProfile(ctx context.Context, actor *auth.Actor, in EditProfileInput) error
	VerifyEmail(ctx context.Context, code string) error
	ForgotPassword(ctx context.Context, email string) error
	ToggleSubscribe(ctx context.Context, actor *auth.Actor, podcastID int64) (bool, error)
	Subscriptions(ctx context.Context, actor *auth.Actor) ([]store.Podcast, error)
	MarkEpisodePlayed(ctx context.Context, actor *auth.Actor, episodeID int64) error
}

type service struct {
	store   Store
	tokens  TokenSigner
	mail    Mailer
	newCode func() string
}

// New wires a Service backed by the provided Store.
func New(store Store, tokens TokenSigner, mail Mailer) Service {
	return &service{
		store:   store,
		tokens:  tokens,
		mail:    mail,
		newCode: uuid.NewString,
	}
}

func (s *service) CreateAccount(ctx context.Context, email, password string, role store.Role) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if password == "" {
		return app.Validation("Password is required.")
	}
	if !role.Valid() {
		return app.Validation("Role must be Host or Listener.")
	}

	hash, err := hashPassword(password)
	if err != nil {
		return app.Internal(err)
	}

	code := s.newCode()
	if _, err := s.store.CreateUser(ctx, email, hash, role, code); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return app.Validation("There is a user with that email already")
		}
		return app.Internal(err)
	}

	s.mail.Dispatch(ctx, mailer.VerificationEmail(email, code))
	return nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	user, err := s.store.UserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
			return "", app.NotFound("User not found.")
		}
		return "", app.Internal(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", app.Unauthorized("Wrong password")
	}

	token, err := s.tokens.Sign(user.ID)
	if err != nil {
		return "", app.Internal(err)
	}
	return token, nil
}

func (s *service) Me(ctx context.Context, actor *auth.Actor) (store.User, error) {
	if err := ctx.Err(); err != nil {
		return store.User{}, err
	}
	if err := auth.Authorize(actor, auth.RoleAny); err != nil {
		return store.User{}, err
	}
	return s.Profile(ctx, actor.ID)
}

func (s *service) Profile(ctx context.Context, userID int64) (store.User, error) {
	if err := ctx.Err(); err != nil {
		return store.User{}, err
	}

	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.User{}, app.NotFound("User not found.")
		}
		return store.User{}, app.Internal(err)
	}
	return user, nil
}

func (s *service) EditProfile(ctx context.Context, actor *auth.Actor, in EditProfileInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := auth.Authorize(actor, auth.RoleAny); err != nil {
		return err
	}

	if in.Email != nil {
		email, err := normalizeEmail(*in.Email)
		if err != nil {
			return err
		}

		existing, err := s.store.UserByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != actor.ID:
			return app.Validation("This email already exists.")
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return app.Internal(err)
		}

		// err == nil here means the address is already the actor's own.
		if err != nil {
			code := s.newCode()
			if err := s.store.UpdateUserEmail(ctx, actor.ID, email, code); err != nil {
				switch {
				case errors.Is(err, store.ErrEmailTaken):
					return app.Validation("This email already exists.")
				case errors.Is(err, store.ErrNotFound):
					return app.NotFound("User not found.")
				}
				return app.Internal(err)
			}
			s.mail.Dispatch(ctx, mailer.VerificationEmail(email, code))
		}
	}

	if in.Password != nil {
		if *in.Password == "" {
			return app.Validation("Password is required.")
		}
		hash, err := hashPassword(*in.Password)
		if err != nil {
			return app.Internal(err)
		}
		if err := s.store.UpdatePasswordHash(ctx, actor.ID, hash); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return app.NotFound("User not found.")
			}
			return app.Internal(err)
		}
	}

	return nil
}

func (s *service) VerifyEmail(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return app.Validation("Verification code is required.")
	}
	if err := s.store.VerifyEmail(ctx, code); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return app.NotFound("Verification not found.")
		}
		return app.Internal(err)
	}
	return nil
}

func (s *service) ForgotPassword(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	user, err := s.store.UserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return app.NotFound("Not found account")
		}
		return app.Internal(err)
	}

	password := strings.ReplaceAll(s.newCode(), "-", "")[:generatedPasswordLength]
	hash, err := hashPassword(password)
	if err != nil {
		return app.Internal(err)
	}
	if err := s.store.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return app.Internal(err)
	}

	s.mail.Dispatch(ctx, mailer.PasswordEmail(user.Email, password))
	return nil
}

func (s *service) ToggleSubscribe(ctx context.Context, actor *auth.Actor, podcastID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := auth.Authorize(actor, store.RoleListener); err != nil {
		return false, err
	}

	exists, err := s.store.PodcastExists(ctx, podcastID)
	if err != nil {
		return false, app.Internal(err)
	}
	if !exists {
		return false, app.NotFound("Podcast not found")
	}

	subscribed, err := s.store.ToggleSubscription(ctx, actor.ID, podcastID)
	if err != nil {
		return false, app.Internal(err)
	}
	return subscribed, nil
}

func (s *service) Subscriptions(ctx context.Context, actor *auth.Actor) ([]store.Podcast, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := auth.Authorize(actor, store.RoleListener); err != nil {
		return nil, err
	}

	podcasts, err := s.store.SubscriptionsByUser(ctx, actor.ID)
	if err != nil {
		return nil, app.Internal(err)
	}
	return podcasts, nil
}

func (s *service) MarkEpisodePlayed(ctx context.Context, actor *auth.Actor, episodeID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := auth.Authorize(actor, store.RoleListener); err != nil {
		return err
	}

	exists, err := s.store.EpisodeExists(ctx, episodeID)
	if err != nil {
		return app.Internal(err)
	}
	if !exists {
		return app.NotFound("Episode not found")
	}

	if err := s.store.MarkEpisodePlayed(ctx, actor.ID, episodeID); err != nil {
		return app.Internal(err)
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", app.Validation("Email is required.")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", app.Validation("Email is not valid.")
	}
	return email, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
