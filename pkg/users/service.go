package users

import (
	"context"
	"database/sql"
	"time"

	"github.com/mankai/mankai-server/pkg/auth"
	"github.com/mankai/mankai-server/pkg/errcodes"
	"github.com/mankai/mankai-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// MaxPageSize caps a single page of List.
const MaxPageSize = 50

// Service handles user operations.
type Service struct {
	db *bun.DB
}

// NewService creates a new users service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// CreateUserOptions contains options for creating a user.
type CreateUserOptions struct {
	Email    string
	Password string
	IsAdmin  bool
}

// Create creates a new user. Emails are unique regardless of case.
func (s *Service) Create(ctx context.Context, opts CreateUserOptions) (*models.User, error) {
	exists, err := s.db.NewSelect().
		Model((*models.User)(nil)).
		Where("email = ? COLLATE NOCASE", opts.Email).
		Exists(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if exists {
		return nil, errcodes.Conflict("A user with this email already exists")
	}

	hashedPassword, err := auth.HashPassword(opts.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Email:        opts.Email,
		PasswordHash: hashedPassword,
		IsAdmin:      opts.IsAdmin,
	}
	_, err = s.db.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("created user", logger.Data{"user_id": user.ID, "is_admin": user.IsAdmin})
	return user, nil
}

// Retrieve gets a user by ID.
func (s *Service) Retrieve(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Where("u.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}
	return user, nil
}

// ListOptions contains options for listing users.
type ListOptions struct {
	Limit  int
	Offset int
	// Search matches anywhere in the email, ignoring case.
	Search string
}

// List returns users newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*models.User, error) {
	users := []*models.User{}

	limit := opts.Limit
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	query := s.db.NewSelect().
		Model(&users).
		Order("u.id DESC").
		Limit(limit)

	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}
	if opts.Search != "" {
		query = query.Where("instr(lower(u.email), lower(?)) > 0", opts.Search)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	return users, nil
}

// ChangePassword replaces the user's password after checking the current
// one. Refresh tokens issued before the change stop working because they are
// bound to the old hash.
func (s *Service) ChangePassword(ctx context.Context, userID int, currentPassword, newPassword string) (*models.User, error) {
	user, err := s.Retrieve(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !auth.CheckPassword(user.PasswordHash, currentPassword) {
		return nil, errcodes.ValidationError("Current password is incorrect")
	}

	hashedPassword, err := auth.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = hashedPassword
	user.UpdatedAt = time.Now()
	_, err = s.db.NewUpdate().
		Model(user).
		Column("password_hash", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("changed password", logger.Data{"user_id": user.ID})
	return user, nil
}

// Delete removes a user. Tokens already issued to them fail once they're
// next checked against the database.
func (s *Service) Delete(ctx context.Context, userID int) error {
	res, err := s.db.NewDelete().
		Model((*models.User)(nil)).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound("User")
	}

	logger.FromContext(ctx).Info("deleted user", logger.Data{"user_id": userID})
	return nil
}
