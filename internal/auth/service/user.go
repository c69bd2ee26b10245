package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/admindash/internal/auth/domain"
	"github.com/aussiebroadwan/admindash/internal/auth/store"
	"github.com/aussiebroadwan/admindash/pkg/idx"
	"github.com/aussiebroadwan/admindash/pkg/slogx"
	"github.com/go-playground/validator/v10"
)

var (
	ErrValidation   = errors.New("validation_error")
	ErrUserNotFound = errors.New("user_not_found")
	ErrEmailTaken   = errors.New("email_taken")
)

// ValidationError carries a reason per offending field. It matches
// ErrValidation under errors.Is.
type ValidationError struct {
	Details map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Details))
	for f := range e.Details {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// CreateUserInput is the payload for a new directory entry.
type CreateUserInput struct {
	Name  string `validate:"required,max=100"`
	Email string `validate:"required,email"`
	Role  string `validate:"required,oneof=admin user"`
}

type userPatchInput struct {
	Name  *string `validate:"omitnil,required,max=100"`
	Email *string `validate:"omitnil,required,email"`
	Role  *string `validate:"omitnil,required,oneof=admin user"`
}

// UserService is the user directory.
type UserService struct {
	Store store.Store

	// Now defaults to time.Now.
	Now func() time.Time
}

// validate is shared; validator caches struct metadata and is safe for
// concurrent use.
var validate = sync.OnceValue(func() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
})

func NewUserService(st store.Store) *UserService {
	return &UserService{Store: st, Now: time.Now}
}

// List returns every user, oldest first.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.Store.Users().ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// Get fetches a user by id.
func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapUserErr(err)
	}
	return u, nil
}

// Create validates in and adds a directory-only user (no credential).
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = domain.NormalizeEmail(in.Email)
	in.Role = strings.TrimSpace(in.Role)

	if err := s.check(in); err != nil {
		return domain.User{}, err
	}

	now := s.now()
	u := domain.User{
		ID:        idx.NewAt(now).String(),
		Email:     in.Email,
		Name:      in.Name,
		Role:      domain.Role(in.Role),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		return domain.User{}, mapUserErr(err)
	}

	slogx.FromContext(ctx).Info("user created",
		slog.String("user_id", u.ID),
		slog.String("role", u.Role.String()),
	)
	return u, nil
}

// Update applies the non-nil fields of patch. An empty patch returns the
// user unchanged.
func (s *UserService) Update(ctx context.Context, id string, patch domain.UserPatch) (domain.User, error) {
	in := userPatchInput{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		in.Name = &name
	}
	if patch.Email != nil {
		email := domain.NormalizeEmail(*patch.Email)
		in.Email = &email
	}
	if patch.Role != nil {
		role := strings.TrimSpace(patch.Role.String())
		in.Role = &role
	}
	if err := s.check(in); err != nil {
		return domain.User{}, err
	}

	var out domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByID(ctx, id)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			out = u
			return nil
		}

		if in.Name != nil {
			u.Name = *in.Name
		}
		if in.Email != nil {
			u.Email = *in.Email
		}
		if in.Role != nil {
			u.Role = domain.Role(*in.Role)
		}
		u.UpdatedAt = s.now()

		if err := tx.Users().UpdateUser(ctx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return domain.User{}, mapUserErr(err)
	}

	slogx.FromContext(ctx).Info("user updated", slog.String("user_id", id))
	return out, nil
}

// Delete removes a user along with its refresh tokens and returns the
// record as it was.
func (s *UserService) Delete(ctx context.Context, id string) (domain.User, error) {
	var out domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByID(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Users().DeleteUser(ctx, id); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return domain.User{}, mapUserErr(err)
	}

	slogx.FromContext(ctx).Info("user deleted", slog.String("user_id", id))
	return out, nil
}

func (s *UserService) check(v any) error {
	err := validate().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[strings.ToLower(fe.Field())] = reason(fe)
	}
	return &ValidationError{Details: details}
}

func (s *UserService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "max":
		return "too long (max " + fe.Param() + ")"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "invalid"
	}
}

func mapUserErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return ErrEmailTaken
	default:
		return err
	}
}
