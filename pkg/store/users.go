package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shnefix/Code-Extractor/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MinPasswordLen is the basic password policy for new users.
const MinPasswordLen = 6

// Users stores login accounts.
type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users { return &Users{db: db} }

// NormalizeEmail trims and lowercases an email for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create adds a user with a bcrypt hash of password.
func (u *Users) Create(ctx context.Context, email, password string) (*models.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, errors.New("email required")
	}
	if len(password) < MinPasswordLen {
		return nil, fmt.Errorf("password too short (min %d)", MinPasswordLen)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := models.User{Email: email, HashedPassword: hashed}
	if err := u.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return &user, nil
}

// FindByEmail looks a user up by email.
func (u *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := u.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate returns the user when password matches.
func (u *Users) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := u.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Ensure creates the user unless the email is already registered.
func (u *Users) Ensure(ctx context.Context, email, password string) (created bool, err error) {
	_, err = u.Create(ctx, email, password)
	if errors.Is(err, ErrUserExists) {
		return false, nil
	}
	return err == nil, err
}
