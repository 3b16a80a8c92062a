// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, and issuing/refreshing the
// stateless JWT pair.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/taskhub/internal/common"
	"github.com/dmitrijs2005/taskhub/internal/cryptox"
	"github.com/dmitrijs2005/taskhub/internal/server/auth"
	"github.com/dmitrijs2005/taskhub/internal/server/config"
	"github.com/dmitrijs2005/taskhub/internal/server/models"
	"github.com/dmitrijs2005/taskhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskhub/internal/server/repositories/users"
	"github.com/dmitrijs2005/taskhub/internal/validation"
)

const (
	msgPasswordMismatch = "Password fields didn't match."
	msgUserNameTaken    = "A user with that username already exists."
	msgEmailTaken       = "user with this email already exists."
	msgMobileTaken      = "user with this mobile already exists."
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is a token pair plus the account it was issued for.
type LoginResult struct {
	TokenPair
	User *models.User
}

// RegisterInput carries the registration form. Password2 is the
// confirmation and is never stored. Invalid holds field errors found while
// decoding the form; those fields are reported as they are and skip the
// remaining checks.
type RegisterInput struct {
	UserName  string
	Password  string
	Password2 string
	Email     string
	Mobile    string
	FirstName string
	LastName  string
	Invalid   validation.Errors
}

func (in *RegisterInput) normalize() {
	in.UserName = strings.TrimSpace(in.UserName)
	in.Email = strings.TrimSpace(in.Email)
	in.Mobile = strings.TrimSpace(in.Mobile)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
}

// UserService provides authentication-related operations:
// - Register: validate and create users
// - Login: verify credentials and mint tokens
// - Refresh: mint a new access token from a refresh token
// - Authenticate: resolve an access token to an identity
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	passwordPolicy               validation.PasswordPolicy

	dummyOnce sync.Once
	dummyHash string
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		passwordPolicy:               validation.PasswordPolicy{MinLength: cfg.PasswordMinLength},
	}
}

// Register validates in and creates the account. Every field problem is
// reported at once as validation.Errors; nothing is written in that case.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.normalize()

	errs := in.Invalid.Clone()
	errs.Field("username", in.UserName, validation.Required, validation.MaxLength(150), validation.UserName)
	errs.Field("password", in.Password, validation.Required)
	errs.Field("password2", in.Password2, validation.Required)
	errs.Field("email", in.Email, validation.Required, validation.MaxLength(254), validation.Email)
	errs.Field("first_name", in.FirstName, validation.Required, validation.MaxLength(150))
	errs.Field("last_name", in.LastName, validation.Required, validation.MaxLength(150))
	if in.Mobile != "" {
		errs.Field("mobile", in.Mobile, validation.Mobile)
	}

	if !errs.Has("password") && !errs.Has("password2") && in.Password != in.Password2 {
		errs.Add("password", msgPasswordMismatch)
	}
	if !errs.Has("password") {
		attrs := map[string]string{
			"username":   in.UserName,
			"email":      in.Email,
			"first_name": in.FirstName,
			"last_name":  in.LastName,
		}
		for _, msg := range s.passwordPolicy.Validate(in.Password, attrs) {
			errs.Add("password", msg)
		}
	}

	if err := s.checkTaken(ctx, in, errs); err != nil {
		return nil, err
	}
	if errs.HasErrors() {
		return nil, errs
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		UserName:     in.UserName,
		Email:        in.Email,
		Mobile:       in.Mobile,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		// lost a race with a concurrent registration
		var ce *common.ConstraintError
		if errors.As(err, &ce) {
			if field, msg, ok := constraintField(ce.Constraint); ok {
				return nil, validation.Errors{field: {msg}}
			}
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// checkTaken runs the uniqueness probes for fields that are otherwise valid.
func (s *UserService) checkTaken(ctx context.Context, in RegisterInput, errs validation.Errors) error {
	repo := s.repomanager.Users(s.db)

	probes := []struct {
		field string
		value string
		msg   string
		taken func(context.Context, string) (bool, error)
	}{
		{"username", in.UserName, msgUserNameTaken, repo.UserNameTaken},
		{"email", in.Email, msgEmailTaken, repo.EmailTaken},
		{"mobile", in.Mobile, msgMobileTaken, repo.MobileTaken},
	}

	for _, p := range probes {
		if p.value == "" || errs.Has(p.field) {
			continue
		}
		taken, err := p.taken(ctx, p.value)
		if err != nil {
			return fmt.Errorf("error checking %s: %w", p.field, err)
		}
		if taken {
			errs.Add(p.field, p.msg)
		}
	}
	return nil
}

func constraintField(constraint string) (field, msg string, ok bool) {
	switch constraint {
	case users.ConstraintUserName:
		return "username", msgUserNameTaken, true
	case users.ConstraintEmail:
		return "email", msgEmailTaken, true
	case users.ConstraintMobile:
		return "mobile", msgMobileTaken, true
	}
	return "", "", false
}

// Login verifies the password and, on success, returns a new TokenPair.
// Unknown users and wrong passwords both yield common.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, userName, password string) (*LoginResult, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByLogin(ctx, strings.TrimSpace(userName))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// keep timing in line with a real check
			cryptox.CheckPassword(password, s.dummyPasswordHash())
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}
	if !cryptox.CheckPassword(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	pair, err := s.generateTokenPair(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{TokenPair: *pair, User: user}, nil
}

// Refresh mints a new access token for the subject of refreshToken. The user
// is re-read so the identity claims are current.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	userID, err := auth.ParseRefreshToken(refreshToken, s.jwtSecret)
	if err != nil {
		return "", err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrInvalidToken
		}
		return "", fmt.Errorf("error looking up user: %w", err)
	}

	return s.generateAccessToken(user)
}

// Authenticate validates a bearer access token.
func (s *UserService) Authenticate(_ context.Context, accessToken string) (*auth.Identity, error) {
	return auth.ParseAccessToken(accessToken, s.jwtSecret)
}

// --- helpers below ---

func (s *UserService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = cryptox.HashPassword("dummy-password-for-timing")
	})
	return s.dummyHash
}

func identityOf(u *models.User) auth.Identity {
	return auth.Identity{UserID: u.ID, Name: u.Name(), Email: u.Email, Mobile: u.Mobile}
}

func (s *UserService) generateAccessToken(u *models.User) (string, error) {
	token, err := auth.GenerateAccessToken(identityOf(u), s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", fmt.Errorf("error signing access token: %w", err)
	}
	return token, nil
}

func (s *UserService) generateTokenPair(u *models.User) (*TokenPair, error) {
	access, err := s.generateAccessToken(u)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken(u.ID, s.jwtSecret, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("error signing refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
