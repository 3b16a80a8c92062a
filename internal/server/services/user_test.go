package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/taskhub/internal/common"
	"github.com/dmitrijs2005/taskhub/internal/cryptox"
	"github.com/dmitrijs2005/taskhub/internal/server/auth"
	"github.com/dmitrijs2005/taskhub/internal/server/repositories/users"
	"github.com/dmitrijs2005/taskhub/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strongPassword = "Tr0ub4dor&3xyz"

func newUserService(t *testing.T) (*UserService, *fakeRepoManager) {
	t.Helper()
	db, _ := newSQLMockDB(t)
	rm := newFakeRepoManager()
	return NewUserService(db, rm, testConfig()), rm
}

func adaInput() RegisterInput {
	return RegisterInput{
		UserName:  "ada",
		Password:  strongPassword,
		Password2: strongPassword,
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Mobile:    "+1234567890",
	}
}

func requireValidation(t *testing.T, err error) validation.Errors {
	t.Helper()
	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs), "expected validation.Errors, got %v", err)
	return verrs
}

func TestRegister_ThenLogin_RoundTrip(t *testing.T) {
	s, _ := newUserService(t)
	ctx := context.Background()

	u, err := s.Register(ctx, adaInput())
	require.NoError(t, err)
	require.NotZero(t, u.ID)
	assert.Equal(t, "ada", u.UserName)
	assert.NotEqual(t, strongPassword, u.PasswordHash)
	assert.True(t, cryptox.CheckPassword(strongPassword, u.PasswordHash))

	res, err := s.Login(ctx, "ada", strongPassword)
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	require.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, u.ID, res.User.ID)

	id, err := auth.ParseAccessToken(res.AccessToken, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)
	assert.Equal(t, "Ada Lovelace", id.Name)
	assert.Equal(t, "ada@example.com", id.Email)
	assert.Equal(t, "+1234567890", id.Mobile)
}

func TestRegister_TrimsFields(t *testing.T) {
	s, _ := newUserService(t)

	in := adaInput()
	in.UserName = "  ada "
	in.FirstName = " Ada"

	u, err := s.Register(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "ada", u.UserName)
	assert.Equal(t, "Ada", u.FirstName)
}

func TestRegister_EmailUniqueAnyCase(t *testing.T) {
	s, rm := newUserService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, adaInput())
	require.NoError(t, err)

	second := adaInput()
	second.UserName = "ada2"
	second.Mobile = ""
	second.Email = "ADA@Example.COM"

	_, err = s.Register(ctx, second)
	verrs := requireValidation(t, err)
	assert.Equal(t, []string{msgEmailTaken}, verrs["email"])
	assert.Len(t, rm.store.users, 1)
}

func TestRegister_UserNameAndMobileTaken(t *testing.T) {
	s, _ := newUserService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, adaInput())
	require.NoError(t, err)

	again := adaInput()
	again.Email = "other@example.com"

	_, err = s.Register(ctx, again)
	verrs := requireValidation(t, err)
	assert.Equal(t, []string{msgUserNameTaken}, verrs["username"])
	assert.Equal(t, []string{msgMobileTaken}, verrs["mobile"])
	assert.False(t, verrs.Has("email"))
}

func TestRegister_CollectsEveryFieldError(t *testing.T) {
	s, rm := newUserService(t)

	_, err := s.Register(context.Background(), RegisterInput{})
	verrs := requireValidation(t, err)

	for _, f := range []string{"username", "password", "password2", "email", "first_name", "last_name"} {
		assert.Equal(t, []string{validation.MsgRequired}, verrs[f], f)
	}
	assert.False(t, verrs.Has("mobile"))
	assert.Empty(t, rm.store.users)
}

func TestRegister_FormatErrors(t *testing.T) {
	s, _ := newUserService(t)

	in := adaInput()
	in.UserName = "ada lovelace"
	in.Email = "not-an-email"
	in.Mobile = "12ab"

	_, err := s.Register(context.Background(), in)
	verrs := requireValidation(t, err)
	assert.Equal(t, []string{validation.MsgInvalidName}, verrs["username"])
	assert.Equal(t, []string{validation.MsgInvalidEmail}, verrs["email"])
	assert.Equal(t, []string{validation.MsgInvalidMobile}, verrs["mobile"])
}

func TestRegister_KeepsDecodeErrors(t *testing.T) {
	s, rm := newUserService(t)

	invalid := validation.Errors{
		"username": {"Not a valid string."},
		"mobile":   {"Not a valid string."},
	}
	_, err := s.Register(context.Background(), RegisterInput{Invalid: invalid})

	verrs := requireValidation(t, err)
	assert.Equal(t, validation.Errors{
		"username":   {"Not a valid string."},
		"mobile":     {"Not a valid string."},
		"password":   {validation.MsgRequired},
		"password2":  {validation.MsgRequired},
		"email":      {validation.MsgRequired},
		"first_name": {validation.MsgRequired},
		"last_name":  {validation.MsgRequired},
	}, verrs)
	assert.Len(t, invalid, 2, "caller's map must not change")
	assert.Empty(t, rm.store.users)
}

func TestRegister_DecodeErrorOnOptionalFieldBlocksCreate(t *testing.T) {
	s, rm := newUserService(t)

	in := adaInput()
	in.Mobile = ""
	in.Invalid = validation.Errors{"mobile": {"Not a valid string."}}

	_, err := s.Register(context.Background(), in)

	verrs := requireValidation(t, err)
	assert.Equal(t, validation.Errors{"mobile": {"Not a valid string."}}, verrs)
	assert.Empty(t, rm.store.users)
}

func TestRegister_PasswordMismatch(t *testing.T) {
	s, _ := newUserService(t)

	in := adaInput()
	in.Password2 = strongPassword + "!"

	_, err := s.Register(context.Background(), in)
	verrs := requireValidation(t, err)
	assert.Equal(t, []string{msgPasswordMismatch}, verrs["password"])
}

func TestRegister_PasswordPolicy(t *testing.T) {
	s, _ := newUserService(t)

	in := adaInput()
	in.Password = "1234"
	in.Password2 = "1234"

	_, err := s.Register(context.Background(), in)
	verrs := requireValidation(t, err)
	assert.Contains(t, verrs["password"], "This password is too short. It must contain at least 8 characters.")
	assert.Contains(t, verrs["password"], "This password is entirely numeric.")
}

func TestRegister_ConstraintRaceMapsToField(t *testing.T) {
	s, rm := newUserService(t)
	rm.store.fail["users.Create"] = &common.ConstraintError{Constraint: users.ConstraintMobile, Err: common.ErrorAlreadyExists}

	_, err := s.Register(context.Background(), adaInput())
	verrs := requireValidation(t, err)
	assert.Equal(t, []string{msgMobileTaken}, verrs["mobile"])
}

func TestRegister_RepositoryFailures(t *testing.T) {
	t.Run("probe", func(t *testing.T) {
		s, rm := newUserService(t)
		rm.store.fail["users.Taken"] = errors.New("db down")

		_, err := s.Register(context.Background(), adaInput())
		assert.ErrorContains(t, err, "db down")
		var verrs validation.Errors
		assert.False(t, errors.As(err, &verrs))
	})

	t.Run("create", func(t *testing.T) {
		s, rm := newUserService(t)
		rm.store.fail["users.Create"] = errors.New("disk full")

		_, err := s.Register(context.Background(), adaInput())
		assert.ErrorContains(t, err, "error creating user: disk full")
	})
}

func TestLogin_InvalidCredentialsLookTheSame(t *testing.T) {
	s, _ := newUserService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, adaInput())
	require.NoError(t, err)

	_, errWrongPassword := s.Login(ctx, "ada", "wrong-password")
	_, errUnknownUser := s.Login(ctx, "nobody", strongPassword)

	assert.ErrorIs(t, errWrongPassword, common.ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknownUser, common.ErrInvalidCredentials)
	assert.Equal(t, errWrongPassword.Error(), errUnknownUser.Error())
}

func TestLogin_RepositoryError(t *testing.T) {
	s, rm := newUserService(t)
	rm.store.fail["users.GetUserByLogin"] = errors.New("db down")

	_, err := s.Login(context.Background(), "ada", strongPassword)
	assert.ErrorContains(t, err, "db down")
	assert.NotErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestRefresh(t *testing.T) {
	s, rm := newUserService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, adaInput())
	require.NoError(t, err)
	res, err := s.Login(ctx, "ada", strongPassword)
	require.NoError(t, err)

	t.Run("mints access token with current claims", func(t *testing.T) {
		rm.store.users[res.User.ID].LastName = "King"

		access, err := s.Refresh(ctx, res.RefreshToken)
		require.NoError(t, err)

		id, err := s.Authenticate(ctx, access)
		require.NoError(t, err)
		assert.Equal(t, res.User.ID, id.UserID)
		assert.Equal(t, "Ada King", id.Name)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		_, err := s.Refresh(ctx, res.AccessToken)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("vanished user", func(t *testing.T) {
		delete(rm.store.users, res.User.ID)

		_, err := s.Refresh(ctx, res.RefreshToken)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})
}

func TestAuthenticate_RejectsGarbage(t *testing.T) {
	s, _ := newUserService(t)

	_, err := s.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}
