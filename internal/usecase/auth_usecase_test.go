package usecase_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"fooddelivery/internal/config"
	"fooddelivery/internal/domain/model"
	repo "fooddelivery/internal/repository"
	"fooddelivery/internal/usecase"
	"fooddelivery/internal/validator"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authCfg = config.Config{
	JWTSecret:  "unit-test-secret",
	JWTTTL:     time.Hour,
	BcryptCost: bcrypt.MinCost,
}

func newAuthUsecase() (*usecase.AuthUsecase, *UserRepoMock) {
	users := new(UserRepoMock)
	return usecase.NewAuthUsecase(authCfg, users, validator.NewAuthValidator(), zap.NewNop()), users
}

func hashed(t *testing.T, pw string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(b)
}

func TestAuthUsecase_Register_InvalidPhone(t *testing.T) {
	uc, users := newAuthUsecase()

	_, err := uc.Register(context.Background(), usecase.AuthRegisterRequest{
		Name: "A", Phone: "12345", Password: "secret123",
	})
	requireHTTPError(t, err, http.StatusBadRequest, usecase.KindValidation)
	users.AssertNotCalled(t, "FindByPhone", mock.Anything, mock.Anything)
}

func TestAuthUsecase_Register_DuplicatePhone(t *testing.T) {
	uc, users := newAuthUsecase()

	users.On("FindByPhone", mock.Anything, "0912345678").Return(&model.User{ID: 1, Phone: "0912345678"}, nil)

	_, err := uc.Register(context.Background(), usecase.AuthRegisterRequest{
		Name: "A", Phone: "0912345678", Password: "secret123",
	})
	requireHTTPError(t, err, http.StatusConflict, usecase.KindConflict)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthUsecase_Register_Success_IssuesToken(t *testing.T) {
	uc, users := newAuthUsecase()

	email := "  A@Example.com "
	users.On("FindByPhone", mock.Anything, "0912345678").Return(nil, repo.ErrNotFound)
	users.On("FindByEmail", mock.Anything, "a@example.com").Return(nil, repo.ErrNotFound)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Role == model.RoleCustomer &&
			u.IsActive &&
			u.PasswordHash != "secret123" &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret123")) == nil
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*model.User).ID = 42
	}).Return(nil)

	res, err := uc.Register(context.Background(), usecase.AuthRegisterRequest{
		Name: " Le Van C ", Phone: "0912345678", Email: &email, Password: "secret123",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(42), res.User.ID)
	assert.Equal(t, "Le Van C", res.User.Name)
	require.NotNil(t, res.User.Email)
	assert.Equal(t, "a@example.com", *res.User.Email)
	assert.Equal(t, "Bearer", res.Token.TokenType)
	assert.Equal(t, 3600, res.Token.ExpiresIn)

	tok, err := jwt.Parse(res.Token.AccessToken, func(*jwt.Token) (any, error) {
		return []byte(authCfg.JWTSecret), nil
	})
	require.NoError(t, err)
	claims := tok.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(42), claims["sub"])
	assert.Equal(t, "CUSTOMER", claims["role"])
	assert.Equal(t, float64(0), claims["tv"])

	users.AssertExpectations(t)
}

func TestAuthUsecase_Login_WrongPassword(t *testing.T) {
	uc, users := newAuthUsecase()

	users.On("FindByPhone", mock.Anything, "0912345678").
		Return(&model.User{ID: 1, PasswordHash: hashed(t, "secret123"), IsActive: true}, nil)

	_, err := uc.Login(context.Background(), usecase.AuthLoginRequest{Phone: "0912345678", Password: "wrong-pw"})
	requireHTTPError(t, err, http.StatusUnauthorized, usecase.KindUnauthorized)
}

func TestAuthUsecase_Login_UnknownPhone(t *testing.T) {
	uc, users := newAuthUsecase()

	users.On("FindByPhone", mock.Anything, "0912345678").Return(nil, repo.ErrNotFound)

	_, err := uc.Login(context.Background(), usecase.AuthLoginRequest{Phone: "0912345678", Password: "secret123"})
	requireHTTPError(t, err, http.StatusUnauthorized, usecase.KindUnauthorized)
}

func TestAuthUsecase_Login_DisabledAccount(t *testing.T) {
	uc, users := newAuthUsecase()

	users.On("FindByPhone", mock.Anything, "0912345678").
		Return(&model.User{ID: 1, PasswordHash: hashed(t, "secret123"), IsActive: false}, nil)

	_, err := uc.Login(context.Background(), usecase.AuthLoginRequest{Phone: "0912345678", Password: "secret123"})
	requireHTTPError(t, err, http.StatusForbidden, usecase.KindForbidden)
	users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestAuthUsecase_Login_Success_UpdatesLastLogin(t *testing.T) {
	uc, users := newAuthUsecase()

	users.On("FindByPhone", mock.Anything, "0912345678").Return(&model.User{
		ID:           1,
		PasswordHash: hashed(t, "secret123"),
		Role:         model.RoleAdmin,
		TokenVersion: 3,
		IsActive:     true,
	}, nil)
	users.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.LastLoginAt != nil
	})).Return(nil)

	res, err := uc.Login(context.Background(), usecase.AuthLoginRequest{Phone: "0912345678", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", res.User.Role)
	assert.Equal(t, 3, res.Token.TokenVersion)
	users.AssertExpectations(t)
}

func TestAuthUsecase_Logout_BumpsTokenVersion(t *testing.T) {
	uc, users := newAuthUsecase()

	users.On("IncrementTokenVersion", mock.Anything, int64(1)).Return(nil)

	res, err := uc.Logout(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "logout success", res.Message)
	users.AssertExpectations(t)
}

func TestAuthUsecase_Me_Disabled(t *testing.T) {
	uc, users := newAuthUsecase()

	users.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, IsActive: false}, nil)

	_, err := uc.Me(context.Background(), 1)
	requireHTTPError(t, err, http.StatusForbidden, usecase.KindForbidden)
}
