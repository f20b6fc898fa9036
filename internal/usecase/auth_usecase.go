package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"fooddelivery/internal/config"
	"fooddelivery/internal/domain/model"
	"fooddelivery/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type UserDTO struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	Email       *string    `json:"email"`
	Address     string     `json:"address"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

type JwtAccessTokenDTO struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}

type AuthRegisterRequest struct {
	Name     string
	Phone    string
	Email    *string
	Password string
	Address  string
}

type AuthLoginRequest struct {
	Phone    string
	Password string
}

type AuthResponse struct {
	User  UserDTO           `json:"user"`
	Token JwtAccessTokenDTO `json:"token"`
}

type AuthUsecase struct {
	cfg       config.Config
	users     repository.UserRepository
	validator AuthValidator
	log       *zap.Logger
}

func NewAuthUsecase(
	cfg config.Config,
	users repository.UserRepository,
	validator AuthValidator,
	log *zap.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		cfg:       cfg,
		users:     users,
		validator: validator,
		log:       log,
	}
}

func (u *AuthUsecase) Register(ctx context.Context, req AuthRegisterRequest) (*AuthResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &e
		if e == "" {
			req.Email = nil
		}
	}

	//入力検証（validatorに寄せる）
	if err := u.validator.ValidateRegister(ctx, req.Name, req.Phone, req.Email, req.Password); err != nil {
		return nil, validationError(err.Error())
	}

	//重複は先に見て409（最後はDBの一意制約）
	if existing, err := u.users.FindByPhone(ctx, req.Phone); err == nil && existing != nil {
		return nil, conflictError("phone already registered")
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, dbError()
	}
	if req.Email != nil {
		if existing, err := u.users.FindByEmail(ctx, *req.Email); err == nil && existing != nil {
			return nil, conflictError("email already registered")
		} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, dbError()
		}
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), u.bcryptCost())
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user := &model.User{
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		Address:      strings.TrimSpace(req.Address),
		PasswordHash: string(pwHash),
		Role:         model.RoleCustomer,
		TokenVersion: 0,
		IsActive:     true,
	}
	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, conflictError("phone or email already registered")
		}
		u.log.Error("create user failed", zap.Error(err))
		return nil, dbError()
	}

	token, err := u.issueAccessToken(user)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	u.log.Info("user registered", zap.Int64("user_id", user.ID))
	return &AuthResponse{User: toUserDTO(user), Token: token}, nil
}

func (u *AuthUsecase) Login(ctx context.Context, req AuthLoginRequest) (*AuthResponse, error) {
	req.Phone = strings.TrimSpace(req.Phone)
	if err := u.validator.ValidateLogin(ctx, req.Phone, req.Password); err != nil {
		return nil, validationError(err.Error())
	}

	//ユーザー取得
	user, err := u.users.FindByPhone(ctx, req.Phone)
	if err != nil || user == nil {
		return nil, NewHTTPError(http.StatusUnauthorized, "invalid phone or password")
	}

	//パスワード照合（bcrypt）
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, NewHTTPError(http.StatusUnauthorized, "invalid phone or password")
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return nil, forbiddenError("account disabled")
	}

	//last_login更新
	now := time.Now()
	user.LastLoginAt = &now
	if err := u.users.Update(ctx, user); err != nil {
		u.log.Warn("update last_login_at failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	token, err := u.issueAccessToken(user)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return &AuthResponse{User: toUserDTO(user), Token: token}, nil
}

func (u *AuthUsecase) Me(ctx context.Context, userID int64) (*UserDTO, error) {
	if userID <= 0 {
		return nil, unauthorizedError()
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		return nil, unauthorizedError()
	}
	if !user.IsActive {
		return nil, forbiddenError("account disabled")
	}

	dto := toUserDTO(user)
	return &dto, nil
}

// token_versionを進めて発行済みトークンを無効にする
func (u *AuthUsecase) Logout(ctx context.Context, userID int64) (*SuccessResponse, error) {
	if userID <= 0 {
		return nil, unauthorizedError()
	}
	if err := u.users.IncrementTokenVersion(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, unauthorizedError()
		}
		return nil, dbError()
	}
	return &SuccessResponse{Message: "logout success"}, nil
}

func (u *AuthUsecase) bcryptCost() int {
	if u.cfg.BcryptCost < bcrypt.MinCost || u.cfg.BcryptCost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return u.cfg.BcryptCost
}

// jwt発行
func (u *AuthUsecase) issueAccessToken(user *model.User) (JwtAccessTokenDTO, error) {
	ttl := u.cfg.JWTTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()

	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"tv":   user.TokenVersion,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(u.cfg.JWTSecret))
	if err != nil {
		return JwtAccessTokenDTO{}, err
	}

	return JwtAccessTokenDTO{
		AccessToken:  signed,
		TokenType:    "Bearer",
		ExpiresIn:    int(ttl.Seconds()),
		TokenVersion: user.TokenVersion,
	}, nil
}

// model.UserをAPI返却用DTOに変換。
func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:          u.ID,
		Name:        u.Name,
		Phone:       u.Phone,
		Email:       u.Email,
		Address:     u.Address,
		Role:        string(u.Role),
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}
