package validator

import (
	"context"
	"strings"

	"fooddelivery/internal/usecase"
)

type authValidator struct{}

// Usecaseは interface を依存注入
func NewAuthValidator() usecase.AuthValidator {
	return &authValidator{}
}

// サインアップの入力を検証（重複チェックはusecase側）
func (v *authValidator) ValidateRegister(ctx context.Context, name, phone string, email *string, password string) error {
	if strings.TrimSpace(name) == "" {
		return ErrNameRequired
	}
	if err := checkPhone(phone); err != nil {
		return err
	}
	if err := checkOptionalEmail(email); err != nil {
		return err
	}
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(ctx context.Context, phone string, password string) error {
	if strings.TrimSpace(phone) == "" || password == "" {
		return ErrInvalidInput
	}
	return nil
}
