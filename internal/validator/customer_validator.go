package validator

import (
	"context"
	"strings"

	"fooddelivery/internal/usecase"
)

type customerValidator struct{}

func NewCustomerValidator() usecase.CustomerInfoValidator {
	return &customerValidator{}
}

// 注文者情報（プロフィール補完後の値）を検証
func (v *customerValidator) ValidateCustomer(ctx context.Context, name, phone string, email *string, address string) error {
	if strings.TrimSpace(name) == "" {
		return ErrNameRequired
	}
	if err := checkPhone(phone); err != nil {
		return err
	}
	if err := checkOptionalEmail(email); err != nil {
		return err
	}
	if strings.TrimSpace(address) == "" {
		return ErrAddressRequired
	}
	return nil
}
