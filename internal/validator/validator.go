package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// 入力が不正
	ErrInvalidInput = errors.New("invalid input")

	ErrNameRequired     = errors.New("name is required")
	ErrPhoneRequired    = errors.New("phone is required")
	ErrInvalidPhone     = errors.New("invalid phone number")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrAddressRequired  = errors.New("address is required")
)

const minPasswordLength = 6

var (
	// ベトナムの携帯番号（+84 / 84 / 0 始まり）
	phoneRe = regexp.MustCompile(`^(\+84|84|0)[35789][0-9]{8}$`)

	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// 電話番号の形式をチェック
func IsValidPhone(s string) bool {
	return phoneRe.MatchString(strings.TrimSpace(s))
}

// 簡易メール形式をチェック
func IsEmailLike(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

func checkPhone(phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ErrPhoneRequired
	}
	if !phoneRe.MatchString(phone) {
		return ErrInvalidPhone
	}
	return nil
}

// emailは任意。指定されたときだけ形式を見る
func checkOptionalEmail(email *string) error {
	if email == nil || strings.TrimSpace(*email) == "" {
		return nil
	}
	if !IsEmailLike(*email) {
		return ErrInvalidEmail
	}
	return nil
}
