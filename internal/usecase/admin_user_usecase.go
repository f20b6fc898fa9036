package usecase

import (
	"context"
	"errors"
	"strings"

	"fooddelivery/internal/domain/model"
	repo "fooddelivery/internal/repository"

	"go.uber.org/zap"
)

type AdminUserUsecase struct {
	users     repo.UserRepository
	auditRepo repo.AuditLogRepository
	log       *zap.Logger
}

func NewAdminUserUsecase(users repo.UserRepository, auditRepo repo.AuditLogRepository, log *zap.Logger) *AdminUserUsecase {
	return &AdminUserUsecase{users: users, auditRepo: auditRepo, log: log}
}

type UserListOutput struct {
	Items []UserDTO `json:"items"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

func (u *AdminUserUsecase) List(ctx context.Context, f repo.UserListFilter) (UserListOutput, error) {
	if f.Page < 1 {
		return UserListOutput{}, validationError("invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return UserListOutput{}, validationError("invalid limit")
	}
	f.Q = strings.TrimSpace(f.Q)
	f.Role = strings.ToUpper(strings.TrimSpace(f.Role))
	switch model.Role(f.Role) {
	case "", model.RoleCustomer, model.RoleAdmin:
	default:
		return UserListOutput{}, validationError("invalid role")
	}

	users, total, err := u.users.List(ctx, f)
	if err != nil {
		u.log.Error("list users failed", zap.Error(err))
		return UserListOutput{}, dbError()
	}
	items := make([]UserDTO, 0, len(users))
	for i := range users {
		items = append(items, toUserDTO(&users[i]))
	}
	return UserListOutput{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// 停止にしたら発行済みトークンも無効にする
func (u *AdminUserUsecase) SetActive(ctx context.Context, adminUserID int64, targetUserID int64, active bool) (UserDTO, error) {
	if adminUserID <= 0 {
		return UserDTO{}, unauthorizedError()
	}
	if targetUserID <= 0 {
		return UserDTO{}, validationError("invalid user id")
	}
	if targetUserID == adminUserID && !active {
		return UserDTO{}, forbiddenError("cannot deactivate yourself")
	}

	before, err := u.users.FindByID(ctx, targetUserID)
	if err != nil || before == nil {
		if err == nil || errors.Is(err, repo.ErrNotFound) {
			return UserDTO{}, notFoundError("user not found")
		}
		return UserDTO{}, dbError()
	}
	wasActive := before.IsActive

	if err := u.users.SetActive(ctx, targetUserID, active); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return UserDTO{}, notFoundError("user not found")
		}
		return UserDTO{}, dbError()
	}
	if !active {
		if err := u.users.IncrementTokenVersion(ctx, targetUserID); err != nil {
			return UserDTO{}, dbError()
		}
	}

	if err := writeAudit(ctx, u.auditRepo, adminUserID, model.AuditActionSetUserActive,
		model.AuditResourceUser, targetUserID,
		map[string]bool{"is_active": wasActive},
		map[string]bool{"is_active": active},
	); err != nil {
		return UserDTO{}, dbError()
	}

	before.IsActive = active
	u.log.Info("user active flag changed",
		zap.Int64("user_id", targetUserID),
		zap.Bool("active", active),
		zap.Int64("admin_id", adminUserID),
	)
	return toUserDTO(before), nil
}

type AuditLogUsecase struct {
	auditRepo repo.AuditLogRepository
}

func NewAuditLogUsecase(auditRepo repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{auditRepo: auditRepo}
}

func (u *AuditLogUsecase) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	if f.Limit < 0 || f.Limit > 200 {
		return []model.AuditLog{}, validationError("invalid limit")
	}
	if f.Offset < 0 {
		return []model.AuditLog{}, validationError("invalid offset")
	}
	logs, err := u.auditRepo.List(ctx, f)
	if err != nil {
		return []model.AuditLog{}, dbError()
	}
	return logs, nil
}
