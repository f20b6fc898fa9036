package usecase

import (
	"context"
	"encoding/json"
	"time"

	"fooddelivery/internal/domain/model"
	repo "fooddelivery/internal/repository"
)

// 監査ログ用にJSON文字列へ。nilなら空
func auditJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// 「誰が」「何を」「どの対象に」「どう変えたか」を残す
func writeAudit(ctx context.Context, logs repo.AuditLogRepository, actor int64, action model.AuditAction,
	resource model.AuditResourceType, resourceID int64, before, after any) error {
	return logs.Create(ctx, model.AuditLog{
		ActorUserID:  actor,
		Action:       action,
		ResourceType: resource,
		ResourceID:   resourceID,
		BeforeJSON:   auditJSON(before),
		AfterJSON:    auditJSON(after),
		CreatedAt:    time.Now(),
	})
}
