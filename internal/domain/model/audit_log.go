package model

import "time"

// 管理者操作の種類
type AuditAction string

const (
	AuditActionCreate            AuditAction = "CREATE"
	AuditActionUpdate            AuditAction = "UPDATE"
	AuditActionDelete            AuditAction = "DELETE"
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	AuditActionGrantVoucher      AuditAction = "GRANT_VOUCHER"
	AuditActionSetUserActive     AuditAction = "SET_USER_ACTIVE"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceCategory AuditResourceType = "category"
	AuditResourceProduct  AuditResourceType = "product"
	AuditResourceCombo    AuditResourceType = "combo"
	AuditResourceVoucher  AuditResourceType = "voucher"
	AuditResourceOrder    AuditResourceType = "order"
	AuditResourceUser     AuditResourceType = "user"
)

// 監査ログ（管理者操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザー（主に管理者）のID。
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`
	AfterJSON  string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
