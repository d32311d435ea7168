package models

import (
	"time"

	"github.com/fatflowers/resumely/pkg/types"

	"gorm.io/datatypes"
)

// PaymentLog is an append-only audit record of every payment insertion and
// counter change. Ledger rules never read it.
type PaymentLog struct {
	ID        string                       `gorm:"column:id;primary_key;type:uuid;index:idx_payment_log_user_id_id,priority:2,sort:desc"`
	UserID    string                       `gorm:"column:user_id;type:varchar(64);index:idx_payment_log_user_id_id,priority:1;not null"`
	PaymentID string                       `gorm:"column:payment_id;type:varchar(64);not null"`
	Reason    types.PaymentChangeReason    `gorm:"column:reason;type:varchar(64);not null"`
	Kind      types.UsageKind              `gorm:"column:kind;type:varchar(32)"`
	Delta     int64                        `gorm:"column:delta;type:bigint;not null;default:0"`
	Before    datatypes.JSONType[*Payment] `gorm:"column:before;type:jsonb;default:'null'"`
	After     datatypes.JSONType[*Payment] `gorm:"column:after;type:jsonb;default:'null'"`
	Extra     datatypes.JSONMap            `gorm:"column:extra;type:jsonb;default:'{}'"`
	CreatedAt time.Time                    `json:"created_at"`
}

func (PaymentLog) TableName() string {
	return "payment_log"
}
