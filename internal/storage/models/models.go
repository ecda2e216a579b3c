package models

import (
	"time"

	"gorm.io/datatypes"
)

// User 用户主表，以邮箱作为唯一标识
type User struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_users_email_unique"`
	CreatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

// Resume 简历上传记录。Slug为对外暴露的不透明标识，
// 文件本体由存储路径寻址，数据库不保存文件内容
type Resume struct {
	ID               uint64         `gorm:"primaryKey;autoIncrement"`
	UserID           uint64         `gorm:"not null;index:idx_resumes_user_id"`
	Slug             string         `gorm:"type:char(16);not null;uniqueIndex:idx_resumes_slug_unique"`
	OriginalFilename string         `gorm:"type:varchar(255);not null"`
	FilePath         string         `gorm:"type:varchar(1024);not null"`
	ObjectPathOSS    string         `gorm:"type:varchar(1024)"` // MinIO归档路径，归档失败时为空
	Status           string         `gorm:"type:varchar(50);default:'UPLOADED';index:idx_resumes_status"`
	Analysis         datatypes.JSON `gorm:"type:json"` // 可空，Markdown路径不落库
	UploadedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_resumes_uploaded_at"`
	ProcessedAt      *time.Time     `gorm:"type:datetime(6)"`
	CreatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Resume) TableName() string {
	return "resumes"
}

// Questionnaire 求职问卷，一份简历对应至多一份问卷
type Questionnaire struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement"`
	ResumeID  uint64         `gorm:"not null;uniqueIndex:idx_questionnaires_resume_unique"`
	Answers   datatypes.JSON `gorm:"type:json;not null"`
	CreatedAt time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Resume *Resume `gorm:"foreignKey:ResumeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Questionnaire) TableName() string {
	return "questionnaires"
}

// Payment 支付记录，对应一次Stripe支付意图
type Payment struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement"`
	ResumeID        uint64    `gorm:"not null;index:idx_payments_resume_id"`
	PaymentIntentID string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_payments_intent_unique"`
	AmountCents     int64     `gorm:"not null"`
	Currency        string    `gorm:"type:varchar(10);not null"`
	Status          string    `gorm:"type:varchar(50);default:'pending';index:idx_payments_status"`
	CreatedAt       time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt       time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Resume *Resume `gorm:"foreignKey:ResumeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Payment) TableName() string {
	return "payments"
}
