package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"resume-coach-go/internal/config"
	"resume-coach-go/internal/constants"
	"resume-coach-go/internal/storage/models"
)

var mysqlTracer = otel.Tracer("resume-coach-go/storage/mysql")

type spanContextKey struct{}

// GormTracingPlugin GORM插件，为数据库操作创建OpenTelemetry追踪点
type GormTracingPlugin struct {
	tracer trace.Tracer
	dbName string
}

// NewGormTracingPlugin 创建GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer: mysqlTracer,
		dbName: dbName,
	}
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 为各类CRUD操作注册Before/After回调
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	registrations := []struct {
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"CREATE", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"SELECT", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"UPDATE", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"DELETE", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
	}

	for _, reg := range registrations {
		if err := reg.before("otel:before_"+reg.op, p.before(reg.op)); err != nil {
			return err
		}
		if err := reg.after("otel:after_"+reg.op, p.after()); err != nil {
			return err
		}
	}
	return nil
}

func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		newCtx, span := p.tracer.Start(ctx, fmt.Sprintf("%s %s", operation, tableName),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		)
		db.Statement.Context = context.WithValue(newCtx, spanContextKey{}, span)
	}
}

func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value(spanContextKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

		if db.Error != nil {
			// ErrRecordNotFound属于正常业务分支，不计为错误
			if db.Error == gorm.ErrRecordNotFound {
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				span.RecordError(db.Error)
				span.SetStatus(codes.Error, db.Error.Error())
			}
			return
		}
		span.SetStatus(codes.Ok, "")
	}
}

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端，注册追踪插件并自动迁移表结构
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Warn),
		PrepareStmt:                              true,
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(60 * time.Minute)

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	m := &MySQL{db: db, cfg: cfg}

	if err := m.autoMigrateSchema(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	return m, nil
}

// autoMigrateSchema 自动迁移数据库表结构
func (m *MySQL) autoMigrateSchema() error {
	return m.db.AutoMigrate(
		&models.User{},
		&models.Resume{},
		&models.Questionnaire{},
		&models.Payment{},
	)
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetOrCreateUser 按邮箱查找用户，不存在则创建
func (m *MySQL) GetOrCreateUser(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{Email: email}
	err := m.db.WithContext(ctx).
		Where("email = ?", email).
		FirstOrCreate(user).Error
	if err != nil {
		return nil, fmt.Errorf("查找或创建用户失败: %w", err)
	}
	return user, nil
}

// CreateResume 插入简历记录
func (m *MySQL) CreateResume(ctx context.Context, resume *models.Resume) error {
	if err := m.db.WithContext(ctx).Create(resume).Error; err != nil {
		return fmt.Errorf("创建简历记录失败: %w", err)
	}
	return nil
}

// GetResumeBySlug 按slug查找简历。未找到时返回gorm.ErrRecordNotFound
func (m *MySQL) GetResumeBySlug(ctx context.Context, slug string) (*models.Resume, error) {
	var resume models.Resume
	err := m.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&resume).Error
	if err != nil {
		return nil, err
	}
	return &resume, nil
}

// MarkResumeProcessed 标记简历已完成分析
func (m *MySQL) MarkResumeProcessed(ctx context.Context, slug string) error {
	now := time.Now()
	err := m.db.WithContext(ctx).
		Model(&models.Resume{}).
		Where("slug = ?", slug).
		Updates(map[string]interface{}{
			"status":       constants.StatusProcessed,
			"processed_at": &now,
		}).Error
	if err != nil {
		return fmt.Errorf("更新简历状态失败: %w", err)
	}
	return nil
}

// SetResumeObjectPath 记录MinIO归档路径
func (m *MySQL) SetResumeObjectPath(ctx context.Context, slug string, objectPath string) error {
	err := m.db.WithContext(ctx).
		Model(&models.Resume{}).
		Where("slug = ?", slug).
		Update("object_path_oss", objectPath).Error
	if err != nil {
		return fmt.Errorf("记录归档路径失败: %w", err)
	}
	return nil
}

// UpsertQuestionnaire 保存问卷答案，同一简历的重复提交覆盖旧答案
func (m *MySQL) UpsertQuestionnaire(ctx context.Context, resumeID uint64, answers json.RawMessage) (*models.Questionnaire, error) {
	q := &models.Questionnaire{
		ResumeID: resumeID,
		Answers:  datatypes.JSON(answers),
	}
	err := m.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "resume_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"answers", "updated_at"}),
		}).
		Create(q).Error
	if err != nil {
		return nil, fmt.Errorf("保存问卷失败: %w", err)
	}
	return q, nil
}

// GetQuestionnaire 查询简历对应的问卷。未找到时返回gorm.ErrRecordNotFound
func (m *MySQL) GetQuestionnaire(ctx context.Context, resumeID uint64) (*models.Questionnaire, error) {
	var q models.Questionnaire
	err := m.db.WithContext(ctx).
		Where("resume_id = ?", resumeID).
		First(&q).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// CreatePayment 插入支付记录
func (m *MySQL) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if err := m.db.WithContext(ctx).Create(payment).Error; err != nil {
		return fmt.Errorf("创建支付记录失败: %w", err)
	}
	return nil
}

// UpdatePaymentStatus 按支付意图ID更新支付状态
func (m *MySQL) UpdatePaymentStatus(ctx context.Context, paymentIntentID string, status string) error {
	result := m.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("payment_intent_id = ?", paymentIntentID).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("更新支付状态失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
