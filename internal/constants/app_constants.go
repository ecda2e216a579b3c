package constants

// 简历处理状态
const (
	// StatusUploaded 已上传待分析
	StatusUploaded = "UPLOADED"
	// StatusProcessed 已完成分析
	StatusProcessed = "PROCESSED"
)

// 派生文件种类，用于构建缓存键
const (
	// ArtifactKindProfilePicture 从PDF中提取的头像
	ArtifactKindProfilePicture = "profile"
)

// 支付状态
const (
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusPending   = "pending"
	PaymentStatusFailed    = "failed"
)

// SlugLength 简历对外标识(slug)的长度
const SlugLength = 16

// ReportEmailSubject 分析报告邮件主题
const ReportEmailSubject = "Your Resume Analysis Report"

// ReportAttachmentName 分析报告附件名
const ReportAttachmentName = "analysis.pdf"
