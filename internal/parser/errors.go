package parser

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	// ErrExtraction 源文档无法读取或不是合法PDF
	ErrExtraction = errors.New("无法读取或解析PDF文档")
	// ErrNoImage 文档合法但不含任何嵌入图片
	ErrNoImage = errors.New("PDF中未找到嵌入图片")
)

// ExtractError 包含详细上下文的提取错误
type ExtractError struct {
	Path    string
	Op      string
	BaseErr error
	Cause   error
}

func (e *ExtractError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (操作:%s, 文件:%s): %v", e.BaseErr, e.Op, e.Path, e.Cause)
	}
	return fmt.Sprintf("%s (操作:%s, 文件:%s)", e.BaseErr, e.Op, e.Path)
}

func (e *ExtractError) Unwrap() error {
	return e.Cause
}

// Is 实现 errors.Is 以支持按基础错误分类
func (e *ExtractError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// NewExtractionError 构建文档不可读/格式错误
func NewExtractionError(op, path string, cause error) error {
	return &ExtractError{Path: path, Op: op, BaseErr: ErrExtraction, Cause: cause}
}

// NewNoImageError 构建无图片错误，与提取失败区分开，
// 调用方据此返回"没有头像"而非"文件损坏"
func NewNoImageError(path string) error {
	return &ExtractError{Path: path, Op: "extract_image", BaseErr: ErrNoImage}
}
