package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"resume-coach-go/internal/config"
)

// unsafeFilenameChars 文件名白名单之外的字符
var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename 清洗用户提供的文件名：去除路径成分，
// 白名单之外的字符替换为下划线，空结果回退为"upload"
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "upload"
	}
	return name
}

// Local 本地文件存储，保存上传的原始简历。
// 文档以存储路径寻址，保存后不再改写或删除
type Local struct {
	uploadDir string
}

// NewLocal 创建本地存储，按需创建上传目录
func NewLocal(cfg *config.UploadConfig) (*Local, error) {
	if cfg == nil {
		return nil, fmt.Errorf("上传配置不能为空")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	return &Local{uploadDir: cfg.Dir}, nil
}

// SaveUpload 保存上传文件，文件名带slug前缀避免同名冲突，返回存储路径
func (l *Local) SaveUpload(slug, filename string, data []byte) (string, error) {
	safeName := fmt.Sprintf("%s_%s", slug, SanitizeFilename(filename))
	path := filepath.Join(l.uploadDir, safeName)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("保存上传文件失败: %w", err)
	}
	return path, nil
}

// Dir 返回上传目录
func (l *Local) Dir() string {
	return l.uploadDir
}
