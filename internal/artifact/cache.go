// Package artifact 管理从源文档派生出的文件（如从简历PDF中提取的头像）。
// 派生文件按确定性键名落盘，一次计算后持续复用，不做淘汰。
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"resume-coach-go/internal/logger"
)

// ComputeFunc 缓存未命中时的计算函数，返回派生文件的字节和格式扩展名
type ComputeFunc func() ([]byte, string, error)

// Cache 文件系统派生文件缓存。
// 同一(文档,种类)键至多存在一个缓存文件；"扫描后写入"序列由每键互斥锁保护，
// 避免并发首次请求时重复计算。
type Cache struct {
	dir    string
	logger zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCache 创建缓存，目录按需创建
func NewCache(dir string) (*Cache, error) {
	if dir == "" {
		return nil, fmt.Errorf("缓存目录不能为空")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建缓存目录失败: %w", err)
	}

	return &Cache{
		dir:    dir,
		logger: logger.Logger.With().Str("component", "artifact_cache").Logger(),
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// Dir 返回缓存根目录
func (c *Cache) Dir() string {
	return c.dir
}

// Key 构建确定性缓存键：<文档基础名>_<文档标识>_<种类>。
// 文档标识保证不同文档不会共键；同一文档同一种类总是得到同一个键。
func Key(baseName, docID, kind string) string {
	return fmt.Sprintf("%s_%s_%s", baseName, docID, kind)
}

// GetOrCreate 按键查找缓存文件，命中时直接返回路径且不调用compute；
// 未命中时执行compute并以 <key>.<ext> 落盘。
func (c *Cache) GetOrCreate(key string, compute ComputeFunc) (string, error) {
	if key == "" {
		return "", fmt.Errorf("缓存键不能为空")
	}

	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	if path, ok := c.lookup(key); ok {
		c.logger.Debug().Str("key", key).Str("path", path).Msg("派生文件缓存命中")
		return path, nil
	}

	data, ext, err := compute()
	if err != nil {
		return "", err
	}

	filename := key + "." + strings.TrimPrefix(ext, ".")
	path := filepath.Join(c.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("写入派生文件失败 (键:%s): %w", key, err)
	}

	c.logger.Info().Str("key", key).Str("path", path).Int("bytes", len(data)).Msg("派生文件已落盘")
	return path, nil
}

// lookup 扫描缓存目录，查找键前缀匹配的既有文件
func (c *Cache) lookup(key string) (string, bool) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return "", false
	}
	prefix := key + "."
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			return filepath.Join(c.dir, entry.Name()), true
		}
	}
	return "", false
}

// keyLock 获取每键互斥锁
func (c *Cache) keyLock(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	c.locks[key] = l
	return l
}
