package utils

import (
	"os"
	"path/filepath"
)

// GetAbsPath 将项目相对路径解析为绝对路径。
// 从当前目录向上查找go.mod确定项目根目录，
// 使配置文件路径不依赖进程启动目录（如go test的包目录）。
func GetAbsPath(relPath string) string {
	if filepath.IsAbs(relPath) {
		return relPath
	}

	dir, err := os.Getwd()
	if err != nil {
		return relPath
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, relPath)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return relPath
}
