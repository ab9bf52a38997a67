package cv

import (
	"fmt"
	"path/filepath"

	"github.com/zoeyai/zoeymatch/pkg/vision/match"
	"github.com/zoeyai/zoeymatch/pkg/vision/raster"
)

// FileLoader 从磁盘读取模板与源图像
type FileLoader struct {
	// BaseDir 模板相对路径的基准目录，为空时使用当前工作目录
	BaseDir string
}

// NewFileLoader 创建文件读取器
func NewFileLoader(baseDir string) *FileLoader {
	return &FileLoader{BaseDir: baseDir}
}

// LoadTemplate 读取模板图像
func (l *FileLoader) LoadTemplate(id string) (*raster.Raster, error) {
	return readRaster(l.resolve(id))
}

// LoadSource 读取源图像，失败时返回 match.ErrSourceUnreadable
func (l *FileLoader) LoadSource(path string) (*raster.Raster, error) {
	r, err := readRaster(path)
	if err != nil {
		return nil, match.SourceError(path, err)
	}
	return r, nil
}

func (l *FileLoader) resolve(id string) string {
	if l == nil || l.BaseDir == "" || filepath.IsAbs(id) {
		return id
	}
	return filepath.Join(l.BaseDir, id)
}

func readRaster(path string) (*raster.Raster, error) {
	mat, err := ReadImage(path)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	r, err := MatToRaster(mat)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}
