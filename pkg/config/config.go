// Package config 管理匹配参数的 JSON 配置文件
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zoeyai/zoeymatch/pkg/vision/score"
)

// DefaultWorkerTimeout 单个模板默认超时
const DefaultWorkerTimeout = 30 * time.Second

// Duration JSON 中以 "30s" 形式表示的时间，也接受毫秒数
type Duration time.Duration

// MarshalJSON 输出时间字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON 解析时间字符串或毫秒数
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		*d = Duration(time.Duration(val) * time.Millisecond)
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("无效的时间: %s", val)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("无效的时间: %s", string(data))
	}
	return nil
}

// MatchConfig 匹配配置
type MatchConfig struct {
	// Method 比较方法名称，见 score.ParseMethod
	Method string `json:"method"`
	// Concurrency 并发 worker 数，0 表示逻辑 CPU 数
	Concurrency int `json:"concurrency"`
	// WorkerTimeout 单个模板超时，0 表示不限制
	WorkerTimeout Duration `json:"worker_timeout"`
	// TemplateDir 模板相对路径的基准目录
	TemplateDir string `json:"template_dir"`
	ShowResult  bool   `json:"show_result"`
	LogLevel    string `json:"log_level"`
	// LogFile 非空时同时写入日志文件
	LogFile string `json:"log_file"`
}

// DefaultMatchConfig 默认匹配配置
func DefaultMatchConfig() *MatchConfig {
	return &MatchConfig{
		Method:        score.DefaultMethod.String(),
		Concurrency:   0,
		WorkerTimeout: Duration(DefaultWorkerTimeout),
		LogLevel:      "info",
	}
}

// Validate 检查配置取值
func (c *MatchConfig) Validate() error {
	if _, err := score.ParseMethod(c.Method); err != nil {
		return err
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("并发数不能为负: %d", c.Concurrency)
	}
	if c.WorkerTimeout < 0 {
		return fmt.Errorf("超时不能为负: %s", time.Duration(c.WorkerTimeout))
	}
	return nil
}

// MatchMethod 解析后的比较方法
func (c *MatchConfig) MatchMethod() score.Method {
	m, err := score.ParseMethod(c.Method)
	if err != nil {
		return score.DefaultMethod
	}
	return m
}

// Manager 配置管理器
type Manager struct {
	configDir  string
	configFile string
	mu         sync.RWMutex
}

// NewManager 创建配置管理器
func NewManager() *Manager {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return NewManagerWithDir(filepath.Join(homeDir, ".zoey-match"))
}

// NewManagerWithDir 使用指定目录创建配置管理器
func NewManagerWithDir(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configFile: filepath.Join(configDir, "config.json"),
	}
}

// NewManagerWithFile 使用指定配置文件创建配置管理器
func NewManagerWithFile(configFile string) *Manager {
	return &Manager{
		configDir:  filepath.Dir(configFile),
		configFile: configFile,
	}
}

// Load 加载配置，文件不存在时返回默认配置
// 文件中缺失的字段保留默认值
func (m *Manager) Load() (*MatchConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := os.ReadFile(m.configFile)
	if os.IsNotExist(err) {
		return DefaultMatchConfig(), nil
	}
	if err != nil {
		return DefaultMatchConfig(), fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := DefaultMatchConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return DefaultMatchConfig(), fmt.Errorf("解析配置文件失败: %w", err)
	}
	if err := config.Validate(); err != nil {
		return DefaultMatchConfig(), fmt.Errorf("配置无效: %w", err)
	}

	return config, nil
}

// Save 保存配置
func (m *Manager) Save(config *MatchConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.configDir, 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(m.configFile, data, 0600); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}

// Clear 清除配置
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := os.Remove(m.configFile)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// GetConfigDir 获取配置目录
func (m *Manager) GetConfigDir() string {
	return m.configDir
}

// GetConfigFile 获取配置文件路径
func (m *Manager) GetConfigFile() string {
	return m.configFile
}

// Exists 检查配置文件是否存在
func (m *Manager) Exists() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, err := os.Stat(m.configFile)
	return err == nil
}

// 全局配置管理器
var defaultManager = NewManager()

// GetDefaultManager 获取默认配置管理器
func GetDefaultManager() *Manager {
	return defaultManager
}

// Load 使用默认管理器加载配置
func Load() (*MatchConfig, error) {
	return defaultManager.Load()
}
