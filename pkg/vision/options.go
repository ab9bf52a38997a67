package vision

import (
	"sync"
	"time"

	"github.com/zoeyai/zoeymatch/internal/logger"
	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
	"github.com/zoeyai/zoeymatch/pkg/vision/match"
)

// Options 全局配置选项
type Options struct {
	Concurrency   int           // 并发 worker 数，0 表示逻辑 CPU 数
	WorkerTimeout time.Duration // 单个模板超时，默认 30s
	TemplateDir   string        // 模板相对路径的基准目录
	WindowTitle   string        // 结果窗口标题
	DisplayWait   int           // 结果窗口 WaitKey 毫秒数
}

// DefaultOptions 默认配置
var DefaultOptions = Options{
	Concurrency:   0,
	WorkerTimeout: match.DefaultWorkerTimeout,
	TemplateDir:   "",
	WindowTitle:   match.ResultWindowTitle,
	DisplayWait:   cv.DefaultWaitKey,
}

var (
	optionsMu     sync.RWMutex
	globalOptions = DefaultOptions
)

// GetOptions 获取当前全局配置的副本
func GetOptions() Options {
	optionsMu.RLock()
	defer optionsMu.RUnlock()
	return globalOptions
}

// SetOptions 设置全局配置
func SetOptions(opts Options) {
	optionsMu.Lock()
	globalOptions = opts
	optionsMu.Unlock()
}

// ResetOptions 重置为默认配置
func ResetOptions() {
	SetOptions(DefaultOptions)
}

// Option 配置选项函数类型
type Option func(*matchConfig)

// matchConfig 单次调用的配置
type matchConfig struct {
	concurrency   int
	workerTimeout time.Duration
	templateDir   string
	windowTitle   string
	displayWait   int
	savePath      string
	sink          match.Sink
	logger        *logger.Logger
}

// defaultMatchConfig 以全局配置为基础
func defaultMatchConfig() *matchConfig {
	g := GetOptions()
	return &matchConfig{
		concurrency:   g.Concurrency,
		workerTimeout: g.WorkerTimeout,
		templateDir:   g.TemplateDir,
		windowTitle:   g.WindowTitle,
		displayWait:   g.DisplayWait,
		logger:        logger.Default(),
	}
}

func applyOptions(opts []Option) *matchConfig {
	cfg := defaultMatchConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// matcherOptions 转换为编排器选项
func (c *matchConfig) matcherOptions() []match.Option {
	sink := c.sink
	if sink == nil {
		sink = &cv.Display{Wait: c.displayWait, SavePath: c.savePath}
	}
	return []match.Option{
		match.WithConcurrency(c.concurrency),
		match.WithWorkerTimeout(c.workerTimeout),
		match.WithWindowTitle(c.windowTitle),
		match.WithSink(sink),
		match.WithLogger(c.logger),
	}
}

// WithConcurrency 设置并发数
func WithConcurrency(n int) Option {
	return func(c *matchConfig) {
		c.concurrency = n
	}
}

// WithWorkerTimeout 设置单个模板超时
func WithWorkerTimeout(d time.Duration) Option {
	return func(c *matchConfig) {
		c.workerTimeout = d
	}
}

// WithTemplateDir 设置模板目录
func WithTemplateDir(dir string) Option {
	return func(c *matchConfig) {
		c.templateDir = dir
	}
}

// WithWindowTitle 设置结果窗口标题
func WithWindowTitle(title string) Option {
	return func(c *matchConfig) {
		c.windowTitle = title
	}
}

// WithSavePath 展示结果时同时保存标注图像
func WithSavePath(path string) Option {
	return func(c *matchConfig) {
		c.savePath = path
	}
}

// WithSink 替换结果展示
func WithSink(s match.Sink) Option {
	return func(c *matchConfig) {
		c.sink = s
	}
}

// WithLogger 设置日志记录器
func WithLogger(l *logger.Logger) Option {
	return func(c *matchConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
