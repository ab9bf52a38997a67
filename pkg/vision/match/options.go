package match

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"

	"github.com/zoeyai/zoeymatch/internal/logger"
)

const (
	// DefaultWorkerTimeout 单个模板默认超时
	DefaultWorkerTimeout = 30 * time.Second
	// ResultWindowTitle 结果窗口标题
	ResultWindowTitle = "Result window"
)

// Option 配置选项函数类型
type Option func(*Options)

// Options 编排器配置
type Options struct {
	// Concurrency 同时运行的 worker 数量，<=0 表示逻辑 CPU 数
	Concurrency int
	// WorkerTimeout 单个模板超时，0 表示不限制
	WorkerTimeout time.Duration
	// WindowTitle 结果窗口标题
	WindowTitle string
	// Sink 结果展示，nil 时忽略 showResult
	Sink Sink
	// Logger 日志记录器
	Logger *logger.Logger
}

// DefaultOptions 默认配置
func DefaultOptions() *Options {
	return &Options{
		Concurrency:   DefaultConcurrency(),
		WorkerTimeout: DefaultWorkerTimeout,
		WindowTitle:   ResultWindowTitle,
		Logger:        logger.Default(),
	}
}

// DefaultConcurrency 逻辑 CPU 数
func DefaultConcurrency() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// WithConcurrency 设置并发数
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n <= 0 {
			n = DefaultConcurrency()
		}
		o.Concurrency = n
	}
}

// WithWorkerTimeout 设置单个模板超时
func WithWorkerTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.WorkerTimeout = d
	}
}

// WithSink 设置结果展示
func WithSink(s Sink) Option {
	return func(o *Options) {
		o.Sink = s
	}
}

// WithWindowTitle 设置结果窗口标题
func WithWindowTitle(title string) Option {
	return func(o *Options) {
		o.WindowTitle = title
	}
}

// WithLogger 设置日志记录器
func WithLogger(l *logger.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency()
	}
	if o.WindowTitle == "" {
		o.WindowTitle = ResultWindowTitle
	}
	if o.Logger == nil {
		o.Logger = logger.Default()
	}
}
