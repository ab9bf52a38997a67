package match

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zoeyai/zoeymatch/pkg/vision/raster"
	"github.com/zoeyai/zoeymatch/pkg/vision/score"
)

// State 批量匹配状态
type State int

const (
	StateIdle State = iota
	StateRunning
	StateAggregated
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateAggregated:
		return "aggregated"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Matcher 多模板匹配编排器
type Matcher struct {
	correlator Correlator
	loader     TemplateLoader
	opts       *Options

	mu    sync.Mutex
	state State
}

// NewMatcher 创建编排器
func NewMatcher(correlator Correlator, loader TemplateLoader, opts ...Option) *Matcher {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	o.normalize()
	return &Matcher{
		correlator: correlator,
		loader:     loader,
		opts:       o,
	}
}

// State 最近一次批量匹配的状态
func (m *Matcher) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Matcher) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Match 在 source 中并发匹配所有模板
// source 为空时返回 ErrSourceUnreadable，且不启动任何 worker；
// 单个模板失败记录在 BatchResult.Failures 中，不影响整批结果
func (m *Matcher) Match(ctx context.Context, method score.Method, source *raster.Raster, ids []string, showResult bool) (*BatchResult, error) {
	if source.Empty() {
		m.setState(StateFailed)
		m.opts.Logger.Error("无法读取源图像")
		return nil, SourceError("raster", raster.ErrEmpty)
	}

	m.setState(StateRunning)
	startTime := time.Now()
	ids = uniqueIDs(ids, m.opts)

	annotation := NewAnnotation(source)
	results := make([]TemplateResult, len(ids))

	// worker 只写入自己的槽位，汇总在 Wait 之后单线程完成
	var g errgroup.Group
	g.SetLimit(m.opts.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			results[i] = m.runWorker(ctx, id, source, method, annotation)
			return nil
		})
	}
	_ = g.Wait()

	batch := newBatchResult(annotation)
	for _, r := range results {
		if r.Err != nil {
			batch.Failures[r.ID] = r.Err
			continue
		}
		batch.Points[r.ID] = r.Center
		batch.Details[r.ID] = r
	}
	m.setState(StateAggregated)

	m.opts.Logger.Info("批量匹配完成: 方法=%s, 成功=%d, 失败=%d, 耗时=%s",
		method, len(batch.Points), len(batch.Failures), time.Since(startTime).Round(time.Millisecond))

	if showResult {
		m.show(annotation)
	}

	m.setState(StateDone)
	return batch, nil
}

// show 展示标注结果，失败只记录日志
func (m *Matcher) show(annotation *Annotation) {
	if m.opts.Sink == nil {
		m.opts.Logger.Warn("未配置结果展示，忽略 showResult")
		return
	}
	if err := m.opts.Sink.Show(m.opts.WindowTitle, annotation); err != nil {
		m.opts.Logger.Warn("展示结果失败: %v", err)
	}
}

// uniqueIDs 去除重复标识，保留第一次出现的顺序
func uniqueIDs(ids []string, o *Options) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			o.Logger.Warn("重复的模板已忽略: %s", id)
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// IsSourceError 判断是否为整批失败
func IsSourceError(err error) bool {
	return errors.Is(err, ErrSourceUnreadable)
}
