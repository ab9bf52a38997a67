package match

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"math/rand"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoeyai/zoeymatch/internal/logger"
	"github.com/zoeyai/zoeymatch/pkg/vision/raster"
	"github.com/zoeyai/zoeymatch/pkg/vision/score"
)

// ssdCorrelator 纯 Go 的平方差相关计算，越大越好的方法返回 1-归一化平方差
type ssdCorrelator struct{}

func (ssdCorrelator) Correlate(source, tpl *raster.Raster, method score.Method) (*score.Surface, error) {
	rows := source.Height - tpl.Height + 1
	cols := source.Width - tpl.Width + 1
	data := make([]float64, rows*cols)
	ch := source.Channels
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var sum float64
			for ty := 0; ty < tpl.Height; ty++ {
				srow := source.Pix[(y+ty)*source.Stride()+x*ch:]
				trow := tpl.Pix[ty*tpl.Stride():]
				for i := 0; i < tpl.Width*ch; i++ {
					d := float64(srow[i]) - float64(trow[i])
					sum += d * d
				}
			}
			data[y*cols+x] = sum
		}
	}
	s, err := score.NewSurface(rows, cols, data)
	if err != nil {
		return nil, err
	}
	s = s.Normalize()
	if method.LowerIsBetter() {
		return s, nil
	}
	inv := make([]float64, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			inv[y*cols+x] = 1 - s.At(y, x)
		}
	}
	return score.NewSurface(rows, cols, inv)
}

// stubCorrelator 对指定模板返回固定得分矩阵，其余模板使用 ssdCorrelator
type stubCorrelator struct {
	target  *raster.Raster
	surface *score.Surface
}

func (c stubCorrelator) Correlate(source, tpl *raster.Raster, method score.Method) (*score.Surface, error) {
	if tpl == c.target {
		return c.surface, nil
	}
	return ssdCorrelator{}.Correlate(source, tpl, method)
}

// fakeLoader 内存模板，记录调用次数
type fakeLoader struct {
	templates map[string]*raster.Raster
	block     map[string]chan struct{}
	calls     atomic.Int64
}

func (l *fakeLoader) LoadTemplate(id string) (*raster.Raster, error) {
	l.calls.Add(1)
	if ch, ok := l.block[id]; ok {
		<-ch
	}
	tpl, ok := l.templates[id]
	if !ok {
		return nil, fmt.Errorf("文件不存在: %s", id)
	}
	return tpl, nil
}

// recordingSink 记录展示请求
type recordingSink struct {
	mu    sync.Mutex
	title string
	boxes []Box
	err   error
}

func (s *recordingSink) Show(title string, a *Annotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = title
	s.boxes = a.Boxes()
	return s.err
}

func quietLogger() *logger.Logger {
	return logger.NewWithWriter(nil)
}

func randomRaster(t *testing.T, w, h int, seed int64) *raster.Raster {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	pix := make([]byte, w*h*3)
	rng.Read(pix)
	r, err := raster.New(w, h, 3, pix)
	if err != nil {
		t.Fatalf("创建随机图像失败: %v", err)
	}
	return r
}

func crop(t *testing.T, r *raster.Raster, x, y, w, h int) *raster.Raster {
	t.Helper()
	sub, err := r.SubRaster(image.Rect(x, y, x+w, y+h))
	if err != nil {
		t.Fatalf("裁剪失败: %v", err)
	}
	return sub
}

func newTestMatcher(loader TemplateLoader, opts ...Option) *Matcher {
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewMatcher(ssdCorrelator{}, loader, opts...)
}

func TestMatchExactSubRegionAllMethods(t *testing.T) {
	source := randomRaster(t, 40, 30, 1)
	loader := &fakeLoader{templates: map[string]*raster.Raster{
		"button.png": crop(t, source, 10, 7, 9, 5),
	}}
	m := newTestMatcher(loader)

	for _, method := range []score.Method{
		score.SqDiff, score.SqDiffNormed, score.CCorr,
		score.CCorrNormed, score.CCoeff, score.CCoeffNormed,
	} {
		t.Run(method.String(), func(t *testing.T) {
			res, err := m.Match(context.Background(), method, source, []string{"button.png"}, false)
			if err != nil {
				t.Fatalf("匹配失败: %v", err)
			}
			got, err := res.Lookup("button.png")
			if err != nil {
				t.Fatalf("模板应匹配成功: %v", err)
			}
			if want := (Point{X: 10 + 4, Y: 7 + 2}); got != want {
				t.Errorf("中心点 = %+v, 期望 %+v", got, want)
			}
			rect := res.Details["button.png"].Rectangle
			if rect.TopLeft != (Point{X: 10, Y: 7}) || rect.BottomRight != (Point{X: 19, Y: 12}) {
				t.Errorf("匹配区域错误: %+v", rect)
			}
		})
	}
}

func TestCenterPointFloorDivision(t *testing.T) {
	source := randomRaster(t, 60, 60, 2)
	loader := &fakeLoader{templates: map[string]*raster.Raster{
		"odd.png": crop(t, source, 10, 10, 15, 21),
	}}
	m := newTestMatcher(loader)

	res, err := m.Match(context.Background(), score.SqDiffNormed, source, []string{"odd.png"}, false)
	if err != nil {
		t.Fatalf("匹配失败: %v", err)
	}
	if got := res.Points["odd.png"]; got != (Point{X: 17, Y: 20}) {
		t.Errorf("15x21 模板在 (10,10) 的中心点应为 (17,20), 实际 %+v", got)
	}
	if got := CenterOf(image.Pt(10, 10), 15, 21); got != (Point{X: 17, Y: 20}) {
		t.Errorf("CenterOf = %+v", got)
	}
}

func TestBatchIsolation(t *testing.T) {
	source := randomRaster(t, 50, 40, 3)
	loader := &fakeLoader{templates: map[string]*raster.Raster{
		"a.png": crop(t, source, 0, 0, 6, 6),
		"c.png": crop(t, source, 30, 20, 8, 4),
	}}
	m := newTestMatcher(loader)

	res, err := m.Match(context.Background(), score.CCoeffNormed, source, []string{"a.png", "broken.png", "c.png"}, false)
	if err != nil {
		t.Fatalf("单个模板失败不应导致整批失败: %v", err)
	}
	if len(res.Points) != 2 {
		t.Errorf("应有 2 个成功结果, 实际 %d: %v", len(res.Points), res.Points)
	}
	if _, ok := res.Points["broken.png"]; ok {
		t.Error("失败模板不应出现在 Points 中")
	}

	_, lookupErr := res.Lookup("broken.png")
	if !errors.Is(lookupErr, ErrTemplateUnreadable) {
		t.Errorf("失败模板应返回 ErrTemplateUnreadable, 实际 %v", lookupErr)
	}
	var tplErr *TemplateError
	if !errors.As(lookupErr, &tplErr) || tplErr.ID != "broken.png" {
		t.Errorf("错误应为 *TemplateError 且带模板标识, 实际 %v", lookupErr)
	}
	if res.Points["a.png"] != (Point{X: 3, Y: 3}) || res.Points["c.png"] != (Point{X: 34, Y: 22}) {
		t.Errorf("其余模板结果错误: %v", res.Points)
	}
}

func TestTemplateLargerThanSource(t *testing.T) {
	source := randomRaster(t, 10, 10, 4)
	loader := &fakeLoader{templates: map[string]*raster.Raster{
		"wide.png": randomRaster(t, 11, 5, 5),
		"ok.png":   crop(t, source, 2, 2, 3, 3),
	}}
	m := newTestMatcher(loader)

	res, err := m.Match(context.Background(), score.SqDiff, source, []string{"wide.png", "ok.png"}, false)
	if err != nil {
		t.Fatalf("匹配失败: %v", err)
	}
	err = res.Failures["wide.png"]
	var sizeErr *ImageSizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("应返回 ImageSizeError, 实际 %v", err)
	}
	if !errors.Is(err, ErrTemplateUnreadable) {
		t.Error("尺寸错误应归类为 ErrTemplateUnreadable")
	}
	if sizeErr.SearchSize != [2]int{11, 5} {
		t.Errorf("SearchSize = %v", sizeErr.SearchSize)
	}
	if _, ok := res.Points["ok.png"]; !ok {
		t.Error("正常模板应匹配成功")
	}
}

func TestSourceUnreadableLaunchesNoWorker(t *testing.T) {
	loader := &fakeLoader{templates: map[string]*raster.Raster{}}
	m := newTestMatcher(loader)

	for name, source := range map[string]*raster.Raster{
		"nil":   nil,
		"empty": {},
	} {
		res, err := m.Match(context.Background(), score.SqDiff, source, []string{"a.png", "b.png"}, true)
		if !errors.Is(err, ErrSourceUnreadable) {
			t.Errorf("%s: 应返回 ErrSourceUnreadable, 实际 %v", name, err)
		}
		if res != nil {
			t.Errorf("%s: 整批失败时结果应为 nil", name)
		}
		if m.State() != StateFailed {
			t.Errorf("%s: 状态应为 failed, 实际 %s", name, m.State())
		}
	}
	if n := loader.calls.Load(); n != 0 {
		t.Errorf("源图像无效时不应启动 worker, 实际读取模板 %d 次", n)
	}
}

func TestConcurrentBatchOfFifty(t *testing.T) {
	source := randomRaster(t, 96, 96, 6)
	templates := make(map[string]*raster.Raster)
	want := make(map[string]Point)
	ids := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		x, y := (i*17)%91, (i*29)%91
		id := fmt.Sprintf("tpl_%02d.png", i)
		templates[id] = crop(t, source, x, y, 5, 5)
		want[id] = Point{X: x + 2, Y: y + 2}
		ids = append(ids, id)
	}
	sink := &recordingSink{}
	m := newTestMatcher(&fakeLoader{templates: templates}, WithConcurrency(8), WithSink(sink))

	res, err := m.Match(context.Background(), score.SqDiffNormed, source, ids, true)
	if err != nil {
		t.Fatalf("匹配失败: %v", err)
	}
	if len(res.Points) != 50 {
		t.Fatalf("应有 50 个结果, 实际 %d", len(res.Points))
	}
	if !reflect.DeepEqual(res.Points, want) {
		t.Errorf("结果不一致:\n got  %v\n want %v", res.Points, want)
	}
	if len(sink.boxes) != 50 {
		t.Errorf("应绘制 50 个标注框, 实际 %d", len(sink.boxes))
	}
	if m.State() != StateDone {
		t.Errorf("状态应为 done, 实际 %s", m.State())
	}
}

func TestIdempotent(t *testing.T) {
	source := randomRaster(t, 30, 30, 7)
	loader := &fakeLoader{templates: map[string]*raster.Raster{
		"x.png": crop(t, source, 5, 9, 4, 6),
		"y.png": crop(t, source, 20, 1, 7, 7),
	}}
	m := newTestMatcher(loader)
	ids := []string{"x.png", "y.png", "missing.png"}

	first, err := m.Match(context.Background(), score.CCorrNormed, source, ids, false)
	if err != nil {
		t.Fatalf("第一次匹配失败: %v", err)
	}
	second, err := m.Match(context.Background(), score.CCorrNormed, source, ids, false)
	if err != nil {
		t.Fatalf("第二次匹配失败: %v", err)
	}
	if !reflect.DeepEqual(first.Points, second.Points) {
		t.Errorf("两次结果不一致: %v != %v", first.Points, second.Points)
	}
	if len(first.Failures) != 1 || len(second.Failures) != 1 {
		t.Errorf("失败数量不一致: %d, %d", len(first.Failures), len(second.Failures))
	}
}

func TestWorkerTimeoutIsPerTemplate(t *testing.T) {
	source := randomRaster(t, 20, 20, 8)
	block := make(chan struct{})
	defer close(block)
	loader := &fakeLoader{
		templates: map[string]*raster.Raster{
			"fast.png": crop(t, source, 1, 1, 4, 4),
			"hang.png": crop(t, source, 5, 5, 4, 4),
		},
		block: map[string]chan struct{}{"hang.png": block},
	}
	m := newTestMatcher(loader, WithWorkerTimeout(50*time.Millisecond))

	start := time.Now()
	res, err := m.Match(context.Background(), score.SqDiff, source, []string{"fast.png", "hang.png"}, false)
	if err != nil {
		t.Fatalf("超时不应导致整批失败: %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("超时未生效")
	}
	if !errors.Is(res.Failures["hang.png"], ErrWorkerTimeout) {
		t.Errorf("hang.png 应超时, 实际 %v", res.Failures["hang.png"])
	}
	if _, ok := res.Points["fast.png"]; !ok {
		t.Error("fast.png 应匹配成功")
	}
}

func TestCancelledContextFailsEveryTemplate(t *testing.T) {
	source := randomRaster(t, 20, 20, 11)
	loader := &fakeLoader{templates: map[string]*raster.Raster{
		"a.png": crop(t, source, 1, 1, 4, 4),
		"b.png": crop(t, source, 8, 8, 4, 4),
	}}
	m := newTestMatcher(loader)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := m.Match(ctx, score.SqDiff, source, []string{"a.png", "b.png"}, false)
	if err != nil {
		t.Fatalf("取消不应导致整批失败: %v", err)
	}
	if len(res.Points) != 0 {
		t.Errorf("取消后不应有成功结果: %v", res.Points)
	}
	for _, id := range []string{"a.png", "b.png"} {
		if !errors.Is(res.Failures[id], context.Canceled) {
			t.Errorf("%s 应返回 context.Canceled, 实际 %v", id, res.Failures[id])
		}
	}
	if n := loader.calls.Load(); n != 0 {
		t.Errorf("取消后不应读取模板, 实际 %d 次", n)
	}
	if m.State() != StateDone {
		t.Errorf("状态应为 done, 实际 %s", m.State())
	}
}

func TestInvalidSurfaceFailsTemplateOnly(t *testing.T) {
	nan := math.NaN()
	allNaN, err := score.NewSurface(2, 2, []float64{nan, nan, nan, nan})
	if err != nil {
		t.Fatal(err)
	}
	wrongSize, err := score.NewSurface(3, 3, nil)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name    string
		surface *score.Surface
		wantErr error
	}{
		{"全部 NaN", allNaN, score.ErrNoFiniteScore},
		{"尺寸错误", wrongSize, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// 源 6x6，模板 5x5，正确的得分矩阵为 2x2
			source := randomRaster(t, 6, 6, 12)
			bad := crop(t, source, 1, 1, 5, 5)
			loader := &fakeLoader{templates: map[string]*raster.Raster{
				"bad.png":  bad,
				"good.png": crop(t, source, 0, 0, 5, 5),
			}}
			m := NewMatcher(stubCorrelator{target: bad, surface: tc.surface}, loader, WithLogger(quietLogger()))

			res, err := m.Match(context.Background(), score.CCoeffNormed, source, []string{"bad.png", "good.png"}, false)
			if err != nil {
				t.Fatalf("单个模板失败不应导致整批失败: %v", err)
			}
			fail, ok := res.Failures["bad.png"]
			if !ok {
				t.Fatalf("bad.png 应失败, 实际结果 %v", res.Points["bad.png"])
			}
			if tc.wantErr != nil && !errors.Is(fail, tc.wantErr) {
				t.Errorf("错误应为 %v, 实际 %v", tc.wantErr, fail)
			}
			if _, ok := res.Points["bad.png"]; ok {
				t.Error("失败模板不应出现在 Points 中")
			}
			if res.Points["good.png"] != (Point{X: 2, Y: 2}) {
				t.Errorf("good.png 结果错误: %v", res.Points)
			}
		})
	}
}

func TestShowResult(t *testing.T) {
	source := randomRaster(t, 20, 20, 9)
	loader := &fakeLoader{templates: map[string]*raster.Raster{
		"b.png": crop(t, source, 10, 10, 5, 5),
		"a.png": crop(t, source, 0, 0, 5, 5),
	}}
	sink := &recordingSink{err: errors.New("no display")}
	m := newTestMatcher(loader, WithSink(sink), WithWindowTitle("结果"))

	res, err := m.Match(context.Background(), score.SqDiff, source, []string{"b.png", "a.png"}, true)
	if err != nil {
		t.Fatalf("展示失败不应导致整批失败: %v", err)
	}
	if sink.title != "结果" {
		t.Errorf("窗口标题 = %q", sink.title)
	}
	wantBoxes := []Box{
		{ID: "a.png", Rect: image.Rect(0, 0, 5, 5)},
		{ID: "b.png", Rect: image.Rect(10, 10, 15, 15)},
	}
	if !reflect.DeepEqual(sink.boxes, wantBoxes) {
		t.Errorf("标注框 = %v, 期望 %v", sink.boxes, wantBoxes)
	}
	if &res.Annotation.Source.Pix[0] == &source.Pix[0] {
		t.Error("标注图像应为源图像副本")
	}

	// showResult=false 时不调用展示
	quiet := &recordingSink{}
	m2 := newTestMatcher(loader, WithSink(quiet))
	if _, err := m2.Match(context.Background(), score.SqDiff, source, []string{"a.png"}, false); err != nil {
		t.Fatal(err)
	}
	if quiet.boxes != nil {
		t.Error("showResult=false 时不应展示")
	}
}

func TestDuplicateAndEmptyIDs(t *testing.T) {
	source := randomRaster(t, 16, 16, 10)
	loader := &fakeLoader{templates: map[string]*raster.Raster{
		"a.png": crop(t, source, 3, 4, 4, 4),
	}}
	m := newTestMatcher(loader)

	res, err := m.Match(context.Background(), score.SqDiff, source, []string{"a.png", "", "a.png"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Points) != 1 || loader.calls.Load() != 2 {
		t.Errorf("重复模板应只匹配一次, points=%d calls=%d", len(res.Points), loader.calls.Load())
	}
	if !errors.Is(res.Failures[""], ErrTemplateUnreadable) {
		t.Errorf("空标识应返回 ErrTemplateUnreadable, 实际 %v", res.Failures[""])
	}
	if _, ok := res.Points[""]; ok {
		t.Error("空标识不应出现在 Points 中")
	}

	res, err = m.Match(context.Background(), score.SqDiff, source, nil, false)
	if err != nil {
		t.Fatalf("空模板列表不应报错: %v", err)
	}
	if len(res.Points) != 0 || len(res.Failures) != 0 {
		t.Error("空模板列表应返回空结果")
	}

	if _, err := res.Lookup("nope.png"); !errors.Is(err, ErrTemplateNotRequested) {
		t.Errorf("未请求的模板应返回 ErrTemplateNotRequested, 实际 %v", err)
	}
}

func TestCaptureErrorClassification(t *testing.T) {
	err := CaptureError("Notepad", errors.New("window not found"))
	if !errors.Is(err, ErrCaptureUnavailable) || !errors.Is(err, ErrSourceUnreadable) {
		t.Errorf("截图错误应同时匹配两类错误: %v", err)
	}
	if !IsSourceError(SourceError("a.png", nil)) {
		t.Error("SourceError 应匹配 ErrSourceUnreadable")
	}
}
