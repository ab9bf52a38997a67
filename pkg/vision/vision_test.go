package vision

import (
	"context"
	"errors"
	"image"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/zoeyai/zoeymatch/internal/logger"
	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
	"github.com/zoeyai/zoeymatch/pkg/vision/match"
	"github.com/zoeyai/zoeymatch/pkg/vision/raster"
)

func TestVersion(t *testing.T) {
	if Version == "" {
		t.Error("Version 不应为空")
	}
}

func randomRaster(t *testing.T, w, h int, seed int64) *raster.Raster {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	pix := make([]byte, w*h*3)
	rng.Read(pix)
	r, err := raster.New(w, h, 3, pix)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func writePNG(t *testing.T, path string, r *raster.Raster) {
	t.Helper()
	mat, err := cv.RasterToMat(r)
	if err != nil {
		t.Fatal(err)
	}
	defer mat.Close()
	if err := cv.WriteImage(path, mat); err != nil {
		t.Skipf("跳过测试：无法写入图像: %v", err)
	}
}

// fixture 在临时目录生成源图像与两个模板
func fixture(t *testing.T) (dir string, source *raster.Raster) {
	t.Helper()
	dir = t.TempDir()
	source = randomRaster(t, 60, 40, 11)
	writePNG(t, filepath.Join(dir, "screen.png"), source)

	for name, rect := range map[string]image.Rectangle{
		"a.png": image.Rect(3, 4, 10, 9),
		"b.png": image.Rect(40, 20, 56, 37),
	} {
		sub, err := source.SubRaster(rect)
		if err != nil {
			t.Fatal(err)
		}
		writePNG(t, filepath.Join(dir, name), sub)
	}
	return dir, source
}

type countingSink struct{ calls int }

func (s *countingSink) Show(string, *match.Annotation) error {
	s.calls++
	return nil
}

func quiet() Option {
	return WithLogger(logger.NewWithWriter(nil))
}

func TestMatchFile(t *testing.T) {
	dir, _ := fixture(t)
	sink := &countingSink{}

	res, err := MatchFile(context.Background(), CCoeffNormed, filepath.Join(dir, "screen.png"),
		[]string{"a.png", "b.png", "c.png"}, true,
		WithTemplateDir(dir), WithSink(sink), quiet())
	if err != nil {
		t.Fatalf("匹配失败: %v", err)
	}
	if res.Points["a.png"] != (Point{X: 6, Y: 6}) {
		t.Errorf("a.png = %+v, 期望 (6,6)", res.Points["a.png"])
	}
	if res.Points["b.png"] != (Point{X: 48, Y: 28}) {
		t.Errorf("b.png = %+v, 期望 (48,28)", res.Points["b.png"])
	}
	if !errors.Is(res.Failures["c.png"], ErrTemplateUnreadable) {
		t.Errorf("c.png 应读取失败, 实际 %v", res.Failures["c.png"])
	}
	if sink.calls != 1 {
		t.Errorf("showResult=true 时应展示一次, 实际 %d", sink.calls)
	}
}

func TestMatchFileSourceUnreadable(t *testing.T) {
	dir := t.TempDir()
	res, err := MatchFile(context.Background(), SqDiff, filepath.Join(dir, "missing.png"),
		[]string{"a.png"}, false, quiet())
	if !errors.Is(err, ErrSourceUnreadable) {
		t.Errorf("应返回 ErrSourceUnreadable, 实际 %v", err)
	}
	if res != nil {
		t.Error("整批失败时结果应为 nil")
	}
}

func TestMatchFileOne(t *testing.T) {
	dir, _ := fixture(t)
	source := filepath.Join(dir, "screen.png")

	p, err := MatchFileOne(context.Background(), SqDiffNormed, source, "b.png", false, WithTemplateDir(dir), quiet())
	if err != nil {
		t.Fatalf("匹配失败: %v", err)
	}
	if p != (Point{X: 48, Y: 28}) {
		t.Errorf("中心点 = %+v", p)
	}

	_, err = MatchFileOne(context.Background(), SqDiffNormed, source, "nope.png", false, WithTemplateDir(dir), quiet())
	if !errors.Is(err, ErrTemplateUnreadable) {
		t.Errorf("缺失模板应返回 ErrTemplateUnreadable 而不是 (0,0), 实际 %v", err)
	}
}

func stubCapture(t *testing.T, fn func(string) (*raster.Raster, error)) {
	t.Helper()
	orig := captureWindow
	captureWindow = fn
	t.Cleanup(func() { captureWindow = orig })
}

func TestMatchWindow(t *testing.T) {
	dir, source := fixture(t)
	stubCapture(t, func(name string) (*raster.Raster, error) {
		if name != "Game" {
			t.Errorf("窗口名称 = %q", name)
		}
		return source, nil
	})

	p, err := MatchWindowOne(context.Background(), CCorrNormed, "Game", "a.png", false, WithTemplateDir(dir), quiet())
	if err != nil {
		t.Fatalf("匹配失败: %v", err)
	}
	if p != (Point{X: 6, Y: 6}) {
		t.Errorf("中心点 = %+v", p)
	}
}

func TestMatchWindowCaptureFailure(t *testing.T) {
	tests := map[string]func(string) (*raster.Raster, error){
		"error": func(string) (*raster.Raster, error) { return nil, errors.New("no such window") },
		"empty": func(string) (*raster.Raster, error) { return &raster.Raster{}, nil },
	}
	for name, capture := range tests {
		t.Run(name, func(t *testing.T) {
			stubCapture(t, capture)
			res, err := MatchWindow(context.Background(), SqDiff, "Ghost", []string{"a.png"}, false, quiet())
			if !errors.Is(err, ErrCaptureUnavailable) || !errors.Is(err, ErrSourceUnreadable) {
				t.Errorf("截图失败应同时匹配两类错误, 实际 %v", err)
			}
			if res != nil {
				t.Error("整批失败时结果应为 nil")
			}
		})
	}
}

func TestOptions(t *testing.T) {
	defer ResetOptions()

	opts := GetOptions()
	if opts.WorkerTimeout != match.DefaultWorkerTimeout {
		t.Errorf("默认超时 = %s", opts.WorkerTimeout)
	}
	if opts.WindowTitle != "Result window" {
		t.Errorf("默认窗口标题 = %q", opts.WindowTitle)
	}

	opts.WorkerTimeout = time.Second
	opts.TemplateDir = "/tmp/tpl"
	SetOptions(opts)
	cfg := applyOptions(nil)
	if cfg.workerTimeout != time.Second || cfg.templateDir != "/tmp/tpl" {
		t.Errorf("全局配置未生效: %+v", cfg)
	}

	cfg = applyOptions([]Option{WithWorkerTimeout(2 * time.Second), WithConcurrency(3)})
	if cfg.workerTimeout != 2*time.Second || cfg.concurrency != 3 {
		t.Errorf("调用选项应覆盖全局配置: %+v", cfg)
	}

	ResetOptions()
	if GetOptions() != DefaultOptions {
		t.Error("ResetOptions 应恢复默认配置")
	}
}
