package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/zoeyai/zoeymatch/internal/logger"
	"github.com/zoeyai/zoeymatch/pkg/auto"
	"github.com/zoeyai/zoeymatch/pkg/auto/input"
	"github.com/zoeyai/zoeymatch/pkg/config"
	"github.com/zoeyai/zoeymatch/pkg/vision"
)

// 版本信息 (可通过 ldflags 注入)
var (
	Version   = vision.Version
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// 退出码
const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	exitPartial = 3
)

// output 输出到标准输出的 JSON
type output struct {
	Source   string                           `json:"source"`
	Method   string                           `json:"method"`
	Points   map[string]vision.Point          `json:"points"`
	Failures map[string]string                `json:"failures,omitempty"`
	Details  map[string]vision.TemplateResult `json:"details,omitempty"`
	Clicked  *vision.Point                    `json:"clicked,omitempty"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configFile  = flag.String("config", "", "配置文件路径 (默认 ~/.zoey-match/config.json)")
		method      = flag.String("method", "", "比较方法: sqdiff, sqdiff_normed, ccorr, ccorr_normed, ccoeff, ccoeff_normed")
		source      = flag.String("source", "", "源图像文件")
		windowRef   = flag.String("window", "", "源窗口名称")
		show        = flag.Bool("show", false, "展示标注结果窗口")
		timeout     = flag.Duration("timeout", 0, "单个模板超时 (例: 30s)")
		concurrency = flag.Int("concurrency", 0, "并发 worker 数 (0 表示逻辑 CPU 数)")
		templateDir = flag.String("template-dir", "", "模板目录")
		clickID     = flag.String("click", "", "匹配后在窗口中点击该模板的中心点 (需要 -window)")
		button      = flag.String("button", "left", "点击按键: left, right, center")
		hold        = flag.Duration("hold", input.DefaultHold, "按下与松开之间的间隔")
		logLevel    = flag.String("log-level", "", "日志级别: debug, info, warn, error")
		logFile     = flag.String("log-file", "", "日志文件")
		outputImage = flag.String("output", "", "保存标注图像 (需要 -show)")
		verbose     = flag.Bool("details", false, "输出每个模板的匹配区域与得分")
		saveConfig  = flag.Bool("save", false, "保存配置到本地")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)
	flag.Usage = printHelp
	flag.Parse()

	if *showVersion {
		printVersion()
		return exitOK
	}
	if *showHelp {
		printHelp()
		return exitOK
	}

	manager := config.GetDefaultManager()
	if *configFile != "" {
		manager = config.NewManagerWithFile(*configFile)
	}
	cfg, err := manager.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] 加载配置失败: %v\n", err)
	}

	// 命令行参数优先级高于配置文件
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "method":
			cfg.Method = *method
		case "show":
			cfg.ShowResult = *show
		case "timeout":
			cfg.WorkerTimeout = config.Duration(*timeout)
		case "concurrency":
			cfg.Concurrency = *concurrency
		case "template-dir":
			cfg.TemplateDir = *templateDir
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-file":
			cfg.LogFile = *logFile
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		return exitUsage
	}

	if *saveConfig {
		if err := manager.Save(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] 保存配置失败: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "[INFO] 配置已保存到 %s\n", manager.GetConfigFile())
		}
	}

	templates := flag.Args()
	if *saveConfig && len(templates) == 0 && *source == "" && *windowRef == "" {
		return exitOK
	}
	if (*source == "") == (*windowRef == "") {
		fmt.Fprintln(os.Stderr, "[ERROR] 请指定 -source 或 -window 其中之一")
		printHelp()
		return exitUsage
	}
	if len(templates) == 0 {
		fmt.Fprintln(os.Stderr, "[ERROR] 缺少模板图像")
		printHelp()
		return exitUsage
	}
	if *clickID != "" && *windowRef == "" {
		fmt.Fprintln(os.Stderr, "[ERROR] -click 需要 -window")
		return exitUsage
	}
	btn, err := input.ParseButton(*button)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		return exitUsage
	}

	log := logger.NewWithWriter(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	log.SetLevel(logger.ParseLevel(cfg.LogLevel))
	if cfg.LogFile != "" {
		if err := log.SetFile(true, cfg.LogFile); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] %v\n", err)
		}
	}
	defer log.Close()

	if *windowRef != "" && runtime.GOOS == "darwin" {
		if status := auto.CheckPermissions(); !status.AllGranted {
			log.Warn("%s", status.Instructions())
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []vision.Option{
		vision.WithLogger(log),
		vision.WithConcurrency(cfg.Concurrency),
		vision.WithWorkerTimeout(time.Duration(cfg.WorkerTimeout)),
		vision.WithTemplateDir(cfg.TemplateDir),
		vision.WithSavePath(*outputImage),
	}

	m := cfg.MatchMethod()
	var res *vision.BatchResult
	if *source != "" {
		res, err = vision.MatchFile(ctx, m, *source, templates, cfg.ShowResult, opts...)
	} else {
		res, err = vision.MatchWindow(ctx, m, *windowRef, templates, cfg.ShowResult, opts...)
	}
	if err != nil {
		log.Error("匹配失败: %v", err)
		if errors.Is(err, vision.ErrCaptureUnavailable) {
			fmt.Fprintln(os.Stderr, "[ERROR] 窗口截图失败，请检查窗口名称与显示环境")
		}
		return exitFailed
	}

	out := output{
		Source:   *source + *windowRef,
		Method:   m.String(),
		Points:   res.Points,
		Failures: res.FailureMessages(),
	}
	if *verbose {
		out.Details = res.Details
	}

	code := exitOK
	if len(res.Failures) > 0 {
		code = exitPartial
	}

	if *clickID != "" {
		p, err := res.Lookup(*clickID)
		if err != nil {
			log.Error("无法点击 %s: %v", *clickID, err)
			code = exitFailed
		} else if err := input.ClickInWindow(*windowRef, p.X, p.Y, btn, *hold); err != nil {
			log.Error("点击失败: %v", err)
			code = exitFailed
		} else {
			out.Clicked = &p
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Error("输出结果失败: %v", err)
		return exitFailed
	}
	return code
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("Zoey Match v%s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("Zoey Match - 多模板图像匹配工具")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  zoeymatch [选项] 模板1.png [模板2.png ...]")
	fmt.Println()
	fmt.Println("选项:")
	fmt.Println("  -source string        源图像文件")
	fmt.Println("  -window string        源窗口名称 (linux 为不区分大小写的正则)")
	fmt.Println("  -method string        比较方法 (默认 ccoeff_normed)")
	fmt.Println("  -show                 展示标注结果窗口")
	fmt.Println("  -output string        保存标注图像 (需要 -show)")
	fmt.Println("  -timeout duration     单个模板超时 (默认 30s)")
	fmt.Println("  -concurrency int      并发 worker 数")
	fmt.Println("  -template-dir string  模板目录")
	fmt.Println("  -click string         匹配后点击该模板中心点 (需要 -window)")
	fmt.Println("  -button string        点击按键 (默认 left)")
	fmt.Println("  -hold duration        按下与松开之间的间隔 (默认 500ms)")
	fmt.Println("  -details              输出匹配区域与得分")
	fmt.Println("  -log-level string     日志级别")
	fmt.Println("  -log-file string      日志文件")
	fmt.Println("  -config string        配置文件路径")
	fmt.Println("  -save                 保存配置到本地")
	fmt.Println("  -version              显示版本信息")
	fmt.Println("  -help                 显示帮助信息")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  # 在截图文件中查找两个按钮")
	fmt.Println("  zoeymatch -source screen.png ok.png cancel.png")
	fmt.Println()
	fmt.Println("  # 在窗口中查找并点击")
	fmt.Println("  zoeymatch -window \"notepad\" -click save.png save.png")
	fmt.Println()
	fmt.Println("  # 保存默认方法与模板目录")
	fmt.Println("  zoeymatch -method sqdiff_normed -template-dir ./templates -save")
	fmt.Println()
	fmt.Printf("配置文件位置: %s\n", config.GetDefaultManager().GetConfigFile())
}
