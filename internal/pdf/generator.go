package pdf

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const defaultRenderTimeout = 60 * time.Second

// A4 纸张尺寸（英寸）。
const (
	a4WidthInch  = 8.27
	a4HeightInch = 11.69
)

// Generator 使用 go-rod 在无头浏览器中把 HTML 渲染为 PDF。每次调用启动独立的浏览器进程。
type Generator struct {
	timeout time.Duration
	bin     string
}

// NewGenerator 创建 Generator。timeout <= 0 时使用默认值；bin 为空时自动查找本机 Chromium。
func NewGenerator(timeout time.Duration, bin string) *Generator {
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	return &Generator{timeout: timeout, bin: bin}
}

// Render 渲染 HTML 并返回 A4 尺寸、保留背景色的 PDF 字节。
func (g *Generator) Render(ctx context.Context, htmlContent string) ([]byte, error) {
	launch := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true)

	switch {
	case g.bin != "":
		launch = launch.Bin(g.bin)
	default:
		if path, ok := launcher.LookPath(); ok {
			launch = launch.Bin(path)
		}
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	defer launch.Cleanup()

	browser := rod.New().Context(ctx).ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		_ = browser.Close()
	}()

	page, err := browser.Timeout(g.timeout).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() {
		_ = page.Close()
	}()

	page = page.Timeout(g.timeout)
	if err := page.SetDocumentContent(htmlContent); err != nil {
		return nil, fmt.Errorf("set document content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	if err := (proto.EmulationSetEmulatedMedia{Media: "print"}).Call(page); err != nil {
		return nil, fmt.Errorf("set emulated media to print: %w", err)
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PaperWidth:        float64Ptr(a4WidthInch),
		PaperHeight:       float64Ptr(a4HeightInch),
		MarginTop:         float64Ptr(0),
		MarginBottom:      float64Ptr(0),
		MarginLeft:        float64Ptr(0),
		MarginRight:       float64Ptr(0),
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}
	return data, nil
}

func float64Ptr(value float64) *float64 {
	return &value
}
