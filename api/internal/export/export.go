// Package export writes a rendered lesson plan out of the process: .doc and
// PDF files and the system clipboard.
package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"giaoan/api/internal/render"
)

const (
	ExtDoc = ".doc"
	ExtPDF = ".pdf"
	ExtTXT = ".txt"
)

// Filename is GiaoAn_{title}{ext} with spaces turned into underscores.
func Filename(title, ext string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled"
	}
	return "GiaoAn_" + strings.ReplaceAll(title, " ", "_") + ext
}

// Doc is the HTML document saved with a .doc name; Word opens it as a
// document and keeps the tables and print styles.
func Doc(doc render.Document) []byte {
	return []byte(render.HTML(doc))
}

// Clipboard copies the plain-text view.
func Clipboard(doc render.Document) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard: no clipboard utility available")
	}
	if err := writeClipboard(render.PlainText(doc)); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	return nil
}

var writeClipboard = clipboard.WriteAll

// PDFPrinter prints the HTML document with a headless Chrome.
type PDFPrinter struct {
	// ExecPath overrides the Chrome binary lookup.
	ExecPath string
	Timeout  time.Duration
}

func NewPDFPrinter(execPath string, timeout time.Duration) *PDFPrinter {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &PDFPrinter{ExecPath: strings.TrimSpace(execPath), Timeout: timeout}
}

// PDF renders doc on an A4 page.
func (p *PDFPrinter) PDF(ctx context.Context, doc render.Document) ([]byte, error) {
	return p.Print(ctx, render.HTML(doc))
}

func (p *PDFPrinter) Print(ctx context.Context, html string) ([]byte, error) {
	ctx, cancelTimeout := context.WithTimeout(ctx, p.Timeout)
	defer cancelTimeout()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Headless,
		chromedp.DisableGPU,
	}
	if p.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(p.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var pdf []byte
	err := chromedp.Run(taskCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				Do(ctx)
			pdf = buf
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	return pdf, nil
}
