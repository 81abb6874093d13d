package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"giaoan/api/internal/apperr"
	"giaoan/api/internal/attachment"
	"giaoan/api/internal/credential"
	"giaoan/api/internal/export"
	"giaoan/api/internal/gemini"
	"giaoan/api/internal/lessonplan"
	"giaoan/api/internal/planner"
	"giaoan/api/internal/render"
	"giaoan/api/internal/store"
)

// inputFlags binds the lesson form to a flag set.
type inputFlags struct {
	template string
	level    string
	periods  int
	subject  string
	grade    string
	title    string
	teacher  string
}

func (f *inputFlags) register(fs *flag.FlagSet) {
	def := lessonplan.DefaultInput()
	fs.StringVar(&f.template, "template", string(def.CongVan), "template (Công văn): 5512 or 2345")
	fs.StringVar(&f.level, "level", string(def.Duration.Level), "school level: TieuHoc or THCS")
	fs.IntVar(&f.periods, "periods", 0, "number of lesson periods (0 lets the model propose)")
	fs.StringVar(&f.subject, "subject", "", "subject")
	fs.StringVar(&f.grade, "grade", "", "grade")
	fs.StringVar(&f.title, "title", "", "lesson title")
	fs.StringVar(&f.teacher, "teacher", def.TeacherName, "teacher name")
}

func (f *inputFlags) input() lessonplan.Input {
	return lessonplan.Input{
		TeacherName: f.teacher,
		Subject:     f.subject,
		Grade:       f.grade,
		LessonTitle: f.title,
		Duration: lessonplan.Duration{
			Level:   lessonplan.Level(f.level),
			Periods: lessonplan.Periods(f.periods),
		},
		CongVan: lessonplan.CongVan(f.template),
	}.Normalize()
}

// outputFlags are shared by generate and render.
type outputFlags struct {
	out   string
	copy  bool
	json  string
	width int
}

func (o *outputFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&o.out, "out", "", "write the plan to a file (.txt, .md, .html, .doc or .pdf)")
	fs.BoolVar(&o.copy, "copy", false, "copy the plain-text plan to the clipboard")
	fs.StringVar(&o.json, "json", "", "save the raw plan as JSON to this file (- for stdout)")
	fs.IntVar(&o.width, "width", 0, "terminal wrap width (default: terminal width)")
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	var in inputFlags
	var out outputFlags
	in.register(fs)
	out.register(fs)
	_ = fs.Parse(args)

	cfg, lg, err := setup()
	if err != nil {
		return err
	}
	defer lg.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	images, err := attachment.NewLoader(cfg.MaxImageSide).FromFiles(ctx, fs.Args())
	if err != nil {
		return fmt.Errorf("read images: %w", err)
	}

	creds, err := credential.Open(cfg.CredentialDir())
	if err != nil {
		return fmt.Errorf("credential store: %w", err)
	}
	defer creds.Close()

	opts := []planner.Option{planner.WithChannel("cli")}
	journal, err := store.OpenJournal(ctx, cfg.DatabaseURL)
	if err != nil {
		lg.Warn("journal unavailable", "err", err)
	} else if journal != nil {
		defer journal.DB.Close()
		opts = append(opts, planner.WithJournal(journal))
	}

	engine := gemini.New(cfg.GeminiModel, cfg.MaxOutputTokens, cfg.ThinkingBudget)
	svc := planner.New(engine, credential.Resolver(creds, cfg.GeminiAPIKey), lg, opts...)

	note(fmt.Sprintf("Đang soạn giáo án từ %d ảnh với %s...", len(images), engine.GetModel()))
	res, err := svc.Generate(ctx, planner.Request{Input: in.input(), Images: images})
	if err != nil {
		return err
	}
	return deliver(ctx, cfg.ChromePath, res.Plan, res.Document, res.Input.LessonTitle, out)
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	var in inputFlags
	var out outputFlags
	var planPath string
	fs.StringVar(&planPath, "plan", "", "plan JSON file saved with generate --json")
	in.register(fs)
	out.register(fs)
	_ = fs.Parse(args)

	if planPath == "" {
		return errors.New("render: --plan is required")
	}
	raw, err := os.ReadFile(planPath)
	if err != nil {
		return err
	}
	plan, err := lessonplan.Parse(string(raw))
	if err != nil {
		return err
	}
	input := in.input().Backfill(plan)
	doc := render.Build(plan, input)

	cfg, lg, err := setup()
	if err != nil {
		return err
	}
	defer lg.Sync()
	return deliver(context.Background(), cfg.ChromePath, plan, doc, input.LessonTitle, out)
}

// deliver shows the plan and writes every requested output.
func deliver(ctx context.Context, chromePath string, plan lessonplan.Plan, doc render.Document, title string, o outputFlags) error {
	if err := show(doc, o.width); err != nil {
		return err
	}
	if o.json != "" {
		b, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return err
		}
		if o.json == "-" {
			fmt.Println(string(b))
		} else {
			if err := os.WriteFile(o.json, b, 0o644); err != nil {
				return err
			}
			status("Đã lưu JSON: " + o.json)
		}
	}
	if o.out != "" {
		path := o.out
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, export.Filename(title, export.ExtDoc))
		}
		if err := writeOutput(ctx, path, doc, export.NewPDFPrinter(chromePath, 0)); err != nil {
			return err
		}
		status("Đã lưu: " + path)
	}
	if o.copy {
		if err := export.Clipboard(doc); err != nil {
			return err
		}
		status("Đã sao chép vào clipboard")
	}
	return nil
}

// show prints the styled view on a terminal and plain text otherwise.
func show(doc render.Document, width int) error {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		fmt.Print(render.PlainText(doc))
		fmt.Println()
		return nil
	}
	if width <= 0 {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			width = w
		}
	}
	s, err := render.Terminal(doc, render.TerminalOptions{Width: width})
	if err != nil {
		return err
	}
	fmt.Print(s)
	return nil
}

// pdfRenderer is the part of export.PDFPrinter writeOutput needs.
type pdfRenderer interface {
	PDF(ctx context.Context, doc render.Document) ([]byte, error)
}

func writeOutput(ctx context.Context, path string, doc render.Document, pdf pdfRenderer) error {
	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case export.ExtTXT:
		data = []byte(render.PlainText(doc))
	case ".md":
		data = []byte(render.Markdown(doc))
	case ".html", ".htm":
		data = []byte(render.HTML(doc))
	case export.ExtDoc:
		data = export.Doc(doc)
	case export.ExtPDF:
		b, err := pdf.PDF(ctx, doc)
		if err != nil {
			return err
		}
		data = b
	default:
		return fmt.Errorf("unsupported output format %q (use .txt, .md, .html, .doc or .pdf)", filepath.Ext(path))
	}
	return os.WriteFile(path, data, 0o644)
}

// userFacing prefers the localized message for classified failures.
func userFacing(err error) string {
	if apperr.IsAppError(err) {
		return apperr.UserMessage(err)
	}
	return err.Error()
}
