package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"giaoan/api/internal/config"
	"giaoan/api/internal/logger"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "generate":
		err = runGenerate(os.Args[2:])
	case "render":
		err = runRender(os.Args[2:])
	case "key":
		err = runKey(os.Args[2:])
	case "version":
		fmt.Println("giaoan", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		fail(err)
	}
}

func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, nil, err
	}
	return cfg, lg, nil
}

func status(msg string) {
	fmt.Fprintln(os.Stderr, okStyle.Render("✓")+" "+msg)
}

func note(msg string) {
	fmt.Fprintln(os.Stderr, infoStyle.Render(msg))
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, errStyle.Render("✗")+" "+userFacing(err))
	os.Exit(1)
}

func printUsage() {
	fmt.Println("giaoan - soạn giáo án từ ảnh sách giáo khoa")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  giaoan generate [flags] <image>...   Generate a lesson plan from textbook photos")
	fmt.Println("  giaoan render --plan plan.json       Re-render a saved plan")
	fmt.Println("  giaoan key set [key]                 Store the Gemini API key")
	fmt.Println("  giaoan key show                      Show the stored key (masked)")
	fmt.Println("  giaoan key clear                     Remove the stored key")
	fmt.Println("  giaoan version                       Print the version")
	fmt.Println()
	fmt.Println("Run 'giaoan generate -h' for generation flags.")
}
