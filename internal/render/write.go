package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rpggio/inboxtriage/internal/triage"
)

const (
	MarkdownFile = "daily_summary.md"
	HTMLFile     = "daily_summary.html"
)

// Files are the paths written by WriteFiles.
type Files struct {
	Markdown string
	HTML     string
}

// WriteFiles renders res into dir, replacing the previous summary.
func WriteFiles(dir string, res *triage.Result) (Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("creating output dir: %w", err)
	}

	text := Markdown(res)
	page, err := HTML("Daily Email Triage", text)
	if err != nil {
		return Files{}, err
	}

	files := Files{
		Markdown: filepath.Join(dir, MarkdownFile),
		HTML:     filepath.Join(dir, HTMLFile),
	}
	if err := os.WriteFile(files.Markdown, []byte(text), 0o644); err != nil {
		return Files{}, fmt.Errorf("writing summary: %w", err)
	}
	if err := os.WriteFile(files.HTML, []byte(page), 0o644); err != nil {
		return Files{}, fmt.Errorf("writing summary: %w", err)
	}
	return files, nil
}
