// Package batch runs the recognizer over a directory of captcha images and
// reports how many produced a computable answer.
package batch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Brownie44l1/captcha-api/internal/model"
	"github.com/charmbracelet/lipgloss"
)

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

// Solver recognizes and evaluates one encoded image.
type Solver interface {
	SolveBytes(data []byte) (model.Result, error)
}

// Summary counts outcomes. A file succeeds when its text evaluates to a value.
type Summary struct {
	Total   int
	Success int
	Failed  int
}

// Accuracy is the success percentage, 0 for an empty run.
func (s Summary) Accuracy() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Success) / float64(s.Total) * 100
}

// ListImages returns the image files directly inside dir, sorted by name.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading test directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

// Run solves every image in dir, writing one line per file and a summary to w.
// Per-file failures are counted, not returned.
func Run(dir string, solver Solver, w io.Writer) (Summary, error) {
	files, err := ListImages(dir)
	if err != nil {
		return Summary{}, err
	}
	if len(files) == 0 {
		return Summary{}, fmt.Errorf("no image files found in %s", dir)
	}

	fmt.Fprintf(w, "Testing %d images...\n", len(files))

	var sum Summary
	for _, name := range files {
		sum.Total++
		res, err := solveFile(filepath.Join(dir, name), solver)
		switch {
		case err != nil:
			sum.Failed++
			fmt.Fprintf(w, "%s %-20s %s\n", failStyle.Render("✖"), name, dimStyle.Render(err.Error()))
		case res.Value == nil:
			sum.Failed++
			fmt.Fprintf(w, "%s %-20s %q (not computable)\n", failStyle.Render("✖"), name, res.Text)
		default:
			sum.Success++
			fmt.Fprintf(w, "%s %-20s %q = %d\n", okStyle.Render("✓"), name, res.Text, *res.Value)
		}
	}

	rule := strings.Repeat("=", 40)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Total:    %d\n", sum.Total)
	fmt.Fprintf(w, "Success:  %s\n", okStyle.Render(fmt.Sprint(sum.Success)))
	fmt.Fprintf(w, "Failed:   %s\n", failStyle.Render(fmt.Sprint(sum.Failed)))
	fmt.Fprintf(w, "Accuracy: %.2f%%\n", sum.Accuracy())
	fmt.Fprintln(w, rule)
	return sum, nil
}

func solveFile(path string, solver Solver) (model.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Result{}, err
	}
	return solver.SolveBytes(data)
}
