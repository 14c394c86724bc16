// Package templates loads and renders the server-side HTML views.
package templates

import (
	"bufio"
	"bytes"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"loanpredictor/internal/logger"
)

var (
	lineNumberRe   = regexp.MustCompile(`:(\d+):`)
	templateCallRe = regexp.MustCompile(`\{\{-?\s*template\s+"([^"]+)"`)
)

// Renderer handles template rendering
type Renderer struct {
	mu        sync.RWMutex
	templates *template.Template
	debug     bool
	baseDir   string
	log       logger.Logger
}

// New parses every template under templateDir. In debug mode templates are
// re-parsed before each render.
func New(templateDir string, debug bool, log logger.Logger) (*Renderer, error) {
	if log == nil {
		log = logger.NewNoOp()
	}
	r := &Renderer{
		debug:   debug,
		baseDir: templateDir,
		log:     log,
	}

	if err := r.loadTemplates(); err != nil {
		return nil, err
	}
	return r, nil
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"formatMoney":  formatMoney,
		"percentWidth": percentWidth,
		"dict":         dict,
		"year":         func() int { return time.Now().Year() },
	}
}

// loadTemplates parses all templates with strict validation
func (r *Renderer) loadTemplates() error {
	tmpl := template.New("").Funcs(funcMap())

	var files []string
	for _, subdir := range []string{"layouts", "pages", "partials", "components"} {
		pattern := filepath.Join(r.baseDir, subdir, "*.html")
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("error globbing %s: %w", pattern, err)
		}
		files = append(files, matches...)
	}

	if len(files) == 0 {
		return fmt.Errorf("no template files found in %s", r.baseDir)
	}

	var parseErrors []string
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			parseErrors = append(parseErrors, fmt.Sprintf("%s: failed to read: %v", file, err))
			continue
		}
		if _, err := tmpl.New(filepath.Base(file)).Parse(string(content)); err != nil {
			parseErrors = append(parseErrors, formatTemplateError(file, string(content), err))
		}
	}

	if len(parseErrors) > 0 {
		for _, e := range parseErrors {
			r.log.Error("Template parse error", map[string]interface{}{"detail": e})
		}
		return fmt.Errorf("template parsing failed with %d error(s)", len(parseErrors))
	}

	if err := r.validateTemplateReferences(tmpl, files); err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	r.log.Debug("Templates loaded", map[string]interface{}{"files": len(files)})
	return nil
}

// formatTemplateError formats a template error with the surrounding lines
func formatTemplateError(file, content string, err error) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", file, err)

	lineNum := extractLineNumber(err.Error())
	if lineNum <= 0 {
		return sb.String()
	}

	lines := strings.Split(content, "\n")
	start := lineNum - 3
	if start < 0 {
		start = 0
	}
	end := lineNum + 2
	if end > len(lines) {
		end = len(lines)
	}

	for i := start; i < end; i++ {
		marker := "   "
		if i+1 == lineNum {
			marker = ">>>"
		}
		fmt.Fprintf(&sb, "\n%s %4d | %s", marker, i+1, lines[i])
	}
	return sb.String()
}

// extractLineNumber pulls the ":LINE:" part out of a template error
func extractLineNumber(errStr string) int {
	matches := lineNumberRe.FindStringSubmatch(errStr)
	if len(matches) < 2 {
		return 0
	}
	var lineNum int
	fmt.Sscanf(matches[1], "%d", &lineNum)
	return lineNum
}

// validateTemplateReferences checks that every {{template "name"}} call has a definition
func (r *Renderer) validateTemplateReferences(tmpl *template.Template, files []string) error {
	defined := make(map[string]bool)
	for _, t := range tmpl.Templates() {
		if t.Name() != "" {
			defined[t.Name()] = true
		}
	}

	var refErrors []string
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			continue
		}

		scanner := bufio.NewScanner(bytes.NewReader(content))
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := scanner.Text()
			for _, match := range templateCallRe.FindAllStringSubmatch(line, -1) {
				if !defined[match[1]] {
					refErrors = append(refErrors, fmt.Sprintf("%s:%d: undefined template %q", file, lineNum, match[1]))
				}
			}
		}
	}

	if len(refErrors) > 0 {
		for _, e := range refErrors {
			r.log.Error("Undefined template reference", map[string]interface{}{"detail": e})
		}
		return fmt.Errorf("found %d undefined template reference(s)", len(refErrors))
	}
	return nil
}

// Reload re-parses the template directory. A failed reload keeps the
// previous set.
func (r *Renderer) Reload() error {
	return r.loadTemplates()
}

// Render executes the named template into a buffer and writes it with the
// given status. A template failure becomes a plain 500.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data interface{}) error {
	if r.debug {
		if err := r.Reload(); err != nil {
			r.log.WithError(err).Warn("Template reload failed, keeping previous set", nil)
		}
	}

	var buf bytes.Buffer
	if err := r.ExecuteTemplate(&buf, name, data); err != nil {
		r.log.WithError(err).Error("Template render failed", map[string]interface{}{"template": name})
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// ExecuteTemplate executes a template to a writer
func (r *Renderer) ExecuteTemplate(w io.Writer, name string, data interface{}) error {
	r.mu.RLock()
	tmpl := r.templates
	r.mu.RUnlock()
	return tmpl.ExecuteTemplate(w, name, data)
}

// Template functions

// formatMoney renders a rupee amount with thousands separators and no fraction
func formatMoney(v interface{}) string {
	d, ok := toDecimal(v)
	if !ok {
		return fmt.Sprint(v)
	}
	d = d.Round(0)
	if d.IsNegative() {
		return "-₹" + humanize.Comma(d.Neg().IntPart())
	}
	return "₹" + humanize.Comma(d.IntPart())
}

// percentWidth turns 0-100 into a CSS width, clamped
func percentWidth(p int) template.CSS {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return template.CSS(fmt.Sprintf("width: %d%%", p))
}

func toDecimal(v interface{}) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case float64:
		return decimal.NewFromFloat(val), true
	case decimal.Decimal:
		return val, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		return d, err == nil
	}
	return decimal.Zero, false
}

// dict creates a map from key-value pairs
func dict(values ...interface{}) map[string]interface{} {
	if len(values)%2 != 0 {
		return nil
	}
	result := make(map[string]interface{}, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		result[key] = values[i+1]
	}
	return result
}
