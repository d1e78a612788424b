// Package fmtx is the source-code formatting subsystem. It is a pure utility
// over external formatting engines and shares the codebase with the worker
// core without being consumed by it: its whole contract is "format text given
// a file-kind tag and options, or report an error".
//
// Go sources are formatted with gofumpt, JSON with an indentation round-trip
// that preserves key order, and Markdown by reformatting fenced go/json code
// blocks while leaving prose untouched.
package fmtx

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	gofumpt "mvdan.cc/gofumpt/format"
)

// FileKind tags the formatter to use for a piece of text.
type FileKind int

const (
	KindUnsupported FileKind = iota
	KindGo
	KindJSON
	KindMarkdown
)

func (k FileKind) String() string {
	switch k {
	case KindGo:
		return "go"
	case KindJSON:
		return "json"
	case KindMarkdown:
		return "markdown"
	default:
		return "unsupported"
	}
}

// KindFor maps a file path to its FileKind by extension.
func KindFor(path string) FileKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return KindGo
	case ".json", ".jsonc":
		return KindJSON
	case ".md", ".mkd", ".mkdn", ".mdwn", ".mdown", ".markdown":
		return KindMarkdown
	default:
		return KindUnsupported
	}
}

// ProseWrap controls Markdown prose handling. Only Preserve is implemented;
// the field exists so configurations resolve the same way everywhere.
type ProseWrap int

const (
	ProseWrapPreserve ProseWrap = iota
	ProseWrapAlways
	ProseWrapNever
)

// Options are formatting options. Zero values resolve to defaults.
type Options struct {
	UseTabs     bool
	IndentWidth int // default 2
	LineWidth   int // default 80
	ProseWrap   ProseWrap
	// ExtraRules enables gofumpt's stricter, more opinionated rules.
	ExtraRules bool
}

// Resolve overlays explicit settings over defaults: an explicit option always
// wins over the configured default.
func (o Options) Resolve() Options {
	if o.IndentWidth <= 0 {
		o.IndentWidth = 2
	}
	if o.LineWidth <= 0 {
		o.LineWidth = 80
	}
	return o
}

// Format formats text according to kind. It returns the formatted text, which
// equals the input when it is already formatted.
func Format(kind FileKind, text string, opts Options) (string, error) {
	opts = opts.Resolve()
	switch kind {
	case KindGo:
		return formatGo(text, opts)
	case KindJSON:
		return formatJSON(text, opts)
	case KindMarkdown:
		return formatMarkdown(text, opts)
	default:
		return "", fmt.Errorf("fmtx: unsupported file kind")
	}
}

func formatGo(text string, opts Options) (string, error) {
	out, err := gofumpt.Source([]byte(text), gofumpt.Options{ExtraRules: opts.ExtraRules})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func formatJSON(text string, opts Options) (string, error) {
	src := []byte(text)
	if !json.Valid(src) {
		return "", fmt.Errorf("fmtx: invalid JSON")
	}
	indent := strings.Repeat(" ", opts.IndentWidth)
	if opts.UseTabs {
		indent = "\t"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, src, "", indent); err != nil {
		return "", err
	}
	buf.WriteByte('\n')
	return buf.String(), nil
}

// formatMarkdown rewrites fenced code blocks tagged as go/json and leaves
// everything else byte-for-byte intact.
func formatMarkdown(text string, opts Options) (string, error) {
	lines := strings.Split(text, "\n")
	var out []string

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		fence, tag := fenceStart(line)
		if fence == "" {
			out = append(out, line)
			continue
		}

		// Collect the block body up to the closing fence.
		var body []string
		closed := false
		j := i + 1
		for ; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == fence {
				closed = true
				break
			}
			body = append(body, lines[j])
		}
		if !closed {
			out = append(out, lines[i:]...)
			break
		}

		out = append(out, line)
		out = append(out, formatFence(tag, body, opts)...)
		out = append(out, lines[j])
		i = j
	}
	return strings.Join(out, "\n"), nil
}

func formatFence(tag string, body []string, opts Options) []string {
	var kind FileKind
	switch tag {
	case "go", "golang":
		kind = KindGo
	case "json", "jsonc":
		kind = KindJSON
	default:
		return body
	}
	formatted, err := Format(kind, strings.Join(body, "\n")+"\n", opts)
	if err != nil {
		// Unformattable snippet, keep as written.
		return body
	}
	return strings.Split(strings.TrimSuffix(formatted, "\n"), "\n")
}

// fenceStart reports the fence terminator and the lowercase info tag when the
// line opens a fenced code block.
func fenceStart(line string) (fence, tag string) {
	trimmed := strings.TrimSpace(line)
	for _, marker := range []string{"```", "~~~"} {
		if strings.HasPrefix(trimmed, marker) {
			info := strings.TrimSpace(strings.TrimPrefix(trimmed, marker))
			return marker, strings.ToLower(info)
		}
	}
	return "", ""
}
