package fmtx_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/halvardssm/deno/fmtx"
)

func TestKindFor(t *testing.T) {
	cases := map[string]fmtx.FileKind{
		"main.go":        fmtx.KindGo,
		"dir/Main.GO":    fmtx.KindGo,
		"config.json":    fmtx.KindJSON,
		"config.jsonc":   fmtx.KindJSON,
		"README.md":      fmtx.KindMarkdown,
		"notes.markdown": fmtx.KindMarkdown,
		"script.ts":      fmtx.KindUnsupported,
		"Makefile":       fmtx.KindUnsupported,
	}
	for path, want := range cases {
		require.Equal(t, want, fmtx.KindFor(path), path)
	}
}

func TestFormat_Go(t *testing.T) {
	in := "package main\n\nimport \"fmt\"\n\nfunc main()   {\nfmt.Println( \"hi\" )\n}\n"
	want := "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"hi\")\n}\n"

	got, err := fmtx.Format(fmtx.KindGo, in, fmtx.Options{})
	require.NoError(t, err)
	require.Equal(t, want, got)

	// Already-formatted input is a fixpoint.
	again, err := fmtx.Format(fmtx.KindGo, got, fmtx.Options{})
	require.NoError(t, err)
	require.Equal(t, got, again)
}

func TestFormat_GoSyntaxError(t *testing.T) {
	_, err := fmtx.Format(fmtx.KindGo, "func broken {", fmtx.Options{})
	require.Error(t, err)
}

func TestFormat_JSONPreservesKeyOrder(t *testing.T) {
	in := `{"zebra":1,"alpha":{"b":2,"a":3}}`
	got, err := fmtx.Format(fmtx.KindJSON, in, fmtx.Options{})
	require.NoError(t, err)
	require.Equal(t, "{\n  \"zebra\": 1,\n  \"alpha\": {\n    \"b\": 2,\n    \"a\": 3\n  }\n}\n", got)
}

func TestFormat_JSONIndentOptions(t *testing.T) {
	in := `{"a":1}`

	got, err := fmtx.Format(fmtx.KindJSON, in, fmtx.Options{IndentWidth: 4})
	require.NoError(t, err)
	require.Equal(t, "{\n    \"a\": 1\n}\n", got)

	got, err = fmtx.Format(fmtx.KindJSON, in, fmtx.Options{UseTabs: true})
	require.NoError(t, err)
	require.Equal(t, "{\n\t\"a\": 1\n}\n", got)
}

func TestFormat_JSONInvalid(t *testing.T) {
	_, err := fmtx.Format(fmtx.KindJSON, `{"a":`, fmtx.Options{})
	require.Error(t, err)
}

func TestFormat_UnsupportedKind(t *testing.T) {
	_, err := fmtx.Format(fmtx.KindUnsupported, "anything", fmtx.Options{})
	require.Error(t, err)
}

func TestFormat_MarkdownRewritesTaggedFences(t *testing.T) {
	in := strings.Join([]string{
		"# Title",
		"",
		"Some  prose   with odd spacing stays put.",
		"",
		"```json",
		`{"b":1,"a":2}`,
		"```",
		"",
		"```text",
		"not   touched",
		"```",
		"",
	}, "\n")

	got, err := fmtx.Format(fmtx.KindMarkdown, in, fmtx.Options{})
	require.NoError(t, err)

	require.Contains(t, got, "Some  prose   with odd spacing stays put.")
	require.Contains(t, got, "{\n  \"b\": 1,\n  \"a\": 2\n}")
	require.Contains(t, got, "not   touched")
}

func TestFormat_MarkdownTildeFence(t *testing.T) {
	in := "~~~json\n{\"a\":1}\n~~~\n"
	got, err := fmtx.Format(fmtx.KindMarkdown, in, fmtx.Options{})
	require.NoError(t, err)
	require.Equal(t, "~~~json\n{\n  \"a\": 1\n}\n~~~\n", got)
}

func TestFormat_MarkdownUnterminatedFenceLeftAlone(t *testing.T) {
	in := "prose\n```json\n{\"a\":1}\n"
	got, err := fmtx.Format(fmtx.KindMarkdown, in, fmtx.Options{})
	require.NoError(t, err)
	require.Equal(t, in, got)
}

func TestFormat_MarkdownInvalidSnippetKeptAsWritten(t *testing.T) {
	in := "```go\nfunc broken {\n```\n"
	got, err := fmtx.Format(fmtx.KindMarkdown, in, fmtx.Options{})
	require.NoError(t, err)
	require.Equal(t, in, got)
}

func TestOptions_Resolve(t *testing.T) {
	r := fmtx.Options{}.Resolve()
	require.Equal(t, 2, r.IndentWidth)
	require.Equal(t, 80, r.LineWidth)

	r = fmtx.Options{IndentWidth: 8, LineWidth: 120}.Resolve()
	require.Equal(t, 8, r.IndentWidth)
	require.Equal(t, 120, r.LineWidth)
}
