package validation

import (
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/emergent-company/epf-eval/internal/tools"
)

// toolPrefix marks inline code spans that name an EPF tool.
const toolPrefix = "epf_"

// PromptToolReferences returns the distinct tool names the markdown prompt
// mentions in inline code spans, in order of first appearance.
func PromptToolReferences(prompt string) []string {
	source := []byte(prompt)
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(source))

	seen := map[string]bool{}
	var refs []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		span, ok := n.(*ast.CodeSpan)
		if !ok {
			return ast.WalkContinue, nil
		}
		var b strings.Builder
		for c := span.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				b.Write(t.Segment.Value(source))
			}
		}
		name := strings.TrimSpace(b.String())
		if strings.HasPrefix(name, toolPrefix) && !seen[name] {
			seen[name] = true
			refs = append(refs, name)
		}
		return ast.WalkSkipChildren, nil
	})
	return refs
}

// UnknownPromptReferences lists tool names referenced by the prompt that
// are missing from defs.
func UnknownPromptReferences(prompt string, defs []tools.ToolDef) []string {
	known := map[string]bool{}
	for _, td := range defs {
		known[td.Name] = true
	}
	var unknown []string
	for _, ref := range PromptToolReferences(prompt) {
		if !known[ref] {
			unknown = append(unknown, ref)
		}
	}
	sort.Strings(unknown)
	return unknown
}
