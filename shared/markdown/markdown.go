// Package markdown renders reply bodies into sanitized HTML.
package markdown

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// replyLinkRegex matches >>N after goldmark has escaped the body.
var replyLinkRegex = regexp.MustCompile(`&gt;&gt;(\d+)`)

type TextProcessor struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func New() *TextProcessor {
	// no blockquote parser: a leading > is quoting or a reply link, not markup
	p := parser.NewParser(
		parser.WithBlockParsers(
			util.Prioritized(parser.NewThematicBreakParser(), 200),
			util.Prioritized(parser.NewListParser(), 300),
			util.Prioritized(parser.NewListItemParser(), 400),
			util.Prioritized(parser.NewCodeBlockParser(), 500),
			util.Prioritized(parser.NewFencedCodeBlockParser(), 700),
			util.Prioritized(parser.NewParagraphParser(), 1000),
		),
		parser.WithInlineParsers(parser.DefaultInlineParsers()...),
		parser.WithParagraphTransformers(parser.DefaultParagraphTransformers()...),
	)
	md := goldmark.New(
		goldmark.WithParser(p),
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(regexp.MustCompile("^reply-link$")).OnElements("a")
	policy.AllowAttrs("data-number").Matching(bluemonday.Integer).OnElements("a")
	policy.RequireNoFollowOnLinks(true)
	policy.AllowRelativeURLs(true)

	return &TextProcessor{md: md, policy: policy}
}

// Format renders body as markdown, turns >>N into links to reply N of the
// same thread and strips anything the policy does not allow. Raw HTML in the
// body is escaped, never rendered.
func (tp *TextProcessor) Format(body string) string {
	var buf bytes.Buffer
	if err := tp.md.Convert([]byte(body), &buf); err != nil {
		return tp.policy.Sanitize(body)
	}
	linked := replyLinkRegex.ReplaceAllString(strings.TrimSpace(buf.String()),
		`<a class="reply-link" href="#reply-$1" data-number="$1">&gt;&gt;$1</a>`)
	return tp.policy.Sanitize(linked)
}
