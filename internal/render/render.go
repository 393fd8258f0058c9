// Package render converts Steam's BBCode dialect into HTML suitable for a
// feed item description. All text is HTML-escaped.
package render

import (
	"html"
	"regexp"
	"strings"

	"steamnews/internal/domain"
)

// Content renders body according to its format. Plain content is returned
// unchanged.
func Content(format domain.ContentFormat, body string) string {
	if format == domain.FormatBBCode {
		return BBCode(body)
	}
	return body
}

// BBCode renders src to HTML. Malformed constructs degrade to empty output
// or literal text; rendering never fails.
func BBCode(src string) string {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	return renderNodes(parse(src), rootOptions)
}

type textOptions struct {
	newlines bool
	links    bool
	cosmetic bool
}

var rootOptions = textOptions{newlines: true, links: true, cosmetic: true}

func renderNodes(nodes []*node, opts textOptions) string {
	var sb strings.Builder
	swallow := false
	for _, n := range nodes {
		if n.tag == nil {
			text := n.text
			if swallow {
				text = strings.TrimPrefix(text, "\n")
			}
			swallow = false
			sb.WriteString(formatText(text, opts))
			continue
		}
		sb.WriteString(renderTag(n, opts))
		swallow = n.format.swallowTrailingNewline
	}
	return sb.String()
}

func renderTag(n *node, parent textOptions) string {
	f := n.format
	if f.standalone {
		return f.render(n.tag, "", "")
	}

	opts := textOptions{
		newlines: !f.keepNewlines,
		links:    parent.links && !f.noLinks,
		cosmetic: parent.cosmetic && !f.noCosmetic,
	}

	raw := n.raw
	if f.strip {
		raw = strings.TrimSpace(raw)
	}

	var inner string
	if f.noEmbed {
		inner = formatText(raw, opts)
	} else {
		children := n.children
		if f.strip {
			children = stripNodes(children)
		}
		inner = renderNodes(children, opts)
	}

	return f.render(n.tag, inner, raw)
}

// stripNodes trims whitespace from the leading and trailing text nodes.
func stripNodes(nodes []*node) []*node {
	out := append([]*node(nil), nodes...)
	for len(out) > 0 && out[0].tag == nil {
		t := strings.TrimLeft(out[0].text, " \t\n")
		if t != "" {
			out[0] = &node{text: t}
			break
		}
		out = out[1:]
	}
	for len(out) > 0 && out[len(out)-1].tag == nil {
		last := len(out) - 1
		t := strings.TrimRight(out[last].text, " \t\n")
		if t != "" {
			out[last] = &node{text: t}
			break
		}
		out = out[:last]
	}
	return out
}

var (
	linkRe   = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"'\[\]]+`)
	cosmetic = strings.NewReplacer(
		"---", "&#8212;",
		"--", "&#8211;",
		"...", "&#8230;",
		"(c)", "&copy;",
		"(reg)", "&reg;",
		"(tm)", "&trade;",
	)
)

func formatText(s string, opts textOptions) string {
	if s == "" {
		return ""
	}
	if !opts.links {
		return escapeText(s, opts)
	}

	var sb strings.Builder
	last := 0
	for _, loc := range linkRe.FindAllStringIndex(s, -1) {
		start, end := loc[0], loc[1]
		for end > start && strings.ContainsRune(".,;:!?)", rune(s[end-1])) {
			end--
		}
		if start < last || end <= start {
			continue
		}
		sb.WriteString(escapeText(s[last:start], opts))
		sb.WriteString(anchor(s[start:end], html.EscapeString(s[start:end])))
		last = end
	}
	sb.WriteString(escapeText(s[last:], opts))
	return sb.String()
}

func escapeText(s string, opts textOptions) string {
	s = html.EscapeString(s)
	if opts.cosmetic {
		s = cosmetic.Replace(s)
	}
	if opts.newlines {
		s = strings.ReplaceAll(s, "\n", "<br />")
	}
	return s
}

func anchor(href, inner string) string {
	return `<a rel="nofollow" href="` + html.EscapeString(href) + `">` + inner + `</a>`
}
