package render

import (
	"regexp"
	"strings"
)

type tokenKind int

const (
	tokenText tokenKind = iota
	tokenNewline
	tokenOpen
	tokenClose
)

type token struct {
	kind    tokenKind
	name    string
	value   string
	options map[string]string
	text    string
	start   int
	end     int
}

var (
	tagRe    = regexp.MustCompile(`^\[(/?)([a-zA-Z0-9*]+)(=[^\]\n]*|\s[^\]\n]*)?\]`)
	optionRe = regexp.MustCompile(`([a-zA-Z0-9_-]+)\s*=\s*("[^"]*"|'[^']*'|[^\s"']+)`)
)

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// tokenize splits src into text, newline and tag tokens. Brackets that do
// not form a known tag stay part of the surrounding text.
func tokenize(src string) []token {
	var tokens []token
	textStart := 0

	flushText := func(end int) {
		for textStart < end {
			nl := strings.IndexByte(src[textStart:end], '\n')
			if nl < 0 {
				tokens = append(tokens, token{kind: tokenText, text: src[textStart:end], start: textStart, end: end})
				textStart = end
				return
			}
			if nl > 0 {
				tokens = append(tokens, token{kind: tokenText, text: src[textStart : textStart+nl], start: textStart, end: textStart + nl})
			}
			tokens = append(tokens, token{kind: tokenNewline, text: "\n", start: textStart + nl, end: textStart + nl + 1})
			textStart += nl + 1
		}
	}

	for i := 0; i < len(src); {
		if src[i] != '[' {
			i++
			continue
		}
		m := tagRe.FindStringSubmatch(src[i:])
		if m == nil {
			i++
			continue
		}
		name := strings.ToLower(m[2])
		if _, known := formatters[name]; !known {
			i++
			continue
		}

		flushText(i)
		t := token{name: name, text: m[0], start: i, end: i + len(m[0])}
		if m[1] == "/" {
			t.kind = tokenClose
		} else {
			t.kind = tokenOpen
			t.value, t.options = parseOptions(m[3])
		}
		tokens = append(tokens, t)
		i = t.end
		textStart = i
	}
	flushText(len(src))

	return tokens
}

func parseOptions(rest string) (string, map[string]string) {
	if rest == "" {
		return "", nil
	}
	if rest[0] == '=' {
		return unquote(rest[1:]), nil
	}
	options := make(map[string]string)
	for _, m := range optionRe.FindAllStringSubmatch(rest, -1) {
		options[strings.ToLower(m[1])] = unquote(m[2])
	}
	return "", options
}

type node struct {
	tag      *token
	format   *formatter
	text     string
	children []*node
	raw      string
}

type parser struct {
	src    string
	tokens []token
	pos    int
}

func parse(src string) []*node {
	p := &parser{src: src, tokens: tokenize(src)}
	return p.parseUntil(nil, nil)
}

// parseUntil collects nodes until the token stream closes open, either with
// its own closing tag or implicitly through a closing tag of an ancestor.
// The closing token is left for the caller.
func (p *parser) parseUntil(open *node, ancestors []string) []*node {
	var nodes []*node

	for p.pos < len(p.tokens) {
		t := &p.tokens[p.pos]

		switch t.kind {
		case tokenText:
			nodes = append(nodes, &node{text: t.text})
			p.pos++

		case tokenNewline:
			if open != nil && open.format.newlineCloses {
				return nodes
			}
			nodes = append(nodes, &node{text: "\n"})
			p.pos++

		case tokenClose:
			if open != nil && t.name == open.tag.name {
				return nodes
			}
			if contains(ancestors, t.name) {
				return nodes
			}
			nodes = append(nodes, &node{text: t.text})
			p.pos++

		case tokenOpen:
			if open != nil && open.format.sameTagCloses && t.name == open.tag.name {
				return nodes
			}
			nodes = append(nodes, p.parseTag(t, ancestors))
		}
	}

	return nodes
}

func (p *parser) parseTag(t *token, ancestors []string) *node {
	f := formatters[t.name]
	n := &node{tag: t, format: f}
	p.pos++

	if f.standalone {
		return n
	}

	if f.noEmbed {
		if end, ok := p.findClose(t.name); ok {
			n.raw = p.src[t.end:p.tokens[end].start]
			p.pos = end + 1
		}
		return n
	}

	n.children = p.parseUntil(n, append(ancestors, t.name))

	innerEnd := len(p.src)
	if p.pos < len(p.tokens) {
		next := p.tokens[p.pos]
		innerEnd = next.start
		if next.kind == tokenClose && next.name == t.name {
			p.pos++
		}
	}
	n.raw = p.src[t.end:innerEnd]

	return n
}

// findClose returns the index of the closing token matching an opening tag
// just consumed, honouring nested tags of the same name.
func (p *parser) findClose(name string) (int, bool) {
	depth := 0
	for i := p.pos; i < len(p.tokens); i++ {
		t := p.tokens[i]
		if t.name != name {
			continue
		}
		switch t.kind {
		case tokenOpen:
			depth++
		case tokenClose:
			if depth == 0 {
				return i, true
			}
			depth--
		}
	}
	return 0, false
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
