package render

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

type formatter struct {
	render func(tag *token, inner, raw string) string

	standalone             bool
	noEmbed                bool
	keepNewlines           bool
	noLinks                bool
	noCosmetic             bool
	strip                  bool
	swallowTrailingNewline bool
	newlineCloses          bool
	sameTagCloses          bool
}

// Image placeholders used in Steam community posts. Older posts use the
// first, newer official posts the second.
var imagePlaceholders = strings.NewReplacer(
	"{STEAM_CLAN_IMAGE}", "https://steamcdn-a.akamaihd.net/steamcommunity/public/images/clans",
	"{STEAM_CLAN_LOC_IMAGE}", "https://cdn.akamai.steamstatic.com/steamcommunity/public/images/clans",
)

const spoilerStyle = "color: #000000;background-color: #000000;padding: 0px 8px;"

var formatters = map[string]*formatter{
	"b":   wrap("strong"),
	"i":   wrap("em"),
	"u":   wrap("u"),
	"s":   wrap("strike"),
	"sub": wrap("sub"),
	"sup": wrap("sup"),

	"strike": wrap("strike"),
	"table":  wrap("table"),
	"tr":     wrap("tr"),
	"th":     wrap("th"),
	"td":     wrap("td"),
	"h1":     wrap("h1"),
	"h2":     wrap("h2"),
	"h3":     wrap("h3"),

	"hr": {
		standalone: true,
		render:     func(*token, string, string) string { return "<hr />" },
	},
	"center": {
		render: func(_ *token, inner, _ string) string {
			return `<div style="text-align:center;">` + inner + `</div>`
		},
	},
	"color": {
		render: renderColor,
	},
	"quote": {
		strip:                  true,
		swallowTrailingNewline: true,
		render: func(_ *token, inner, _ string) string {
			return "<blockquote>" + inner + "</blockquote>"
		},
	},
	"code": {
		noEmbed:                true,
		keepNewlines:           true,
		noLinks:                true,
		noCosmetic:             true,
		swallowTrailingNewline: true,
		render: func(_ *token, inner, _ string) string {
			return "<code>" + inner + "</code>"
		},
	},
	"url": {
		noLinks: true,
		strip:   true,
		render:  renderURL,
	},
	"list": {
		keepNewlines:           true,
		strip:                  true,
		swallowTrailingNewline: true,
		render:                 renderList,
	},
	"*": {
		strip:         true,
		newlineCloses: true,
		sameTagCloses: true,
		render: func(_ *token, inner, _ string) string {
			return "<li>" + inner + "</li>"
		},
	},

	"olist": {
		keepNewlines:           true,
		strip:                  true,
		swallowTrailingNewline: true,
		render: func(_ *token, inner, _ string) string {
			return "<ol>" + inner + "</ol>"
		},
	},
	"noparse": {
		noEmbed:    true,
		noCosmetic: true,
		render:     func(_ *token, inner, _ string) string { return inner },
	},
	"spoiler": {
		render: func(_ *token, inner, _ string) string {
			return `<span class="bb_spoiler" style="` + spoilerStyle + `">` + inner + `</span>`
		},
	},
	"img": {
		noEmbed: true,
		noLinks: true,
		strip:   true,
		render:  renderImage,
	},
	"previewyoutube": {
		noEmbed: true,
		strip:   true,
		render:  renderYouTube,
	},
}

func wrap(tag string) *formatter {
	return &formatter{
		render: func(_ *token, inner, _ string) string {
			return "<" + tag + ">" + inner + "</" + tag + ">"
		},
	}
}

var colorRe = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]+)$`)

func renderColor(tag *token, inner, _ string) string {
	color := strings.TrimSpace(tag.value)
	if !colorRe.MatchString(color) {
		color = "inherit"
	}
	return `<span style="color:` + color + `;">` + inner + `</span>`
}

var listStyles = map[string]string{
	"1":  "decimal",
	"01": "decimal-leading-zero",
	"a":  "lower-alpha",
	"A":  "upper-alpha",
	"i":  "lower-roman",
	"I":  "upper-roman",
}

func renderList(tag *token, inner, _ string) string {
	if style, ok := listStyles[tag.value]; ok {
		return `<ol style="list-style-type:` + style + `;">` + inner + `</ol>`
	}
	return "<ul>" + inner + "</ul>"
}

// safeHref returns href with a scheme, or "" when the scheme is unsafe.
func safeHref(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	scheme := strings.ToLower(strings.Map(func(r rune) rune {
		if r <= ' ' {
			return -1
		}
		return r
	}, href))
	for _, bad := range []string{"javascript:", "vbscript:", "data:"} {
		if strings.HasPrefix(scheme, bad) {
			return ""
		}
	}
	if !strings.Contains(href, "://") &&
		!strings.HasPrefix(href, "/") &&
		!strings.HasPrefix(href, "#") &&
		!strings.HasPrefix(strings.ToLower(href), "mailto:") {
		href = "http://" + href
	}
	return href
}

func renderURL(tag *token, inner, raw string) string {
	target := tag.value
	if target == "" {
		target = raw
	}
	href := safeHref(target)
	if href == "" {
		return inner
	}
	return anchor(href, inner)
}

func renderImage(tag *token, _, raw string) string {
	src := raw
	switch {
	case tag.options["src"] != "":
		src = tag.options["src"]
	case tag.value != "":
		src = tag.value
	}
	src = safeHref(imagePlaceholders.Replace(strings.TrimSpace(src)))
	if src == "" {
		return ""
	}
	return `<img style="display: inline-block; max-width: 100%;" src="` + html.EscapeString(src) + `"></img>`
}

// renderYouTube turns [previewyoutube=<id>;<qualifier>] into a plain link.
// Anything without the ";" separator renders as nothing.
func renderYouTube(tag *token, _, _ string) string {
	id, _, ok := strings.Cut(tag.value, ";")
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return ""
	}
	link := "https://youtu.be/" + url.PathEscape(id)
	return anchor(link, html.EscapeString(link))
}
