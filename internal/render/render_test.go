package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"steamnews/internal/domain"
)

func TestBBCode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bold",
			in:   "[b]bold[/b]",
			want: "<strong>bold</strong>",
		},
		{
			name: "simple table",
			in:   "[table][tr][th]Class[/th][td]Scout[/td][/tr][/table]",
			want: "<table><tr><th>Class</th><td>Scout</td></tr></table>",
		},
		{
			name: "headings and strike",
			in:   "[h1]Patch[/h1][strike]old[/strike]",
			want: "<h1>Patch</h1><strike>old</strike>",
		},
		{
			name: "legacy image placeholder",
			in:   "[img]{STEAM_CLAN_IMAGE}/27766192/abc.png[/img]",
			want: `<img style="display: inline-block; max-width: 100%;" src="https://steamcdn-a.akamaihd.net/steamcommunity/public/images/clans/27766192/abc.png"></img>`,
		},
		{
			name: "current image placeholder via src option",
			in:   `[img src="{STEAM_CLAN_LOC_IMAGE}/1/banner.jpg"][/img]`,
			want: `<img style="display: inline-block; max-width: 100%;" src="https://cdn.akamai.steamstatic.com/steamcommunity/public/images/clans/1/banner.jpg"></img>`,
		},
		{
			name: "image markup is not rendered",
			in:   "[img]http://x/[b]y[/b].png[/img]",
			want: `<img style="display: inline-block; max-width: 100%;" src="http://x/[b]y[/b].png"></img>`,
		},
		{
			name: "video preview",
			in:   "[previewyoutube=dQw4w9WgXcQ;full][/previewyoutube]",
			want: `<a rel="nofollow" href="https://youtu.be/dQw4w9WgXcQ">https://youtu.be/dQw4w9WgXcQ</a>`,
		},
		{
			name: "video preview without qualifier keeps siblings",
			in:   "before [previewyoutube=dQw4w9WgXcQ][/previewyoutube] [b]after[/b]",
			want: "before  <strong>after</strong>",
		},
		{
			name: "video preview without value",
			in:   "[previewyoutube][/previewyoutube]ok",
			want: "ok",
		},
		{
			name: "noparse is verbatim",
			in:   "[noparse][b]x[/b] -- ok...[/noparse]",
			want: "[b]x[/b] -- ok...",
		},
		{
			name: "cosmetic substitutions outside noparse",
			in:   "wait -- what...",
			want: "wait &#8211; what&#8230;",
		},
		{
			name: "ordered list trims inner newlines",
			in:   "[olist]\n[*]one\n[*]two\n[/olist]",
			want: "<ol><li>one</li>\n<li>two</li></ol>",
		},
		{
			name: "spoiler",
			in:   "[spoiler]secret[/spoiler]",
			want: `<span class="bb_spoiler" style="color: #000000;background-color: #000000;padding: 0px 8px;">secret</span>`,
		},
		{
			name: "url with target",
			in:   "[url=https://store.steampowered.com/app/440]TF2[/url]",
			want: `<a rel="nofollow" href="https://store.steampowered.com/app/440">TF2</a>`,
		},
		{
			name: "unsafe url scheme",
			in:   "[url=javascript:alert(1)]click[/url]",
			want: "click",
		},
		{
			name: "bare link",
			in:   "See https://example.com/patch.",
			want: `See <a rel="nofollow" href="https://example.com/patch">https://example.com/patch</a>.`,
		},
		{
			name: "newlines",
			in:   "a\r\nb",
			want: "a<br />b",
		},
		{
			name: "html is escaped",
			in:   `<script>alert("x")</script>`,
			want: "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;",
		},
		{
			name: "unknown tag is literal",
			in:   "[foo]x[/foo]",
			want: "[foo]x[/foo]",
		},
		{
			name: "stray close tag is literal",
			in:   "x[/b]",
			want: "x[/b]",
		},
		{
			name: "unclosed tag runs to the end",
			in:   "[i]tilt",
			want: "<em>tilt</em>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BBCode(tt.in))
		})
	}
}

func TestContent(t *testing.T) {
	body := "[b]x[/b] <p>kept</p>"

	assert.Equal(t, body, Content(domain.FormatPlain, body))
	assert.Equal(t, "<strong>x</strong> &lt;p&gt;kept&lt;/p&gt;", Content(domain.FormatBBCode, body))
}
