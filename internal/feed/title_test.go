package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"steamnews/internal/domain"
)

func TestDisplayTitle(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		sources []string
		want    string
	}{
		{
			name:    "multiple sources",
			title:   "Patch",
			sources: []string{"Team Fortress 2", "Portal 2"},
			want:    "[Multiple] Patch",
		},
		{
			name:    "source name in title",
			title:   "Team Fortress 2 Update Released",
			sources: []string{"Team Fortress 2"},
			want:    "Team Fortress 2 Update Released",
		},
		{
			name:    "source name in title ignores case",
			title:   "team fortress 2 update released",
			sources: []string{"Team Fortress 2"},
			want:    "team fortress 2 update released",
		},
		{
			name:    "close match on a word group",
			title:   "Portl 2 is out",
			sources: []string{"Portal 2"},
			want:    "Portl 2 is out",
		},
		{
			name:    "title shorter than a closely matching source name",
			title:   "Update Notes",
			sources: []string{"Update Notes DLC"},
			want:    "Update Notes",
		},
		{
			name:    "unrelated title is prefixed",
			title:   "Patch 1.2",
			sources: []string{"Portal 2"},
			want:    "[Portal 2] Patch 1.2",
		},
		{
			name:  "no sources",
			title: "News",
			want:  "[Unknown?] News",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayTitle(tt.title, tt.sources))
		})
	}
}

func TestAttributionLabel(t *testing.T) {
	tests := []struct {
		name string
		item domain.NewsItem
		want string
	}{
		{
			name: "feed label wins",
			item: domain.NewsItem{FeedLabel: "Community Announcements", FeedName: "steam_community_announcements"},
			want: "Community Announcements",
		},
		{
			name: "community blog",
			item: domain.NewsItem{FeedName: "steam_community_blog"},
			want: "Steam Community Blog",
		},
		{
			name: "raw feed name",
			item: domain.NewsItem{FeedName: "pcgamer"},
			want: "pcgamer",
		},
		{
			name: "nothing known",
			want: "Unknown Source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AttributionLabel(tt.item))
		})
	}
}

func TestByline(t *testing.T) {
	assert.Equal(t,
		"<p><i>Via <b>PC Gamer</b> for Team Fortress 2, Portal 2</i></p>\n",
		Byline("PC Gamer", []string{"Team Fortress 2", "Portal 2"}))

	assert.Equal(t,
		"<p><i>Via <b>Unknown Source</b> for Unknown?</i></p>\n",
		Byline("Unknown Source", nil))

	assert.Equal(t,
		"<p><i>Via <b>Q&amp;A</b> for &lt;Beta&gt;</i></p>\n",
		Byline("Q&A", []string{"<Beta>"}))
}
