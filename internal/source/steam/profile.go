package steam

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// PlatformSources are apps whose news covers Steam itself rather than a game.
// They never appear in a profile's game list.
var PlatformSources = map[int64]string{
	753:    "Steam",
	221410: "Steam for Linux",
	223300: "Steam Hardware",
	250820: "SteamVR",
	353370: "Steam Controller",
	353380: "Steam Link",
	358720: "SteamVR Developer Hardware",
	596420: "Steam Audio",
	593110: "Steam News",
	613220: "Steam 360 Video Player",
}

// ProfileScanner reads the game list of a public Steam community profile.
type ProfileScanner struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	logger    *slog.Logger
}

func NewProfileScanner(baseURL, userAgent string, timeout time.Duration, logger *slog.Logger) *ProfileScanner {
	return &ProfileScanner{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		timeout:   timeout,
		logger:    logger.With("component", "steam_profile"),
	}
}

// ProfileURL returns the games XML location for a numeric steam id or a
// vanity name.
func (p *ProfileScanner) ProfileURL(idOrVanity string) string {
	idOrVanity = strings.TrimSpace(idOrVanity)
	if _, err := strconv.ParseUint(idOrVanity, 10, 64); err == nil {
		return p.baseURL + "/profiles/" + idOrVanity + "/games?xml=1"
	}
	return p.baseURL + "/id/" + idOrVanity + "/games?xml=1"
}

// Discover returns the profile's games merged with PlatformSources.
func (p *ProfileScanner) Discover(ctx context.Context, idOrVanity string) (map[int64]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	games, err := p.scan(p.ProfileURL(idOrVanity))
	if err != nil {
		return nil, err
	}

	for id, name := range PlatformSources {
		games[id] = name
	}
	return games, nil
}

func (p *ProfileScanner) scan(profileURL string) (map[int64]string, error) {
	games := make(map[int64]string)
	var profileErr string

	c := colly.NewCollector(colly.UserAgent(p.userAgent))
	if p.timeout > 0 {
		c.SetRequestTimeout(p.timeout)
	}

	c.OnXML("//game", func(e *colly.XMLElement) {
		raw := e.ChildText("appID")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			p.logger.Warn("skipping game with invalid app id", "app_id", raw)
			return
		}
		games[id] = e.ChildText("name")
	})

	c.OnXML("/response/error", func(e *colly.XMLElement) {
		profileErr = e.Text
	})

	p.logger.Info("reading profile games", "url", profileURL)

	if err := c.Visit(profileURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", profileURL, err)
	}
	if profileErr != "" {
		return nil, fmt.Errorf("profile %s: %s", profileURL, strings.TrimSpace(profileErr))
	}

	p.logger.Info("found games", "count", len(games))
	return games, nil
}
