package steam

// newsResponse is the GetNewsForApp v2 payload.
type newsResponse struct {
	AppNews *appNews `json:"appnews"`
}

type appNews struct {
	AppID     int64      `json:"appid"`
	NewsItems []newsItem `json:"newsitems"`
	Count     int        `json:"count"`
}

type newsItem struct {
	GID           string `json:"gid"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	IsExternalURL bool   `json:"is_external_url"`
	Author        string `json:"author"`
	Contents      string `json:"contents"`
	FeedLabel     string `json:"feedlabel"`
	Date          int64  `json:"date"`
	FeedName      string `json:"feedname"`
	FeedType      int    `json:"feed_type"`
	AppID         int64  `json:"appid"`
}

// feedTypeBBCode marks community announcements written in Steam's BBCode.
const feedTypeBBCode = 1
