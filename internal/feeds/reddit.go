package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/authrax/trending/internal/model"
)

// redditListing is the subset of Reddit's listing payload we consume.
// Decoding into a fixed shape up front keeps field access honest: anything
// the shape doesn't carry simply decodes to its zero value.
type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Permalink   string  `json:"permalink"`
	Subreddit   string  `json:"subreddit"`
	Author      string  `json:"author"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Stickied    bool    `json:"stickied"`
	Over18      bool    `json:"over_18"`
	CreatedUTC  float64 `json:"created_utc"`
}

// fetchSubreddit retrieves the top listing for one subreddit, filtered
// server-side to the timeframe's window.
func (f *Fetcher) fetchSubreddit(ctx context.Context, sub string, tf model.Timeframe) ([]model.TrendingItem, error) {
	ctx, cancel := context.WithTimeout(ctx, sourceTimeout)
	defer cancel()

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	listURL := fmt.Sprintf("%s/r/%s/top.json?t=%s&limit=%d",
		f.redditBaseURL, url.PathEscape(sub), tf.RedditWindow(), maxCommunityPosts)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch r/%s: %w", sub, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch r/%s: status %d", sub, resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode r/%s listing: %w", sub, err)
	}

	var items []model.TrendingItem
	for _, child := range listing.Data.Children {
		p := child.Data
		// Pinned and age-restricted posts don't belong in trending.
		if p.Stickied || p.Over18 {
			continue
		}
		if p.Title == "" || p.Permalink == "" {
			continue
		}
		item := model.TrendingItem{
			ItemType:    model.ItemTypePost,
			SourceID:    "https://www.reddit.com" + p.Permalink,
			Title:       p.Title,
			Description: truncate(p.Selftext, maxDescriptionLen),
			SourceName:  "r/" + p.Subreddit,
			Score:       p.Score,
			NumComments: p.NumComments,
			Author:      p.Author,
		}
		if p.CreatedUTC > 0 {
			t := time.Unix(int64(p.CreatedUTC), 0).UTC()
			item.PublishedAt = &t
		}
		items = append(items, item)
	}
	return items, nil
}
