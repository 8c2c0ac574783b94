package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://www.googleapis.com/youtube/v3"
	hydrateBatch   = 50
)

// Client is a thin YouTube Data API client. Every call reserves units
// against the quota manager first and refunds them if the request fails.
type Client struct {
	httpClient *http.Client
	quota      *QuotaManager
	apiKey     string
	baseURL    string
	userAgent  string
}

func NewClient(httpClient *http.Client, quota *QuotaManager, apiKey, userAgent string) *Client {
	return &Client{
		httpClient: httpClient,
		quota:      quota,
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		userAgent:  userAgent,
	}
}

type listResponse struct {
	Items         []json.RawMessage `json:"items"`
	NextPageToken string            `json:"nextPageToken"`
}

// MostPopular fetches the region's most-popular chart, up to maxPages pages
// of 50 items.
func (c *Client) MostPopular(ctx context.Context, region string, maxPages int) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Set("part", "snippet,statistics,contentDetails,topicDetails")
	params.Set("chart", "mostPopular")
	params.Set("regionCode", region)
	params.Set("maxResults", "50")

	return c.paginate(ctx, "videos.list", "/videos", params, maxPages)
}

// HydrateVideos fetches full video resources for the given ids, batched at
// the API's 50-id limit.
func (c *Client) HydrateVideos(ctx context.Context, ids []string) ([]json.RawMessage, error) {
	videos := make([]json.RawMessage, 0, len(ids))

	for start := 0; start < len(ids); start += hydrateBatch {
		end := start + hydrateBatch
		if end > len(ids) {
			end = len(ids)
		}

		params := url.Values{}
		params.Set("part", "snippet,statistics,contentDetails,topicDetails")
		params.Set("id", strings.Join(ids[start:end], ","))
		params.Set("maxResults", "50")

		items, err := c.paginate(ctx, "videos.list", "/videos", params, 1)
		if err != nil {
			return videos, err
		}
		videos = append(videos, items...)
	}

	return videos, nil
}

// SearchVideoIDs runs a keyword search and returns matching video ids.
// search.list is the most expensive endpoint, so pages stay bounded by the
// caller's max_pages setting.
func (c *Client) SearchVideoIDs(ctx context.Context, query string, publishedAfter *time.Time, maxPages int) ([]string, error) {
	params := url.Values{}
	params.Set("part", "id")
	params.Set("type", "video")
	params.Set("q", query)
	params.Set("order", "viewCount")
	params.Set("maxResults", "50")
	if publishedAfter != nil {
		params.Set("publishedAfter", publishedAfter.UTC().Format(time.RFC3339))
	}

	items, err := c.paginate(ctx, "search.list", "/search", params, maxPages)

	ids := make([]string, 0, len(items))
	for _, item := range items {
		var result struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
		}
		if jsonErr := json.Unmarshal(item, &result); jsonErr != nil {
			continue
		}
		if result.ID.VideoID != "" {
			ids = append(ids, result.ID.VideoID)
		}
	}

	return ids, err
}

// ChannelSubscribers fetches subscriber counts for the given channel ids.
func (c *Client) ChannelSubscribers(ctx context.Context, channelIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(channelIDs))

	for start := 0; start < len(channelIDs); start += hydrateBatch {
		end := start + hydrateBatch
		if end > len(channelIDs) {
			end = len(channelIDs)
		}

		params := url.Values{}
		params.Set("part", "statistics")
		params.Set("id", strings.Join(channelIDs[start:end], ","))
		params.Set("maxResults", "50")

		items, err := c.paginate(ctx, "channels.list", "/channels", params, 1)
		if err != nil {
			return counts, err
		}

		for _, item := range items {
			var channel struct {
				ID         string `json:"id"`
				Statistics struct {
					SubscriberCount string `json:"subscriberCount"`
				} `json:"statistics"`
			}
			if err := json.Unmarshal(item, &channel); err != nil {
				continue
			}
			subs, err := strconv.ParseInt(channel.Statistics.SubscriberCount, 10, 64)
			if err != nil || subs < 0 {
				continue
			}
			if channel.ID != "" {
				counts[channel.ID] = subs
			}
		}
	}

	return counts, nil
}

func (c *Client) paginate(ctx context.Context, endpoint, path string, params url.Values, maxPages int) ([]json.RawMessage, error) {
	if maxPages < 1 {
		maxPages = 1
	}

	var items []json.RawMessage
	pageToken := ""

	for page := 0; page < maxPages; page++ {
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		if err := c.quota.Reserve(endpoint, 1); err != nil {
			return items, err
		}

		resp, err := c.get(ctx, path, params)
		if err != nil {
			c.quota.Release(endpoint, 1)
			return items, err
		}

		items = append(items, resp.Items...)

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return items, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*listResponse, error) {
	params.Set("key", c.apiKey)
	requestURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var list listResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &list, nil
}

// SetBaseURL overrides the API endpoint, used by tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// timeoutContext derives a bounded context for one capture call.
func timeoutContext(ctx context.Context, seconds int) (context.Context, context.CancelFunc) {
	if seconds <= 0 {
		seconds = 30
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
}
