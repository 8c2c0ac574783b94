package capture

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const channelFeedURL = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"

// ChannelFeedReader discovers recent uploads of a channel through its public
// upload feed. The feed costs no API quota; entries carry only ids, which
// are hydrated into full payloads afterwards.
type ChannelFeedReader struct {
	httpClient *http.Client
	parser     *gofeed.Parser
	userAgent  string
}

func NewChannelFeedReader(httpClient *http.Client, userAgent string) *ChannelFeedReader {
	return &ChannelFeedReader{
		httpClient: httpClient,
		parser:     gofeed.NewParser(),
		userAgent:  userAgent,
	}
}

// RecentUploadIDs fetches the channel's upload feed and extracts video ids.
// feedURL may be given directly; otherwise it derives from the channel id.
func (r *ChannelFeedReader) RecentUploadIDs(ctx context.Context, channelID, feedURL string, timeout time.Duration) ([]string, error) {
	if feedURL == "" {
		feedURL = fmt.Sprintf(channelFeedURL, channelID)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, "GET", feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching channel feed", resp.StatusCode)
	}

	feed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse channel feed: %w", err)
	}

	ids := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		if id := videoIDFromGUID(item.GUID); id != "" {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// videoIDFromGUID extracts the id from upload feed guids of the form
// "yt:video:VIDEOID".
func videoIDFromGUID(guid string) string {
	const prefix = "yt:video:"
	if strings.HasPrefix(guid, prefix) {
		return strings.TrimPrefix(guid, prefix)
	}
	return ""
}
