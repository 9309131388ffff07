package provider

import (
	"context"
	"time"
)

const youtubeBaseURL = "https://www.googleapis.com/youtube/v3"

// YouTubeProvider fetches a channel's recently uploaded videos.
type YouTubeProvider struct {
	http *httpClient
}

func NewYouTubeProvider() *YouTubeProvider {
	return &YouTubeProvider{http: newHTTPClient(youtubeBaseURL, 30*time.Second, bearerAuth)}
}

func (p *YouTubeProvider) Platform() Platform { return YouTube }

func (p *YouTubeProvider) Fetch(ctx context.Context, accessToken string) (Result, error) {
	var channel struct {
		Items []struct {
			Snippet struct {
				Title string `json:"title"`
			} `json:"snippet"`
		} `json:"items"`
	}
	headers, err := p.http.getJSON(ctx, accessToken, "/channels?part=snippet&mine=true", &channel)
	if err != nil {
		return Result{}, err
	}
	var channelTitle string
	if len(channel.Items) > 0 {
		channelTitle = channel.Items[0].Snippet.Title
	}

	var search struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title       string    `json:"title"`
				Description string    `json:"description"`
				PublishedAt time.Time `json:"publishedAt"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if _, err := p.http.getJSON(ctx, accessToken, "/search?part=snippet&forMine=true&type=video&maxResults=50", &search); err != nil {
		return Result{}, err
	}

	videos := make([]YouTubeVideo, 0, len(search.Items))
	for _, item := range search.Items {
		videos = append(videos, YouTubeVideo{
			ID:          item.ID.VideoID,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			URL:         "https://youtube.com/watch?v=" + item.ID.VideoID,
			PublishedAt: item.Snippet.PublishedAt,
		})
	}

	return Result{
		YouTube:   &YouTubeResult{Meta: YouTubeMeta{ChannelTitle: channelTitle}, Videos: videos},
		RateLimit: headers,
	}, nil
}
