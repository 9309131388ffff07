package provider

import (
	"context"
	"time"
)

const blueskyBaseURL = "https://bsky.social/xrpc"

// BlueskyProvider fetches a user's recent posts from the AT Protocol feed.
type BlueskyProvider struct {
	http *httpClient
}

func NewBlueskyProvider() *BlueskyProvider {
	return &BlueskyProvider{http: newHTTPClient(blueskyBaseURL, 30*time.Second, bearerAuth)}
}

func (p *BlueskyProvider) Platform() Platform { return Bluesky }

func (p *BlueskyProvider) Fetch(ctx context.Context, accessToken string) (Result, error) {
	var profile struct {
		Handle string `json:"handle"`
		DID    string `json:"did"`
	}
	headers, err := p.http.getJSON(ctx, accessToken, "/app.bsky.actor.getProfile?actor=me", &profile)
	if err != nil {
		return Result{}, err
	}

	var feed struct {
		Feed []struct {
			Post struct {
				URI    string `json:"uri"`
				Author struct {
					Handle string `json:"handle"`
				} `json:"author"`
				Record struct {
					Text      string    `json:"text"`
					CreatedAt time.Time `json:"createdAt"`
				} `json:"record"`
				Embed        *struct{} `json:"embed,omitempty"`
				ReplyCount   int       `json:"replyCount"`
				RepostCount  int       `json:"repostCount"`
				LikeCount    int       `json:"likeCount"`
			} `json:"post"`
			Reply *struct{} `json:"reply,omitempty"`
		} `json:"feed"`
	}
	path := "/app.bsky.feed.getAuthorFeed?actor=" + profile.DID + "&limit=100"
	if _, err := p.http.getJSON(ctx, accessToken, path, &feed); err != nil {
		return Result{}, err
	}

	posts := make([]BlueskyPost, 0, len(feed.Feed))
	for _, item := range feed.Feed {
		posts = append(posts, BlueskyPost{
			ID:        item.Post.URI,
			Text:      item.Post.Record.Text,
			Author:    item.Post.Author.Handle,
			CreatedAt: item.Post.Record.CreatedAt,
			Replies:   item.Post.ReplyCount,
			Reposts:   item.Post.RepostCount,
			Likes:     item.Post.LikeCount,
			HasMedia:  item.Post.Embed != nil,
			IsReply:   item.Reply != nil,
			IsRepost:  false,
		})
	}

	return Result{
		Bluesky:   &BlueskyResult{Meta: BlueskyMeta{Handle: profile.Handle}, Posts: posts},
		RateLimit: headers,
	}, nil
}
