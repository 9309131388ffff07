package provider

import (
	"context"
	"time"
)

const redditBaseURL = "https://oauth.reddit.com"

// RedditProvider fetches a user's recent posts and comments.
type RedditProvider struct {
	http *httpClient
}

func NewRedditProvider() *RedditProvider {
	return &RedditProvider{http: newHTTPClient(redditBaseURL, 30*time.Second, bearerAuth)}
}

func (p *RedditProvider) Platform() Platform { return Reddit }

func (p *RedditProvider) Fetch(ctx context.Context, accessToken string) (Result, error) {
	var me struct {
		Name string `json:"name"`
	}
	headers, err := p.http.getJSON(ctx, accessToken, "/api/v1/me", &me)
	if err != nil {
		return Result{}, err
	}

	var submitted struct {
		Data struct {
			Children []struct {
				Data struct {
					ID         string  `json:"id"`
					Title      string  `json:"title"`
					Selftext   string  `json:"selftext"`
					Subreddit  string  `json:"subreddit"`
					Permalink  string  `json:"permalink"`
					Author     string  `json:"author"`
					CreatedUTC float64 `json:"created_utc"`
					Score      int     `json:"score"`
					NumReplies int     `json:"num_comments"`
					IsVideo    bool    `json:"is_video"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if _, err := p.http.getJSON(ctx, accessToken, "/user/"+me.Name+"/submitted?limit=100", &submitted); err != nil {
		return Result{}, err
	}

	posts := make([]RedditPost, 0, len(submitted.Data.Children))
	for _, c := range submitted.Data.Children {
		d := c.Data
		posts = append(posts, RedditPost{
			ID:         d.ID,
			Title:      d.Title,
			SelfText:   d.Selftext,
			Subreddit:  d.Subreddit,
			URL:        "https://reddit.com" + d.Permalink,
			Author:     d.Author,
			CreatedAt:  time.Unix(int64(d.CreatedUTC), 0).UTC(),
			Score:      d.Score,
			NumReplies: d.NumReplies,
			HasMedia:   d.IsVideo,
		})
	}

	var commented struct {
		Data struct {
			Children []struct {
				Data struct {
					ID           string  `json:"id"`
					Body         string  `json:"body"`
					Subreddit    string  `json:"subreddit"`
					LinkTitle    string  `json:"link_title"`
					Permalink    string  `json:"permalink"`
					Author       string  `json:"author"`
					CreatedUTC   float64 `json:"created_utc"`
					Score        int     `json:"score"`
					IsSubmitter  bool    `json:"is_submitter"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if _, err := p.http.getJSON(ctx, accessToken, "/user/"+me.Name+"/comments?limit=100", &commented); err != nil {
		return Result{}, err
	}

	comments := make([]RedditComment, 0, len(commented.Data.Children))
	for _, c := range commented.Data.Children {
		d := c.Data
		comments = append(comments, RedditComment{
			ID:          d.ID,
			Body:        d.Body,
			Subreddit:   d.Subreddit,
			ParentTitle: d.LinkTitle,
			ParentURL:   "https://reddit.com" + d.Permalink,
			Author:      d.Author,
			CreatedAt:   time.Unix(int64(d.CreatedUTC), 0).UTC(),
			Score:       d.Score,
			IsOP:        d.IsSubmitter,
		})
	}

	return Result{
		Reddit:    &RedditResult{Meta: RedditMeta{Username: me.Name}, Posts: posts, Comments: comments},
		RateLimit: headers,
	}, nil
}
