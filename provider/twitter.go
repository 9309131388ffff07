package provider

import (
	"context"
	"time"
)

const twitterBaseURL = "https://api.twitter.com/2"

// TwitterProvider fetches a user's recent tweets.
type TwitterProvider struct {
	http *httpClient
}

func NewTwitterProvider() *TwitterProvider {
	return &TwitterProvider{http: newHTTPClient(twitterBaseURL, 30*time.Second, bearerAuth)}
}

func (p *TwitterProvider) Platform() Platform { return Twitter }

func (p *TwitterProvider) Fetch(ctx context.Context, accessToken string) (Result, error) {
	var me struct {
		Data struct {
			Username string `json:"username"`
			ID       string `json:"id"`
		} `json:"data"`
	}
	headers, err := p.http.getJSON(ctx, accessToken, "/users/me", &me)
	if err != nil {
		return Result{}, err
	}

	var tweets struct {
		Data []struct {
			ID            string    `json:"id"`
			Text          string    `json:"text"`
			CreatedAt     time.Time `json:"created_at"`
			InReplyToUser string    `json:"in_reply_to_user_id"`
			PublicMetrics struct {
				ReplyCount   int `json:"reply_count"`
				RetweetCount int `json:"retweet_count"`
				LikeCount    int `json:"like_count"`
			} `json:"public_metrics"`
			Attachments struct {
				MediaKeys []string `json:"media_keys"`
			} `json:"attachments"`
			ReferencedTweets []struct {
				Type string `json:"type"`
			} `json:"referenced_tweets"`
		} `json:"data"`
	}
	path := "/users/" + me.Data.ID + "/tweets?max_results=100&tweet.fields=created_at,public_metrics,attachments,referenced_tweets"
	if _, err := p.http.getJSON(ctx, accessToken, path, &tweets); err != nil {
		return Result{}, err
	}

	out := make([]Tweet, 0, len(tweets.Data))
	for _, t := range tweets.Data {
		isRepost := false
		isReply := t.InReplyToUser != ""
		for _, rt := range t.ReferencedTweets {
			if rt.Type == "retweeted" {
				isRepost = true
			}
		}
		out = append(out, Tweet{
			ID:        t.ID,
			Text:      t.Text,
			Author:    me.Data.Username,
			CreatedAt: t.CreatedAt,
			Replies:   t.PublicMetrics.ReplyCount,
			Retweets:  t.PublicMetrics.RetweetCount,
			Likes:     t.PublicMetrics.LikeCount,
			HasMedia:  len(t.Attachments.MediaKeys) > 0,
			IsReply:   isReply,
			IsRepost:  isRepost,
		})
	}

	return Result{
		Twitter:   &TwitterResult{Meta: TwitterMeta{Username: me.Data.Username}, Tweets: out},
		RateLimit: headers,
	}, nil
}
