package normalize

import (
	"fmt"

	"github.com/f0rbit/timeline/provider"
)

// Twitter maps a TwitterResult to post TimelineItems (§4.4).
func Twitter(result provider.TwitterResult) []TimelineItem {
	items := make([]TimelineItem, 0, len(result.Tweets))
	for _, t := range result.Tweets {
		items = append(items, TimelineItem{
			ID:        fmt.Sprintf("twitter:post:%s", t.ID),
			Platform:  "twitter",
			Type:      TypePost,
			Timestamp: t.CreatedAt,
			Title:     deriveTitle(t.Text),
			URL:       fmt.Sprintf("https://twitter.com/%s/status/%s", t.Author, t.ID),
			Payload: PostPayload{
				Author:   t.Author,
				Content:  t.Text,
				Replies:  t.Replies,
				Reposts:  t.Retweets,
				Likes:    t.Likes,
				HasMedia: t.HasMedia,
				IsReply:  t.IsReply,
				IsRepost: t.IsRepost,
			},
		})
	}
	return items
}

// Bluesky maps a BlueskyResult to post TimelineItems (§4.4).
func Bluesky(result provider.BlueskyResult) []TimelineItem {
	items := make([]TimelineItem, 0, len(result.Posts))
	for _, p := range result.Posts {
		items = append(items, TimelineItem{
			ID:        fmt.Sprintf("bluesky:post:%s", p.ID),
			Platform:  "bluesky",
			Type:      TypePost,
			Timestamp: p.CreatedAt,
			Title:     deriveTitle(p.Text),
			URL:       fmt.Sprintf("https://bsky.app/profile/%s", p.Author),
			Payload: PostPayload{
				Author:   p.Author,
				Content:  p.Text,
				Replies:  p.Replies,
				Reposts:  p.Reposts,
				Likes:    p.Likes,
				HasMedia: p.HasMedia,
				IsReply:  p.IsReply,
				IsRepost: p.IsRepost,
			},
		})
	}
	return items
}

// RedditPosts maps a RedditResult's Posts to post TimelineItems (§4.4).
func RedditPosts(result provider.RedditResult) []TimelineItem {
	items := make([]TimelineItem, 0, len(result.Posts))
	for _, p := range result.Posts {
		content := p.Title
		if p.SelfText != "" {
			content = p.Title + "\n" + p.SelfText
		}
		items = append(items, TimelineItem{
			ID:        fmt.Sprintf("reddit:post:%s", p.ID),
			Platform:  "reddit",
			Type:      TypePost,
			Timestamp: p.CreatedAt,
			Title:     deriveTitle(p.Title),
			URL:       p.URL,
			Payload: PostPayload{
				Author:    p.Author,
				Content:   content,
				Replies:   p.NumReplies,
				Likes:     p.Score,
				HasMedia:  p.HasMedia,
				Subreddit: p.Subreddit,
			},
		})
	}
	return items
}

// RedditComments maps a RedditResult's Comments to comment TimelineItems
// (§4.4: "Reddit comments: comment payload with parent title/url,
// subreddit, score, is_op").
func RedditComments(result provider.RedditResult) []TimelineItem {
	items := make([]TimelineItem, 0, len(result.Comments))
	for _, c := range result.Comments {
		items = append(items, TimelineItem{
			ID:        fmt.Sprintf("reddit:comment:%s", c.ID),
			Platform:  "reddit",
			Type:      TypeComment,
			Timestamp: c.CreatedAt,
			Title:     deriveTitle(c.Body),
			URL:       c.ParentURL,
			Payload: CommentPayload{
				Content:     c.Body,
				ParentTitle: c.ParentTitle,
				ParentURL:   c.ParentURL,
				Subreddit:   c.Subreddit,
				Score:       c.Score,
				IsOP:        c.IsOP,
			},
		})
	}
	return items
}
