package provider

import (
	"context"
	"time"
)

const devpadBaseURL = "https://devpad.tools/api/v1"

// DevpadProvider fetches a user's tasks from the devpad planning tool.
type DevpadProvider struct {
	http *httpClient
}

func NewDevpadProvider() *DevpadProvider {
	return &DevpadProvider{http: newHTTPClient(devpadBaseURL, 30*time.Second, bearerAuth)}
}

func (p *DevpadProvider) Platform() Platform { return Devpad }

func (p *DevpadProvider) Fetch(ctx context.Context, accessToken string) (Result, error) {
	var me struct {
		Username string `json:"username"`
	}
	headers, err := p.http.getJSON(ctx, accessToken, "/me", &me)
	if err != nil {
		return Result{}, err
	}

	var tasks []struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Status      string    `json:"status"`
		UpdatedAt   time.Time `json:"updated_at"`
		Project     struct {
			Name string `json:"name"`
		} `json:"project"`
	}
	if _, err := p.http.getJSON(ctx, accessToken, "/tasks?limit=200", &tasks); err != nil {
		return Result{}, err
	}

	out := make([]DevpadTask, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, DevpadTask{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Status:      t.Status,
			UpdatedAt:   t.UpdatedAt,
			ProjectName: t.Project.Name,
		})
	}

	return Result{
		Devpad:    &DevpadResult{Meta: DevpadMeta{Username: me.Username}, Tasks: out},
		RateLimit: headers,
	}, nil
}
