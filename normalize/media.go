package normalize

import (
	"fmt"

	"github.com/f0rbit/timeline/provider"
)

// YouTube maps a YouTubeResult to video TimelineItems (§4.4).
func YouTube(result provider.YouTubeResult) []TimelineItem {
	items := make([]TimelineItem, 0, len(result.Videos))
	for _, v := range result.Videos {
		items = append(items, TimelineItem{
			ID:        fmt.Sprintf("youtube:video:%s", v.ID),
			Platform:  "youtube",
			Type:      TypeVideo,
			Timestamp: v.PublishedAt,
			Title:     deriveTitle(v.Title),
			URL:       v.URL,
			Payload: VideoPayload{
				Description: v.Description,
				ViewCount:   v.ViewCount,
				LikeCount:   v.LikeCount,
			},
		})
	}
	return items
}

// Devpad maps a DevpadResult to task TimelineItems (§4.4).
func Devpad(result provider.DevpadResult) []TimelineItem {
	items := make([]TimelineItem, 0, len(result.Tasks))
	for _, task := range result.Tasks {
		items = append(items, TimelineItem{
			ID:        fmt.Sprintf("devpad:task:%s", task.ID),
			Platform:  "devpad",
			Type:      TypeTask,
			Timestamp: task.UpdatedAt,
			Title:     deriveTitle(task.Title),
			URL:       "",
			Payload: TaskPayload{
				Description: task.Description,
				Status:      task.Status,
				ProjectName: task.ProjectName,
			},
		})
	}
	return items
}
