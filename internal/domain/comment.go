package domain

import (
	"sort"
	"time"
)

// Comment 是挂在快照上的问题或回复。
// 只有两层：ParentID 为空的是问题，否则是对某个问题的回复。
type Comment struct {
	ID         string    `json:"commentId"`
	SnapshotID string    `json:"snapshotId"`
	ParentID   *string   `json:"parentCommentId,omitempty"`
	Content    string    `json:"content"`
	Solved     bool      `json:"solved"`
	CreatedAt  time.Time `json:"createdAt"`
}

// IsReply 判断是否为回复。
func (c Comment) IsReply() bool { return c.ParentID != nil && *c.ParentID != "" }

// Thread 是一个问题及其回复。
type Thread struct {
	Comment
	Replies []Comment `json:"replies"`
}

// Editable 只有没有回复的问题可以修改。
func (t Thread) Editable() bool { return !t.IsReply() && len(t.Replies) == 0 }

// BuildThreads 将平铺的评论组装成两层结构。
// 问题和回复都按创建时间升序；父问题不存在的回复被隐藏。
func BuildThreads(comments []Comment) []Thread {
	threads := make([]Thread, 0, len(comments))
	index := make(map[string]int)
	for _, c := range comments {
		if c.IsReply() {
			continue
		}
		index[c.ID] = len(threads)
		threads = append(threads, Thread{Comment: c, Replies: []Comment{}})
	}
	for _, c := range comments {
		if !c.IsReply() {
			continue
		}
		i, ok := index[*c.ParentID]
		if !ok {
			continue
		}
		threads[i].Replies = append(threads[i].Replies, c)
	}

	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].CreatedAt.Before(threads[j].CreatedAt)
	})
	for i := range threads {
		replies := threads[i].Replies
		sort.SliceStable(replies, func(a, b int) bool {
			return replies[a].CreatedAt.Before(replies[b].CreatedAt)
		})
	}
	return threads
}

// FindComment 在线程列表中查找评论，返回评论本身以及它所在的线程。
func FindComment(threads []Thread, id string) (Comment, *Thread, bool) {
	for i := range threads {
		if threads[i].ID == id {
			return threads[i].Comment, &threads[i], true
		}
		for _, r := range threads[i].Replies {
			if r.ID == id {
				return r, &threads[i], true
			}
		}
	}
	return Comment{}, nil, false
}
