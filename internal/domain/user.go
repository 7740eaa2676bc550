package domain

// Participant 表示挂在房间实时通道上的一个连接。
// 同一用户名可能对应多个连接。
type Participant struct {
	ConnID string `json:"connId"`
	Name   string `json:"name"`
}

// Presence 是房间在线参与者的快照，接收方整体替换，不做增量合并。
type Presence struct {
	RoomID    string   `json:"roomId"`
	UserCount int      `json:"userCount"`
	Users     []string `json:"users"`
}
