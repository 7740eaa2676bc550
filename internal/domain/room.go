package domain

// Room 表示一个代码共享房间。
// 房间的生命周期由外部后端管理，这里只保存客户端与网关关心的字段。
type Room struct {
	ID         string `json:"roomId"`
	Title      string `json:"title"`
	IsCreator  bool   `json:"isCreator"`  // 当前客户端是否为房间创建者
	Authorized bool   `json:"authorized"` // 是否已通过密码校验
}
