package usecase

// MQPayload 包装上报消息队列的遥测快照，增加类型与来源接口标识。
type MQPayload struct {
	Type      string      `json:"type"`
	Interface string      `json:"interface"`
	Data      interface{} `json:"data"`
}
