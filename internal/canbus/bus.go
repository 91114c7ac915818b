package canbus

import (
	"rectifier-gateway/internal/protocol/emerson"
)

// Bus 是核心逻辑与 CAN 链路之间的边界。
// 核心只通过这个接口收发报文，单元测试用内存实现替代 SocketCAN。
type Bus interface {
	// Send 发送一帧报文。
	Send(f emerson.Frame) error
	// SubscribeFunc 注册入站报文回调。回调在总线的接收协程中执行，
	// 不得阻塞。
	SubscribeFunc(fn func(emerson.Frame))
	// Disconnect 关闭链路并终止接收。
	Disconnect() error
}
