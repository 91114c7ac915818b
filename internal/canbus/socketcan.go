package canbus

import (
	"fmt"
	"sync"

	"github.com/brutella/can"
	"go.uber.org/zap"

	"rectifier-gateway/internal/protocol/emerson"
)

const (
	// SocketCAN 扩展帧标志与 29 位标识符掩码
	effFlag = 0x80000000
	effMask = 0x1FFFFFFF

	maxDataLength = 8
)

// SocketCANBus 基于 brutella/can 的 SocketCAN 实现。
// 持有一个常驻句柄；brutella/can 内部对写操作串行化，
// 发送与接收可以并发使用。
type SocketCANBus struct {
	bus    *can.Bus
	logger *zap.Logger

	mu sync.RWMutex
	fn func(emerson.Frame)
}

var _ Bus = (*SocketCANBus)(nil)

// NewSocketCANBus 绑定到指定 CAN 网络接口 (can0, can1, ...)
// 并启动接收循环。链路的比特率配置见 ConfigureLink。
func NewSocketCANBus(ifaceName string, logger *zap.Logger) (*SocketCANBus, error) {
	bus, err := can.NewBusForInterfaceWithName(ifaceName)
	if err != nil {
		return nil, fmt.Errorf("bind can interface %s: %w", ifaceName, err)
	}

	b := &SocketCANBus{bus: bus, logger: logger}
	bus.Subscribe(b)

	go func() {
		// ConnectAndPublish 阻塞直到 Disconnect
		if err := bus.ConnectAndPublish(); err != nil {
			logger.Warn("CAN receive loop terminated", zap.String("interface", ifaceName), zap.Error(err))
		}
	}()

	logger.Info("Connected to CAN bus", zap.String("interface", ifaceName))
	return b, nil
}

func (b *SocketCANBus) Send(f emerson.Frame) error {
	out, truncated := toCANFrame(f)
	if truncated {
		b.logger.Debug("Frame data exceeds CAN payload limit, truncating",
			zap.Uint32("id", f.ID),
			zap.Int("data_length", len(f.Data)))
	}
	return b.bus.Publish(out)
}

// toCANFrame 转换为 SocketCAN 2.0 帧。数据上限 8 字节，
// 超长部分 (Walk-In 使能命令的追加时长字节) 截断。
func toCANFrame(f emerson.Frame) (can.Frame, bool) {
	id := f.ID
	if f.Extended {
		id |= effFlag
	}

	n := len(f.Data)
	truncated := n > maxDataLength
	if truncated {
		n = maxDataLength
	}
	var data [8]uint8
	copy(data[:], f.Data[:n])

	return can.Frame{
		ID:     id,
		Length: uint8(n),
		Data:   data,
	}, truncated
}

// SubscribeFunc 注册入站帧回调。接收循环在独立 goroutine 里
// 调用 Handle，回调指针用读写锁保护。
func (b *SocketCANBus) SubscribeFunc(fn func(emerson.Frame)) {
	b.mu.Lock()
	b.fn = fn
	b.mu.Unlock()
}

// Handle 实现 brutella/can 的 Handler 接口，把入站帧转换后交给回调。
func (b *SocketCANBus) Handle(frame can.Frame) {
	b.mu.RLock()
	fn := b.fn
	b.mu.RUnlock()
	if fn == nil {
		return
	}

	data := make([]byte, frame.Length)
	copy(data, frame.Data[:frame.Length])

	fn(emerson.Frame{
		ID:       frame.ID & effMask,
		Extended: frame.ID&effFlag != 0,
		Data:     data,
	})
}

func (b *SocketCANBus) Disconnect() error {
	return b.bus.Disconnect()
}
