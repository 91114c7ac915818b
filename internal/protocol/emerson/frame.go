package emerson

// Emerson/Vertiv R48 系列整流模块 CAN 协议常量定义
const (
	// ArbitrationID 命令帧仲裁 ID (扩展帧)
	ArbitrationID = 0x0607FF83
	// ArbitrationIDRead 读请求仲裁 ID (扩展帧)
	ArbitrationIDRead = 0x06000783

	// 命令帧固定前缀: 0x03 0xF0 0x00 P (P 为参数选择字节)
	cmdByte0 = 0x03
	cmdByte1 = 0xF0
	cmdByte2 = 0x00

	// 参数选择字节 P
	ParamVoltageOnline      = 0x21 // 输出电压 (在线命令，约 30 秒有效)
	ParamVoltageOffline     = 0x24 // 输出电压 (离线命令，写入非易失存储)
	ParamCurrentPctOnline   = 0x22 // 输出电流限值百分比 (在线命令)
	ParamCurrentPctOffline  = 0x19 // 输出电流限值百分比 (离线命令)
	ParamInputCurrentLimit  = 0x1A // 输入电流限值 ("柴油机功率限制")
	ParamWalkIn             = 0x32 // Walk-In 缓启动
	ParamRestartOvervoltage = 0x39 // 过压后自动重启

	// 遥测响应帧首字节标识
	telemetryMarker = 0x41
)

// Frame 代表一帧 CAN 报文。构造后不再修改。
// Data 通常为 8 字节；Walk-In 使能命令在 8 字节后追加 4 字节
// 时长 (沿用设备实际接受的报文形态)。
type Frame struct {
	ID       uint32
	Extended bool
	Data     []byte
}

// ReadAllRequest 返回请求所有遥测字段的读命令。
// 固定的不透明模式，设备收到后会连发一组 0x41 响应帧。
func ReadAllRequest() Frame {
	return Frame{
		ID:       ArbitrationIDRead,
		Extended: true,
		Data:     []byte{0x00, 0xF0, 0x00, 0x80, 0x46, 0xA5, 0x34, 0x00},
	}
}

// ReadFieldRequest 返回单个遥测字段的读命令。
func ReadFieldRequest(f Field) Frame {
	return Frame{
		ID:       ArbitrationIDRead,
		Extended: true,
		Data:     []byte{0x01, 0xF0, 0x00, byte(f), 0x00, 0x00, 0x00, 0x00},
	}
}
