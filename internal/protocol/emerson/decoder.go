package emerson

import (
	"encoding/binary"
	"math"
)

// DecodeTelemetry 尝试把一帧入站报文解码为 (字段, 物理值)。
// 仅 data[0] == 0x41 的帧是遥测响应，data[3] 为字段选择符，
// data[4:8] 为大端序 IEEE-754 单精度浮点物理值。
// 其他帧返回 ok=false，调用方直接丢弃，不算错误。
func DecodeTelemetry(f Frame) (field Field, value float64, ok bool) {
	if len(f.Data) < 8 || f.Data[0] != telemetryMarker {
		return 0, 0, false
	}

	switch Field(f.Data[3]) {
	case FieldOutputVoltage, FieldOutputCurrentValue, FieldOutputCurrentLimit,
		FieldTemperature, FieldInputVoltage:
		field = Field(f.Data[3])
	default:
		// 未知选择符，忽略
		return 0, 0, false
	}

	value = float64(math.Float32frombits(binary.BigEndian.Uint32(f.Data[4:8])))
	return field, value, true
}
