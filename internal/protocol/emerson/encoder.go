package emerson

import (
	"encoding/binary"
	"fmt"
	"math"
)

// 本地校验失败：设定值越界时不构造任何报文，也不发送。
type RangeError struct {
	What string
	Min  float64
	Max  float64
	Got  float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s 超出范围 [%g, %g]: %g", e.What, e.Min, e.Max, e.Got)
}

// Codec 按给定铭牌参数编码设定值命令。
type Codec struct {
	Params DeviceParams
}

func NewCodec(p DeviceParams) *Codec {
	return &Codec{Params: p}
}

// EncodeOutputVoltage 编码输出电压设定命令。
// fixed=false 为在线命令 (约 30 秒有效，需周期性重发)，
// fixed=true 为离线命令 (写入非易失存储)。
// 注意: 低于 48V 时风扇会高速运转。
func (c *Codec) EncodeOutputVoltage(voltage float64, fixed bool) (Frame, error) {
	if voltage < c.Params.VoltageMin || voltage > c.Params.VoltageMax {
		return Frame{}, &RangeError{What: "输出电压 (V)", Min: c.Params.VoltageMin, Max: c.Params.VoltageMax, Got: voltage}
	}
	p := byte(ParamVoltageOnline)
	if fixed {
		p = ParamVoltageOffline
	}
	return commandFrame(p, floatBytes(voltage)), nil
}

// EncodeCurrentLimitPercentage 编码输出电流限值命令，参数为内部百分比刻度
// (额定电流 == RatedPercentage)。线上传输的是百分比除以 100 后的小数。
func (c *Codec) EncodeCurrentLimitPercentage(percent float64, fixed bool) (Frame, error) {
	if percent < c.Params.RatedPercentageMin || percent > c.Params.RatedPercentageMax {
		return Frame{}, &RangeError{What: "输出电流限值 (%)", Min: c.Params.RatedPercentageMin, Max: c.Params.RatedPercentageMax, Got: percent}
	}
	p := byte(ParamCurrentPctOnline)
	if fixed {
		p = ParamCurrentPctOffline
	}
	return commandFrame(p, floatBytes(percent/100)), nil
}

// EncodeCurrentLimitValue 编码输出电流限值命令，参数为电流绝对值 (A)。
// 内部换算成百分比后走百分比命令。
func (c *Codec) EncodeCurrentLimitValue(current float64, fixed bool) (Frame, error) {
	if current < c.Params.CurrentMin || current > c.Params.RatedCurrent {
		return Frame{}, &RangeError{What: "输出电流限值 (A)", Min: c.Params.CurrentMin, Max: c.Params.RatedCurrent, Got: current}
	}
	return c.EncodeCurrentLimitPercentage(c.Params.CurrentToPercentage(current), fixed)
}

// EncodeInputCurrentLimit 编码输入电流限值命令 (厂商称"柴油机功率限制")。
// 设备侧无范围约束，在线/离线共用同一参数字节。
func (c *Codec) EncodeInputCurrentLimit(current float64) Frame {
	return commandFrame(ParamInputCurrentLimit, floatBytes(current))
}

// EncodeWalkIn 编码 Walk-In 缓启动命令。使能时在 8 字节报文之后
// 追加 4 字节爬升时长，设备按 12 字节报文接受。
func (c *Codec) EncodeWalkIn(enable bool, seconds float64) Frame {
	if !enable {
		return commandFrame(ParamWalkIn, []byte{0x00, 0x00, 0x00, 0x00})
	}
	f := commandFrame(ParamWalkIn, []byte{0x00, 0x01, 0x00, 0x00})
	f.Data = append(f.Data, floatBytes(seconds)...)
	return f
}

// EncodeRestartOvervoltage 编码过压后自动重启使能命令。
func (c *Codec) EncodeRestartOvervoltage(enable bool) Frame {
	payload := []byte{0x00, 0x00, 0x00, 0x00}
	if enable {
		payload = []byte{0x00, 0x01, 0x00, 0x00}
	}
	return commandFrame(ParamRestartOvervoltage, payload)
}

func commandFrame(param byte, payload []byte) Frame {
	data := make([]byte, 0, 8)
	data = append(data, cmdByte0, cmdByte1, cmdByte2, param)
	data = append(data, payload...)
	return Frame{ID: ArbitrationID, Extended: true, Data: data}
}

// floatBytes 把物理量编码为 4 字节小端序 IEEE-754 单精度浮点。
// 注意与遥测解码的大端序不一致，系实机抓包确认的协议形态。
func floatBytes(v float64) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	return b
}
