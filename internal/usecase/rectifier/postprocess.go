package rectifier

import (
	"rectifier-gateway/internal/protocol/emerson"
)

// OperatingMode 整流模块的工作模式。
type OperatingMode int

const (
	ModeVoltage      OperatingMode = iota // 稳压
	ModeCurrentLimit                      // 限流
)

func (m OperatingMode) String() string {
	if m == ModeCurrentLimit {
		return "CURRENT_LIMIT"
	}
	return "VOLTAGE"
}

// Postprocessing 由遥测读数推导出的工作模式与功率指标。
// 每次接受一个样本后整体重算，不存在部分过期的字段。
type Postprocessing struct {
	OperatingMode         OperatingMode `json:"-"`
	OutputPowerWatts      float64       `json:"output_power_watts"`
	PowerPercentOfRated   float64       `json:"power_percent_of_rated"`
	PowerPercentOfLimit   float64       `json:"power_percent_of_limit"`
	CurrentPercentOfRated float64       `json:"current_percent_of_rated"`
	CurrentPercentOfLimit float64       `json:"current_percent_of_limit"`
}

// derivePostprocessing 由电压/电流/电流限值读数整体推导。
// 输出电流超过限值的 95% 即判为限流模式。
func derivePostprocessing(params emerson.DeviceParams, voltage, current, limit float64) Postprocessing {
	var pp Postprocessing

	if current > 0.95*limit {
		pp.OperatingMode = ModeCurrentLimit
	} else {
		pp.OperatingMode = ModeVoltage
	}

	pp.CurrentPercentOfRated = current / params.RatedCurrent * 100
	if limit != 0 {
		pp.CurrentPercentOfLimit = current / limit * 100
	}

	pp.OutputPowerWatts = voltage * current
	pp.PowerPercentOfRated = pp.OutputPowerWatts / params.RatedPower * 100
	// 注意: 此项不除以 100，与 PowerPercentOfRated 的刻度不一致，
	// 保持现场设备既有的计算口径。
	pp.PowerPercentOfLimit = pp.OutputPowerWatts * pp.CurrentPercentOfLimit

	return pp
}
