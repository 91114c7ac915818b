package emerson

// DeviceParams 整流模块的铭牌参数与各字段读数合理性范围。
// 编码侧用铭牌范围做本地校验，遥测侧用合理性范围做有效性分类。
type DeviceParams struct {
	RatedCurrent       float64 // A，对应 RatedPercentage
	RatedPercentageMin float64 // %
	RatedPercentageMax float64 // %
	RatedPercentage    float64 // %
	RatedPower         float64 // W

	VoltageMin float64 // VDC
	VoltageMax float64 // VDC
	CurrentMin float64 // A，10% 向上取整到 0.5A

	TemperatureMin  float64 // °C
	TemperatureMax  float64 // °C
	InputVoltageMin float64 // VAC
	InputVoltageMax float64 // VAC
}

// DefaultParams 返回 Emerson/Vertiv R48-3000e3 的铭牌参数
// (62.5A 额定电流对应内部百分比刻度的 121%)。
func DefaultParams() DeviceParams {
	return DeviceParams{
		RatedCurrent:       62.5,
		RatedPercentageMin: 10,
		RatedPercentageMax: 121,
		RatedPercentage:    121,
		RatedPower:         3000,
		VoltageMin:         41.0,
		VoltageMax:         58.5,
		CurrentMin:         5.5,
		TemperatureMin:     -40,
		TemperatureMax:     60,
		InputVoltageMin:    -40,
		InputVoltageMax:    60,
	}
}

// Range 返回字段 f 读数的合理性区间 [min, max]。
func (p DeviceParams) Range(f Field) (min, max float64) {
	switch f {
	case FieldOutputVoltage:
		return p.VoltageMin, p.VoltageMax
	case FieldOutputCurrentValue, FieldOutputCurrentLimit:
		return p.CurrentMin, p.RatedCurrent
	case FieldTemperature:
		return p.TemperatureMin, p.TemperatureMax
	case FieldInputVoltage:
		return p.InputVoltageMin, p.InputVoltageMax
	default:
		return 0, 0
	}
}

// PercentageToCurrent 把内部百分比刻度换算为电流值 (A)。
func (p DeviceParams) PercentageToCurrent(pct float64) float64 {
	return pct / p.RatedPercentage * p.RatedCurrent
}

// CurrentToPercentage 把电流值 (A) 换算为内部百分比刻度。
func (p DeviceParams) CurrentToPercentage(current float64) float64 {
	return current / p.RatedCurrent * p.RatedPercentage
}
