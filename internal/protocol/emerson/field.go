package emerson

// Field 遥测字段类型
// 0x01: 输出电压 (VDC)
// 0x02: 输出电流 (ADC)
// 0x03: 输出电流限值 (ADC)
// 0x04: 模块温度 (°C)
// 0x05: 输入电压 (VAC)
type Field byte

const (
	FieldOutputVoltage      Field = 0x01 // 输出电压
	FieldOutputCurrentValue Field = 0x02 // 输出电流
	FieldOutputCurrentLimit Field = 0x03 // 输出电流限值
	FieldTemperature        Field = 0x04 // 模块温度
	FieldInputVoltage       Field = 0x05 // 输入电压
)

// Fields 按协议选择符顺序列出全部遥测字段。
var Fields = []Field{
	FieldOutputVoltage,
	FieldOutputCurrentValue,
	FieldOutputCurrentLimit,
	FieldTemperature,
	FieldInputVoltage,
}

func (f Field) String() string {
	switch f {
	case FieldOutputVoltage:
		return "output_voltage"
	case FieldOutputCurrentValue:
		return "output_current_value"
	case FieldOutputCurrentLimit:
		return "output_current_limit"
	case FieldTemperature:
		return "temperature"
	case FieldInputVoltage:
		return "input_voltage"
	default:
		return "unknown"
	}
}
