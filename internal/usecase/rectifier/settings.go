package rectifier

import (
	"sync"

	"rectifier-gateway/internal/protocol/emerson"
)

// CurrentLimitRepresentation 标记电流限值的权威表示:
// 百分比或绝对值二者只有一个是操作员设定的，另一个是每个发送周期
// 之后按铭牌换算出来的镜像。
type CurrentLimitRepresentation int

const (
	RepresentationPercentage CurrentLimitRepresentation = iota
	RepresentationValue
)

// VoltageSetpoint 输出电压设定。Fixed=false 为在线命令 (约 30 秒有效，
// 发送循环周期性重发)，Fixed=true 为离线命令 (写入非易失存储)。
type VoltageSetpoint struct {
	Value float64 `json:"value"`
	Fixed bool    `json:"fixed"`
}

type CurrentLimitSetpoint struct {
	Value          float64                    `json:"value"`      // A
	Percentage     float64                    `json:"percentage"` // %
	Fixed          bool                       `json:"fixed"`
	Representation CurrentLimitRepresentation `json:"-"`
}

type InputCurrentLimitSetpoint struct {
	Value   float64 `json:"value"` // A
	Enabled bool    `json:"enabled"`
}

type WalkInSetpoint struct {
	Enabled bool    `json:"enabled"`
	Seconds float64 `json:"seconds"`
}

// Settings 操作员期望的全部设定值。
type Settings struct {
	OutputVoltage      VoltageSetpoint           `json:"output_voltage"`
	OutputCurrentLimit CurrentLimitSetpoint      `json:"output_current_limit"`
	InputCurrentLimit  InputCurrentLimitSetpoint `json:"input_current_limit"`
	WalkIn             WalkInSetpoint            `json:"walk_in"`
	RestartOvervoltage bool                      `json:"restart_overvoltage"`
}

// SettingsStore 互斥锁保护的设定值存储。操作员 API 是唯一的写入方，
// 发送循环只读。设定值在写入前按铭牌范围校验，越界请求直接拒绝，
// 不会进入存储，也就不会上桥。
type SettingsStore struct {
	mu    sync.RWMutex
	codec *emerson.Codec
	s     Settings
}

func NewSettingsStore(codec *emerson.Codec) *SettingsStore {
	return &SettingsStore{codec: codec}
}

func (st *SettingsStore) SetOutputVoltage(voltage float64, fixed bool) error {
	if _, err := st.codec.EncodeOutputVoltage(voltage, fixed); err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.OutputVoltage = VoltageSetpoint{Value: voltage, Fixed: fixed}
	return nil
}

func (st *SettingsStore) SetCurrentLimitPercentage(percent float64, fixed bool) error {
	if _, err := st.codec.EncodeCurrentLimitPercentage(percent, fixed); err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.OutputCurrentLimit.Percentage = percent
	st.s.OutputCurrentLimit.Fixed = fixed
	st.s.OutputCurrentLimit.Representation = RepresentationPercentage
	return nil
}

func (st *SettingsStore) SetCurrentLimitValue(current float64, fixed bool) error {
	if _, err := st.codec.EncodeCurrentLimitValue(current, fixed); err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.OutputCurrentLimit.Value = current
	st.s.OutputCurrentLimit.Fixed = fixed
	st.s.OutputCurrentLimit.Representation = RepresentationValue
	return nil
}

// SetInputCurrentLimit 设定输入电流限值 (弱电网/柴油发电机场景)。
// 设备侧无范围约束。
func (st *SettingsStore) SetInputCurrentLimit(current float64) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.InputCurrentLimit = InputCurrentLimitSetpoint{Value: current, Enabled: true}
	return nil
}

func (st *SettingsStore) SetWalkIn(enable bool, seconds float64) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.WalkIn = WalkInSetpoint{Enabled: enable, Seconds: seconds}
	return nil
}

func (st *SettingsStore) SetRestartOvervoltage(enable bool) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.RestartOvervoltage = enable
	return nil
}

// Snapshot 返回当前设定值的副本。
func (st *SettingsStore) Snapshot() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s
}

// SyncMirror 在一个发送周期完成后，按铭牌换算刷新电流限值的
// 非权威表示，使百分比与绝对值始终对应同一个物理限值。
func (st *SettingsStore) SyncMirror() {
	st.mu.Lock()
	defer st.mu.Unlock()
	p := st.codec.Params
	switch st.s.OutputCurrentLimit.Representation {
	case RepresentationPercentage:
		st.s.OutputCurrentLimit.Value = p.PercentageToCurrent(st.s.OutputCurrentLimit.Percentage)
	case RepresentationValue:
		st.s.OutputCurrentLimit.Percentage = p.CurrentToPercentage(st.s.OutputCurrentLimit.Value)
	}
}
