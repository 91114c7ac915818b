package rectifier

import (
	"time"

	"rectifier-gateway/internal/protocol/emerson"
)

// Status 遥测字段的有效性分类。只由本字段自己的计数器决定，
// 各字段相互独立；状态一旦置位保持不变，直到后续样本触发迁移，
// 不随时间自动清除。
type Status int

const (
	StatusUnknown Status = iota // 尚未收到任何样本
	StatusNormal                // 最近一个样本在合理区间内且有变化
	StatusLow                   // 连续越下界样本达到阈值
	StatusHigh                  // 连续越上界样本达到阈值
	StatusStuck                 // 连续不变样本达到阈值
)

func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "NORMAL"
	case StatusLow:
		return "LOW"
	case StatusHigh:
		return "HIGH"
	case StatusStuck:
		return "STUCK"
	default:
		return "UNKNOWN"
	}
}

// Reading 单个遥测字段的读出状态。会话开始时创建，只由
// ValidityTracker 更新，存续整个会话。
type Reading struct {
	Value       float64   `json:"value"`
	Status      Status    `json:"-"`
	Invalid     int       `json:"invalid_count"`
	Unchanged   int       `json:"unchanged_count"`
	LastChanged time.Time `json:"last_changed"`
}

// ValidityTracker 按字段分类遥测样本的状态机。
type ValidityTracker struct {
	params       emerson.DeviceParams
	maxInvalid   int
	maxUnchanged int
	readings     map[emerson.Field]*Reading
}

func NewValidityTracker(params emerson.DeviceParams, maxInvalid, maxUnchanged int) *ValidityTracker {
	readings := make(map[emerson.Field]*Reading, len(emerson.Fields))
	for _, f := range emerson.Fields {
		readings[f] = &Reading{}
	}
	return &ValidityTracker{
		params:       params,
		maxInvalid:   maxInvalid,
		maxUnchanged: maxUnchanged,
		readings:     readings,
	}
}

// Observe 处理字段 f 的一个新样本，返回处理后的状态。
// 越界样本只累加计数，从不覆盖最后一个有效读数；区间内的样本
// 清零越界计数，与上次读数逐位相等时累加不变计数，有变化时存入
// 新值并回到 NORMAL。
func (t *ValidityTracker) Observe(f emerson.Field, value float64, now time.Time) Status {
	r, ok := t.readings[f]
	if !ok {
		return StatusUnknown
	}

	min, max := t.params.Range(f)
	if value < min || value > max {
		r.Invalid++
		if r.Invalid >= t.maxInvalid {
			if value < min {
				r.Status = StatusLow
			} else {
				r.Status = StatusHigh
			}
		}
		return r.Status
	}

	r.Invalid = 0
	if value == r.Value {
		r.Unchanged++
		if r.Unchanged >= t.maxUnchanged {
			r.Status = StatusStuck
		}
		return r.Status
	}

	r.Value = value
	r.LastChanged = now
	r.Unchanged = 0
	r.Status = StatusNormal
	return r.Status
}

// Reading 返回字段 f 当前读出状态的副本。
func (t *ValidityTracker) Reading(f emerson.Field) Reading {
	if r, ok := t.readings[f]; ok {
		return *r
	}
	return Reading{}
}

// Value 返回字段 f 最后一个被接受的读数 (默认 0)。
func (t *ValidityTracker) Value(f emerson.Field) float64 {
	if r, ok := t.readings[f]; ok {
		return r.Value
	}
	return 0
}
