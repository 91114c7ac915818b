package rectifier

import (
	"testing"
	"time"

	"rectifier-gateway/internal/protocol/emerson"
)

func newTracker() *ValidityTracker {
	return NewValidityTracker(emerson.DefaultParams(), 32, 32)
}

func TestObserveFirstSampleBecomesNormal(t *testing.T) {
	tr := newTracker()
	now := time.Now()

	status := tr.Observe(emerson.FieldOutputVoltage, 52.3, now)
	if status != StatusNormal {
		t.Fatalf("status = %v, want NORMAL", status)
	}

	r := tr.Reading(emerson.FieldOutputVoltage)
	if r.Value != 52.3 {
		t.Fatalf("value = %v, want 52.3", r.Value)
	}
	if !r.LastChanged.Equal(now) {
		t.Fatalf("last changed = %v, want %v", r.LastChanged, now)
	}
}

func TestObserveStuckExactlyAtThreshold(t *testing.T) {
	tr := newTracker()

	if got := tr.Observe(emerson.FieldOutputVoltage, 52.3, time.Now()); got != StatusNormal {
		t.Fatalf("initial status = %v, want NORMAL", got)
	}

	// 同一值重复 32 次，第 32 次恰好翻转为 STUCK，之前一直是 NORMAL
	for i := 1; i <= 32; i++ {
		got := tr.Observe(emerson.FieldOutputVoltage, 52.3, time.Now())
		if i < 32 && got != StatusNormal {
			t.Fatalf("sample %d: status = %v, want NORMAL", i, got)
		}
		if i == 32 && got != StatusStuck {
			t.Fatalf("sample %d: status = %v, want STUCK", i, got)
		}
	}

	// 有变化的样本恢复 NORMAL 并清零计数
	if got := tr.Observe(emerson.FieldOutputVoltage, 52.4, time.Now()); got != StatusNormal {
		t.Fatalf("recovery status = %v, want NORMAL", got)
	}
	if r := tr.Reading(emerson.FieldOutputVoltage); r.Unchanged != 0 {
		t.Fatalf("unchanged counter = %d, want 0", r.Unchanged)
	}
}

func TestObserveHighThenRecovery(t *testing.T) {
	tr := newTracker()

	// 先写入一个有效读数
	tr.Observe(emerson.FieldTemperature, 35.0, time.Now())

	// 连续 32 个越上界样本 → HIGH，且从不覆盖最后的有效读数
	for i := 1; i <= 32; i++ {
		got := tr.Observe(emerson.FieldTemperature, 95.0, time.Now())
		if i < 32 && got != StatusNormal {
			t.Fatalf("sample %d: status = %v, want NORMAL (计数未到阈值)", i, got)
		}
		if i == 32 && got != StatusHigh {
			t.Fatalf("sample %d: status = %v, want HIGH", i, got)
		}
	}
	if r := tr.Reading(emerson.FieldTemperature); r.Value != 35.0 {
		t.Fatalf("越界样本覆盖了有效读数: %v", r.Value)
	}

	// 一个区间内样本即恢复
	if got := tr.Observe(emerson.FieldTemperature, 36.0, time.Now()); got != StatusNormal {
		t.Fatalf("recovery status = %v, want NORMAL", got)
	}
	if r := tr.Reading(emerson.FieldTemperature); r.Invalid != 0 {
		t.Fatalf("invalid counter = %d, want 0", r.Invalid)
	}
}

func TestObserveLow(t *testing.T) {
	tr := NewValidityTracker(emerson.DefaultParams(), 3, 3)

	for i := 1; i <= 3; i++ {
		got := tr.Observe(emerson.FieldOutputVoltage, 10.0, time.Now())
		if i < 3 && got != StatusUnknown {
			t.Fatalf("sample %d: status = %v, want UNKNOWN", i, got)
		}
		if i == 3 && got != StatusLow {
			t.Fatalf("sample %d: status = %v, want LOW", i, got)
		}
	}
}

func TestObserveFieldsIndependent(t *testing.T) {
	tr := NewValidityTracker(emerson.DefaultParams(), 2, 2)

	tr.Observe(emerson.FieldOutputVoltage, 100.0, time.Now())
	tr.Observe(emerson.FieldOutputVoltage, 100.0, time.Now())
	if got := tr.Reading(emerson.FieldOutputVoltage).Status; got != StatusHigh {
		t.Fatalf("voltage status = %v, want HIGH", got)
	}

	// 其他字段不受影响
	if got := tr.Reading(emerson.FieldTemperature).Status; got != StatusUnknown {
		t.Fatalf("temperature status = %v, want UNKNOWN", got)
	}
	if got := tr.Observe(emerson.FieldTemperature, 25.0, time.Now()); got != StatusNormal {
		t.Fatalf("temperature status = %v, want NORMAL", got)
	}
}
