package emerson

import (
	"encoding/binary"
	"math"
	"testing"
)

func telemetryFrame(selector byte, value float64) Frame {
	data := []byte{0x41, 0xF0, 0x00, selector, 0, 0, 0, 0}
	binary.BigEndian.PutUint32(data[4:8], math.Float32bits(float32(value)))
	return Frame{ID: ArbitrationID, Extended: true, Data: data}
}

func TestDecodeTelemetry(t *testing.T) {
	tests := []struct {
		selector byte
		field    Field
		value    float64
	}{
		{0x01, FieldOutputVoltage, 52.3},
		{0x02, FieldOutputCurrentValue, 10.5},
		{0x03, FieldOutputCurrentLimit, 62.5},
		{0x04, FieldTemperature, 36.75},
		{0x05, FieldInputVoltage, 49.0},
	}

	for _, tt := range tests {
		t.Run(tt.field.String(), func(t *testing.T) {
			field, value, ok := DecodeTelemetry(telemetryFrame(tt.selector, tt.value))
			if !ok {
				t.Fatal("ok = false")
			}
			if field != tt.field {
				t.Fatalf("field = %v, want %v", field, tt.field)
			}
			if float32(value) != float32(tt.value) {
				t.Fatalf("value = %v, want %v", value, tt.value)
			}
		})
	}
}

func TestDecodeTelemetryIgnoresForeignFrames(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not a response", []byte{0x03, 0xF0, 0x00, 0x01, 0, 0, 0, 0}},
		{"unknown selector", []byte{0x41, 0xF0, 0x00, 0x77, 0, 0, 0, 0}},
		{"short frame", []byte{0x41, 0xF0, 0x00}},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, ok := DecodeTelemetry(Frame{ID: ArbitrationID, Extended: true, Data: tt.data}); ok {
				t.Fatal("ok = true, 应当忽略")
			}
		})
	}
}
