package canbus

import (
	"bytes"
	"sync"
	"testing"

	"github.com/brutella/can"
	"go.uber.org/zap"

	"rectifier-gateway/internal/protocol/emerson"
)

func TestToCANFrame(t *testing.T) {
	codec := emerson.NewCodec(emerson.DefaultParams())

	f, err := codec.EncodeOutputVoltage(54.2, false)
	if err != nil {
		t.Fatalf("EncodeOutputVoltage: %v", err)
	}
	out, truncated := toCANFrame(f)
	if truncated {
		t.Fatal("8 字节命令帧不应截断")
	}
	if out.ID != emerson.ArbitrationID|effFlag {
		t.Fatalf("ID = %#x, want EFF flag set", out.ID)
	}
	if out.Length != 8 {
		t.Fatalf("Length = %d, want 8", out.Length)
	}
	if !bytes.Equal(out.Data[:], f.Data) {
		t.Fatalf("Data = % x, want % x", out.Data, f.Data)
	}
}

func TestToCANFrameTruncatesWalkIn(t *testing.T) {
	codec := emerson.NewCodec(emerson.DefaultParams())

	f := codec.EncodeWalkIn(true, 8.0)
	if len(f.Data) <= maxDataLength {
		t.Fatalf("walk-in enable data length = %d, want > %d", len(f.Data), maxDataLength)
	}

	out, truncated := toCANFrame(f)
	if !truncated {
		t.Fatal("expected truncation of appended duration bytes")
	}
	if out.Length != maxDataLength {
		t.Fatalf("Length = %d, want %d", out.Length, maxDataLength)
	}
	if !bytes.Equal(out.Data[:], f.Data[:maxDataLength]) {
		t.Fatalf("Data = % x, want % x", out.Data, f.Data[:maxDataLength])
	}
}

func TestSubscribeFuncConcurrentWithHandle(t *testing.T) {
	b := &SocketCANBus{logger: zap.NewNop()}

	frame := can.Frame{
		ID:     emerson.ArbitrationID | effFlag,
		Length: 8,
		Data:   [8]uint8{0x41, 0xF0, 0x00, 0x01, 0x42, 0x58, 0xCC, 0xCD},
	}

	// 接收循环在独立 goroutine 里投递帧，期间注册回调
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			b.Handle(frame)
		}
	}()

	received := make(chan emerson.Frame, 1)
	b.SubscribeFunc(func(f emerson.Frame) {
		select {
		case received <- f:
		default:
		}
	})
	wg.Wait()

	// 注册完成后的入站帧必须到达回调
	b.Handle(frame)
	select {
	case f := <-received:
		if f.ID != emerson.ArbitrationID || !f.Extended {
			t.Fatalf("frame = %+v, want masked extended ID %#x", f, uint32(emerson.ArbitrationID))
		}
	default:
		t.Fatal("callback not invoked after SubscribeFunc")
	}
}
