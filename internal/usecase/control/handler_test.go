package control

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"rectifier-gateway/internal/config"
	"rectifier-gateway/internal/protocol/emerson"
	"rectifier-gateway/internal/usecase/rectifier"
)

type nopBus struct{}

func (nopBus) Send(emerson.Frame) error          { return nil }
func (nopBus) SubscribeFunc(func(emerson.Frame)) {}
func (nopBus) Disconnect() error                 { return nil }

type fakeConn struct {
	authed bool
}

func (c *fakeConn) RemoteAddr() string      { return "test:1" }
func (c *fakeConn) SetAuthenticated(v bool) { c.authed = v }
func (c *fakeConn) IsAuthenticated() bool   { return c.authed }

func newTestHandler(users []config.UserConfig, stopFn func()) (*Handler, *rectifier.Controller) {
	ctrl := rectifier.NewController(emerson.DefaultParams(), rectifier.Options{}, nopBus{}, nil, zap.NewNop())
	auth := NewInMemoryAuthService(config.AuthConfig{Users: users})
	if stopFn == nil {
		stopFn = func() {}
	}
	return NewHandler(ctrl, auth, stopFn, zap.NewNop()), ctrl
}

func TestHandleLineRequiresAuth(t *testing.T) {
	h, _ := newTestHandler([]config.UserConfig{{Username: "admin", Password: "secret"}}, nil)
	conn := &fakeConn{}

	if resp := h.HandleLine(conn, "SET VOLTAGE 54.2"); !strings.HasPrefix(resp, "ERR") {
		t.Fatalf("unauthenticated SET accepted: %q", resp)
	}
	if resp := h.HandleLine(conn, "AUTH admin wrong"); !strings.HasPrefix(resp, "ERR") {
		t.Fatalf("wrong password accepted: %q", resp)
	}
	if resp := h.HandleLine(conn, "AUTH admin secret"); resp != "OK" {
		t.Fatalf("AUTH response = %q", resp)
	}
	if resp := h.HandleLine(conn, "SET VOLTAGE 54.2"); resp != "OK" {
		t.Fatalf("authenticated SET response = %q", resp)
	}
}

func TestHandleLineOpenWhenNoUsers(t *testing.T) {
	h, ctrl := newTestHandler(nil, nil)
	conn := &fakeConn{}

	if resp := h.HandleLine(conn, "set voltage 54.2"); resp != "OK" {
		t.Fatalf("response = %q", resp)
	}
	if got := ctrl.Settings().Snapshot().OutputVoltage.Value; got != 54.2 {
		t.Fatalf("voltage setpoint = %v, want 54.2", got)
	}
}

func TestHandleLineSetCommands(t *testing.T) {
	h, ctrl := newTestHandler(nil, nil)
	conn := &fakeConn{}

	tests := []struct {
		line string
		ok   bool
	}{
		{"SET VOLTAGE 54.2 PERM", true},
		{"SET VOLTAGE 60.0", false}, // 越界
		{"SET CURRENT 31.25", true},
		{"SET CURRENT-PERCENT 121", true},
		{"SET CURRENT-PERCENT 9", false}, // 越界
		{"SET INPUT-LIMIT 16", true},
		{"SET WALKIN ON 8", true},
		{"SET WALKIN OFF", true},
		{"SET RESTART-OV ON", true},
		{"SET BOGUS 1", false},
		{"FROB", false},
	}

	for _, tt := range tests {
		resp := h.HandleLine(conn, tt.line)
		if tt.ok && resp != "OK" {
			t.Fatalf("%q: response = %q, want OK", tt.line, resp)
		}
		if !tt.ok && !strings.HasPrefix(resp, "ERR") {
			t.Fatalf("%q: response = %q, want ERR", tt.line, resp)
		}
	}

	s := ctrl.Settings().Snapshot()
	if s.OutputVoltage.Value != 54.2 || !s.OutputVoltage.Fixed {
		t.Fatalf("voltage = %+v", s.OutputVoltage)
	}
	if !s.RestartOvervoltage {
		t.Fatal("restart overvoltage not set")
	}
}

func TestHandleLineGet(t *testing.T) {
	h, _ := newTestHandler(nil, nil)

	resp := h.HandleLine(&fakeConn{}, "GET")
	var snap rectifier.ReadoutSnapshot
	if err := json.Unmarshal([]byte(resp), &snap); err != nil {
		t.Fatalf("GET response is not valid JSON: %v (%q)", err, resp)
	}
	if _, ok := snap.Fields["output_voltage"]; !ok {
		t.Fatalf("snapshot missing output_voltage: %+v", snap.Fields)
	}
}

func TestHandleLineStop(t *testing.T) {
	stopped := make(chan struct{})
	h, _ := newTestHandler(nil, func() { close(stopped) })

	if resp := h.HandleLine(&fakeConn{}, "STOP"); resp != "OK" {
		t.Fatalf("STOP response = %q", resp)
	}
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop function not invoked")
	}
}
