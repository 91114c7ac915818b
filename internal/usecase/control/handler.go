package control

import (
	"encoding/json"
	"runtime/debug"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"rectifier-gateway/internal/usecase/rectifier"
)

// Conn 抽象一条控制连接的会话状态
type Conn interface {
	RemoteAddr() string
	SetAuthenticated(bool)
	IsAuthenticated() bool
}

// Handler 解析并执行控制口的行命令。
//
// 命令格式 (大小写不敏感，PERM 表示写入设备非易失存储):
//
//	AUTH <user> <pass>
//	SET VOLTAGE <v> [PERM]
//	SET CURRENT <a> [PERM]
//	SET CURRENT-PERCENT <p> [PERM]
//	SET INPUT-LIMIT <a>
//	SET WALKIN ON <seconds> | SET WALKIN OFF
//	SET RESTART-OV ON|OFF
//	GET
//	STOP
//
// 响应为单行 "OK"、"ERR <原因>" 或 GET 的 JSON 快照。
type Handler struct {
	ctrl   *rectifier.Controller
	auth   AuthService
	stopFn func()
	logger *zap.Logger
}

func NewHandler(ctrl *rectifier.Controller, auth AuthService, stopFn func(), logger *zap.Logger) *Handler {
	return &Handler{
		ctrl:   ctrl,
		auth:   auth,
		stopFn: stopFn,
		logger: logger,
	}
}

// HandleLine 处理一行命令，返回响应行 (不含换行符)。
func (h *Handler) HandleLine(conn Conn, line string) (resp string) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Panic in HandleLine",
				zap.Any("recover", r),
				zap.String("line", line),
				zap.String("stack", string(debug.Stack())))
			resp = "ERR internal error"
		}
	}()

	args := strings.Fields(line)
	if len(args) == 0 {
		return ""
	}

	switch strings.ToUpper(args[0]) {
	case "AUTH":
		return h.handleAuth(conn, args[1:])
	case "GET":
		return h.handleGet()
	case "SET":
		if !h.authorized(conn) {
			return "ERR 未认证，请先 AUTH"
		}
		return h.handleSet(args[1:])
	case "STOP":
		if !h.authorized(conn) {
			return "ERR 未认证，请先 AUTH"
		}
		h.logger.Info("Stop requested via control connection", zap.String("remote_addr", conn.RemoteAddr()))
		go h.stopFn()
		return "OK"
	default:
		return "ERR 未知命令: " + args[0]
	}
}

func (h *Handler) authorized(conn Conn) bool {
	if h.auth == nil || !h.auth.Required() {
		return true
	}
	return conn.IsAuthenticated()
}

func (h *Handler) handleAuth(conn Conn, args []string) string {
	if len(args) != 2 {
		return "ERR 用法: AUTH <user> <pass>"
	}
	if err := h.auth.Login(args[0], args[1]); err != nil {
		h.logger.Warn("Control auth failed",
			zap.String("username", args[0]),
			zap.String("remote_addr", conn.RemoteAddr()),
			zap.Error(err))
		return "ERR " + err.Error()
	}
	conn.SetAuthenticated(true)
	return "OK"
}

func (h *Handler) handleGet() string {
	body, err := json.Marshal(h.ctrl.Snapshot())
	if err != nil {
		return "ERR " + err.Error()
	}
	return string(body)
}

func (h *Handler) handleSet(args []string) string {
	if len(args) < 2 {
		return "ERR 用法: SET <参数> <值> [PERM]"
	}

	perm := strings.EqualFold(args[len(args)-1], "PERM")
	settings := h.ctrl.Settings()

	var err error
	param := strings.ToUpper(args[0])
	switch param {
	case "VOLTAGE":
		var v float64
		if v, err = strconv.ParseFloat(args[1], 64); err == nil {
			err = settings.SetOutputVoltage(v, perm)
		}
	case "CURRENT":
		var v float64
		if v, err = strconv.ParseFloat(args[1], 64); err == nil {
			err = settings.SetCurrentLimitValue(v, perm)
		}
	case "CURRENT-PERCENT":
		var v float64
		if v, err = strconv.ParseFloat(args[1], 64); err == nil {
			err = settings.SetCurrentLimitPercentage(v, perm)
		}
	case "INPUT-LIMIT":
		var v float64
		if v, err = strconv.ParseFloat(args[1], 64); err == nil {
			err = settings.SetInputCurrentLimit(v)
		}
	case "WALKIN":
		switch strings.ToUpper(args[1]) {
		case "OFF":
			err = settings.SetWalkIn(false, 0)
		case "ON":
			if len(args) < 3 {
				return "ERR 用法: SET WALKIN ON <seconds>"
			}
			var secs float64
			if secs, err = strconv.ParseFloat(args[2], 64); err == nil {
				err = settings.SetWalkIn(true, secs)
			}
		default:
			return "ERR 用法: SET WALKIN ON <seconds> | SET WALKIN OFF"
		}
	case "RESTART-OV":
		switch strings.ToUpper(args[1]) {
		case "ON":
			err = settings.SetRestartOvervoltage(true)
		case "OFF":
			err = settings.SetRestartOvervoltage(false)
		default:
			return "ERR 用法: SET RESTART-OV ON|OFF"
		}
	default:
		return "ERR 未知参数: " + args[0]
	}

	if err != nil {
		return "ERR " + err.Error()
	}

	h.logger.Info("Setpoint updated via control connection",
		zap.String("param", param),
		zap.Strings("args", args[1:]),
		zap.Bool("permanent", perm))
	return "OK"
}
