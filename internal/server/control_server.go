package server

import (
	"bytes"
	"context"
	"fmt"

	"github.com/panjf2000/gnet/v2"

	"go.uber.org/zap"

	"rectifier-gateway/internal/config"
	"rectifier-gateway/internal/usecase/control"
)

// connContext 保存每条控制连接的状态
type connContext struct {
	buffer []byte
	addr   string
	authed bool
}

type GnetConnWrapper struct {
	conn gnet.Conn
}

func (w *GnetConnWrapper) RemoteAddr() string {
	return w.conn.RemoteAddr().String()
}

func (w *GnetConnWrapper) SetAuthenticated(v bool) {
	if ctx, ok := w.conn.Context().(*connContext); ok {
		ctx.authed = v
	}
}

func (w *GnetConnWrapper) IsAuthenticated() bool {
	if ctx, ok := w.conn.Context().(*connContext); ok {
		return ctx.authed
	}
	return false
}

// ControlServer 面向操作员的行协议 TCP 控制服务。
// 每行一条命令，响应一行；解析与执行交给 control.Handler。
type ControlServer struct {
	gnet.BuiltinEventEngine

	addr      string
	multicore bool
	logger    *zap.Logger
	handler   *control.Handler
}

const maxLineLength = 4096

func NewControlServer(cfg *config.Config, logger *zap.Logger, h *control.Handler) *ControlServer {
	return &ControlServer{
		addr:      fmt.Sprintf("tcp://%s:%d", cfg.Control.Host, cfg.Control.Port),
		multicore: false, // 单设备网关，控制口流量可忽略
		logger:    logger,
		handler:   h,
	}
}

func (s *ControlServer) OnBoot(eng gnet.Engine) (action gnet.Action) {
	s.logger.Info("Control server is booting", zap.String("address", s.addr))
	return
}

func (s *ControlServer) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	s.logger.Info("Control connection opened", zap.String("remote_addr", c.RemoteAddr().String()))

	c.SetContext(&connContext{
		buffer: make([]byte, 0, 256),
		addr:   c.RemoteAddr().String(),
	})
	return
}

func (s *ControlServer) OnTraffic(c gnet.Conn) (action gnet.Action) {
	ctx := c.Context().(*connContext)

	buf, _ := c.Next(-1)
	if len(buf) > 0 {
		ctx.buffer = append(ctx.buffer, buf...)

		// 逐行切分并处理
		for {
			idx := bytes.IndexByte(ctx.buffer, '\n')
			if idx < 0 {
				if len(ctx.buffer) > maxLineLength {
					s.logger.Warn("Control line too long, closing connection", zap.String("addr", ctx.addr))
					action = gnet.Close
				}
				break
			}

			line := string(bytes.TrimRight(ctx.buffer[:idx], "\r"))
			ctx.buffer = ctx.buffer[idx+1:]

			resp := s.handler.HandleLine(&GnetConnWrapper{conn: c}, line)
			if resp == "" {
				continue
			}
			if _, err := c.Write(append([]byte(resp), '\n')); err != nil {
				s.logger.Warn("Failed to write control response", zap.Error(err), zap.String("addr", ctx.addr))
				action = gnet.Close
				return
			}
		}
	}

	return
}

func (s *ControlServer) OnClose(c gnet.Conn, err error) (action gnet.Action) {
	s.logger.Info("Control connection closed", zap.String("remote", c.RemoteAddr().String()), zap.Error(err))
	return
}

func (s *ControlServer) OnShutdown(eng gnet.Engine) {
	s.logger.Info("Control server is shutting down")
}

func (s *ControlServer) Start(ctx context.Context) error {
	s.logger.Info("Starting control server", zap.String("addr", s.addr))
	return gnet.Run(s, s.addr,
		gnet.WithMulticore(s.multicore),
		gnet.WithLogger(s.logger.Sugar()),
		gnet.WithReusePort(true),
	)
}

func (s *ControlServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping control server...")
	return gnet.Stop(context.Background(), s.addr)
}
