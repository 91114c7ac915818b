package rectifier

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"rectifier-gateway/internal/canbus"
	"rectifier-gateway/internal/protocol/emerson"
	"rectifier-gateway/internal/usecase"
)

// Options 轮询参数。零值字段在 NewController 中填充默认值。
type Options struct {
	Interface         string        // CAN 接口名，仅随快照上报
	SendInterval      time.Duration // 设定值重发周期 (在线命令约 30 秒失效)
	ReceiveInterval   time.Duration // 遥测请求周期
	CommandPacing     time.Duration // 同一周期内相邻命令的间隔
	MaxInvalidCount   int
	MaxUnchangedCount int
}

const (
	defaultSendInterval    = 15 * time.Second
	defaultReceiveInterval = time.Second
	defaultCommandPacing   = 200 * time.Millisecond
	defaultMaxCount        = 32
)

// FieldReadout 快照中单个字段的读出。
type FieldReadout struct {
	Reading
	Status string `json:"status"`
}

// ReadoutSnapshot 操作员与消息队列看到的只读快照。
type ReadoutSnapshot struct {
	Interface      string                  `json:"interface"`
	Timestamp      time.Time               `json:"timestamp"`
	Fields         map[string]FieldReadout `json:"fields"`
	OperatingMode  string                  `json:"operating_mode"`
	Postprocessing Postprocessing          `json:"postprocessing"`
	Settings       Settings                `json:"settings"`
}

// Controller 驱动一台整流模块: 发送循环按固定顺序重发设定值，
// 接收循环发出遥测读请求并把入站帧喂给有效性状态机。两个循环
// 长期并发运行，链路故障只结束当前周期，下个周期自动重试。
type Controller struct {
	opts     Options
	codec    *emerson.Codec
	bus      canbus.Bus
	settings *SettingsStore
	// dispatcher 为 nil 时不做消息队列上报
	dispatcher *usecase.DataDispatcher
	logger     *zap.Logger

	// mu 保护 tracker 与 post。只有接收路径写入，操作员 API 只读快照。
	mu      sync.RWMutex
	tracker *ValidityTracker
	post    Postprocessing

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewController(params emerson.DeviceParams, opts Options, bus canbus.Bus, dispatcher *usecase.DataDispatcher, logger *zap.Logger) *Controller {
	if opts.SendInterval <= 0 {
		opts.SendInterval = defaultSendInterval
	}
	if opts.ReceiveInterval <= 0 {
		opts.ReceiveInterval = defaultReceiveInterval
	}
	if opts.CommandPacing <= 0 {
		opts.CommandPacing = defaultCommandPacing
	}
	if opts.MaxInvalidCount <= 0 {
		opts.MaxInvalidCount = defaultMaxCount
	}
	if opts.MaxUnchangedCount <= 0 {
		opts.MaxUnchangedCount = defaultMaxCount
	}

	ctx, cancel := context.WithCancel(context.Background())
	codec := emerson.NewCodec(params)
	return &Controller{
		opts:       opts,
		codec:      codec,
		bus:        bus,
		settings:   NewSettingsStore(codec),
		dispatcher: dispatcher,
		logger:     logger,
		tracker:    NewValidityTracker(params, opts.MaxInvalidCount, opts.MaxUnchangedCount),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Settings 返回操作员设定值存储 (控制服务与 CLI 经由它写入)。
func (c *Controller) Settings() *SettingsStore {
	return c.settings
}

// Run 启动发送与接收循环，立即返回。
func (c *Controller) Run() {
	c.bus.SubscribeFunc(c.handleFrame)
	c.wg.Add(2)
	go c.runLoop("send", c.opts.SendInterval, c.sendCycle)
	go c.runLoop("receive", c.opts.ReceiveInterval, c.receiveCycle)
	c.logger.Info("Rectifier controller started",
		zap.String("interface", c.opts.Interface),
		zap.Duration("send_interval", c.opts.SendInterval),
		zap.Duration("receive_interval", c.opts.ReceiveInterval))
}

// Stop 终止两个循环，把电压与电流限值压到最低，然后拆除链路。
func (c *Controller) Stop() error {
	c.cancel()
	c.wg.Wait()

	p := c.codec.Params
	if f, err := c.codec.EncodeOutputVoltage(p.VoltageMin, false); err == nil {
		if err := c.bus.Send(f); err != nil {
			c.logger.Warn("Failed to drive voltage to minimum", zap.Error(err))
		}
	}
	time.Sleep(c.opts.CommandPacing)
	if f, err := c.codec.EncodeCurrentLimitPercentage(p.RatedPercentageMin, false); err == nil {
		if err := c.bus.Send(f); err != nil {
			c.logger.Warn("Failed to drive current limit to minimum", zap.Error(err))
		}
	}

	c.logger.Info("Rectifier controller stopped")
	return c.bus.Disconnect()
}

// runLoop 是发送/接收任务的监督循环: 周期内的任何失败 (链路错误、
// panic) 都被捕获并记录，下个周期重新开始。链路视为天然不可靠且
// 可恢复，从不致命。
func (c *Controller) runLoop(name string, interval time.Duration, cycle func() error) {
	defer c.wg.Done()
	for {
		c.safeCycle(name, cycle)
		if !c.sleep(interval) {
			return
		}
	}
}

func (c *Controller) safeCycle(name string, cycle func() error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Panic in poll cycle",
				zap.String("task", name),
				zap.Any("recover", r),
				zap.String("stack", string(debug.Stack())))
		}
	}()

	if err := cycle(); err != nil {
		c.logger.Warn("Poll cycle ended early, retrying next cycle",
			zap.String("task", name), zap.Error(err))
	}
}

// sendCycle 按固定顺序编码并发送全部设定值。部分设备按参数类
// 只取最新一条命令，顺序不可重排。
func (c *Controller) sendCycle() error {
	s := c.settings.Snapshot()

	type command struct {
		name  string
		frame emerson.Frame
		err   error
		skip  bool
	}
	cmds := make([]command, 0, 5)

	f, err := c.codec.EncodeOutputVoltage(s.OutputVoltage.Value, s.OutputVoltage.Fixed)
	cmds = append(cmds, command{name: "output_voltage", frame: f, err: err})

	if s.OutputCurrentLimit.Representation == RepresentationPercentage {
		f, err = c.codec.EncodeCurrentLimitPercentage(s.OutputCurrentLimit.Percentage, s.OutputCurrentLimit.Fixed)
	} else {
		f, err = c.codec.EncodeCurrentLimitValue(s.OutputCurrentLimit.Value, s.OutputCurrentLimit.Fixed)
	}
	cmds = append(cmds, command{name: "output_current_limit", frame: f, err: err})

	cmds = append(cmds, command{
		name:  "input_current_limit",
		frame: c.codec.EncodeInputCurrentLimit(s.InputCurrentLimit.Value),
		skip:  !s.InputCurrentLimit.Enabled,
	})
	cmds = append(cmds, command{name: "walk_in", frame: c.codec.EncodeWalkIn(s.WalkIn.Enabled, s.WalkIn.Seconds)})
	cmds = append(cmds, command{name: "restart_overvoltage", frame: c.codec.EncodeRestartOvervoltage(s.RestartOvervoltage)})

	sent := 0
	for _, cmd := range cmds {
		if cmd.skip {
			continue
		}
		if cmd.err != nil {
			// 尚未设定 (零值) 或越界的设定值不上桥
			c.logger.Debug("Skipping command", zap.String("command", cmd.name), zap.Error(cmd.err))
			continue
		}
		// 只在相邻两次实际发送之间间隔，跳过的命令不计
		if sent > 0 && !c.sleep(c.opts.CommandPacing) {
			return nil
		}
		if err := c.bus.Send(cmd.frame); err != nil {
			return fmt.Errorf("send %s: %w", cmd.name, err)
		}
		sent++
	}

	// 发送完一轮后刷新电流限值镜像表示
	c.settings.SyncMirror()
	return nil
}

// receiveCycle 发出一次全字段遥测读请求。响应帧由总线回调异步
// 进入 handleFrame；这里顺带把当前快照交给分发器上报。
func (c *Controller) receiveCycle() error {
	if err := c.bus.Send(emerson.ReadAllRequest()); err != nil {
		return fmt.Errorf("send read request: %w", err)
	}

	if c.dispatcher != nil {
		c.dispatcher.Dispatch(usecase.MQPayload{
			Type:      "rectifier_readout",
			Interface: c.opts.Interface,
			Data:      c.Snapshot(),
		})
	}
	return nil
}

// handleFrame 入站帧处理: 解码 → 有效性状态机 → 后处理重算。
// 非遥测帧直接丢弃，不算错误。
func (c *Controller) handleFrame(f emerson.Frame) {
	field, value, ok := emerson.DecodeTelemetry(f)
	if !ok {
		return
	}

	c.mu.Lock()
	status := c.tracker.Observe(field, value, time.Now())
	if status == StatusNormal {
		c.post = derivePostprocessing(c.codec.Params,
			c.tracker.Value(emerson.FieldOutputVoltage),
			c.tracker.Value(emerson.FieldOutputCurrentValue),
			c.tracker.Value(emerson.FieldOutputCurrentLimit))
	}
	c.mu.Unlock()

	if status != StatusNormal {
		c.logger.Debug("Telemetry sample flagged",
			zap.String("field", field.String()),
			zap.Float64("value", value),
			zap.String("status", status.String()))
	}
}

// Snapshot 返回当前读出、工作模式与设定值的只读快照。
func (c *Controller) Snapshot() ReadoutSnapshot {
	c.mu.RLock()
	fields := make(map[string]FieldReadout, len(emerson.Fields))
	for _, f := range emerson.Fields {
		r := c.tracker.Reading(f)
		fields[f.String()] = FieldReadout{Reading: r, Status: r.Status.String()}
	}
	post := c.post
	c.mu.RUnlock()

	return ReadoutSnapshot{
		Interface:      c.opts.Interface,
		Timestamp:      time.Now(),
		Fields:         fields,
		OperatingMode:  post.OperatingMode.String(),
		Postprocessing: post,
		Settings:       c.settings.Snapshot(),
	}
}

// sleep 可以被停机打断的睡眠；返回 false 表示控制器已停止。
func (c *Controller) sleep(d time.Duration) bool {
	select {
	case <-c.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
