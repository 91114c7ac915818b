package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"rectifier-gateway/internal/canbus"
	"rectifier-gateway/internal/config"
	"rectifier-gateway/internal/infra/kafka"
	"rectifier-gateway/internal/infra/mq"
	"rectifier-gateway/internal/infra/rabbitmq"
	"rectifier-gateway/internal/protocol/emerson"
	"rectifier-gateway/internal/server"
	"rectifier-gateway/internal/usecase"
	"rectifier-gateway/internal/usecase/control"
	"rectifier-gateway/internal/usecase/rectifier"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 1. 配置加载
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}

	// Init Logger
	writeSyncer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize, // megabytes
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge, // days
		Compress:   cfg.Log.Compress,
	})
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	// Parse Log Level
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zap.DebugLevel // Default
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		writeSyncer,
		zap.NewAtomicLevelAt(level),
	)
	logger := zap.New(core, zap.AddCaller())
	defer logger.Sync()

	// 2. CAN 链路 (可选比特率配置，需要 CAP_NET_ADMIN)
	if cfg.CAN.ConfigureLink {
		if err := canbus.ConfigureLink(cfg.CAN.Interface, cfg.CAN.Bitrate, cfg.CAN.RestartMs, logger); err != nil {
			logger.Fatal("Failed to configure CAN link", zap.Error(err))
		}
	}
	bus, err := canbus.NewSocketCANBus(cfg.CAN.Interface, logger)
	if err != nil {
		logger.Fatal("Failed to open CAN bus", zap.Error(err))
	}

	// 3. 基础设施层 (消息队列)
	producer := newProducer(cfg, logger)
	defer producer.Close()

	dispatcher := usecase.NewDataDispatcher(producer, "rectifier_telemetry", 4, logger)
	dispatcher.Start()
	defer dispatcher.Stop()

	// 4. 业务逻辑层 (整流模块控制器)
	ctrl := rectifier.NewController(deviceParams(cfg.Device), rectifier.Options{
		Interface:         cfg.CAN.Interface,
		SendInterval:      secondsToDuration(cfg.Device.SendIntervalSec),
		ReceiveInterval:   secondsToDuration(cfg.Device.ReceiveIntervalSec),
		CommandPacing:     time.Duration(cfg.Device.CommandPacingMs) * time.Millisecond,
		MaxInvalidCount:   cfg.Device.MaxInvalidCount,
		MaxUnchangedCount: cfg.Device.MaxUnchangedCount,
	}, bus, dispatcher, logger)
	ctrl.Run()

	// 5. 控制服务层
	quit := make(chan os.Signal, 1)
	auth := control.NewInMemoryAuthService(cfg.Auth)
	h := control.NewHandler(ctrl, auth, func() { quit <- syscall.SIGTERM }, logger)
	srv := server.NewControlServer(cfg, logger, h)

	go func() {
		if err := srv.Start(context.Background()); err != nil {
			logger.Fatal("Control server failed", zap.Error(err))
		}
	}()

	// 优雅停机
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	_ = srv.Stop(context.Background())
	if err := ctrl.Stop(); err != nil {
		logger.Warn("Controller shutdown error", zap.Error(err))
	}
}

// newProducer 按配置选择消息队列实现，未启用时使用空实现。
func newProducer(cfg *config.Config, logger *zap.Logger) mq.Producer {
	if !cfg.MessageQueue.Enabled {
		return mq.NewNoOpProducer()
	}

	switch cfg.MessageQueue.Type {
	case "kafka":
		p, err := kafka.NewKafkaProducer(cfg.MessageQueue.Kafka, logger)
		if err != nil {
			logger.Error("Failed to initialize Kafka producer, telemetry fan-out disabled", zap.Error(err))
			return mq.NewNoOpProducer()
		}
		return p
	case "rabbitmq":
		p, err := rabbitmq.NewRabbitMQProducer(cfg.MessageQueue.RabbitMQ, logger)
		if err != nil {
			logger.Error("Failed to initialize RabbitMQ producer, telemetry fan-out disabled", zap.Error(err))
			return mq.NewNoOpProducer()
		}
		return p
	default:
		logger.Warn("Unknown message queue type, telemetry fan-out disabled", zap.String("type", cfg.MessageQueue.Type))
		return mq.NewNoOpProducer()
	}
}

func deviceParams(d config.DeviceConfig) emerson.DeviceParams {
	return emerson.DeviceParams{
		RatedCurrent:       d.RatedCurrent,
		RatedPercentageMin: d.RatedPercentageMin,
		RatedPercentageMax: d.RatedPercentageMax,
		RatedPercentage:    d.RatedPercentage,
		RatedPower:         d.RatedPower,
		VoltageMin:         d.VoltageMin,
		VoltageMax:         d.VoltageMax,
		CurrentMin:         d.CurrentMin,
		TemperatureMin:     d.TemperatureMin,
		TemperatureMax:     d.TemperatureMax,
		InputVoltageMin:    d.InputVoltageMin,
		InputVoltageMax:    d.InputVoltageMax,
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
