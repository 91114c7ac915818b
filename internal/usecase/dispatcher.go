package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// DataDispatcher 把遥测快照异步分发到消息队列。接收循环通过
// 非阻塞的 Dispatch 入队，worker 协程池负责实际投递，保证
// 消息队列抖动不会拖慢轮询。
type DataDispatcher struct {
	dataChan    chan interface{}
	producer    DataProducer
	logger      *zap.Logger
	workerCount int
	topic       string
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewDataDispatcher 创建一个新的数据分发器
func NewDataDispatcher(producer DataProducer, topic string, workerCount int, logger *zap.Logger) *DataDispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &DataDispatcher{
		dataChan:    make(chan interface{}, 1024), // 带缓冲 Channel，防止阻塞接收循环
		producer:    producer,
		workerCount: workerCount,
		topic:       topic,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start 启动 worker 协程池
func (d *DataDispatcher) Start() {
	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.logger.Info("DataDispatcher started", zap.Int("workers", d.workerCount))
}

// Stop 取消上下文并等待全部 worker 退出
func (d *DataDispatcher) Stop() {
	d.cancel()
	d.wg.Wait()
	d.logger.Info("DataDispatcher stopped")
}

// Dispatch 非阻塞入队。通道满时丢弃本条快照 (下个接收周期会有新的)。
func (d *DataDispatcher) Dispatch(data interface{}) {
	select {
	case d.dataChan <- data:
	default:
		d.logger.Warn("DataDispatcher channel full, dropping snapshot")
	}
}

func (d *DataDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case data := <-d.dataChan:
			d.process(data)
		}
	}
}

func (d *DataDispatcher) process(data interface{}) {
	if err := d.producer.Produce(d.ctx, d.topic, "", data); err != nil {
		d.logger.Error("DataDispatcher failed to send data", zap.Error(err))
	}
}
