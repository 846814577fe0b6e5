package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quitpath/internal/queue"
)

const (
	DefaultWorkerCount = 2

	// DefaultBatchSize is the number of messages to read per batch
	DefaultBatchSize = 10

	// DefaultBlockTimeout is how long XREADGROUP waits for new messages
	DefaultBlockTimeout = 5 * time.Second

	// readErrorBackoff is the pause after a failed read
	readErrorBackoff = time.Second
)

// EventHandler processes one comment event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event queue.CommentEvent) error
}

// Manager runs worker goroutines that consume the comment stream.
type Manager struct {
	consumer     queue.Consumer
	handler      EventHandler
	workerCount  int
	batchSize    int64
	blockTime    time.Duration
	consumerName string
	log          *zap.Logger
}

// ManagerConfig holds configuration for the worker manager.
type ManagerConfig struct {
	WorkerCount  int
	BatchSize    int64
	BlockTimeout time.Duration

	// ConsumerName prefixes each worker's consumer name. Use something
	// stable per process (hostname) so pending messages are recovered
	// after a restart.
	ConsumerName string
}

func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		WorkerCount:  DefaultWorkerCount,
		BatchSize:    DefaultBatchSize,
		BlockTimeout: DefaultBlockTimeout,
		ConsumerName: "quitpath",
	}
}

func NewManager(consumer queue.Consumer, handler EventHandler, cfg ManagerConfig, log *zap.Logger) *Manager {
	def := DefaultManagerConfig()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = def.WorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = def.BlockTimeout
	}
	if cfg.ConsumerName == "" {
		cfg.ConsumerName = def.ConsumerName
	}

	return &Manager{
		consumer:     consumer,
		handler:      handler,
		workerCount:  cfg.WorkerCount,
		batchSize:    cfg.BatchSize,
		blockTime:    cfg.BlockTimeout,
		consumerName: cfg.ConsumerName,
		log:          log.Named("worker"),
	}
}

// Run ensures the consumer group exists, then blocks running workers until
// ctx is cancelled. It returns nil on a clean shutdown.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.consumer.EnsureGroup(ctx, queue.StreamComments, queue.ConsumerGroupNotifiers); err != nil {
		return err
	}

	m.log.Info("starting workers",
		zap.Int("count", m.workerCount),
		zap.String("stream", queue.StreamComments),
		zap.String("group", queue.ConsumerGroupNotifiers),
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 1; i <= m.workerCount; i++ {
		id := i
		g.Go(func() error {
			m.runWorker(gctx, id, m.consumerNameFor(id))
			return nil
		})
	}

	err := g.Wait()
	m.log.Info("all workers stopped")
	return err
}

func (m *Manager) runWorker(ctx context.Context, workerID int, consumerName string) {
	log := m.log.With(zap.Int("worker", workerID), zap.String("consumer", consumerName))
	log.Debug("started")

	m.processPending(ctx, log, consumerName)

	for {
		select {
		case <-ctx.Done():
			log.Debug("shutting down")
			return
		default:
			m.processMessages(ctx, log, consumerName)
		}
	}
}

// processPending replays messages a previous run of this consumer read but
// never acked. It stops at the first batch in which nothing could be acked,
// since re-reading from "0" would return that same batch again; those
// messages stay pending for the next start.
func (m *Manager) processPending(ctx context.Context, log *zap.Logger, consumerName string) {
	for {
		messages, err := m.consumer.ReadPending(ctx, queue.StreamComments, queue.ConsumerGroupNotifiers, consumerName, m.batchSize)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn("read pending failed", zap.Error(err))
			}
			return
		}
		if len(messages) == 0 {
			return
		}

		log.Info("recovering pending messages", zap.Int("count", len(messages)))
		if acked := m.handleMessages(ctx, log, messages); acked == 0 {
			log.Warn("pending recovery made no progress, leaving messages pending",
				zap.Int("count", len(messages)))
			return
		}
	}
}

func (m *Manager) processMessages(ctx context.Context, log *zap.Logger, consumerName string) {
	messages, err := m.consumer.Read(
		ctx,
		queue.StreamComments,
		queue.ConsumerGroupNotifiers,
		consumerName,
		m.batchSize,
		m.blockTime,
	)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Warn("read failed", zap.Error(err))
		select {
		case <-ctx.Done():
		case <-time.After(readErrorBackoff):
		}
		return
	}

	if len(messages) > 0 {
		m.handleMessages(ctx, log, messages)
	}
}

// handleMessages acks every message, including ones the handler failed on,
// so a poison event cannot loop forever. It returns how many acks succeeded.
func (m *Manager) handleMessages(ctx context.Context, log *zap.Logger, messages []queue.Message) int {
	acked := 0
	for _, msg := range messages {
		if err := m.handler.HandleEvent(ctx, msg.Event); err != nil {
			log.Warn("handler error",
				zap.String("msg_id", msg.ID),
				zap.String("type", msg.Event.Type),
				zap.Error(err),
			)
		}

		if err := m.consumer.Ack(ctx, queue.StreamComments, queue.ConsumerGroupNotifiers, msg.ID); err != nil {
			log.Warn("ack failed", zap.String("msg_id", msg.ID), zap.Error(err))
			continue
		}
		acked++
	}
	return acked
}

func (m *Manager) consumerNameFor(workerID int) string {
	return fmt.Sprintf("%s-%d", m.consumerName, workerID)
}
