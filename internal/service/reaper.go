package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/gin-blog/internal/apperr"
	"github.com/d60-Lab/gin-blog/internal/identity"
	"github.com/d60-Lab/gin-blog/pkg/logger"
)

const reapMaxAttempts = 5

type reapJob struct {
	uid     string
	attempt int
	enqAt   time.Time
}

// AccountReaper 异步补偿：注册后半段失败且同步删除账号也失败时，
// 在后台重试删除身份网关账号，避免留下没有资料文档的账号。
type AccountReaper struct {
	gateway   identity.Gateway
	ch        chan reapJob
	metricsCh chan time.Duration
	backoff   time.Duration
}

func NewAccountReaper(gateway identity.Gateway, queueSize int) *AccountReaper {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &AccountReaper{
		gateway:   gateway,
		ch:        make(chan reapJob, queueSize),
		metricsCh: make(chan time.Duration, 1024),
		backoff:   500 * time.Millisecond,
	}
}

// Start 启动 worker，返回停止函数。停止时给队列一小段时间排空。
func (r *AccountReaper) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 1
	}
	stopCh := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			for {
				select {
				case job := <-r.ch:
					r.process(job, stopCh)
				case <-stopCh:
					return
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		close(stopCh)
		timeout := time.After(2 * time.Second)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timeout:
				return nil
			default:
				if len(r.ch) == 0 {
					return nil
				}
				time.Sleep(50 * time.Millisecond)
			}
		}
	}
}

func (r *AccountReaper) process(job reapJob, stopCh <-chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := r.gateway.DeleteAccount(ctx, job.uid)
	cancel()

	if err == nil || errors.Is(err, apperr.ErrNotFound) {
		select {
		case r.metricsCh <- time.Since(job.enqAt):
		default:
		}
		return
	}

	job.attempt++
	if job.attempt >= reapMaxAttempts {
		logger.Error("reaper gave up deleting orphan account", zap.String("uid", job.uid), zap.Error(err))
		return
	}
	logger.Warn("reaper retry", zap.String("uid", job.uid), zap.Int("attempt", job.attempt), zap.Error(err))
	select {
	case <-time.After(r.backoff * time.Duration(job.attempt)):
	case <-stopCh:
		return
	}
	r.enqueue(job)
}

// Enqueue 队列满时丢弃并记录，账号需要人工清理。
func (r *AccountReaper) Enqueue(uid string) {
	r.enqueue(reapJob{uid: uid, enqAt: time.Now()})
}

func (r *AccountReaper) enqueue(job reapJob) {
	select {
	case r.ch <- job:
	default:
		logger.Warn("reaper queue full, drop orphan account", zap.String("uid", job.uid))
	}
}

// Metrics 每成功清理一个账号发送一次入队到完成的耗时。
func (r *AccountReaper) Metrics() <-chan time.Duration { return r.metricsCh }

// QueueLen 当前队列长度（采样值）
func (r *AccountReaper) QueueLen() int { return len(r.ch) }
