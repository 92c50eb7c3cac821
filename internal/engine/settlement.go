package engine

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"lrd/internal/engine/interfaces"
	"lrd/internal/providers"
	"lrd/internal/structures"
)

// SettlementRequest is one accepted claim awaiting ledger submission.
type SettlementRequest struct {
	UserID      string
	ClaimID     string
	Amount      float64
	Destination string
}

// ResultFunc reports a finished submission back to the claim's engine.
type ResultFunc func(userID, claimID, txID string, err error)

// SettlementDispatcher drains accepted claims to the external ledger on a
// worker goroutine with exponential backoff, keeping retries and network
// latency out of the tick loop's critical path.
type SettlementDispatcher struct {
	client     interfaces.SettlementInterface
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface
	queue      chan SettlementRequest
	maxElapsed time.Duration

	mu       sync.Mutex
	onResult ResultFunc

	wg     sync.WaitGroup
	closed chan struct{}
	once   sync.Once
}

// NewSettlementDispatcherFromConfig is the DI constructor.
func NewSettlementDispatcherFromConfig(conf *structures.Config, client interfaces.SettlementInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) *SettlementDispatcher {
	return NewSettlementDispatcher(client, logger, metrics, conf.Settlement.QueueSize, conf.Settlement.MaxRetryElapsed)
}

func NewSettlementDispatcher(client interfaces.SettlementInterface, logger providers.Logger, metrics providers.MetricsProviderInterface, queueSize int, maxElapsed time.Duration) *SettlementDispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &SettlementDispatcher{
		client:     client,
		logger:     logger,
		metrics:    metrics,
		queue:      make(chan SettlementRequest, queueSize),
		maxElapsed: maxElapsed,
		closed:     make(chan struct{}),
	}
}

// SetResultFunc installs the callback invoked after each submission settles
// or exhausts its retries. Must be called before Start.
func (d *SettlementDispatcher) SetResultFunc(fn ResultFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onResult = fn
}

func (d *SettlementDispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

func (d *SettlementDispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.closed:
			// drain what is already queued before exiting
			for {
				select {
				case req := <-d.queue:
					d.submit(req)
				default:
					return
				}
			}
		case req := <-d.queue:
			d.submit(req)
		}
	}
}

func (d *SettlementDispatcher) submit(req SettlementRequest) {
	var txID string
	attempts := 0

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = d.maxElapsed

	err := backoff.Retry(func() error {
		attempts++
		if attempts > 1 {
			d.metrics.IncSettlementRetries()
		}
		id, err := d.client.Submit(req.Amount, req.Destination)
		if err != nil {
			return err
		}
		txID = id
		return nil
	}, bo)

	if err != nil {
		d.metrics.IncSettlementResults(string(ClaimFailed))
		d.logger.Errorf(providers.TypeClaim, "claim %s: settlement gave up after %d attempts: %s", req.ClaimID, attempts, err)
	} else {
		d.metrics.IncSettlementResults(string(ClaimConfirmed))
		d.logger.Infof(providers.TypeClaim, "claim %s: settled as tx %s", req.ClaimID, txID)
	}

	d.mu.Lock()
	fn := d.onResult
	d.mu.Unlock()
	if fn != nil {
		fn(req.UserID, req.ClaimID, txID, err)
	}
}

// Enqueue hands a request to the worker without blocking. Returns false when
// the queue is full; the claim then stays pending for reconciliation.
func (d *SettlementDispatcher) Enqueue(req SettlementRequest) bool {
	select {
	case d.queue <- req:
		return true
	default:
		return false
	}
}

// Close stops the worker after draining queued submissions.
func (d *SettlementDispatcher) Close() {
	d.once.Do(func() {
		close(d.closed)
	})
	d.wg.Wait()
}
