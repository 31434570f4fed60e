package queue

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/storefront/realtime/internal/core/domain"
	"github.com/storefront/realtime/internal/core/ports"
	"github.com/storefront/realtime/internal/metrics"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// ErrStopped is returned by Enqueue once the workers have shut down.
var ErrStopped = errors.New("stock dispatcher stopped")

// Dispatcher routes stock changes to a fixed set of workers using consistent
// hashing on the product id, so changes to one product are evaluated in
// submission order and never concurrently.
type Dispatcher struct {
	workers []chan ports.StockChangeInput
	service ports.AlertService
	log     zerolog.Logger

	stopped  chan struct{}
	stopOnce sync.Once
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.AlertService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.StockChangeInput, numWorkers),
		service: service,
		log:     log,
		stopped: make(chan struct{}),
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.StockChangeInput, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
	go func() {
		<-ctx.Done()
		d.stopOnce.Do(func() { close(d.stopped) })
	}()
}

// Enqueue sends a change to the worker responsible for its product.
// The call blocks while that worker's buffer is full and returns ErrStopped
// once the workers have shut down.
func (d *Dispatcher) Enqueue(change ports.StockChangeInput) error {
	select {
	case <-d.stopped:
		return ErrStopped
	default:
	}

	i := d.shardIndex(change.ProductID)
	select {
	case d.workers[i] <- change:
	case <-d.stopped:
		return ErrStopped
	}
	metrics.StockQueueDepth.WithLabelValues(strconv.Itoa(i)).Set(float64(len(d.workers[i])))
	return nil
}

// EnqueueBatch enqueues multiple changes preserving per-product ordering.
// It stops at the first change that cannot be queued.
func (d *Dispatcher) EnqueueBatch(changes []ports.StockChangeInput) error {
	for n, c := range changes {
		if err := d.Enqueue(c); err != nil {
			return fmt.Errorf("enqueue change %d of %d: %w", n+1, len(changes), err)
		}
	}
	return nil
}

// shardIndex maps a product id deterministically to a worker index.
func (d *Dispatcher) shardIndex(productID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(productID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.StockChangeInput) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-ch:
			if !ok {
				return
			}
			metrics.StockQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			if _, err := d.service.ApplyStockChange(ctx, change); err != nil {
				metrics.StockChangeErrorsTotal.WithLabelValues(errorReason(err)).Inc()
				d.log.Error().Err(err).
					Str("product_id", change.ProductID).
					Int("worker_id", id).
					Msg("stock change failed")
			}
		}
	}
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, domain.ErrInvalidStock):
		return "invalid_stock"
	default:
		return "apply_failed"
	}
}
