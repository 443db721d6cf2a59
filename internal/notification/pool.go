package notification

import (
	"sync"

	"vulx/internal/metrics"
	"vulx/pkg/logger"
)

// deliveryPool bounds how many deliveries run at once with a semaphore and
// reports slot usage on the delivery gauges.
type deliveryPool struct {
	semaphore chan struct{}
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

func newDeliveryPool(maxConcurrent int, m *metrics.Metrics, log *logger.Logger) *deliveryPool {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &deliveryPool{
		semaphore: make(chan struct{}, maxConcurrent),
		metrics:   m,
		logger:    log,
	}
}

// Run executes every job and waits for all of them. A slow recipient only
// holds one slot.
func (p *deliveryPool) Run(jobs []func()) {
	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		p.metrics.DeliveriesQueued.Inc()

		go func(job func()) {
			defer wg.Done()
			p.semaphore <- struct{}{}
			p.metrics.DeliveriesQueued.Dec()
			p.metrics.DeliveriesRunning.Inc()

			defer func() {
				p.metrics.DeliveriesRunning.Dec()
				<-p.semaphore
			}()
			job()
		}(job)
	}
	wg.Wait()

	p.logger.WithFields(logger.Fields{"deliveries": len(jobs), "slots": cap(p.semaphore)}).Debug("Delivery batch finished")
}
