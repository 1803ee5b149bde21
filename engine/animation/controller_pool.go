package animation

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// ControllerPool advances many controllers in parallel on a dynamic worker pool.
// Each controller is updated by exactly one task per frame; Update returns once all of them finish.
type ControllerPool struct {
	pool    worker.DynamicWorkerPool
	workers int
	taskID  int
	mu      sync.Mutex
}

// NewControllerPool creates a pool with the given number of workers.
// A non-positive count uses one less than the number of CPUs, leaving the render thread free.
//
// Parameters:
//   - workers: the maximum number of concurrent update tasks
//
// Returns:
//   - *ControllerPool: the new pool
func NewControllerPool(workers int) *ControllerPool {
	if workers <= 0 {
		workers = max(runtime.NumCPU()-1, 1)
	}
	return &ControllerPool{
		pool:    worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
		workers: workers,
	}
}

// Workers returns the configured worker count.
//
// Returns:
//   - int: the worker count
func (p *ControllerPool) Workers() int {
	return p.workers
}

// Update advances every controller by deltaTime and blocks until all are done.
// A single controller is updated inline without going through the pool.
//
// Parameters:
//   - deltaTime: elapsed wall time in seconds
//   - controllers: the controllers to advance; nil entries are skipped
func (p *ControllerPool) Update(deltaTime float32, controllers ...Controller) {
	if len(controllers) == 1 {
		if controllers[0] != nil {
			controllers[0].Update(deltaTime)
		}
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range controllers {
		if c == nil {
			continue
		}
		wg.Add(1)
		cCap := c
		id := p.taskID
		p.taskID++
		p.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				cCap.Update(deltaTime)
				return nil, nil
			},
		})
	}
	wg.Wait()
}
