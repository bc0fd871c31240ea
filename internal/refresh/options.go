package refresh

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithWorkers sets the number of revalidation workers.
func WithWorkers(workers int) Option {
	return func(p *Pool) {
		if workers > 0 {
			p.workers = workers
		}
	}
}

// WithQueueSize bounds the job backlog.
func WithQueueSize(size int) Option {
	return func(p *Pool) {
		if size > 0 {
			p.queueSize = size
		}
	}
}
