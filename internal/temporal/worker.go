package temporal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// WorkerConfig sizes the collection worker.
type WorkerConfig struct {
	TaskQueue string

	// ActivityConcurrency caps concurrently running stage activities. The
	// stages share source rate limits, so it defaults to 1.
	ActivityConcurrency int

	WorkflowTaskConcurrency int

	// StopTimeout is how long in-flight activities get to finish on shutdown.
	StopTimeout time.Duration
}

// DefaultWorkerConfig runs one activity at a time on taskQueue.
func DefaultWorkerConfig(taskQueue string) WorkerConfig {
	return WorkerConfig{
		TaskQueue:               taskQueue,
		ActivityConcurrency:     1,
		WorkflowTaskConcurrency: 10,
		StopTimeout:             30 * time.Second,
	}
}

func (c WorkerConfig) options() worker.Options {
	opts := worker.Options{
		MaxConcurrentActivityExecutionSize:     c.ActivityConcurrency,
		MaxConcurrentWorkflowTaskExecutionSize: c.WorkflowTaskConcurrency,
		WorkerStopTimeout:                      c.StopTimeout,
	}
	if opts.MaxConcurrentActivityExecutionSize <= 0 {
		opts.MaxConcurrentActivityExecutionSize = 1
	}
	if opts.MaxConcurrentWorkflowTaskExecutionSize <= 0 {
		opts.MaxConcurrentWorkflowTaskExecutionSize = 10
	}
	return opts
}

// WorkerManager owns the worker that executes the collection workflow.
type WorkerManager struct {
	worker    worker.Worker
	taskQueue string
	workflows int
}

// NewWorkerManager creates a worker polling cfg.TaskQueue.
func NewWorkerManager(c client.Client, cfg WorkerConfig) (*WorkerManager, error) {
	if cfg.TaskQueue == "" {
		return nil, errors.New("task queue is required")
	}
	return &WorkerManager{
		worker:    worker.New(c, cfg.TaskQueue, cfg.options()),
		taskQueue: cfg.TaskQueue,
	}, nil
}

func (m *WorkerManager) RegisterWorkflow(workflow interface{}) {
	m.worker.RegisterWorkflow(workflow)
	m.workflows++
}

// RegisterActivity registers an activity function, or every exported method
// of a struct.
func (m *WorkerManager) RegisterActivity(activity interface{}) {
	m.worker.RegisterActivity(activity)
}

func (m *WorkerManager) TaskQueue() string {
	return m.taskQueue
}

// Start polls until ctx is cancelled, then stops the worker and returns
// ctx.Err(). A worker failure is returned as is.
func (m *WorkerManager) Start(ctx context.Context) error {
	if m.workflows == 0 {
		return fmt.Errorf("no workflows registered on task queue %s", m.taskQueue)
	}

	stop := make(chan interface{})
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			close(stop)
		case <-done:
		}
	}()

	if err := m.worker.Run(stop); err != nil {
		return err
	}
	return ctx.Err()
}
