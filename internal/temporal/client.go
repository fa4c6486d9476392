package temporal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"

	"github.com/helixir/paper-triage-service/internal/collector"
)

// QueryProgress is the query name used to read the current collection stage.
// It is defined here so callers can query without importing the workflows package.
const QueryProgress = "progress"

// DefaultHealthCheckTimeout is the timeout for Temporal server health checks.
const DefaultHealthCheckTimeout = 5 * time.Second

// ClientConfig locates the server and names the recurring collection
// workflow. An empty CronSchedule disables scheduling.
type ClientConfig struct {
	HostPort     string
	Namespace    string
	TaskQueue    string
	WorkflowID   string
	CronSchedule string
}

// NewClient dials the Temporal server. logger may be nil.
func NewClient(cfg ClientConfig, logger log.Logger) (client.Client, error) {
	options := client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
	}
	if logger != nil {
		options.Logger = logger
	}

	c, err := client.Dial(options)
	if err != nil {
		return nil, fmt.Errorf("create Temporal client: %w", err)
	}
	return c, nil
}

// CollectionWorkflowInput is the input of the scheduled collection workflow.
// It lives in this package so callers can build it without importing the
// workflows package.
type CollectionWorkflowInput struct {
	// MaxSeeds caps the citation stage before the time budget is applied.
	MaxSeeds int

	// Budget bounds the whole run in workflow time.
	Budget collector.BudgetConfig
}

// CollectionClient starts and inspects the recurring collection workflow.
type CollectionClient struct {
	mu                 sync.RWMutex
	client             client.Client
	cfg                ClientConfig
	healthCheckTimeout time.Duration
	closed             bool
}

// NewCollectionClient creates a CollectionClient over an existing Temporal client.
func NewCollectionClient(c client.Client, cfg ClientConfig) *CollectionClient {
	return &CollectionClient{
		client:             c,
		cfg:                cfg,
		healthCheckTimeout: DefaultHealthCheckTimeout,
	}
}

// Close closes the underlying Temporal client connection.
func (c *CollectionClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && !c.closed {
		c.client.Close()
		c.closed = true
	}
}

func (c *CollectionClient) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Health checks the connection health to the Temporal server.
func (c *CollectionClient) Health(ctx context.Context) error {
	if c.isClosed() {
		return &TemporalError{Op: "Health", Kind: ErrClientClosed}
	}

	checkCtx, cancel := context.WithTimeout(ctx, c.healthCheckTimeout)
	defer cancel()

	if _, err := c.client.CheckHealth(checkCtx, &client.CheckHealthRequest{}); err != nil {
		return wrapTemporalError("Health", err, "")
	}
	return nil
}

// StartSchedule starts the cron collection workflow under the configured
// fixed ID. A workflow already running under that ID is left in place and
// reported as started=false without error.
func (c *CollectionClient) StartSchedule(ctx context.Context, workflowFunc interface{}, input CollectionWorkflowInput) (started bool, err error) {
	if c.isClosed() {
		return false, &TemporalError{Op: "StartSchedule", Kind: ErrClientClosed}
	}
	if c.cfg.CronSchedule == "" {
		return false, nil
	}

	options := client.StartWorkflowOptions{
		ID:                                       c.cfg.WorkflowID,
		TaskQueue:                                c.cfg.TaskQueue,
		CronSchedule:                             c.cfg.CronSchedule,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}

	if _, err := c.client.ExecuteWorkflow(ctx, options, workflowFunc, input); err != nil {
		wrapped := wrapTemporalError("StartSchedule", err, c.cfg.WorkflowID)
		if IsWorkflowAlreadyStarted(wrapped) {
			return false, nil
		}
		return false, wrapped
	}
	return true, nil
}

// Progress queries the stage the running collection workflow is in.
func (c *CollectionClient) Progress(ctx context.Context) (string, error) {
	if c.isClosed() {
		return "", &TemporalError{Op: "Progress", Kind: ErrClientClosed, WorkflowID: c.cfg.WorkflowID}
	}

	resp, err := c.client.QueryWorkflow(ctx, c.cfg.WorkflowID, "", QueryProgress)
	if err != nil {
		return "", wrapTemporalError("Progress", err, c.cfg.WorkflowID)
	}

	var stage string
	if err := resp.Get(&stage); err != nil {
		return "", fmt.Errorf("decode progress: %w", err)
	}
	return stage, nil
}
