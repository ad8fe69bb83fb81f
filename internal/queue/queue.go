package queue

import (
	"context"
	"errors"
	"fmt"
)

// Queue names for the lab integration. The lab system publishes analyte
// results and change-request decisions; the portal publishes change requests
// that need lab approval.
const (
	ResultsQueue   = "lab.results"
	DecisionsQueue = "lab.decisions"
	ApprovalsQueue = "lab.approvals"
)

// ErrDiscard tells the consumer a message is permanently unprocessable and
// must dead-letter instead of being redelivered.
var ErrDiscard = errors.New("discard message")

// Publisher publishes outbound messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg ApprovalMessage) error
	Close() error
}

// MessageHandler handles a consumed message body. Returning an error that
// wraps ErrDiscard dead-letters the message; any other error requeues it.
type MessageHandler func(ctx context.Context, body []byte) error

// Consumer consumes messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

// ConsumerQueueNames returns the queues the portal consumes.
func ConsumerQueueNames() []string {
	return []string{ResultsQueue, DecisionsQueue}
}

// DLQName returns the dead-letter queue for a work queue, e.g.
// dlq.lab.results.
func DLQName(queue string) string {
	return fmt.Sprintf("dlq.%s", queue)
}

func allQueueNames() []string {
	return []string{ResultsQueue, DecisionsQueue, ApprovalsQueue}
}
