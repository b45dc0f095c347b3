package queue

import (
	"github.com/flowtap/flowtap/pkg/logging"
	"github.com/flowtap/flowtap/pkg/models"
)

// FrontendMessage is a one-way status notification to the caller-facing
// surface. No acknowledgment is expected.
type FrontendMessage struct {
	CellID    string            `json:"cell_id"`
	Status    models.CellStatus `json:"status"`
	Msg       string            `json:"msg,omitempty"`
	Exception string            `json:"exception,omitempty"`
}

// Notifier receives frontend status messages. Implementations must not
// block: the supervisor calls Notify while holding its lock.
type Notifier interface {
	Notify(msg FrontendMessage)
}

// NotifierFunc adapts a function to the Notifier interface
type NotifierFunc func(msg FrontendMessage)

// Notify calls the wrapped function
func (f NotifierFunc) Notify(msg FrontendMessage) {
	f(msg)
}

// LogNotifier writes every frontend message to a logger. The default
// surface when no interactive frontend is attached.
type LogNotifier struct {
	logger *logging.Logger
}

// NewLogNotifier creates a notifier backed by the given logger
func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the message
func (n *LogNotifier) Notify(msg FrontendMessage) {
	fields := map[string]interface{}{
		"cell_id": msg.CellID,
		"status":  string(msg.Status),
	}
	if msg.Msg != "" {
		fields["msg"] = msg.Msg
	}
	if msg.Exception != "" {
		fields["exception"] = msg.Exception
	}
	n.logger.Info("workflow_status", fields)
}
