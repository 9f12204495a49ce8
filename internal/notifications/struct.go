package notifications

// Event identifies which lifecycle operation a notification describes.
type Event string

const (
	EventCreate Event = "create"
	EventDelete Event = "delete"
	EventApply  Event = "apply"
)

// Outcome is the result being reported.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Notifier delivers lifecycle events to an external endpoint. Delivery is
// best-effort: callers log a returned error and move on, never propagate it.
type Notifier interface {
	Notify(event Event, outcome Outcome, details map[string]string) error
}

// Message is the wire payload shared by all transports.
type Message struct {
	Service string            `json:"service"`
	Event   Event             `json:"event"`
	Outcome Outcome           `json:"outcome"`
	Details map[string]string `json:"details"`
}

// Webhook posts notifications as JSON to an HTTP endpoint with optional
// basic auth.
type Webhook struct {
	URL      string
	Username string
	Password string
}

// Noop is the stand-in when no endpoint is configured.
type Noop struct{}

func (Noop) Notify(Event, Outcome, map[string]string) error { return nil }

// Fanout dispatches one notification to every configured transport and
// reports the first failure after trying them all.
type Fanout []Notifier

func (f Fanout) Notify(event Event, outcome Outcome, details map[string]string) error {
	var firstErr error
	for _, n := range f {
		if err := n.Notify(event, outcome, details); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
