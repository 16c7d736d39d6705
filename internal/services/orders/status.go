package orders

import "github.com/FreshOps/MarketBox/internal/models"

// forwardPath is the fixed happy-path order of lifecycle statuses. Cancelled
// and refunded sit outside it as terminal side exits.
var forwardPath = []string{
	models.OrderStatusPending,
	models.OrderStatusConfirmed,
	models.OrderStatusProcessing,
	models.OrderStatusPacked,
	models.OrderStatusShipped,
	models.OrderStatusOutForDelivery,
	models.OrderStatusDelivered,
}

// transitions is the closed table of legal moves. Callers cannot push an
// order anywhere this table does not allow, webhook or admin alike.
var transitions = map[string][]string{
	models.OrderStatusPending:        {models.OrderStatusConfirmed, models.OrderStatusCancelled, models.OrderStatusRefunded},
	models.OrderStatusConfirmed:      {models.OrderStatusProcessing, models.OrderStatusCancelled, models.OrderStatusRefunded},
	models.OrderStatusProcessing:     {models.OrderStatusPacked, models.OrderStatusCancelled, models.OrderStatusRefunded},
	models.OrderStatusPacked:         {models.OrderStatusShipped, models.OrderStatusCancelled, models.OrderStatusRefunded},
	models.OrderStatusShipped:        {models.OrderStatusOutForDelivery, models.OrderStatusCancelled, models.OrderStatusRefunded},
	models.OrderStatusOutForDelivery: {models.OrderStatusDelivered, models.OrderStatusCancelled, models.OrderStatusRefunded},
	models.OrderStatusDelivered:      nil,
	models.OrderStatusCancelled:      nil,
	models.OrderStatusRefunded:       nil,
}

var defaultMessages = map[string]string{
	models.OrderStatusPending:        "Order received and awaiting confirmation",
	models.OrderStatusConfirmed:      "Order confirmed",
	models.OrderStatusProcessing:     "Your order is being prepared",
	models.OrderStatusPacked:         "Order packed and ready for dispatch",
	models.OrderStatusShipped:        "Order handed to the courier",
	models.OrderStatusOutForDelivery: "Courier is on the way",
	models.OrderStatusDelivered:      "Order delivered",
	models.OrderStatusCancelled:      "Order cancelled",
	models.OrderStatusRefunded:       "Order refunded",
}

func IsValidStatus(status string) bool {
	_, ok := transitions[status]
	return ok
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminal(status string) bool {
	return len(transitions[status]) == 0 && IsValidStatus(status)
}

// DefaultMessage is used for tracking entries when the caller supplies none.
func DefaultMessage(status string) string {
	if m, ok := defaultMessages[status]; ok {
		return m
	}
	return "Order status updated"
}

// StatusIndex returns the position of a status on the forward path, or -1
// for side-exit statuses, which are excluded from index comparison.
func StatusIndex(status string) int {
	for i, s := range forwardPath {
		if s == status {
			return i
		}
	}
	return -1
}

const (
	StepCompleted = "completed"
	StepCurrent   = "current"
	StepUpcoming  = "upcoming"
)

type TimelineStep struct {
	Status string `json:"status"`
	State  string `json:"state"`
}

// Timeline renders the forward path against the order's current status.
// For a side-exit status sideExit is set and every step is returned as it
// stood: the UI shows the cancelled/refunded banner instead of a step bar.
func Timeline(currentStatus string) (steps []TimelineStep, sideExit bool) {
	cur := StatusIndex(currentStatus)
	sideExit = cur == -1

	steps = make([]TimelineStep, 0, len(forwardPath))
	for i, s := range forwardPath {
		st := StepUpcoming
		if !sideExit {
			switch {
			case i < cur:
				st = StepCompleted
			case i == cur:
				st = StepCurrent
			}
		}
		steps = append(steps, TimelineStep{Status: s, State: st})
	}
	return steps, sideExit
}

// Trackable reports whether live courier tracking applies to the order.
func Trackable(status string) bool {
	return status == models.OrderStatusShipped || status == models.OrderStatusOutForDelivery
}

// Reorderable reports whether the "order again" affordance is shown.
func Reorderable(status string) bool {
	return status == models.OrderStatusDelivered || status == models.OrderStatusCancelled
}
