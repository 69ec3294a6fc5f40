package notify

import "encoding/json"

// Live update kinds pushed to trip listeners.
const (
	EventNotification         = "notification"
	EventBudgetUpdated        = "budget_updated"
	EventSpendingUpdated      = "spending_updated"
	EventMemberJoined         = "member_joined"
	EventMemberRoleUpdated    = "member_role_updated"
	EventMemberBalanceUpdated = "member_balance_updated"
	EventTripUpdated          = "trip_updated"
	EventStatusUpdate         = "status_update"
)

// Event is a live update. Data keys are flattened next to type, title and
// message when encoded.
type Event struct {
	Type    string
	Title   string
	Message string
	Data    map[string]any
}

func (e Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Data)+3)
	for k, v := range e.Data {
		m[k] = v
	}
	m["type"] = e.Type
	m["message"] = e.Message
	if e.Title != "" {
		m["title"] = e.Title
	}
	return json.Marshal(m)
}
