package engine

func NewState(seats [2]Player) State {
	return State{Phase: PhaseWaiting, Seats: seats}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// Names returns the display names in seat order.
func (s State) Names() [2]string {
	return [2]string{s.Seats[0].Name, s.Seats[1].Name}
}
