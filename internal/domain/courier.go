package domain

// ShiftState represents the current shift state of a courier.
type ShiftState string

const (
	ShiftStateActive ShiftState = "ACTIVE"
	ShiftStatePaused ShiftState = "PAUSED"
	ShiftStateEnded  ShiftState = "ENDED"
)

// Courier represents a delivery agent eligible to receive offers.
type Courier struct {
	ID         string
	Name       string
	Phone      string
	ShiftState ShiftState
}

// OnShift reports whether the courier is in an active, non-paused shift.
func (c *Courier) OnShift() bool {
	return c.ShiftState == ShiftStateActive
}
