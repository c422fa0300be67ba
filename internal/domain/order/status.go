package order

// Status is the lifecycle state of an order
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusConfirmed Status = "CONFIRMED"
	StatusClosed    Status = "CLOSED"
	StatusVoided    Status = "VOIDED"
)

// IsValid checks if the status is a known Status
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusConfirmed, StatusClosed, StatusVoided:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether the order accepts no further mutation
func (s Status) IsTerminal() bool {
	return s == StatusClosed || s == StatusVoided
}

// CanTransitionTo checks if the status can move to target.
// An OPEN order may close directly when it is paid before confirmation.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusOpen:
		return target == StatusConfirmed || target == StatusClosed || target == StatusVoided
	case StatusConfirmed:
		return target == StatusClosed || target == StatusVoided
	}
	return false
}

// LineStatus is the state of a single order line
type LineStatus string

const (
	LineStatusPending   LineStatus = "PENDING"
	LineStatusConfirmed LineStatus = "CONFIRMED"
	LineStatusVoided    LineStatus = "VOIDED"
)

func (s LineStatus) IsValid() bool {
	switch s {
	case LineStatusPending, LineStatusConfirmed, LineStatusVoided:
		return true
	}
	return false
}

func (s LineStatus) String() string {
	return string(s)
}
