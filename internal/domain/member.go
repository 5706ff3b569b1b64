package domain

import "time"

// Member is a club member able to borrow equipment. Members are owned by the
// (external) registration subsystem; the engine only reads them.
type Member struct {
	ID        string
	StudentNo string
	Name      string
	CreatedAt time.Time
}
