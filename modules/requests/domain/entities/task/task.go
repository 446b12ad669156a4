package task

import "context"

type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusApproved   Status = "APPROVED"
)

// Task is the slice of a project task this module reads. Task CRUD lives
// in another service.
type Task struct {
	ID     int64
	Status Status
}

// AcceptsRequests reports whether new requests may be filed against t.
func (t Task) AcceptsRequests() bool {
	return t.Status != StatusApproved
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (Task, error)
}
