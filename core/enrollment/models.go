package enrollment

import "time"

// Enrollment statuses. An enrollment is counted in its course's student_count
// iff it is approved; transitions into/out of approved adjust the counter by
// exactly ±1 in the same transaction as the status change.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusCancelled = "cancelled"
)

// Enrollment is one student's relationship to one course. At most one
// non-cancelled record exists per (student, course); cancelled records are
// retained for history.
type Enrollment struct {
	ID        string `json:"id"`
	CourseID  string `json:"course_id"`
	StudentID string `json:"student_id"`
	Status    string `json:"status"`

	// Progress is derived by the progress aggregator; it is never authoritative.
	Progress int `json:"progress"`

	// Completed requires Progress == 100 and InstructorApproved.
	Completed          bool `json:"completed"`
	InstructorApproved bool `json:"instructor_approved"`

	EnrolledAt  time.Time `json:"enrolled_at"`  // UTC
	ApprovedAt  time.Time `json:"approved_at"`  // UTC; zero until approved
	CancelledAt time.Time `json:"cancelled_at"` // UTC; zero unless cancelled
	GraduatedAt time.Time `json:"graduated_at"` // UTC; zero until completion approved
}

func (e Enrollment) IsApproved() bool  { return e.Status == StatusApproved }
func (e Enrollment) IsCancelled() bool { return e.Status == StatusCancelled }
