package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/LeahNg97/KOLP-sub001/core/course"
	"github.com/LeahNg97/KOLP-sub001/core/enrollment"
)

type enrollmentRow struct {
	ID                 string    `db:"id"`
	CourseID           string    `db:"course_id"`
	StudentID          string    `db:"student_id"`
	Status             string    `db:"status"`
	Progress           int       `db:"progress"`
	Completed          bool      `db:"completed"`
	InstructorApproved bool      `db:"instructor_approved"`
	EnrolledAt         null.Time `db:"enrolled_at"`
	ApprovedAt         null.Time `db:"approved_at"`
	CancelledAt        null.Time `db:"cancelled_at"`
	GraduatedAt        null.Time `db:"graduated_at"`
}

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo enrollmentRepository) row(enr enrollment.Enrollment) enrollmentRow {
	return enrollmentRow{
		ID:                 enr.ID,
		CourseID:           enr.CourseID,
		StudentID:          enr.StudentID,
		Status:             enr.Status,
		Progress:           enr.Progress,
		Completed:          enr.Completed,
		InstructorApproved: enr.InstructorApproved,
		EnrolledAt:         null.NewTime(enr.EnrolledAt.UTC(), !enr.EnrolledAt.IsZero()),
		ApprovedAt:         null.NewTime(enr.ApprovedAt.UTC(), !enr.ApprovedAt.IsZero()),
		CancelledAt:        null.NewTime(enr.CancelledAt.UTC(), !enr.CancelledAt.IsZero()),
		GraduatedAt:        null.NewTime(enr.GraduatedAt.UTC(), !enr.GraduatedAt.IsZero()),
	}
}

func (repo enrollmentRepository) unrow(row enrollmentRow) enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:                 row.ID,
		CourseID:           row.CourseID,
		StudentID:          row.StudentID,
		Status:             row.Status,
		Progress:           row.Progress,
		Completed:          row.Completed,
		InstructorApproved: row.InstructorApproved,
		EnrolledAt:         row.EnrolledAt.Time,
		ApprovedAt:         row.ApprovedAt.Time,
		CancelledAt:        row.CancelledAt.Time,
		GraduatedAt:        row.GraduatedAt.Time,
	}
}

func (repo enrollmentRepository) unrowSlice(rows []enrollmentRow) []enrollment.Enrollment {
	enrs := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, repo.unrow(row))
	}
	return enrs
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	enr.ID = uuid.New().String()
	const query = `
	INSERT INTO enrollment (id, course_id, student_id, status, progress, completed,
	                        instructor_approved, enrolled_at, approved_at, cancelled_at, graduated_at)
	VALUES (:id, :course_id, :student_id, :status, :progress, :completed,
	        :instructor_approved, :enrolled_at, :approved_at, :cancelled_at, :graduated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, repo.row(enr)); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo enrollmentRepository) GetEnrollmentByID(ctx context.Context, id string) (enrollment.Enrollment, error) {
	var row enrollmentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM enrollment WHERE id = $1`, id); err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotFound, "getting enrollment")
	}
	return repo.unrow(row), nil
}

func (repo enrollmentRepository) GetActiveEnrollment(ctx context.Context, courseID, studentID string) (enrollment.Enrollment, error) {
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM enrollment WHERE course_id = $1 AND student_id = $2 AND status <> $3`,
		courseID, studentID, enrollment.StatusCancelled)
	if err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotFound, "getting active enrollment")
	}
	return repo.unrow(row), nil
}

func (repo enrollmentRepository) QueryCourseEnrollments(ctx context.Context, courseID string) ([]enrollment.Enrollment, error) {
	var rows []enrollmentRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM enrollment WHERE course_id = $1 ORDER BY enrolled_at`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course enrollments")
	}
	return repo.unrowSlice(rows), nil
}

func (repo enrollmentRepository) QueryStudentEnrollments(ctx context.Context, studentID string) ([]enrollment.Enrollment, error) {
	var rows []enrollmentRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM enrollment WHERE student_id = $1 ORDER BY enrolled_at`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student enrollments")
	}
	return repo.unrowSlice(rows), nil
}

// ApproveEnrollment flips the row to approved and bumps the course's
// student_count, both inside one transaction. The status guard lives in the
// UPDATE itself so a concurrent second approval matches zero rows and never
// double-counts.
func (repo enrollmentRepository) ApproveEnrollment(ctx context.Context, id string, at time.Time) (enrollment.Enrollment, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "beginning tx")
	}

	var row enrollmentRow
	const query = `
	UPDATE enrollment
	SET status = $2, instructor_approved = TRUE, approved_at = $3
	WHERE id = $1 AND status = $4
	RETURNING *`
	err = tx.GetContext(ctx, &row, query, id, enrollment.StatusApproved, at.UTC(), enrollment.StatusPending)
	if err == sql.ErrNoRows {
		_ = tx.Rollback()
		var status string
		if err = repo.db.GetContext(ctx, &status, `SELECT status FROM enrollment WHERE id = $1`, id); err != nil {
			return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotFound, "getting enrollment status")
		}
		if status == enrollment.StatusApproved {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyApproved
		}
		// cancelled records are history, not approvable
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	} else if err != nil {
		return enrollment.Enrollment{}, rollback(tx, errors.Wrap(err, "approving enrollment"))
	}

	if err = incrementStat(ctx, tx, row.CourseID, course.StatStudentCount, 1); err != nil {
		return enrollment.Enrollment{}, rollback(tx, err)
	}
	if err = tx.Commit(); err != nil {
		return enrollment.Enrollment{}, mapTxErr(err, "committing enrollment approval")
	}
	return repo.unrow(row), nil
}

func (repo enrollmentRepository) CancelEnrollment(ctx context.Context, id string, at time.Time) (enrollment.Enrollment, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "beginning tx")
	}

	var row enrollmentRow
	if err = tx.GetContext(ctx, &row, `SELECT * FROM enrollment WHERE id = $1 FOR UPDATE`, id); err != nil {
		return enrollment.Enrollment{}, rollback(tx, trapNoRowsErr(err, enrollment.ErrNotFound, "locking enrollment"))
	}
	if row.Status == enrollment.StatusCancelled {
		_ = tx.Rollback()
		return repo.unrow(row), nil
	}
	wasApproved := row.Status == enrollment.StatusApproved

	const query = `
	UPDATE enrollment SET status = $2, cancelled_at = $3 WHERE id = $1
	RETURNING *`
	if err = tx.GetContext(ctx, &row, query, id, enrollment.StatusCancelled, at.UTC()); err != nil {
		return enrollment.Enrollment{}, rollback(tx, errors.Wrap(err, "cancelling enrollment"))
	}
	if wasApproved {
		if err = incrementStat(ctx, tx, row.CourseID, course.StatStudentCount, -1); err != nil {
			return enrollment.Enrollment{}, rollback(tx, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return enrollment.Enrollment{}, mapTxErr(err, "committing enrollment cancel")
	}
	return repo.unrow(row), nil
}

func (repo enrollmentRepository) DeleteEnrollment(ctx context.Context, id string) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning tx")
	}

	var row enrollmentRow
	if err = tx.GetContext(ctx, &row, `SELECT * FROM enrollment WHERE id = $1 FOR UPDATE`, id); err != nil {
		return rollback(tx, trapNoRowsErr(err, enrollment.ErrNotFound, "locking enrollment"))
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM enrollment WHERE id = $1`, id); err != nil {
		return rollback(tx, errors.Wrap(err, "deleting enrollment"))
	}
	if row.Status == enrollment.StatusApproved {
		if err = incrementStat(ctx, tx, row.CourseID, course.StatStudentCount, -1); err != nil {
			return rollback(tx, err)
		}
	}
	return mapTxErr(tx.Commit(), "committing enrollment delete")
}

// SetProgress writes the derived progress percentage and nothing else.
func (repo enrollmentRepository) SetProgress(ctx context.Context, courseID, studentID string, pct int) (enrollment.Enrollment, error) {
	var row enrollmentRow
	const query = `
	UPDATE enrollment SET progress = $3
	WHERE course_id = $1 AND student_id = $2 AND status <> $4
	RETURNING *`
	err := repo.db.GetContext(ctx, &row, query, courseID, studentID, pct, enrollment.StatusCancelled)
	if err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotFound, "setting progress")
	}
	return repo.unrow(row), nil
}

// ApproveCompletion marks the enrollment completed. The approved-and-100%
// precondition is part of the UPDATE, applied atomically with the write.
func (repo enrollmentRepository) ApproveCompletion(ctx context.Context, courseID, studentID string, at time.Time) (enrollment.Enrollment, error) {
	var row enrollmentRow
	const query = `
	UPDATE enrollment SET completed = TRUE, graduated_at = $3
	WHERE course_id = $1 AND student_id = $2 AND status = $4 AND progress = 100
	RETURNING *`
	err := repo.db.GetContext(ctx, &row, query, courseID, studentID, at.UTC(), enrollment.StatusApproved)
	if err == sql.ErrNoRows {
		var exists bool
		err = repo.db.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM enrollment WHERE course_id = $1 AND student_id = $2 AND status <> $3)`,
			courseID, studentID, enrollment.StatusCancelled)
		if err != nil {
			return enrollment.Enrollment{}, errors.Wrap(err, "checking enrollment existence")
		}
		if exists {
			return enrollment.Enrollment{}, enrollment.ErrNotEligible
		}
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	} else if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "approving completion")
	}
	return repo.unrow(row), nil
}
