package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/LeahNg97/KOLP-sub001/core/course"
	"github.com/LeahNg97/KOLP-sub001/core/lesson"
)

type lessonRow struct {
	ID          string      `db:"id"`
	CourseID    string      `db:"course_id"`
	Title       string      `db:"title"`
	Content     null.String `db:"content"`
	Position    int         `db:"position"`
	DurationMin int         `db:"duration_min"`
	CreatedAt   null.Time   `db:"created_at"`
	UpdatedAt   null.Time   `db:"updated_at"`
}

type studentLessonRow struct {
	ID           string    `db:"id"`
	LessonID     string    `db:"lesson_id"`
	CourseID     string    `db:"course_id"`
	StudentID    string    `db:"student_id"`
	Completed    bool      `db:"completed"`
	CompletedAt  null.Time `db:"completed_at"`
	TimeSpentSec int       `db:"time_spent_sec"`
}

type lessonRepository struct {
	db *sqlx.DB
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db *sqlx.DB) *lessonRepository {
	return &lessonRepository{db: db}
}

func (repo lessonRepository) row(les lesson.Lesson) lessonRow {
	return lessonRow{
		ID:          les.ID,
		CourseID:    les.CourseID,
		Title:       les.Title,
		Content:     null.NewString(les.Content, les.Content != ""),
		Position:    les.Position,
		DurationMin: les.DurationMin,
		CreatedAt:   null.NewTime(les.CreatedAt.UTC(), !les.CreatedAt.IsZero()),
		UpdatedAt:   null.NewTime(les.UpdatedAt.UTC(), !les.UpdatedAt.IsZero()),
	}
}

func (repo lessonRepository) unrow(row lessonRow) lesson.Lesson {
	return lesson.Lesson{
		ID:          row.ID,
		CourseID:    row.CourseID,
		Title:       row.Title,
		Content:     row.Content.String,
		Position:    row.Position,
		DurationMin: row.DurationMin,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}

func (repo lessonRepository) unrowStudentLesson(row studentLessonRow) lesson.StudentLesson {
	return lesson.StudentLesson{
		ID:           row.ID,
		LessonID:     row.LessonID,
		CourseID:     row.CourseID,
		StudentID:    row.StudentID,
		Completed:    row.Completed,
		CompletedAt:  row.CompletedAt.Time,
		TimeSpentSec: row.TimeSpentSec,
	}
}

func (repo lessonRepository) CreateLesson(ctx context.Context, les lesson.Lesson) (lesson.Lesson, error) {
	les.ID = uuid.New().String()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "beginning tx")
	}

	const query = `
	INSERT INTO lesson (id, course_id, title, content, position, duration_min, created_at, updated_at)
	VALUES (:id, :course_id, :title, :content, :position, :duration_min, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, repo.row(les)); err != nil {
		return lesson.Lesson{}, rollback(tx, errors.Wrap(err, "inserting lesson"))
	}
	if err = incrementStat(ctx, tx, les.CourseID, course.StatTotalLessons, 1); err != nil {
		return lesson.Lesson{}, rollback(tx, err)
	}
	if err = tx.Commit(); err != nil {
		return lesson.Lesson{}, mapTxErr(err, "committing lesson insert")
	}
	return les, nil
}

func (repo lessonRepository) GetLessonByID(ctx context.Context, id string) (lesson.Lesson, error) {
	var row lessonRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM lesson WHERE id = $1`, id); err != nil {
		return lesson.Lesson{}, trapNoRowsErr(err, lesson.ErrNotFound, "getting lesson")
	}
	return repo.unrow(row), nil
}

func (repo lessonRepository) QueryCourseLessons(ctx context.Context, courseID string) ([]lesson.Lesson, error) {
	var rows []lessonRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM lesson WHERE course_id = $1 ORDER BY position, created_at`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course lessons")
	}
	lessons := make([]lesson.Lesson, 0, len(rows))
	for _, row := range rows {
		lessons = append(lessons, repo.unrow(row))
	}
	return lessons, nil
}

func (repo lessonRepository) UpdateLesson(ctx context.Context, les lesson.Lesson) (lesson.Lesson, error) {
	const query = `
	UPDATE lesson
	SET title = :title, content = :content, position = :position,
	    duration_min = :duration_min, updated_at = :updated_at
	WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, repo.row(les))
	if err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	return repo.GetLessonByID(ctx, les.ID)
}

func (repo lessonRepository) DeleteLesson(ctx context.Context, id string) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning tx")
	}

	var courseID string
	if err = tx.GetContext(ctx, &courseID, `SELECT course_id FROM lesson WHERE id = $1 FOR UPDATE`, id); err != nil {
		return rollback(tx, trapNoRowsErr(err, lesson.ErrNotFound, "locking lesson"))
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM lesson WHERE id = $1`, id); err != nil {
		return rollback(tx, errors.Wrap(err, "deleting lesson"))
	}
	if err = incrementStat(ctx, tx, courseID, course.StatTotalLessons, -1); err != nil {
		return rollback(tx, err)
	}
	return mapTxErr(tx.Commit(), "committing lesson delete")
}

func (repo lessonRepository) CountCourseLessons(ctx context.Context, courseID string) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM lesson WHERE course_id = $1`, courseID)
	return count, errors.Wrap(err, "counting course lessons")
}

func (repo lessonRepository) CountCompletedLessons(ctx context.Context, courseID, studentID string) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM student_lesson WHERE course_id = $1 AND student_id = $2 AND completed`,
		courseID, studentID)
	return count, errors.Wrap(err, "counting completed lessons")
}

func (repo lessonRepository) UpsertStudentLesson(ctx context.Context, sl lesson.StudentLesson) (lesson.StudentLesson, error) {
	if sl.ID == "" {
		sl.ID = uuid.New().String()
	}
	row := studentLessonRow{
		ID:           sl.ID,
		LessonID:     sl.LessonID,
		CourseID:     sl.CourseID,
		StudentID:    sl.StudentID,
		Completed:    sl.Completed,
		CompletedAt:  null.NewTime(sl.CompletedAt.UTC(), !sl.CompletedAt.IsZero()),
		TimeSpentSec: sl.TimeSpentSec,
	}
	const query = `
	INSERT INTO student_lesson (id, lesson_id, course_id, student_id, completed, completed_at, time_spent_sec)
	VALUES (:id, :lesson_id, :course_id, :student_id, :completed, :completed_at, :time_spent_sec)
	ON CONFLICT (lesson_id, student_id) DO UPDATE
	SET completed = EXCLUDED.completed, completed_at = EXCLUDED.completed_at,
	    time_spent_sec = EXCLUDED.time_spent_sec`
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return lesson.StudentLesson{}, errors.Wrap(err, "upserting student lesson")
	}

	var out studentLessonRow
	err := repo.db.GetContext(ctx, &out,
		`SELECT * FROM student_lesson WHERE lesson_id = $1 AND student_id = $2`, sl.LessonID, sl.StudentID)
	if err != nil {
		return lesson.StudentLesson{}, errors.Wrap(err, "re-reading student lesson")
	}
	return repo.unrowStudentLesson(out), nil
}

func (repo lessonRepository) QueryStudentLessons(ctx context.Context, courseID, studentID string) ([]lesson.StudentLesson, error) {
	var rows []studentLessonRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM student_lesson WHERE course_id = $1 AND student_id = $2`, courseID, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student lessons")
	}
	out := make([]lesson.StudentLesson, 0, len(rows))
	for _, row := range rows {
		out = append(out, repo.unrowStudentLesson(row))
	}
	return out, nil
}
