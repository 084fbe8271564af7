package sqlxrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/LeahNg97/KOLP-sub001/core"
	"github.com/LeahNg97/KOLP-sub001/core/course"
)

type courseRow struct {
	ID                     string      `db:"id"`
	Code                   string      `db:"code"`
	Title                  string      `db:"title"`
	Description            null.String `db:"description"`
	TeacherID              string      `db:"teacher_id"`
	Published              bool        `db:"published"`
	StudentCount           int         `db:"student_count"`
	TotalLessons           int         `db:"total_lessons"`
	TotalQuizzes           int         `db:"total_quizzes"`
	TotalShortQuestionSets int         `db:"total_short_question_sets"`
	CreatedAt              null.Time   `db:"created_at"`
	UpdatedAt              null.Time   `db:"updated_at"`
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) unrow(row courseRow) course.Course {
	return course.Course{
		ID:          row.ID,
		Code:        row.Code,
		Title:       row.Title,
		Description: row.Description.String,
		TeacherID:   row.TeacherID,
		Published:   row.Published,
		Stats: course.Stats{
			StudentCount:           row.StudentCount,
			TotalLessons:           row.TotalLessons,
			TotalQuizzes:           row.TotalQuizzes,
			TotalShortQuestionSets: row.TotalShortQuestionSets,
		},
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}

func (repo courseRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedCourses ...course.Course) error {
	query := `SELECT EXISTS (SELECT 1 FROM course WHERE code = $1`
	args := []interface{}{code}
	if len(excludedCourses) > 0 {
		ids := make([]string, 0, len(excludedCourses))
		for _, c := range excludedCourses {
			ids = append(ids, c.ID)
		}
		query += ` AND NOT (id = ANY($2))`
		args = append(args, pq.Array(ids))
	}
	query += `)`

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, args...); err != nil {
		return errors.Wrap(err, "checking course code uniqueness")
	}
	if exists {
		return course.ErrCodeExists
	}
	return nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO course (id, code, title, description, teacher_id, published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		crs.ID, crs.Code, crs.Title, crs.Description, crs.TeacherID, crs.Published, crs.CreatedAt.UTC(), crs.UpdatedAt.UTC(),
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE id = $1`, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return repo.unrow(row), nil
}

func (repo courseRepository) FilterCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	query := `SELECT * FROM course`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			n := fmt.Sprintf("$%d", len(args))
			conds = append(conds, fmt.Sprintf("(code ILIKE %s OR title ILIKE %s)", n, n))
		}
		if filter.TeacherID != "" {
			args = append(args, filter.TeacherID)
			conds = append(conds, fmt.Sprintf("teacher_id = $%d", len(args)))
		}
		if filter.Published != nil {
			args = append(args, *filter.Published)
			conds = append(conds, fmt.Sprintf("published = $%d", len(args)))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering, "created_at DESC")

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, repo.unrow(row))
	}
	return courses, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course, published *bool) (course.Course, error) {
	var sets []string
	var args []interface{}
	set := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if crs.Title != "" {
		set("title", crs.Title)
	}
	if crs.Description != "" {
		set("description", crs.Description)
	}
	if !crs.UpdatedAt.IsZero() {
		set("updated_at", crs.UpdatedAt.UTC())
	}
	if published != nil {
		set("published", *published)
	}
	if len(sets) == 0 {
		return repo.GetCourseByID(ctx, crs.ID)
	}

	args = append(args, crs.ID)
	query := fmt.Sprintf(`UPDATE course SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.GetCourseByID(ctx, crs.ID)
}

func (repo courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM course WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting courses")
}

func (repo courseRepository) IncrementStat(ctx context.Context, courseID string, field course.StatField, delta int) error {
	return incrementStat(ctx, repo.db, courseID, field, delta)
}

// incrementStat applies a guarded counter adjustment; exec may be the db or an open tx.
func incrementStat(ctx context.Context, exec sqlx.ExecerContext, courseID string, field course.StatField, delta int) error {
	col, err := statColumn(field)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE course SET %s = GREATEST(%s + $2, 0) WHERE id = $1`, col, col)
	res, err := exec.ExecContext(ctx, query, courseID, delta)
	if err != nil {
		return errors.Wrap(err, "incrementing course stat")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrNotFound
	}
	return nil
}

// statColumn whitelists counter columns; StatField values never come from
// user input but the query is built with Sprintf, so keep the gate anyway.
func statColumn(field course.StatField) (string, error) {
	switch field {
	case course.StatStudentCount,
		course.StatTotalLessons,
		course.StatTotalQuizzes,
		course.StatTotalShortQuestionSets:
		return string(field), nil
	}
	return "", errors.Errorf("unknown course stat field %q", field)
}
