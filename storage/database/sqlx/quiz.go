package sqlxrepos

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/LeahNg97/KOLP-sub001/core/course"
	"github.com/LeahNg97/KOLP-sub001/core/quiz"
)

type quizRow struct {
	ID          string          `db:"id"`
	CourseID    string          `db:"course_id"`
	Title       string          `db:"title"`
	PassPct     int             `db:"pass_pct"`
	MaxAttempts int             `db:"max_attempts"`
	Questions   json.RawMessage `db:"questions"`
	CreatedAt   null.Time       `db:"created_at"`
	UpdatedAt   null.Time       `db:"updated_at"`
}

type quizAttemptRow struct {
	ID             string          `db:"id"`
	QuizID         string          `db:"quiz_id"`
	CourseID       string          `db:"course_id"`
	StudentID      string          `db:"student_id"`
	Score          int             `db:"score"`
	TotalQuestions int             `db:"total_questions"`
	Percentage     int             `db:"percentage"`
	Passed         bool            `db:"passed"`
	Status         string          `db:"status"`
	AttemptCount   int             `db:"attempt_count"`
	Answers        json.RawMessage `db:"answers"`
	UpdatedAt      null.Time       `db:"updated_at"`
}

type quizRepository struct {
	db *sqlx.DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *sqlx.DB) *quizRepository {
	return &quizRepository{db: db}
}

func (repo quizRepository) row(qz quiz.Quiz) (quizRow, error) {
	questions, err := marshalJSONB(qz.Questions)
	if err != nil {
		return quizRow{}, err
	}
	return quizRow{
		ID:          qz.ID,
		CourseID:    qz.CourseID,
		Title:       qz.Title,
		PassPct:     qz.PassPct,
		MaxAttempts: qz.MaxAttempts,
		Questions:   questions,
		CreatedAt:   null.NewTime(qz.CreatedAt.UTC(), !qz.CreatedAt.IsZero()),
		UpdatedAt:   null.NewTime(qz.UpdatedAt.UTC(), !qz.UpdatedAt.IsZero()),
	}, nil
}

func (repo quizRepository) unrow(row quizRow) (quiz.Quiz, error) {
	qz := quiz.Quiz{
		ID:          row.ID,
		CourseID:    row.CourseID,
		Title:       row.Title,
		PassPct:     row.PassPct,
		MaxAttempts: row.MaxAttempts,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
	if err := unmarshalJSONB(row.Questions, &qz.Questions); err != nil {
		return quiz.Quiz{}, err
	}
	return qz, nil
}

func (repo quizRepository) unrowAttempt(row quizAttemptRow) (quiz.Attempt, error) {
	att := quiz.Attempt{
		ID:             row.ID,
		QuizID:         row.QuizID,
		CourseID:       row.CourseID,
		StudentID:      row.StudentID,
		Score:          row.Score,
		TotalQuestions: row.TotalQuestions,
		Percentage:     row.Percentage,
		Passed:         row.Passed,
		Status:         row.Status,
		AttemptCount:   row.AttemptCount,
		UpdatedAt:      row.UpdatedAt.Time,
	}
	if err := unmarshalJSONB(row.Answers, &att.Answers); err != nil {
		return quiz.Attempt{}, err
	}
	return att, nil
}

func (repo quizRepository) CreateQuiz(ctx context.Context, qz quiz.Quiz) (quiz.Quiz, error) {
	qz.ID = uuid.New().String()
	row, err := repo.row(qz)
	if err != nil {
		return quiz.Quiz{}, err
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "beginning tx")
	}

	const query = `
	INSERT INTO quiz (id, course_id, title, pass_pct, max_attempts, questions, created_at, updated_at)
	VALUES (:id, :course_id, :title, :pass_pct, :max_attempts, :questions, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, row); err != nil {
		return quiz.Quiz{}, rollback(tx, errors.Wrap(err, "inserting quiz"))
	}
	if err = incrementStat(ctx, tx, qz.CourseID, course.StatTotalQuizzes, 1); err != nil {
		return quiz.Quiz{}, rollback(tx, err)
	}
	if err = tx.Commit(); err != nil {
		return quiz.Quiz{}, mapTxErr(err, "committing quiz insert")
	}
	return qz, nil
}

func (repo quizRepository) getQuiz(ctx context.Context, query string, args ...interface{}) (quiz.Quiz, error) {
	var row quizRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return quiz.Quiz{}, trapNoRowsErr(err, quiz.ErrNotFound, "getting quiz")
	}
	return repo.unrow(row)
}

func (repo quizRepository) GetQuizByID(ctx context.Context, id string) (quiz.Quiz, error) {
	return repo.getQuiz(ctx, `SELECT * FROM quiz WHERE id = $1`, id)
}

func (repo quizRepository) GetQuizByCourseID(ctx context.Context, courseID string) (quiz.Quiz, error) {
	return repo.getQuiz(ctx, `SELECT * FROM quiz WHERE course_id = $1`, courseID)
}

func (repo quizRepository) UpdateQuiz(ctx context.Context, qz quiz.Quiz) (quiz.Quiz, error) {
	row, err := repo.row(qz)
	if err != nil {
		return quiz.Quiz{}, err
	}
	const query = `
	UPDATE quiz
	SET title = :title, pass_pct = :pass_pct, max_attempts = :max_attempts,
	    questions = :questions, updated_at = :updated_at
	WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "updating quiz")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	return repo.GetQuizByID(ctx, qz.ID)
}

func (repo quizRepository) DeleteQuiz(ctx context.Context, id string) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning tx")
	}

	var courseID string
	if err = tx.GetContext(ctx, &courseID, `SELECT course_id FROM quiz WHERE id = $1 FOR UPDATE`, id); err != nil {
		return rollback(tx, trapNoRowsErr(err, quiz.ErrNotFound, "locking quiz"))
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM quiz WHERE id = $1`, id); err != nil {
		return rollback(tx, errors.Wrap(err, "deleting quiz"))
	}
	if err = incrementStat(ctx, tx, courseID, course.StatTotalQuizzes, -1); err != nil {
		return rollback(tx, err)
	}
	return mapTxErr(tx.Commit(), "committing quiz delete")
}

func (repo quizRepository) getAttempt(ctx context.Context, query string, args ...interface{}) (quiz.Attempt, error) {
	var row quizAttemptRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return quiz.Attempt{}, trapNoRowsErr(err, quiz.ErrNotFound, "getting quiz attempt")
	}
	return repo.unrowAttempt(row)
}

func (repo quizRepository) GetAttempt(ctx context.Context, quizID, studentID string) (quiz.Attempt, error) {
	return repo.getAttempt(ctx, `SELECT * FROM quiz_attempt WHERE quiz_id = $1 AND student_id = $2`, quizID, studentID)
}

func (repo quizRepository) GetCourseAttempt(ctx context.Context, courseID, studentID string) (quiz.Attempt, error) {
	return repo.getAttempt(ctx, `SELECT * FROM quiz_attempt WHERE course_id = $1 AND student_id = $2`, courseID, studentID)
}

func (repo quizRepository) UpsertAttempt(ctx context.Context, att quiz.Attempt) (quiz.Attempt, error) {
	if att.ID == "" {
		att.ID = uuid.New().String()
	}
	answers, err := marshalJSONB(att.Answers)
	if err != nil {
		return quiz.Attempt{}, err
	}
	row := quizAttemptRow{
		ID:             att.ID,
		QuizID:         att.QuizID,
		CourseID:       att.CourseID,
		StudentID:      att.StudentID,
		Score:          att.Score,
		TotalQuestions: att.TotalQuestions,
		Percentage:     att.Percentage,
		Passed:         att.Passed,
		Status:         att.Status,
		AttemptCount:   att.AttemptCount,
		Answers:        answers,
		UpdatedAt:      null.NewTime(att.UpdatedAt.UTC(), !att.UpdatedAt.IsZero()),
	}
	const query = `
	INSERT INTO quiz_attempt (id, quiz_id, course_id, student_id, score, total_questions,
	                          percentage, passed, status, attempt_count, answers, updated_at)
	VALUES (:id, :quiz_id, :course_id, :student_id, :score, :total_questions,
	        :percentage, :passed, :status, :attempt_count, :answers, :updated_at)
	ON CONFLICT (quiz_id, student_id) DO UPDATE
	SET score = EXCLUDED.score, total_questions = EXCLUDED.total_questions,
	    percentage = EXCLUDED.percentage, passed = EXCLUDED.passed,
	    status = EXCLUDED.status, attempt_count = EXCLUDED.attempt_count,
	    answers = EXCLUDED.answers, updated_at = EXCLUDED.updated_at`
	if _, err = repo.db.NamedExecContext(ctx, query, row); err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "upserting quiz attempt")
	}
	return repo.GetAttempt(ctx, att.QuizID, att.StudentID)
}
