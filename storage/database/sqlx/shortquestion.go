package sqlxrepos

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/LeahNg97/KOLP-sub001/core/course"
	"github.com/LeahNg97/KOLP-sub001/core/shortquestion"
)

type shortQuestionSetRow struct {
	ID        string          `db:"id"`
	CourseID  string          `db:"course_id"`
	Title     string          `db:"title"`
	PassPct   int             `db:"pass_pct"`
	Questions json.RawMessage `db:"questions"`
	CreatedAt null.Time       `db:"created_at"`
	UpdatedAt null.Time       `db:"updated_at"`
}

type shortQuestionAttemptRow struct {
	ID          string          `db:"id"`
	SetID       string          `db:"set_id"`
	CourseID    string          `db:"course_id"`
	StudentID   string          `db:"student_id"`
	Status      string          `db:"status"`
	Answers     json.RawMessage `db:"answers"`
	Score       int             `db:"score"`
	TotalPoints int             `db:"total_points"`
	Percentage  int             `db:"percentage"`
	Passed      bool            `db:"passed"`
	StartedAt   null.Time       `db:"started_at"`
	SubmittedAt null.Time       `db:"submitted_at"`
	GradedAt    null.Time       `db:"graded_at"`
}

type shortQuestionRepository struct {
	db *sqlx.DB
}

var _ shortquestion.Repository = (*shortQuestionRepository)(nil) // interface compliance check

func NewShortQuestionRepository(db *sqlx.DB) *shortQuestionRepository {
	return &shortQuestionRepository{db: db}
}

func (repo shortQuestionRepository) setRow(set shortquestion.Set) (shortQuestionSetRow, error) {
	questions, err := marshalJSONB(set.Questions)
	if err != nil {
		return shortQuestionSetRow{}, err
	}
	return shortQuestionSetRow{
		ID:        set.ID,
		CourseID:  set.CourseID,
		Title:     set.Title,
		PassPct:   set.PassPct,
		Questions: questions,
		CreatedAt: null.NewTime(set.CreatedAt.UTC(), !set.CreatedAt.IsZero()),
		UpdatedAt: null.NewTime(set.UpdatedAt.UTC(), !set.UpdatedAt.IsZero()),
	}, nil
}

func (repo shortQuestionRepository) unrowSet(row shortQuestionSetRow) (shortquestion.Set, error) {
	set := shortquestion.Set{
		ID:        row.ID,
		CourseID:  row.CourseID,
		Title:     row.Title,
		PassPct:   row.PassPct,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
	if err := unmarshalJSONB(row.Questions, &set.Questions); err != nil {
		return shortquestion.Set{}, err
	}
	return set, nil
}

func (repo shortQuestionRepository) attemptRow(att shortquestion.Attempt) (shortQuestionAttemptRow, error) {
	answers, err := marshalJSONB(att.Answers)
	if err != nil {
		return shortQuestionAttemptRow{}, err
	}
	return shortQuestionAttemptRow{
		ID:          att.ID,
		SetID:       att.SetID,
		CourseID:    att.CourseID,
		StudentID:   att.StudentID,
		Status:      att.Status,
		Answers:     answers,
		Score:       att.Score,
		TotalPoints: att.TotalPoints,
		Percentage:  att.Percentage,
		Passed:      att.Passed,
		StartedAt:   null.NewTime(att.StartedAt.UTC(), !att.StartedAt.IsZero()),
		SubmittedAt: null.NewTime(att.SubmittedAt.UTC(), !att.SubmittedAt.IsZero()),
		GradedAt:    null.NewTime(att.GradedAt.UTC(), !att.GradedAt.IsZero()),
	}, nil
}

func (repo shortQuestionRepository) unrowAttempt(row shortQuestionAttemptRow) (shortquestion.Attempt, error) {
	att := shortquestion.Attempt{
		ID:          row.ID,
		SetID:       row.SetID,
		CourseID:    row.CourseID,
		StudentID:   row.StudentID,
		Status:      row.Status,
		Score:       row.Score,
		TotalPoints: row.TotalPoints,
		Percentage:  row.Percentage,
		Passed:      row.Passed,
		StartedAt:   row.StartedAt.Time,
		SubmittedAt: row.SubmittedAt.Time,
		GradedAt:    row.GradedAt.Time,
	}
	if err := unmarshalJSONB(row.Answers, &att.Answers); err != nil {
		return shortquestion.Attempt{}, err
	}
	return att, nil
}

func (repo shortQuestionRepository) CreateSet(ctx context.Context, set shortquestion.Set) (shortquestion.Set, error) {
	set.ID = uuid.New().String()
	row, err := repo.setRow(set)
	if err != nil {
		return shortquestion.Set{}, err
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return shortquestion.Set{}, errors.Wrap(err, "beginning tx")
	}

	const query = `
	INSERT INTO short_question_set (id, course_id, title, pass_pct, questions, created_at, updated_at)
	VALUES (:id, :course_id, :title, :pass_pct, :questions, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, row); err != nil {
		return shortquestion.Set{}, rollback(tx, errors.Wrap(err, "inserting short-question set"))
	}
	if err = incrementStat(ctx, tx, set.CourseID, course.StatTotalShortQuestionSets, 1); err != nil {
		return shortquestion.Set{}, rollback(tx, err)
	}
	if err = tx.Commit(); err != nil {
		return shortquestion.Set{}, mapTxErr(err, "committing set insert")
	}
	return set, nil
}

func (repo shortQuestionRepository) GetSetByID(ctx context.Context, id string) (shortquestion.Set, error) {
	var row shortQuestionSetRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM short_question_set WHERE id = $1`, id); err != nil {
		return shortquestion.Set{}, trapNoRowsErr(err, shortquestion.ErrNotFound, "getting short-question set")
	}
	return repo.unrowSet(row)
}

func (repo shortQuestionRepository) QueryCourseSets(ctx context.Context, courseID string) ([]shortquestion.Set, error) {
	var rows []shortQuestionSetRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM short_question_set WHERE course_id = $1 ORDER BY created_at`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course sets")
	}
	sets := make([]shortquestion.Set, 0, len(rows))
	for _, row := range rows {
		set, err := repo.unrowSet(row)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func (repo shortQuestionRepository) DeleteSet(ctx context.Context, id string) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning tx")
	}

	var courseID string
	if err = tx.GetContext(ctx, &courseID, `SELECT course_id FROM short_question_set WHERE id = $1 FOR UPDATE`, id); err != nil {
		return rollback(tx, trapNoRowsErr(err, shortquestion.ErrNotFound, "locking short-question set"))
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM short_question_set WHERE id = $1`, id); err != nil {
		return rollback(tx, errors.Wrap(err, "deleting short-question set"))
	}
	if err = incrementStat(ctx, tx, courseID, course.StatTotalShortQuestionSets, -1); err != nil {
		return rollback(tx, err)
	}
	return mapTxErr(tx.Commit(), "committing set delete")
}

func (repo shortQuestionRepository) CreateAttempt(ctx context.Context, att shortquestion.Attempt) (shortquestion.Attempt, error) {
	att.ID = uuid.New().String()
	row, err := repo.attemptRow(att)
	if err != nil {
		return shortquestion.Attempt{}, err
	}
	const query = `
	INSERT INTO short_question_attempt (id, set_id, course_id, student_id, status, answers, score,
	                                    total_points, percentage, passed, started_at, submitted_at, graded_at)
	VALUES (:id, :set_id, :course_id, :student_id, :status, :answers, :score,
	        :total_points, :percentage, :passed, :started_at, :submitted_at, :graded_at)`
	if _, err = repo.db.NamedExecContext(ctx, query, row); err != nil {
		return shortquestion.Attempt{}, errors.Wrap(err, "inserting attempt")
	}
	return att, nil
}

func (repo shortQuestionRepository) GetAttemptByID(ctx context.Context, id string) (shortquestion.Attempt, error) {
	var row shortQuestionAttemptRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM short_question_attempt WHERE id = $1`, id); err != nil {
		return shortquestion.Attempt{}, trapNoRowsErr(err, shortquestion.ErrAttemptNotFound, "getting attempt")
	}
	return repo.unrowAttempt(row)
}

func (repo shortQuestionRepository) UpdateAttempt(ctx context.Context, att shortquestion.Attempt) (shortquestion.Attempt, error) {
	row, err := repo.attemptRow(att)
	if err != nil {
		return shortquestion.Attempt{}, err
	}
	const query = `
	UPDATE short_question_attempt
	SET status = :status, answers = :answers, score = :score, total_points = :total_points,
	    percentage = :percentage, passed = :passed, submitted_at = :submitted_at, graded_at = :graded_at
	WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return shortquestion.Attempt{}, errors.Wrap(err, "updating attempt")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shortquestion.Attempt{}, shortquestion.ErrAttemptNotFound
	}
	return repo.GetAttemptByID(ctx, att.ID)
}

func (repo shortQuestionRepository) QueryStudentAttempts(ctx context.Context, setID, studentID string) ([]shortquestion.Attempt, error) {
	var rows []shortQuestionAttemptRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM short_question_attempt WHERE set_id = $1 AND student_id = $2 ORDER BY started_at`,
		setID, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student attempts")
	}
	attempts := make([]shortquestion.Attempt, 0, len(rows))
	for _, row := range rows {
		att, err := repo.unrowAttempt(row)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, att)
	}
	return attempts, nil
}

func (repo shortQuestionRepository) QueryTerminalResults(ctx context.Context, courseID, studentID string) ([]shortquestion.SetResult, error) {
	const query = `
	SELECT DISTINCT ON (set_id) set_id, passed
	FROM short_question_attempt
	WHERE course_id = $1 AND student_id = $2 AND status = $3
	ORDER BY set_id, graded_at DESC`
	var results []shortquestion.SetResult
	rows, err := repo.db.QueryxContext(ctx, query, courseID, studentID, shortquestion.StatusCompleted)
	if err != nil {
		return nil, errors.Wrap(err, "querying terminal results")
	}
	defer rows.Close()
	for rows.Next() {
		var res shortquestion.SetResult
		if err = rows.Scan(&res.SetID, &res.Passed); err != nil {
			return nil, errors.Wrap(err, "scanning terminal result")
		}
		results = append(results, res)
	}
	return results, errors.Wrap(rows.Err(), "iterating terminal results")
}
