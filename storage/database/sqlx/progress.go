package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/progress"
)

const recordColumns = "student_id, chapter_id, completed, score, updated_at"

type recordRow struct {
	StudentID string       `db:"student_id"`
	ChapterID string       `db:"chapter_id"`
	Completed bool         `db:"completed"`
	Score     null.Float64 `db:"score"`
	UpdatedAt time.Time    `db:"updated_at"`
}

func (r recordRow) record() progress.Record {
	return progress.Record{
		StudentID: r.StudentID,
		ChapterID: r.ChapterID,
		Completed: r.Completed,
		Score:     r.Score,
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type progressRepository struct {
	repository
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(exec core.DBExecutor) *progressRepository {
	return &progressRepository{repository{exec: exec}}
}

func (repo progressRepository) UpsertScore(ctx context.Context, studentID, chapterID string, score float64, completed bool, at time.Time, exec ...core.DBExecutor) (progress.Record, error) {
	row, err := selectOne[recordRow](ctx, repo.getExec(exec),
		`INSERT INTO progress (`+recordColumns+`) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id, chapter_id) DO UPDATE
		SET completed = EXCLUDED.completed, score = EXCLUDED.score, updated_at = EXCLUDED.updated_at
		RETURNING `+recordColumns,
		studentID, chapterID, completed, score, at.UTC(),
	)
	if err != nil {
		return progress.Record{}, errors.Wrap(err, "upserting score")
	}
	return row.record(), nil
}

func (repo progressRepository) UpsertCompleted(ctx context.Context, studentID, chapterID string, at time.Time, exec ...core.DBExecutor) (progress.Record, error) {
	row, err := selectOne[recordRow](ctx, repo.getExec(exec),
		`INSERT INTO progress (`+recordColumns+`) VALUES ($1, $2, TRUE, NULL, $3)
		ON CONFLICT (student_id, chapter_id) DO UPDATE
		SET completed = TRUE, updated_at = EXCLUDED.updated_at
		RETURNING `+recordColumns,
		studentID, chapterID, at.UTC(),
	)
	if err != nil {
		return progress.Record{}, errors.Wrap(err, "upserting completion")
	}
	return row.record(), nil
}

func (repo progressRepository) InsertIfAbsent(ctx context.Context, studentID, chapterID string, at time.Time, exec ...core.DBExecutor) (progress.Record, bool, error) {
	exe := repo.getExec(exec)
	row, err := selectOne[recordRow](ctx, exe,
		`INSERT INTO progress (`+recordColumns+`) VALUES ($1, $2, FALSE, NULL, $3)
		ON CONFLICT (student_id, chapter_id) DO NOTHING
		RETURNING `+recordColumns,
		studentID, chapterID, at.UTC(),
	)
	if err == nil {
		return row.record(), true, nil
	}
	if errors.Cause(err) != sql.ErrNoRows {
		return progress.Record{}, false, errors.Wrap(err, "inserting record")
	}

	// already there
	row, err = selectOne[recordRow](ctx, exe,
		"SELECT "+recordColumns+" FROM progress WHERE student_id = $1 AND chapter_id = $2",
		studentID, chapterID,
	)
	if err != nil {
		return progress.Record{}, false, errors.Wrap(err, "finding record")
	}
	return row.record(), false, nil
}

func (repo progressRepository) QueryRecords(ctx context.Context, studentID string, chapterIDs []string, exec ...core.DBExecutor) ([]progress.Record, error) {
	ids := uuids(chapterIDs)
	if len(ids) == 0 || !isUUID(studentID) {
		return []progress.Record{}, nil
	}
	q, args, err := bindIn("SELECT "+recordColumns+" FROM progress WHERE student_id = ? AND chapter_id IN (?)", studentID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "binding chapter IDs")
	}
	var rows []recordRow
	if err = selectAll(ctx, repo.getExec(exec), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	records := make([]progress.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.record())
	}
	return records, nil
}

func (repo progressRepository) LockStudentCourse(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) error {
	return advisoryLock(ctx, repo.getExec(exec), "progress:"+studentID+":"+courseID)
}
