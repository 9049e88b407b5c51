package inmemdb

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/progress"
)

type progressRepository struct {
	db *DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) *progressRepository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) UpsertScore(_ context.Context, studentID, chapterID string, score float64, completed bool, at time.Time, exec ...core.DBExecutor) (progress.Record, error) {
	defer repo.db.join(exec)()
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rec := progress.Record{
		StudentID: studentID,
		ChapterID: chapterID,
		Completed: completed,
		Score:     null.Float64From(score),
		UpdatedAt: at,
	}
	repo.db.t.progress[recordKey{studentID, chapterID}] = rec
	return rec, nil
}

func (repo *progressRepository) UpsertCompleted(_ context.Context, studentID, chapterID string, at time.Time, exec ...core.DBExecutor) (progress.Record, error) {
	defer repo.db.join(exec)()
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := recordKey{studentID, chapterID}
	rec, ok := repo.db.t.progress[key]
	if !ok {
		rec = progress.Record{StudentID: studentID, ChapterID: chapterID}
	}
	rec.Completed = true
	rec.UpdatedAt = at
	repo.db.t.progress[key] = rec
	return rec, nil
}

func (repo *progressRepository) InsertIfAbsent(_ context.Context, studentID, chapterID string, at time.Time, exec ...core.DBExecutor) (progress.Record, bool, error) {
	defer repo.db.join(exec)()
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := recordKey{studentID, chapterID}
	if rec, ok := repo.db.t.progress[key]; ok {
		return rec, false, nil
	}
	rec := progress.Record{StudentID: studentID, ChapterID: chapterID, UpdatedAt: at}
	repo.db.t.progress[key] = rec
	return rec, true, nil
}

func (repo *progressRepository) QueryRecords(_ context.Context, studentID string, chapterIDs []string, exec ...core.DBExecutor) ([]progress.Record, error) {
	defer repo.db.join(exec)()
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]progress.Record, 0, len(chapterIDs))
	for _, id := range chapterIDs {
		if rec, ok := repo.db.t.progress[recordKey{studentID, id}]; ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// LockStudentCourse is a no-op: transactions are already serialized.
func (repo *progressRepository) LockStudentCourse(context.Context, string, string, ...core.DBExecutor) error {
	return nil
}
