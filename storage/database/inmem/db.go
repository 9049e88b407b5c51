package inmemdb

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/certificate"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/progress"
	"github.com/trezcool/academia/core/user"
)

type (
	recordKey struct {
		studentID string
		chapterID string
	}

	// members: {Membership: {courseID: {userID}}}
	memberTable map[course.Membership]map[string]map[string]struct{}

	tables struct {
		users        map[string]user.User
		courses      map[string]course.Course
		members      memberTable
		chapters     map[string]course.Chapter
		progress     map[recordKey]progress.Record
		certificates map[string]certificate.Certificate
	}

	// DB is an in-memory store. Transactions are serialized and rolled back by restoring a snapshot.
	// Repository calls made outside a transaction wait for the running one to end,
	// so they neither see its uncommitted writes nor get undone by its rollback.
	DB struct {
		txMutex sync.Mutex
		mutex   sync.RWMutex
		t       *tables

		// deferOrders postpones the chapter order constraint to the end of the transaction.
		deferOrders bool
	}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

var errNoSQL = errors.New("inmemdb: the transaction executor does not run SQL")

// txExecutor is the executor Atomic hands to fn; repository calls carrying it join the transaction.
type txExecutor struct{}

func (txExecutor) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errNoSQL
}

func (txExecutor) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errNoSQL
}

func (txExecutor) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }

// join holds the transaction lock for a repository call made outside Atomic; the returned func releases it.
func (db *DB) join(exec []core.DBExecutor) (release func()) {
	if len(exec) > 0 && exec[0] == (txExecutor{}) {
		return func() {}
	}
	db.txMutex.Lock()
	return db.txMutex.Unlock
}

func NewDB() *DB {
	return &DB{t: newTables()}
}

func newTables() *tables {
	return &tables{
		users:        make(map[string]user.User),
		courses:      make(map[string]course.Course),
		members:      make(memberTable),
		chapters:     make(map[string]course.Chapter),
		progress:     make(map[recordKey]progress.Record),
		certificates: make(map[string]certificate.Certificate),
	}
}

// Atomic runs fn alone; any error restores the tables as they were before fn.
// The executor fn receives only marks its repository calls as part of the transaction.
func (db *DB) Atomic(ctx context.Context, fn func(exec core.DBExecutor) error) (err error) {
	if err = ctx.Err(); err != nil {
		return err
	}
	db.txMutex.Lock()
	defer db.txMutex.Unlock()

	db.mutex.RLock()
	snap := db.t.clone()
	db.mutex.RUnlock()

	defer func() {
		db.mutex.Lock()
		deferred := db.deferOrders
		db.deferOrders = false
		db.mutex.Unlock()

		if p := recover(); p != nil {
			db.restore(snap)
			panic(p)
		}
		if err == nil && deferred {
			db.mutex.RLock()
			err = db.t.checkChapterOrders()
			db.mutex.RUnlock()
		}
		if err != nil {
			db.restore(snap)
		}
	}()
	return fn(txExecutor{})
}

func (db *DB) restore(snap *tables) {
	db.mutex.Lock()
	db.t = snap
	db.mutex.Unlock()
}

// Reset empties all tables.
func (db *DB) Reset() {
	db.txMutex.Lock()
	defer db.txMutex.Unlock()
	db.mutex.Lock()
	db.t = newTables()
	db.mutex.Unlock()
}

func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.courses {
		c.courses[k] = v
	}
	for m, byCourse := range t.members {
		c.members[m] = make(map[string]map[string]struct{}, len(byCourse))
		for courseID, ids := range byCourse {
			c.members[m][courseID] = make(map[string]struct{}, len(ids))
			for id := range ids {
				c.members[m][courseID][id] = struct{}{}
			}
		}
	}
	for k, v := range t.chapters {
		c.chapters[k] = v
	}
	for k, v := range t.progress {
		c.progress[k] = v
	}
	for k, v := range t.certificates {
		c.certificates[k] = v
	}
	return c
}

func (t *tables) checkChapterOrders() error {
	type slot struct {
		courseID string
		kind     course.Kind
		order    course.Order
	}
	seen := make(map[slot]struct{}, len(t.chapters))
	for _, ch := range t.chapters {
		s := slot{ch.CourseID, ch.Kind, ch.Order}
		if _, ok := seen[s]; ok {
			return errors.Errorf("duplicate chapter order %s for %s", ch.Order, ch.Kind)
		}
		seen[s] = struct{}{}
	}
	return nil
}

func newID() string {
	return uuid.New().String()
}
