package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/certificate"
)

const certificateColumns = "id, student_id, course_id, code, issued_at"

type certificateRow struct {
	ID        string    `db:"id"`
	StudentID string    `db:"student_id"`
	CourseID  string    `db:"course_id"`
	Code      string    `db:"code"`
	IssuedAt  time.Time `db:"issued_at"`
}

func (r certificateRow) certificate() certificate.Certificate {
	return certificate.Certificate{
		ID:        r.ID,
		StudentID: r.StudentID,
		CourseID:  r.CourseID,
		Code:      r.Code,
		IssuedAt:  r.IssuedAt.UTC(),
	}
}

type certificateRepository struct {
	repository
}

var _ certificate.Repository = (*certificateRepository)(nil) // interface compliance check

func NewCertificateRepository(exec core.DBExecutor) *certificateRepository {
	return &certificateRepository{repository{exec: exec}}
}

func (repo certificateRepository) GetCertificate(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) (certificate.Certificate, error) {
	if !isUUID(studentID) || !isUUID(courseID) {
		return certificate.Certificate{}, certificate.ErrNotFound
	}
	row, err := selectOne[certificateRow](ctx, repo.getExec(exec),
		"SELECT "+certificateColumns+" FROM certificates WHERE student_id = $1 AND course_id = $2",
		studentID, courseID,
	)
	if err != nil {
		return certificate.Certificate{}, trapNoRowsErr(err, certificate.ErrNotFound, "finding certificate")
	}
	return row.certificate(), nil
}

func (repo certificateRepository) GetCertificateByCode(ctx context.Context, code string, exec ...core.DBExecutor) (certificate.Certificate, error) {
	row, err := selectOne[certificateRow](ctx, repo.getExec(exec),
		"SELECT "+certificateColumns+" FROM certificates WHERE code = $1",
		code,
	)
	if err != nil {
		return certificate.Certificate{}, trapNoRowsErr(err, certificate.ErrNotFound, "finding certificate by code")
	}
	return row.certificate(), nil
}

func (repo certificateRepository) CodeExists(ctx context.Context, code string, exec ...core.DBExecutor) (bool, error) {
	var found bool
	err := repo.getExec(exec).QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM certificates WHERE code = $1)", code).Scan(&found)
	return found, errors.Wrap(err, "checking certificate code")
}

func (repo certificateRepository) CreateCertificate(ctx context.Context, cert certificate.Certificate, exec ...core.DBExecutor) (certificate.Certificate, error) {
	cert.ID = uuid.New().String()
	row, err := selectOne[certificateRow](ctx, repo.getExec(exec),
		`INSERT INTO certificates (`+certificateColumns+`) VALUES ($1, $2, $3, $4, $5) RETURNING `+certificateColumns,
		cert.ID, cert.StudentID, cert.CourseID, cert.Code, cert.IssuedAt.UTC(),
	)
	if err != nil {
		return certificate.Certificate{}, errors.Wrap(err, "inserting certificate")
	}
	return row.certificate(), nil
}

func (repo certificateRepository) QueryStudentCertificates(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]certificate.Certificate, error) {
	if !isUUID(studentID) {
		return []certificate.Certificate{}, nil
	}
	var rows []certificateRow
	err := selectAll(ctx, repo.getExec(exec), &rows,
		"SELECT "+certificateColumns+" FROM certificates WHERE student_id = $1 ORDER BY issued_at, id",
		studentID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying certificates")
	}
	certs := make([]certificate.Certificate, 0, len(rows))
	for _, r := range rows {
		certs = append(certs, r.certificate())
	}
	return certs, nil
}
