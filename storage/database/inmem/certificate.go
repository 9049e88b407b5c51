package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/certificate"
)

type certificateRepository struct {
	db *DB
}

var _ certificate.Repository = (*certificateRepository)(nil) // interface compliance check

func NewCertificateRepository(db *DB) *certificateRepository {
	return &certificateRepository{db: db}
}

func (repo *certificateRepository) GetCertificate(_ context.Context, studentID, courseID string, exec ...core.DBExecutor) (certificate.Certificate, error) {
	defer repo.db.join(exec)()
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, cert := range repo.db.t.certificates {
		if cert.StudentID == studentID && cert.CourseID == courseID {
			return cert, nil
		}
	}
	return certificate.Certificate{}, certificate.ErrNotFound
}

func (repo *certificateRepository) GetCertificateByCode(_ context.Context, code string, exec ...core.DBExecutor) (certificate.Certificate, error) {
	defer repo.db.join(exec)()
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, cert := range repo.db.t.certificates {
		if cert.Code == code {
			return cert, nil
		}
	}
	return certificate.Certificate{}, certificate.ErrNotFound
}

func (repo *certificateRepository) CodeExists(ctx context.Context, code string, exec ...core.DBExecutor) (bool, error) {
	_, err := repo.GetCertificateByCode(ctx, code, exec...)
	if errors.Cause(err) == certificate.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (repo *certificateRepository) CreateCertificate(_ context.Context, cert certificate.Certificate, exec ...core.DBExecutor) (certificate.Certificate, error) {
	defer repo.db.join(exec)()
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, other := range repo.db.t.certificates {
		if other.Code == cert.Code {
			return certificate.Certificate{}, errors.Errorf("duplicate certificate code %s", cert.Code)
		}
		if other.StudentID == cert.StudentID && other.CourseID == cert.CourseID {
			return certificate.Certificate{}, errors.New("duplicate certificate for student & course")
		}
	}
	cert.ID = newID()
	repo.db.t.certificates[cert.ID] = cert
	return cert, nil
}

func (repo *certificateRepository) QueryStudentCertificates(_ context.Context, studentID string, exec ...core.DBExecutor) ([]certificate.Certificate, error) {
	defer repo.db.join(exec)()
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	certs := make([]certificate.Certificate, 0)
	for _, cert := range repo.db.t.certificates {
		if cert.StudentID == studentID {
			certs = append(certs, cert)
		}
	}
	sort.Slice(certs, func(i, j int) bool { return certs[i].IssuedAt.Before(certs[j].IssuedAt) })
	return certs, nil
}
