package certificate

import "time"

// Certificate proves that a student completed a course. It never changes once issued.
type Certificate struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	CourseID  string    `json:"course_id"`
	Code      string    `json:"code"`
	IssuedAt  time.Time `json:"issued_at"` // UTC
}

// issuedEmailData fills the certificate_issued email template.
type issuedEmailData struct {
	StudentName string
	CourseName  string
	Code        string
	IssuedAt    string
}
