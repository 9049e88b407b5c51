package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/progress"
	"github.com/trezcool/academia/core/user"
)

type accessBody struct {
	Unlocked bool   `json:"unlocked"`
	Reason   string `json:"reason,omitempty"`
}

func Test_progressApi_flow(t *testing.T) {
	app, env := newApp(t)
	ctx := context.Background()

	crs := env.CreateCourse(t, "Go")
	l1 := env.CreateChapter(t, crs.ID, "Basics", course.KindLesson, "1")
	e1 := env.CreateChapter(t, crs.ID, "Basics quiz", course.KindExercise, "1.5")
	l2 := env.CreateChapter(t, crs.ID, "Types", course.KindLesson, "2")
	student := env.CreateUser(t, "Jo", "", user.KindStudent)
	stranger := env.CreateUser(t, "Mo", "", user.KindStudent)
	teacher := env.CreateUser(t, "Mr T", "", user.KindTeacher)
	env.Enroll(t, crs.ID, student)

	token := getToken(t, env, student)
	errNotEnrolled := httpErr{Error: course.ErrNotEnrolled.Error(), Code: core.CodeNotEnrolled}
	errKind := httpErr{Error: course.ErrInvalidChapterKind.Error(), Code: core.CodeInvalidChapterKind}

	tests := []httpTest{
		{name: "auth required", path: "/v1/chapters/" + l1.ID + "/access", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "student required", path: "/v1/chapters/" + l1.ID + "/access", token: getToken(t, env, teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "not enrolled", path: "/v1/chapters/" + l1.ID + "/access", token: getToken(t, env, stranger),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errNotEnrolled),
		},
		{name: "first lesson unlocked", path: "/v1/chapters/" + l1.ID + "/access", token: token, wantData: marchallObj(t, accessBody{Unlocked: true})},
		{
			name: "exercise locked", path: "/v1/chapters/" + e1.ID + "/access", token: token,
			wantData: marchallObj(t, accessBody{Reason: progress.ReasonLessonFirst}),
		},
		{
			name: "next lesson locked", path: "/v1/chapters/" + l2.ID + "/access", token: token,
			wantData: marchallObj(t, accessBody{Reason: progress.ReasonPreviousExercise}),
		},
		{
			name: "score a lesson", method: http.MethodPost, path: "/v1/chapters/" + l1.ID + "/score", token: token,
			body: []byte(`{"score": 9}`), wantCode: http.StatusBadRequest, wantData: marchallObj(t, errKind),
		},
		{
			name: "complete an exercise", method: http.MethodPost, path: "/v1/chapters/" + e1.ID + "/complete", token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, errKind),
		},
		{
			name: "missing score", method: http.MethodPost, path: "/v1/chapters/" + e1.ID + "/score", token: token, body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{
				Error: "score: this field is required", Code: core.CodeValidation,
				Fields: map[string]string{"score": "this field is required"},
			}),
		},
		{
			name: "score out of range", method: http.MethodPost, path: "/v1/chapters/" + e1.ID + "/score", token: token,
			body: []byte(`{"score": 10.5}`), wantCode: http.StatusBadRequest,
		},
	}
	runHTTPTests(t, app, tests)

	t.Run("complete lesson", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/chapters/"+l1.ID+"/complete", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var r progress.Record
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
		assert.True(t, r.Completed)
		assert.False(t, r.Score.Valid)
	})

	t.Run("failing score", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/chapters/"+e1.ID+"/score", token, []byte(`{"score": 7.5}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp scoreBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Record.Completed)
		assert.Equal(t, 7.5, resp.Record.Score.Float64)
		assert.False(t, resp.Effects.Approved)

		req, rec = newAuthRequest(http.MethodGet, "/v1/chapters/"+l2.ID+"/access", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantData: marchallObj(t, accessBody{Reason: progress.ReasonPreviousExercise})}, rec)
	})

	t.Run("approving score", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/chapters/"+e1.ID+"/score", token, []byte(`{"score": "8"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, "a score is a number")

		req, rec = newAuthRequest(http.MethodPost, "/v1/chapters/"+e1.ID+"/score", token, []byte(`{"score": 8}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp scoreBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Record.Completed)
		assert.True(t, resp.Effects.Approved)
		if assert.NotNil(t, resp.Effects.CompletedLesson) {
			assert.Equal(t, l1.ID, resp.Effects.CompletedLesson.ChapterID)
		}
		if assert.NotNil(t, resp.Effects.OpenedLesson) {
			assert.Equal(t, l2.ID, resp.Effects.OpenedLesson.ChapterID)
			assert.False(t, resp.Effects.OpenedLesson.Completed)
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/chapters/"+l2.ID+"/access", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantData: marchallObj(t, accessBody{Unlocked: true})}, rec)
	})

	t.Run("records", func(t *testing.T) {
		recs, err := env.ProgressSvc.GetProgress(ctx, student.ID, crs.ID)
		require.NoError(t, err)
		require.Len(t, recs, 3)

		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID+"/progress", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantData: marchallObj(t, recs)}, rec)
	})

	t.Run("overview", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID+"/overview", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var ov struct {
			progress.Overview
			Certificate *json.RawMessage `json:"certificate"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ov))
		assert.Equal(t, 50, ov.Percent)
		assert.Nil(t, ov.Certificate)
		require.Len(t, ov.Lessons, 2)
		assert.True(t, ov.Lessons[0].Done)
		if assert.NotNil(t, ov.Lessons[0].Exercise) {
			assert.Equal(t, 8.0, ov.Lessons[0].Exercise.Score.Float64)
		}
		assert.True(t, ov.Lessons[1].Unlocked)
		assert.False(t, ov.Lessons[1].Done)
	})

	t.Run("report card", func(t *testing.T) {
		card, err := env.ProgressSvc.ReportCard(ctx, student.ID)
		require.NoError(t, err)

		req, rec := newAuthRequest(http.MethodGet, "/v1/report-card", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantData: marchallObj(t, card)}, rec)
	})
}

type scoreBody struct {
	Record  progress.Record  `json:"record"`
	Effects progress.Effects `json:"effects"`
}
