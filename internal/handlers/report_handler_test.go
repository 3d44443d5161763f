package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/roadwatch-kerala/backend/internal/handlers"
	"github.com/roadwatch-kerala/backend/internal/metrics"
	"github.com/roadwatch-kerala/backend/internal/models"
	"github.com/roadwatch-kerala/backend/internal/plate"
	"github.com/roadwatch-kerala/backend/internal/routes"
	"github.com/roadwatch-kerala/backend/internal/services"
	"github.com/roadwatch-kerala/backend/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	claims *services.IdentityClaims
}

func (v *stubVerifier) Verify(_ context.Context, token string) (*services.IdentityClaims, error) {
	if v.claims == nil || token == "bad-token" {
		return nil, services.ErrInvalidToken
	}
	return v.claims, nil
}

type fixedModerator struct {
	verdict models.Verdict
}

func (m *fixedModerator) Adjudicate(_ context.Context, _ services.AdjudicateInput) models.Verdict {
	return m.verdict
}

func newTestApp(t *testing.T, verifier services.TokenVerifier, mod services.Adjudicator) (*fiber.App, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, cleanup := testutils.NewMockDB(t)

	reportSvc := services.NewReportService(db, plate.MustNew("KL"), mod,
		24*time.Hour, 3, metrics.New(prometheus.NewRegistry()))
	accountSvc := services.NewAccountService(db)

	app := fiber.New()
	routes.Setup(app, verifier,
		handlers.NewReportHandler(reportSvc),
		handlers.NewAuthHandler(accountSvc, reportSvc),
		handlers.NewHealthHandler())
	return app, mock, cleanup
}

func submitBody(t *testing.T) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"plateNumber": "KL-07-A-1234",
		"violations":  []string{"no_helmet"},
		"location":    "MG Road",
	})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func expectStoredSubmission(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT count\(\*\) FROM "reports"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "reports"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`INSERT INTO "reports"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectCommit()
}

func TestSubmitEndpoint(t *testing.T) {
	t.Run("AnonymousApproved", func(t *testing.T) {
		mod := &fixedModerator{verdict: models.Verdict{Approved: true, Reason: "ok", Confidence: 0.92}}
		app, mock, cleanup := newTestApp(t, &stubVerifier{}, mod)
		defer cleanup()

		expectStoredSubmission(mock)

		req := httptest.NewRequest(http.MethodPost, "/api/reports", submitBody(t))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, 0.92, body["confidence"])
		assert.NotEmpty(t, body["reportId"])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ModerationRejected", func(t *testing.T) {
		mod := &fixedModerator{verdict: models.Verdict{
			Approved: false, Reason: "Test plate pattern", Confidence: 0.85, Flags: []string{"test_plate"},
		}}
		app, mock, cleanup := newTestApp(t, &stubVerifier{}, mod)
		defer cleanup()

		expectStoredSubmission(mock)

		req := httptest.NewRequest(http.MethodPost, "/api/reports", submitBody(t))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Test plate pattern", body["reason"])
		assert.Equal(t, []any{"test_plate"}, body["flags"])
		assert.Contains(t, body["note"], "contact support")
	})

	t.Run("DuplicateBlocked", func(t *testing.T) {
		app, mock, cleanup := newTestApp(t, &stubVerifier{}, &fixedModerator{})
		defer cleanup()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "reports"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		req := httptest.NewRequest(http.MethodPost, "/api/reports", submitBody(t))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "duplicate_prevention", body["reason"])
		assert.Contains(t, body["message"], "already reported this vehicle")
	})

	t.Run("InvalidPlate", func(t *testing.T) {
		app, _, cleanup := newTestApp(t, &stubVerifier{}, &fixedModerator{})
		defer cleanup()

		body, _ := json.Marshal(map[string]any{
			"plateNumber": "XYZ-123",
			"violations":  []string{"no_helmet"},
			"location":    "MG Road",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, decodeBody(t, resp)["message"], "plate number format")
	})

	t.Run("MalformedBody", func(t *testing.T) {
		app, _, cleanup := newTestApp(t, &stubVerifier{}, &fixedModerator{})
		defer cleanup()

		req := httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("InvalidBearerRejectedEvenThoughOptional", func(t *testing.T) {
		app, _, cleanup := newTestApp(t, &stubVerifier{}, &fixedModerator{})
		defer cleanup()

		req := httptest.NewRequest(http.MethodPost, "/api/reports", submitBody(t))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer bad-token")
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Contains(t, decodeBody(t, resp)["message"], "Invalid or expired token")
	})
}

func TestReadEndpoints(t *testing.T) {
	t.Run("ByPlateUppercasesParam", func(t *testing.T) {
		app, mock, cleanup := newTestApp(t, &stubVerifier{}, &fixedModerator{})
		defer cleanup()

		rows := sqlmock.NewRows([]string{"id", "plate_number", "violations", "status"}).
			AddRow(uuid.New(), "KL-07-A-1234", `["speeding"]`, "approved").
			AddRow(uuid.New(), "KL-07-A-1234", `["speeding","no_helmet"]`, "approved")
		mock.ExpectQuery(`SELECT \* FROM "reports" WHERE plate_number = \$1 AND status = \$2`).
			WithArgs("KL-07-A-1234", "approved").
			WillReturnRows(rows)

		req := httptest.NewRequest(http.MethodGet, "/api/reports/plate/kl-07-a-1234", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "KL-07-A-1234", body["plateNumber"])
		assert.Equal(t, float64(2), body["totalReports"])
		assert.Equal(t, float64(80), body["safetyScore"])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ListClampsLimit", func(t *testing.T) {
		app, mock, cleanup := newTestApp(t, &stubVerifier{}, &fixedModerator{})
		defer cleanup()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "reports" WHERE status = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT \* FROM "reports" WHERE status = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "plate_number", "status"}))

		req := httptest.NewRequest(http.MethodGet, "/api/reports?limit=5000", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(100), decodeBody(t, resp)["limit"])
	})

	t.Run("Stats", func(t *testing.T) {
		app, mock, cleanup := newTestApp(t, &stubVerifier{}, &fixedModerator{})
		defer cleanup()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "reports"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "reports" WHERE status = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(8))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "reports" WHERE status = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "reports" WHERE created_at >= \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, float64(10), body["total"])
		assert.Equal(t, float64(80), body["approvalRate"])
	})
}

func TestAuthEndpoints(t *testing.T) {
	claims := &services.IdentityClaims{SubjectID: "uid-9", Email: "citizen@example.com"}

	t.Run("RegisterWithoutHeader", func(t *testing.T) {
		app, _, cleanup := newTestApp(t, &stubVerifier{claims: claims}, &fixedModerator{})
		defer cleanup()

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("RegisterNewAccount", func(t *testing.T) {
		app, mock, cleanup := newTestApp(t, &stubVerifier{claims: claims}, &fixedModerator{})
		defer cleanup()

		mock.ExpectQuery(`SELECT \* FROM "users" WHERE firebase_uid = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "users"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
		mock.ExpectCommit()

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		body := decodeBody(t, resp)
		user, ok := body["user"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "uid-9", user["firebaseUid"])
		assert.Equal(t, float64(100), user["reputationScore"])
	})
}
