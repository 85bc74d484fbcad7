package conversation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/medbot/medbot/internal/domain/appointment"
	"github.com/medbot/medbot/internal/platform/auth"
)

func newTestHandler(t *testing.T) (*Handler, *echo.Echo) {
	svc, _ := newTestService(t)
	return NewHandler(svc), echo.New()
}

func newRequestContext(e *echo.Echo, method, body, userID, sessionID string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, "/", nil)
	}
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: userID, Role: auth.RolePatient}))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if sessionID != "" {
		c.SetParamNames("id")
		c.SetParamValues(sessionID)
	}
	return c, rec
}

func startSession(t *testing.T, h *Handler, e *echo.Echo) string {
	t.Helper()
	c, rec := newRequestContext(e, http.MethodPost, "", patientID, "")
	if err := h.StartSession(c); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var v View
	json.Unmarshal(rec.Body.Bytes(), &v)
	return v.SessionID.String()
}

func TestHandler_ChatFlow(t *testing.T) {
	h, e := newTestHandler(t)
	id := startSession(t, h, e)

	c, rec := newRequestContext(e, http.MethodPost, `{"text":"I have a fever"}`, patientID, id)
	if err := h.SubmitSymptom(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var v View
	json.Unmarshal(rec.Body.Bytes(), &v)
	if v.PendingQuestion != feverQ1 {
		t.Errorf("expected pending %q, got %q", feverQ1, v.PendingQuestion)
	}

	for _, answer := range []string{"two days", "no"} {
		c, rec = newRequestContext(e, http.MethodPost, `{"answer":"`+answer+`"}`, patientID, id)
		if err := h.SubmitAnswer(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	v = View{}
	json.Unmarshal(rec.Body.Bytes(), &v)
	if v.Recommendations == nil || len(v.Recommendations.Doctors) == 0 {
		t.Fatalf("expected recommendations, got %s", rec.Body.String())
	}

	c, rec = newRequestContext(e, http.MethodPost, `{"doctor_index":0,"slot":"10:00"}`, patientID, id)
	if err := h.Book(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var a appointment.Appointment
	json.Unmarshal(rec.Body.Bytes(), &a)
	if a.DoctorName != "Dr. A" || a.Status != appointment.StatusPending {
		t.Errorf("unexpected appointment %+v", a)
	}
}

func TestHandler_UnrecognizedIsOK(t *testing.T) {
	h, e := newTestHandler(t)
	id := startSession(t, h, e)

	c, rec := newRequestContext(e, http.MethodPost, `{"text":"purple monkey"}`, patientID, id)
	if err := h.SubmitMessage(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), msgUnknown) {
		t.Errorf("expected 200 with fallback message, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		call     func(h *Handler, c echo.Context) error
		body     string
		user     string
		session  string
		wantCode int
	}{
		{"empty symptom", (*Handler).SubmitSymptom, `{"text":"  "}`, patientID, "", http.StatusBadRequest},
		{"answer without question", (*Handler).SubmitAnswer, `{"answer":"yes"}`, patientID, "", http.StatusBadRequest},
		{"book before symptom", (*Handler).Book, `{"doctor_index":0,"slot":"10:00"}`, patientID, "", http.StatusUnprocessableEntity},
		{"other patient", (*Handler).GetSession, "", "intruder", "", http.StatusForbidden},
		{"unknown session", (*Handler).GetSession, "", patientID, "6f1c7a2e-0d3b-4e0e-9a55-3f0c1b2d4e5f", http.StatusNotFound},
		{"malformed session id", (*Handler).GetSession, "", patientID, "not-a-uuid", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, e := newTestHandler(t)
			id := startSession(t, h, e)
			if tt.session != "" {
				id = tt.session
			}
			c, _ := newRequestContext(e, http.MethodPost, tt.body, tt.user, id)
			err := tt.call(h, c)
			he, ok := err.(*echo.HTTPError)
			if !ok || he.Code != tt.wantCode {
				t.Errorf("expected %d, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestHandler_ClearAndEnd(t *testing.T) {
	h, e := newTestHandler(t)
	id := startSession(t, h, e)

	c, _ := newRequestContext(e, http.MethodPost, `{"text":"i have a fever"}`, patientID, id)
	h.SubmitMessage(c)

	c, rec := newRequestContext(e, http.MethodDelete, "", patientID, id)
	if err := h.ClearHistory(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var v View
	json.Unmarshal(rec.Body.Bytes(), &v)
	if len(v.State.ChatHistory) != 0 || v.State.AwaitingFollowUp {
		t.Errorf("expected cleared state, got %+v", v.State)
	}

	c, rec = newRequestContext(e, http.MethodDelete, "", patientID, id)
	if err := h.EndSession(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}
