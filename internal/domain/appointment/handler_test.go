package appointment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medbot/medbot/internal/platform/auth"
	"github.com/medbot/medbot/pkg/pagination"
)

var (
	patient = auth.Identity{UserID: "patient_user", Role: auth.RolePatient}
	doctor  = auth.Identity{UserID: "doctor_user", Role: auth.RoleDoctor, DoctorName: "Dr. A"}
	admin   = auth.Identity{UserID: "admin_user", Role: auth.RoleAdmin}
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc := NewService(NewMemoryLedger(), nil, zerolog.Nop())
	ctx := context.Background()
	svc.Book(ctx, "patient_user", "Dr. A", "09:00", "fever")
	svc.Book(ctx, "other", "Dr. B", "10:00", "")
	svc.Book(ctx, "other", "Dr. A", "11:30", "cough")
	return NewHandler(svc), echo.New()
}

func newContext(e *echo.Echo, method, target, body string, id auth.Identity) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req = req.WithContext(auth.WithIdentity(req.Context(), id))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_ListAppointments_Patient(t *testing.T) {
	h, e := newTestHandler()
	c, rec := newContext(e, http.MethodGet, "/", "", patient)

	if err := h.ListAppointments(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Data  []Appointment `json:"data"`
		Total int           `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Data[0].DoctorName != "Dr. A" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestHandler_ListAppointments_Doctor(t *testing.T) {
	h, e := newTestHandler()
	c, rec := newContext(e, http.MethodGet, "/", "", doctor)

	if err := h.ListAppointments(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Data  []Appointment `json:"data"`
		Total int           `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 2 {
		t.Errorf("expected 2 appointments for Dr. A, got %d", resp.Total)
	}
}

func TestHandler_ListAppointments_AdminPaginated(t *testing.T) {
	h, e := newTestHandler()
	c, rec := newContext(e, http.MethodGet, "/?limit=2", "", admin)

	if err := h.ListAppointments(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp pagination.Response
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 3 || !resp.HasMore || resp.Limit != 2 {
		t.Errorf("unexpected page %+v", resp)
	}
	if items, ok := resp.Data.([]interface{}); !ok || len(items) != 2 {
		t.Errorf("expected 2 items in page, got %v", resp.Data)
	}
}

func TestHandler_UpdateStatus(t *testing.T) {
	h, e := newTestHandler()
	c, rec := newContext(e, http.MethodPut, "/", `{"status":"Accepted"}`, doctor)
	c.SetParamNames("index")
	c.SetParamValues("1")

	if err := h.UpdateStatus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var a Appointment
	json.Unmarshal(rec.Body.Bytes(), &a)
	if a.Status != StatusAccepted || a.TimeSlot != "11:30" {
		t.Errorf("unexpected appointment %+v", a)
	}
}

func TestHandler_UpdateStatus_Errors(t *testing.T) {
	tests := []struct {
		name     string
		id       auth.Identity
		index    string
		body     string
		repeat   bool
		wantCode int
	}{
		{"patient forbidden", patient, "0", `{"status":"Accepted"}`, false, http.StatusForbidden},
		{"admin forbidden", admin, "0", `{"status":"Accepted"}`, false, http.StatusForbidden},
		{"bad index", doctor, "x", `{"status":"Accepted"}`, false, http.StatusBadRequest},
		{"bad status", doctor, "0", `{"status":"Maybe"}`, false, http.StatusBadRequest},
		{"pending target", doctor, "0", `{"status":"Pending"}`, false, http.StatusBadRequest},
		{"out of range", doctor, "5", `{"status":"Accepted"}`, false, http.StatusUnprocessableEntity},
		{"already final", doctor, "0", `{"status":"Rejected"}`, true, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, e := newTestHandler()
			if tt.repeat {
				h.svc.SetStatus(context.Background(), "Dr. A", 0, StatusAccepted)
			}
			c, _ := newContext(e, http.MethodPut, "/", tt.body, tt.id)
			c.SetParamNames("index")
			c.SetParamValues(tt.index)

			err := h.UpdateStatus(c)
			he, ok := err.(*echo.HTTPError)
			if !ok || he.Code != tt.wantCode {
				t.Errorf("expected %d, got %v", tt.wantCode, err)
			}
		})
	}
}
