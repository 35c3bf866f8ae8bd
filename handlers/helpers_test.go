// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/danielhkuo/campus-mess/cliparse"
	"github.com/danielhkuo/campus-mess/middleware"
	"github.com/danielhkuo/campus-mess/models"
	"github.com/danielhkuo/campus-mess/prefs"
	"github.com/danielhkuo/campus-mess/remote"
	"github.com/danielhkuo/campus-mess/schedule"
	"github.com/danielhkuo/campus-mess/session"
	"github.com/danielhkuo/campus-mess/testutil"
)

type testEnv struct {
	db       *sql.DB
	store    *remote.SQLStore
	cfg      cliparse.Config
	sessions *session.Manager
	sched    *schedule.Scheduler
}

// lunchtime on a Tuesday
var testNow = time.Date(2025, 3, 4, 12, 30, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	store := remote.NewSQLStore(db, "sqlite")
	sessions := session.NewManager(db, store, time.Minute)
	t.Cleanup(sessions.Close)

	durable, err := prefs.NewDurable(db, "admin-dashboard")
	if err != nil {
		t.Fatal(err)
	}
	sched := schedule.NewScheduler(schedule.NewEvaluator(store, prefs.NewEphemeral()), store, durable, schedule.Options{
		Location: time.UTC,
		Now:      func() time.Time { return testNow },
	})

	return &testEnv{
		db:       db,
		store:    store,
		cfg:      testutil.GetTestConfig(),
		sessions: sessions,
		sched:    sched,
	}
}

// withParams attaches chi route parameters to a request.
func withParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// withSession runs h behind RequireSession.
func (e *testEnv) withSession(h http.HandlerFunc) http.Handler {
	return middleware.RequireSession(e.sessions)(h)
}

func (e *testEnv) registerOwner(t *testing.T, serviceType, name, email string) models.RegisterOwnerResponse {
	t.Helper()
	h := NewOwnerHandler(e.store, e.cfg)
	req := testutil.MakeRequest("POST", "/v1/owners", models.RegisterOwnerRequest{
		Type:     serviceType,
		MessName: name,
		Email:    email,
		Phone:    "9876543210",
	}, nil)
	w := httptest.NewRecorder()
	h.Register(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("register owner failed: %d - %s", w.Code, w.Body.String())
	}
	var resp models.RegisterOwnerResponse
	testutil.AssertJSON(t, w, &resp)
	return resp
}

// seedMenuItem writes one item straight to the store.
func (e *testEnv) seedMenuItem(t *testing.T, serviceType, uid, day, meal, id, name string) {
	t.Helper()
	p := remote.Join(serviceType+"Owners", uid, "weekdays", day, "meals", meal, "items", id)
	if err := e.store.Write(context.Background(), p, models.MenuItem{Name: name, Price: "20"}); err != nil {
		t.Fatal(err)
	}
}

func newDevice() map[string]string {
	return map[string]string{middleware.HeaderDeviceUUID: uuid.NewString()}
}
