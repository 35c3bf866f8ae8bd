// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/campus-mess/middleware"
	"github.com/danielhkuo/campus-mess/models"
	"github.com/danielhkuo/campus-mess/testutil"
)

type voteTarget struct {
	env  *testEnv
	h    *VoteHandler
	uid  string
	path map[string]string
}

func newVoteTarget(t *testing.T) *voteTarget {
	env := newTestEnv(t)
	owner := env.registerOwner(t, "mess", "North Mess", "north@example.com")
	env.seedMenuItem(t, "mess", owner.UID, "Mo", "lunch", "dal", "Dal")
	return &voteTarget{
		env: env,
		h:   NewVoteHandler(env.store),
		uid: owner.UID,
		path: map[string]string{
			"serviceId": owner.UID, "day": "Mo", "meal": "lunch", "item": "dal",
		},
	}
}

func (v *voteTarget) do(t *testing.T, method string, h http.HandlerFunc, params, headers map[string]string) (*httptest.ResponseRecorder, models.VoteResponse) {
	t.Helper()
	req := withParams(testutil.MakeRequest(method, "/v1/votes", nil, headers), params)
	w := httptest.NewRecorder()
	v.env.withSession(h).ServeHTTP(w, req)
	var resp models.VoteResponse
	if w.Code == http.StatusOK {
		testutil.AssertJSON(t, w, &resp)
	}
	if sid := w.Header().Get(middleware.HeaderSessionID); sid != "" && headers != nil {
		headers[middleware.HeaderSessionID] = sid
	}
	return w, resp
}

func TestLikeToggles(t *testing.T) {
	v := newVoteTarget(t)
	device := newDevice()

	w, resp := v.do(t, "POST", v.h.Like, v.path, device)
	testutil.AssertStatus(t, w, http.StatusOK)
	if resp.Likes != 1 || !resp.Active || resp.Vote != "like" || resp.Committed == nil || !*resp.Committed {
		t.Fatalf("first like = %+v", resp)
	}

	w, resp = v.do(t, "POST", v.h.Like, v.path, device)
	testutil.AssertStatus(t, w, http.StatusOK)
	if resp.Likes != 0 || resp.Active || resp.Vote != "" {
		t.Fatalf("second like = %+v", resp)
	}

	snap, err := v.env.store.Read(context.Background(), "votes/"+v.uid+"/Mo/lunch/dal")
	if err != nil {
		t.Fatal(err)
	}
	var rec models.VoteRecord
	if err := snap.Decode(&rec); err != nil {
		t.Fatal(err)
	}
	if rec.Likes != 0 {
		t.Errorf("stored likes = %d, want 0", rec.Likes)
	}
}

func TestLikesFromTwoDevices(t *testing.T) {
	v := newVoteTarget(t)
	first, second := newDevice(), newDevice()

	v.do(t, "POST", v.h.Like, v.path, first)
	w, resp := v.do(t, "POST", v.h.Like, v.path, second)
	testutil.AssertStatus(t, w, http.StatusOK)
	if resp.Likes != 2 {
		t.Errorf("likes = %d, want 2", resp.Likes)
	}

	// The first device sees the second device's like without it lighting
	// its own button differently.
	w, resp = v.do(t, "GET", v.h.Get, v.path, first)
	testutil.AssertStatus(t, w, http.StatusOK)
	if resp.Likes != 2 || !resp.Active || resp.Reconciling {
		t.Errorf("first device view = %+v", resp)
	}

	// A fresh device has not voted.
	w, resp = v.do(t, "GET", v.h.Get, v.path, newDevice())
	testutil.AssertStatus(t, w, http.StatusOK)
	if resp.Likes != 2 || resp.Active {
		t.Errorf("fresh device view = %+v", resp)
	}
}

func TestVoteErrors(t *testing.T) {
	v := newVoteTarget(t)

	withPath := func(overrides map[string]string) map[string]string {
		p := make(map[string]string, len(v.path))
		for k, val := range v.path {
			p[k] = val
		}
		for k, val := range overrides {
			p[k] = val
		}
		return p
	}

	testCases := []struct {
		name           string
		params         map[string]string
		headers        map[string]string
		expectedStatus int
	}{
		{"missing device", v.path, map[string]string{}, http.StatusBadRequest},
		{"bad device", v.path, map[string]string{middleware.HeaderDeviceUUID: "not-a-uuid"}, http.StatusBadRequest},
		{"unknown day", withPath(map[string]string{"day": "Monday"}), newDevice(), http.StatusBadRequest},
		{"unknown meal", withPath(map[string]string{"meal": "snack"}), newDevice(), http.StatusBadRequest},
		{"unknown owner", withPath(map[string]string{"serviceId": "nobody"}), newDevice(), http.StatusNotFound},
		{"item not on menu", withPath(map[string]string{"item": "paneer"}), newDevice(), http.StatusNotFound},
		{"item on another day", withPath(map[string]string{"day": "Tu"}), newDevice(), http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w, _ := v.do(t, "POST", v.h.Like, tc.params, tc.headers)
			testutil.AssertStatus(t, w, tc.expectedStatus)
		})
	}
}
