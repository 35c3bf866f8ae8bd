// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/danielhkuo/campus-mess/cliparse"
	"github.com/danielhkuo/campus-mess/middleware"
	"github.com/danielhkuo/campus-mess/models"
	"github.com/danielhkuo/campus-mess/remote"
	"github.com/danielhkuo/campus-mess/schedule"
)

type ListingHandler struct {
	store remote.Store
	cfg   cliparse.Config
	now   func() time.Time
}

func NewListingHandler(store remote.Store, cfg cliparse.Config) *ListingHandler {
	return &ListingHandler{store: store, cfg: cfg, now: time.Now}
}

func listingFor(uid, serviceType string, p models.Profile) models.Listing {
	l := models.Listing{
		UID:    uid,
		Type:   serviceType,
		Name:   p.MessName,
		IsOpen: p.MessStatus,
		Status: "Closed",
		Phone:  p.Phone,
	}
	if l.Name == "" {
		l.Name = "Unnamed " + serviceType
	}
	if p.MessStatus {
		l.Status = "Open"
	}
	if digits := onlyDigits(p.Phone); digits != "" {
		if len(digits) == 10 {
			digits = "91" + digits
		}
		l.WhatsAppURL = "https://wa.me/" + digits
	}
	return l
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// List handles GET /v1/listings?type=mess|canteen&q=name
// Without a type both kinds are returned, open ones first. q keeps the
// listings whose name contains it, ignoring case.
func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	types := models.ServiceTypes
	if t := r.URL.Query().Get("type"); t != "" {
		if !models.IsServiceType(t) {
			middleware.ErrorResponse(w, http.StatusBadRequest, "type must be one of: mess, canteen")
			return
		}
		types = []string{t}
	}

	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

	listings := []models.Listing{}
	for _, t := range types {
		snap, err := h.store.Read(r.Context(), schedule.OwnersPath(t))
		if err != nil {
			slog.Error("failed to read listings", "type", t, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		var owners map[string]models.Owner
		if err := snap.Decode(&owners); err != nil {
			slog.Error("failed to decode listings", "type", t, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		for uid, o := range owners {
			l := listingFor(uid, t, o.Profile)
			if q != "" && !strings.Contains(strings.ToLower(l.Name), q) {
				continue
			}
			listings = append(listings, l)
		}
	}

	sort.Slice(listings, func(i, j int) bool {
		if listings[i].IsOpen != listings[j].IsOpen {
			return listings[i].IsOpen
		}
		if listings[i].Name != listings[j].Name {
			return listings[i].Name < listings[j].Name
		}
		return listings[i].UID < listings[j].UID
	})

	middleware.JSONResponse(w, http.StatusOK, listings)
}

// Get handles GET /v1/listings/{uid}
// Every day of the week is present, today flagged, meals in
// breakfast, lunch, dinner order.
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, serviceType, owner, ok := lookupOwner(w, r, h.store)
	if !ok {
		return
	}

	today := models.DayKeys[int(h.now().In(h.cfg.Location()).Weekday())]
	detail := models.ListingDetail{
		Listing: listingFor(uid, serviceType, owner.Profile),
		Email:   owner.Profile.Email,
		Days:    make([]models.DayView, 0, len(models.DayKeys)),
	}

	for _, day := range models.DayKeys {
		view := models.DayView{
			Key:   day,
			Name:  models.DayNames[day],
			Today: day == today,
			Meals: []models.MealView{},
		}
		for _, key := range models.MealKeys {
			meal, ok := owner.Weekdays[day].Meals[key]
			if !ok {
				continue
			}
			mv := models.MealView{
				Key:   key,
				Label: models.MealLabel(serviceType, key),
				Price: meal.Price,
				Items: make([]models.ItemView, 0, len(meal.Items)),
			}
			for id, it := range meal.Items {
				mv.Items = append(mv.Items, models.ItemView{ID: id, Name: it.Name, Price: it.Price})
			}
			sort.Slice(mv.Items, func(i, j int) bool { return mv.Items[i].ID < mv.Items[j].ID })
			view.Meals = append(view.Meals, mv)
		}
		detail.Days = append(detail.Days, view)
	}

	middleware.JSONResponse(w, http.StatusOK, detail)
}
