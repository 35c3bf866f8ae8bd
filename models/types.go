package models

import "time"

// Service types
const (
	ServiceMess    = "mess"
	ServiceCanteen = "canteen"
)

// ServiceTypes lists every owner type in display order.
var ServiceTypes = []string{ServiceMess, ServiceCanteen}

// IsServiceType reports whether t names a known owner type.
func IsServiceType(t string) bool {
	return t == ServiceMess || t == ServiceCanteen
}

// Week days are keyed by their two-letter prefix, Sunday first.
var DayKeys = []string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"}

var DayNames = map[string]string{
	"Su": "Sunday", "Mo": "Monday", "Tu": "Tuesday", "We": "Wednesday",
	"Th": "Thursday", "Fr": "Friday", "Sa": "Saturday",
}

// Meal keys in canonical order
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
)

var MealKeys = []string{MealBreakfast, MealLunch, MealDinner}

// IsDayKey reports whether k is one of DayKeys.
func IsDayKey(k string) bool {
	_, ok := DayNames[k]
	return ok
}

// IsMealKey reports whether k is one of MealKeys.
func IsMealKey(k string) bool {
	return k == MealBreakfast || k == MealLunch || k == MealDinner
}

// MealLabel is the display name of a meal. Canteens call lunch and
// dinner Morning and Evening.
func MealLabel(serviceType, meal string) string {
	switch {
	case serviceType == ServiceCanteen && meal == MealLunch:
		return "Morning"
	case serviceType == ServiceCanteen && meal == MealDinner:
		return "Evening"
	case meal == MealBreakfast:
		return "Breakfast"
	case meal == MealLunch:
		return "Lunch"
	case meal == MealDinner:
		return "Dinner"
	}
	return meal
}

// Stored documents

// VoteRecord is the shared like/dislike counter of one menu item.
type VoteRecord struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

type Profile struct {
	MessName   string `json:"messName"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	UserType   string `json:"userType"`
	MessStatus bool   `json:"messStatus"`
}

type MenuItem struct {
	Name  string `json:"name"`
	Price string `json:"price,omitempty"`
}

type Meal struct {
	Price string              `json:"price,omitempty"`
	Items map[string]MenuItem `json:"items,omitempty"`
}

type Day struct {
	Meals map[string]Meal `json:"meals,omitempty"`
}

// WeeklyMenu maps day keys (Su..Sa) to that day's meals.
type WeeklyMenu map[string]Day

type Owner struct {
	Profile  Profile    `json:"profile"`
	Weekdays WeeklyMenu `json:"weekdays,omitempty"`
}

// ClockWindow is an operating window as entered by an admin ("HH:mm").
type ClockWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type SchedulerSettings struct {
	MessSchedule    []ClockWindow `json:"messSchedule,omitempty"`
	CanteenSchedule []ClockWindow `json:"canteenSchedule,omitempty"`
}

// Request types

type RegisterOwnerRequest struct {
	Type     string `json:"type" validate:"oneof=mess canteen"`
	MessName string `json:"messName" validate:"required,max=80"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
}

type UpdateProfileRequest struct {
	MessName *string `json:"messName,omitempty" validate:"omitempty,max=80"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=20"`
}

// PutMenuRequest replaces an owner's weekly menu. Items without an id
// get one.
type PutMenuRequest struct {
	Days map[string]map[string]MealInput `json:"days"`
}

type MealInput struct {
	Price string      `json:"price,omitempty"`
	Items []ItemInput `json:"items"`
}

type ItemInput struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Price string `json:"price,omitempty"`
}

type SetStatusRequest struct {
	Open bool `json:"open"`
}

type EditModeRequest struct {
	Enabled bool `json:"enabled"`
}

type AdminLoginRequest struct {
	Password string `json:"password"`
}

type SchedulerEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

type SuggestionRequest struct {
	Name string `json:"name" validate:"required,max=80"`
}

// Response types

type RegisterOwnerResponse struct {
	UID      string `json:"uid"`
	Type     string `json:"type"`
	OwnerKey string `json:"owner_key"`
}

type OwnerResponse struct {
	UID      string     `json:"uid"`
	Type     string     `json:"type"`
	Profile  Profile    `json:"profile"`
	Weekdays WeeklyMenu `json:"weekdays,omitempty"`
	EditMode bool       `json:"edit_mode"`
}

type EditModeResponse struct {
	EditMode bool `json:"edit_mode"`
}

type Listing struct {
	UID         string `json:"uid"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	IsOpen      bool   `json:"is_open"`
	Status      string `json:"status"`
	Phone       string `json:"phone,omitempty"`
	WhatsAppURL string `json:"whatsapp_url,omitempty"`
}

type ItemView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price,omitempty"`
}

type MealView struct {
	Key   string     `json:"key"`
	Label string     `json:"label"`
	Price string     `json:"price,omitempty"`
	Items []ItemView `json:"items"`
}

type DayView struct {
	Key   string     `json:"key"`
	Name  string     `json:"name"`
	Today bool       `json:"today"`
	Meals []MealView `json:"meals"`
}

type ListingDetail struct {
	Listing
	Email string    `json:"email,omitempty"`
	Days  []DayView `json:"days"`
}

type VoteResponse struct {
	ServiceID   string `json:"service_id"`
	Day         string `json:"day"`
	Meal        string `json:"meal"`
	ItemID      string `json:"item_id"`
	Vote        string `json:"vote"`
	Likes       int    `json:"likes"`
	Active      bool   `json:"active"`
	Reconciling bool   `json:"reconciling"`
	Committed   *bool  `json:"committed,omitempty"`
}

type AdminOwner struct {
	UID    string `json:"uid"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	IsOpen bool   `json:"is_open"`
}

type DeviceInfo struct {
	DeviceUUID   string    `json:"device_uuid"`
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastSeenAt   time.Time `json:"last_seen_at"`
	FirstSeenAgo string    `json:"first_seen_ago"`
	LikedItems   []string  `json:"liked_items"`
}

type AdminLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type MasterToggleResponse struct {
	Type     string `json:"type"`
	Open     bool   `json:"open"`
	Owners   int    `json:"owners"`
	Override bool   `json:"override"`
}

type SchedulerServiceStatus struct {
	RunState     string        `json:"run_state"`
	Toggle       bool          `json:"toggle"`
	Windows      []ClockWindow `json:"windows"`
	ShouldBeOpen bool          `json:"should_be_open"`
}

type SchedulerStatus struct {
	Enabled        bool                              `json:"enabled"`
	Interval       string                            `json:"interval"`
	LastTransition *time.Time                        `json:"last_transition,omitempty"`
	LastChangedAgo string                            `json:"last_changed_ago,omitempty"`
	Services       map[string]SchedulerServiceStatus `json:"services"`
}

type Suggestion struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
