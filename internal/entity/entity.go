package entity

import "time"

// RoomStatus is the cleaning lifecycle state of a room. A room holds exactly
// one status at a time.
type RoomStatus string

const (
	RoomPending     RoomStatus = "PENDING"
	RoomInProgress  RoomStatus = "IN_PROGRESS"
	RoomInspection  RoomStatus = "INSPECTION"
	RoomCompleted   RoomStatus = "COMPLETED"
	RoomMaintenance RoomStatus = "MAINTENANCE"
)

// Terminal reports whether the status means the cleaning work is finished.
func (s RoomStatus) Terminal() bool {
	return s == RoomCompleted || s == RoomInspection
}

// CleaningType classifies the service a room needs today.
type CleaningType string

const (
	CleanDeparture  CleaningType = "DEPARTURE"
	CleanPrearrival CleaningType = "PREARRIVAL"
	CleanHoldover   CleaningType = "HOLDOVER"
	CleanWeekly     CleaningType = "WEEKLY"
	CleanRubbish    CleaningType = "RUBBISH"
	CleanDayuse     CleaningType = "DAYUSE"
	CleanStayover   CleaningType = "STAYOVER"
)

// GuestStatus reflects whether the room can be entered.
type GuestStatus string

const (
	GuestNone   GuestStatus = "NO_GUEST"
	GuestInRoom GuestStatus = "GUEST_IN_ROOM"
	GuestOut    GuestStatus = "GUEST_OUT"
	GuestDND    GuestStatus = "DND"
)

// Role identifies a staff member's function.
type Role string

const (
	RoleCleaner     Role = "CLEANER"
	RoleSupervisor  Role = "SUPERVISOR"
	RoleMaintenance Role = "MAINTENANCE"
	RoleReception   Role = "RECEPTION"
	RoleHouseman    Role = "HOUSEMAN"
	RoleAdmin       Role = "ADMIN"
)

type IncidentStatus string

const (
	IncidentOpen     IncidentStatus = "OPEN"
	IncidentResolved IncidentStatus = "RESOLVED"
)

type IncidentCategory string

const (
	IncidentSupply       IncidentCategory = "SUPPLY"
	IncidentGuestRequest IncidentCategory = "GUEST_REQ"
	IncidentPreventive   IncidentCategory = "PREVENTIVE"
	IncidentOther        IncidentCategory = "OTHER"
)

// Incident is a reported problem or request attached to a room (or, when
// RoomID is empty, a system-level notice). Incidents are never deleted.
type Incident struct {
	ID         string           `json:"id"`
	RoomID     string           `json:"room_id,omitempty"`
	Text       string           `json:"text"`
	User       string           `json:"user"`
	TargetRole Role             `json:"target_role"`
	Status     IncidentStatus   `json:"status"`
	Category   IncidentCategory `json:"category,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
	PhotoRef   string           `json:"photo_ref,omitempty"`
	Group      string           `json:"submitting_group,omitempty"`
}

// GuestDetails carries reception-owned booking context for a room.
// NextArrival is a wall-clock "HH:MM" string owned by the backend.
type GuestDetails struct {
	CurrentGuest string `json:"current_guest,omitempty"`
	NextGuest    string `json:"next_guest,omitempty"`
	CheckInDate  string `json:"check_in_date,omitempty"`
	CheckOutDate string `json:"check_out_date,omitempty"`
	NextArrival  string `json:"next_arrival_time,omitempty"`
}

// RoomConfig is the physical setup of a room.
type RoomConfig struct {
	Bedrooms int      `json:"bedrooms"`
	Beds     string   `json:"beds"`
	Extras   []string `json:"extras,omitempty"`
}

type Room struct {
	ID                string       `json:"id"`
	Number            string       `json:"number"`
	Type              string       `json:"room_type"`
	Floor             int          `json:"floor"`
	Status            RoomStatus   `json:"status"`
	CleaningType      CleaningType `json:"cleaning_type"`
	GuestStatus       GuestStatus  `json:"guest_status"`
	AssignedGroup     string       `json:"assigned_group,omitempty"`
	AssignedCleaner   string       `json:"assigned_cleaner,omitempty"`
	ReceptionPriority int          `json:"priority,omitempty"` // 1 highest .. 5 lowest, 0 unset
	Guest             GuestDetails `json:"guest_details"`
	Incidents         []Incident   `json:"incidents,omitempty"`
	Config            RoomConfig   `json:"configuration"`
	MaintenanceReason string       `json:"maintenance_reason,omitempty"`
	Notes             string       `json:"notes,omitempty"`
	LastUpdated       time.Time    `json:"last_updated"`
	LastCleanMinutes  int          `json:"last_clean_minutes,omitempty"`
}

type Staff struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	GroupID  string `json:"group_id,omitempty"`
}

type InventoryItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Quantity    int       `json:"quantity"`
	Category    string    `json:"category"`
	MinStock    int       `json:"min_stock,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

type Announcement struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

type Asset struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	Condition string `json:"condition,omitempty"`
}

// CleaningTypeDef maps a cleaning type to its time estimate in minutes.
type CleaningTypeDef struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Minutes int    `json:"estimated_minutes"`
}

type AvailabilityStatus string

const (
	AvailabilityAvailable AvailabilityStatus = "AVAILABLE"
	AvailabilityOff       AvailabilityStatus = "OFF"
	AvailabilityVacation  AvailabilityStatus = "VACATION"
)

// StaffAvailability is a staff member's declared availability for one day.
// Date is "YYYY-MM-DD"; times are "HH:MM" and may be empty.
type StaffAvailability struct {
	ID      string             `json:"id"`
	StaffID string             `json:"user_id"`
	Date    string             `json:"date"`
	Status  AvailabilityStatus `json:"status"`
	Start   string             `json:"start_time,omitempty"`
	End     string             `json:"end_time,omitempty"`
}

// WorkShift is a rostered shift, unique per (staff, date).
type WorkShift struct {
	ID      string `json:"id"`
	StaffID string `json:"user_id"`
	Date    string `json:"date"`
	Start   string `json:"start_time,omitempty"`
	End     string `json:"end_time,omitempty"`
}

// Session is the authenticated user's active work session.
type Session struct {
	IsActive     bool      `json:"is_active"`
	StartTime    time.Time `json:"start_time"`
	BreakMinutes int       `json:"break_minutes"`
	TotalMinutes int       `json:"total_minutes"`
}

// Profile is the authenticated identity persisted across restarts.
type Profile struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	GroupID  string `json:"group_id,omitempty"`
}
