package crm

// Role gates the "act on behalf of another user" affordances.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

type User struct {
	ID          int    `json:"id"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Role        Role   `json:"role"`
	IsActive    bool   `json:"is_active"`
}

// Employee references are nil when unset.
type Employee struct {
	ID          int     `json:"id"`
	EmployeeNo  string  `json:"employee_no"`
	Name        string  `json:"name"`
	Position    string  `json:"position"`
	Phone       string  `json:"phone"`
	PhotoURL    string  `json:"photo"`
	Description string  `json:"description"`
	Employment  string  `json:"employment"`
	Salary      float64 `json:"salary"`
	Fine        float64 `json:"fine"`
	Device      *int    `json:"device"`
	Department  *int    `json:"department"`
	Shift       *int    `json:"shift"`
	Branch      *int    `json:"branch"`
	BreakTime   *int    `json:"break_time"`
	WorkDay     *int    `json:"work_day"`
	DayOff      *int    `json:"day_off"`
}

type DeviceStatus string

const (
	DeviceActive   DeviceStatus = "active"
	DeviceInactive DeviceStatus = "inactive"
	DeviceError    DeviceStatus = "error"
)

type Device struct {
	ID         int          `json:"id"`
	Name       string       `json:"name"`
	IP         string       `json:"ip"`
	Username   string       `json:"username"`
	Password   string       `json:"password"`
	Status     DeviceStatus `json:"status"`
	DeviceType string       `json:"device_type"`
	Port       int          `json:"port"`
	Location   string       `json:"location"`
	UserID     int          `json:"user_id"`
}

// Shift times are HH:MM:SS.
type Shift struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	BreakTime *int   `json:"break_time"`
	UserID    int    `json:"user_id"`
}

type BreakTime struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	UserID    int    `json:"user_id"`
}

// Weekday codes: mon..sun.
type Weekday string

// Calendar is the shape shared by work days and day offs.
type Calendar struct {
	ID     int       `json:"id"`
	Name   string    `json:"name"`
	Days   []Weekday `json:"days"`
	UserID int       `json:"user_id"`
}

type Branch struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UserID    int    `json:"user_id"`
}

// TelegramChannel.ChatID is a @username or a numeric chat id.
type TelegramChannel struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	ChatID     string `json:"chat_id"`
	ResolvedID string `json:"resolved_id"`
	Device     *int   `json:"device"`
	UserID     int    `json:"user_id"`
}

type Plan struct {
	ID             int     `json:"id"`
	Title          string  `json:"title"`
	PlanType       string  `json:"plan_type"`
	BillingCycle   string  `json:"billing_cycle"`
	DurationMonths int     `json:"duration_months"`
	Price          float64 `json:"price"`
	Description    string  `json:"description"`
}

type Subscription struct {
	ID        int    `json:"id"`
	PlanID    int    `json:"plan_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	IsActive  bool   `json:"is_active"`
}

type Notification struct {
	ID        int    `json:"id"`
	UserID    int    `json:"user_id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
	IsRead    bool   `json:"is_read"`
}

// AttendanceRecord is one row of the daily snapshot. In/Out are the
// "kirish"/"chiqish" times; empty when the employee has no event.
type AttendanceRecord struct {
	EmployeeID   int    `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	In           string `json:"kirish"`
	Out          string `json:"chiqish"`
	Late         bool   `json:"late"`
	LateMinutes  int    `json:"late_minutes"`
	Face         string `json:"face"`
}

type AttendanceStats struct {
	Total  int `json:"total"`
	Came   int `json:"came"`
	Late   int `json:"late"`
	Absent int `json:"absent"`
}

type DailyAttendance struct {
	Date    string             `json:"date"`
	Records []AttendanceRecord `json:"records"`
	Stats   AttendanceStats    `json:"stats"`
}

type AbsentEmployee struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Position string `json:"position"`
	Phone    string `json:"phone"`
}

type MonthlyRow struct {
	EmployeeID  int     `json:"employee_id"`
	Name        string  `json:"name"`
	WorkedDays  int     `json:"worked_days"`
	LateDays    int     `json:"late_days"`
	AbsentDays  int     `json:"absent_days"`
	WorkedHours float64 `json:"worked_hours"`
	Fine        float64 `json:"fine"`
	Salary      float64 `json:"salary"`
}

type MonthlyReport struct {
	Year  int          `json:"year"`
	Month int          `json:"month"`
	Rows  []MonthlyRow `json:"rows"`
}

// SyncResult normalizes the device synchronization replies.
type SyncResult struct {
	Success bool   `json:"success"`
	Added   int    `json:"added"`
	Total   int    `json:"total"`
	Skipped int    `json:"skipped"`
	Message string `json:"message"`
}

// ExcelFile is a downloaded spreadsheet.
type ExcelFile struct {
	Name string
	Data []byte
}
