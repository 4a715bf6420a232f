package resource

import (
	"context"
	"strings"

	"timepay.uz/crm/internal/crm"
)

// BranchInput is the branch create form.
type BranchInput struct {
	Name string `json:"name"`
}

// SubscribeInput is the plan purchase form.
type SubscribeInput struct {
	PlanID int `json:"plan_id"`
}

// NoPatch marks pages without an edit form.
type NoPatch struct{}

func join(parts ...string) string { return strings.Join(parts, " ") }

// Pages builds one manager per console route.
func Pages(src Source) map[string]Page {
	return map[string]Page{
		"employees": NewManager(src, Ops[crm.Employee, crm.EmployeeInput, crm.EmployeePatch]{
			Name:   "employees",
			List:   (*crm.Service).Employees,
			Create: (*crm.Service).CreateEmployee,
			Update: (*crm.Service).UpdateEmployee,
			Delete: (*crm.Service).DeleteEmployee,
			Text:   func(e crm.Employee) string { return join(e.Name, e.EmployeeNo, e.Position, e.Phone) },
		}),
		"devices": NewManager(src, Ops[crm.Device, crm.DeviceInput, crm.DevicePatch]{
			Name:   "devices",
			List:   (*crm.Service).Devices,
			Create: (*crm.Service).CreateDevice,
			Update: (*crm.Service).UpdateDevice,
			Delete: (*crm.Service).DeleteDevice,
			Text:   func(d crm.Device) string { return join(d.Name, d.IP, d.Location, string(d.Status)) },
		}),
		"shifts": NewManager(src, Ops[crm.Shift, crm.ShiftInput, crm.ShiftPatch]{
			Name:   "shifts",
			List:   (*crm.Service).Shifts,
			Create: (*crm.Service).CreateShift,
			Update: (*crm.Service).UpdateShift,
			Delete: (*crm.Service).DeleteShift,
			Text:   func(s crm.Shift) string { return s.Name },
		}),
		"break": NewManager(src, Ops[crm.BreakTime, crm.BreakTimeInput, crm.BreakTimePatch]{
			Name:   "break",
			List:   (*crm.Service).BreakTimes,
			Create: (*crm.Service).CreateBreakTime,
			Update: (*crm.Service).UpdateBreakTime,
			Delete: (*crm.Service).DeleteBreakTime,
			Text:   func(b crm.BreakTime) string { return b.Name },
		}),
		"work-days": NewManager(src, Ops[crm.Calendar, crm.CalendarInput, crm.CalendarPatch]{
			Name:   "work-days",
			List:   (*crm.Service).WorkDays,
			Create: (*crm.Service).CreateWorkDay,
			Update: (*crm.Service).UpdateWorkDay,
			Delete: (*crm.Service).DeleteWorkDay,
			Text:   func(c crm.Calendar) string { return c.Name },
		}),
		"day-offs": NewManager(src, Ops[crm.Calendar, crm.CalendarInput, crm.CalendarPatch]{
			Name:   "day-offs",
			List:   (*crm.Service).DayOffs,
			Create: (*crm.Service).CreateDayOff,
			Update: (*crm.Service).UpdateDayOff,
			Delete: (*crm.Service).DeleteDayOff,
			Text:   func(c crm.Calendar) string { return c.Name },
		}),
		"filial": NewManager(src, Ops[crm.Branch, BranchInput, crm.BranchPatch]{
			Name: "filial",
			List: (*crm.Service).Branches,
			Create: func(svc *crm.Service, ctx context.Context, in BranchInput) (crm.Branch, error) {
				return svc.CreateBranch(ctx, in.Name)
			},
			Update: (*crm.Service).UpdateBranch,
			Delete: (*crm.Service).DeleteBranch,
			Text:   func(b crm.Branch) string { return b.Name },
		}),
		"telegram": NewManager(src, Ops[crm.TelegramChannel, crm.TelegramChannelInput, crm.TelegramChannelPatch]{
			Name:   "telegram",
			List:   (*crm.Service).TelegramChannels,
			Create: (*crm.Service).CreateTelegramChannel,
			Update: (*crm.Service).UpdateTelegramChannel,
			Delete: (*crm.Service).DeleteTelegramChannel,
			Text:   func(c crm.TelegramChannel) string { return join(c.Name, c.ChatID) },
		}),
		"subscriptions": NewManager(src, Ops[crm.Subscription, SubscribeInput, NoPatch]{
			Name: "subscriptions",
			List: (*crm.Service).Subscriptions,
			Create: func(svc *crm.Service, ctx context.Context, in SubscribeInput) (crm.Subscription, error) {
				return svc.Subscribe(ctx, in.PlanID)
			},
			Delete: (*crm.Service).CancelSubscription,
		}),
	}
}
