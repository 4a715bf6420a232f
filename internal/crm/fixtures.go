package crm

// Fallback datasets returned by list operations when the backend cannot be
// reached. Each call returns a fresh slice.

func fixtureEmployees() []Employee {
	return []Employee{
		{ID: 1, EmployeeNo: "E-001", Name: "Aliyev Jasur", Position: "Menejer", Phone: "+998901234567", Employment: "full_time", Salary: 6000000, Shift: Ptr(1), Branch: Ptr(1)},
		{ID: 2, EmployeeNo: "E-002", Name: "Karimova Dilnoza", Position: "Buxgalter", Phone: "+998911112233", Employment: "full_time", Salary: 5500000, Shift: Ptr(1), Branch: Ptr(1)},
		{ID: 3, EmployeeNo: "E-003", Name: "Rahimov Bekzod", Position: "Qorovul", Phone: "+998935556677", Employment: "part_time", Salary: 3000000, Shift: Ptr(2)},
	}
}

func fixtureDevices() []Device {
	return []Device{
		{ID: 1, Name: "Asosiy kirish", IP: "192.168.1.64", Username: "admin", Status: DeviceActive, DeviceType: "hikvision", Port: 80, Location: "1-qavat"},
		{ID: 2, Name: "Ombor", IP: "192.168.1.65", Username: "admin", Status: DeviceInactive, DeviceType: "hikvision", Port: 80, Location: "Ombor"},
	}
}

func fixtureShifts() []Shift {
	return []Shift{
		{ID: 1, Name: "Kunduzgi", StartTime: "09:00:00", EndTime: "18:00:00", BreakTime: Ptr(1)},
		{ID: 2, Name: "Tungi", StartTime: "22:00:00", EndTime: "06:00:00"},
	}
}

func fixtureBreakTimes() []BreakTime {
	return []BreakTime{
		{ID: 1, Name: "Tushlik", StartTime: "13:00:00", EndTime: "14:00:00"},
		{ID: 2, Name: "Qisqa tanaffus", StartTime: "16:00:00", EndTime: "16:15:00"},
	}
}

func fixtureWorkDays() []Calendar {
	return []Calendar{
		{ID: 1, Name: "Besh kunlik", Days: []Weekday{"mon", "tue", "wed", "thu", "fri"}},
		{ID: 2, Name: "Olti kunlik", Days: []Weekday{"mon", "tue", "wed", "thu", "fri", "sat"}},
	}
}

func fixtureDayOffs() []Calendar {
	return []Calendar{
		{ID: 1, Name: "Dam olish", Days: []Weekday{"sat", "sun"}},
		{ID: 2, Name: "Yakshanba", Days: []Weekday{"sun"}},
	}
}

func fixtureBranches() []Branch {
	return []Branch{
		{ID: 1, Name: "Bosh ofis", CreatedAt: "2024-01-10T09:00:00Z"},
		{ID: 2, Name: "Chilonzor filiali", CreatedAt: "2024-03-02T09:00:00Z"},
	}
}

func fixtureTelegramChannels() []TelegramChannel {
	return []TelegramChannel{
		{ID: 1, Name: "Davomat", ChatID: "@timepay_davomat", ResolvedID: "-1001234567890", Device: Ptr(1)},
		{ID: 2, Name: "Rahbariyat", ChatID: "-1009876543210", ResolvedID: "-1009876543210"},
	}
}

func fixturePlans() []Plan {
	return []Plan{
		{ID: 1, Title: "Boshlang'ich", PlanType: "basic", BillingCycle: "monthly", DurationMonths: 1, Price: 150000, Description: "20 tagacha xodim"},
		{ID: 2, Title: "Biznes", PlanType: "business", BillingCycle: "monthly", DurationMonths: 1, Price: 350000, Description: "100 tagacha xodim"},
		{ID: 3, Title: "Yillik", PlanType: "business", BillingCycle: "yearly", DurationMonths: 12, Price: 3500000, Description: "100 tagacha xodim, 2 oy bepul"},
	}
}

func fixtureSubscriptions() []Subscription {
	return []Subscription{
		{ID: 1, PlanID: 2, StartDate: "2024-01-01", EndDate: "2024-02-01", IsActive: true},
		{ID: 2, PlanID: 1, StartDate: "2023-11-01", EndDate: "2023-12-01", IsActive: false},
	}
}
