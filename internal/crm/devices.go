package crm

import (
	"context"
	"strings"
)

const (
	devicesPath   = "/utils/devices/"
	eventSyncPath = "/event/sync/"
)

type DeviceInput struct {
	Name       string       `json:"name"`
	IP         string       `json:"ip"`
	Username   string       `json:"username"`
	Password   string       `json:"password"`
	DeviceType string       `json:"device_type"`
	Port       int          `json:"port"`
	Location   string       `json:"location"`
	Status     DeviceStatus `json:"status"`
}

type DevicePatch struct {
	Name       *string       `json:"name,omitempty"`
	IP         *string       `json:"ip,omitempty"`
	Username   *string       `json:"username,omitempty"`
	Password   *string       `json:"password,omitempty"`
	DeviceType *string       `json:"device_type,omitempty"`
	Port       *int          `json:"port,omitempty"`
	Location   *string       `json:"location,omitempty"`
	Status     *DeviceStatus `json:"status,omitempty"`
}

func normalizeStatus(s string) DeviceStatus {
	switch DeviceStatus(strings.ToLower(strings.TrimSpace(s))) {
	case DeviceActive, "online":
		return DeviceActive
	case DeviceError, "failed":
		return DeviceError
	default:
		return DeviceInactive
	}
}

func decodeDevice(m map[string]any) Device {
	return Device{
		ID:         integer(m, "id"),
		Name:       str(m, "name"),
		IP:         str(m, "ip", "ip_address"),
		Username:   str(m, "username"),
		Password:   str(m, "password"),
		Status:     normalizeStatus(str(m, "status")),
		DeviceType: str(m, "device_type", "type"),
		Port:       integer(m, "port"),
		Location:   str(m, "location"),
		UserID:     integer(m, "user_id", "user"),
	}
}

var devicesOp = listOp[Device]{
	name:     "devices.list",
	path:     devicesPath,
	policy:   Fallback,
	decode:   decodeDevice,
	fixtures: fixtureDevices,
}

func (s *Service) Devices(ctx context.Context) ([]Device, error) {
	return runList(ctx, s, devicesOp, s.ownerQuery())
}

func (s *Service) CreateDevice(ctx context.Context, in DeviceInput) (Device, error) {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = msgValidation
	}
	if strings.TrimSpace(in.IP) == "" {
		fields["ip"] = msgValidation
	}
	if len(fields) > 0 {
		return Device{}, &Error{Op: "device.create", Message: msgValidation, Fields: fields, Err: ErrInvalidInput}
	}
	status := in.Status
	if status == "" {
		status = DeviceActive
	}
	p := map[string]any{
		"name":        in.Name,
		"ip":          in.IP,
		"username":    in.Username,
		"password":    in.Password,
		"device_type": in.DeviceType,
		"port":        in.Port,
		"location":    in.Location,
		"status":      string(status),
	}
	m, err := s.create(ctx, "device.create", devicesPath, p)
	if err != nil {
		return Device{}, err
	}
	return decodeDevice(m), nil
}

func (s *Service) UpdateDevice(ctx context.Context, id int, in DevicePatch) (Device, error) {
	p := map[string]any{}
	putStr(p, "name", in.Name)
	putStr(p, "ip", in.IP)
	putStr(p, "username", in.Username)
	putStr(p, "password", in.Password)
	putStr(p, "device_type", in.DeviceType)
	putInt(p, "port", in.Port)
	putStr(p, "location", in.Location)
	if in.Status != nil {
		p["status"] = string(*in.Status)
	}
	m, err := s.update(ctx, "device.update", devicesPath, id, p)
	if err != nil {
		return Device{}, err
	}
	return decodeDevice(m), nil
}

func (s *Service) DeleteDevice(ctx context.Context, id int) error {
	return s.remove(ctx, "device.delete", devicesPath, id)
}

// SyncEvents asks the backend to pull attendance events from the devices.
func (s *Service) SyncEvents(ctx context.Context) (SyncResult, error) {
	return s.sync(ctx, "event.sync", eventSyncPath, "synced_events")
}
