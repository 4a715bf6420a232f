package crm

import (
	"context"
	"strings"
)

const (
	branchesPath = "/utils/branches/"
	telegramPath = "/utils/telegram-channels/"
)

type BranchPatch struct {
	Name *string `json:"name,omitempty"`
}

func decodeBranch(m map[string]any) Branch {
	return Branch{
		ID:        integer(m, "id"),
		Name:      str(m, "name"),
		CreatedAt: str(m, "created_at"),
		UserID:    integer(m, "user_id", "user"),
	}
}

var branchesOp = listOp[Branch]{
	name:     "branches.list",
	path:     branchesPath,
	policy:   Fallback,
	decode:   decodeBranch,
	fixtures: fixtureBranches,
}

func (s *Service) Branches(ctx context.Context) ([]Branch, error) {
	return runList(ctx, s, branchesOp, s.ownerQuery())
}

// CreateBranch sends the name and the owning user id.
func (s *Service) CreateBranch(ctx context.Context, name string) (Branch, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Branch{}, &Error{Op: "branch.create", Message: msgValidation, Fields: map[string]string{"name": "required"}, Err: ErrInvalidInput}
	}
	m, err := s.create(ctx, "branch.create", branchesPath, map[string]any{"name": name})
	if err != nil {
		return Branch{}, err
	}
	return decodeBranch(m), nil
}

// BranchUpdatePayload contains exactly the fields set in the patch.
func BranchUpdatePayload(in BranchPatch) map[string]any {
	p := map[string]any{}
	putStr(p, "name", in.Name)
	return p
}

func (s *Service) UpdateBranch(ctx context.Context, id int, in BranchPatch) (Branch, error) {
	m, err := s.update(ctx, "branch.update", branchesPath, id, BranchUpdatePayload(in))
	if err != nil {
		return Branch{}, err
	}
	return decodeBranch(m), nil
}

func (s *Service) DeleteBranch(ctx context.Context, id int) error {
	return s.remove(ctx, "branch.delete", branchesPath, id)
}

type TelegramChannelInput struct {
	Name   string `json:"name"`
	ChatID string `json:"chat_id"`
	Device int    `json:"device"`
}

type TelegramChannelPatch struct {
	Name   *string `json:"name,omitempty"`
	ChatID *string `json:"chat_id,omitempty"`
	Device *int    `json:"device,omitempty"`
}

func decodeTelegramChannel(m map[string]any) TelegramChannel {
	return TelegramChannel{
		ID:         integer(m, "id"),
		Name:       str(m, "name"),
		ChatID:     str(m, "chat_id"),
		ResolvedID: str(m, "resolved_id"),
		Device:     ref(m, "device", "device_id"),
		UserID:     integer(m, "user_id", "user"),
	}
}

var telegramOp = listOp[TelegramChannel]{
	name:     "telegram_channels.list",
	path:     telegramPath,
	policy:   Fallback,
	decode:   decodeTelegramChannel,
	fixtures: fixtureTelegramChannels,
}

// TelegramChannels is scoped to the selected branch when there is one.
func (s *Service) TelegramChannels(ctx context.Context) ([]TelegramChannel, error) {
	return runList(ctx, s, telegramOp, s.branchQuery())
}

func (s *Service) CreateTelegramChannel(ctx context.Context, in TelegramChannelInput) (TelegramChannel, error) {
	p := map[string]any{
		"name":    in.Name,
		"chat_id": strings.TrimSpace(in.ChatID),
	}
	putRef(p, "device", in.Device)
	if s.actor.BranchID > 0 {
		p["branch"] = s.actor.BranchID
	}
	m, err := s.create(ctx, "telegram_channel.create", telegramPath, p)
	if err != nil {
		return TelegramChannel{}, err
	}
	return decodeTelegramChannel(m), nil
}

func (s *Service) UpdateTelegramChannel(ctx context.Context, id int, in TelegramChannelPatch) (TelegramChannel, error) {
	p := map[string]any{}
	putStr(p, "name", in.Name)
	putStr(p, "chat_id", in.ChatID)
	putRefPtr(p, "device", in.Device)
	m, err := s.update(ctx, "telegram_channel.update", telegramPath, id, p)
	if err != nil {
		return TelegramChannel{}, err
	}
	return decodeTelegramChannel(m), nil
}

func (s *Service) DeleteTelegramChannel(ctx context.Context, id int) error {
	return s.remove(ctx, "telegram_channel.delete", telegramPath, id)
}
