package crm

import (
	"context"
	"fmt"
)

const (
	plansPath         = "/subscription/plans/"
	subscriptionsPath = "/subscription/subscriptions/"
)

func decodePlan(m map[string]any) Plan {
	return Plan{
		ID:             integer(m, "id"),
		Title:          str(m, "title", "name"),
		PlanType:       str(m, "plan_type"),
		BillingCycle:   str(m, "billing_cycle"),
		DurationMonths: integer(m, "duration_months"),
		Price:          num(m, "price"),
		Description:    str(m, "description"),
	}
}

func decodeSubscription(m map[string]any) Subscription {
	plan := 0
	if p := ref(m, "plan_id", "plan"); p != nil {
		plan = *p
	}
	return Subscription{
		ID:        integer(m, "id"),
		PlanID:    plan,
		StartDate: str(m, "start_date"),
		EndDate:   str(m, "end_date"),
		IsActive:  boolean(m, "is_active", "active"),
	}
}

var plansOp = listOp[Plan]{
	name:     "plans.list",
	path:     plansPath,
	policy:   Fallback,
	decode:   decodePlan,
	fixtures: fixturePlans,
}

var subscriptionsOp = listOp[Subscription]{
	name:     "subscriptions.list",
	path:     subscriptionsPath,
	policy:   Fallback,
	decode:   decodeSubscription,
	fixtures: fixtureSubscriptions,
}

// Plans are global; no owner filter is sent.
func (s *Service) Plans(ctx context.Context) ([]Plan, error) {
	return runList(ctx, s, plansOp, nil)
}

func (s *Service) Subscriptions(ctx context.Context) ([]Subscription, error) {
	return runList(ctx, s, subscriptionsOp, s.ownerQuery())
}

// Subscribe creates a subscription against planID.
func (s *Service) Subscribe(ctx context.Context, planID int) (Subscription, error) {
	if planID <= 0 {
		return Subscription{}, fmt.Errorf("%w: plan id must be positive", ErrInvalidInput)
	}
	m, err := s.create(ctx, "subscription.create", subscriptionsPath, map[string]any{"plan_id": planID})
	if err != nil {
		return Subscription{}, err
	}
	return decodeSubscription(m), nil
}

func (s *Service) CancelSubscription(ctx context.Context, id int) error {
	return s.remove(ctx, "subscription.delete", subscriptionsPath, id)
}
