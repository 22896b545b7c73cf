package service

import "course_hub_backend/internal/model"

// EntitlementGate decides access from the purchases carried by the actor.
// Admins get no implicit access.
type EntitlementGate struct{}

func NewEntitlementGate() *EntitlementGate {
	return &EntitlementGate{}
}

func (g *EntitlementGate) CanAccessFullContent(actor *model.Actor, courseID string) bool {
	return hasPurchased(actor, courseID)
}

func (g *EntitlementGate) CanReview(actor *model.Actor, courseID string) bool {
	return hasPurchased(actor, courseID)
}

func hasPurchased(actor *model.Actor, courseID string) bool {
	if actor == nil {
		return false
	}
	for _, id := range actor.PurchasedCourseIDs {
		if id == courseID {
			return true
		}
	}
	return false
}
