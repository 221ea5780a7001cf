package workflow

import (
	"testing"

	"github.com/freshfork/supply_backend/models"
)

// NOTE: These tests are intentionally DB-free. They validate the transition
// table itself; the transactional behavior around it (row locks, stock
// restore) is covered by the gated regression tests in models.

func TestCanTransition_ForwardPath(t *testing.T) {
	path := []models.OrderStatus{
		models.OrderStatusPending,
		models.OrderStatusApproved,
		models.OrderStatusProcessing,
		models.OrderStatusPacked,
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
		models.OrderStatusReturned,
	}
	for i := 0; i < len(path)-1; i++ {
		if !CanTransition(path[i], path[i+1]) {
			t.Errorf("expected %s -> %s to be allowed", path[i], path[i+1])
		}
	}
}

func TestCanTransition_CancelWindow(t *testing.T) {
	cancellable := []models.OrderStatus{
		models.OrderStatusPending,
		models.OrderStatusApproved,
		models.OrderStatusProcessing,
		models.OrderStatusPacked,
		models.OrderStatusShipped,
	}
	for _, from := range cancellable {
		if !CanTransition(from, models.OrderStatusCancelled) {
			t.Errorf("expected %s to be cancellable", from)
		}
	}

	notCancellable := []models.OrderStatus{
		models.OrderStatusDelivered,
		models.OrderStatusCancelled,
		models.OrderStatusRejected,
		models.OrderStatusReturned,
	}
	for _, from := range notCancellable {
		if CanTransition(from, models.OrderStatusCancelled) {
			t.Errorf("expected %s to not be cancellable", from)
		}
	}
}

func TestCanTransition_TerminalStatesHaveNoExits(t *testing.T) {
	all := []models.OrderStatus{
		models.OrderStatusPending,
		models.OrderStatusApproved,
		models.OrderStatusProcessing,
		models.OrderStatusPacked,
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
		models.OrderStatusCancelled,
		models.OrderStatusRejected,
		models.OrderStatusReturned,
	}
	terminal := []models.OrderStatus{
		models.OrderStatusCancelled,
		models.OrderStatusRejected,
		models.OrderStatusReturned,
	}
	for _, from := range terminal {
		for _, to := range all {
			if CanTransition(from, to) {
				t.Errorf("terminal status %s must not transition to %s", from, to)
			}
		}
	}
}

func TestCanTransition_NoSkippingFulfilmentSteps(t *testing.T) {
	cases := []struct {
		from, to models.OrderStatus
	}{
		{models.OrderStatusPending, models.OrderStatusPacked},
		{models.OrderStatusPending, models.OrderStatusShipped},
		{models.OrderStatusPending, models.OrderStatusDelivered},
		{models.OrderStatusApproved, models.OrderStatusShipped},
		{models.OrderStatusProcessing, models.OrderStatusDelivered},
		{models.OrderStatusPacked, models.OrderStatusDelivered},
		{models.OrderStatusShipped, models.OrderStatusPending},
		{models.OrderStatusDelivered, models.OrderStatusShipped},
	}
	for _, tc := range cases {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestCanTransition_RejectOnlyBeforeProcessing(t *testing.T) {
	if !CanTransition(models.OrderStatusPending, models.OrderStatusRejected) {
		t.Error("pending orders must be rejectable")
	}
	if !CanTransition(models.OrderStatusApproved, models.OrderStatusRejected) {
		t.Error("approved orders must be rejectable")
	}
	for _, from := range []models.OrderStatus{
		models.OrderStatusProcessing,
		models.OrderStatusPacked,
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
	} {
		if CanTransition(from, models.OrderStatusRejected) {
			t.Errorf("%s orders must not be rejectable", from)
		}
	}
}

func TestIsTerminalMatchesTransitionTable(t *testing.T) {
	all := []models.OrderStatus{
		models.OrderStatusPending,
		models.OrderStatusApproved,
		models.OrderStatusProcessing,
		models.OrderStatusPacked,
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
		models.OrderStatusCancelled,
		models.OrderStatusRejected,
		models.OrderStatusReturned,
	}
	for _, status := range all {
		hasExit := len(statusTransitions[status]) > 0
		if status.IsTerminal() == hasExit {
			t.Errorf("IsTerminal(%s)=%v disagrees with transition table", status, status.IsTerminal())
		}
	}
}
