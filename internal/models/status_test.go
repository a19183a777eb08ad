package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionOrderForwardOnly(t *testing.T) {
	assert.True(t, CanTransitionOrder(OrderStatusPending, OrderStatusConfirm))
	assert.True(t, CanTransitionOrder(OrderStatusConfirm, OrderStatusProcessing))
	assert.True(t, CanTransitionOrder(OrderStatusProcessing, OrderStatusShipped))
	assert.True(t, CanTransitionOrder(OrderStatusShipped, OrderStatusDelivered))

	// jumps forward are allowed
	assert.True(t, CanTransitionOrder(OrderStatusPending, OrderStatusShipped))
	assert.True(t, CanTransitionOrder(OrderStatusConfirm, OrderStatusDelivered))

	// moving backward never is
	assert.False(t, CanTransitionOrder(OrderStatusDelivered, OrderStatusPending))
	assert.False(t, CanTransitionOrder(OrderStatusShipped, OrderStatusProcessing))
	assert.False(t, CanTransitionOrder(OrderStatusConfirm, OrderStatusPending))

	// no self transitions
	assert.False(t, CanTransitionOrder(OrderStatusProcessing, OrderStatusProcessing))
}

func TestCanTransitionOrderCancellation(t *testing.T) {
	assert.True(t, CanTransitionOrder(OrderStatusPending, OrderStatusCancelled))
	assert.True(t, CanTransitionOrder(OrderStatusConfirm, OrderStatusCancelled))
	assert.True(t, CanTransitionOrder(OrderStatusProcessing, OrderStatusCancelled))

	// once shipped or delivered an order can no longer be cancelled
	assert.False(t, CanTransitionOrder(OrderStatusShipped, OrderStatusCancelled))
	assert.False(t, CanTransitionOrder(OrderStatusDelivered, OrderStatusCancelled))

	// cancelled and delivered are terminal
	assert.False(t, CanTransitionOrder(OrderStatusCancelled, OrderStatusPending))
	assert.False(t, CanTransitionOrder(OrderStatusCancelled, OrderStatusShipped))
	assert.False(t, CanTransitionOrder(OrderStatusDelivered, OrderStatusCancelled))
}

func TestIsValidOrderStatus(t *testing.T) {
	for _, s := range []string{
		OrderStatusPending, OrderStatusConfirm, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled,
	} {
		assert.True(t, IsValidOrderStatus(s), s)
	}
	assert.False(t, IsValidOrderStatus("returned"))
	assert.False(t, IsValidOrderStatus(""))
}

func TestCanTransitionReturnMainChain(t *testing.T) {
	chain := []string{
		ReturnStatusPending, ReturnStatusApproved, ReturnStatusPickupScheduled,
		ReturnStatusPicked, ReturnStatusRefundInitiated, ReturnStatusRefundCompleted,
		ReturnStatusClosed,
	}
	for i := 0; i < len(chain)-1; i++ {
		assert.True(t, CanTransitionReturn(chain[i], chain[i+1]),
			"%s -> %s", chain[i], chain[i+1])
	}
	for i := 1; i < len(chain); i++ {
		assert.False(t, CanTransitionReturn(chain[i], chain[i-1]),
			"%s -> %s must be rejected", chain[i], chain[i-1])
	}
}

func TestCanTransitionReturnSameStatus(t *testing.T) {
	// amending admin fields without moving the state
	assert.True(t, CanTransitionReturn(ReturnStatusPickupScheduled, ReturnStatusPickupScheduled))
	assert.True(t, CanTransitionReturn(ReturnStatusPending, ReturnStatusPending))

	// terminal states stay frozen
	assert.False(t, CanTransitionReturn(ReturnStatusClosed, ReturnStatusClosed))
	assert.False(t, CanTransitionReturn(ReturnStatusRejected, ReturnStatusRejected))
}

func TestCanTransitionReturnRejection(t *testing.T) {
	assert.True(t, CanTransitionReturn(ReturnStatusPending, ReturnStatusRejected))
	assert.False(t, CanTransitionReturn(ReturnStatusApproved, ReturnStatusRejected))
	assert.False(t, CanTransitionReturn(ReturnStatusPickupScheduled, ReturnStatusRejected))

	// rejected is terminal
	assert.False(t, CanTransitionReturn(ReturnStatusRejected, ReturnStatusPending))
	assert.False(t, CanTransitionReturn(ReturnStatusRejected, ReturnStatusClosed))
}

func TestCanTransitionReturnAdminClose(t *testing.T) {
	for _, from := range []string{
		ReturnStatusPending, ReturnStatusApproved, ReturnStatusPickupScheduled,
		ReturnStatusPicked, ReturnStatusRefundInitiated, ReturnStatusRefundCompleted,
	} {
		assert.True(t, CanTransitionReturn(from, ReturnStatusClosed), from)
	}
	assert.False(t, CanTransitionReturn(ReturnStatusClosed, ReturnStatusPicked))
}

func TestGenerateOrderCode(t *testing.T) {
	code := GenerateOrderCode()
	assert.True(t, strings.HasPrefix(code, OrderCodePrefix))
	assert.Len(t, code, len(OrderCodePrefix)+orderCodeDigits)
	for _, r := range code[len(OrderCodePrefix):] {
		assert.True(t, r >= '0' && r <= '9', "suffix must be numeric: %s", code)
	}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		c := GenerateOrderCode()
		assert.False(t, seen[c], "duplicate code generated: %s", c)
		seen[c] = true
	}
}
