package returns

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReturnStatus_CanTransitionTo(t *testing.T) {
	all := []ReturnStatus{
		ReturnStatusPendingInspection, ReturnStatusInspected, ReturnStatusCompleted,
		ReturnStatusRejected, ReturnStatusCancelled,
	}
	allowed := map[ReturnStatus][]ReturnStatus{
		ReturnStatusPendingInspection: {ReturnStatusInspected, ReturnStatusCancelled, ReturnStatusRejected},
		ReturnStatusInspected:         {ReturnStatusCompleted, ReturnStatusCancelled, ReturnStatusRejected},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	for _, s := range []ReturnStatus{ReturnStatusCompleted, ReturnStatusRejected, ReturnStatusCancelled} {
		assert.True(t, s.IsTerminal(), s)
	}
}

func TestReturnType_Code(t *testing.T) {
	for _, tc := range []struct {
		t    ReturnType
		code string
	}{
		{ReturnTypeCustomer, "RTC"},
		{ReturnTypeDelivery, "RTD"},
		{ReturnTypeSupplier, "RTS"},
	} {
		assert.Equal(t, tc.code, tc.t.Code())
		back, ok := ReturnTypeFromCode(tc.code)
		assert.True(t, ok)
		assert.Equal(t, tc.t, back)
	}
	_, ok := ReturnTypeFromCode("XYZ")
	assert.False(t, ok)
}

func TestParseReason(t *testing.T) {
	r, err := ParseReason(ReturnTypeDelivery, "DAMAGED_IN_TRANSIT")
	assert.NoError(t, err)
	assert.Equal(t, DeliveryReasonDamagedInTransit, r)

	_, err = ParseReason(ReturnTypeCustomer, "DAMAGED_IN_TRANSIT")
	assert.Error(t, err)

	_, err = ParseReason("OTHER", "EXPIRED")
	assert.Error(t, err)
}
