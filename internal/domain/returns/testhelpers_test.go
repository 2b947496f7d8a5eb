package returns

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testParams(t ReturnType, items ...ItemSpec) NewReturnParams {
	if len(items) == 0 {
		items = []ItemSpec{testItem(2, 10)}
	}
	return NewReturnParams{
		SellerID:       uuid.New(),
		DocumentNumber: NextDocumentNumber(t, time.Now(), "").String(),
		Location:       Location{Type: LocationTypeShop, ID: uuid.New(), Name: "Main St"},
		Items:          items,
		CreatedBy:      uuid.New(),
	}
}

func testItem(qty, price int64) ItemSpec {
	return ItemSpec{
		BatchID:       uuid.New(),
		ProductID:     uuid.New(),
		Quantity:      decimal.NewFromInt(qty),
		PurchasePrice: decimal.NewFromInt(price),
	}
}

func newTestCustomerReturn(t *testing.T, items ...ItemSpec) *Return {
	r, err := NewCustomerReturn(testParams(ReturnTypeCustomer, items...), nil, CustomerReasonQualityIssue)
	require.NoError(t, err)
	return r
}

func newTestSupplierReturn(t *testing.T, items ...ItemSpec) *Return {
	r, err := NewSupplierReturn(testParams(ReturnTypeSupplier, items...), SupplierRef{Name: "Acme Dairy"}, nil, SupplierReasonDamaged)
	require.NoError(t, err)
	return r
}

func decide(t *testing.T, r *Return, index int, decision ItemDecision) {
	in := Inspection{Index: index, Condition: ConditionGood, Decision: decision}
	if decision == DecisionReturnWithDiscount {
		d := decimal.NewFromInt(30)
		in.DiscountPercent = &d
	}
	require.NoError(t, r.InspectItem(in, nil))
}
