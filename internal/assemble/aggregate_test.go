package assemble

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ashgrove-systems/mto-gateway/internal/classify"
	"github.com/ashgrove-systems/mto-gateway/internal/config"
	"github.com/ashgrove-systems/mto-gateway/internal/readers"
)

func testClassifier(t *testing.T) *classify.Classifier {
	t.Helper()
	c, err := classify.New([]config.MaterialClass{
		{ID: classify.ClassFinished, Pattern: `^07\.`},
		{ID: classify.ClassSelfMade, Pattern: `^05\.`},
		{ID: classify.ClassPurchased, Pattern: `^03\.`},
	})
	if err != nil {
		t.Fatalf("classify.New: %v", err)
	}
	return c
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestAssembleChildrenFinishedClassMapsSalesOrderAndProdInstock(t *testing.T) {
	r := records{
		salesOrders: []readers.SalesOrder{
			{MTO: "MTO-1", MaterialCode: "07.0001", Qty: d("100"), CustomerName: "Acme"},
		},
		productionReceipts: []readers.ProductionReceipt{
			{MTO: "MTO-1", MaterialCode: "07.0001", RealQty: d("40")},
		},
	}

	_, children := assembleChildren(r, testClassifier(t))
	if len(children) != 1 {
		t.Fatalf("len(children) = %d, want 1", len(children))
	}
	c := children[0]
	if c.MaterialClass != classify.ClassFinished {
		t.Fatalf("MaterialClass = %q, want finished", c.MaterialClass)
	}
	if !c.RequiredQty.Equal(d("100")) || !c.PickedQty.Equal(d("40")) {
		t.Errorf("RequiredQty/PickedQty = %v/%v, want 100/40", c.RequiredQty, c.PickedQty)
	}
	if !c.UnpickedQty.Equal(d("60")) || c.OverPick {
		t.Errorf("UnpickedQty/OverPick = %v/%v, want 60/false", c.UnpickedQty, c.OverPick)
	}
}

func TestAssembleChildrenDetectsOverPick(t *testing.T) {
	r := records{
		salesOrders: []readers.SalesOrder{
			{MTO: "MTO-1", MaterialCode: "07.0001", Qty: d("10")},
		},
		productionReceipts: []readers.ProductionReceipt{
			{MTO: "MTO-1", MaterialCode: "07.0001", RealQty: d("15")},
		},
	}

	_, children := assembleChildren(r, testClassifier(t))
	if len(children) != 1 || !children[0].OverPick {
		t.Fatalf("children = %+v, want one over-picked child", children)
	}
}

func TestAssembleChildrenPurchasedOnlyStandardReceiptsCount(t *testing.T) {
	r := records{
		purchaseOrders: []readers.PurchaseOrder{
			{MTO: "MTO-1", MaterialCode: "03.0001", OrderQty: d("50"), StockInQty: d("20")},
		},
		purchaseReceipts: []readers.PurchaseReceipt{
			{MTO: "MTO-1", MaterialCode: "03.0001", RealQty: d("999"), BillType: readers.BillTypeSubcontract},
		},
	}

	_, children := assembleChildren(r, testClassifier(t))
	if len(children) != 1 {
		t.Fatalf("len(children) = %d, want 1", len(children))
	}
	c := children[0]
	if !c.PurchaseOrderQty.Equal(d("50")) || !c.PurchaseStockInQty.Equal(d("20")) {
		t.Errorf("subcontract receipt leaked into purchased aggregation: %+v", c)
	}
}

func TestRecordsEmptyIsIndependentOfClassification(t *testing.T) {
	if !(records{}).empty() {
		t.Fatal("records{}.empty() = false, want true")
	}
	r := records{
		purchaseOrders: []readers.PurchaseOrder{
			{MTO: "MTO-1", MaterialCode: "99.0000", OrderQty: d("1")},
		},
	}
	if r.empty() {
		t.Fatal("records with a raw row for an unclassified material prefix reported empty")
	}
}

func TestAssembleChildrenSkipsUnclassifiedMaterials(t *testing.T) {
	r := records{
		purchaseOrders: []readers.PurchaseOrder{
			{MTO: "MTO-1", MaterialCode: "99.0000", OrderQty: d("1")},
		},
	}

	_, children := assembleChildren(r, testClassifier(t))
	if len(children) != 0 {
		t.Fatalf("children = %+v, want none for an unclassified material prefix", children)
	}
}

func TestAssembleChildrenSortsByMaterialCodeThenAuxPropID(t *testing.T) {
	r := records{
		salesOrders: []readers.SalesOrder{
			{MTO: "MTO-1", MaterialCode: "07.0002", AuxPropID: 0, Qty: d("1")},
			{MTO: "MTO-1", MaterialCode: "07.0001", AuxPropID: 5, Qty: d("1")},
			{MTO: "MTO-1", MaterialCode: "07.0001", AuxPropID: 1, Qty: d("1")},
		},
	}

	_, children := assembleChildren(r, testClassifier(t))
	if len(children) != 3 {
		t.Fatalf("len(children) = %d, want 3", len(children))
	}
	if children[0].MaterialCode != "07.0001" || children[0].AuxPropID != 1 {
		t.Errorf("children[0] = %+v, want 07.0001/1 first", children[0])
	}
	if children[1].MaterialCode != "07.0001" || children[1].AuxPropID != 5 {
		t.Errorf("children[1] = %+v, want 07.0001/5 second", children[1])
	}
	if children[2].MaterialCode != "07.0002" {
		t.Errorf("children[2] = %+v, want 07.0002 last", children[2])
	}
}

func TestAssembleChildrenAggregatesSalesDeliveryByVariantKey(t *testing.T) {
	r := records{
		salesDelivery: []readers.SalesDelivery{
			{MTO: "MTO-1", MaterialCode: "07.04.231", AuxPropID: 12345, RealQty: d("40")},
			{MTO: "MTO-1", MaterialCode: "07.04.231", AuxPropID: 12345, RealQty: d("60")},
			{MTO: "MTO-1", MaterialCode: "07.04.231", AuxPropID: 99999, RealQty: d("25")},
		},
	}

	_, children := assembleChildren(r, testClassifier(t))
	if len(children) != 2 {
		t.Fatalf("len(children) = %d, want 2 (one per variant key)", len(children))
	}
	c0, c1 := children[0], children[1]
	if c0.MaterialCode != "07.04.231" || c0.AuxPropID != 12345 || !c0.DeliveredQty.Equal(d("100")) {
		t.Errorf("children[0] = %+v, want 07.04.231/12345 delivered=100", c0)
	}
	if c1.MaterialCode != "07.04.231" || c1.AuxPropID != 99999 || !c1.DeliveredQty.Equal(d("25")) {
		t.Errorf("children[1] = %+v, want 07.04.231/99999 delivered=25", c1)
	}
}

func TestAssembleChildrenParentUsesEarliestDeliveryDateAndFirstCustomerName(t *testing.T) {
	later := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	r := records{
		salesOrders: []readers.SalesOrder{
			{MTO: "MTO-1", MaterialCode: "07.0001", Qty: d("1"), DeliveryDate: later, CustomerName: ""},
			{MTO: "MTO-1", MaterialCode: "07.0001", Qty: d("1"), DeliveryDate: earlier, CustomerName: "Acme"},
		},
	}

	parent, _ := assembleChildren(r, testClassifier(t))
	if parent.MTO != "MTO-1" {
		t.Errorf("MTO = %q, want MTO-1", parent.MTO)
	}
	if parent.DeliveryDate == nil || !parent.DeliveryDate.Equal(earlier) {
		t.Errorf("DeliveryDate = %v, want earliest %v", parent.DeliveryDate, earlier)
	}
	if parent.CustomerName != "Acme" {
		t.Errorf("CustomerName = %q, want first non-empty Acme", parent.CustomerName)
	}
}
