// Package related implements C11, the related-orders aggregator: given an
// MTO, it fans out the seven bill-number-carrying readers, dedups bill
// numbers within each group, and links documents back to their parent
// orders where the upstream provides the link field (spec.md §4.11).
package related

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ashgrove-systems/mto-gateway/internal/assemble"
	"github.com/ashgrove-systems/mto-gateway/internal/gwerrors"
	"github.com/ashgrove-systems/mto-gateway/internal/readers"
)

// Entry is one bill-numbered element of the related-orders response.
type Entry struct {
	BillNo     string `json:"bill_no"`
	Label      string `json:"label"`
	LinkedOrder string `json:"linked_order,omitempty"`
}

// Orders groups the three order-carrying readers.
type Orders struct {
	SalesOrders       []Entry `json:"sales_orders"`
	ProductionOrders  []Entry `json:"production_orders"`
	PurchaseOrders    []Entry `json:"purchase_orders"`
}

// Documents groups the four document-carrying readers.
type Documents struct {
	ProductionReceipts []Entry `json:"production_receipts"`
	PurchaseReceipts   []Entry `json:"purchase_receipts"`
	MaterialPicking    []Entry `json:"material_picking"`
	SalesDeliveries    []Entry `json:"sales_deliveries"`
}

// Result is the full related-orders response (spec.md §4.11).
type Result struct {
	Orders     Orders              `json:"orders"`
	Documents  Documents           `json:"documents"`
	QueryTime  time.Time           `json:"query_time"`
	DataSource assemble.DataSource `json:"data_source"`
}

// Aggregator is C11. Unlike the assembler (C9/C5), related-orders lookups
// are always live: spec.md never asks this component to consult the
// persistent tier, so there is no freshness predicate to resolve here.
type Aggregator struct {
	readers *readers.Readers
}

// New builds an Aggregator over the shared reader registry.
func New(rd *readers.Readers) *Aggregator {
	return &Aggregator{readers: rd}
}

// GetRelatedOrders fans the seven bill-carrying readers out concurrently
// (subcontracting orders are excluded — they carry no bill number that
// participates in this linking scheme) and joins them per spec.md §4.11.
func (a *Aggregator) GetRelatedOrders(ctx context.Context, mto string) (*Result, error) {
	var (
		salesOrders        []readers.SalesOrder
		productionOrders   []readers.ProductionOrder
		purchaseOrders     []readers.PurchaseOrder
		productionReceipts []readers.ProductionReceipt
		purchaseReceipts   []readers.PurchaseReceipt
		materialPicking    []readers.MaterialPicking
		salesDeliveries    []readers.SalesDelivery
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { salesOrders, err = a.readers.SalesOrder.FetchByMTO(gctx, mto); return })
	g.Go(func() (err error) { productionOrders, err = a.readers.ProductionOrder.FetchByMTO(gctx, mto); return })
	g.Go(func() (err error) { purchaseOrders, err = a.readers.PurchaseOrder.FetchByMTO(gctx, mto); return })
	g.Go(func() (err error) { productionReceipts, err = a.readers.ProductionReceipt.FetchByMTO(gctx, mto); return })
	g.Go(func() (err error) { purchaseReceipts, err = a.readers.PurchaseReceipt.FetchByMTO(gctx, mto); return })
	g.Go(func() (err error) { materialPicking, err = a.readers.MaterialPicking.FetchByMTO(gctx, mto); return })
	g.Go(func() (err error) { salesDeliveries, err = a.readers.SalesDelivery.FetchByMTO(gctx, mto); return })

	if err := g.Wait(); err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindUpstreamQueryError, "related-orders fan-out failed", err)
	}

	productionOrderBillNos := dedupProductionOrders(productionOrders)
	purchaseOrderBillNos := dedupPurchaseOrders(purchaseOrders)

	result := &Result{
		Orders: Orders{
			SalesOrders:      dedupSalesOrders(salesOrders),
			ProductionOrders: billNoEntries(productionOrderBillNos, "production_order"),
			PurchaseOrders:   billNoEntries(purchaseOrderBillNos, "purchase_order"),
		},
		Documents: Documents{
			ProductionReceipts: linkProductionReceipts(productionReceipts, productionOrderBillNos),
			PurchaseReceipts:   linkPurchaseReceipts(purchaseReceipts, purchaseOrderBillNos),
			MaterialPicking:    dedupMaterialPicking(materialPicking),
			SalesDeliveries:    dedupSalesDeliveries(salesDeliveries),
		},
		QueryTime:  time.Now().UTC(),
		DataSource: assemble.SourceLive,
	}
	return result, nil
}

func dedupSalesOrders(rows []readers.SalesOrder) []Entry {
	seen := make(map[string]bool, len(rows))
	var out []Entry
	for _, r := range rows {
		if r.BillNo == "" || seen[r.BillNo] {
			continue
		}
		seen[r.BillNo] = true
		out = append(out, Entry{BillNo: r.BillNo, Label: "sales_order"})
	}
	return out
}

// dedupProductionOrders returns the set of distinct production-order bill
// numbers present for this MTO, used both as the orders.production_orders
// entries and as the link target set for production receipts.
func dedupProductionOrders(rows []readers.ProductionOrder) map[string]bool {
	out := make(map[string]bool, len(rows))
	for _, r := range rows {
		if r.BillNo != "" {
			out[r.BillNo] = true
		}
	}
	return out
}

func dedupPurchaseOrders(rows []readers.PurchaseOrder) map[string]bool {
	out := make(map[string]bool, len(rows))
	for _, r := range rows {
		if r.BillNo != "" {
			out[r.BillNo] = true
		}
	}
	return out
}

func billNoEntries(billNos map[string]bool, label string) []Entry {
	var out []Entry
	for bn := range billNos {
		out = append(out, Entry{BillNo: bn, Label: label})
	}
	return out
}

// linkProductionReceipts links each receipt to the production order whose
// bill number equals the receipt's mo_bill_no, when that order is among
// this MTO's known production orders (spec.md §4.11).
func linkProductionReceipts(rows []readers.ProductionReceipt, orderBillNos map[string]bool) []Entry {
	seen := make(map[string]bool, len(rows))
	var out []Entry
	for _, r := range rows {
		if seen[r.MOBillNo] {
			continue
		}
		seen[r.MOBillNo] = true
		e := Entry{BillNo: r.MOBillNo, Label: "production_receipt"}
		if r.MOBillNo != "" && orderBillNos[r.MOBillNo] {
			e.LinkedOrder = r.MOBillNo
		}
		out = append(out, e)
	}
	return out
}

// linkPurchaseReceipts links each receipt to the purchase order referenced
// by its PurchaseBillNo, when present and known for this MTO.
func linkPurchaseReceipts(rows []readers.PurchaseReceipt, orderBillNos map[string]bool) []Entry {
	seen := make(map[string]bool, len(rows))
	var out []Entry
	for _, r := range rows {
		if seen[r.PurchaseBillNo] {
			continue
		}
		seen[r.PurchaseBillNo] = true
		e := Entry{BillNo: r.PurchaseBillNo, Label: "purchase_receipt"}
		if r.PurchaseBillNo != "" && orderBillNos[r.PurchaseBillNo] {
			e.LinkedOrder = r.PurchaseBillNo
		}
		out = append(out, e)
	}
	return out
}

func dedupMaterialPicking(rows []readers.MaterialPicking) []Entry {
	seen := make(map[string]bool, len(rows))
	var out []Entry
	for _, r := range rows {
		if r.PPBOMBillNo == "" || seen[r.PPBOMBillNo] {
			continue
		}
		seen[r.PPBOMBillNo] = true
		out = append(out, Entry{BillNo: r.PPBOMBillNo, Label: "material_picking"})
	}
	return out
}

// dedupSalesDeliveries: the sales-delivery form carries no bill number at
// all (readers.SalesDelivery has no BillNo field), so entries here use a
// synthetic (material_code, aux_prop_id) key instead of a true bill number.
func dedupSalesDeliveries(rows []readers.SalesDelivery) []Entry {
	seen := make(map[string]bool, len(rows))
	var out []Entry
	for _, r := range rows {
		key := fmt.Sprintf("%s/%d", r.MaterialCode, r.AuxPropID)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Entry{BillNo: key, Label: "sales_delivery"})
	}
	return out
}
