package assemble

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ashgrove-systems/mto-gateway/internal/classify"
	"github.com/ashgrove-systems/mto-gateway/internal/readers"
)

// records bundles the fan-out results for one MTO across all nine
// readers, regardless of whether they came from the persistent tier or a
// live upstream fan-out (spec.md §4.9 step 2).
type records struct {
	productionOrders     []readers.ProductionOrder
	productionBOM        []readers.ProductionBOM
	productionReceipts   []readers.ProductionReceipt
	purchaseOrders       []readers.PurchaseOrder
	purchaseReceipts     []readers.PurchaseReceipt
	subcontractingOrders []readers.SubcontractingOrder
	materialPicking      []readers.MaterialPicking
	salesDelivery        []readers.SalesDelivery
	salesOrders          []readers.SalesOrder
}

func vk(materialCode string, auxPropID int64) VariantKey {
	return VariantKey{MaterialCode: materialCode, AuxPropID: auxPropID}
}

// empty reports whether every reader returned zero raw rows for the MTO.
// This is the sole not_found criterion (spec.md §6/§7: "every reader yields
// empty for the MTO") — it is independent of classification, so an MTO whose
// only rows carry an unclassified material-code prefix still reports found,
// just with zero children (spec.md §4.8's non-goal exclusion, not an error).
func (r records) empty() bool {
	return len(r.productionOrders) == 0 &&
		len(r.productionBOM) == 0 &&
		len(r.productionReceipts) == 0 &&
		len(r.purchaseOrders) == 0 &&
		len(r.purchaseReceipts) == 0 &&
		len(r.subcontractingOrders) == 0 &&
		len(r.materialPicking) == 0 &&
		len(r.salesDelivery) == 0 &&
		len(r.salesOrders) == 0
}

// assembleChildren runs spec.md §4.9 steps 3-8 (minus the memory-cache
// write, which the caller performs) over a fully-populated records bundle.
func assembleChildren(r records, classifier *classify.Classifier) (Parent, []Child) {
	delivered := map[VariantKey]decimal.Decimal{}
	received := map[VariantKey]decimal.Decimal{}
	mustReceive := map[VariantKey]decimal.Decimal{}
	purchaseReceived := map[VariantKey]decimal.Decimal{}

	for _, d := range r.salesDelivery {
		k := vk(d.MaterialCode, d.AuxPropID)
		delivered[k] = delivered[k].Add(d.RealQty)
	}
	for _, pr := range r.productionReceipts {
		k := vk(pr.MaterialCode, pr.AuxPropID)
		received[k] = received[k].Add(pr.RealQty)
		mustReceive[k] = mustReceive[k].Add(pr.MustQty)
	}
	for _, pr := range r.purchaseReceipts {
		// OQ-3: only standard receipts enter purchased-class aggregation;
		// subcontract receipts never count toward purchase_received.
		if pr.BillType != readers.BillTypeStandard {
			continue
		}
		k := vk(pr.MaterialCode, 0)
		purchaseReceived[k] = purchaseReceived[k].Add(pr.RealQty)
	}

	pickApp := map[string]decimal.Decimal{}
	pickActual := map[string]decimal.Decimal{}
	for _, p := range r.materialPicking {
		pickApp[p.MaterialCode] = pickApp[p.MaterialCode].Add(p.AppQty)
		pickActual[p.MaterialCode] = pickActual[p.MaterialCode].Add(p.ActualQty)
	}

	salesOrderQty := map[VariantKey]decimal.Decimal{}
	for _, so := range r.salesOrders {
		k := vk(so.MaterialCode, so.AuxPropID)
		salesOrderQty[k] = salesOrderQty[k].Add(so.Qty)
	}

	purchaseOrderByKey := map[VariantKey]readers.PurchaseOrder{}
	for _, po := range r.purchaseOrders {
		k := vk(po.MaterialCode, po.AuxPropID)
		existing, ok := purchaseOrderByKey[k]
		if !ok {
			purchaseOrderByKey[k] = po
			continue
		}
		existing.OrderQty = existing.OrderQty.Add(po.OrderQty)
		existing.StockInQty = existing.StockInQty.Add(po.StockInQty)
		purchaseOrderByKey[k] = existing
	}

	bomByKey := map[VariantKey]readers.ProductionBOM{}
	for _, bom := range r.productionBOM {
		k := vk(bom.MaterialCode, bom.AuxPropID)
		existing, ok := bomByKey[k]
		if !ok {
			bomByKey[k] = bom
			continue
		}
		existing.NeedQty = existing.NeedQty.Add(bom.NeedQty)
		existing.PickedQty = existing.PickedQty.Add(bom.PickedQty)
		bomByKey[k] = existing
	}

	// Step 5: union of candidate variant keys.
	candidates := map[VariantKey]struct{}{}
	for k := range bomByKey {
		candidates[k] = struct{}{}
	}
	for k := range salesOrderQty {
		candidates[k] = struct{}{}
	}
	for k := range purchaseOrderByKey {
		candidates[k] = struct{}{}
	}
	for _, p := range r.materialPicking {
		candidates[vk(p.MaterialCode, 0)] = struct{}{}
	}
	for k := range delivered {
		candidates[k] = struct{}{}
	}

	bomShortNameByMaterial := map[string]string{}
	for _, po := range r.productionOrders {
		if po.MaterialName != "" {
			bomShortNameByMaterial[po.MaterialCode] = po.MaterialName
		}
	}

	var children []Child
	for k := range candidates {
		class, ok := classifier.Classify(k.MaterialCode)
		if !ok {
			// Non-goal exclusion, not an error (spec.md §4.8).
			continue
		}

		var c Child
		c.MaterialCode = k.MaterialCode
		c.AuxPropID = k.AuxPropID
		c.MaterialClass = class.ID

		switch class.ID {
		case classify.ClassFinished:
			c.SalesOrderQty = salesOrderQty[k]
			c.DeliveredQty = delivered[k]
			c.ProdInstockRealQty = received[k]
			c.PickActualQty = pickActual[k.MaterialCode]
			c.RequiredQty = c.SalesOrderQty
			c.PickedQty = c.ProdInstockRealQty
			c.BOMShortName = bomShortNameByMaterial[k.MaterialCode]

		case classify.ClassSelfMade:
			required := mustReceive[k]
			if required.IsZero() {
				required = pickApp[k.MaterialCode]
			}
			c.RequiredQty = required
			c.ProdInstockMustQty = mustReceive[k]
			c.ProdInstockRealQty = received[k]
			c.PickActualQty = pickActual[k.MaterialCode]
			c.PickedQty = c.ProdInstockRealQty

		case classify.ClassPurchased:
			po, hasPO := purchaseOrderByKey[k]
			bom, hasBOM := bomByKey[k]
			switch {
			case hasPO && !po.OrderQty.IsZero():
				c.PurchaseOrderQty = po.OrderQty
				c.PurchaseStockInQty = po.StockInQty
				c.RequiredQty = po.OrderQty
				c.PickedQty = po.StockInQty
			case hasBOM && !bom.NeedQty.IsZero():
				c.PurchaseOrderQty = bom.NeedQty
				c.PurchaseStockInQty = bom.PickedQty
				c.RequiredQty = bom.NeedQty
				c.PickedQty = bom.PickedQty
			default:
				c.PurchaseOrderQty = pickApp[k.MaterialCode]
				c.PurchaseStockInQty = pickActual[k.MaterialCode]
				c.RequiredQty = pickApp[k.MaterialCode]
				c.PickedQty = pickActual[k.MaterialCode]
			}
			c.PickActualQty = pickActual[k.MaterialCode]

		default:
			continue
		}

		c.UnpickedQty = c.RequiredQty.Sub(c.PickedQty)
		c.OverPick = c.UnpickedQty.IsNegative()

		children = append(children, c)
	}

	sort.Slice(children, func(i, j int) bool {
		if children[i].MaterialCode != children[j].MaterialCode {
			return children[i].MaterialCode < children[j].MaterialCode
		}
		return children[i].AuxPropID < children[j].AuxPropID
	})

	parent := Parent{}
	if len(r.salesOrders) > 0 {
		parent.MTO = r.salesOrders[0].MTO
		var earliest *time.Time
		for _, so := range r.salesOrders {
			d := so.DeliveryDate
			if earliest == nil || d.Before(*earliest) {
				earliest = &d
			}
			if parent.CustomerName == "" {
				parent.CustomerName = so.CustomerName
			}
		}
		parent.DeliveryDate = earliest
	}

	return parent, children
}
