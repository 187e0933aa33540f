package readers

import (
	"context"
	"fmt"
	"time"

	"github.com/ashgrove-systems/mto-gateway/internal/upstream"
)

// Form IDs as understood by the upstream RPC (spec.md §4.2).
const (
	FormProductionOrder      = "production-order"
	FormProductionBOM        = "production-bom"
	FormProductionReceipt    = "production-receipt"
	FormPurchaseOrder        = "purchase-order"
	FormPurchaseReceipt      = "purchase-receipt"
	FormSubcontractingOrder  = "subcontract-request"
	FormMaterialPicking      = "picking"
	FormSalesDelivery        = "sales-delivery"
	FormSalesOrder           = "sales-order"
)

// Reader is an immutable, declarative binding of one upstream form to a
// typed record via decode. The MTO field name differs across forms in
// mixed casing and must be preserved exactly when composing filters - this
// is an upstream quirk, not a bug (spec.md §4.2).
type Reader[T any] struct {
	formID    string
	mtoField  string
	dateField string
	fields    []string
	decode    func(upstream.Record) (T, error)
	uq        upstream.Query
}

func newReader[T any](uq upstream.Query, formID, mtoField, dateField string, fields []string, decode func(upstream.Record) (T, error)) *Reader[T] {
	return &Reader[T]{formID: formID, mtoField: mtoField, dateField: dateField, fields: fields, decode: decode, uq: uq}
}

func (r *Reader[T]) FormID() string { return r.formID }

func (r *Reader[T]) fetch(ctx context.Context, filter string) ([]T, error) {
	records, err := r.uq.Query(ctx, r.formID, r.fields, filter, 0, 0)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(records))
	for _, rec := range records {
		v, derr := r.decode(rec)
		if derr != nil {
			return nil, decodeErr(r.formID, derr)
		}
		out = append(out, v)
	}
	return out, nil
}

// FetchByMTO returns every record for the given MTO, exactly as spec.md
// §4.2 describes (fetch_by_mto(mto)).
func (r *Reader[T]) FetchByMTO(ctx context.Context, mto string) ([]T, error) {
	filter := fmt.Sprintf("%s = '%s'", r.mtoField, mto)
	return r.fetch(ctx, filter)
}

// FetchByDateRange returns every record whose date field falls in
// [start, end], optionally conjoined with extraFilter (fetch_by_date_range).
func (r *Reader[T]) FetchByDateRange(ctx context.Context, start, end time.Time, extraFilter string) ([]T, error) {
	filter := fmt.Sprintf("%s >= '%s' AND %s <= '%s'",
		r.dateField, start.Format("2006-01-02"), r.dateField, end.Format("2006-01-02"))
	if extraFilter != "" {
		filter = filter + " AND " + extraFilter
	}
	return r.fetch(ctx, filter)
}

// FetchByBillField returns every record whose named bill field equals bill
// (fetch_by_bill_no), used by the related-orders aggregator (C11).
func (r *Reader[T]) FetchByBillField(ctx context.Context, fieldName, bill string) ([]T, error) {
	filter := fmt.Sprintf("%s = '%s'", fieldName, bill)
	return r.fetch(ctx, filter)
}

// Readers is the flat registry of all nine form readers, resolved once at
// startup against a single upstream.Query capability.
type Readers struct {
	ProductionOrder      *Reader[ProductionOrder]
	ProductionBOM        *Reader[ProductionBOM]
	ProductionReceipt    *Reader[ProductionReceipt]
	PurchaseOrder        *Reader[PurchaseOrder]
	PurchaseReceipt      *Reader[PurchaseReceipt]
	SubcontractingOrder  *Reader[SubcontractingOrder]
	MaterialPicking      *Reader[MaterialPicking]
	SalesDelivery        *Reader[SalesDelivery]
	SalesOrder           *Reader[SalesOrder]
}

// New builds the registry, binding each of the nine forms to its decode
// function and field set.
func New(uq upstream.Query) *Readers {
	return &Readers{
		ProductionOrder: newReader(uq, FormProductionOrder, "mto_a", "create_date",
			[]string{"bill_no", "mto_a", "workshop", "material_code", "material_name", "specification", "qty", "status", "create_date"},
			decodeProductionOrder),

		ProductionBOM: newReader(uq, FormProductionBOM, "mto_b", "create_date",
			[]string{"mo_bill_no", "mto_b", "material_code", "aux_prop_id", "material_type", "need_qty", "picked_qty", "no_picked_qty"},
			decodeProductionBOM),

		ProductionReceipt: newReader(uq, FormProductionReceipt, "mto_c", "receipt_date",
			[]string{"mto_c", "material_code", "aux_prop_id", "real_qty", "must_qty", "mo_bill_no"},
			decodeProductionReceipt),

		PurchaseOrder: newReader(uq, FormPurchaseOrder, "mto_c", "order_date",
			[]string{"bill_no", "mto_c", "material_code", "aux_prop_id", "order_qty", "stock_in_qty", "remain_stock_in_qty"},
			decodePurchaseOrder),

		PurchaseReceipt: newReader(uq, FormPurchaseReceipt, "mto_c", "receipt_date",
			[]string{"mto_c", "material_code", "real_qty", "must_qty", "bill_type", "purchase_bill_no"},
			decodePurchaseReceipt),

		SubcontractingOrder: newReader(uq, FormSubcontractingOrder, "mto_c", "order_date",
			[]string{"bill_no", "mto_c", "material_code", "order_qty", "stock_in_qty", "no_stock_in_qty"},
			decodeSubcontractingOrder),

		MaterialPicking: newReader(uq, FormMaterialPicking, "mto_b", "pick_date",
			[]string{"mto_b", "material_code", "app_qty", "actual_qty", "ppbom_bill_no"},
			decodeMaterialPicking),

		SalesDelivery: newReader(uq, FormSalesDelivery, "mto_b", "delivery_date",
			[]string{"mto_b", "material_code", "aux_prop_id", "real_qty", "must_qty"},
			decodeSalesDelivery),

		SalesOrder: newReader(uq, FormSalesOrder, "mto_c", "create_date",
			[]string{"bill_no", "mto_c", "material_code", "customer_name", "delivery_date", "qty", "aux_prop_id"},
			decodeSalesOrder),
	}
}

// FormIDs returns the ordered list of all nine form IDs.
func (r *Readers) FormIDs() []string {
	return []string{
		FormProductionOrder, FormProductionBOM, FormProductionReceipt,
		FormPurchaseOrder, FormPurchaseReceipt, FormSubcontractingOrder,
		FormMaterialPicking, FormSalesDelivery, FormSalesOrder,
	}
}
