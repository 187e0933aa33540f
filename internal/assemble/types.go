// Package assemble implements the MTO assembler (C9) behind the
// single-flight coordinator (C5): the deterministic mapping from raw
// upstream/persistent records into a consolidated product-status view.
package assemble

import (
	"time"

	"github.com/shopspring/decimal"
)

// DataSource records which tier satisfied a GetStatus/GetRelatedOrders
// call (spec.md §3).
type DataSource string

const (
	SourceMemory     DataSource = "memory"
	SourcePersistent DataSource = "persistent"
	SourceLive       DataSource = "live"
)

// VariantKey is the unit of aggregation for quantity columns that
// distinguish product variants (spec.md §3/GLOSSARY).
type VariantKey struct {
	MaterialCode string
	AuxPropID    int64
}

// Parent carries MTO-level metadata attached during assembly
// (spec.md §4.9 step 7).
type Parent struct {
	MTO          string
	CustomerName string
	DeliveryDate *time.Time
}

// Child is one assembled line of the consolidated response, scoped to a
// VariantKey. Only the columns relevant to MaterialClass are populated;
// the rest are zero decimal.Decimal values.
type Child struct {
	MaterialCode  string
	AuxPropID     int64
	MaterialClass string
	BOMShortName  string

	RequiredQty decimal.Decimal
	PickedQty   decimal.Decimal
	UnpickedQty decimal.Decimal
	OverPick    bool

	SalesOrderQty      decimal.Decimal
	DeliveredQty       decimal.Decimal
	ProdInstockRealQty decimal.Decimal
	ProdInstockMustQty decimal.Decimal
	PickActualQty      decimal.Decimal
	PurchaseOrderQty   decimal.Decimal
	PurchaseStockInQty decimal.Decimal
}

// Result is the consolidated MTO status view returned by GetStatus
// (spec.md §3 "Cached MTO result").
type Result struct {
	Parent          Parent
	Children        []Child
	QueryTime       time.Time
	DataSource      DataSource
	CacheAgeSeconds *int64
}
