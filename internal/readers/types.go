// Package readers declares the nine upstream form readers: a flat,
// immutable table mapping each logical form to a typed record and the
// filter fields needed to fetch it by MTO, by date range, or by bill
// number. Quantities are shopspring/decimal so aggregation never loses
// precision the way a float64 port would.
package readers

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductionOrder is read from the production-order form.
type ProductionOrder struct {
	BillNo        string
	MTO           string
	Workshop      string
	MaterialCode  string
	MaterialName  string
	Specification string
	Qty           decimal.Decimal
	Status        string
	CreateDate    time.Time
	SyncedAt      time.Time
}

// ProductionBOM is read from the production-bom form.
type ProductionBOM struct {
	MOBillNo     string
	MTONumber    string
	MaterialCode string
	AuxPropID    int64
	MaterialType int
	NeedQty      decimal.Decimal
	PickedQty    decimal.Decimal
	NoPickedQty  decimal.Decimal
	SyncedAt     time.Time
}

// ProductionReceipt is read from the production-receipt form.
type ProductionReceipt struct {
	MTO          string
	MaterialCode string
	AuxPropID    int64
	RealQty      decimal.Decimal
	MustQty      decimal.Decimal
	MOBillNo     string
	SyncedAt     time.Time
}

// PurchaseOrder is read from the purchase-order form.
type PurchaseOrder struct {
	BillNo           string
	MTO              string
	MaterialCode     string
	AuxPropID        int64
	OrderQty         decimal.Decimal
	StockInQty       decimal.Decimal
	RemainStockInQty decimal.Decimal
	SyncedAt         time.Time
}

// BillType enumerates the purchase-receipt discriminator.
type BillType string

const (
	BillTypeStandard    BillType = "standard"
	BillTypeSubcontract BillType = "subcontract"
)

// PurchaseReceipt is read from the purchase-receipt form. PurchaseBillNo
// references the purchase order this receipt was received against, when
// the upstream supplies it (spec.md §4.11's purchase-receipt link rule).
type PurchaseReceipt struct {
	MTO            string
	MaterialCode   string
	RealQty        decimal.Decimal
	MustQty        decimal.Decimal
	BillType       BillType
	PurchaseBillNo string
	SyncedAt       time.Time
}

// SubcontractingOrder is read from the subcontract-request form.
type SubcontractingOrder struct {
	BillNo         string
	MTO            string
	MaterialCode   string
	OrderQty       decimal.Decimal
	StockInQty     decimal.Decimal
	NoStockInQty   decimal.Decimal
	SyncedAt       time.Time
}

// MaterialPicking is read from the picking form.
type MaterialPicking struct {
	MTO          string
	MaterialCode string
	AppQty       decimal.Decimal
	ActualQty    decimal.Decimal
	PPBOMBillNo  string
	SyncedAt     time.Time
}

// SalesDelivery is read from the sales-delivery form.
type SalesDelivery struct {
	MTO          string
	MaterialCode string
	AuxPropID    int64
	RealQty      decimal.Decimal
	MustQty      decimal.Decimal
	SyncedAt     time.Time
}

// SalesOrder is read from the sales-order form.
type SalesOrder struct {
	BillNo       string
	MTO          string
	MaterialCode string
	CustomerName string
	DeliveryDate time.Time
	Qty          decimal.Decimal
	AuxPropID    int64
	SyncedAt     time.Time
}
