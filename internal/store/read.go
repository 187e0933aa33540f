package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ashgrove-systems/mto-gateway/internal/readers"
)

func decStr(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (s *Store) ProductionOrdersByMTO(ctx context.Context, mto string) ([]readers.ProductionOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bill_no, mto, workshop, material_code, material_name, specification, qty, status, create_date, synced_at
		FROM production_orders WHERE mto = ?`, mto)
	if err != nil {
		return nil, fmt.Errorf("failed to query production_orders for %s: %w", mto, err)
	}
	defer rows.Close()

	var out []readers.ProductionOrder
	for rows.Next() {
		var r readers.ProductionOrder
		var qty string
		if err := rows.Scan(&r.BillNo, &r.MTO, &r.Workshop, &r.MaterialCode, &r.MaterialName,
			&r.Specification, &qty, &r.Status, &r.CreateDate, &r.SyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan production_order: %w", err)
		}
		r.Qty = decStr(qty)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ProductionBOMByMTO(ctx context.Context, mto string) ([]readers.ProductionBOM, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mo_bill_no, mto, material_code, aux_prop_id, material_type, need_qty, picked_qty, no_picked_qty, synced_at
		FROM production_bom WHERE mto = ?`, mto)
	if err != nil {
		return nil, fmt.Errorf("failed to query production_bom for %s: %w", mto, err)
	}
	defer rows.Close()

	var out []readers.ProductionBOM
	for rows.Next() {
		var r readers.ProductionBOM
		var need, picked, noPicked string
		if err := rows.Scan(&r.MOBillNo, &r.MTONumber, &r.MaterialCode, &r.AuxPropID, &r.MaterialType,
			&need, &picked, &noPicked, &r.SyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan production_bom: %w", err)
		}
		r.NeedQty, r.PickedQty, r.NoPickedQty = decStr(need), decStr(picked), decStr(noPicked)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ProductionReceiptsByMTO(ctx context.Context, mto string) ([]readers.ProductionReceipt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mto, material_code, aux_prop_id, real_qty, must_qty, mo_bill_no, synced_at
		FROM production_receipts WHERE mto = ?`, mto)
	if err != nil {
		return nil, fmt.Errorf("failed to query production_receipts for %s: %w", mto, err)
	}
	defer rows.Close()

	var out []readers.ProductionReceipt
	for rows.Next() {
		var r readers.ProductionReceipt
		var real, must string
		var moBillNo sql.NullString
		if err := rows.Scan(&r.MTO, &r.MaterialCode, &r.AuxPropID, &real, &must, &moBillNo, &r.SyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan production_receipt: %w", err)
		}
		r.RealQty, r.MustQty = decStr(real), decStr(must)
		r.MOBillNo = moBillNo.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) PurchaseOrdersByMTO(ctx context.Context, mto string) ([]readers.PurchaseOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bill_no, mto, material_code, aux_prop_id, order_qty, stock_in_qty, remain_stock_in_qty, synced_at
		FROM purchase_orders WHERE mto = ?`, mto)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase_orders for %s: %w", mto, err)
	}
	defer rows.Close()

	var out []readers.PurchaseOrder
	for rows.Next() {
		var r readers.PurchaseOrder
		var order, stockIn, remain string
		if err := rows.Scan(&r.BillNo, &r.MTO, &r.MaterialCode, &r.AuxPropID, &order, &stockIn, &remain, &r.SyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan purchase_order: %w", err)
		}
		r.OrderQty, r.StockInQty, r.RemainStockInQty = decStr(order), decStr(stockIn), decStr(remain)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) PurchaseReceiptsByMTO(ctx context.Context, mto string) ([]readers.PurchaseReceipt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mto, material_code, real_qty, must_qty, bill_type, purchase_bill_no, synced_at
		FROM purchase_receipts WHERE mto = ?`, mto)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase_receipts for %s: %w", mto, err)
	}
	defer rows.Close()

	var out []readers.PurchaseReceipt
	for rows.Next() {
		var r readers.PurchaseReceipt
		var real, must, billType string
		var purchaseBillNo sql.NullString
		if err := rows.Scan(&r.MTO, &r.MaterialCode, &real, &must, &billType, &purchaseBillNo, &r.SyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan purchase_receipt: %w", err)
		}
		r.RealQty, r.MustQty = decStr(real), decStr(must)
		r.BillType = readers.BillType(billType)
		r.PurchaseBillNo = purchaseBillNo.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) SubcontractingOrdersByMTO(ctx context.Context, mto string) ([]readers.SubcontractingOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bill_no, mto, material_code, order_qty, stock_in_qty, no_stock_in_qty, synced_at
		FROM subcontracting_orders WHERE mto = ?`, mto)
	if err != nil {
		return nil, fmt.Errorf("failed to query subcontracting_orders for %s: %w", mto, err)
	}
	defer rows.Close()

	var out []readers.SubcontractingOrder
	for rows.Next() {
		var r readers.SubcontractingOrder
		var order, stockIn, noStockIn string
		if err := rows.Scan(&r.BillNo, &r.MTO, &r.MaterialCode, &order, &stockIn, &noStockIn, &r.SyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subcontracting_order: %w", err)
		}
		r.OrderQty, r.StockInQty, r.NoStockInQty = decStr(order), decStr(stockIn), decStr(noStockIn)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) MaterialPickingByMTO(ctx context.Context, mto string) ([]readers.MaterialPicking, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mto, material_code, app_qty, actual_qty, ppbom_bill_no, synced_at
		FROM material_picking WHERE mto = ?`, mto)
	if err != nil {
		return nil, fmt.Errorf("failed to query material_picking for %s: %w", mto, err)
	}
	defer rows.Close()

	var out []readers.MaterialPicking
	for rows.Next() {
		var r readers.MaterialPicking
		var app, actual string
		var ppbom sql.NullString
		if err := rows.Scan(&r.MTO, &r.MaterialCode, &app, &actual, &ppbom, &r.SyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan material_picking: %w", err)
		}
		r.AppQty, r.ActualQty = decStr(app), decStr(actual)
		r.PPBOMBillNo = ppbom.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) SalesDeliveryByMTO(ctx context.Context, mto string) ([]readers.SalesDelivery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mto, material_code, aux_prop_id, real_qty, must_qty, synced_at
		FROM sales_delivery WHERE mto = ?`, mto)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales_delivery for %s: %w", mto, err)
	}
	defer rows.Close()

	var out []readers.SalesDelivery
	for rows.Next() {
		var r readers.SalesDelivery
		var real, must string
		if err := rows.Scan(&r.MTO, &r.MaterialCode, &r.AuxPropID, &real, &must, &r.SyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sales_delivery: %w", err)
		}
		r.RealQty, r.MustQty = decStr(real), decStr(must)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) SalesOrdersByMTO(ctx context.Context, mto string) ([]readers.SalesOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bill_no, mto, material_code, customer_name, delivery_date, qty, aux_prop_id, synced_at
		FROM sales_orders WHERE mto = ?`, mto)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales_orders for %s: %w", mto, err)
	}
	defer rows.Close()

	var out []readers.SalesOrder
	for rows.Next() {
		var r readers.SalesOrder
		var qty string
		var deliveryDate sql.NullTime
		var customerName sql.NullString
		if err := rows.Scan(&r.BillNo, &r.MTO, &r.MaterialCode, &customerName, &deliveryDate, &qty, &r.AuxPropID, &r.SyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sales_order: %w", err)
		}
		r.Qty = decStr(qty)
		r.CustomerName = customerName.String
		if deliveryDate.Valid {
			r.DeliveryDate = deliveryDate.Time
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecentMTOs returns the most recently synced distinct MTOs across every
// table, most-recent first, bounded by limit. Used by cache admin's
// warm(use_hot=false) path (spec.md §4.10).
func (s *Store) RecentMTOs(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mto, MAX(synced_at) AS last_synced FROM (
			SELECT mto, synced_at FROM production_orders
			UNION ALL SELECT mto, synced_at FROM production_bom
			UNION ALL SELECT mto, synced_at FROM production_receipts
			UNION ALL SELECT mto, synced_at FROM purchase_orders
			UNION ALL SELECT mto, synced_at FROM purchase_receipts
			UNION ALL SELECT mto, synced_at FROM subcontracting_orders
			UNION ALL SELECT mto, synced_at FROM material_picking
			UNION ALL SELECT mto, synced_at FROM sales_delivery
			UNION ALL SELECT mto, synced_at FROM sales_orders
		)
		GROUP BY mto
		ORDER BY last_synced DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent mtos: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var mto string
		var lastSynced time.Time
		if err := rows.Scan(&mto, &lastSynced); err != nil {
			return nil, fmt.Errorf("failed to scan recent mto: %w", err)
		}
		out = append(out, mto)
	}
	return out, rows.Err()
}
