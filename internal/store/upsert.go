package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ashgrove-systems/mto-gateway/internal/readers"
)

// withTx runs fn once inside one transaction, committing when fn succeeds
// and rolling back otherwise, matching the
// teacher's one-transaction-per-chunk-per-table discipline
// (internal/db/manufacturing_orders.go). Callers build one *Store method
// per reader rather than a generic batch helper so each table's compound
// key stays explicit in the SQL, the way the teacher writes it.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) UpsertProductionOrders(ctx context.Context, rows []readers.ProductionOrder) error {
	if len(rows) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO production_orders (
				bill_no, mto, workshop, material_code, material_name, specification, qty, status, create_date, synced_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (bill_no) DO UPDATE SET
				mto = excluded.mto,
				workshop = excluded.workshop,
				material_code = excluded.material_code,
				material_name = excluded.material_name,
				specification = excluded.specification,
				qty = excluded.qty,
				status = excluded.status,
				create_date = excluded.create_date,
				synced_at = excluded.synced_at
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare production_orders upsert: %w", err)
		}
		defer stmt.Close()

		now := nowUTC()
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.BillNo, row.MTO, row.Workshop, row.MaterialCode, row.MaterialName,
				row.Specification, row.Qty.String(), row.Status, row.CreateDate, now,
			); err != nil {
				return fmt.Errorf("failed to upsert production_order %s: %w", row.BillNo, err)
			}
		}
		return nil
	})
}

func (s *Store) UpsertProductionBOM(ctx context.Context, rows []readers.ProductionBOM) error {
	if len(rows) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO production_bom (
				mo_bill_no, mto, material_code, aux_prop_id, material_type, need_qty, picked_qty, no_picked_qty, synced_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (mo_bill_no, material_code, aux_prop_id) DO UPDATE SET
				mto = excluded.mto,
				material_type = excluded.material_type,
				need_qty = excluded.need_qty,
				picked_qty = excluded.picked_qty,
				no_picked_qty = excluded.no_picked_qty,
				synced_at = excluded.synced_at
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare production_bom upsert: %w", err)
		}
		defer stmt.Close()

		now := nowUTC()
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.MOBillNo, row.MTONumber, row.MaterialCode, row.AuxPropID, row.MaterialType,
				row.NeedQty.String(), row.PickedQty.String(), row.NoPickedQty.String(), now,
			); err != nil {
				return fmt.Errorf("failed to upsert production_bom %s/%s: %w", row.MOBillNo, row.MaterialCode, err)
			}
		}
		return nil
	})
}

func (s *Store) UpsertProductionReceipts(ctx context.Context, rows []readers.ProductionReceipt) error {
	if len(rows) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO production_receipts (
				mto, material_code, aux_prop_id, real_qty, must_qty, mo_bill_no, synced_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (mto, material_code, aux_prop_id) DO UPDATE SET
				real_qty = excluded.real_qty,
				must_qty = excluded.must_qty,
				mo_bill_no = excluded.mo_bill_no,
				synced_at = excluded.synced_at
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare production_receipts upsert: %w", err)
		}
		defer stmt.Close()

		now := nowUTC()
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.MTO, row.MaterialCode, row.AuxPropID, row.RealQty.String(), row.MustQty.String(), row.MOBillNo, now,
			); err != nil {
				return fmt.Errorf("failed to upsert production_receipt %s/%s: %w", row.MTO, row.MaterialCode, err)
			}
		}
		return nil
	})
}

func (s *Store) UpsertPurchaseOrders(ctx context.Context, rows []readers.PurchaseOrder) error {
	if len(rows) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO purchase_orders (
				bill_no, mto, material_code, aux_prop_id, order_qty, stock_in_qty, remain_stock_in_qty, synced_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (bill_no, material_code, aux_prop_id) DO UPDATE SET
				mto = excluded.mto,
				order_qty = excluded.order_qty,
				stock_in_qty = excluded.stock_in_qty,
				remain_stock_in_qty = excluded.remain_stock_in_qty,
				synced_at = excluded.synced_at
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare purchase_orders upsert: %w", err)
		}
		defer stmt.Close()

		now := nowUTC()
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.BillNo, row.MTO, row.MaterialCode, row.AuxPropID,
				row.OrderQty.String(), row.StockInQty.String(), row.RemainStockInQty.String(), now,
			); err != nil {
				return fmt.Errorf("failed to upsert purchase_order %s/%s: %w", row.BillNo, row.MaterialCode, err)
			}
		}
		return nil
	})
}

func (s *Store) UpsertPurchaseReceipts(ctx context.Context, rows []readers.PurchaseReceipt) error {
	if len(rows) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO purchase_receipts (
				mto, material_code, real_qty, must_qty, bill_type, purchase_bill_no, synced_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (mto, material_code, bill_type) DO UPDATE SET
				real_qty = excluded.real_qty,
				must_qty = excluded.must_qty,
				purchase_bill_no = excluded.purchase_bill_no,
				synced_at = excluded.synced_at
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare purchase_receipts upsert: %w", err)
		}
		defer stmt.Close()

		now := nowUTC()
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.MTO, row.MaterialCode, row.RealQty.String(), row.MustQty.String(), string(row.BillType), row.PurchaseBillNo, now,
			); err != nil {
				return fmt.Errorf("failed to upsert purchase_receipt %s/%s: %w", row.MTO, row.MaterialCode, err)
			}
		}
		return nil
	})
}

func (s *Store) UpsertSubcontractingOrders(ctx context.Context, rows []readers.SubcontractingOrder) error {
	if len(rows) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO subcontracting_orders (
				bill_no, mto, material_code, order_qty, stock_in_qty, no_stock_in_qty, synced_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (bill_no, material_code) DO UPDATE SET
				mto = excluded.mto,
				order_qty = excluded.order_qty,
				stock_in_qty = excluded.stock_in_qty,
				no_stock_in_qty = excluded.no_stock_in_qty,
				synced_at = excluded.synced_at
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare subcontracting_orders upsert: %w", err)
		}
		defer stmt.Close()

		now := nowUTC()
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.BillNo, row.MTO, row.MaterialCode, row.OrderQty.String(), row.StockInQty.String(), row.NoStockInQty.String(), now,
			); err != nil {
				return fmt.Errorf("failed to upsert subcontracting_order %s/%s: %w", row.BillNo, row.MaterialCode, err)
			}
		}
		return nil
	})
}

func (s *Store) UpsertMaterialPicking(ctx context.Context, rows []readers.MaterialPicking) error {
	if len(rows) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO material_picking (
				mto, material_code, app_qty, actual_qty, ppbom_bill_no, synced_at
			) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (mto, material_code, ppbom_bill_no) DO UPDATE SET
				app_qty = excluded.app_qty,
				actual_qty = excluded.actual_qty,
				synced_at = excluded.synced_at
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare material_picking upsert: %w", err)
		}
		defer stmt.Close()

		now := nowUTC()
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.MTO, row.MaterialCode, row.AppQty.String(), row.ActualQty.String(), row.PPBOMBillNo, now,
			); err != nil {
				return fmt.Errorf("failed to upsert material_picking %s/%s: %w", row.MTO, row.MaterialCode, err)
			}
		}
		return nil
	})
}

func (s *Store) UpsertSalesDelivery(ctx context.Context, rows []readers.SalesDelivery) error {
	if len(rows) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO sales_delivery (
				mto, material_code, aux_prop_id, real_qty, must_qty, synced_at
			) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (mto, material_code, aux_prop_id) DO UPDATE SET
				real_qty = excluded.real_qty,
				must_qty = excluded.must_qty,
				synced_at = excluded.synced_at
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare sales_delivery upsert: %w", err)
		}
		defer stmt.Close()

		now := nowUTC()
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.MTO, row.MaterialCode, row.AuxPropID, row.RealQty.String(), row.MustQty.String(), now,
			); err != nil {
				return fmt.Errorf("failed to upsert sales_delivery %s/%s: %w", row.MTO, row.MaterialCode, err)
			}
		}
		return nil
	})
}

func (s *Store) UpsertSalesOrders(ctx context.Context, rows []readers.SalesOrder) error {
	if len(rows) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO sales_orders (
				bill_no, mto, material_code, customer_name, delivery_date, qty, aux_prop_id, synced_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (bill_no, mto, material_code, aux_prop_id) DO UPDATE SET
				customer_name = excluded.customer_name,
				delivery_date = excluded.delivery_date,
				qty = excluded.qty,
				synced_at = excluded.synced_at
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare sales_orders upsert: %w", err)
		}
		defer stmt.Close()

		now := nowUTC()
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.BillNo, row.MTO, row.MaterialCode, row.CustomerName, row.DeliveryDate, row.Qty.String(), row.AuxPropID, now,
			); err != nil {
				return fmt.Errorf("failed to upsert sales_order %s/%s: %w", row.BillNo, row.MaterialCode, err)
			}
		}
		return nil
	})
}
