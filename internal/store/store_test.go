package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"github.com/ashgrove-systems/mto-gateway/internal/readers"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Store{db: db}, mock
}

func TestUpsertProductionOrdersEmptyIsNoop(t *testing.T) {
	s, mock := newMockStore(t)
	if err := s.UpsertProductionOrders(context.Background(), nil); err != nil {
		t.Fatalf("UpsertProductionOrders(nil) = %v, want nil", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected no queries for an empty batch: %v", err)
	}
}

func TestUpsertProductionOrdersRunsInsideTransaction(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO production_orders")
	mock.ExpectExec("INSERT INTO production_orders").
		WithArgs("BILL-1", "MTO-1", "WS1", "07.0001", "Widget", "spec", "10", "open", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rows := []readers.ProductionOrder{{
		BillNo:        "BILL-1",
		MTO:           "MTO-1",
		Workshop:      "WS1",
		MaterialCode:  "07.0001",
		MaterialName:  "Widget",
		Specification: "spec",
		Qty:           decimal.NewFromInt(10),
		Status:        "open",
		CreateDate:    time.Now(),
	}}

	if err := s.UpsertProductionOrders(context.Background(), rows); err != nil {
		t.Fatalf("UpsertProductionOrders: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertProductionOrdersRollsBackOnExecError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO production_orders")
	mock.ExpectExec("INSERT INTO production_orders").
		WillReturnError(sqlmock.ErrCancelled)
	mock.ExpectRollback()

	rows := []readers.ProductionOrder{{BillNo: "BILL-1", MTO: "MTO-1", Qty: decimal.Zero}}

	if err := s.UpsertProductionOrders(context.Background(), rows); err == nil {
		t.Fatal("expected error from failing exec")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProductionOrdersByMTOScansRows(t *testing.T) {
	s, mock := newMockStore(t)

	cols := []string{"bill_no", "mto", "workshop", "material_code", "material_name", "specification", "qty", "status", "create_date", "synced_at"}
	now := time.Now()
	mock.ExpectQuery("SELECT .* FROM production_orders WHERE mto =").
		WithArgs("MTO-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("BILL-1", "MTO-1", "WS1", "07.0001", "Widget", "spec", "10", "open", now, now))

	rows, err := s.ProductionOrdersByMTO(context.Background(), "MTO-1")
	if err != nil {
		t.Fatalf("ProductionOrdersByMTO: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if !rows[0].Qty.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Qty = %v, want 10", rows[0].Qty)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
