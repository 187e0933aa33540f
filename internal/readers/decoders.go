package readers

import (
	"fmt"

	"github.com/ashgrove-systems/mto-gateway/internal/upstream"
)

func decodeProductionOrder(r upstream.Record) (ProductionOrder, error) {
	billNo, err := fieldString(r, "bill_no")
	if err != nil {
		return ProductionOrder{}, err
	}
	mto, err := fieldString(r, "mto_a")
	if err != nil {
		return ProductionOrder{}, err
	}
	materialCode, err := fieldString(r, "material_code")
	if err != nil {
		return ProductionOrder{}, err
	}
	qty, err := fieldDecimal(r, "qty")
	if err != nil {
		return ProductionOrder{}, err
	}
	createDate, err := fieldDate(r, "create_date")
	if err != nil {
		return ProductionOrder{}, err
	}
	return ProductionOrder{
		BillNo:        billNo,
		MTO:           mto,
		Workshop:      fieldOptionalString(r, "workshop"),
		MaterialCode:  materialCode,
		MaterialName:  fieldOptionalString(r, "material_name"),
		Specification: fieldOptionalString(r, "specification"),
		Qty:           qty,
		Status:        fieldOptionalString(r, "status"),
		CreateDate:    createDate,
	}, nil
}

func decodeProductionBOM(r upstream.Record) (ProductionBOM, error) {
	moBillNo, err := fieldString(r, "mo_bill_no")
	if err != nil {
		return ProductionBOM{}, err
	}
	mto, err := fieldString(r, "mto_b")
	if err != nil {
		return ProductionBOM{}, err
	}
	materialCode, err := fieldString(r, "material_code")
	if err != nil {
		return ProductionBOM{}, err
	}
	aux, err := fieldAuxPropID(r, "aux_prop_id")
	if err != nil {
		return ProductionBOM{}, err
	}
	needQty, err := fieldDecimal(r, "need_qty")
	if err != nil {
		return ProductionBOM{}, err
	}
	pickedQty, err := fieldDecimal(r, "picked_qty")
	if err != nil {
		return ProductionBOM{}, err
	}
	noPickedQty, err := fieldDecimal(r, "no_picked_qty")
	if err != nil {
		return ProductionBOM{}, err
	}
	materialType := 0
	if mt, ok := r["material_type"]; ok {
		switch v := mt.(type) {
		case float64:
			materialType = int(v)
		case string:
			var n int
			if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
				materialType = n
			}
		}
	}
	return ProductionBOM{
		MOBillNo:     moBillNo,
		MTONumber:    mto,
		MaterialCode: materialCode,
		AuxPropID:    aux,
		MaterialType: materialType,
		NeedQty:      needQty,
		PickedQty:    pickedQty,
		NoPickedQty:  noPickedQty,
	}, nil
}

func decodeProductionReceipt(r upstream.Record) (ProductionReceipt, error) {
	mto, err := fieldString(r, "mto_c")
	if err != nil {
		return ProductionReceipt{}, err
	}
	materialCode, err := fieldString(r, "material_code")
	if err != nil {
		return ProductionReceipt{}, err
	}
	aux, err := fieldAuxPropID(r, "aux_prop_id")
	if err != nil {
		return ProductionReceipt{}, err
	}
	realQty, err := fieldDecimal(r, "real_qty")
	if err != nil {
		return ProductionReceipt{}, err
	}
	mustQty, err := fieldDecimal(r, "must_qty")
	if err != nil {
		return ProductionReceipt{}, err
	}
	return ProductionReceipt{
		MTO:          mto,
		MaterialCode: materialCode,
		AuxPropID:    aux,
		RealQty:      realQty,
		MustQty:      mustQty,
		MOBillNo:     fieldOptionalString(r, "mo_bill_no"),
	}, nil
}

func decodePurchaseOrder(r upstream.Record) (PurchaseOrder, error) {
	billNo, err := fieldString(r, "bill_no")
	if err != nil {
		return PurchaseOrder{}, err
	}
	mto, err := fieldString(r, "mto_c")
	if err != nil {
		return PurchaseOrder{}, err
	}
	materialCode, err := fieldString(r, "material_code")
	if err != nil {
		return PurchaseOrder{}, err
	}
	aux, err := fieldAuxPropID(r, "aux_prop_id")
	if err != nil {
		return PurchaseOrder{}, err
	}
	orderQty, err := fieldDecimal(r, "order_qty")
	if err != nil {
		return PurchaseOrder{}, err
	}
	stockInQty, err := fieldDecimal(r, "stock_in_qty")
	if err != nil {
		return PurchaseOrder{}, err
	}
	remainStockInQty, err := fieldDecimal(r, "remain_stock_in_qty")
	if err != nil {
		return PurchaseOrder{}, err
	}
	return PurchaseOrder{
		BillNo:           billNo,
		MTO:              mto,
		MaterialCode:     materialCode,
		AuxPropID:        aux,
		OrderQty:         orderQty,
		StockInQty:       stockInQty,
		RemainStockInQty: remainStockInQty,
	}, nil
}

func decodePurchaseReceipt(r upstream.Record) (PurchaseReceipt, error) {
	mto, err := fieldString(r, "mto_c")
	if err != nil {
		return PurchaseReceipt{}, err
	}
	materialCode, err := fieldString(r, "material_code")
	if err != nil {
		return PurchaseReceipt{}, err
	}
	realQty, err := fieldDecimal(r, "real_qty")
	if err != nil {
		return PurchaseReceipt{}, err
	}
	mustQty, err := fieldDecimal(r, "must_qty")
	if err != nil {
		return PurchaseReceipt{}, err
	}
	billType := BillTypeStandard
	if bt := fieldOptionalString(r, "bill_type"); bt == string(BillTypeSubcontract) {
		billType = BillTypeSubcontract
	}
	return PurchaseReceipt{
		MTO:            mto,
		MaterialCode:   materialCode,
		RealQty:        realQty,
		MustQty:        mustQty,
		BillType:       billType,
		PurchaseBillNo: fieldOptionalString(r, "purchase_bill_no"),
	}, nil
}

func decodeSubcontractingOrder(r upstream.Record) (SubcontractingOrder, error) {
	billNo, err := fieldString(r, "bill_no")
	if err != nil {
		return SubcontractingOrder{}, err
	}
	mto, err := fieldString(r, "mto_c")
	if err != nil {
		return SubcontractingOrder{}, err
	}
	materialCode, err := fieldString(r, "material_code")
	if err != nil {
		return SubcontractingOrder{}, err
	}
	orderQty, err := fieldDecimal(r, "order_qty")
	if err != nil {
		return SubcontractingOrder{}, err
	}
	stockInQty, err := fieldDecimal(r, "stock_in_qty")
	if err != nil {
		return SubcontractingOrder{}, err
	}
	noStockInQty, err := fieldDecimal(r, "no_stock_in_qty")
	if err != nil {
		return SubcontractingOrder{}, err
	}
	return SubcontractingOrder{
		BillNo:       billNo,
		MTO:          mto,
		MaterialCode: materialCode,
		OrderQty:     orderQty,
		StockInQty:   stockInQty,
		NoStockInQty: noStockInQty,
	}, nil
}

func decodeMaterialPicking(r upstream.Record) (MaterialPicking, error) {
	mto, err := fieldString(r, "mto_b")
	if err != nil {
		return MaterialPicking{}, err
	}
	materialCode, err := fieldString(r, "material_code")
	if err != nil {
		return MaterialPicking{}, err
	}
	appQty, err := fieldDecimal(r, "app_qty")
	if err != nil {
		return MaterialPicking{}, err
	}
	actualQty, err := fieldDecimal(r, "actual_qty")
	if err != nil {
		return MaterialPicking{}, err
	}
	return MaterialPicking{
		MTO:          mto,
		MaterialCode: materialCode,
		AppQty:       appQty,
		ActualQty:    actualQty,
		PPBOMBillNo:  fieldOptionalString(r, "ppbom_bill_no"),
	}, nil
}

func decodeSalesDelivery(r upstream.Record) (SalesDelivery, error) {
	mto, err := fieldString(r, "mto_b")
	if err != nil {
		return SalesDelivery{}, err
	}
	materialCode, err := fieldString(r, "material_code")
	if err != nil {
		return SalesDelivery{}, err
	}
	aux, err := fieldAuxPropID(r, "aux_prop_id")
	if err != nil {
		return SalesDelivery{}, err
	}
	realQty, err := fieldDecimal(r, "real_qty")
	if err != nil {
		return SalesDelivery{}, err
	}
	mustQty, err := fieldDecimal(r, "must_qty")
	if err != nil {
		return SalesDelivery{}, err
	}
	return SalesDelivery{
		MTO:          mto,
		MaterialCode: materialCode,
		AuxPropID:    aux,
		RealQty:      realQty,
		MustQty:      mustQty,
	}, nil
}

func decodeSalesOrder(r upstream.Record) (SalesOrder, error) {
	billNo, err := fieldString(r, "bill_no")
	if err != nil {
		return SalesOrder{}, err
	}
	mto, err := fieldString(r, "mto_c")
	if err != nil {
		return SalesOrder{}, err
	}
	materialCode, err := fieldString(r, "material_code")
	if err != nil {
		return SalesOrder{}, err
	}
	qty, err := fieldDecimal(r, "qty")
	if err != nil {
		return SalesOrder{}, err
	}
	aux, err := fieldAuxPropID(r, "aux_prop_id")
	if err != nil {
		return SalesOrder{}, err
	}
	deliveryDate, err := fieldDate(r, "delivery_date")
	if err != nil {
		return SalesOrder{}, err
	}
	return SalesOrder{
		BillNo:       billNo,
		MTO:          mto,
		MaterialCode: materialCode,
		CustomerName: fieldOptionalString(r, "customer_name"),
		DeliveryDate: deliveryDate,
		Qty:          qty,
		AuxPropID:    aux,
	}, nil
}
