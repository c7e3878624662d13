package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/pkg/api"
)

func TestComputeTotal(t *testing.T) {
	_, client := setupTestServer(t)

	tests := []struct {
		name   string
		charge api.Charge
		want   api.ComputeTotalResponse
	}{
		{
			name:   "amounts",
			charge: api.Charge{Base: "100", Discount: "20", ServiceTax: "5", GST: "10"},
			want:   api.ComputeTotalResponse{Base: "100.00", Discount: "20.00", AfterDiscount: "80.00", ServiceTax: "5.00", GST: "10.00", Total: "95.00"},
		},
		{
			name:   "percentages",
			charge: api.Charge{Base: "250", Discount: "10", ServiceTax: "5", GST: "18", Mode: "percent"},
			want:   api.ComputeTotalResponse{Base: "250.00", Discount: "25.00", AfterDiscount: "225.00", ServiceTax: "12.50", GST: "45.00", Total: "282.50"},
		},
		{
			name:   "discount larger than base",
			charge: api.Charge{Base: "10", Discount: "15", GST: "1"},
			want:   api.ComputeTotalResponse{Base: "10.00", Discount: "15.00", AfterDiscount: "0.00", ServiceTax: "0.00", GST: "1.00", Total: "1.00"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.ComputeTotal(context.Background(), connect.NewRequest(&api.ComputeTotalRequest{Charge: tt.charge}))
			if err != nil {
				t.Fatalf("ComputeTotal failed: %v", err)
			}
			if *resp.Msg != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, *resp.Msg)
			}
		})
	}
}

func TestComputeTotal_Invalid(t *testing.T) {
	_, client := setupTestServer(t)

	tests := []struct {
		name   string
		charge api.Charge
	}{
		{"zero base", api.Charge{Base: "0"}},
		{"negative tax", api.Charge{Base: "10", ServiceTax: "-1"}},
		{"not a number", api.Charge{Base: "ten"}},
		{"unknown mode", api.Charge{Base: "10", Mode: "ratio"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.ComputeTotal(context.Background(), connect.NewRequest(&api.ComputeTotalRequest{Charge: tt.charge}))
			expectCode(t, err, connect.CodeInvalidArgument)
		})
	}
}

func TestAddExpense_Custom(t *testing.T) {
	groups, client := setupTestServer(t)
	group := createGroup(t, groups, "Flat", "Alice", "Bob", "Carol")

	resp, err := client.AddExpense(context.Background(), connect.NewRequest(&api.AddExpenseRequest{
		GroupID: group.ID,
		ExpenseFields: api.ExpenseFields{
			Description:  "Groceries",
			Charge:       api.Charge{Base: "100", GST: "5"},
			PaidBy:       "Carol",
			SplitType:    "custom",
			Participants: []string{"Alice", "Bob"},
			CustomShares: map[string]string{"Alice": "70", "Bob": "35"},
			Date:         1700000000,
		},
	}))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	e := resp.Msg.Expense
	if e.Total != "105.00" {
		t.Errorf("total: expected 105.00, got %s", e.Total)
	}
	if e.Date != 1700000000 {
		t.Errorf("date: expected 1700000000, got %d", e.Date)
	}
	want := map[string]string{"Alice": "70.00", "Bob": "35.00", "Carol": "0.00"}
	for m, s := range want {
		if e.Shares[m] != s {
			t.Errorf("share %s: expected %s, got %s", m, s, e.Shares[m])
		}
	}
}

func TestAddExpense_Invalid(t *testing.T) {
	groups, client := setupTestServer(t)
	group := createGroup(t, groups, "Trip", "A", "B")

	valid := api.ExpenseFields{
		Description:  "Fuel",
		Charge:       api.Charge{Base: "50"},
		PaidBy:       "A",
		SplitType:    "equal",
		Participants: []string{"A", "B"},
	}

	tests := []struct {
		name    string
		groupID int64
		modify  func(f *api.ExpenseFields)
		want    connect.Code
	}{
		{"unknown group", 999, func(f *api.ExpenseFields) {}, connect.CodeNotFound},
		{"payer outside group", group.ID, func(f *api.ExpenseFields) { f.PaidBy = "Z" }, connect.CodeInvalidArgument},
		{"no participants", group.ID, func(f *api.ExpenseFields) { f.Participants = nil }, connect.CodeInvalidArgument},
		{"negative base", group.ID, func(f *api.ExpenseFields) { f.Base = "-5" }, connect.CodeInvalidArgument},
		{"unknown split type", group.ID, func(f *api.ExpenseFields) { f.SplitType = "shares" }, connect.CodeInvalidArgument},
		{"custom shares do not add up", group.ID, func(f *api.ExpenseFields) {
			f.SplitType = "custom"
			f.CustomShares = map[string]string{"A": "25", "B": "24"}
		}, connect.CodeInvalidArgument},
		{"custom share not a number", group.ID, func(f *api.ExpenseFields) {
			f.SplitType = "custom"
			f.CustomShares = map[string]string{"A": "25", "B": "x"}
		}, connect.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := valid
			tt.modify(&fields)
			_, err := client.AddExpense(context.Background(), connect.NewRequest(&api.AddExpenseRequest{
				GroupID:       tt.groupID,
				ExpenseFields: fields,
			}))
			expectCode(t, err, tt.want)
		})
	}
}

func TestUpdateAndDeleteExpense(t *testing.T) {
	groups, client := setupTestServer(t)
	group := createGroup(t, groups, "Trip", "A", "B")

	added, err := client.AddExpense(context.Background(), connect.NewRequest(&api.AddExpenseRequest{
		GroupID: group.ID,
		ExpenseFields: api.ExpenseFields{
			Description:  "Fuel",
			Charge:       api.Charge{Base: "50"},
			PaidBy:       "A",
			SplitType:    "equal",
			Participants: []string{"A", "B"},
		},
	}))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}
	id := added.Msg.Expense.ID

	updated, err := client.UpdateExpense(context.Background(), connect.NewRequest(&api.UpdateExpenseRequest{
		ExpenseID: id,
		ExpenseFields: api.ExpenseFields{
			Description:  "Fuel and tolls",
			Charge:       api.Charge{Base: "80"},
			PaidBy:       "B",
			SplitType:    "equal",
			Participants: []string{"A", "B"},
		},
	}))
	if err != nil {
		t.Fatalf("UpdateExpense failed: %v", err)
	}
	if updated.Msg.Expense.ID != id || updated.Msg.Expense.Total != "80.00" || updated.Msg.Expense.PaidBy != "B" {
		t.Errorf("unexpected updated expense: %+v", updated.Msg.Expense)
	}
	if updated.Msg.Expense.Date != added.Msg.Expense.Date {
		t.Errorf("date changed: %d -> %d", added.Msg.Expense.Date, updated.Msg.Expense.Date)
	}

	balances, err := groups.GetBalances(context.Background(), connect.NewRequest(&api.GetBalancesRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}
	if len(balances.Msg.Settlements) != 1 || *balances.Msg.Settlements[0] != (api.Settlement{From: "A", To: "B", Amount: "40.00"}) {
		t.Errorf("unexpected settlements: %+v", balances.Msg.Settlements)
	}

	if _, err := client.DeleteExpense(context.Background(), connect.NewRequest(&api.DeleteExpenseRequest{ExpenseID: id})); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}
	_, err = client.DeleteExpense(context.Background(), connect.NewRequest(&api.DeleteExpenseRequest{ExpenseID: id}))
	expectCode(t, err, connect.CodeNotFound)

	_, err = client.UpdateExpense(context.Background(), connect.NewRequest(&api.UpdateExpenseRequest{ExpenseID: id}))
	expectCode(t, err, connect.CodeNotFound)
}
