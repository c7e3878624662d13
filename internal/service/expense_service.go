package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/pkg/api"
)

// ExpenseService implements the Connect ExpenseService
type ExpenseService struct {
	ledger *ledger.Service
}

var _ api.ExpenseServiceHandler = (*ExpenseService)(nil)

// NewExpenseService creates a new ExpenseService backed by the given ledger.
func NewExpenseService(l *ledger.Service) *ExpenseService {
	return &ExpenseService{ledger: l}
}

// ComputeTotal previews the total of a charge without recording anything.
func (s *ExpenseService) ComputeTotal(ctx context.Context, req *connect.Request[api.ComputeTotalRequest]) (*connect.Response[api.ComputeTotalResponse], error) {
	slog.Info("ComputeTotal request received", "base", req.Msg.Base, "mode", req.Msg.Mode)

	adj, err := toAdjustments(req.Msg.Charge)
	if err != nil {
		return nil, connectError(err)
	}
	breakdown, err := s.ledger.PreviewTotal(ctx, adj)
	if err != nil {
		slog.Error("ComputeTotal failed", "error", err)
		return nil, connectError(err)
	}

	return connect.NewResponse(toAPIBreakdown(breakdown)), nil
}

// AddExpense records an expense in a group.
func (s *ExpenseService) AddExpense(ctx context.Context, req *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.AddExpenseResponse], error) {
	slog.Info("AddExpense request received",
		"group_id", req.Msg.GroupID,
		"split_type", req.Msg.SplitType,
		"participants_count", len(req.Msg.Participants),
	)

	in, err := toExpenseInput(req.Msg.ExpenseFields)
	if err != nil {
		slog.Error("AddExpense failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, connectError(err)
	}
	e, err := s.ledger.AddExpense(ctx, req.Msg.GroupID, in)
	if err != nil {
		slog.Error("AddExpense failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, connectError(err)
	}

	return connect.NewResponse(&api.AddExpenseResponse{Expense: toAPIExpense(e)}), nil
}

// UpdateExpense replaces an expense and recomputes its shares.
func (s *ExpenseService) UpdateExpense(ctx context.Context, req *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.UpdateExpenseResponse], error) {
	slog.Info("UpdateExpense request received", "expense_id", req.Msg.ExpenseID)

	in, err := toExpenseInput(req.Msg.ExpenseFields)
	if err != nil {
		slog.Error("UpdateExpense failed", "expense_id", req.Msg.ExpenseID, "error", err)
		return nil, connectError(err)
	}
	e, err := s.ledger.UpdateExpense(ctx, req.Msg.ExpenseID, in)
	if err != nil {
		slog.Error("UpdateExpense failed", "expense_id", req.Msg.ExpenseID, "error", err)
		return nil, connectError(err)
	}

	return connect.NewResponse(&api.UpdateExpenseResponse{Expense: toAPIExpense(e)}), nil
}

// DeleteExpense deletes an expense.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	slog.Info("DeleteExpense request received", "expense_id", req.Msg.ExpenseID)

	if err := s.ledger.DeleteExpense(ctx, req.Msg.ExpenseID); err != nil {
		slog.Error("DeleteExpense failed", "expense_id", req.Msg.ExpenseID, "error", err)
		return nil, connectError(err)
	}

	return connect.NewResponse(&api.DeleteExpenseResponse{}), nil
}
