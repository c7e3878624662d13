package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/pkg/api"
)

// GroupService implements the Connect GroupService
type GroupService struct {
	ledger *ledger.Service
}

var _ api.GroupServiceHandler = (*GroupService)(nil)

// NewGroupService creates a new GroupService backed by the given ledger.
func NewGroupService(l *ledger.Service) *GroupService {
	return &GroupService{ledger: l}
}

// CreateGroup creates a new group.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	slog.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
	)

	group, err := s.ledger.CreateGroup(ctx, req.Msg.Name, req.Msg.Members)
	if err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, connectError(err)
	}

	return connect.NewResponse(&api.CreateGroupResponse{Group: toAPIGroup(group)}), nil
}

// GetGroup retrieves a group with its expenses, newest first.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	slog.Info("GetGroup request received", "group_id", req.Msg.GroupID)

	detail, err := s.ledger.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		slog.Error("GetGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, connectError(err)
	}

	expenses := make([]*api.Expense, len(detail.Expenses))
	for i, e := range detail.Expenses {
		expenses[i] = toAPIExpense(e)
	}

	slog.Info("GetGroup successful", "group_id", detail.Group.ID, "expenses_count", len(expenses))

	return connect.NewResponse(&api.GetGroupResponse{
		Group:      toAPIGroup(detail.Group),
		Expenses:   expenses,
		TotalSpent: detail.TotalSpent.String(),
	}), nil
}

// ListGroups retrieves all groups with dashboard stats.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	slog.Info("ListGroups request received")

	overview, err := s.ledger.ListGroups(ctx)
	if err != nil {
		slog.Error("ListGroups failed", "error", err)
		return nil, connectError(err)
	}

	groups := make([]*api.Group, len(overview.Groups))
	for i, g := range overview.Groups {
		groups[i] = toAPIGroup(g)
	}

	slog.Info("ListGroups successful", "count", len(groups))

	return connect.NewResponse(&api.ListGroupsResponse{
		Groups: groups,
		Stats: &api.Stats{
			GroupCount:   overview.Stats.Groups,
			ExpenseCount: overview.Stats.Expenses,
			TotalSpent:   overview.Stats.TotalSpent.String(),
		},
	}), nil
}

// DeleteGroup deletes a group and its expenses.
func (s *GroupService) DeleteGroup(ctx context.Context, req *connect.Request[api.DeleteGroupRequest]) (*connect.Response[api.DeleteGroupResponse], error) {
	slog.Info("DeleteGroup request received", "group_id", req.Msg.GroupID)

	if err := s.ledger.DeleteGroup(ctx, req.Msg.GroupID); err != nil {
		slog.Error("DeleteGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, connectError(err)
	}

	return connect.NewResponse(&api.DeleteGroupResponse{}), nil
}

// GetBalances returns each member's net balance and the payments that
// settle the group.
func (s *GroupService) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	slog.Info("GetBalances request received", "group_id", req.Msg.GroupID)

	plan, err := s.ledger.SettleUp(ctx, req.Msg.GroupID)
	if err != nil {
		slog.Error("GetBalances failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, connectError(err)
	}

	slog.Info("GetBalances successful",
		"group_id", req.Msg.GroupID,
		"expenses_count", plan.ExpenseCount,
		"settlements_count", len(plan.Settlements),
	)

	return connect.NewResponse(&api.GetBalancesResponse{
		Balances:     toAPIBalances(plan.Balances),
		Settlements:  toAPISettlements(plan.Settlements),
		ExpenseCount: plan.ExpenseCount,
	}), nil
}
