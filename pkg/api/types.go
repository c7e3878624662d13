package api

type Group struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Members   []string `json:"members"`
	CreatedAt int64    `json:"created_at"`
}

type Expense struct {
	ID           int64             `json:"id"`
	GroupID      int64             `json:"group_id"`
	Description  string            `json:"description"`
	Base         string            `json:"base"`
	Discount     string            `json:"discount"`
	ServiceTax   string            `json:"service_tax"`
	GST          string            `json:"gst"`
	Total        string            `json:"total"`
	PaidBy       string            `json:"paid_by"`
	SplitType    string            `json:"split_type"`
	Participants []string          `json:"participants"`
	Shares       map[string]string `json:"shares"`
	Date         int64             `json:"date"`
}

// Balance is one member's position. Positive Net means the member is owed.
type Balance struct {
	Member    string `json:"member"`
	Net       string `json:"net"`
	TotalPaid string `json:"total_paid"`
	TotalOwed string `json:"total_owed"`
}

// Settlement is a payment From -> To that clears part of the group's debts.
type Settlement struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type Stats struct {
	GroupCount   int64  `json:"group_count"`
	ExpenseCount int64  `json:"expense_count"`
	TotalSpent   string `json:"total_spent"`
}

// Charge is a base amount with its adjustments. With Mode "percent" the
// adjustments are percentages of Base; with "amount" (or empty) they are
// currency amounts. Empty adjustments are zero.
type Charge struct {
	Base       string `json:"base"`
	Discount   string `json:"discount,omitempty"`
	ServiceTax string `json:"service_tax,omitempty"`
	GST        string `json:"gst,omitempty"`
	Mode       string `json:"mode,omitempty"`
}

// ExpenseFields are the user-editable fields of an expense.
type ExpenseFields struct {
	Description string `json:"description"`
	Charge
	PaidBy       string   `json:"paid_by"`
	SplitType    string   `json:"split_type"`
	Participants []string `json:"participants"`
	// CustomShares is read only when SplitType is "custom".
	CustomShares map[string]string `json:"custom_shares,omitempty"`
	// Date is a unix timestamp. Zero means now on add and unchanged on update.
	Date int64 `json:"date,omitempty"`
}

type CreateGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID int64 `json:"group_id"`
}

type GetGroupResponse struct {
	Group *Group `json:"group"`
	// Expenses are sorted newest first.
	Expenses   []*Expense `json:"expenses"`
	TotalSpent string     `json:"total_spent"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
	Stats  *Stats   `json:"stats"`
}

type DeleteGroupRequest struct {
	GroupID int64 `json:"group_id"`
}

type DeleteGroupResponse struct{}

type GetBalancesRequest struct {
	GroupID int64 `json:"group_id"`
}

type GetBalancesResponse struct {
	// Balances are listed in group member order.
	Balances     []*Balance    `json:"balances"`
	Settlements  []*Settlement `json:"settlements"`
	ExpenseCount int           `json:"expense_count"`
}

type ComputeTotalRequest struct {
	Charge
}

type ComputeTotalResponse struct {
	Base          string `json:"base"`
	Discount      string `json:"discount"`
	AfterDiscount string `json:"after_discount"`
	ServiceTax    string `json:"service_tax"`
	GST           string `json:"gst"`
	Total         string `json:"total"`
}

type AddExpenseRequest struct {
	GroupID int64 `json:"group_id"`
	ExpenseFields
}

type AddExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type UpdateExpenseRequest struct {
	ExpenseID int64 `json:"expense_id"`
	ExpenseFields
}

type UpdateExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type DeleteExpenseRequest struct {
	ExpenseID int64 `json:"expense_id"`
}

type DeleteExpenseResponse struct{}
