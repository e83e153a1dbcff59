/*
chart.go - Chart of accounts types and tree invariants

PURPOSE:
  The chart of accounts is reference data: a hierarchy of financial
  accounts that ledger postings land on. The data itself is seeded (see
  seed.go), but its invariants are enforced in code so a bad seed or a bad
  import never reaches the database.

INVARIANTS:
  1. Codes are unique
  2. Every parent code resolves to an existing account
  3. No account is its own ancestor (the structure is a tree)
  4. Accounts with children are NOT postable
  5. Every postable account's ancestor chain ends at a non-postable root

SEE ALSO:
  - seed.go: The default property-management chart
  - cmd/seed-chart: Loads the chart into SQLite
*/
package accounting

import (
	"fmt"
	"strings"
)

// =============================================================================
// ACCOUNT
// =============================================================================

type AccountType string

const (
	AccountAsset     AccountType = "Asset"
	AccountLiability AccountType = "Liability"
	AccountEquity    AccountType = "Equity"
	AccountRevenue   AccountType = "Revenue"
	AccountExpense   AccountType = "Expense"
)

type CashFlowCategory string

const (
	CashFlowOperating CashFlowCategory = "Operating"
	CashFlowInvesting CashFlowCategory = "Investing"
	CashFlowFinancing CashFlowCategory = "Financing"
	CashFlowEscrow    CashFlowCategory = "Escrow"
)

// Account is one node of the chart. ParentCode == "" marks a root.
// Only leaf accounts may be postable.
type Account struct {
	Code             string
	Name             string
	Type             AccountType
	ParentCode       string
	IsPostable       bool
	CashFlowCategory CashFlowCategory
}

// =============================================================================
// VALIDATION
// =============================================================================

// ChartError collects every invariant violation found in a chart, so a bad
// seed reports all of its problems at once.
type ChartError struct {
	Problems []string
}

func (e *ChartError) Error() string {
	return fmt.Sprintf("invalid chart of accounts: %s", strings.Join(e.Problems, "; "))
}

// ValidateChart enforces the tree invariants over a full chart.
func ValidateChart(accounts []Account) error {
	var problems []string

	byCode := make(map[string]*Account, len(accounts))
	for i := range accounts {
		a := &accounts[i]
		if a.Code == "" {
			problems = append(problems, "account with empty code")
			continue
		}
		if _, dup := byCode[a.Code]; dup {
			problems = append(problems, fmt.Sprintf("duplicate code %s", a.Code))
			continue
		}
		byCode[a.Code] = a
	}

	hasChildren := make(map[string]bool)
	for i := range accounts {
		a := &accounts[i]
		if a.ParentCode == "" {
			continue
		}
		if _, ok := byCode[a.ParentCode]; !ok {
			problems = append(problems, fmt.Sprintf("%s: parent %s does not exist", a.Code, a.ParentCode))
			continue
		}
		hasChildren[a.ParentCode] = true
	}

	for i := range accounts {
		a := &accounts[i]

		if hasChildren[a.Code] && a.IsPostable {
			problems = append(problems, fmt.Sprintf("%s: parent accounts must not be postable", a.Code))
		}

		if cycle := walkToRoot(a, byCode); cycle != "" {
			problems = append(problems, cycle)
			continue
		}

		if a.IsPostable {
			root := rootOf(a, byCode)
			if root != nil && root.IsPostable {
				problems = append(problems, fmt.Sprintf("%s: ancestor chain must end at a non-postable root", a.Code))
			}
		}
	}

	if len(problems) > 0 {
		return &ChartError{Problems: problems}
	}
	return nil
}

// walkToRoot detects ancestry cycles. Returns a problem description or "".
func walkToRoot(a *Account, byCode map[string]*Account) string {
	seen := map[string]bool{a.Code: true}
	for cur := a; cur.ParentCode != ""; {
		parent, ok := byCode[cur.ParentCode]
		if !ok {
			return "" // missing parent already reported
		}
		if seen[parent.Code] {
			return fmt.Sprintf("%s: cycle through %s", a.Code, parent.Code)
		}
		seen[parent.Code] = true
		cur = parent
	}
	return ""
}

func rootOf(a *Account, byCode map[string]*Account) *Account {
	cur := a
	for cur.ParentCode != "" {
		parent, ok := byCode[cur.ParentCode]
		if !ok {
			return nil
		}
		cur = parent
	}
	return cur
}
