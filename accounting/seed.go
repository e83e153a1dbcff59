/*
seed.go - Default property-management chart of accounts

PURPOSE:
  The chart a fresh installation starts from. Parents are grouping
  accounts (never postable); leaves carry the cash-flow category used by
  the cash-flow statement. Tenant deposits and escrow balances get their
  own Escrow category so they never pollute operating cash flow.

SEE ALSO:
  - chart.go: Invariants this data must satisfy (covered by tests)
  - cmd/seed-chart: Loads this chart into the database
*/
package accounting

// DefaultChart returns the seed chart of accounts. Callers must not
// mutate the returned slice; copy it first.
func DefaultChart() []Account {
	return []Account{
		// Assets
		{Code: "1000", Name: "Assets", Type: AccountAsset},
		{Code: "1100", Name: "Cash and Bank", Type: AccountAsset, ParentCode: "1000"},
		{Code: "1110", Name: "Operating Bank Account", Type: AccountAsset, ParentCode: "1100", IsPostable: true, CashFlowCategory: CashFlowOperating},
		{Code: "1120", Name: "Security Deposit Escrow", Type: AccountAsset, ParentCode: "1100", IsPostable: true, CashFlowCategory: CashFlowEscrow},
		{Code: "1130", Name: "Petty Cash", Type: AccountAsset, ParentCode: "1100", IsPostable: true, CashFlowCategory: CashFlowOperating},
		{Code: "1200", Name: "Receivables", Type: AccountAsset, ParentCode: "1000"},
		{Code: "1210", Name: "Rent Receivable", Type: AccountAsset, ParentCode: "1200", IsPostable: true, CashFlowCategory: CashFlowOperating},
		{Code: "1220", Name: "Service Charges Receivable", Type: AccountAsset, ParentCode: "1200", IsPostable: true, CashFlowCategory: CashFlowOperating},
		{Code: "1300", Name: "Fixed Assets", Type: AccountAsset, ParentCode: "1000"},
		{Code: "1310", Name: "Buildings", Type: AccountAsset, ParentCode: "1300", IsPostable: true, CashFlowCategory: CashFlowInvesting},
		{Code: "1320", Name: "Furniture and Fittings", Type: AccountAsset, ParentCode: "1300", IsPostable: true, CashFlowCategory: CashFlowInvesting},

		// Liabilities
		{Code: "2000", Name: "Liabilities", Type: AccountLiability},
		{Code: "2100", Name: "Tenant Liabilities", Type: AccountLiability, ParentCode: "2000"},
		{Code: "2110", Name: "Security Deposits Held", Type: AccountLiability, ParentCode: "2100", IsPostable: true, CashFlowCategory: CashFlowEscrow},
		{Code: "2120", Name: "Prepaid Rent", Type: AccountLiability, ParentCode: "2100", IsPostable: true, CashFlowCategory: CashFlowOperating},
		{Code: "2130", Name: "Tenant Refunds Payable", Type: AccountLiability, ParentCode: "2100", IsPostable: true, CashFlowCategory: CashFlowOperating},
		{Code: "2200", Name: "Loans", Type: AccountLiability, ParentCode: "2000"},
		{Code: "2210", Name: "Mortgage Payable", Type: AccountLiability, ParentCode: "2200", IsPostable: true, CashFlowCategory: CashFlowFinancing},

		// Equity
		{Code: "3000", Name: "Equity", Type: AccountEquity},
		{Code: "3100", Name: "Owner Capital", Type: AccountEquity, ParentCode: "3000", IsPostable: true, CashFlowCategory: CashFlowFinancing},
		{Code: "3200", Name: "Retained Earnings", Type: AccountEquity, ParentCode: "3000", IsPostable: true, CashFlowCategory: CashFlowFinancing},

		// Revenue
		{Code: "4000", Name: "Revenue", Type: AccountRevenue},
		{Code: "4100", Name: "Rental Income", Type: AccountRevenue, ParentCode: "4000", IsPostable: true, CashFlowCategory: CashFlowOperating},
		{Code: "4200", Name: "Service Charge Income", Type: AccountRevenue, ParentCode: "4000", IsPostable: true, CashFlowCategory: CashFlowOperating},
		{Code: "4300", Name: "Late Fee Income", Type: AccountRevenue, ParentCode: "4000", IsPostable: true, CashFlowCategory: CashFlowOperating},
		{Code: "4400", Name: "Parking Income", Type: AccountRevenue, ParentCode: "4000", IsPostable: true, CashFlowCategory: CashFlowOperating},

		// Expenses
		{Code: "5000", Name: "Expenses", Type: AccountExpense},
		{Code: "5100", Name: "Property Operations", Type: AccountExpense, ParentCode: "5000"},
		{Code: "5110", Name: "Repairs and Maintenance", Type: AccountExpense, ParentCode: "5100", IsPostable: true, CashFlowCategory: CashFlowOperating},
		{Code: "5120", Name: "Utilities", Type: AccountExpense, ParentCode: "5100", IsPostable: true, CashFlowCategory: CashFlowOperating},
		{Code: "5130", Name: "Cleaning and Security", Type: AccountExpense, ParentCode: "5100", IsPostable: true, CashFlowCategory: CashFlowOperating},
		{Code: "5200", Name: "Administration", Type: AccountExpense, ParentCode: "5000"},
		{Code: "5210", Name: "Salaries and Wages", Type: AccountExpense, ParentCode: "5200", IsPostable: true, CashFlowCategory: CashFlowOperating},
		{Code: "5220", Name: "Insurance", Type: AccountExpense, ParentCode: "5200", IsPostable: true, CashFlowCategory: CashFlowOperating},
		{Code: "5230", Name: "Professional Fees", Type: AccountExpense, ParentCode: "5200", IsPostable: true, CashFlowCategory: CashFlowOperating},
		{Code: "5300", Name: "Financing Costs", Type: AccountExpense, ParentCode: "5000"},
		{Code: "5310", Name: "Mortgage Interest", Type: AccountExpense, ParentCode: "5300", IsPostable: true, CashFlowCategory: CashFlowFinancing},
	}
}
