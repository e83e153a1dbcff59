package accounting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// DEFAULT CHART
// =============================================================================

func TestDefaultChart_IsValid(t *testing.T) {
	chart := DefaultChart()

	require.NoError(t, ValidateChart(chart))
	assert.NotEmpty(t, chart)
}

func TestDefaultChart_HasEscrowAccounts(t *testing.T) {
	// Security deposits are held in escrow, not operating cash
	var found bool
	for _, a := range DefaultChart() {
		if a.CashFlowCategory == CashFlowEscrow && a.IsPostable {
			found = true
		}
	}
	assert.True(t, found, "expected at least one postable escrow account")
}

// =============================================================================
// TREE INVARIANTS
// =============================================================================

func validChart() []Account {
	return []Account{
		{Code: "1000", Name: "Assets", Type: AccountAsset},
		{Code: "1100", Name: "Cash", Type: AccountAsset, ParentCode: "1000"},
		{Code: "1110", Name: "Operating Bank", Type: AccountAsset, ParentCode: "1100", IsPostable: true, CashFlowCategory: CashFlowOperating},
	}
}

func TestValidateChart_DuplicateCode(t *testing.T) {
	chart := validChart()
	chart = append(chart, Account{Code: "1110", Name: "Shadow", Type: AccountAsset, ParentCode: "1100", IsPostable: true})

	err := ValidateChart(chart)

	var chartErr *ChartError
	require.ErrorAs(t, err, &chartErr)
	assert.Contains(t, chartErr.Error(), "duplicate code 1110")
}

func TestValidateChart_MissingParent(t *testing.T) {
	chart := validChart()
	chart = append(chart, Account{Code: "1200", Name: "Orphan", Type: AccountAsset, ParentCode: "9999", IsPostable: true})

	err := ValidateChart(chart)

	var chartErr *ChartError
	require.ErrorAs(t, err, &chartErr)
	assert.Contains(t, chartErr.Error(), "parent 9999 does not exist")
}

func TestValidateChart_PostableParent(t *testing.T) {
	// GIVEN: An account with children that is marked postable
	chart := []Account{
		{Code: "1000", Name: "Assets", Type: AccountAsset},
		{Code: "1100", Name: "Cash", Type: AccountAsset, ParentCode: "1000", IsPostable: true},
		{Code: "1110", Name: "Operating Bank", Type: AccountAsset, ParentCode: "1100", IsPostable: true},
	}

	err := ValidateChart(chart)

	var chartErr *ChartError
	require.ErrorAs(t, err, &chartErr)
	assert.Contains(t, chartErr.Error(), "parent accounts must not be postable")
}

func TestValidateChart_Cycle(t *testing.T) {
	chart := []Account{
		{Code: "A", Name: "A", Type: AccountAsset, ParentCode: "B"},
		{Code: "B", Name: "B", Type: AccountAsset, ParentCode: "A"},
	}

	err := ValidateChart(chart)

	var chartErr *ChartError
	require.ErrorAs(t, err, &chartErr)
	assert.Contains(t, chartErr.Error(), "cycle")
}

func TestValidateChart_PostableRoot(t *testing.T) {
	// GIVEN: A postable leaf whose root account is itself postable
	chart := []Account{
		{Code: "9000", Name: "Postable Root", Type: AccountExpense, IsPostable: true},
	}
	// A single postable account with no children IS its own root, so it
	// must fail the non-postable-root rule.
	err := ValidateChart(chart)

	var chartErr *ChartError
	require.ErrorAs(t, err, &chartErr)
	assert.Contains(t, chartErr.Error(), "non-postable root")
}

func TestValidateChart_EmptyCode(t *testing.T) {
	chart := validChart()
	chart = append(chart, Account{Name: "Nameless", Type: AccountAsset})

	err := ValidateChart(chart)

	var chartErr *ChartError
	require.ErrorAs(t, err, &chartErr)
	assert.Contains(t, chartErr.Error(), "empty code")
}

func TestValidateChart_ReportsAllProblems(t *testing.T) {
	// GIVEN: A chart with several independent violations
	// THEN: All of them appear in one error
	chart := []Account{
		{Code: "1000", Name: "Assets", Type: AccountAsset},
		{Code: "1000", Name: "Duplicate", Type: AccountAsset},
		{Code: "1200", Name: "Orphan", Type: AccountAsset, ParentCode: "9999"},
	}

	err := ValidateChart(chart)

	var chartErr *ChartError
	require.ErrorAs(t, err, &chartErr)
	assert.Len(t, chartErr.Problems, 2)
}

func TestValidateChart_ValidChartPasses(t *testing.T) {
	assert.NoError(t, ValidateChart(validChart()))
}
