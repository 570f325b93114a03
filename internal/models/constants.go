package models

// Transaction types
const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Recurrence frequencies
const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Categories suggested to users and produced by the fallback heuristic.
const (
	CategoryFood           = "Food"
	CategoryTransportation = "Transportation"
	CategoryShopping       = "Shopping"
	CategoryIncome         = "Income"
	CategoryHousing        = "Housing"
	CategoryUtilities      = "Utilities"
	CategoryOther          = "Other"
)

// Collections of the hosted data store. Every row is scoped by user_id.
const (
	TableTransactions          = "transactions"
	TableBudgetGoals           = "budget_goals"
	TableRecurringTransactions = "recurring_transactions"
	TablePortfolioHoldings     = "portfolio_holdings"
	TableCategorizationRules   = "categorization_rules"
	TableChatConversations     = "chat_conversations"
	TableProfiles              = "profiles"
)

// Field limits
const (
	MaxDescriptionLength = 200
	MaxCategoryLength    = 50
	DateLayout           = "2006-01-02"
)

// File permissions
const (
	PermissionConfigFile = 0600
	PermissionDirectory  = 0750
	PermissionReportFile = 0644
)
