package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CategorizationRule maps a case-insensitive keyword to a category.
// Higher priority rules are checked first.
type CategorizationRule struct {
	ID        string    `json:"id" gorm:"type:text;primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:text;index"`
	Keyword   string    `json:"keyword"`
	Category  string    `json:"category"`
	Priority  int       `json:"priority" gorm:"index"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CategorizationRule) TableName() string { return TableCategorizationRules }

// Frequency is the recurrence unit of a RecurringTransaction.
type Frequency string

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// RecurringTransaction is a scheduled transaction template.
type RecurringTransaction struct {
	ID          string          `json:"id" gorm:"type:text;primaryKey"`
	UserID      string          `json:"user_id" gorm:"type:text;index"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Type        TransactionType `json:"type" gorm:"type:varchar(10)"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(14,2)"`
	Frequency   Frequency       `json:"frequency" gorm:"type:varchar(10)"`
	StartDate   string          `json:"start_date" gorm:"type:varchar(10)"`
	EndDate     string          `json:"end_date,omitempty" gorm:"type:varchar(10)"`
	NextDueDate string          `json:"next_due_date" gorm:"type:varchar(10)"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (RecurringTransaction) TableName() string { return TableRecurringTransactions }

// BudgetGoal is a spending limit for one category over a period.
type BudgetGoal struct {
	ID           string          `json:"id" gorm:"type:text;primaryKey"`
	UserID       string          `json:"user_id" gorm:"type:text;index"`
	Category     string          `json:"category"`
	TargetAmount decimal.Decimal `json:"target_amount" gorm:"type:numeric(14,2)"`
	Period       string          `json:"period"`
	StartDate    string          `json:"start_date" gorm:"type:varchar(10)"`
	EndDate      string          `json:"end_date,omitempty" gorm:"type:varchar(10)"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (BudgetGoal) TableName() string { return TableBudgetGoals }

// PortfolioHolding is one investment position.
type PortfolioHolding struct {
	ID            string          `json:"id" gorm:"type:text;primaryKey"`
	UserID        string          `json:"user_id" gorm:"type:text;index"`
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Quantity      decimal.Decimal `json:"quantity" gorm:"type:numeric(18,6)"`
	PurchasePrice decimal.Decimal `json:"purchase_price" gorm:"type:numeric(14,2)"`
	CurrentPrice  decimal.Decimal `json:"current_price" gorm:"type:numeric(14,2)"`
	PurchaseDate  string          `json:"purchase_date" gorm:"type:varchar(10)"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (PortfolioHolding) TableName() string { return TablePortfolioHoldings }

// MarketValue returns quantity times current price.
func (h PortfolioHolding) MarketValue() decimal.Decimal {
	return h.Quantity.Mul(h.CurrentPrice)
}

// ChatConversation stores an AI assistant conversation as a JSON message list.
type ChatConversation struct {
	ID        string         `json:"id" gorm:"type:text;primaryKey"`
	UserID    string         `json:"user_id" gorm:"type:text;index"`
	Title     string         `json:"title"`
	Messages  datatypes.JSON `json:"messages"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (ChatConversation) TableName() string { return TableChatConversations }

// Profile holds per-user preferences passed to the AI assistant.
type Profile struct {
	ID          string    `json:"id" gorm:"type:text;primaryKey"`
	UserID      string    `json:"user_id" gorm:"type:text;uniqueIndex"`
	DisplayName string    `json:"display_name"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Profile) TableName() string { return TableProfiles }

// CategoryConfig represents one fallback bucket in the categories YAML file.
type CategoryConfig struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// CategoriesConfig represents the structure of the categories YAML file.
type CategoriesConfig struct {
	Categories []CategoryConfig `yaml:"categories"`
}
