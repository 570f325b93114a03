package recurring

import (
	"context"
	"time"

	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/parsererror"
	"fjacquet/fintrack/internal/store"
	"fjacquet/fintrack/internal/validation"
)

// Service stores recurring transactions with their computed due date.
type Service struct {
	ds     store.DataStore
	logger logging.Logger
	now    func() time.Time
}

// NewService creates a Service.
func NewService(ds store.DataStore, logger logging.Logger) *Service {
	return &Service{ds: ds, logger: logging.OrDefault(logger), now: time.Now}
}

// List returns the user's schedule ordered by next due date.
func (s *Service) List(ctx context.Context, userID string) ([]models.RecurringTransaction, error) {
	var rows []models.RecurringTransaction
	q := store.Query{UserID: userID}.OrderBy("next_due_date", false)
	if err := s.ds.Select(ctx, models.TableRecurringTransactions, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Prepare validates r and fills in its next due date and active flag.
// A schedule whose next occurrence falls after its end date is inactive.
func Prepare(r *models.RecurringTransaction, today time.Time) error {
	if !r.Frequency.Valid() {
		return &parsererror.ValidationError{Field: "frequency", Value: string(r.Frequency),
			Reason: "must be daily, weekly, monthly or yearly"}
	}
	start, err := validation.Date(r.StartDate)
	if err != nil {
		return err
	}
	r.StartDate = start
	if r.EndDate != "" {
		end, err := validation.Date(r.EndDate)
		if err != nil {
			return err
		}
		if end < start {
			return &parsererror.ValidationError{Field: "end_date", Value: end, Reason: "must not be before the start date"}
		}
		r.EndDate = end
	}
	if err := validation.CheckAmount(r.Amount, true); err != nil {
		return err
	}
	if !r.Type.Valid() {
		return &parsererror.ValidationError{Field: "type", Value: string(r.Type), Reason: "must be income or expense"}
	}
	r.Description = validation.Description(r.Description)
	if r.Category == "" {
		r.Category = models.CategoryOther
	}

	next, err := NextDueDateISO(r.StartDate, r.Frequency, today)
	if err != nil {
		return err
	}
	r.NextDueDate = next
	r.IsActive = r.EndDate == "" || next <= r.EndDate
	return nil
}

// Save validates r, recomputes its next due date and inserts it, or updates
// it when it already has an id.
func (s *Service) Save(ctx context.Context, userID string, r *models.RecurringTransaction) error {
	if err := Prepare(r, s.now()); err != nil {
		return err
	}
	r.UserID = userID

	if r.ID == "" {
		if err := s.ds.Insert(ctx, models.TableRecurringTransactions, r); err != nil {
			return err
		}
	} else {
		err := s.ds.Update(ctx, models.TableRecurringTransactions, userID, r.ID, map[string]any{
			"description":   r.Description,
			"category":      r.Category,
			"type":          string(r.Type),
			"amount":        r.Amount,
			"frequency":     string(r.Frequency),
			"start_date":    r.StartDate,
			"end_date":      r.EndDate,
			"next_due_date": r.NextDueDate,
			"is_active":     r.IsActive,
		})
		if err != nil {
			return err
		}
	}

	s.logger.Debug("Saved recurring transaction",
		logging.F(logging.FieldUserID, userID),
		logging.F(logging.FieldTransactionID, r.ID),
		logging.F("next_due_date", r.NextDueDate))
	return nil
}

// Refresh rolls forward every active schedule whose due date has passed and
// returns how many rows changed.
func (s *Service) Refresh(ctx context.Context, userID string) (int, error) {
	today := s.now()
	todayISO := dateOnly(today).Format(models.DateLayout)

	var rows []models.RecurringTransaction
	q := store.Query{UserID: userID}.Where("is_active", true)
	if err := s.ds.Select(ctx, models.TableRecurringTransactions, q, &rows); err != nil {
		return 0, err
	}

	changed := 0
	for _, r := range rows {
		if r.NextDueDate >= todayISO {
			continue
		}
		next, err := NextDueDateISO(r.StartDate, r.Frequency, today)
		if err != nil {
			s.logger.WithError(err).Warn("Skipping invalid recurring transaction",
				logging.F(logging.FieldTransactionID, r.ID))
			continue
		}
		active := r.EndDate == "" || next <= r.EndDate
		if err := s.ds.Update(ctx, models.TableRecurringTransactions, userID, r.ID, map[string]any{
			"next_due_date": next,
			"is_active":     active,
		}); err != nil {
			return changed, err
		}
		changed++
	}

	s.logger.Info("Refreshed recurring schedule",
		logging.F(logging.FieldUserID, userID),
		logging.F(logging.FieldCount, changed))
	return changed, nil
}
