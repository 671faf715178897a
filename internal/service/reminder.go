package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ludotheque/ludo-api/internal/domain"
	"github.com/ludotheque/ludo-api/internal/mailer"
)

var (
	ErrTooFrequentEmails = errors.New("user was already warned recently")
	ErrNoEmail           = errors.New("user has no email")
	ErrNoLateLoan        = errors.New("user has no late loan")
)

type ReminderUserRepository interface {
	FindByID(ctx context.Context, id uint) (domain.User, error)
	SetLastWarning(ctx context.Context, id uint, day time.Time) error
}

type ReminderLoanRepository interface {
	Late(ctx context.Context, day time.Time, userID *uint) ([]domain.Loan, error)
}

type ReminderItemRepository interface {
	FindByIDs(ctx context.Context, ids []uint) (map[uint]domain.Item, error)
}

type Reminder struct {
	Message mailer.Message `json:"message"`
	Loans   []domain.Loan  `json:"loans"`
	Sent    bool           `json:"sent"`
	Error   string         `json:"error,omitempty"`
}

type ReminderService struct {
	users     ReminderUserRepository
	loans     ReminderLoanRepository
	items     ReminderItemRepository
	mailer    mailer.Mailer
	cc        string
	minPeriod int
	loc       *time.Location
	now       Clock
}

func NewReminderService(
	users ReminderUserRepository,
	loans ReminderLoanRepository,
	items ReminderItemRepository,
	m mailer.Mailer,
	cc string,
	minPeriodDays int,
	loc *time.Location,
) *ReminderService {
	return &ReminderService{
		users:     users,
		loans:     loans,
		items:     items,
		mailer:    m,
		cc:        cc,
		minPeriod: minPeriodDays,
		loc:       loc,
		now:       time.Now,
	}
}

// Prepare builds the late return reminder of a user and sends it when send
// is set. A delivery failure is reported in the result, not as an error.
func (s *ReminderService) Prepare(ctx context.Context, operator domain.Identity, userID uint, send bool) (Reminder, error) {
	if err := operator.Require(domain.CapUserManage); err != nil {
		return Reminder{}, err
	}

	today := domain.Today(s.now(), s.loc)

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return Reminder{}, fmt.Errorf("s.users.FindByID -> %w", err)
	}
	if user.LastWarning != nil && domain.DaysBetween(*user.LastWarning, today) < s.minPeriod {
		return Reminder{}, ErrTooFrequentEmails
	}
	if len(user.Emails) == 0 {
		return Reminder{}, ErrNoEmail
	}

	late, err := s.loans.Late(ctx, today, &userID)
	if err != nil {
		return Reminder{}, fmt.Errorf("s.loans.Late -> %w", err)
	}
	if len(late) == 0 {
		return Reminder{}, ErrNoLateLoan
	}

	ids := make([]uint, len(late))
	for i, l := range late {
		ids[i] = l.ItemID
	}
	items, err := s.items.FindByIDs(ctx, ids)
	if err != nil {
		return Reminder{}, fmt.Errorf("s.items.FindByIDs -> %w", err)
	}

	r := Reminder{
		Message: s.message(user, late, items),
		Loans:   late,
	}
	if !send {
		return r, nil
	}

	if err := s.mailer.Send(ctx, r.Message); err != nil {
		zap.L().Warn("reminder not delivered", zap.Uint("user", userID), zap.Error(err))
		r.Error = err.Error()
		return r, nil
	}
	r.Sent = true

	if err := s.users.SetLastWarning(ctx, userID, today); err != nil {
		return r, fmt.Errorf("s.users.SetLastWarning -> %w", err)
	}

	return r, nil
}

func (s *ReminderService) message(user domain.User, late []domain.Loan, items map[uint]domain.Item) mailer.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Bonjour %s,\n\n", user.Name)
	b.WriteString("Les jeux suivants auraient dû être rendus à la ludothèque :\n\n")
	for _, l := range late {
		fmt.Fprintf(&b, " - %s (retour prévu le %s)\n", items[l.ItemID].Name, l.Stop.Format("02/01/2006"))
	}
	b.WriteString("\nMerci de les rapporter lors de la prochaine permanence.\n")

	msg := mailer.Message{
		To:      user.Emails,
		Subject: "Ludothèque : jeux en retard",
		Body:    b.String(),
	}
	if s.cc != "" {
		msg.CC = []string{s.cc}
	}

	return msg
}
