package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ludotheque/ludo-api/internal/domain"
	"github.com/ludotheque/ludo-api/internal/notify"
)

// memStore backs the repository fakes. Transactions snapshot it and roll
// back on error.
type memStore struct {
	mu sync.Mutex

	users    map[uint]domain.User
	digests  map[uint]string
	items    map[uint]domain.Item
	loans    map[uint]domain.Loan
	bookings map[uint]domain.Booking
	ledger   []domain.LedgerEntry
	logs     []domain.EventLog
	seq      uint
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[uint]domain.User{},
		digests:  map[uint]string{},
		items:    map[uint]domain.Item{},
		loans:    map[uint]domain.Loan{},
		bookings: map[uint]domain.Booking{},
	}
}

func (st *memStore) next() uint {
	st.seq++
	return st.seq
}

type snapshot struct {
	users    map[uint]domain.User
	digests  map[uint]string
	items    map[uint]domain.Item
	loans    map[uint]domain.Loan
	bookings map[uint]domain.Booking
	ledger   []domain.LedgerEntry
	logs     []domain.EventLog
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func (st *memStore) snapshot() snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()

	return snapshot{
		users:    copyMap(st.users),
		digests:  copyMap(st.digests),
		items:    copyMap(st.items),
		loans:    copyMap(st.loans),
		bookings: copyMap(st.bookings),
		ledger:   append([]domain.LedgerEntry{}, st.ledger...),
		logs:     append([]domain.EventLog{}, st.logs...),
	}
}

func (st *memStore) restore(s snapshot) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.users, st.digests, st.items = s.users, s.digests, s.items
	st.loans, st.bookings = s.loans, s.bookings
	st.ledger, st.logs = s.ledger, s.logs
}

type fakeTx struct {
	st    *memStore
	calls int
}

func (t *fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	snap := t.st.snapshot()
	if err := fn(ctx); err != nil {
		t.st.restore(snap)
		return err
	}

	return nil
}

func (st *memStore) addUser(u domain.User) domain.User {
	st.mu.Lock()
	defer st.mu.Unlock()

	if u.Credit.IsZero() {
		u.Credit = decimal.Zero
	}
	st.users[u.ID] = u

	return u
}

func (st *memStore) addItem(it domain.Item) domain.Item {
	st.mu.Lock()
	defer st.mu.Unlock()

	if it.ID == 0 {
		it.ID = st.next()
	}
	st.items[it.ID] = it

	return it
}

func (st *memStore) addLoan(l domain.Loan) domain.Loan {
	st.mu.Lock()
	defer st.mu.Unlock()

	l.ID = st.next()
	st.loans[l.ID] = l

	return l
}

func (st *memStore) openLoans(itemID uint) []domain.Loan {
	st.mu.Lock()
	defer st.mu.Unlock()

	var open []domain.Loan
	for _, l := range st.loans {
		if l.ItemID == itemID && l.Status == domain.LoanOut {
			open = append(open, l)
		}
	}

	return open
}

func (st *memStore) user(id uint) domain.User {
	st.mu.Lock()
	defer st.mu.Unlock()

	return st.users[id]
}

type fakeUsers struct{ st *memStore }

func (f fakeUsers) IDs(_ context.Context) ([]uint, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	ids := make([]uint, 0, len(f.st.users))
	for id := range f.st.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

func (f fakeUsers) Create(_ context.Context, u domain.User) (domain.User, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	for _, other := range f.st.users {
		for _, e := range other.Emails {
			for _, mine := range u.Emails {
				if e == mine {
					return domain.User{}, ErrUserEmailExists
				}
			}
		}
	}
	f.st.users[u.ID] = u

	return u, nil
}

func (f fakeUsers) FindByID(_ context.Context, id uint) (domain.User, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	u, ok := f.st.users[id]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}

	return u, nil
}

func (f fakeUsers) FindByIDForUpdate(ctx context.Context, id uint) (domain.User, error) {
	return f.FindByID(ctx, id)
}

func (f fakeUsers) FindEnabledByEmail(_ context.Context, email string) (domain.User, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	for _, u := range f.st.users {
		for _, e := range u.Emails {
			if e == email && u.Enabled {
				return u, nil
			}
		}
	}

	return domain.User{}, ErrUserNotFound
}

func (f fakeUsers) FindEnabledByAPIKey(_ context.Context, digest string) (domain.User, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	for id, d := range f.st.digests {
		if d == digest && f.st.users[id].Enabled {
			return f.st.users[id], nil
		}
	}

	return domain.User{}, ErrUserNotFound
}

func (f fakeUsers) List(_ context.Context, filter domain.UserFilter) ([]domain.User, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	var users []domain.User
	for _, u := range f.st.users {
		if filter.Enabled != nil && u.Enabled != *filter.Enabled {
			continue
		}
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	return users, nil
}

func (f fakeUsers) Update(_ context.Context, u domain.User, replaceEmails bool) (domain.User, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	old, ok := f.st.users[u.ID]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	if !replaceEmails {
		u.Emails = old.Emails
	}
	f.st.users[u.ID] = u

	return u, nil
}

func (f fakeUsers) SetAPIKeyDigest(_ context.Context, id uint, digest string) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	if _, ok := f.st.users[id]; !ok {
		return ErrUserNotFound
	}
	f.st.digests[id] = digest

	return nil
}

func (f fakeUsers) setDate(id uint, set func(*domain.User)) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	u, ok := f.st.users[id]
	if !ok {
		return ErrUserNotFound
	}
	set(&u)
	f.st.users[id] = u

	return nil
}

func (f fakeUsers) TouchLastSeen(_ context.Context, id uint, day time.Time) error {
	return f.setDate(id, func(u *domain.User) { u.LastSeen = &day })
}

func (f fakeUsers) SetLastWarning(_ context.Context, id uint, day time.Time) error {
	return f.setDate(id, func(u *domain.User) { u.LastWarning = &day })
}

func (f fakeUsers) Delete(_ context.Context, id uint) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	if _, ok := f.st.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(f.st.users, id)
	for bid, b := range f.st.bookings {
		if b.UserID == id {
			delete(f.st.bookings, bid)
		}
	}
	for lid, l := range f.st.loans {
		if l.UserID != nil && *l.UserID == id {
			l.UserID = nil
			f.st.loans[lid] = l
		}
	}

	return nil
}

func (f fakeUsers) DemoteExpired(_ context.Context, day time.Time) ([]uint, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	var ids []uint
	for id, u := range f.st.users {
		if u.Role == domain.RoleBenevole && u.Subscription.Before(day) {
			u.Role = domain.RoleUser
			f.st.users[id] = u
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

type fakeItems struct{ st *memStore }

func (f fakeItems) Create(_ context.Context, it domain.Item) (domain.Item, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	it.ID = f.st.next()
	f.st.items[it.ID] = it

	return it, nil
}

func (f fakeItems) FindByID(_ context.Context, id uint) (domain.Item, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	it, ok := f.st.items[id]
	if !ok {
		return domain.Item{}, ErrItemNotFound
	}

	return it, nil
}

func (f fakeItems) FindByIDs(_ context.Context, ids []uint) (map[uint]domain.Item, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	found := make(map[uint]domain.Item, len(ids))
	for _, id := range ids {
		it, ok := f.st.items[id]
		if !ok {
			return nil, ErrItemNotFound
		}
		found[id] = it
	}

	return found, nil
}

func (f fakeItems) FindByIDsForUpdate(ctx context.Context, ids []uint) (map[uint]domain.Item, error) {
	return f.FindByIDs(ctx, ids)
}

func (f fakeItems) List(_ context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	var items []domain.Item
	for _, it := range f.st.items {
		if filter.Enabled != nil && it.Enabled != *filter.Enabled {
			continue
		}
		if filter.Big != nil && it.Big != *filter.Big {
			continue
		}
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

	return items, nil
}

func (f fakeItems) Update(_ context.Context, it domain.Item) (domain.Item, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	if _, ok := f.st.items[it.ID]; !ok {
		return domain.Item{}, ErrItemNotFound
	}
	f.st.items[it.ID] = it

	return it, nil
}

func (f fakeItems) TouchLastSeen(_ context.Context, ids []uint, day time.Time) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	for _, id := range ids {
		it := f.st.items[id]
		it.LastSeen = &day
		f.st.items[id] = it
	}

	return nil
}

func (f fakeItems) Delete(_ context.Context, id uint) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	if _, ok := f.st.items[id]; !ok {
		return ErrItemNotFound
	}
	delete(f.st.items, id)
	for lid, l := range f.st.loans {
		if l.ItemID == id {
			delete(f.st.loans, lid)
		}
	}
	for bid, b := range f.st.bookings {
		if b.ItemID == id {
			delete(f.st.bookings, bid)
		}
	}

	return nil
}

func (f fakeItems) NotSeenBefore(_ context.Context, day time.Time) ([]domain.Item, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	var items []domain.Item
	for _, it := range f.st.items {
		if it.Enabled && !it.Big && !it.Outside && it.LastSeen != nil && it.LastSeen.Before(day) {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].LastSeen.Equal(*items[j].LastSeen) {
			return items[i].LastSeen.Before(*items[j].LastSeen)
		}
		return items[i].ID < items[j].ID
	})

	return items, nil
}

func (f fakeItems) LeastLoaned(_ context.Context, limit int) ([]domain.ItemLoans, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	counts := map[uint]int64{}
	for _, l := range f.st.loans {
		counts[l.ItemID]++
	}

	var report []domain.ItemLoans
	for _, it := range f.st.items {
		if it.Enabled {
			report = append(report, domain.ItemLoans{Item: it, Loans: counts[it.ID]})
		}
	}
	sort.Slice(report, func(i, j int) bool {
		if report[i].Loans != report[j].Loans {
			return report[i].Loans < report[j].Loans
		}
		return report[i].ID > report[j].ID
	})
	if len(report) > limit {
		report = report[:limit]
	}

	return report, nil
}

type fakeLoans struct{ st *memStore }

func (f fakeLoans) Create(_ context.Context, l domain.Loan) (domain.Loan, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	l.ID = f.st.next()
	f.st.loans[l.ID] = l

	return l, nil
}

func (f fakeLoans) FindByID(_ context.Context, id uint) (domain.Loan, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	l, ok := f.st.loans[id]
	if !ok {
		return domain.Loan{}, ErrLoanNotFound
	}

	return l, nil
}

func (f fakeLoans) FindByIDForUpdate(ctx context.Context, id uint) (domain.Loan, error) {
	return f.FindByID(ctx, id)
}

func (f fakeLoans) sorted(keep func(domain.Loan) bool) []domain.Loan {
	var loans []domain.Loan
	for _, l := range f.st.loans {
		if keep(l) {
			loans = append(loans, l)
		}
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].ID < loans[j].ID })

	return loans
}

func (f fakeLoans) List(_ context.Context, filter domain.LoanFilter) ([]domain.Loan, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	return f.sorted(func(l domain.Loan) bool {
		if filter.UserID != nil && (l.UserID == nil || *l.UserID != *filter.UserID) {
			return false
		}
		if filter.ItemID != nil && l.ItemID != *filter.ItemID {
			return false
		}
		return filter.Status == nil || l.Status == *filter.Status
	}), nil
}

func (f fakeLoans) OutItemIDs(_ context.Context, userID uint, itemIDs []uint) ([]uint, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	want := map[uint]bool{}
	for _, id := range itemIDs {
		want[id] = true
	}

	var held []uint
	for _, l := range f.sorted(func(l domain.Loan) bool {
		return l.Status == domain.LoanOut && l.UserID != nil && *l.UserID == userID && want[l.ItemID]
	}) {
		held = append(held, l.ItemID)
	}

	return held, nil
}

func (f fakeLoans) CloseOutForItems(_ context.Context, itemIDs []uint, day time.Time) (int64, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	var n int64
	for _, id := range itemIDs {
		for lid, l := range f.st.loans {
			if l.ItemID == id && l.Status == domain.LoanOut {
				l.Status, l.Stop = domain.LoanIn, day
				f.st.loans[lid] = l
				n++
			}
		}
	}

	return n, nil
}

func (f fakeLoans) Update(_ context.Context, l domain.Loan) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	if _, ok := f.st.loans[l.ID]; !ok {
		return ErrLoanNotFound
	}
	f.st.loans[l.ID] = l

	return nil
}

func (f fakeLoans) Delete(_ context.Context, id uint) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	if _, ok := f.st.loans[id]; !ok {
		return ErrLoanNotFound
	}
	delete(f.st.loans, id)

	return nil
}

func (f fakeLoans) Late(_ context.Context, day time.Time, userID *uint) ([]domain.Loan, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	return f.sorted(func(l domain.Loan) bool {
		if userID != nil && (l.UserID == nil || *l.UserID != *userID) {
			return false
		}
		return l.Late(day)
	}), nil
}

func (f fakeLoans) ActiveAround(_ context.Context, day, since time.Time) ([]domain.Loan, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	return f.sorted(func(l domain.Loan) bool {
		return !l.Start.After(day) && (!l.Stop.Before(since) || l.Status == domain.LoanOut)
	}), nil
}

type fakeBookings struct{ st *memStore }

func (f fakeBookings) Create(_ context.Context, b domain.Booking) (domain.Booking, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	b.ID = f.st.next()
	f.st.bookings[b.ID] = b

	return b, nil
}

func (f fakeBookings) Exists(_ context.Context, userID, itemID uint) (bool, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	for _, b := range f.st.bookings {
		if b.UserID == userID && b.ItemID == itemID {
			return true, nil
		}
	}

	return false, nil
}

func (f fakeBookings) CountForUser(_ context.Context, userID uint) (int, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	n := 0
	for _, b := range f.st.bookings {
		if b.UserID == userID {
			n++
		}
	}

	return n, nil
}

func (f fakeBookings) DeleteOwned(_ context.Context, userID, bookingID uint) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	b, ok := f.st.bookings[bookingID]
	if !ok || b.UserID != userID {
		return ErrBookingNotFound
	}
	delete(f.st.bookings, bookingID)

	return nil
}

func (f fakeBookings) List(_ context.Context, userID *uint) ([]domain.Booking, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	var bookings []domain.Booking
	for _, b := range f.st.bookings {
		if userID == nil || b.UserID == *userID {
			bookings = append(bookings, b)
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID < bookings[j].ID })

	return bookings, nil
}

type fakeLedger struct{ st *memStore }

func (f fakeLedger) Append(_ context.Context, entries []domain.LedgerEntry) ([]domain.LedgerEntry, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	for i := range entries {
		entries[i].ID = f.st.next()
		f.st.ledger = append(f.st.ledger, entries[i])
	}

	return entries, nil
}

func (f fakeLedger) List(_ context.Context, filter domain.LedgerFilter) ([]domain.LedgerEntry, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	var entries []domain.LedgerEntry
	for _, e := range f.st.ledger {
		if filter.From != nil && e.Day.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.Day.After(*filter.To) {
			continue
		}
		if filter.UserID != nil && e.UserID != *filter.UserID {
			continue
		}
		entries = append(entries, e)
	}

	return entries, nil
}

func (f fakeLedger) AppendLog(_ context.Context, operatorID uint, message string) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	f.st.logs = append(f.st.logs, domain.EventLog{ID: f.st.next(), OperatorID: operatorID, Message: message, CreatedAt: time.Now()})

	return nil
}

func (f fakeLedger) Logs(_ context.Context, limit int) ([]domain.EventLog, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	if limit > len(f.st.logs) {
		limit = len(f.st.logs)
	}

	return append([]domain.EventLog{}, f.st.logs[:limit]...), nil
}

func (f fakeLedger) PruneLogs(_ context.Context, before time.Time) (int64, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	kept := f.st.logs[:0]
	var n int64
	for _, l := range f.st.logs {
		if l.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, l)
	}
	f.st.logs = kept

	return n, nil
}

type fixedDueDate struct{ due time.Time }

func (f fixedDueDate) DueDate(time.Time) time.Time {
	return f.due
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, e)

	return p.err
}

func date(s string) time.Time {
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}

	return d
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
