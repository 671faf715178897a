package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludotheque/ludo-api/internal/domain"
)

func newUserFixture() (*UserService, *memStore) {
	st := newMemStore()
	svc := NewUserService(&fakeTx{st: st}, fakeUsers{st}, fakeLoans{st}, fakeLedger{st}, "akld", time.UTC)
	svc.now = fixedClock(saturdayNoon)

	return svc, st
}

func ptr[T any](v T) *T {
	return &v
}

func TestCreate_ReusesLowestFreeID(t *testing.T) {
	svc, st := newUserFixture()
	st.addUser(domain.User{ID: 1, Name: "seed", Enabled: true, Role: domain.RoleAdmin})

	ids := map[string]uint{}
	for _, name := range []string{"A", "B", "D"} {
		u, err := svc.Create(context.Background(), admin, domain.UserPatch{Name: ptr(name)})
		require.NoError(t, err)
		ids[name] = u.ID
	}
	assert.Equal(t, map[string]uint{"A": 2, "B": 3, "D": 4}, ids)

	require.NoError(t, svc.Delete(context.Background(), admin, 2))

	e, err := svc.Create(context.Background(), admin, domain.UserPatch{Name: ptr("E")})
	require.NoError(t, err)
	assert.Equal(t, uint(2), e.ID)
	assert.Equal(t, domain.RoleUser, e.Role)
	assert.True(t, e.Enabled)

	assert.Len(t, st.logs, 5)
}

func TestCreate_Validation(t *testing.T) {
	svc, st := newUserFixture()
	st.addUser(domain.User{ID: 1, Name: "seed", Enabled: true, Emails: []string{"taken@example.org"}})

	_, err := svc.Create(context.Background(), admin, domain.UserPatch{})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = svc.Create(context.Background(), admin, domain.UserPatch{Name: ptr("x"), Credit: ptr(dec("150"))})
	assert.Error(t, err)

	_, err = svc.Create(context.Background(), admin, domain.UserPatch{Name: ptr("x"), Emails: &[]string{"not-an-email"}})
	assert.Error(t, err)

	_, err = svc.Create(context.Background(), admin, domain.UserPatch{Name: ptr("x"), Emails: &[]string{"Taken@example.org"}})
	assert.ErrorIs(t, err, ErrUserEmailExists)

	_, err = svc.Create(context.Background(), member, domain.UserPatch{Name: ptr("x")})
	var forbidden *domain.ForbiddenError
	assert.ErrorAs(t, err, &forbidden)

	_, err = svc.Create(context.Background(), benevole, domain.UserPatch{Name: ptr("x"), Role: ptr(domain.RoleAdmin)})
	assert.ErrorAs(t, err, &forbidden)

	assert.Len(t, st.users, 1)
}

func TestUpdate(t *testing.T) {
	svc, st := newUserFixture()
	st.addUser(domain.User{ID: 5, Name: "Zoé", Enabled: true, Role: domain.RoleUser, Credit: dec("10"), Emails: []string{"zoe@example.org"}})

	updated, err := svc.Update(context.Background(), benevole, 5, domain.UserPatch{
		Credit: ptr(dec("20")),
		Notes:  ptr("prefers coop games"),
	})
	require.NoError(t, err)
	assertDec(t, "20", updated.Credit)
	assert.Equal(t, "prefers coop games", updated.Notes)
	assert.Equal(t, []string{"zoe@example.org"}, updated.Emails)

	updated, err = svc.Update(context.Background(), admin, 5, domain.UserPatch{
		Role:   ptr(domain.RoleBenevole),
		Emails: &[]string{"Zoe@Example.org", "z2@example.org", "zoe@example.org"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleBenevole, updated.Role)
	assert.Equal(t, []string{"zoe@example.org", "z2@example.org"}, updated.Emails)

	_, err = svc.Update(context.Background(), admin, 5, domain.UserPatch{Credit: ptr(dec("-1"))})
	assert.Error(t, err)
	assertDec(t, "20", st.user(5).Credit)

	_, err = svc.Update(context.Background(), admin, 77, domain.UserPatch{Notes: ptr("x")})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDelete_KeepsLoans(t *testing.T) {
	svc, st := newUserFixture()
	u := st.addUser(domain.User{ID: 5, Name: "x", Enabled: true})
	it := st.addItem(domain.Item{Name: "Uno"})
	l := st.addLoan(domain.Loan{UserID: &u.ID, ItemID: it.ID, Start: date("2026-09-01"), Stop: date("2026-09-20"), Status: domain.LoanIn})

	require.NoError(t, svc.Delete(context.Background(), admin, u.ID))
	assert.Nil(t, st.loans[l.ID].UserID)
	assert.ErrorIs(t, svc.Delete(context.Background(), admin, u.ID), ErrUserNotFound)
}

func TestSearch(t *testing.T) {
	svc, st := newUserFixture()
	st.addUser(domain.User{ID: 1, Name: "Hélène Dupré", Enabled: true, Emails: []string{"helene@example.org"}})
	st.addUser(domain.User{ID: 2, Name: "Marc", Enabled: true, Emails: []string{"marc@example.org"}})
	st.addUser(domain.User{ID: 12, Name: "Léa", Enabled: false})

	names := func(users []domain.User) []string {
		var out []string
		for _, u := range users {
			out = append(out, u.Name)
		}
		return out
	}

	found, err := svc.Search(context.Background(), benevole, domain.UserFilter{Search: "helene"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hélène Dupré"}, names(found))

	found, err = svc.Search(context.Background(), benevole, domain.UserFilter{Search: "DUPRE"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hélène Dupré"}, names(found))

	found, err = svc.Search(context.Background(), benevole, domain.UserFilter{Search: "marc@"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Marc"}, names(found))

	found, err = svc.Search(context.Background(), benevole, domain.UserFilter{Search: "1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hélène Dupré", "Léa"}, names(found))

	found, err = svc.Search(context.Background(), benevole, domain.UserFilter{Enabled: ptr(true)})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = svc.Search(context.Background(), benevole, domain.UserFilter{Search: "a.c"})
	require.NoError(t, err)
	assert.Empty(t, found, "query is literal")

	_, err = svc.Search(context.Background(), member, domain.UserFilter{})
	var forbidden *domain.ForbiddenError
	assert.ErrorAs(t, err, &forbidden)
}

func TestGetAndHistory_Visibility(t *testing.T) {
	svc, st := newUserFixture()
	me := st.addUser(domain.User{ID: member.UserID, Name: "me", Enabled: true})
	st.addUser(domain.User{ID: 9, Name: "other", Enabled: true})
	it := st.addItem(domain.Item{Name: "Uno"})
	st.addLoan(domain.Loan{UserID: &me.ID, ItemID: it.ID, Start: date("2026-09-01"), Stop: date("2026-09-20"), Status: domain.LoanIn})

	_, err := svc.Get(context.Background(), member, me.ID)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), member, 9)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Get(context.Background(), benevole, 9)
	assert.NoError(t, err)

	history, err := svc.History(context.Background(), member, me.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = svc.History(context.Background(), member, 9)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRotateAPIKey(t *testing.T) {
	svc, st := newUserFixture()
	st.addUser(domain.User{ID: member.UserID, Name: "me", Enabled: true})

	key, err := svc.RotateAPIKey(context.Background(), member, member.UserID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "akld"))
	assert.Equal(t, DigestAPIKey(key), st.digests[member.UserID])
	assert.NotContains(t, st.digests[member.UserID], key)

	again, err := svc.RotateAPIKey(context.Background(), admin, member.UserID)
	require.NoError(t, err)
	assert.NotEqual(t, key, again)

	_, err = svc.RotateAPIKey(context.Background(), benevole, member.UserID)
	var forbidden *domain.ForbiddenError
	assert.ErrorAs(t, err, &forbidden)
}

func TestResetExpiredRoles(t *testing.T) {
	svc, st := newUserFixture()
	st.addUser(domain.User{ID: 1, Role: domain.RoleBenevole, Subscription: date("2026-10-01")})
	st.addUser(domain.User{ID: 2, Role: domain.RoleBenevole, Subscription: date("2027-10-01")})
	st.addUser(domain.User{ID: 3, Role: domain.RoleAdmin, Subscription: date("2020-10-01")})

	ids, err := svc.ResetExpiredRoles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, ids)
	assert.Equal(t, domain.RoleUser, st.user(1).Role)
	assert.Equal(t, domain.RoleBenevole, st.user(2).Role)
	assert.Equal(t, domain.RoleAdmin, st.user(3).Role)
}

func TestPruneLogs(t *testing.T) {
	svc, st := newUserFixture()
	st.logs = []domain.EventLog{
		{ID: 1, Message: "old", CreatedAt: saturdayNoon.AddDate(-2, 0, 0)},
		{ID: 2, Message: "recent", CreatedAt: saturdayNoon.AddDate(0, -1, 0)},
	}

	n, err := svc.PruneLogs(context.Background(), 365*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.Len(t, st.logs, 1)
	assert.Equal(t, "recent", st.logs[0].Message)

	_, err = svc.Logs(context.Background(), benevole, 10)
	var forbidden *domain.ForbiddenError
	assert.ErrorAs(t, err, &forbidden)

	logs, err := svc.Logs(context.Background(), admin, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
