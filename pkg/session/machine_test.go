package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/noticecast/pkg/db/models"
	"github.com/angelmondragon/noticecast/pkg/enums"
	"github.com/angelmondragon/noticecast/pkg/status"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func notice(id int64, category enums.NoticeCategory, forced bool, offset time.Duration) *models.Notice {
	return &models.Notice{ID: id, Title: "n", Body: "b", Category: category, ForcedPopup: forced, CreatedAt: t0.Add(offset)}
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestMachine(ttl time.Duration) (*Machine, *clock) {
	c := &clock{now: t0}
	return NewMachine(MachineParams{ToastTTL: ttl, Now: c.Now}), c
}

func TestMachineStartsResolving(t *testing.T) {
	m, _ := newTestMachine(0)
	assert.Equal(t, StateResolving, m.State())
	assert.Equal(t, Action{Kind: ActionPull}, m.Begin())
}

func TestMachineApplyTiers(t *testing.T) {
	cases := []struct {
		name  string
		res   status.Resolution
		state State
		kind  ActionKind
	}{
		{"lock", status.Resolution{Tier: status.TierLock, Notice: notice(1, enums.NoticeCategoryUrgent, false, 0)}, StateLocked, ActionLock},
		{"promo", status.Resolution{Tier: status.TierPromotion, Notice: notice(2, enums.NoticeCategoryPromo, false, 0)}, StatePromoShown, ActionInterstitial},
		{"popup", status.Resolution{Tier: status.TierPopup, Notice: notice(3, enums.NoticeCategoryInfo, true, 0)}, StatePopupShown, ActionInterstitial},
		{"idle", status.Idle, StateIdle, ActionClear},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, _ := newTestMachine(0)
			m.Begin()
			action := m.Apply(tc.res)
			assert.Equal(t, tc.kind, action.Kind)
			assert.Equal(t, tc.state, m.State())
		})
	}
}

func TestMachineLockedIsSink(t *testing.T) {
	m, _ := newTestMachine(0)
	m.Apply(status.Resolution{Tier: status.TierLock, Notice: notice(1, enums.NoticeCategoryUrgent, false, 0)})

	_, err := m.Dismiss(1)
	require.ErrorIs(t, err, ErrLocked)

	assert.Equal(t, ActionNone, m.HandleEvent(enums.BroadcastEventNoticeCreated, notice(2, enums.NoticeCategoryPromo, false, time.Minute)).Kind)
	assert.Equal(t, ActionNone, m.HandleEvent(enums.BroadcastEventNoticeCreated, notice(3, enums.NoticeCategoryInfo, false, time.Minute)).Kind)
	assert.Empty(t, m.Toasts())
	assert.Equal(t, StateLocked, m.State())

	action := m.HandleEvent(enums.BroadcastEventNoticeCreated, notice(4, enums.NoticeCategoryUrgent, false, time.Hour))
	assert.Equal(t, ActionLock, action.Kind)
	assert.Equal(t, int64(4), m.Current().ID)

	// operator deleted the urgent notice
	assert.Equal(t, ActionPull, m.HandleEvent(enums.BroadcastEventSystemChanged, nil).Kind)
	assert.Equal(t, StateResolving, m.State())
	assert.Equal(t, ActionClear, m.Apply(status.Idle).Kind)
	assert.Equal(t, StateIdle, m.State())
}

func TestMachineDismissPopupMarksRead(t *testing.T) {
	m, _ := newTestMachine(0)
	m.Apply(status.Resolution{Tier: status.TierPopup, Notice: notice(5, enums.NoticeCategoryWarning, true, 0)})

	_, err := m.Dismiss(6)
	require.ErrorIs(t, err, ErrNotDisplayed)

	markRead, err := m.Dismiss(5)
	require.NoError(t, err)
	assert.True(t, markRead)
	assert.Equal(t, StateIdle, m.State())
	assert.True(t, m.Dedup().Suppressed(5))

	_, err = m.Dismiss(5)
	require.ErrorIs(t, err, ErrNotDisplayed)
}

func TestMachinePromoResurfacesAfterDismiss(t *testing.T) {
	m, _ := newTestMachine(0)
	promo := status.Resolution{Tier: status.TierPromotion, Notice: notice(7, enums.NoticeCategoryPromo, false, 0)}
	m.Apply(promo)

	markRead, err := m.Dismiss(7)
	require.NoError(t, err)
	assert.True(t, markRead)
	m.Dedup().ConfirmRead(7)

	m.Begin()
	assert.Equal(t, ActionInterstitial, m.Apply(promo).Kind)
	assert.Equal(t, StatePromoShown, m.State())
}

func TestMachineSuppressedPopupResolvesIdle(t *testing.T) {
	m, _ := newTestMachine(0)
	m.Dedup().MarkReadPending(8)
	action := m.Apply(status.Resolution{Tier: status.TierPopup, Notice: notice(8, enums.NoticeCategoryInfo, true, 0)})
	assert.Equal(t, ActionClear, action.Kind)
	assert.Equal(t, StateIdle, m.State())
}

func TestMachinePushedNoticeTiers(t *testing.T) {
	m, _ := newTestMachine(0)
	m.Apply(status.Idle)

	forced := m.HandleEvent(enums.BroadcastEventNoticeCreated, notice(10, enums.NoticeCategoryInfo, true, 0))
	assert.Equal(t, ActionInterstitial, forced.Kind)
	assert.Equal(t, StatePopupShown, m.State())
	assert.Empty(t, m.Toasts(), "a forced notice is never also toasted")

	promo := m.HandleEvent(enums.BroadcastEventNoticeCreated, notice(11, enums.NoticeCategoryPromo, false, time.Second))
	assert.Equal(t, ActionInterstitial, promo.Kind)
	assert.Equal(t, StatePromoShown, m.State())

	hidden := m.HandleEvent(enums.BroadcastEventNoticeCreated, notice(12, enums.NoticeCategorySuccess, true, 2*time.Second))
	assert.Equal(t, ActionNone, hidden.Kind, "popups wait behind a promotion")

	lock := m.HandleEvent(enums.BroadcastEventNoticeCreated, notice(13, enums.NoticeCategoryUrgent, false, 3*time.Second))
	assert.Equal(t, ActionLock, lock.Kind)
	assert.Equal(t, StateLocked, m.State())
}

func TestMachineToastsExpire(t *testing.T) {
	m, c := newTestMachine(5 * time.Second)
	m.Apply(status.Idle)

	action := m.HandleEvent(enums.BroadcastEventNoticeCreated, notice(20, enums.NoticeCategoryInfo, false, 0))
	require.Equal(t, ActionToast, action.Kind)
	c.now = c.now.Add(2 * time.Second)
	m.HandleEvent(enums.BroadcastEventNoticeCreated, notice(21, enums.NoticeCategoryWarning, false, time.Second))

	toasts := m.Toasts()
	require.Len(t, toasts, 2)
	assert.Equal(t, int64(20), toasts[0].Notice.ID, "arrival order")

	c.now = c.now.Add(4 * time.Second)
	toasts = m.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, int64(21), toasts[0].Notice.ID)
}

func TestMachineManualToasts(t *testing.T) {
	m, c := newTestMachine(0)
	m.Apply(status.Idle)

	m.HandleEvent(enums.BroadcastEventNoticeCreated, notice(30, enums.NoticeCategoryInfo, false, 0))
	m.HandleEvent(enums.BroadcastEventNoticeCreated, notice(31, enums.NoticeCategoryInfo, false, 0))
	assert.Equal(t, ActionNone, m.HandleEvent(enums.BroadcastEventNoticeCreated, notice(30, enums.NoticeCategoryInfo, false, 0)).Kind)

	c.now = c.now.Add(24 * time.Hour)
	require.Len(t, m.Toasts(), 2)

	assert.True(t, m.DismissToast(30))
	assert.False(t, m.DismissToast(30))
	opened, ok := m.OpenToast(31)
	require.True(t, ok)
	assert.Equal(t, int64(31), opened.ID)
	assert.Empty(t, m.Toasts())

	assert.Equal(t, ActionNone, m.HandleEvent(enums.BroadcastEventNoticeCreated, notice(30, enums.NoticeCategoryInfo, false, 0)).Kind)
	assert.Equal(t, ActionNone, m.HandleEvent(enums.BroadcastEventNoticeCreated, notice(31, enums.NoticeCategoryInfo, false, 0)).Kind)
}
