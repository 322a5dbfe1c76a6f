package session

import (
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/noticecast/pkg/db/models"
	"github.com/angelmondragon/noticecast/pkg/enums"
	"github.com/angelmondragon/noticecast/pkg/status"
)

// State is the screen a session is in.
type State string

const (
	StateResolving  State = "resolving"
	StateLocked     State = "locked"
	StatePromoShown State = "promo_shown"
	StatePopupShown State = "popup_shown"
	StateIdle       State = "idle"
)

var (
	ErrLocked       = errors.New("session is locked")
	ErrNotDisplayed = errors.New("notice is not the displayed interstitial")
)

// ActionKind tells the driver what to do after a transition.
type ActionKind string

const (
	ActionNone         ActionKind = "none"
	ActionPull         ActionKind = "pull"
	ActionLock         ActionKind = "lock"
	ActionInterstitial ActionKind = "interstitial"
	ActionToast        ActionKind = "toast"
	ActionClear        ActionKind = "clear"
)

type Action struct {
	Kind   ActionKind
	Notice *models.Notice
}

// Toast is a passive, non-blocking notice. A zero ExpiresAt means it stays
// until dismissed.
type Toast struct {
	Notice    models.Notice
	ShownAt   time.Time
	ExpiresAt time.Time
}

func (t Toast) expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

type MachineParams struct {
	Dedup    *DedupState
	ToastTTL time.Duration
	Now      func() time.Time
}

// Machine drives Resolving -> {Locked | PromoShown | PopupShown | Idle}.
type Machine struct {
	mu       sync.Mutex
	state    State
	current  *models.Notice
	toasts   []Toast
	dedup    *DedupState
	toastTTL time.Duration
	now      func() time.Time
}

func NewMachine(params MachineParams) *Machine {
	dedup := params.Dedup
	if dedup == nil {
		dedup = NewDedupState()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Machine{
		state:    StateResolving,
		dedup:    dedup,
		toastTTL: params.ToastTTL,
		now:      now,
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the notice on the lock screen or interstitial, if any.
func (m *Machine) Current() *models.Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	n := *m.current
	return &n
}

func (m *Machine) Dedup() *DedupState { return m.dedup }

// Begin enters Resolving. The driver must pull and call Apply.
func (m *Machine) Begin() Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateResolving
	return Action{Kind: ActionPull}
}

// Apply installs a fresh resolution. A resolution always wins over whatever
// pushed events showed before it.
func (m *Machine) Apply(res status.Resolution) Action {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case res.Tier == status.TierLock && res.Notice != nil:
		return m.show(StateLocked, ActionLock, *res.Notice)
	case res.Tier == status.TierPromotion && res.Notice != nil:
		return m.show(StatePromoShown, ActionInterstitial, *res.Notice)
	case res.Tier == status.TierPopup && res.Notice != nil && !m.dedup.Suppressed(res.Notice.ID):
		return m.show(StatePopupShown, ActionInterstitial, *res.Notice)
	}
	m.state = StateIdle
	m.current = nil
	return Action{Kind: ActionClear}
}

// Dismiss closes the displayed interstitial. markRead is true when the server
// should record the read; PROMO is marked too but keeps re-surfacing.
func (m *Machine) Dismiss(id int64) (markRead bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateLocked:
		return false, ErrLocked
	case StatePromoShown, StatePopupShown:
	default:
		return false, ErrNotDisplayed
	}
	if m.current == nil || m.current.ID != id {
		return false, ErrNotDisplayed
	}

	if m.state == StatePopupShown {
		m.dedup.MarkReadPending(id)
	}
	m.state = StateIdle
	m.current = nil
	return true, nil
}

// HandleEvent reacts to a pushed event. system_changed asks for a pull;
// notice_created evaluates the lock, promotion and popup tiers for the single
// pushed notice and toasts it otherwise.
func (m *Machine) HandleEvent(kind enums.BroadcastEventKind, notice *models.Notice) Action {
	if kind == enums.BroadcastEventSystemChanged {
		return m.Begin()
	}
	if kind != enums.BroadcastEventNoticeCreated || notice == nil {
		return Action{Kind: ActionNone}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n := *notice
	if m.state == StateLocked {
		if n.Category == enums.NoticeCategoryUrgent && m.current != nil && newer(n, *m.current) {
			return m.show(StateLocked, ActionLock, n)
		}
		return Action{Kind: ActionNone}
	}

	switch {
	case n.Category == enums.NoticeCategoryUrgent:
		return m.show(StateLocked, ActionLock, n)
	case n.Category == enums.NoticeCategoryPromo:
		return m.show(StatePromoShown, ActionInterstitial, n)
	case n.EffectiveForcedPopup():
		if m.dedup.Suppressed(n.ID) || m.state == StatePromoShown {
			return Action{Kind: ActionNone}
		}
		return m.show(StatePopupShown, ActionInterstitial, n)
	}

	if m.dedup.Suppressed(n.ID) || m.queued(n.ID) {
		return Action{Kind: ActionNone}
	}
	toast := Toast{Notice: n, ShownAt: m.now()}
	if m.toastTTL > 0 {
		toast.ExpiresAt = toast.ShownAt.Add(m.toastTTL)
	}
	m.toasts = append(m.toasts, toast)
	return Action{Kind: ActionToast, Notice: &toast.Notice}
}

// Toasts returns live toasts in arrival order and drops expired ones.
func (m *Machine) Toasts() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneToasts()
	out := make([]Toast, len(m.toasts))
	copy(out, m.toasts)
	return out
}

// DismissToast closes a toast without opening it.
func (m *Machine) DismissToast(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.removeToast(id) {
		return false
	}
	m.dedup.MarkDismissed(id)
	return true
}

// OpenToast removes a toast the user clicked. The caller marks it read.
func (m *Machine) OpenToast(id int64) (*models.Notice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneToasts()
	for _, toast := range m.toasts {
		if toast.Notice.ID != id {
			continue
		}
		n := toast.Notice
		m.removeToast(id)
		m.dedup.MarkReadPending(id)
		return &n, true
	}
	return nil, false
}

func (m *Machine) show(state State, kind ActionKind, n models.Notice) Action {
	m.state = state
	m.current = &n
	m.removeToast(n.ID)
	shown := n
	return Action{Kind: kind, Notice: &shown}
}

func (m *Machine) queued(id int64) bool {
	for _, toast := range m.toasts {
		if toast.Notice.ID == id {
			return true
		}
	}
	return false
}

func (m *Machine) removeToast(id int64) bool {
	for i, toast := range m.toasts {
		if toast.Notice.ID == id {
			m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Machine) pruneToasts() {
	now := m.now()
	kept := m.toasts[:0]
	for _, toast := range m.toasts {
		if !toast.expired(now) {
			kept = append(kept, toast)
		}
	}
	m.toasts = kept
}

func newer(a, b models.Notice) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}
