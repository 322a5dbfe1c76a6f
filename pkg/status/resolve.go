// Package status decides which notice, if any, a session must force-display.
//
// Resolution is a pure function of a store snapshot and the session's local
// dedup state. Tiers are evaluated in strict priority order and the first
// match wins:
//
//	lock       newest URGENT notice; blocks all interaction, cannot be dismissed
//	promotion  newest PROMO notice; shown on every resolution, read state ignored
//	popup      newest unread forced popup not suppressed locally
//	idle       nothing forced; pushed passive notices become toasts
package status

import (
	"github.com/angelmondragon/noticecast/pkg/db/models"
)

// Tier is one of the mutually exclusive resolution outcomes.
type Tier string

const (
	TierLock      Tier = "lock"
	TierPromotion Tier = "promotion"
	TierPopup     Tier = "popup"
	TierIdle      Tier = "idle"
)

// Snapshot is the store state a resolution runs against. Lower tiers may be
// left empty when a higher tier already matched.
type Snapshot struct {
	Urgent       *models.Notice
	Promo        *models.Notice
	UnreadPopups []models.Notice
}

// Dedup reports notices the session already surfaced and should not show
// again. A nil Dedup suppresses nothing.
type Dedup interface {
	Suppressed(noticeID int64) bool
}

// Resolution is the screen action a session must take.
type Resolution struct {
	Tier   Tier           `json:"tier"`
	Notice *models.Notice `json:"notice"`
}

// Idle is the resolution with nothing to force-display.
var Idle = Resolution{Tier: TierIdle}

// Blocking reports whether the session must show an interstitial.
func (r Resolution) Blocking() bool {
	return r.Tier != TierIdle && r.Notice != nil
}

// Locked reports whether the session is in the maintenance lock.
func (r Resolution) Locked() bool {
	return r.Tier == TierLock
}

// Resolve picks the resolution for the snapshot.
func Resolve(snap Snapshot, dedup Dedup) Resolution {
	if snap.Urgent != nil {
		return Resolution{Tier: TierLock, Notice: snap.Urgent}
	}
	if snap.Promo != nil {
		return Resolution{Tier: TierPromotion, Notice: snap.Promo}
	}
	for i := range snap.UnreadPopups {
		candidate := &snap.UnreadPopups[i]
		if !candidate.EffectiveForcedPopup() {
			continue
		}
		if dedup != nil && dedup.Suppressed(candidate.ID) {
			continue
		}
		return Resolution{Tier: TierPopup, Notice: candidate}
	}
	return Idle
}
