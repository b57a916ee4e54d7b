package entity

import "time"

// PresenceWindow is how long a heartbeat keeps the admin online.
const PresenceWindow = 5 * time.Minute

// Presence is the single admin/status record. IsOnline is what the admin
// client last asserted; LastSeen decides.
type Presence struct {
	IsOnline bool      `json:"isOnline" firestore:"isOnline"`
	LastSeen time.Time `json:"lastSeen" firestore:"lastSeen,serverTimestamp"`
}

// OnlineAt reports whether the heartbeat is still fresh at now.
func (p *Presence) OnlineAt(now time.Time) bool {
	if p == nil || p.LastSeen.IsZero() {
		return false
	}
	return now.Sub(p.LastSeen) < PresenceWindow
}
