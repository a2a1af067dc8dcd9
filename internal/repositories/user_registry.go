package repositories

import (
	"sort"
	"time"

	"chat-hub/internal/models"
)

// UserRegistry maps logical users to their presence state.
//
// It is not safe for concurrent use; the hub goroutine owns it.
type UserRegistry struct {
	users  map[string]*models.ConnectedUser
	online int
}

// NewUserRegistry creates an empty registry.
func NewUserRegistry() *UserRegistry {
	return &UserRegistry{users: make(map[string]*models.ConnectedUser)}
}

// RegisterOrUpdate creates the entry for userID or, on reconnect, rebinds it to
// connID and marks it online. JoinedAt is only set on creation. The second
// return value reports whether the entry was created.
func (r *UserRegistry) RegisterOrUpdate(userID, displayName, avatarRef, connID string, now time.Time) (models.ConnectedUser, bool) {
	if u, ok := r.users[userID]; ok {
		if !u.IsOnline {
			r.online++
		}
		u.ConnectionID = connID
		u.IsOnline = true
		u.LastSeenAt = now
		if displayName != "" {
			u.DisplayName = displayName
		}
		if avatarRef != "" {
			u.AvatarRef = avatarRef
		}
		return *u, false
	}

	u := &models.ConnectedUser{
		UserID:       userID,
		DisplayName:  displayName,
		AvatarRef:    avatarRef,
		ConnectionID: connID,
		IsOnline:     true,
		LastSeenAt:   now,
		JoinedAt:     now,
	}
	r.users[userID] = u
	r.online++
	return *u, true
}

// MarkOffline flips userID offline only while connID is still the connection
// bound to it. A disconnect from a superseded connection is ignored and
// reported as false.
func (r *UserRegistry) MarkOffline(userID, connID string, now time.Time) bool {
	u, ok := r.users[userID]
	if !ok || u.ConnectionID != connID || !u.IsOnline {
		return false
	}
	u.IsOnline = false
	u.LastSeenAt = now
	r.online--
	return true
}

// Touch refreshes LastSeenAt for an online user.
func (r *UserRegistry) Touch(userID string, now time.Time) {
	if u, ok := r.users[userID]; ok && u.IsOnline {
		u.LastSeenAt = now
	}
}

// PurgeStale removes offline users last seen more than grace ago and returns them.
func (r *UserRegistry) PurgeStale(now time.Time, grace time.Duration) []models.ConnectedUser {
	var removed []models.ConnectedUser
	for id, u := range r.users {
		if !u.IsOnline && now.Sub(u.LastSeenAt) > grace {
			removed = append(removed, *u)
			delete(r.users, id)
		}
	}
	sortUsers(removed)
	return removed
}

// Get returns a copy of the entry for userID.
func (r *UserRegistry) Get(userID string) (models.ConnectedUser, bool) {
	u, ok := r.users[userID]
	if !ok {
		return models.ConnectedUser{}, false
	}
	return *u, true
}

// Snapshot returns copies of all entries ordered by join time.
func (r *UserRegistry) Snapshot() []models.ConnectedUser {
	out := make([]models.ConnectedUser, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	sortUsers(out)
	return out
}

// Len returns the number of registered users, online or not.
func (r *UserRegistry) Len() int {
	return len(r.users)
}

// OnlineCount returns the number of users currently online.
func (r *UserRegistry) OnlineCount() int {
	return r.online
}

func sortUsers(users []models.ConnectedUser) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].JoinedAt.Equal(users[j].JoinedAt) {
			return users[i].UserID < users[j].UserID
		}
		return users[i].JoinedAt.Before(users[j].JoinedAt)
	})
}
