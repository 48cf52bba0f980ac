package statemachine

import (
	"time"

	"github.com/latticedb/lattice/keeper/zkerr"
)

// Session tracks one client's lease: its negotiated timeout, last
// heartbeat, and the auth credentials attached via the Auth operation.
type Session struct {
	ID            int64
	Timeout       time.Duration
	LastHeartbeat time.Time
	Auths         []AuthInfo
}

// AuthInfo is a (scheme, credential) pair attached by an Auth op, used
// later for ACL checks against a node's permission list.
type AuthInfo struct {
	Scheme     string
	Credential string
}

func (s *Session) expiresAt() time.Time { return s.LastHeartbeat.Add(s.Timeout) }

// NewSession allocates the next session id from the counter and
// records (id -> timeout). This only runs after the allocating
// request has been committed through consensus.
func (sm *StateMachine) NewSession(now time.Time, timeout time.Duration) int64 {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessionIDCounter++
	id := sm.sessionIDCounter
	sm.sessions[id] = &Session{ID: id, Timeout: timeout, LastHeartbeat: now}
	return id
}

// UpdateSession refreshes an existing session's heartbeat if it
// presents within its timeout, or reports that it must be treated as
// expired otherwise.
func (sm *StateMachine) UpdateSession(now time.Time, id int64, timeout time.Duration) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	s, ok := sm.sessions[id]
	if !ok {
		return errCode(zkerr.ZSESSIONEXPIRED, "session does not exist")
	}
	if now.After(s.expiresAt()) {
		return errCode(zkerr.ZSESSIONEXPIRED, "session expired")
	}
	s.LastHeartbeat = now
	if timeout > 0 {
		s.Timeout = timeout
	}
	return nil
}

// Heartbeat updates last-heartbeat only; no state change otherwise.
func (sm *StateMachine) Heartbeat(now time.Time, id int64) error {
	return sm.UpdateSession(now, id, 0)
}

// ExpiredSessions returns every session whose lease has elapsed as of
// now — the dedicated checker goroutine calls this and applies a
// synthetic Close per session it returns, through consensus, so
// ephemeral deletion and watch firing stay replicated.
func (sm *StateMachine) ExpiredSessions(now time.Time) []int64 {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	var expired []int64
	for id, s := range sm.sessions {
		if now.After(s.expiresAt()) {
			expired = append(expired, id)
		}
	}
	return expired
}
