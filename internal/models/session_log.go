package models

// DefaultSessionLogSize caps the archived session log per user.
const DefaultSessionLogSize = 100

// AppendSession appends an ended session to the log, dropping the oldest
// entries beyond the cap (FIFO).
func AppendSession(log []*Session, s *Session, cap int) []*Session {
	if cap <= 0 {
		cap = DefaultSessionLogSize
	}
	log = append(log, s)
	if len(log) > cap {
		overflow := len(log) - cap
		log = append(log[:0], log[overflow:]...)
	}
	return log
}
