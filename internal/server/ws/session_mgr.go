package ws

import (
	"sync"

	"github.com/yola1107/kratos/v2/log"
)

// registry tracks live sessions and enforces the connection cap. Admission
// happens under the same lock as the count, so a burst of simultaneous
// upgrades cannot overshoot the cap.
type registry struct {
	mu    sync.Mutex
	limit int
	live  map[string]*Session
}

func newRegistry(limit int) *registry {
	return &registry{limit: limit, live: make(map[string]*Session)}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// add admits the session unless the cap is reached.
func (r *registry) add(sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.live) >= r.limit {
		return false
	}
	r.live[sess.ID()] = sess
	log.Infof("ws connect key=%q sessions=%d", sess.ID(), len(r.live))
	return true
}

func (r *registry) remove(sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live[sess.ID()]; !ok {
		return
	}
	delete(r.live, sess.ID())
	log.Infof("ws disconnect key=%q sessions=%d", sess.ID(), len(r.live))
}

// closeAll snapshots under the lock and closes outside it; Close feeds back
// into remove via the session's close path.
func (r *registry) closeAll() {
	r.mu.Lock()
	open := make([]*Session, 0, len(r.live))
	for _, sess := range r.live {
		open = append(open, sess)
	}
	r.mu.Unlock()
	for _, sess := range open {
		sess.Close(false)
	}
}
