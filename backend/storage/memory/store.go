package memory

import (
	"errors"
	"sync"

	"github.com/adwski/chatroom/backend/model"
)

var (
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session is not found")
)

// MemStore keeps live session records keyed by connection id.
type MemStore struct {
	mx *sync.Mutex
	db map[string]*model.Session
}

func NewMemStore() *MemStore {
	return &MemStore{
		mx: &sync.Mutex{},
		db: make(map[string]*model.Session),
	}
}

func (ms *MemStore) AddSession(sess *model.Session) error {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	if _, ok := ms.db[sess.ConnID]; ok {
		return ErrSessionExists
	}
	ms.db[sess.ConnID] = sess
	return nil
}

func (ms *MemStore) GetSession(connID string) (*model.Session, error) {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	sess, ok := ms.db[connID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (ms *MemStore) DeleteSession(connID string) (*model.Session, error) {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	sess, ok := ms.db[connID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	delete(ms.db, connID)
	return sess, nil
}

func (ms *MemStore) Count() int {
	ms.mx.Lock()
	defer ms.mx.Unlock()
	return len(ms.db)
}
