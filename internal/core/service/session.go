package service

import (
	"sync"

	"github.com/rl1809/retail-checkout/internal/core/domain"
)

// SessionStore owns one cart per user. Credentials are checked elsewhere.
type SessionStore struct {
	mu    sync.Mutex
	carts map[string]*domain.Cart
}

func NewSessionStore() *SessionStore {
	return &SessionStore{carts: make(map[string]*domain.Cart)}
}

// Cart returns the user's cart, creating it on first use.
func (s *SessionStore) Cart(userID string) *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[userID]
	if !ok {
		cart = domain.NewCart(userID)
		s.carts[userID] = cart
	}
	return cart
}

// Lookup returns the user's cart without starting a session.
func (s *SessionStore) Lookup(userID string) (*domain.Cart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[userID]
	return cart, ok
}

// End discards the user's cart and reports whether one existed.
func (s *SessionStore) End(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.carts[userID]
	delete(s.carts, userID)
	return ok
}
