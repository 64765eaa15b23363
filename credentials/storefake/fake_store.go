package fakestore

import (
	"sync"

	"github.com/jrsteele09/dealscope-client/credentials"
	"golang.org/x/oauth2"
)

var _ credentials.Store = (*FakeStore)(nil)

// FakeStore keeps a token indefinitely and counts writes, for asserting what a facade stored or cleared.
type FakeStore struct {
	lock   sync.RWMutex
	token  *oauth2.Token
	sets   int
	clears int
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

func (fs *FakeStore) Get() (*oauth2.Token, bool) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	if fs.token == nil {
		return nil, false
	}
	tok := *fs.token
	return &tok, true
}

func (fs *FakeStore) Set(tok *oauth2.Token) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.sets++
	if tok == nil {
		fs.token = nil
		return
	}
	cp := *tok
	fs.token = &cp
}

func (fs *FakeStore) Clear() {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.clears++
	fs.token = nil
}

func (fs *FakeStore) Sets() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.sets
}

func (fs *FakeStore) Clears() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.clears
}
