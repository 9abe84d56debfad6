// Package subscription keeps the one-to-one mapping between subscribed
// topics and the multiplexer tokens of their streams.
package subscription

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rickgao/kucoin-feed/internal/mux"
	"github.com/rickgao/kucoin-feed/internal/topic"
)

var (
	ErrTopicExists = errors.New("topic already registered")
	ErrTokenExists = errors.New("token already registered")
)

// Registry is a bijective Topic <-> Token map. It is safe for concurrent
// use; callers that must keep it in step with a multiplexer hold their own
// lock around both.
type Registry struct {
	mu      sync.RWMutex
	byTopic map[topic.Topic]mux.Token
	byToken map[mux.Token]topic.Topic
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byTopic: make(map[topic.Topic]mux.Token),
		byToken: make(map[mux.Token]topic.Topic),
	}
}

// Subscribe records the pair. Neither side may already be present.
func (r *Registry) Subscribe(t topic.Topic, tok mux.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byTopic[t]; ok {
		return fmt.Errorf("%w: %s", ErrTopicExists, t)
	}
	if _, ok := r.byToken[tok]; ok {
		return fmt.Errorf("%w: %s", ErrTokenExists, tok)
	}
	r.byTopic[t] = tok
	r.byToken[tok] = t
	return nil
}

// Unsubscribe removes the topic and its token.
func (r *Registry) Unsubscribe(t topic.Topic) (mux.Token, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tok, ok := r.byTopic[t]
	if !ok {
		return 0, false
	}
	delete(r.byTopic, t)
	delete(r.byToken, tok)
	return tok, true
}

// UnsubscribeToken removes the token and its topic.
func (r *Registry) UnsubscribeToken(tok mux.Token) (topic.Topic, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byToken[tok]
	if !ok {
		return topic.Topic{}, false
	}
	delete(r.byToken, tok)
	delete(r.byTopic, t)
	return t, true
}

func (r *Registry) LookupByTopic(t topic.Topic) (mux.Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tok, ok := r.byTopic[t]
	return tok, ok
}

func (r *Registry) LookupByToken(tok mux.Token) (topic.Topic, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byToken[tok]
	return t, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byTopic)
}

// Topics returns the registered topics ordered by token, i.e. by
// registration order.
func (r *Registry) Topics() []topic.Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()

	toks := make([]mux.Token, 0, len(r.byToken))
	for tok := range r.byToken {
		toks = append(toks, tok)
	}
	sort.Slice(toks, func(i, j int) bool { return toks[i] < toks[j] })

	out := make([]topic.Topic, len(toks))
	for i, tok := range toks {
		out[i] = r.byToken[tok]
	}
	return out
}
