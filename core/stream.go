package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/Davidcuama/SisteCredito-Hackaton/core/events"
)

const eventHistoryLimit = 2048

// EventUpdate wraps a committed ledger event with its stream position.
type EventUpdate struct {
	Sequence uint64      `json:"sequence"`
	Cursor   string      `json:"cursor"`
	Event    events.Wire `json:"event"`
}

func (n *Node) publishEvent(wire events.Wire) {
	n.streamMu.Lock()
	if n.streamSubs == nil {
		n.streamSubs = make(map[uint64]chan EventUpdate)
	}
	n.streamSeq++
	update := EventUpdate{
		Sequence: n.streamSeq,
		Cursor:   strconv.FormatUint(n.streamSeq, 10),
		Event:    wire,
	}
	n.streamHistory = append(n.streamHistory, update)
	if len(n.streamHistory) > eventHistoryLimit {
		n.streamHistory = n.streamHistory[len(n.streamHistory)-eventHistoryLimit:]
	}
	for _, sub := range n.streamSubs {
		select {
		case sub <- update:
		default:
			// Slow subscribers miss updates; they can recover via the
			// cursor-based backlog.
		}
	}
	n.streamMu.Unlock()
}

// SubscribeEvents registers a subscriber for committed ledger events starting
// after the supplied cursor. The returned backlog covers history between the
// cursor and the subscription point; the channel carries everything after.
func (n *Node) SubscribeEvents(ctx context.Context, cursor string) (<-chan EventUpdate, func(), []EventUpdate, error) {
	if n == nil {
		return nil, nil, nil, fmt.Errorf("node not initialised")
	}
	updates := make(chan EventUpdate, 32)

	var since uint64
	if trimmed := strings.TrimSpace(cursor); trimmed != "" {
		if parsed, err := strconv.ParseUint(trimmed, 10, 64); err == nil {
			since = parsed
		}
	}

	n.streamMu.Lock()
	if n.streamSubs == nil {
		n.streamSubs = make(map[uint64]chan EventUpdate)
	}
	id := n.streamNextID
	n.streamNextID++
	n.streamSubs[id] = updates
	history := make([]EventUpdate, len(n.streamHistory))
	copy(history, n.streamHistory)
	n.streamMu.Unlock()

	backlog := make([]EventUpdate, 0, len(history))
	for _, entry := range history {
		if entry.Sequence > since {
			backlog = append(backlog, entry)
		}
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.streamMu.Lock()
			sub, ok := n.streamSubs[id]
			if ok {
				delete(n.streamSubs, id)
				close(sub)
			}
			n.streamMu.Unlock()
		})
	}

	if ctx != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}

	return updates, cancel, backlog, nil
}

// Events returns up to limit committed events after the supplied cursor.
// It is the polling counterpart of SubscribeEvents for UI refresh.
func (n *Node) Events(cursor string, limit int) ([]EventUpdate, error) {
	if n == nil {
		return nil, fmt.Errorf("node not initialised")
	}
	var since uint64
	if trimmed := strings.TrimSpace(cursor); trimmed != "" {
		parsed, err := strconv.ParseUint(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor %q", cursor)
		}
		since = parsed
	}
	if limit <= 0 || limit > eventHistoryLimit {
		limit = eventHistoryLimit
	}

	n.streamMu.Lock()
	defer n.streamMu.Unlock()
	out := make([]EventUpdate, 0, limit)
	for _, entry := range n.streamHistory {
		if entry.Sequence <= since {
			continue
		}
		out = append(out, entry)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
