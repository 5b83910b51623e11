package rooms

import (
	"log"
	"strings"
	"sync"
	"time"

	"roombot/internal/chat"
)

// historyCap bounds each room's chat log; the oldest entry is evicted
// beyond this.
const historyCap = 50

// Entry is one line of a room's bounded chat log.
type Entry struct {
	Author string
	Text   string
	Kind   string
	Self   bool
	At     time.Time
}

// Room is the reconstructed state of one remote chat room. Records are
// created on first observation and live for the process lifetime.
type Room struct {
	mu sync.Mutex

	ID   string
	Name string

	members   []string
	memberIDs map[string]string // lowercase name -> user id
	history   []Entry
}

// Members returns a copy of the current member names in roster order.
func (r *Room) Members() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.members))
	copy(out, r.members)
	return out
}

// MemberID resolves a member name (case-insensitive) to its user id.
func (r *Room) MemberID(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.memberIDs[strings.ToLower(name)]
	return id, ok
}

// MemberIDs returns a copy of the lowercase-name -> id map.
func (r *Room) MemberIDs() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.memberIDs))
	for k, v := range r.memberIDs {
		out[k] = v
	}
	return out
}

// History returns a copy of the room's recent chat log, oldest first.
func (r *Room) History() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.history))
	copy(out, r.history)
	return out
}

// Store maps room identity to state, rebuilt incrementally from inbound
// events. The registry lock covers the maps; each room record has its
// own lock so different rooms mutate concurrently.
type Store struct {
	self string // bot's own username, for self-vs-other classification

	mu       sync.RWMutex
	byName   map[string]*Room
	idToName map[string]string
}

func NewStore(selfUsername string) *Store {
	return &Store{
		self:     selfUsername,
		byName:   make(map[string]*Room),
		idToName: make(map[string]string),
	}
}

// ByName looks a room up by display name.
func (s *Store) ByName(name string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byName[name]
	return r, ok
}

// ByID looks a room up by remote room id.
func (s *Store) ByID(id string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if name, ok := s.idToName[id]; ok {
		r, ok := s.byName[name]
		return r, ok
	}
	// Rooms first seen by id alone are keyed by the id itself.
	r, ok := s.byName[id]
	return r, ok
}

// Names returns the display names of all known rooms.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.byName))
	for name := range s.byName {
		out = append(out, name)
	}
	return out
}

// Observe applies one inbound event to the store. It is idempotent,
// never blocks on I/O, and swallows malformed events after logging so a
// bad frame can neither crash the router nor leave partial state.
func (s *Store) Observe(ev chat.Event) {
	switch ev.Handler {
	case chat.HandlerPrivateMsg:
		// Direct messages have no room.
		return
	case chat.HandlerRoomRename:
		s.rename(ev)
		return
	}

	room := s.resolve(ev)
	if room == nil {
		if needsRoom(ev.Handler) {
			s.dropMalformed(ev, "no room identity")
		}
		return
	}

	switch ev.Handler {
	case chat.HandlerOccupants:
		if !ev.Raw.Get("users").Exists() {
			s.dropMalformed(ev, "missing users")
			return
		}
		room.replaceMembers(ev.Users)
	case chat.HandlerUserJoin:
		if ev.Username == "" {
			s.dropMalformed(ev, "missing username")
			return
		}
		room.addMember(ev.Username, ev.UserID)
	case chat.HandlerUserLeave:
		if ev.Username == "" {
			s.dropMalformed(ev, "missing username")
			return
		}
		room.removeMember(ev.Username)
	case chat.HandlerRoomMessage:
		room.appendEntry(Entry{
			Author: ev.Username,
			Text:   ev.Text,
			Kind:   ev.Handler,
			Self:   ev.Username != "" && ev.Username == s.self,
			At:     time.Now().UTC(),
		})
	}
}

// resolve maps an event to its room record, creating the record on first
// observation. Identity preference: explicit name, then the learned
// id->name table, then the id itself.
func (s *Store) resolve(ev chat.Event) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := ev.RoomName
	if name == "" && ev.RoomID != "" {
		if learned, ok := s.idToName[ev.RoomID]; ok {
			name = learned
		} else {
			name = ev.RoomID
		}
	}
	if name == "" {
		return nil
	}

	room, ok := s.byName[name]
	if !ok {
		room = &Room{ID: ev.RoomID, Name: name, memberIDs: make(map[string]string)}
		s.byName[name] = room
		metricRoomsKnown.Inc()
	}
	if ev.RoomID != "" {
		s.idToName[ev.RoomID] = name
		if room.ID == "" {
			room.ID = ev.RoomID
		}
	}
	return room
}

// rename updates the id->name and name->record mappings together so the
// two directions stay mutually consistent.
func (s *Store) rename(ev chat.Event) {
	if ev.RoomID == "" || ev.RoomName == "" {
		s.dropMalformed(ev, "rename needs roomid and name")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	oldName, ok := s.idToName[ev.RoomID]
	if !ok {
		oldName = ev.RoomID
	}
	room, ok := s.byName[oldName]
	if !ok {
		room = &Room{ID: ev.RoomID, memberIDs: make(map[string]string)}
		metricRoomsKnown.Inc()
	} else {
		delete(s.byName, oldName)
	}
	room.mu.Lock()
	room.Name = ev.RoomName
	room.mu.Unlock()
	s.byName[ev.RoomName] = room
	s.idToName[ev.RoomID] = ev.RoomName
}

func (s *Store) dropMalformed(ev chat.Event, reason string) {
	metricMalformed.Inc()
	log.Printf("[rooms] dropped malformed %q event: %s", ev.Handler, reason)
}

// needsRoom reports whether a handler kind cannot be applied without a
// room identity. Unknown kinds are fine to ignore silently.
func needsRoom(handler string) bool {
	switch handler {
	case chat.HandlerOccupants, chat.HandlerUserJoin, chat.HandlerUserLeave, chat.HandlerRoomMessage:
		return true
	}
	return false
}

// replaceMembers swaps in a full member snapshot, discarding stale
// entries in both the roster and the id map in one step.
func (r *Room) replaceMembers(users []chat.Member) {
	members := make([]string, 0, len(users))
	ids := make(map[string]string, len(users))
	for _, u := range users {
		members = append(members, u.Username)
		if u.UserID != "" {
			ids[strings.ToLower(u.Username)] = u.UserID
		}
	}
	r.mu.Lock()
	r.members = members
	r.memberIDs = ids
	r.mu.Unlock()
}

func (r *Room) addMember(name, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := false
	for _, m := range r.members {
		if m == name {
			found = true
			break
		}
	}
	if !found {
		r.members = append(r.members, name)
	}
	if id != "" {
		r.memberIDs[strings.ToLower(name)] = id
	}
}

func (r *Room) removeMember(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.members {
		if m == name {
			r.members = append(r.members[:i], r.members[i+1:]...)
			delete(r.memberIDs, strings.ToLower(name))
			return
		}
	}
}

func (r *Room) appendEntry(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, e)
	if len(r.history) > historyCap {
		r.history = append(r.history[:0:0], r.history[len(r.history)-historyCap:]...)
	}
}
