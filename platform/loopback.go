package platform

import (
	"context"
	"fmt"
	"sync"

	"party-lab/domain"
	"party-lab/domain/event"
)

const selfID domain.UserID = "party-lab"

// Loopback is an in-process Gateway backed by plain maps. It serves the
// test suites and local development runs; a production deployment swaps
// in an adapter over the real platform SDK.
//
// All fields behind the mutex are reachable through the Gateway methods;
// the exported knobs below exist so tests can stage failures.
type Loopback struct {
	mu sync.RWMutex

	// FailDirectTo simulates members whose private messages are closed.
	FailDirectTo map[domain.UserID]bool
	// FailThreadCreate makes the next thread creation fail.
	FailThreadCreate bool
	// FailChannelCreate makes the next voice channel creation fail.
	FailChannelCreate bool

	events    chan event.PlatformEvent
	channels  map[domain.ChannelID]*loopChannel
	occupancy map[domain.ChannelID]map[domain.UserID]struct{}
	location  map[domain.UserID]domain.ChannelID
	roles     map[domain.UserID]map[string]struct{}
	names     map[domain.UserID]string
	bots      map[domain.UserID]bool
	directs   map[domain.UserID][]string
	responses []Response
	modals    []Modal
	nextID    int
}

type Response struct {
	Token     string
	Body      string
	Ephemeral bool
}

type loopChannel struct {
	name      string
	category  domain.ChannelID
	userLimit int
	thread    bool
	messages  []storedMessage
}

type storedMessage struct {
	id         domain.MessageID
	author     domain.UserID
	body       string
	components []Component
}

func NewLoopback() *Loopback {
	return &Loopback{
		FailDirectTo: make(map[domain.UserID]bool),
		events:       make(chan event.PlatformEvent, 256),
		channels:     make(map[domain.ChannelID]*loopChannel),
		occupancy:    make(map[domain.ChannelID]map[domain.UserID]struct{}),
		location:     make(map[domain.UserID]domain.ChannelID),
		roles:        make(map[domain.UserID]map[string]struct{}),
		names:        make(map[domain.UserID]string),
		bots:         make(map[domain.UserID]bool),
		directs:      make(map[domain.UserID][]string),
	}
}

func (l *Loopback) Self() domain.UserID { return selfID }

func (l *Loopback) Events() <-chan event.PlatformEvent { return l.events }

// Emit injects a platform event, standing in for the real event stream.
func (l *Loopback) Emit(e event.PlatformEvent) { l.events <- e }

// AddChannel seeds a channel (category "" for top-level ones).
func (l *Loopback) AddChannel(id domain.ChannelID, name string, category domain.ChannelID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.channels[id] = &loopChannel{name: name, category: category}
	l.occupancy[id] = make(map[domain.UserID]struct{})
}

// AddMember seeds a member with a display name and roles.
func (l *Loopback) AddMember(id domain.UserID, displayName string, roles ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names[id] = displayName
	set := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	l.roles[id] = set
}

func (l *Loopback) AddBot(id domain.UserID, displayName string) {
	l.AddMember(id, displayName)
	l.mu.Lock()
	l.bots[id] = true
	l.mu.Unlock()
}

// Location reports where a member currently sits (empty when nowhere).
func (l *Loopback) Location(member domain.UserID) domain.ChannelID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.location[member]
}

func (l *Loopback) Directs(member domain.UserID) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.directs[member]...)
}

func (l *Loopback) Responses() []Response {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Response(nil), l.responses...)
}

func (l *Loopback) OpenedModals() []Modal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Modal(nil), l.modals...)
}

func (l *Loopback) HasChannel(id domain.ChannelID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.channels[id]
	return ok
}

func (l *Loopback) CreateVoiceChannel(_ context.Context, category domain.ChannelID, name string, userLimit int) (domain.ChannelID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailChannelCreate {
		l.FailChannelCreate = false
		return "", fmt.Errorf("channel quota exceeded")
	}
	id := l.allocate("vc")
	l.channels[id] = &loopChannel{name: name, category: category, userLimit: userLimit}
	l.occupancy[id] = make(map[domain.UserID]struct{})
	return id, nil
}

func (l *Loopback) EditChannel(_ context.Context, ch domain.ChannelID, name string, userLimit int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.channels[ch]
	if !ok {
		return ErrNotFound
	}
	c.name = name
	c.userLimit = userLimit
	return nil
}

func (l *Loopback) DeleteChannel(_ context.Context, ch domain.ChannelID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.channels[ch]; !ok {
		return ErrNotFound
	}
	delete(l.channels, ch)
	for member := range l.occupancy[ch] {
		delete(l.location, member)
	}
	delete(l.occupancy, ch)
	return nil
}

func (l *Loopback) ChannelName(_ context.Context, ch domain.ChannelID) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.channels[ch]
	if !ok {
		return "", ErrNotFound
	}
	return c.name, nil
}

func (l *Loopback) CategoryOf(_ context.Context, ch domain.ChannelID) (domain.ChannelID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.channels[ch]
	if !ok {
		return "", ErrNotFound
	}
	return c.category, nil
}

func (l *Loopback) Occupants(_ context.Context, ch domain.ChannelID) ([]domain.UserID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	set, ok := l.occupancy[ch]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]domain.UserID, 0, len(set))
	for member := range set {
		out = append(out, member)
	}
	return out, nil
}

func (l *Loopback) MoveMember(_ context.Context, member domain.UserID, to *domain.ChannelID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if from, ok := l.location[member]; ok {
		delete(l.occupancy[from], member)
		delete(l.location, member)
	}
	if to == nil {
		return nil
	}
	set, ok := l.occupancy[*to]
	if !ok {
		return ErrNotFound
	}
	set[member] = struct{}{}
	l.location[member] = *to
	return nil
}

func (l *Loopback) CreatePrivateThread(_ context.Context, parent domain.ChannelID, name string, _ domain.UserID) (domain.ChannelID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailThreadCreate {
		l.FailThreadCreate = false
		return "", fmt.Errorf("thread creation refused")
	}
	if _, ok := l.channels[parent]; !ok {
		return "", ErrNotFound
	}
	id := l.allocate("thread")
	l.channels[id] = &loopChannel{name: name, category: parent, thread: true}
	l.occupancy[id] = make(map[domain.UserID]struct{})
	return id, nil
}

func (l *Loopback) SendMessage(_ context.Context, ch domain.ChannelID, body string, components ...Component) (domain.MessageID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.channels[ch]
	if !ok {
		return "", ErrNotFound
	}
	id := domain.MessageID(l.allocate("msg"))
	c.messages = append(c.messages, storedMessage{id: id, author: selfID, body: body, components: components})
	return id, nil
}

func (l *Loopback) EditMessage(_ context.Context, ch domain.ChannelID, msg domain.MessageID, body string, components ...Component) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.channels[ch]
	if !ok {
		return ErrNotFound
	}
	for i := range c.messages {
		if c.messages[i].id == msg {
			c.messages[i].body = body
			if len(components) > 0 {
				c.messages[i].components = components
			}
			return nil
		}
	}
	return ErrNotFound
}

func (l *Loopback) DeleteMessage(_ context.Context, ch domain.ChannelID, msg domain.MessageID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.channels[ch]
	if !ok {
		return ErrNotFound
	}
	for i := range c.messages {
		if c.messages[i].id == msg {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (l *Loopback) ChannelMessages(_ context.Context, ch domain.ChannelID, limit int) ([]Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.channels[ch]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]Message, 0, len(c.messages))
	for i := len(c.messages) - 1; i >= 0 && len(out) < limit; i-- {
		m := c.messages[i]
		out = append(out, Message{ID: m.id, Author: m.author, Body: m.body})
	}
	return out, nil
}

// MessageBody returns the current body of a message, for assertions.
func (l *Loopback) MessageBody(ch domain.ChannelID, msg domain.MessageID) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.channels[ch]
	if !ok {
		return "", false
	}
	for _, m := range c.messages {
		if m.id == msg {
			return m.body, true
		}
	}
	return "", false
}

func (l *Loopback) SendDirect(_ context.Context, member domain.UserID, body string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailDirectTo[member] {
		return fmt.Errorf("direct messages are closed")
	}
	l.directs[member] = append(l.directs[member], body)
	return nil
}

func (l *Loopback) Respond(_ context.Context, token, body string, ephemeral bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.responses = append(l.responses, Response{Token: token, Body: body, Ephemeral: ephemeral})
	return nil
}

func (l *Loopback) OpenModal(_ context.Context, _ string, modal Modal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.modals = append(l.modals, modal)
	return nil
}

func (l *Loopback) HasRole(_ context.Context, member domain.UserID, role string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.roles[member][role]
	return ok, nil
}

func (l *Loopback) AddRole(_ context.Context, member domain.UserID, role string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.roles[member] == nil {
		l.roles[member] = make(map[string]struct{})
	}
	l.roles[member][role] = struct{}{}
	return nil
}

func (l *Loopback) RemoveRole(_ context.Context, member domain.UserID, role string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.roles[member], role)
	return nil
}

func (l *Loopback) MemberRoles(_ context.Context, member domain.UserID) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.roles[member]))
	for r := range l.roles[member] {
		out = append(out, r)
	}
	return out, nil
}

func (l *Loopback) DisplayName(_ context.Context, member domain.UserID) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if name, ok := l.names[member]; ok {
		return name, nil
	}
	return string(member), nil
}

func (l *Loopback) SetNickname(_ context.Context, member domain.UserID, nick string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names[member] = nick
	return nil
}

func (l *Loopback) Members(_ context.Context) ([]Member, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Member, 0, len(l.names))
	for id, name := range l.names {
		out = append(out, Member{ID: id, DisplayName: name, Bot: l.bots[id]})
	}
	return out, nil
}

func (l *Loopback) allocate(prefix string) domain.ChannelID {
	l.nextID++
	return domain.ChannelID(fmt.Sprintf("%s-%d", prefix, l.nextID))
}
