package runtime

import (
	"sync"
	"time"

	"party-lab/domain"
)

// FlowVariant selects which setup sequence a deployment runs.
type FlowVariant string

const (
	// VariantFreeText asks for a size, then a bounded free-text activity
	// name through a modal.
	VariantFreeText FlowVariant = "freetext"
	// VariantModeSelect asks for an activity mode and a size from fixed
	// menus, with no modal step.
	VariantModeSelect FlowVariant = "modeselect"
)

type flowState int

const (
	flowAwaitingSelection flowState = iota
	flowAwaitingSubmission
	flowCompleted
	flowTimedOut
	flowCancelled
)

func (s flowState) terminal() bool { return s >= flowCompleted }

// SetupFlow is the per-leader configuration state machine. Selections
// overwrite each other freely; the flow ends exactly once, through
// completion, timeout or teardown cancellation.
type SetupFlow struct {
	mu     sync.Mutex
	state  flowState
	leader domain.UserID
	anchor domain.ChannelID
	thread domain.ChannelID
	panel  domain.MessageID
	mode   string
	size   int
	timer  *time.Timer
}

// enter moves the flow to a terminal state. Reports false when another
// terminal transition already won; the loser must do nothing.
func (f *SetupFlow) enter(target flowState) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.terminal() {
		return false
	}
	f.state = target
	if f.timer != nil {
		f.timer.Stop()
	}
	return true
}

// FlowSet is the leader→pending-flow lookup. An actor can lead at most
// one setup flow at a time; Begin refuses a second one.
type FlowSet struct {
	mu       sync.Mutex
	byLeader map[domain.UserID]*SetupFlow
}

func NewFlowSet() *FlowSet {
	return &FlowSet{byLeader: make(map[domain.UserID]*SetupFlow)}
}

func (s *FlowSet) Busy(leader domain.UserID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byLeader[leader]
	return ok
}

func (s *FlowSet) Begin(leader domain.UserID, anchor, thread domain.ChannelID, panel domain.MessageID) (*SetupFlow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byLeader[leader]; ok {
		return nil, false
	}
	flow := &SetupFlow{leader: leader, anchor: anchor, thread: thread, panel: panel}
	s.byLeader[leader] = flow
	return flow, true
}

func (s *FlowSet) Get(leader domain.UserID) (*SetupFlow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flow, ok := s.byLeader[leader]
	return flow, ok
}

func (s *FlowSet) End(leader domain.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byLeader, leader)
}

// Cancel ends a pending flow as part of session teardown, stopping its
// timeout timer so it cannot fire against a dead party.
func (s *FlowSet) Cancel(leader domain.UserID) {
	flow, ok := s.Get(leader)
	if !ok {
		return
	}
	if flow.enter(flowCancelled) {
		s.End(leader)
	}
}
