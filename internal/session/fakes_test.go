package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/ashureev/dsa-drill/internal/domain"
	"github.com/ashureev/dsa-drill/internal/drill"
	"github.com/ashureev/dsa-drill/internal/store"
)

type fakeRepo struct {
	mu     sync.Mutex
	agents map[int64]*domain.Agent
	err    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{agents: make(map[int64]*domain.Agent)}
}

func (f *fakeRepo) snapshot(id int64) *domain.Agent {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.agents[id]
	if a == nil {
		return nil
	}
	copy := *a
	if a.Mission != nil {
		m := *a.Mission
		copy.Mission = &m
	}
	return &copy
}

func (f *fakeRepo) GetOrCreateAgent(_ context.Context, id int64, name string) (*domain.Agent, error) {
	f.mu.Lock()
	if f.err != nil {
		f.mu.Unlock()
		return nil, f.err
	}
	if _, ok := f.agents[id]; !ok {
		f.agents[id] = domain.NewAgent(id, name)
	}
	f.agents[id].DisplayName = name
	f.mu.Unlock()
	return f.snapshot(id), nil
}

func (f *fakeRepo) GetAgent(_ context.Context, id int64) (*domain.Agent, error) {
	return f.snapshot(id), nil
}

func (f *fakeRepo) AddXP(ctx context.Context, id int64, delta int) (int, domain.Rank, error) {
	return f.apply(id, delta, false, "")
}

func (f *fakeRepo) RecordGrade(_ context.Context, id int64, delta int, expected string) (int, domain.Rank, error) {
	return f.apply(id, delta, true, expected)
}

func (f *fakeRepo) apply(id int64, delta int, clear bool, expected string) (int, domain.Rank, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, "", f.err
	}
	a, ok := f.agents[id]
	if !ok {
		return 0, "", store.ErrAgentNotFound
	}
	if clear && expected != "" && (a.Mission == nil || *a.Mission != expected) {
		return 0, "", store.ErrMissionChanged
	}
	a.XP += delta
	a.Rank = domain.RankFor(a.XP)
	if clear {
		a.Mission = nil
	}
	return a.XP, a.Rank, nil
}

func (f *fakeRepo) SetMission(_ context.Context, id int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	a, ok := f.agents[id]
	if !ok {
		return store.ErrAgentNotFound
	}
	a.Mission = &text
	return nil
}

func (f *fakeRepo) ClearMission(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.agents[id]; ok {
		a.Mission = nil
		return nil
	}
	return store.ErrAgentNotFound
}

func (f *fakeRepo) RecomputeRanks(context.Context) (int64, error) { return 0, nil }
func (f *fakeRepo) Ping(context.Context) error                    { return f.err }
func (f *fakeRepo) Close() error                                  { return nil }

type sentCall struct {
	ChatID    int64
	MessageID int
	Msg       Message
}

type callbackCall struct {
	ID    string
	Text  string
	Alert bool
}

type fakeMessenger struct {
	mu        sync.Mutex
	nextID    int
	sent      []sentCall
	edits     []sentCall
	callbacks []callbackCall
	deleted   []int
	// editErr fails every Edit; sendErrs fail successive Sends.
	editErr   error
	sendErrs  []error
}

func (m *fakeMessenger) Send(_ context.Context, chatID int64, msg Message) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sendErrs) > 0 {
		err := m.sendErrs[0]
		m.sendErrs = m.sendErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	m.nextID++
	m.sent = append(m.sent, sentCall{ChatID: chatID, MessageID: 1000 + m.nextID, Msg: msg})
	return 1000 + m.nextID, nil
}

func (m *fakeMessenger) Edit(_ context.Context, chatID int64, messageID int, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, sentCall{ChatID: chatID, MessageID: messageID, Msg: msg})
	return m.editErr
}

func (m *fakeMessenger) AnswerCallback(_ context.Context, id, text string, alert bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, callbackCall{ID: id, Text: text, Alert: alert})
	return nil
}

func (m *fakeMessenger) Delete(_ context.Context, _ int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *fakeMessenger) lastSent() sentCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentCall{}
	}
	return m.sent[len(m.sent)-1]
}

func (m *fakeMessenger) lastEdit() sentCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.edits) == 0 {
		return sentCall{}
	}
	return m.edits[len(m.edits)-1]
}

type fakeGenerator struct {
	topic    domain.Topic
	problems []string
	err      error
	calls    int
}

func (g *fakeGenerator) RandomTopic() domain.Topic { return g.topic }

func (g *fakeGenerator) Generate(_ context.Context, _ domain.Topic) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	p := g.problems[0]
	if len(g.problems) > 1 {
		g.problems = g.problems[1:]
	}
	return p, nil
}

type fakeGrader struct {
	result     drill.GradeResult
	err        error
	mission    string
	submission string
	during     func()
}

func (g *fakeGrader) Grade(_ context.Context, mission, submission string) (drill.GradeResult, error) {
	g.mission = mission
	g.submission = submission
	if g.during != nil {
		g.during()
	}
	return g.result, g.err
}

var errStoreDown = fmt.Errorf("%w: disk I/O error", store.ErrUnavailable)
