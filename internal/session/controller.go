package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/dsa-drill/internal/audit"
	"github.com/ashureev/dsa-drill/internal/domain"
	"github.com/ashureev/dsa-drill/internal/drill"
	"github.com/ashureev/dsa-drill/internal/store"
	"github.com/google/uuid"
)

// ProblemGenerator produces problem statements.
type ProblemGenerator interface {
	RandomTopic() domain.Topic
	Generate(ctx context.Context, topic domain.Topic) (string, error)
}

// SubmissionGrader grades a submission against a mission.
type SubmissionGrader interface {
	Grade(ctx context.Context, mission, submission string) (drill.GradeResult, error)
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Repo      store.Repository
	Generator ProblemGenerator
	Grader    SubmissionGrader
	Messenger Messenger
	// Limiter throttles provider calls per user. Nil disables throttling.
	Limiter *RateLimiter
	// ConversationLog receives generated problems and grades. Nil disables it.
	ConversationLog audit.ConversationLogger
	Logger          *slog.Logger
}

// Controller routes chat events and drives the per-user mission state machine.
type Controller struct {
	repo      store.Repository
	generator ProblemGenerator
	grader    SubmissionGrader
	messenger Messenger
	limiter   *RateLimiter
	convLog   audit.ConversationLogger
	logger    *slog.Logger
}

// NewController creates a Controller.
func NewController(deps Deps) (*Controller, error) {
	if deps.Repo == nil || deps.Generator == nil || deps.Grader == nil || deps.Messenger == nil {
		return nil, errors.New("session: repo, generator, grader and messenger are required")
	}
	if deps.ConversationLog == nil {
		deps.ConversationLog = audit.NoopLogger{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Controller{
		repo:      deps.Repo,
		generator: deps.Generator,
		grader:    deps.Grader,
		messenger: deps.Messenger,
		limiter:   deps.Limiter,
		convLog:   deps.ConversationLog,
		logger:    deps.Logger,
	}, nil
}

// Handle processes one event. The returned error reports transport failures
// only; provider and store failures are answered with a generic message.
func (c *Controller) Handle(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	logger := c.logger.With("event_id", ev.ID, "user_id", ev.UserID, "kind", ev.Kind.String())

	switch ev.Kind {
	case EventStart:
		return c.handleStart(ctx, ev, logger)
	case EventButton:
		return c.handleButton(ctx, ev, logger)
	case EventText:
		return c.handleText(ctx, ev, logger)
	default:
		return fmt.Errorf("session: unsupported event kind %s", ev.Kind)
	}
}

func (c *Controller) handleStart(ctx context.Context, ev Event, logger *slog.Logger) error {
	if _, err := c.repo.GetOrCreateAgent(ctx, ev.UserID, ev.DisplayName); err != nil {
		logger.Error("Failed to load agent", "error", err)
		return c.reply(ctx, ev, textStoreError, MainMenu())
	}
	_, err := c.messenger.Send(ctx, ev.ChatID, Message{
		Text:     welcomeText(ev.DisplayName),
		Keyboard: MainMenu(),
	})
	return err
}

func (c *Controller) handleButton(ctx context.Context, ev Event, logger *slog.Logger) error {
	switch ev.Button {
	case ButtonProblem:
		return c.handleNewProblem(ctx, ev, logger)
	case ButtonStatus:
		agent, err := c.repo.GetOrCreateAgent(ctx, ev.UserID, ev.DisplayName)
		if err != nil {
			logger.Error("Failed to load agent", "error", err)
			return c.messenger.AnswerCallback(ctx, ev.CallbackID, textStoreError, true)
		}
		return c.messenger.AnswerCallback(ctx, ev.CallbackID, statusText(agent), true)
	case ButtonAbout:
		return c.messenger.AnswerCallback(ctx, ev.CallbackID, textAbout, true)
	default:
		logger.Warn("Unknown button", "button", ev.Button)
		return c.messenger.AnswerCallback(ctx, ev.CallbackID, "", false)
	}
}

// handleNewProblem generates a mission and moves the agent to MissionOpen.
// An already open mission is replaced.
func (c *Controller) handleNewProblem(ctx context.Context, ev Event, logger *slog.Logger) error {
	if !c.allow(ev.UserID) {
		logger.Info("Problem request rate limited")
		return c.messenger.AnswerCallback(ctx, ev.CallbackID, textSlowDown, true)
	}
	if err := c.messenger.AnswerCallback(ctx, ev.CallbackID, "", false); err != nil {
		logger.Warn("Failed to answer callback", "error", err)
	}
	if err := c.messenger.Edit(ctx, ev.ChatID, ev.MessageID, Message{Text: textSelecting, Markdown: true}); err != nil {
		logger.Warn("Failed to show progress message", "error", err)
	}

	agent, err := c.repo.GetOrCreateAgent(ctx, ev.UserID, ev.DisplayName)
	if err != nil {
		logger.Error("Failed to load agent", "error", err)
		return c.showGlitch(ctx, ev)
	}

	topic := c.generator.RandomTopic()
	problem, err := c.generator.Generate(ctx, topic)
	if err != nil {
		logger.Error("GenAI error", "error", err, "topic", topic)
		return c.showGlitch(ctx, ev)
	}

	if open, ok := agent.State().(domain.MissionOpen); ok {
		logger.Info("Abandoning open mission", "abandoned_length", len(open.Problem))
	}
	if err := c.repo.SetMission(ctx, ev.UserID, problem); err != nil {
		logger.Error("Failed to store mission", "error", err)
		return c.showGlitch(ctx, ev)
	}

	c.convLog.Log(audit.ConversationLogEvent{
		UserID:    ev.UserID,
		EventID:   ev.ID,
		EventType: audit.EventProblemGenerated,
		Topic:     string(topic),
		Mission:   problem,
	})
	logger.Info("Mission assigned", "topic", topic)

	return c.deliverProblem(ctx, ev, Message{Text: problemText(topic, problem), Markdown: true}, logger)
}

// deliverProblem shows a stored mission, editing the menu message in place
// or, when that fails, posting a new message. A mission that cannot be shown
// at all is cleared so the user is never graded against unseen text.
func (c *Controller) deliverProblem(ctx context.Context, ev Event, msg Message, logger *slog.Logger) error {
	editErr := c.messenger.Edit(ctx, ev.ChatID, ev.MessageID, msg)
	if editErr == nil {
		return nil
	}
	logger.Warn("Failed to edit problem into menu message, sending new message", "error", editErr)

	_, sendErr := c.messenger.Send(ctx, ev.ChatID, msg)
	if sendErr == nil {
		return nil
	}
	logger.Error("Mission stored but not delivered, clearing it", "error", sendErr, "problem_length", len(msg.Text))

	if err := c.repo.ClearMission(ctx, ev.UserID); err != nil {
		logger.Error("Failed to clear undelivered mission", "error", err)
	}
	_, err := c.messenger.Send(ctx, ev.ChatID, Message{Text: textGlitch, Keyboard: MainMenu()})
	return err
}

func (c *Controller) handleText(ctx context.Context, ev Event, logger *slog.Logger) error {
	text := strings.TrimSpace(ev.Text)
	if text == "" || strings.HasPrefix(text, "/") {
		return nil
	}

	agent, err := c.repo.GetOrCreateAgent(ctx, ev.UserID, ev.DisplayName)
	if err != nil {
		logger.Error("Failed to load agent", "error", err)
		return c.reply(ctx, ev, textStoreError, MainMenu())
	}

	switch state := agent.State().(type) {
	case domain.NoMission:
		return c.reply(ctx, ev, textNoMission, MainMenu())
	case domain.MissionOpen:
		return c.submit(ctx, ev, state, logger)
	default:
		return fmt.Errorf("session: unhandled mission state %T", state)
	}
}

// submit grades the raw message text against the open mission. On success
// the agent moves to NoMission; on any failure the mission stays open.
func (c *Controller) submit(ctx context.Context, ev Event, state domain.MissionOpen, logger *slog.Logger) error {
	if !c.allow(ev.UserID) {
		logger.Info("Submission rate limited")
		return c.reply(ctx, ev, textSlowDown, nil)
	}

	waitID, err := c.messenger.Send(ctx, ev.ChatID, Message{
		Text:     textRunningTests,
		Markdown: true,
		ReplyTo:  ev.MessageID,
	})
	if err != nil {
		logger.Warn("Failed to send progress message", "error", err)
		waitID = 0
	}

	result, err := c.grader.Grade(ctx, state.Problem, ev.Text)
	if err != nil {
		logger.Error("Grading failed", "error", err)
		c.deleteWait(ctx, ev, waitID, logger)
		return c.reply(ctx, ev, textErrorEvaluating, MainMenu())
	}

	xp, rank, err := c.repo.RecordGrade(ctx, ev.UserID, result.Score, state.Problem)
	if err != nil {
		c.deleteWait(ctx, ev, waitID, logger)
		if errors.Is(err, store.ErrMissionChanged) {
			logger.Info("Mission changed while grading, discarding grade", "score", result.Score)
			return c.reply(ctx, ev, textMissionClosed, MainMenu())
		}
		logger.Error("Failed to record grade", "error", err)
		return c.reply(ctx, ev, textErrorEvaluating, MainMenu())
	}

	c.convLog.Log(audit.ConversationLogEvent{
		UserID:     ev.UserID,
		EventID:    ev.ID,
		EventType:  audit.EventSubmissionGraded,
		Mission:    state.Problem,
		Submission: ev.Text,
		Feedback:   result.Feedback,
		Score:      &result.Score,
		Parsed:     &result.Parsed,
		XP:         &xp,
		Rank:       string(rank),
	})
	logger.Info("Submission graded", "score", result.Score, "parsed", result.Parsed, "xp", xp, "rank", rank)

	c.deleteWait(ctx, ev, waitID, logger)
	return c.reply(ctx, ev, feedbackText(result, rank), NextProblemMenu())
}

func (c *Controller) allow(userID int64) bool {
	return c.limiter == nil || c.limiter.Allow(userID)
}

func (c *Controller) reply(ctx context.Context, ev Event, text string, kb Keyboard) error {
	_, err := c.messenger.Send(ctx, ev.ChatID, Message{
		Text:     text,
		Keyboard: kb,
		ReplyTo:  ev.MessageID,
	})
	return err
}

func (c *Controller) showGlitch(ctx context.Context, ev Event) error {
	return c.messenger.Edit(ctx, ev.ChatID, ev.MessageID, Message{
		Text:     textGlitch,
		Keyboard: MainMenu(),
	})
}

func (c *Controller) deleteWait(ctx context.Context, ev Event, waitID int, logger *slog.Logger) {
	if waitID == 0 {
		return
	}
	if err := c.messenger.Delete(ctx, ev.ChatID, waitID); err != nil {
		logger.Warn("Failed to delete progress message", "error", err)
	}
}
