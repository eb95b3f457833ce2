// Package drill generates interview problems and grades submitted answers
// through a text-generation provider.
package drill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/ashureev/dsa-drill/internal/domain"
	"github.com/ashureev/dsa-drill/internal/llm"
)

// ErrGeneration is returned when no usable problem could be produced.
var ErrGeneration = errors.New("problem generation failed")

// Generator produces new problem statements.
type Generator struct {
	provider llm.Provider
	pick     func(n int) int
	logger   *slog.Logger
}

// NewGenerator creates a Generator backed by provider.
func NewGenerator(provider llm.Provider, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		provider: provider,
		pick:     rand.IntN,
		logger:   logger,
	}
}

// RandomTopic picks a topic uniformly from the fixed topic set.
func (g *Generator) RandomTopic() domain.Topic {
	topics := domain.Topics()
	return topics[g.pick(len(topics))]
}

// Generate asks the provider for a problem on topic and returns the trimmed
// statement. The returned text is exactly what must be stored as the mission.
func (g *Generator) Generate(ctx context.Context, topic domain.Topic) (string, error) {
	if !topic.Valid() {
		return "", fmt.Errorf("%w: unknown topic %q", ErrGeneration, topic)
	}

	reply, err := g.provider.Generate(ctx, problemSetterPersona, problemPrompt(topic))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	problem := strings.TrimSpace(reply)
	if problem == "" {
		return "", fmt.Errorf("%w: empty problem statement", ErrGeneration)
	}

	g.logger.Debug("Problem generated", "topic", topic, "length", len(problem))
	return problem, nil
}
