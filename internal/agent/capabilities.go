package agent

import (
	"context"

	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/models"
)

// TopicSource supplies the day's topic suggestions. The real implementation
// is an external generation capability; an error here aborts draft creation.
type TopicSource interface {
	Suggest(ctx context.Context, businessContext string) ([]string, error)
}

// CitationSource resolves a topic into literature references. Lookup
// failures degrade to an empty slice inside the implementation; the agent
// never treats an empty result as an error.
type CitationSource interface {
	Citations(ctx context.Context, topic string, max int) []models.Citation
}

// StaticTopics is the fallback topic source used until a generation backend
// is wired in. The three slots are the case lead, the week's news reference
// and the study-note reference.
type StaticTopics struct{}

func (StaticTopics) Suggest(_ context.Context, businessContext string) ([]string, error) {
	return []string{
		"Caso clínico com erro de dose/polifarmácia em " + businessContext,
		"Notícia da semana com impacto real na prescrição",
		"Regra prática de farmacologia clínica para decisão rápida",
	}, nil
}
