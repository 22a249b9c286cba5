// Package compose renders the two fixed newsletter formats. Rendering is a
// pure function of its input: no I/O, no error paths. Prose beyond the fixed
// scaffolding comes from the external generation capability upstream.
package compose

import (
	"fmt"
	"strings"

	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/models"
)

// MissingLink is substituted wherever a citation-derived link is absent, so
// the operator can spot incomplete sourcing before approving.
const MissingLink = "[BUSCAR LINK]"

const tagline = "Aqui, prescrições comuns são desmontadas com farmacologia clínica.\nAchismo não entra."

const signoff = "_Farmacologia clínica é o antídoto contra o achismo._"

// Input is everything a render needs. Topics beyond index 2 are ignored;
// missing topics or citations degrade to empty strings and MissingLink.
type Input struct {
	Kind        models.Kind
	IssueNumber int
	Topics      []string
	Citations   []models.Citation
}

// Render produces the full newsletter body for the given input.
func Render(in Input) string {
	if in.Kind == models.KindNewsCommentary {
		return renderNewsCommentary(in)
	}
	return renderClinicalCase(in)
}

func renderClinicalCase(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*💊 #%d Doses de Farmacologia*\n\n", in.IssueNumber)
	b.WriteString(tagline + "\n\n")

	fmt.Fprintf(&b, "*🩺 O caso*\n\n%s\n\n", in.topic(0))

	b.WriteString("*🧠 O raciocínio*\n\n")
	b.WriteString("Empilhar condutas de amplo espectro pode fazer sentido em quadros graves.\n")
	b.WriteString("Sem cultura e sem revisão da prescrição, isso se parece mais com escalada cega do que com decisão racional.\n\n")
	b.WriteString("Mais fármaco não corrige raciocínio frágil.\n\n")

	b.WriteString("*📌 A regra*\n\n")
	b.WriteString("Quando o quadro não melhora, adicionar fármaco costuma ser o sintoma, não a solução.\n\n")

	b.WriteString("*Pílulas extras 💊*\n\n")
	fmt.Fprintf(&b, "📰 Notícia que me fez parar:\n%s\n🔗 %s\n\n", in.topic(1), in.link(0))
	fmt.Fprintf(&b, "📚 O que me deixou 1%% mais crítica essa semana:\n%s\n🔗 %s\n\n",
		in.citationTitle(1, in.topic(2)), in.link(1))
	fmt.Fprintf(&b, "📖 O que estou estudando:\n%s\n🔗 %s\n\n", in.topic(2), in.link(2))

	b.WriteString("💬 E você, qual prescrição te fez parar essa semana?\n\n")
	b.WriteString(signoff)

	return b.String()
}

func renderNewsCommentary(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "💊 *#%d Doses de Farmacologia*\n", in.IssueNumber)
	b.WriteString(tagline + "\n\n")

	fmt.Fprintf(&b, "🩺 *“%s”*\n", in.topic(0))
	b.WriteString("A notícia causou alarme, mas merece leitura técnica antes de mudar qualquer conduta.\n\n")

	b.WriteString("🧠 *O raciocínio*\n\n")
	b.WriteString("A confusão começa quando manchete vira sinônimo de farmacologia.\n\n")
	b.WriteString("*Na prática:*\n")
	b.WriteString("• separe a marca do fármaco antes de orientar o paciente\n")
	b.WriteString("• confirme a conduta na fonte primária, não na manchete\n\n")

	b.WriteString("📌 *A regra*\n\n")
	b.WriteString("Quando a manchete some, mas o fármaco permanece, o problema raramente é farmacológico.\n\n")

	b.WriteString("💊 *Pílulas extras*\n\n")
	fmt.Fprintf(&b, "📰 Notícia que dominou a semana\n%s\n🔗 %s\n\n", in.topic(1), in.link(0))
	fmt.Fprintf(&b, "📚 Para pensar melhor\n%s\n🔗 %s\n\n",
		in.citationTitle(1, "Leitura crítica de evidências para decisão clínica"), in.link(1))
	fmt.Fprintf(&b, "📖 O que estou revisitando\n%s\n🔗 %s\n\n", in.topic(2), in.link(2))

	b.WriteString("💬 E você?\nComo tem orientado seus pacientes diante dessa notícia?\n\n")
	b.WriteString(signoff)

	return b.String()
}

func (in Input) topic(i int) string {
	if i < len(in.Topics) {
		return in.Topics[i]
	}
	return ""
}

func (in Input) link(i int) string {
	if i < len(in.Citations) && in.Citations[i].URL != "" {
		return in.Citations[i].URL
	}
	return MissingLink
}

func (in Input) citationTitle(i int, fallback string) string {
	if i < len(in.Citations) && in.Citations[i].Title != "" {
		return in.Citations[i].Title
	}
	return fallback
}
