// Package command maps raw operator messages onto a typed command set, so
// the bot surface dispatches exhaustively instead of chaining prefix checks.
package command

import "strings"

// Command identifies one operator instruction from the bot channel.
type Command int

const (
	Unknown Command = iota
	Start
	Status
	TestDelivery
	RunDaily
)

func (c Command) String() string {
	switch c {
	case Start:
		return "start"
	case Status:
		return "status"
	case TestDelivery:
		return "test-real"
	case RunDaily:
		return "run-daily"
	case Unknown:
		return "unknown"
	}
	return "unknown"
}

// Parse resolves the leading word of a message into a command. A trailing
// @BotName suffix is tolerated, as Telegram appends one in group chats.
func Parse(text string) Command {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Unknown
	}

	word := strings.ToLower(fields[0])
	if i := strings.IndexByte(word, '@'); i > 0 {
		word = word[:i]
	}

	switch word {
	case "/start":
		return Start
	case "/status":
		return Status
	case "/test-real":
		return TestDelivery
	case "/run-daily":
		return RunDaily
	default:
		return Unknown
	}
}

// HelpText is the reply for /start and any unrecognized input.
const HelpText = `💊 Doses de Farmacologia

Comandos disponíveis:
/start - mostra esta ajuda
/status - estado dos canais de entrega
/test-real - envia uma mensagem de teste aos grupos
/run-daily - gera o draft do dia para aprovação`
