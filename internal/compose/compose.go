// Package compose builds the final notification title and body.
package compose

import (
	"fmt"
	"math/rand"

	"github.com/auralabs/aura-dispatch/internal/push"
	"github.com/auralabs/aura-dispatch/internal/quote"
)

// Title is the fixed heading on every check-in notification.
const Title = "Daily Aura Check-In"

// reminderPhrases rotate randomly per user per tick.
var reminderPhrases = []string{
	"Time to check in with yourself.",
	"How is your aura today?",
	"Take a breath and log your moment.",
	"A minute of reflection goes a long way.",
	"Your daily check-in is waiting.",
}

// Message combines a random reminder phrase with the quote, if any.
// No failure modes: an empty quote result yields a reminder-only body.
func Message(q quote.Result) push.Notification {
	phrase := reminderPhrases[rand.Intn(len(reminderPhrases))]

	body := phrase
	if !q.Empty() {
		body = fmt.Sprintf("%s\n\n“%s”", phrase, q.Text)
	}

	return push.Notification{
		Title: Title,
		Body:  body,
	}
}
