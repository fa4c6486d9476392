package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReviewDecision is published after a human approves or skips a paper.
// Consumers feed it to the interest learner.
type ReviewDecision struct {
	PaperID   uuid.UUID    `json:"paper_id"`
	Action    ReviewAction `json:"action"`
	DecidedAt time.Time    `json:"decided_at"`
}
