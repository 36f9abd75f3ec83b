package tasks

import (
	"context"
	"strings"

	"payskill/internal/models"
)

// UnlockState is the presentation state of a task for one user.
type UnlockState string

const (
	StateUnlocked   UnlockState = "unlocked"
	StateLocked     UnlockState = "locked"
	StateQRRequired UnlockState = "qr_required"
)

// TaskProgress pairs a catalog task with the user's unlock state and
// completion, if any.
type TaskProgress struct {
	Position   int                    `json:"position"`
	Task       models.Task            `json:"task"`
	State      UnlockState            `json:"state"`
	Completion *models.TaskCompletion `json:"completion,omitempty"`
}

// Progress computes the unlock view for a user. The ledger never refuses an
// out-of-order completion; this is the ordering clients display:
// the first task is always open, the second opens through a passed QR check, and
// every later task opens once the one before it has a completion.
func (l *Ledger) Progress(ctx context.Context, userID string) ([]TaskProgress, error) {
	completions, err := l.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	byTask := make(map[string]*models.TaskCompletion, len(completions))
	for i := range completions {
		byTask[completions[i].TaskID] = &completions[i]
	}
	passed, err := l.qrPassed(ctx, userID)
	if err != nil {
		return nil, err
	}

	all := l.catalog.All()
	out := make([]TaskProgress, 0, len(all))
	for i, task := range all {
		p := TaskProgress{Position: i + 1, Task: task, Completion: byTask[task.ID]}
		switch {
		case p.Completion != nil, i == 0:
			p.State = StateUnlocked
		case i == 1 && passed:
			p.State = StateUnlocked
		case i == 1:
			p.State = StateQRRequired
		case byTask[all[i-1].ID] != nil:
			p.State = StateUnlocked
		default:
			p.State = StateLocked
		}
		out = append(out, p)
	}
	return out, nil
}

func (l *Ledger) qrPassed(ctx context.Context, userID string) (bool, error) {
	if l.passes == nil {
		return false, nil
	}
	return l.passes.Passed(ctx, strings.TrimSpace(userID))
}
