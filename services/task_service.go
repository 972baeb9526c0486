package services

import (
	"KidQuest/interfaces"
	"KidQuest/models"
	"KidQuest/pkg/logger"
	"KidQuest/repositories"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
)

type CompleteTaskInput struct {
	ChildID  string
	DeviceID string
	TaskID   string
	// CompletionID is the client's idempotency key; generated when empty.
	CompletionID string
	Proof        json.RawMessage
}

type TaskResult struct {
	Completion models.TaskCompletion `json:"completion"`
	Entry      *models.LedgerEntry   `json:"entry,omitempty"`
	Replayed   bool                  `json:"replayed"`
}

// TaskService is the task completion gateway: the only writer that needs an
// authorized device session, and the only caller of the EARN hook.
type TaskService struct {
	store    repositories.Store
	tx       txRunner
	sessions *SessionService
	rule     interfaces.XPRule
	notify   *NotificationService
	clock    Clock
	log      *logger.Logger
}

func NewTaskService(store repositories.Store, txMaxRetries int, sessions *SessionService, rule interfaces.XPRule, notify *NotificationService, clock Clock, log *logger.Logger) *TaskService {
	return &TaskService{
		store:    store,
		tx:       newTxRunner(store, txMaxRetries, log),
		sessions: sessions,
		rule:     rule,
		notify:   notify,
		clock:    clock,
		log:      log,
	}
}

func (s *TaskService) CompleteTask(ctx context.Context, in CompleteTaskInput) (TaskResult, error) {
	if in.ChildID == "" || in.TaskID == "" {
		return TaskResult{}, fmt.Errorf("%w: child id and task_id are required", models.ErrInvalidInput)
	}
	if in.DeviceID == "" {
		return TaskResult{}, fmt.Errorf("%w: device id is required", models.ErrInvalidInput)
	}
	if len(in.CompletionID) > 64 {
		return TaskResult{}, fmt.Errorf("%w: completion_id is too long", models.ErrInvalidInput)
	}
	if len(in.Proof) > 0 && !json.Valid(in.Proof) {
		return TaskResult{}, fmt.Errorf("%w: proof must be JSON", models.ErrInvalidInput)
	}

	sessionID, err := s.sessions.RequireSession(ctx, in.ChildID, in.DeviceID)
	if err != nil {
		return TaskResult{}, err
	}

	completionID := in.CompletionID
	if completionID == "" {
		completionID = models.NewID()
	} else if result, ok, err := s.replay(ctx, s.store, in.ChildID, completionID); err != nil || ok {
		return result, err
	}

	xp, err := s.rule.XPFor(ctx, in.ChildID, in.TaskID)
	if err != nil {
		return TaskResult{}, fmt.Errorf("xp rule: %w", err)
	}
	if xp < 0 {
		return TaskResult{}, fmt.Errorf("%w: negative xp for task %s", models.ErrInvalidState, in.TaskID)
	}

	var result TaskResult
	err = s.tx.run(ctx, "complete_task", func(tx repositories.Store) error {
		result = TaskResult{}

		wallet, err := tx.Wallets().FindByChild(ctx, in.ChildID)
		if err != nil {
			return err
		}
		if _, err := tx.Wallets().LockByID(ctx, wallet.ID); err != nil {
			return err
		}
		// a concurrent retry may have won the race
		if replayed, ok, err := s.replay(ctx, tx, in.ChildID, completionID); err != nil || ok {
			result = replayed
			return err
		}

		now := s.clock()
		completion := models.TaskCompletion{
			ID:        completionID,
			ChildID:   in.ChildID,
			TaskID:    in.TaskID,
			DeviceID:  in.DeviceID,
			SessionID: sessionID,
			Proof:     datatypes.JSON(in.Proof),
			XP:        xp,
			CreatedAt: now,
		}
		if xp > 0 {
			entry, _, err := appendEarn(ctx, tx, wallet, xp, completionID, now)
			if err != nil {
				return err
			}
			completion.EarnEntryID = entry.ID
			result.Entry = &entry
		}
		if err := tx.Completions().Create(ctx, &completion); err != nil {
			return err
		}
		result.Completion = completion
		return nil
	})
	if err != nil {
		return TaskResult{}, err
	}

	if !result.Replayed {
		s.log.Infow("task completed", "child_id", in.ChildID, "task_id", in.TaskID, "completion_id", completionID, "xp", xp)
		s.notify.NotifyFamily(ctx, in.ChildID, interfaces.EventTaskCompleted, result, nil)
	}
	return result, nil
}

// replay returns the stored result for a completion id already accepted for this child.
func (s *TaskService) replay(ctx context.Context, store repositories.Store, childID, completionID string) (TaskResult, bool, error) {
	completion, err := store.Completions().FindByID(ctx, completionID)
	if errors.Is(err, models.ErrNotFound) {
		return TaskResult{}, false, nil
	}
	if err != nil {
		return TaskResult{}, false, err
	}
	if completion.ChildID != childID {
		return TaskResult{}, false, fmt.Errorf("%w: completion_id already used", models.ErrConflict)
	}

	result := TaskResult{Completion: completion, Replayed: true}
	if completion.EarnEntryID != "" {
		wallet, err := store.Wallets().FindByChild(ctx, childID)
		if err != nil {
			return TaskResult{}, false, err
		}
		entry, err := store.Ledger().FindByIdempotencyKey(ctx, wallet.ID, completionID)
		if err != nil {
			return TaskResult{}, false, err
		}
		result.Entry = &entry
	}
	return result, true, nil
}
