package service

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/gobblets/game/engine"
)

// eventLog appends one GameEvent per published update
type eventLog struct {
	sess     *Session
	lastOver bool
}

func newEventLog(sess *Session) *eventLog {
	return &eventLog{sess: sess}
}

func (l *eventLog) Update(snap engine.Snapshot, update engine.ClientUpdate) {
	now := time.Now()
	l.sess.appendEvent(GameEvent{
		Type:      eventType(update),
		Message:   update.Message,
		Player:    actor(snap, update),
		Moves:     snap.Moves,
		Timestamp: now,
	})

	if snap.GameOver() && !l.lastOver {
		l.lastOver = true
		l.sess.appendEvent(GameEvent{
			Type:      EventGameOver,
			Message:   snap.Status,
			Player:    snap.Winner,
			Moves:     snap.Moves,
			Timestamp: now,
		})
	}
}

func eventType(update engine.ClientUpdate) string {
	switch update.Message {
	case engine.MsgSelectedBoardPiece, engine.MsgSelectedStackPiece:
		return EventSelection
	case engine.MsgDeselectedBoardPiece, engine.MsgDeselectedStackPiece:
		return EventDeselection
	case engine.MsgPlayedBoardPiece, engine.MsgPlayedStackPiece:
		return EventPlacement
	case engine.MsgTimeout:
		return EventTimeout
	}
	return EventRejected
}

// actor returns the player behind update. After a placement that does not
// end the game the turn has already passed to the opponent. For a timeout
// it is the player whose clock ran out.
func actor(snap engine.Snapshot, update engine.ClientUpdate) engine.PlayerID {
	if update.Rebuild && !snap.GameOver() {
		return snap.OtherPlayer().ID
	}
	return snap.Active
}

// resultRecorder archives the match once a winner is known
type resultRecorder struct {
	sess   *Session
	store  ResultStore
	logger *zap.Logger
	once   sync.Once
}

func newResultRecorder(sess *Session, store ResultStore, logger *zap.Logger) *resultRecorder {
	return &resultRecorder{sess: sess, store: store, logger: logger}
}

func (r *resultRecorder) Update(snap engine.Snapshot, update engine.ClientUpdate) {
	if !snap.GameOver() {
		return
	}
	r.once.Do(func() {
		result := NewMatchResult(r.sess, snap, time.Now())
		// archive off the publishing goroutine
		go func() {
			if err := r.store.SaveResult(result); err != nil {
				r.logger.Error("failed to archive match result",
					zap.String("session", r.sess.ID), zap.Error(err))
				return
			}
			r.logger.Info("match archived",
				zap.String("session", r.sess.ID),
				zap.String("result", result.ID),
				zap.String("winner", result.WinnerName),
				zap.String("reason", string(result.Reason)),
			)
		}()
	})
}
