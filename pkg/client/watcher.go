package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/angelmondragon/noticecast/internal/broadcast"
	"github.com/angelmondragon/noticecast/pkg/db/models"
	"github.com/angelmondragon/noticecast/pkg/logger"
	"github.com/angelmondragon/noticecast/pkg/session"
	"github.com/angelmondragon/noticecast/pkg/status"
)

const (
	streamEventReady     = "ready"
	streamEventHeartbeat = "heartbeat"

	defaultReconnectDelay = 3 * time.Second
)

type WatcherParams struct {
	Client         *Client
	Machine        *session.Machine
	Logger         *logger.Logger
	ReconnectDelay time.Duration
	// OnAction receives every screen action the machine emits.
	OnAction func(session.Action)
}

// Watcher keeps one session in sync with the server: it pulls on connect and
// on system_changed, feeds pushed notices into the machine and sends read
// marks for dismissals.
type Watcher struct {
	client   *Client
	machine  *session.Machine
	logg     *logger.Logger
	delay    time.Duration
	onAction func(session.Action)

	mu       sync.Mutex
	operator bool
}

func NewWatcher(params WatcherParams) (*Watcher, error) {
	if params.Client == nil {
		return nil, errors.New("client required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	machine := params.Machine
	if machine == nil {
		machine = session.NewMachine(session.MachineParams{})
	}
	delay := params.ReconnectDelay
	if delay <= 0 {
		delay = defaultReconnectDelay
	}
	onAction := params.OnAction
	if onAction == nil {
		onAction = func(session.Action) {}
	}
	return &Watcher{
		client:   params.Client,
		machine:  machine,
		logg:     params.Logger,
		delay:    delay,
		onAction: onAction,
	}, nil
}

func (w *Watcher) Machine() *session.Machine { return w.machine }

// Run connects, resolves and follows the push stream until ctx ends. Dropped
// connections are retried after the reconnect delay; every reconnect pulls
// again because the stream has no backlog.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		err := w.follow(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if IsStatus(err, http.StatusUnauthorized) || IsStatus(err, http.StatusForbidden) {
			return err
		}
		w.logg.Warn(ctx, fmt.Sprintf("stream dropped, reconnecting in %s: %v", w.delay, err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.delay):
		}
	}
}

func (w *Watcher) follow(ctx context.Context) error {
	stream, err := w.client.Stream(ctx)
	if err != nil {
		return err
	}
	defer stream.Close() //nolint:errcheck // best-effort close

	for {
		frame, err := stream.Next()
		if err != nil {
			return err
		}
		if err := w.handleFrame(ctx, frame); err != nil {
			w.logg.Error(ctx, "stream frame failed", err)
		}
	}
}

func (w *Watcher) handleFrame(ctx context.Context, frame StreamEvent) error {
	switch frame.Name {
	case streamEventHeartbeat:
		return nil
	case streamEventReady:
		var ready struct {
			IsOperator bool `json:"isOperator"`
		}
		if err := json.Unmarshal(frame.Data, &ready); err != nil {
			return fmt.Errorf("decode ready: %w", err)
		}
		w.mu.Lock()
		w.operator = ready.IsOperator
		w.mu.Unlock()
		return w.Resolve(ctx)
	}

	evt, err := broadcast.DecodeEvent(frame.Data)
	if err != nil {
		return err
	}
	ctx = w.logg.WithEvent(ctx, evt.Kind.String(), evt.ID)
	w.logg.Debug(ctx, "stream event received")

	action := w.machine.HandleEvent(evt.Kind, evt.Notice)
	if action.Kind == session.ActionPull {
		w.onAction(action)
		return w.Resolve(ctx)
	}
	w.emit(action)
	return nil
}

// Resolve pulls the current state and applies the resolution. Operators are
// never locked or interrupted.
func (w *Watcher) Resolve(ctx context.Context) error {
	w.onAction(w.machine.Begin())

	w.mu.Lock()
	operator := w.operator
	w.mu.Unlock()
	if operator {
		w.emit(w.machine.Apply(status.Idle))
		return nil
	}

	sys, err := w.client.SystemStatus(ctx)
	if err != nil {
		return err
	}
	snap := status.Snapshot{Urgent: sys.Locked, Promo: sys.Promo}
	if snap.Urgent == nil && snap.Promo == nil {
		popups, err := w.client.UnreadPopups(ctx)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(popups))
		for _, n := range popups {
			ids = append(ids, n.ID)
		}
		w.machine.Dedup().Reconcile(ids)
		snap.UnreadPopups = popups
	}

	w.emit(w.machine.Apply(status.Resolve(snap, w.machine.Dedup())))
	return nil
}

// Dismiss closes the displayed interstitial and records the read mark.
func (w *Watcher) Dismiss(ctx context.Context, noticeID int64) error {
	markRead, err := w.machine.Dismiss(noticeID)
	if err != nil {
		return err
	}
	w.emit(session.Action{Kind: session.ActionClear})
	if !markRead {
		return nil
	}
	return w.markRead(ctx, noticeID)
}

// OpenToast handles a click on a toast: the notice counts as read.
func (w *Watcher) OpenToast(ctx context.Context, noticeID int64) (*models.Notice, error) {
	n, ok := w.machine.OpenToast(noticeID)
	if !ok {
		return nil, session.ErrNotDisplayed
	}
	return n, w.markRead(ctx, noticeID)
}

func (w *Watcher) markRead(ctx context.Context, noticeID int64) error {
	dedup := w.machine.Dedup()
	err := w.client.MarkRead(ctx, noticeID)
	switch {
	case err == nil, IsStatus(err, http.StatusNotFound):
		dedup.ConfirmRead(noticeID)
		return nil
	default:
		dedup.AbandonRead(noticeID)
		return err
	}
}

func (w *Watcher) emit(action session.Action) {
	if action.Kind == session.ActionNone {
		return
	}
	w.onAction(action)
}

// IsOperator reports the role announced by the server on connect.
func (w *Watcher) IsOperator() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.operator
}
