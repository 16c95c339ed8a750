// Package cache keeps in-memory tables in step with PostgreSQL through
// LISTEN/NOTIFY.
package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"datagrid/internal/domain/query"
	"datagrid/internal/infrastructure/storage/postgres"
	"datagrid/pkg/logger"
)

// Reloader reloads a table by name.
type Reloader interface {
	Reload(ctx context.Context, table string) error
}

// Config configures an Invalidator.
type Config struct {
	// Channel to LISTEN on. Default postgres.RowsChangedChannel.
	Channel string
	// Delay coalesces a burst of notifications for one table into a single
	// reload. Zero reloads on every notification.
	Delay time.Duration
	Clock query.Clock
}

// Invalidator reloads tables when PostgreSQL announces row changes.
type Invalidator struct {
	pool     *pgxpool.Pool
	reloader Reloader
	cfg      Config

	mu      sync.Mutex
	pending map[string]*query.Debouncer

	notifications atomic.Int64
	reloads       atomic.Int64
	failures      atomic.Int64

	lifecycleMu sync.Mutex
	started     bool
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewInvalidator creates an invalidator. Start begins listening.
func NewInvalidator(pool *pgxpool.Pool, reloader Reloader, cfg Config) *Invalidator {
	if cfg.Channel == "" {
		cfg.Channel = postgres.RowsChangedChannel
	}
	if cfg.Clock == nil {
		cfg.Clock = query.SystemClock()
	}
	return &Invalidator{
		pool:     pool,
		reloader: reloader,
		cfg:      cfg,
		pending:  make(map[string]*query.Debouncer),
		ctx:      context.Background(),
	}
}

// Start begins listening for notifications.
func (i *Invalidator) Start(ctx context.Context) {
	i.lifecycleMu.Lock()
	defer i.lifecycleMu.Unlock()
	if i.started {
		return
	}
	i.ctx, i.cancel = context.WithCancel(ctx)
	i.started = true

	i.wg.Add(1)
	go i.listenLoop()
	logger.Info(i.ctx, "table invalidator started", "channel", i.cfg.Channel)
}

// Stop stops listening and drops reloads that have not run yet.
func (i *Invalidator) Stop() {
	i.lifecycleMu.Lock()
	if !i.started {
		i.lifecycleMu.Unlock()
		return
	}
	cancel := i.cancel
	i.started = false
	i.lifecycleMu.Unlock()

	cancel()
	i.wg.Wait()

	i.mu.Lock()
	for _, d := range i.pending {
		d.Cancel()
	}
	i.mu.Unlock()
	logger.Info(context.Background(), "table invalidator stopped")
}

// listenLoop holds a dedicated connection for LISTEN, reconnecting on failure.
func (i *Invalidator) listenLoop() {
	defer i.wg.Done()

	for i.ctx.Err() == nil {
		conn, err := i.pool.Acquire(i.ctx)
		if err != nil {
			logger.Error(i.ctx, "failed to acquire connection for LISTEN", "error", err)
			i.sleep(time.Second)
			continue
		}

		if _, err := conn.Exec(i.ctx, "LISTEN "+pgx.Identifier{i.cfg.Channel}.Sanitize()); err != nil {
			logger.Error(i.ctx, "failed to LISTEN", "channel", i.cfg.Channel, "error", err)
			conn.Release()
			i.sleep(time.Second)
			continue
		}

		i.waitForNotifications(conn)
		conn.Release()
	}
}

func (i *Invalidator) waitForNotifications(conn *pgxpool.Conn) {
	for {
		// Bounded wait so a broken connection is noticed.
		ctx, cancel := context.WithTimeout(i.ctx, 30*time.Second)
		n, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if i.ctx.Err() != nil {
				return
			}
			if ctx.Err() != nil {
				continue
			}
			logger.Warn(i.ctx, "LISTEN connection lost", "error", err)
			return
		}
		i.handleNotification(n.Payload)
	}
}

func (i *Invalidator) sleep(d time.Duration) {
	select {
	case <-i.ctx.Done():
	case <-time.After(d):
	}
}

// handleNotification schedules a reload of the table named by payload.
func (i *Invalidator) handleNotification(payload string) {
	i.notifications.Add(1)
	table := strings.TrimSpace(payload)
	if table == "" {
		logger.Warn(i.ctx, "ignoring notification without table name", "channel", i.cfg.Channel)
		return
	}
	if i.cfg.Delay <= 0 {
		i.reload(table)
		return
	}

	i.mu.Lock()
	d, ok := i.pending[table]
	if !ok {
		d = query.NewDebouncer(i.cfg.Clock, i.cfg.Delay)
		i.pending[table] = d
	}
	i.mu.Unlock()
	d.Trigger(func() { i.reload(table) })
}

func (i *Invalidator) reload(table string) {
	if err := i.reloader.Reload(i.ctx, table); err != nil {
		i.failures.Add(1)
		logger.Error(i.ctx, "table reload failed", "table", table, "error", err)
		return
	}
	i.reloads.Add(1)
	logger.Debug(i.ctx, "table reloaded after notification", "table", table)
}

// Stats counts notifications and their outcomes.
type Stats struct {
	Notifications int64
	Reloads       int64
	Failures      int64
}

// GetStats returns current statistics.
func (i *Invalidator) GetStats() Stats {
	return Stats{
		Notifications: i.notifications.Load(),
		Reloads:       i.reloads.Load(),
		Failures:      i.failures.Load(),
	}
}
