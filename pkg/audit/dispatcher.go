// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package audit

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/tenancy"
	"github.com/canonical/erp-auth/internal/tracing"
	"github.com/canonical/erp-auth/internal/types"
)

const writeTimeout = 5 * time.Second

// Entry is one audited event. OrganizationID falls back to the tenant bound
// on the context passed to Log.
type Entry struct {
	OrganizationID string
	UserID         string
	Action         string
	Resource       string
	Details        map[string]interface{}
	IPAddress      string
	UserAgent      string
}

var redactedKeys = map[string]struct{}{
	"password":     {},
	"newpassword":  {},
	"token":        {},
	"refreshtoken": {},
	"accesstoken":  {},
	"apikey":       {},
}

// Dispatcher persists audit entries from a single background goroutine.
// Log never blocks the request path: when the buffer is full the entry is
// dropped and counted.
type Dispatcher struct {
	storage StorageInterface
	entries chan *types.AuditLog

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (d *Dispatcher) Log(ctx context.Context, e Entry) {
	record := d.record(ctx, e)

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warnf("audit dispatcher closed, dropping %s event", e.Action)
		return
	}

	select {
	case d.entries <- record:
	default:
		d.logger.Warnf("audit buffer full, dropping %s event", e.Action)
		d.monitor.IncAuthEvent(map[string]string{"event": "audit", "outcome": "dropped"})
	}
}

// Close stops accepting entries and waits until the buffer is drained or ctx
// is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.entries)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for record := range d.entries {
		d.write(record)
	}
}

func (d *Dispatcher) write(record *types.AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	ctx, span := d.tracer.Start(ctx, "audit.Dispatcher.write")
	defer span.End()

	if err := d.storage.CreateAuditLog(ctx, record); err != nil {
		d.logger.Errorf("failed to write %s audit log: %v", record.Action, err)
	}
}

func (d *Dispatcher) record(ctx context.Context, e Entry) *types.AuditLog {
	record := &types.AuditLog{
		Action:    e.Action,
		Resource:  e.Resource,
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgent,
		CreatedAt: time.Now().UTC(),
	}

	orgID := e.OrganizationID
	if orgID == "" {
		orgID, _ = tenancy.TenantIDFromContext(ctx)
	}
	if orgID != "" {
		record.OrganizationID = &orgID
	}

	if e.UserID != "" {
		userID := e.UserID
		record.UserID = &userID
	}

	if len(e.Details) > 0 {
		details, err := json.Marshal(redact(e.Details))
		if err != nil {
			d.logger.Errorf("failed to encode %s audit details: %v", e.Action, err)
		} else {
			record.Details = details
		}
	}

	return record
}

func redact(details map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(details))
	for k, v := range details {
		if _, ok := redactedKeys[strings.ToLower(k)]; ok {
			continue
		}
		out[k] = v
	}
	return out
}

func NewDispatcher(storage StorageInterface, bufferSize int, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 1
	}

	d := new(Dispatcher)

	d.storage = storage
	d.entries = make(chan *types.AuditLog, bufferSize)
	d.done = make(chan struct{})

	d.tracer = tracer
	d.monitor = monitor
	d.logger = logger

	go d.run()

	return d
}
