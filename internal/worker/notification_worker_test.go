package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/visahub/crm-service/internal/service"
)

func TestWorkerDrainsQueue(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	w := NewNotificationWorker(zap.New(core), 8)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	w.Enqueue(service.Notification{Kind: "lead_created", LeadID: "l1", Subject: "New lead registered"})

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("notification").Len() == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	w.Stop()
}

func TestWorkerDropsWhenQueueFull(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	w := NewNotificationWorker(zap.New(core), 1)

	// not started, so the second job cannot fit
	w.Enqueue(service.Notification{Kind: "lead_created", LeadID: "l1"})
	w.Enqueue(service.Notification{Kind: "lead_created", LeadID: "l2"})

	assert.Equal(t, 1, logs.FilterMessage("notification queue full, dropping job").Len())
}
