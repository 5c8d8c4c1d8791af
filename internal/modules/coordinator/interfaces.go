package coordinator

import (
	"context"

	"buildledger/internal/integrations"
)

type AuditSink interface {
	CreateAuditLog(ctx context.Context, entry integrations.AuditEntry) error
}

type Notifier interface {
	CreateNotifications(ctx context.Context, batch []integrations.Notification) error
}

type AssetCleaner interface {
	CleanupProjectAssets(ctx context.Context, projectID int64) error
}
