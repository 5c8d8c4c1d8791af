package coordinator

import (
	"context"

	"github.com/stretchr/testify/mock"

	"buildledger/internal/integrations"
)

type MockAuditSink struct {
	mock.Mock
}

func (m *MockAuditSink) CreateAuditLog(ctx context.Context, entry integrations.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) CreateNotifications(ctx context.Context, batch []integrations.Notification) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

type MockAssetCleaner struct {
	mock.Mock
}

func (m *MockAssetCleaner) CleanupProjectAssets(ctx context.Context, projectID int64) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}
