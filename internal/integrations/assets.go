package integrations

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
)

// DirAssetCleaner removes a project's uploaded files, stored under
// <root>/projects/<id>.
type DirAssetCleaner struct {
	root string
	log  logrus.FieldLogger
}

func NewDirAssetCleaner(root string, log logrus.FieldLogger) *DirAssetCleaner {
	return &DirAssetCleaner{root: root, log: log.WithField("component", "assets")}
}

func (c *DirAssetCleaner) ProjectDir(projectID int64) string {
	return filepath.Join(c.root, "projects", strconv.FormatInt(projectID, 10))
}

func (c *DirAssetCleaner) CleanupProjectAssets(_ context.Context, projectID int64) error {
	if c.root == "" {
		return nil
	}
	dir := c.ProjectDir(projectID)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing %s: %w", dir, err)
	}
	c.log.WithFields(logrus.Fields{"project_id": projectID, "dir": dir}).Info("project assets removed")
	return nil
}
