package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veerhq/veer/internal/database"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/service/query"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestCreateProject(t *testing.T) {
	svc := NewProjectService(setupTestDB(t))

	p, err := svc.CreateProject(&CreateProjectRequest{Name: "Website", Color: "F0A"})
	require.NoError(t, err)
	assert.Equal(t, "#ff00aa", p.Color)
	assert.Equal(t, database.ProjectActive, p.Status)

	_, err = svc.CreateProject(&CreateProjectRequest{Name: "Bad", Color: "#12345"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidColor))
}

func TestProjectTaskCounts(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProjectService(db)
	p, err := svc.CreateProject(&CreateProjectRequest{Name: "Launch"})
	require.NoError(t, err)

	require.NoError(t, db.Create(&database.Task{Title: "a", ProjectID: p.RecordID, Done: true}).Error)
	require.NoError(t, db.Create(&database.Task{Title: "b", ProjectID: p.RecordID}).Error)
	require.NoError(t, db.Create(&database.Task{Title: "c", ProjectID: "other"}).Error)

	detail, err := svc.GetProject(p.RecordID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, detail.TaskTotal)
	assert.EqualValues(t, 1, detail.TaskDone)

	// 删除项目后任务保留，只解除关联
	require.NoError(t, svc.DeleteProject(p.RecordID))
	var orphaned int64
	require.NoError(t, db.Model(&database.Task{}).Where("project_id = ''").Count(&orphaned).Error)
	assert.EqualValues(t, 2, orphaned)
}

func TestArchiveProject(t *testing.T) {
	svc := NewProjectService(setupTestDB(t))
	a, err := svc.CreateProject(&CreateProjectRequest{Name: "A"})
	require.NoError(t, err)
	_, err = svc.CreateProject(&CreateProjectRequest{Name: "B"})
	require.NoError(t, err)

	archived, err := svc.SetArchived(a.RecordID, true)
	require.NoError(t, err)
	assert.Equal(t, database.ProjectArchived, archived.Status)

	_, total, err := svc.ListProjects(database.ProjectActive, query.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	list, total, err := svc.ListProjects(database.ProjectArchived, query.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "A", list[0].Name)

	restored, err := svc.SetArchived(a.RecordID, false)
	require.NoError(t, err)
	assert.Equal(t, database.ProjectActive, restored.Status)

	_, _, err = svc.ListProjects("deleted", query.Page{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidParams))
}

func TestUpdateProject(t *testing.T) {
	svc := NewProjectService(setupTestDB(t))
	p, err := svc.CreateProject(&CreateProjectRequest{Name: "Old", Description: "keep"})
	require.NoError(t, err)

	name := "New"
	updated, err := svc.UpdateProject(p.RecordID, &UpdateProjectRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, "keep", updated.Description)

	_, err = svc.UpdateProject("missing", &UpdateProjectRequest{Name: &name})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrRecordNotFound))
}
