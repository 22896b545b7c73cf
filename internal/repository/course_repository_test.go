package repository

import (
	"context"
	"course_hub_backend/internal/model"
	"course_hub_backend/internal/util"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.Course{}, &model.User{}, &model.Purchase{}, &model.Notification{}))
	return db
}

func sampleCourse() *model.Course {
	return &model.Course{
		Name:  "Go in Practice",
		Price: 49,
		Benefits: datatypes.JSONSlice[model.TitledItem]{
			{Title: "Write services"},
		},
		Content: datatypes.JSONSlice[model.ContentItem]{
			{Title: "Intro", VideoURL: "https://cdn.example.com/v/1", Suggestion: "watch twice"},
			{Title: "Channels"},
		},
	}
}

func TestCourseRepositoryCreateAndFind(t *testing.T) {
	repo := NewCourseRepository(newTestDB(t))
	ctx := context.Background()

	course := sampleCourse()
	require.NoError(t, repo.Create(ctx, course))
	require.True(t, model.IsValidID(course.ID))
	for _, item := range course.Content {
		assert.True(t, model.IsValidID(item.ID))
	}

	got, err := repo.FindByID(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go in Practice", got.Name)
	assert.Equal(t, int64(0), got.Version)
	require.Len(t, got.Content, 2)
	assert.Equal(t, course.Content[0].ID, got.Content[0].ID)
	assert.Equal(t, "watch twice", got.Content[0].Suggestion)
	assert.NotNil(t, got.Reviews)
}

func TestCourseRepositoryFindByIDErrors(t *testing.T) {
	repo := NewCourseRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.FindByID(ctx, "not-an-id")
	assert.ErrorIs(t, err, util.ErrInvalidID)

	_, err = repo.FindByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestCourseRepositorySaveAdvancesVersion(t *testing.T) {
	repo := NewCourseRepository(newTestDB(t))
	ctx := context.Background()

	course := sampleCourse()
	require.NoError(t, repo.Create(ctx, course))

	loaded, err := repo.FindByID(ctx, course.ID)
	require.NoError(t, err)
	loaded.AppendReview(model.AuthorSnapshot{ID: 7, Name: "amy"}, 4, "solid")
	require.NoError(t, repo.Save(ctx, loaded))
	assert.Equal(t, int64(1), loaded.Version)

	stored, err := repo.FindByID(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
	require.Len(t, stored.Reviews, 1)
	assert.Equal(t, 4.0, stored.AverageRating)
}

func TestCourseRepositorySaveStaleVersionConflicts(t *testing.T) {
	repo := NewCourseRepository(newTestDB(t))
	ctx := context.Background()

	course := sampleCourse()
	require.NoError(t, repo.Create(ctx, course))

	first, err := repo.FindByID(ctx, course.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, course.ID)
	require.NoError(t, err)

	first.AppendReview(model.AuthorSnapshot{ID: 1}, 5, "a")
	require.NoError(t, repo.Save(ctx, first))

	second.AppendReview(model.AuthorSnapshot{ID: 2}, 1, "b")
	err = repo.Save(ctx, second)
	assert.ErrorIs(t, err, util.ErrVersionConflict)

	stored, err := repo.FindByID(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, stored.Reviews, 1)
	assert.Equal(t, "a", stored.Reviews[0].Comment)
}

func TestCourseRepositorySaveMissingCourse(t *testing.T) {
	repo := NewCourseRepository(newTestDB(t))

	course := sampleCourse()
	course.ID = uuid.NewString()
	err := repo.Save(context.Background(), course)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestCourseRepositoryUpdateFields(t *testing.T) {
	repo := NewCourseRepository(newTestDB(t))
	ctx := context.Background()

	course := sampleCourse()
	require.NoError(t, repo.Create(ctx, course))

	name := "Go in Production"
	price := 59.0
	prereq := []model.TitledItem{{Title: "Basic Go"}}
	require.NoError(t, repo.UpdateFields(ctx, course.ID, &model.CoursePatch{
		Name:          &name,
		Price:         &price,
		Prerequisites: &prereq,
		Thumbnail:     &model.Thumbnail{PublicID: "courses/a.png", URL: "http://assets/a.png"},
	}))

	got, err := repo.FindByID(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
	assert.Equal(t, price, got.Price)
	assert.Equal(t, "courses/a.png", got.Thumbnail.PublicID)
	require.Len(t, got.Prerequisites, 1)
	assert.Len(t, got.Content, 2)
	assert.Equal(t, int64(1), got.Version)

	err = repo.UpdateFields(ctx, uuid.NewString(), &model.CoursePatch{Name: &name})
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestCourseRepositoryDelete(t *testing.T) {
	repo := NewCourseRepository(newTestDB(t))
	ctx := context.Background()

	course := sampleCourse()
	require.NoError(t, repo.Create(ctx, course))
	require.NoError(t, repo.Delete(ctx, course.ID))

	_, err := repo.FindByID(ctx, course.ID)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, course.ID), util.ErrCourseNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "bad"), util.ErrInvalidID)
}

func TestCourseRepositoryFindAllNewestFirst(t *testing.T) {
	repo := NewCourseRepository(newTestDB(t))
	ctx := context.Background()

	older := sampleCourse()
	older.Name = "older"
	require.NoError(t, repo.Create(ctx, older))
	newer := sampleCourse()
	newer.Name = "newer"
	newer.CreatedAt = older.CreatedAt.Add(time.Second)
	require.NoError(t, repo.Create(ctx, newer))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "newer", all[0].Name)
}

func TestCourseRepositoryWrapsDriverErrors(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}),
		&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM `courses`").WillReturnError(errors.New("connection reset"))

	_, err = NewCourseRepository(db).FindByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, util.ErrStorage)
	assert.NotErrorIs(t, err, util.ErrCourseNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryLoadsPurchases(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &model.User{Name: "amy", Email: "amy@example.com", Role: model.Student}
	require.NoError(t, repo.Create(ctx, user))
	courseID := uuid.NewString()
	require.NoError(t, db.Create(&model.Purchase{UserID: user.ID, CourseID: courseID}).Error)

	got, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, got.Purchases, 1)
	assert.Equal(t, courseID, got.Purchases[0].CourseID)

	_, err = repo.FindByID(ctx, 9999)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestNotificationRepositoryDefaultsToUnread(t *testing.T) {
	repo := NewNotificationRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Notification{UserID: 3, Title: "New Question", Message: "hi"}))

	list, err := repo.FindByUser(ctx, 3)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.NotificationUnread, list[0].Status)
}
