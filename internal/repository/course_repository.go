package repository

import (
	"context"
	"course_hub_backend/internal/model"
	"course_hub_backend/internal/util"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CourseRepository persists the course aggregate in a single MySQL row. The
// nested collections live in JSON columns and are always written together.
type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func checkCourseID(id string) error {
	if !model.IsValidID(id) {
		return fmt.Errorf("%w: course id %q", util.ErrInvalidID, id)
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", util.ErrStorage, op, err)
}

func (r *CourseRepository) FindByID(ctx context.Context, id string) (*model.Course, error) {
	if err := checkCourseID(id); err != nil {
		return nil, err
	}

	var course model.Course
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, storageErr("find course", err)
	}
	course.Normalize()
	return &course, nil
}

// FindAll returns every course, newest first.
func (r *CourseRepository) FindAll(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	if err := r.DB.WithContext(ctx).Order("created_at DESC").Find(&courses).Error; err != nil {
		return nil, storageErr("list courses", err)
	}
	for i := range courses {
		courses[i].Normalize()
	}
	return courses, nil
}

func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	course.Normalize()
	course.Version = 0
	if err := r.DB.WithContext(ctx).Create(course).Error; err != nil {
		return storageErr("create course", err)
	}
	return nil
}

// Save replaces the stored aggregate, provided nobody else saved it since it
// was read. On success course.Version is advanced to the stored value.
func (r *CourseRepository) Save(ctx context.Context, course *model.Course) error {
	if err := checkCourseID(course.ID); err != nil {
		return err
	}

	now := time.Now()
	res := r.DB.WithContext(ctx).Model(&model.Course{}).
		Where("id = ? AND version = ?", course.ID, course.Version).
		Updates(map[string]interface{}{
			"name":                course.Name,
			"description":         course.Description,
			"price":               course.Price,
			"estimated_price":     course.EstimatedPrice,
			"thumbnail_public_id": course.Thumbnail.PublicID,
			"thumbnail_url":       course.Thumbnail.URL,
			"tags":                course.Tags,
			"level":               course.Level,
			"demo_url":            course.DemoURL,
			"benefits":            course.Benefits,
			"prerequisites":       course.Prerequisites,
			"content":             course.Content,
			"reviews":             course.Reviews,
			"average_rating":      course.AverageRating,
			"purchased":           course.Purchased,
			"version":             course.Version + 1,
			"updated_at":          now,
		})
	if res.Error != nil {
		return storageErr("save course", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missOrConflict(ctx, course.ID)
	}

	course.Version++
	course.UpdatedAt = now
	return nil
}

// UpdateFields applies a metadata patch without touching the content tree.
func (r *CourseRepository) UpdateFields(ctx context.Context, id string, patch *model.CoursePatch) error {
	if err := checkCourseID(id); err != nil {
		return err
	}

	fields := map[string]interface{}{
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now(),
	}
	if patch.Name != nil {
		fields["name"] = *patch.Name
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Price != nil {
		fields["price"] = *patch.Price
	}
	if patch.EstimatedPrice != nil {
		fields["estimated_price"] = *patch.EstimatedPrice
	}
	if patch.Tags != nil {
		fields["tags"] = *patch.Tags
	}
	if patch.Level != nil {
		fields["level"] = *patch.Level
	}
	if patch.DemoURL != nil {
		fields["demo_url"] = *patch.DemoURL
	}
	if patch.Benefits != nil {
		fields["benefits"] = datatypes.JSONSlice[model.TitledItem](*patch.Benefits)
	}
	if patch.Prerequisites != nil {
		fields["prerequisites"] = datatypes.JSONSlice[model.TitledItem](*patch.Prerequisites)
	}
	if patch.Thumbnail != nil {
		fields["thumbnail_public_id"] = patch.Thumbnail.PublicID
		fields["thumbnail_url"] = patch.Thumbnail.URL
	}

	res := r.DB.WithContext(ctx).Model(&model.Course{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return storageErr("update course", res.Error)
	}
	if res.RowsAffected == 0 {
		return util.ErrCourseNotFound
	}
	return nil
}

// Delete soft-deletes the course.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	if err := checkCourseID(id); err != nil {
		return err
	}

	res := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&model.Course{})
	if res.Error != nil {
		return storageErr("delete course", res.Error)
	}
	if res.RowsAffected == 0 {
		return util.ErrCourseNotFound
	}
	return nil
}

func (r *CourseRepository) missOrConflict(ctx context.Context, id string) error {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&model.Course{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return storageErr("check course", err)
	}
	if count == 0 {
		return util.ErrCourseNotFound
	}
	return util.ErrVersionConflict
}
