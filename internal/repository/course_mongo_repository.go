package repository

import (
	"context"
	"course_hub_backend/internal/model"
	"course_hub_backend/internal/util"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const courseCollection = "courses"

// CourseMongoRepository stores each course as one document, the nested tree
// embedded in it.
type CourseMongoRepository struct {
	coll *mongo.Collection
}

func NewCourseMongoRepository(db *mongo.Database) *CourseMongoRepository {
	return &CourseMongoRepository{coll: db.Collection(courseCollection)}
}

func (r *CourseMongoRepository) FindByID(ctx context.Context, id string) (*model.Course, error) {
	if err := checkCourseID(id); err != nil {
		return nil, err
	}

	var course model.Course
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&course)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, storageErr("find course", err)
	}
	course.Normalize()
	return &course, nil
}

func (r *CourseMongoRepository) FindAll(ctx context.Context) ([]model.Course, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, storageErr("list courses", err)
	}
	defer cur.Close(ctx)

	courses := []model.Course{}
	if err := cur.All(ctx, &courses); err != nil {
		return nil, storageErr("list courses", err)
	}
	for i := range courses {
		courses[i].Normalize()
	}
	return courses, nil
}

func (r *CourseMongoRepository) Create(ctx context.Context, course *model.Course) error {
	if course.ID == "" {
		course.ID = model.NewID()
	}
	now := time.Now()
	course.CreatedAt = now
	course.UpdatedAt = now
	course.Version = 0
	course.Normalize()

	if _, err := r.coll.InsertOne(ctx, course); err != nil {
		return storageErr("create course", err)
	}
	return nil
}

func (r *CourseMongoRepository) Save(ctx context.Context, course *model.Course) error {
	if err := checkCourseID(course.ID); err != nil {
		return err
	}

	next := *course
	next.Version = course.Version + 1
	next.UpdatedAt = time.Now()

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": course.ID, "version": course.Version}, &next)
	if err != nil {
		return storageErr("save course", err)
	}
	if res.MatchedCount == 0 {
		return r.missOrConflict(ctx, course.ID)
	}

	course.Version = next.Version
	course.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *CourseMongoRepository) UpdateFields(ctx context.Context, id string, patch *model.CoursePatch) error {
	if err := checkCourseID(id); err != nil {
		return err
	}

	set := bson.M{"updatedAt": time.Now()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.EstimatedPrice != nil {
		set["estimatedPrice"] = *patch.EstimatedPrice
	}
	if patch.Tags != nil {
		set["tags"] = *patch.Tags
	}
	if patch.Level != nil {
		set["level"] = *patch.Level
	}
	if patch.DemoURL != nil {
		set["demoUrl"] = *patch.DemoURL
	}
	if patch.Benefits != nil {
		set["benefits"] = *patch.Benefits
	}
	if patch.Prerequisites != nil {
		set["prerequisites"] = *patch.Prerequisites
	}
	if patch.Thumbnail != nil {
		set["thumbnail"] = *patch.Thumbnail
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
	})
	if err != nil {
		return storageErr("update course", err)
	}
	if res.MatchedCount == 0 {
		return util.ErrCourseNotFound
	}
	return nil
}

func (r *CourseMongoRepository) Delete(ctx context.Context, id string) error {
	if err := checkCourseID(id); err != nil {
		return err
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return storageErr("delete course", err)
	}
	if res.DeletedCount == 0 {
		return util.ErrCourseNotFound
	}
	return nil
}

func (r *CourseMongoRepository) missOrConflict(ctx context.Context, id string) error {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return storageErr("check course", err)
	}
	if n == 0 {
		return util.ErrCourseNotFound
	}
	return util.ErrVersionConflict
}
