package model

import (
	"fmt"
	"time"
)

// The lookups below return pointers into the aggregate so callers can mutate
// the located entity in place before the course is persisted.

func (c *Course) FindContentItem(contentID string) (*ContentItem, error) {
	if !IsValidID(contentID) {
		return nil, fmt.Errorf("%w: content id %q", ErrInvalidID, contentID)
	}
	for i := range c.Content {
		if c.Content[i].ID == contentID {
			return &c.Content[i], nil
		}
	}
	return nil, ErrInvalidContentID
}

func (item *ContentItem) AppendQuestion(author AuthorSnapshot, text string) *Question {
	item.Questions = append(item.Questions, Question{
		ID:        NewID(),
		Author:    author,
		Text:      text,
		Replies:   []Reply{},
		CreatedAt: time.Now(),
	})
	return &item.Questions[len(item.Questions)-1]
}

func (item *ContentItem) FindQuestion(questionID string) (*Question, error) {
	if !IsValidID(questionID) {
		return nil, fmt.Errorf("%w: question id %q", ErrInvalidID, questionID)
	}
	for i := range item.Questions {
		if item.Questions[i].ID == questionID {
			return &item.Questions[i], nil
		}
	}
	return nil, ErrInvalidQuestionID
}

func (q *Question) AppendReply(author AuthorSnapshot, text string) *Reply {
	q.Replies = append(q.Replies, newReply(author, text))
	return &q.Replies[len(q.Replies)-1]
}

func (c *Course) FindReview(reviewID string) (*Review, error) {
	if !IsValidID(reviewID) {
		return nil, fmt.Errorf("%w: review id %q", ErrInvalidID, reviewID)
	}
	for i := range c.Reviews {
		if c.Reviews[i].ID == reviewID {
			return &c.Reviews[i], nil
		}
	}
	return nil, ErrInvalidReviewID
}

func (r *Review) AppendReply(author AuthorSnapshot, text string) *Reply {
	r.Replies = append(r.Replies, newReply(author, text))
	return &r.Replies[len(r.Replies)-1]
}

// AppendReview adds a review and recomputes the average rating over every
// review of the course, the new one included.
func (c *Course) AppendReview(author AuthorSnapshot, rating int, comment string) *Review {
	c.Reviews = append(c.Reviews, Review{
		ID:        NewID(),
		Author:    author,
		Rating:    rating,
		Comment:   comment,
		Replies:   []Reply{},
		CreatedAt: time.Now(),
	})
	c.RecomputeAverageRating()
	return &c.Reviews[len(c.Reviews)-1]
}

// RecomputeAverageRating leaves the previous value untouched when the course
// has no reviews.
func (c *Course) RecomputeAverageRating() {
	if len(c.Reviews) == 0 {
		return
	}
	sum := 0
	for _, r := range c.Reviews {
		sum += r.Rating
	}
	c.AverageRating = float64(sum) / float64(len(c.Reviews))
}

func newReply(author AuthorSnapshot, text string) Reply {
	return Reply{
		ID:        NewID(),
		Author:    author,
		Text:      text,
		CreatedAt: time.Now(),
	}
}
