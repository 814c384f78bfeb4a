// Package catalog holds the static topic and quiz definitions.
package catalog

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

var (
	ErrQuizNotFound  = errors.New("quiz not found")
	ErrTopicNotFound = errors.New("topic not found")
)

// Catalog is an immutable, validated set of topics and quizzes.
type Catalog struct {
	topics  map[string]Topic
	quizzes map[int]Quiz
}

// New validates topics and quizzes and indexes them. Topic keys and quiz ids
// must be unique.
func New(topics []Topic, quizzes []Quiz) (*Catalog, error) {
	c := &Catalog{
		topics:  make(map[string]Topic, len(topics)),
		quizzes: make(map[int]Quiz, len(quizzes)),
	}

	for _, t := range topics {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.topics[t.Key()]; dup {
			return nil, fmt.Errorf("duplicate topic %s", t.Key())
		}
		c.topics[t.Key()] = t
	}

	for _, q := range quizzes {
		if err := q.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.quizzes[q.ID]; dup {
			return nil, fmt.Errorf("duplicate quiz id %d", q.ID)
		}
		if _, ok := c.topics[q.RequiredLessons.TopicKey()]; !ok {
			slog.Warn("quiz requires lessons from an unknown topic",
				"quiz_id", q.ID,
				"topic_key", q.RequiredLessons.TopicKey(),
			)
		}
		c.quizzes[q.ID] = q
	}

	return c, nil
}

// Quiz returns the quiz with the given id.
func (c *Catalog) Quiz(id int) (Quiz, error) {
	q, ok := c.quizzes[id]
	if !ok {
		return Quiz{}, fmt.Errorf("quiz %d: %w", id, ErrQuizNotFound)
	}
	return q, nil
}

// Quizzes returns every quiz ordered by id.
func (c *Catalog) Quizzes() []Quiz {
	out := make([]Quiz, 0, len(c.quizzes))
	for _, q := range c.quizzes {
		out = append(out, q)
	}
	slices.SortFunc(out, func(a, b Quiz) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Topic returns the topic stored under topicKey ("mathematics-1").
func (c *Catalog) Topic(topicKey string) (Topic, error) {
	t, ok := c.topics[topicKey]
	if !ok {
		return Topic{}, fmt.Errorf("topic %s: %w", topicKey, ErrTopicNotFound)
	}
	return t, nil
}

// TopicFor is Topic keyed by subject and topic id.
func (c *Catalog) TopicFor(subject, topicID string) (Topic, error) {
	return c.Topic(TopicKey(subject, topicID))
}

// Topics returns every topic ordered by key.
func (c *Catalog) Topics() []Topic {
	out := make([]Topic, 0, len(c.topics))
	for _, t := range c.topics {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b Topic) int { return cmp.Compare(a.Key(), b.Key()) })
	return out
}

// QuizForTopic returns the lowest-id quiz whose requirement points at topicKey.
func (c *Catalog) QuizForTopic(topicKey string) (Quiz, bool) {
	for _, q := range c.Quizzes() {
		if q.RequiredLessons.TopicKey() == topicKey {
			return q, true
		}
	}
	return Quiz{}, false
}
