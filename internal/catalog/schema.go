package catalog

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const topicSchema = `{
  "type": "object",
  "required": ["id", "subject", "title", "lessons"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "subject": {"type": "string", "minLength": 1},
    "title": {"type": "string", "minLength": 1},
    "level": {"type": "string"},
    "duration": {"type": "string"},
    "description": {"type": "string"},
    "lessons": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "title"],
        "properties": {
          "id": {"type": "integer", "minimum": 1},
          "title": {"type": "string", "minLength": 1},
          "content": {"type": "string"}
        }
      }
    }
  }
}`

const quizSchema = `{
  "type": "object",
  "required": ["id", "title", "passing_score", "xp_reward", "required_lessons", "questions"],
  "properties": {
    "id": {"type": "integer", "minimum": 1},
    "title": {"type": "string", "minLength": 1},
    "instruction": {"type": "string"},
    "passing_score": {"type": "integer", "minimum": 0, "maximum": 100},
    "max_score": {"type": "integer", "minimum": 0},
    "xp_reward": {"type": "integer", "minimum": 0},
    "subject": {"type": "string"},
    "topic": {"type": "string"},
    "duration": {"type": "string"},
    "required_lessons": {
      "type": "object",
      "required": ["subject", "topic_id", "total_lessons"],
      "properties": {
        "subject": {"type": "string", "minLength": 1},
        "topic_id": {"type": "string", "minLength": 1},
        "total_lessons": {"type": "integer", "minimum": 0}
      }
    },
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "question_text", "options", "correct_answer", "points"],
        "properties": {
          "id": {"type": "integer"},
          "question_text": {"type": "string", "minLength": 1},
          "options": {"type": "array", "minItems": 2, "uniqueItems": true, "items": {"type": "string"}},
          "correct_answer": {"type": "string"},
          "points": {"type": "integer", "minimum": 1}
        }
      }
    }
  }
}`

// Kind identifies the document type of a catalog file.
type Kind string

const (
	KindTopic Kind = "topic"
	KindQuiz  Kind = "quiz"
)

var schemas = map[Kind]*gojsonschema.Schema{
	KindTopic: mustSchema(topicSchema),
	KindQuiz:  mustSchema(quizSchema),
}

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("catalog: invalid built-in schema: %v", err))
	}
	return schema
}

// ValidateDocument checks a decoded YAML document against the schema for kind.
func ValidateDocument(kind Kind, doc any) error {
	schema, ok := schemas[kind]
	if !ok {
		return fmt.Errorf("unknown document kind %q", kind)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validating %s: %w", kind, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%s schema: %s", kind, strings.Join(msgs, "; "))
}
