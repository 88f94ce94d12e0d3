package db

import (
	"context"
	"fmt"
	"io"
	"os"

	"lessonchat/models"

	"gopkg.in/yaml.v3"
)

type lessonCatalog struct {
	Lessons []*models.Lesson `yaml:"lessons"`
}

// ParseLessons reads a YAML lesson catalog of the form
//
//	lessons:
//	  - slug: cafe
//	    title: At the café
//	    key_concepts:
//	      - concept: ordering coffee
func ParseLessons(r io.Reader) ([]*models.Lesson, error) {
	var catalog lessonCatalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&catalog); err != nil {
		if err == io.EOF {
			return []*models.Lesson{}, nil
		}
		return nil, fmt.Errorf("failed to parse lesson catalog: %w", err)
	}

	for i, lesson := range catalog.Lessons {
		if lesson == nil {
			return nil, fmt.Errorf("lesson %d is empty", i+1)
		}
		if lesson.EstimatedTime == 0 {
			lesson.EstimatedTime = models.DefaultEstimatedTime
		}
		if lesson.Voice == "" {
			lesson.Voice = models.VoiceMale
		}
		if lesson.DifficultyLevel == "" {
			lesson.DifficultyLevel = models.LevelA1
		}
	}
	return catalog.Lessons, nil
}

func LoadLessonsFile(path string) ([]*models.Lesson, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open lesson catalog: %w", err)
	}
	defer f.Close()

	return ParseLessons(f)
}

// NewFileLessonRepository loads a YAML catalog into memory. The whole catalog
// is rejected when any lesson breaks the authoring rules.
func NewFileLessonRepository(path string) (*MemoryLessonRepository, error) {
	lessons, err := LoadLessonsFile(path)
	if err != nil {
		return nil, err
	}

	for _, lesson := range lessons {
		if err := lesson.Validate(); err != nil {
			return nil, fmt.Errorf("invalid lesson catalog %s: %w", path, err)
		}
	}

	repo := NewMemoryLessonRepository()
	for _, lesson := range lessons {
		if err := repo.SaveLesson(context.Background(), lesson); err != nil {
			return nil, err
		}
	}
	return repo, nil
}
