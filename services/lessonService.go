package services

import (
	"context"
	"fmt"
	"strings"

	"lessonchat/db"
	"lessonchat/models"

	"github.com/lithammer/fuzzysearch/fuzzy"
	log "github.com/sirupsen/logrus"
)

type LessonService struct {
	repo db.LessonRepository
}

func NewLessonService(repo db.LessonRepository) *LessonService {
	return &LessonService{repo: repo}
}

func (s *LessonService) GetLesson(ctx context.Context, slug string) (*models.Lesson, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("lesson slug is required")
	}

	lesson, err := s.repo.GetLessonBySlug(ctx, slug)
	if err != nil {
		log.Errorf("Failed to get lesson %q: %v", slug, err)
		return nil, err
	}
	return lesson, nil
}

func (s *LessonService) GetLessonByID(ctx context.Context, id int) (*models.Lesson, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid lesson ID: %d", id)
	}
	return s.repo.GetLessonByID(ctx, id)
}

func (s *LessonService) GetAllLessons(ctx context.Context) ([]*models.Lesson, error) {
	lessons, err := s.repo.GetAllLessons(ctx)
	if err != nil {
		log.Errorf("Failed to get all lessons: %v", err)
		return nil, fmt.Errorf("failed to get lessons: %w", err)
	}

	log.Debugf("Retrieved %d lessons", len(lessons))
	return lessons, nil
}

// SaveLesson validates and upserts an authored lesson.
func (s *LessonService) SaveLesson(ctx context.Context, lesson *models.Lesson) error {
	if err := s.ValidateLesson(lesson); err != nil {
		log.Errorf("Lesson validation failed: %v", err)
		return err
	}

	if err := s.repo.SaveLesson(ctx, lesson); err != nil {
		log.Errorf("Failed to save lesson %q: %v", lesson.Slug, err)
		return fmt.Errorf("failed to save lesson: %w", err)
	}

	log.Infof("Saved lesson %q with %d key concepts", lesson.Slug, len(lesson.KeyConcepts))
	return nil
}

// ValidateLesson checks an authored lesson and trims its concept labels.
func (s *LessonService) ValidateLesson(lesson *models.Lesson) error {
	if lesson == nil {
		return fmt.Errorf("lesson cannot be nil")
	}
	return lesson.Validate()
}

func (s *LessonService) SearchLessons(ctx context.Context, searchTerms []string) ([]*models.Lesson, error) {
	lessons, err := s.GetAllLessons(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get lessons for search: %w", err)
	}

	if len(searchTerms) == 0 {
		return lessons, nil
	}

	matching := make([]*models.Lesson, 0)
	for _, lesson := range lessons {
		if s.lessonMatchesSearch(lesson, searchTerms) {
			matching = append(matching, lesson)
		}
	}

	log.Infof("Found %d lessons matching %v", len(matching), searchTerms)
	return matching, nil
}

func (s *LessonService) lessonMatchesSearch(lesson *models.Lesson, searchTerms []string) bool {
	haystack := strings.Join(append([]string{lesson.Title, lesson.Location}, lesson.ConceptLabels()...), " ")

	words := make([]string, 0)
	for _, word := range strings.Fields(strings.ToLower(haystack)) {
		word = strings.Trim(word, ".,!?;:()[]{}\"'¿¡")
		if len(word) > 0 {
			words = append(words, word)
		}
	}

	for _, term := range searchTerms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}

		if len(fuzzy.RankFindFold(term, words)) > 0 {
			return true
		}

		// one typo in longer terms
		if len(term) > 4 {
			for _, word := range words {
				if fuzzy.LevenshteinDistance(strings.ToLower(term), word) <= 1 {
					return true
				}
			}
		}
	}

	return false
}

// ParseSearchTerms splits a catalog query into search terms.
func ParseSearchTerms(query string) []string {
	return strings.Fields(query)
}
