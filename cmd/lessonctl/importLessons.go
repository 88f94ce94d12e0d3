package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"lessonchat/db"
	"lessonchat/services"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var importFile string

var importLessonsCmd = &cobra.Command{
	Use:   "import-lessons",
	Short: "Upsert lessons from a YAML catalog",
	Long:  "Upsert lessons by slug from a YAML catalog. Key concepts of every imported lesson are replaced.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if importFile == "" {
			return fmt.Errorf("--file is required (use - for stdin)")
		}

		var in io.Reader = os.Stdin
		if importFile != "-" {
			f, err := os.Open(importFile)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", importFile, err)
			}
			defer f.Close()
			in = f
		}

		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := db.Migrate(cmd.Context(), database); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}

		service := services.NewLessonService(db.NewPostgresLessonRepository(database))
		count, err := importLessons(cmd.Context(), service, in)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d lessons\n", count)
		return nil
	},
}

func init() {
	importLessonsCmd.Flags().StringVarP(&importFile, "file", "f", "", "YAML lesson catalog")
}

// importLessons validates the whole catalog before the first write.
func importLessons(ctx context.Context, service *services.LessonService, r io.Reader) (int, error) {
	lessons, err := db.ParseLessons(r)
	if err != nil {
		return 0, err
	}

	for _, lesson := range lessons {
		if err := service.ValidateLesson(lesson); err != nil {
			return 0, err
		}
	}

	for _, lesson := range lessons {
		if err := service.SaveLesson(ctx, lesson); err != nil {
			return 0, err
		}
		log.Debugf("Imported lesson %q", lesson.Slug)
	}

	return len(lessons), nil
}
