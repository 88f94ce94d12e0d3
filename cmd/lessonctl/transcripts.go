package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"lessonchat/db"
	"lessonchat/models"
	"lessonchat/services"

	"github.com/spf13/cobra"
)

var transcriptsUser string

var transcriptsCmd = &cobra.Command{
	Use:   "transcripts",
	Short: "List a user's lesson attempts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if transcriptsUser == "" {
			return fmt.Errorf("--user is required")
		}

		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		service := services.NewTranscriptService(db.NewPostgresTranscriptRepository(database))
		transcripts, err := service.GetTranscriptsByUser(cmd.Context(), transcriptsUser)
		if err != nil {
			return err
		}

		return printTranscripts(cmd.OutOrStdout(), transcripts)
	},
}

func init() {
	transcriptsCmd.Flags().StringVarP(&transcriptsUser, "user", "u", "", "user id")
}

func printTranscripts(out io.Writer, transcripts []*models.Transcript) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLESSON\tMESSAGES\tCREATED")
	for _, t := range transcripts {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\n", t.ID, t.LessonID, t.MessageCount, t.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
