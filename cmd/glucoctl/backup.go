package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"glucolog/internal/backup"
)

func newBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Upload the database file to S3 once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var uploader backup.Uploader
			if a.cfg.Backup.Bucket != "" {
				client, err := backup.NewS3Uploader(ctx)
				if err != nil {
					return err
				}
				uploader = client
			}
			job := backup.NewJob(uploader, a.cfg.Backup.Bucket, a.cfg.DatabaseFile, a.log)
			if !job.Run(ctx) {
				return errors.New("backup did not complete, see log")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "backup uploaded")
			return nil
		},
	}
}
