package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xlttj/portpanel/pkg/logging"
	"github.com/xlttj/portpanel/pkg/page"
)

func newPageCmd(opts *options) *cobra.Command {
	var (
		dir  string
		name string
		from string
	)

	cmd := &cobra.Command{
		Use:   "page",
		Short: "Write an HTML page into the document root",
		Long: `Write an HTML page into the web server's document root.

The content comes from --from, or the built-in starter page when --from
is not given. The directory defaults to page.dir from config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			defer logging.Close()

			content := page.DefaultTemplate
			if from != "" {
				data, err := os.ReadFile(from)
				if err != nil {
					return fmt.Errorf("read %s: %w", from, err)
				}
				content = string(data)
			}
			if dir == "" {
				dir = cfg.Page.Dir
			}

			path, err := page.Write(dir, name, content)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved HTML -> %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "target directory (default from config)")
	cmd.Flags().StringVar(&name, "name", page.DefaultFilename, "file name")
	cmd.Flags().StringVar(&from, "from", "", "read page content from this file")
	return cmd
}
