package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbaille/pathranger/internal/domain"
)

const defaultCount = 10

func recordCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "record [path]",
		Short: "Record a visit to a directory (usually called from shell integration)",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := absPath(args[0])
			if err != nil {
				return err
			}
			if !isDir(path) {
				a.logger.Debug("skipping visit, not a directory", "path", path)
				return nil
			}

			svc, st, err := a.getService()
			if err != nil {
				return err
			}
			defer st.Close()

			_, err = svc.OnDirectoryChange(cmd.Context(), path)
			return err
		},
	}
}

func addCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add",
		Short: "Add current directory to tracked paths",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get current directory: %w", err)
			}

			svc, st, err := a.getService()
			if err != nil {
				return err
			}
			defer st.Close()

			e, err := svc.OnDirectoryChange(cmd.Context(), cwd)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added '%s' to tracked directories\n", blue(displayPath(e.Path)))
			return nil
		},
	}
}

func markCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mark [tag] [path]",
		Short: "Mark a directory (default: the current one) with a tag",
		Args:  usageArgs(cobra.RangeArgs(1, 2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			target := "."
			if len(args) == 2 {
				target = args[1]
			}

			path, err := absPath(target)
			if err != nil {
				return err
			}
			if !isDir(path) {
				return fmt.Errorf("directory does not exist: %s: %w", path, domain.ErrInvalidPath)
			}

			svc, st, err := a.getService()
			if err != nil {
				return err
			}
			defer st.Close()

			_, existed, err := svc.ResolveTag(cmd.Context(), name)
			if err != nil {
				return err
			}

			tag, err := svc.Mark(cmd.Context(), name, path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if existed {
				fmt.Fprintf(out, "Updated tag '%s' to point to '%s'\n", tagName(tag.Name), blue(displayPath(tag.Path)))
			} else {
				fmt.Fprintf(out, "Created tag '%s' for '%s'\n", tagName(tag.Name), blue(displayPath(tag.Path)))
			}
			return nil
		},
	}
}

func gotoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "goto [tag|query]",
		Short: "Print the directory for a tag, or the best match among visited directories",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, st, err := a.getService()
			if err != nil {
				return err
			}
			defer st.Close()

			target := strings.Join(args, " ")
			path, err := svc.Goto(cmd.Context(), target)
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("no tag or directory matches '%s': %w", target, domain.ErrNotFound)
			}
			if err != nil {
				return err
			}

			// Raw path only: the shell wrapper cds into it.
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func topCmd(a *app) *cobra.Command {
	var (
		count  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "top",
		Short: "List your most visited directories",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrinter(cmd.OutOrStdout(), format)
			if err != nil {
				return err
			}

			svc, st, err := a.getService()
			if err != nil {
				return err
			}
			defer st.Close()

			entries, err := svc.Top(cmd.Context(), count)
			if err != nil {
				return err
			}
			return p.entries("Your most frequently visited directories:", entries)
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", defaultCount, "number of directories to show")
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, plain, json, yaml")
	return cmd
}

func recentCmd(a *app) *cobra.Command {
	var (
		count  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show recently visited directories",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrinter(cmd.OutOrStdout(), format)
			if err != nil {
				return err
			}

			svc, st, err := a.getService()
			if err != nil {
				return err
			}
			defer st.Close()

			entries, err := svc.Recent(cmd.Context(), count)
			if err != nil {
				return err
			}
			return p.entries("Your recently visited directories:", entries)
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", defaultCount, "number of directories to show")
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, plain, json, yaml")
	return cmd
}

func searchCmd(a *app) *cobra.Command {
	var (
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search across your visited directories and tags",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrinter(cmd.OutOrStdout(), format)
			if err != nil {
				return err
			}

			svc, st, err := a.getService()
			if err != nil {
				return err
			}
			defer st.Close()

			results, err := svc.Search(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return p.searchResults(args[0], results)
		},
	}

	cmd.Flags().IntVarP(&limit, "count", "n", defaultCount, "maximum number of results (0 for all)")
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, plain, json, yaml")
	return cmd
}

func tagsCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List all tags",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrinter(cmd.OutOrStdout(), format)
			if err != nil {
				return err
			}

			svc, st, err := a.getService()
			if err != nil {
				return err
			}
			defer st.Close()

			tags, err := svc.Tags(cmd.Context())
			if err != nil {
				return err
			}
			return p.tags(tags)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, plain, json, yaml")
	return cmd
}

func untagCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "untag [tag]",
		Short: "Remove a tag",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, st, err := a.getService()
			if err != nil {
				return err
			}
			defer st.Close()

			removed, err := svc.Untag(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if removed {
				fmt.Fprintf(cmd.OutOrStdout(), "Tag '%s' removed\n", tagName(args[0]))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Tag '%s' not found\n", args[0])
			}
			return nil
		},
	}
}

func forgetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "forget [path]",
		Short: "Delete a directory from the history (its tags are kept)",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := absPath(args[0])
			if err != nil {
				return err
			}

			svc, st, err := a.getService()
			if err != nil {
				return err
			}
			defer st.Close()

			deleted, err := svc.Forget(cmd.Context(), path)
			if err != nil {
				return err
			}

			if deleted {
				fmt.Fprintf(cmd.OutOrStdout(), "Forgot '%s'\n", blue(displayPath(path)))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "'%s' is not in the history\n", displayPath(path))
			}
			return nil
		},
	}
}

func pruneCmd(a *app) *cobra.Command {
	var jobs int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete history entries whose directory no longer exists",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, st, err := a.getService()
			if err != nil {
				return err
			}
			defer st.Close()

			removed, err := svc.Prune(cmd.Context(), dirExists, jobs)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(removed) == 0 {
				fmt.Fprintln(out, "Nothing to prune.")
				return nil
			}
			for _, p := range removed {
				fmt.Fprintf(out, "removed %s\n", blue(displayPath(p)))
			}
			fmt.Fprintf(out, "Pruned %d directories\n", len(removed))
			return nil
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "parallel directory checks (default 8)")
	return cmd
}

// absPath expands a leading ~ and makes path absolute.
func absPath(path string) (string, error) {
	path = expandTilde(path)
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return abs, nil
}

func expandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func dirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
