package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"jobportal/internal/domain"
	"jobportal/internal/state"
	"jobportal/internal/validate"
	"jobportal/internal/view"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func jobsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List, show, add and remove jobs on the backend",
	}
	cmd.AddCommand(listCmd(a))
	cmd.AddCommand(showCmd(a))
	cmd.AddCommand(addCmd(a))
	cmd.AddCommand(rmCmd(a))
	return cmd
}

// newStore builds a store without an event hub; nothing listens in the CLI.
func (a *app) newStore() (*state.Store, error) {
	api, err := a.client()
	if err != nil {
		return nil, err
	}
	return state.New(api, nil), nil
}

func listCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every job in backend order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.newStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.FetchJobs(cmd.Context()); err != nil {
				return err
			}
			jobs := store.Snapshot().Jobs
			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs yet.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tCOMPANY\tLOCATION\tDESCRIPTION")
			for _, j := range jobs {
				desc, _ := view.Truncate(j.Description, a.cfg.Display.TruncateAt)
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", j.ID, j.Title, j.Company, j.Location, desc)
			}
			return tw.Flush()
		},
	}
}

func showCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID [ID...]",
		Short: "Show one or more jobs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			store, err := a.newStore()
			if err != nil {
				return err
			}
			defer store.Close()

			jobs := make([]domain.Job, len(ids))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(4)
			for i, id := range ids {
				g.Go(func() error {
					j, err := store.FetchJobDetails(ctx, id)
					if err != nil {
						return fmt.Errorf("job %d: %s", id, state.Message(err))
					}
					jobs[i] = j
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, j := range jobs {
				if i > 0 {
					fmt.Fprintln(out)
				}
				printJob(out, j)
			}
			return nil
		},
	}
}

func printJob(w io.Writer, j domain.Job) {
	fmt.Fprintf(w, "ID:          %d\n", j.ID)
	fmt.Fprintf(w, "Title:       %s\n", j.Title)
	fmt.Fprintf(w, "Company:     %s\n", j.Company)
	if j.Location != "" {
		fmt.Fprintf(w, "Location:    %s\n", j.Location)
	}
	if j.Salary != nil {
		fmt.Fprintf(w, "Salary:      %d\n", *j.Salary)
	}
	fmt.Fprintf(w, "Description: %s\n", j.Description)
	if j.CreatedAt != nil {
		fmt.Fprintf(w, "Created:     %s\n", j.CreatedAt.Format("2006-01-02 15:04"))
	}
}

func addCmd(a *app) *cobra.Command {
	var d domain.Draft
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := validate.New(a.cfg.Rules())
			if err := v.Draft(d); err != nil {
				return err
			}
			store, err := a.newStore()
			if err != nil {
				return err
			}
			defer store.Close()

			j, err := store.CreateJob(cmd.Context(), d)
			if err != nil {
				return errors.New(state.Message(err))
			}
			if j.ID != 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Job %d registered.\n", j.ID)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Job registered.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&d.Title, "title", "", "job title")
	cmd.Flags().StringVar(&d.Company, "company", "", "company name")
	cmd.Flags().StringVar(&d.Description, "description", "", "short description")
	cmd.Flags().StringVar(&d.Location, "location", "", "location")
	cmd.Flags().StringVar(&d.Salary, "salary", "", "annual salary")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}

func rmCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a job after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			id := ids[0]

			store, err := a.newStore()
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if !yes {
				ok, err := confirm(cmd.Context(), cmd.InOrStdin(), out, fmt.Sprintf("Delete job %d? [y/N] ", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "Cancelled.")
					return nil
				}
			}

			if err := store.Cards().Confirm(id); err != nil {
				return err
			}
			if err := store.ConfirmDelete(cmd.Context(), id); err != nil {
				return errors.New(state.Message(err))
			}
			fmt.Fprintf(out, "Job %d deleted.\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func confirm(ctx context.Context, in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, s := range args {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid job id %q", s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
