package main

import (
	"errors"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/app"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/gallery/domain"
	"github.com/spf13/cobra"
)

func newListingsCmd(open opener, jsonOutput *bool) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "listings",
		Short: "List all listings, one page at a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), open, func(a *app.App) error {
				result, err := a.Gallery.ListAll(cmd.Context(), page)
				if err != nil {
					return err
				}
				return printPage(cmd, result, *jsonOutput)
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func newVehiclesCmd(open opener, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "vehicles <bodyType>",
		Short: "List listings with an exact body type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), open, func(a *app.App) error {
				result, err := a.Gallery.ListByBodyType(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printPage(cmd, result, *jsonOutput)
			})
		},
	}
}

func newFeaturedCmd(open opener, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "featured",
		Short: "Show the featured listings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), open, func(a *app.App) error {
				result, err := a.Gallery.Featured(cmd.Context())
				if err != nil {
					return err
				}
				return printPage(cmd, result, *jsonOutput)
			})
		},
	}
}

func newSearchCmd(open opener, jsonOutput *bool) *cobra.Command {
	var exact bool
	var page int
	cmd := &cobra.Command{
		Use:   "search <brand>",
		Short: "Find listings by brand",
		Long:  "Without --exact prints the first listing whose brand contains the argument, ignoring case.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), open, func(a *app.App) error {
				var (
					result domain.ListingPage
					err    error
				)
				if exact {
					result, err = a.Gallery.ListByBrand(cmd.Context(), args[0], page)
				} else {
					result, err = a.Gallery.SearchBrand(cmd.Context(), args[0])
				}
				if err != nil {
					return err
				}
				return printPage(cmd, result, *jsonOutput)
			})
		},
	}
	cmd.Flags().BoolVar(&exact, "exact", false, "match the brand exactly and paginate")
	cmd.Flags().IntVar(&page, "page", 1, "page number with --exact")
	return cmd
}

func newGroupCmd(open opener, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "group <groupId>",
		Short: "Show a listing and all of its images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), open, func(a *app.App) error {
				detail, err := a.Gallery.GetGroup(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printGroup(cmd, detail, *jsonOutput)
			})
		},
	}
}

func newDeleteCmd(open opener, jsonOutput *bool) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <groupId>",
		Short: "Delete every image of a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete group %s without --yes", args[0])
			}
			return withApp(cmd.Context(), open, func(a *app.App) error {
				report, err := a.Gallery.DeleteGroup(cmd.Context(), args[0])
				if err != nil && !errors.Is(err, domain.ErrPartialDelete) {
					return err
				}
				if perr := printDeleteReport(cmd, report, *jsonOutput); perr != nil {
					return perr
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")
	return cmd
}
