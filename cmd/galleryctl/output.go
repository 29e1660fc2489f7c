package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/gallery/domain"
	"github.com/spf13/cobra"
)

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPage(cmd *cobra.Command, page domain.ListingPage, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, page)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tBRAND\tMODEL\tYEAR\tBODY\tPRICE\tURL")
	for _, l := range page.Listings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", l.GroupID, l.Brand, l.Model, l.Year, l.BodyType, l.Price, l.URL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if page.TotalPages > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%d listings, %d pages\n", page.Total, page.TotalPages)
	}
	return nil
}

func printGroup(cmd *cobra.Command, detail *domain.GroupDetail, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, detail)
	}
	out := cmd.OutOrStdout()
	l := detail.Listing
	fmt.Fprintf(out, "%s  %s %s %s (%s)  %s\n", l.GroupID, l.Year, l.Brand, l.Model, l.BodyType, l.Price)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OBJECT\tFILENAME\tURL")
	for _, o := range detail.Objects {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", o.ObjectID, o.Filename, o.URL)
	}
	return tw.Flush()
}

func printDeleteReport(cmd *cobra.Command, report *domain.DeleteReport, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, report)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "deleted %d objects of group %s\n", len(report.Deleted), report.GroupID)
	for _, f := range report.Failed {
		fmt.Fprintf(out, "failed %s: %s\n", f.ObjectID, f.Reason)
	}
	return nil
}
