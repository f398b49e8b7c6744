package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"macwatch/internal/codec"
	"macwatch/internal/domain"
	"macwatch/internal/registry"
	"macwatch/internal/service"
)

// parseFlags parses command flags, mapping -h and bad flags to errUsage
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

func runScan(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	targets := fs.String("targets", "", "comma separated CIDRs or hosts (overrides scan.targets)")
	method := fs.String("method", "", "scanner: nmap or sweep (overrides scan.method)")
	auto := fs.Bool("auto", false, "scan the local private networks when no targets are set")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *targets != "" {
		a.cfg.Scan.Targets = splitList(*targets)
	}
	if *method != "" {
		a.cfg.Scan.Method = *method
	}
	if *auto {
		a.cfg.Scan.AutoTargets = true
	}

	scanner, err := a.scanner()
	if err != nil {
		return err
	}
	if scanner == nil {
		return fmt.Errorf("%w: set scan.targets or pass -targets or -auto", service.ErrNoScanner)
	}

	inventory, err := a.inventory(false, service.WithScanner(scanner))
	if err != nil {
		return err
	}

	result, err := inventory.Scan(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "scan at %s: %d devices, %d new\n",
		result.Timestamp.Instant.Format(time.RFC3339), result.Devices, result.NewDevices)
	return nil
}

func runIngest(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	force := fs.Bool("force", false, "ingest even when a feed is unchanged since the last run")
	class := fs.String("class", "", "assignment class of the file arguments: MA-L, MA-M or MA-S")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var reports []*registry.Report
	if fs.NArg() > 0 {
		if *class == "" {
			return fmt.Errorf("%w: -class is required with file arguments", domain.ErrInvalidArgument)
		}
		c, err := domain.ParseAssignmentClass(*class)
		if err != nil {
			return err
		}
		ranges, err := a.rangeStore()
		if err != nil {
			return err
		}
		ingestor := registry.NewIngestor(ranges, registry.WithForce(*force))
		for _, path := range fs.Args() {
			report, err := ingestor.IngestFile(ctx, c, path)
			if err != nil {
				return err
			}
			reports = append(reports, report)
		}
	} else {
		feeds, err := a.registrySync(*force, nil)
		if err != nil {
			return err
		}
		reports, err = feeds.Sync(ctx)
		if err != nil {
			return err
		}
	}

	printReports(a, reports)
	return nil
}

func printReports(a *app, reports []*registry.Report) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLASS\tACCEPTED\tSKIPPED\tPLACEHOLDERS\tNEW ORGS\tNEW RANGES\tSTATUS")
	for _, r := range reports {
		status := "ingested"
		if r.Unchanged {
			status = "unchanged"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.Class, r.Accepted, r.Skipped, r.Placeholders, r.NewOrganizations, r.NewRanges, status)
	}
	tw.Flush()

	for _, r := range reports {
		for _, rowErr := range r.Errors {
			fmt.Fprintf(a.out, "%s: %v\n", r.Class, rowErr)
		}
	}
}

func runFetch(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	ingest := fs.Bool("ingest", false, "ingest the feeds after downloading")
	baseURL := fs.String("base-url", "", "registry base URL (overrides registry.base_url)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *baseURL != "" {
		a.cfg.Registry.BaseURL = *baseURL
	}

	results, err := registry.NewFetcher(a.cfg.Registry.BaseURL).FetchAll(ctx, a.cfg.FeedPaths())
	for _, result := range results {
		fmt.Fprintf(a.out, "%s: %s (%d bytes)\n", result.Class, result.Path, result.Bytes)
	}
	if err != nil {
		return err
	}

	if !*ingest {
		return nil
	}
	feeds, err := a.registrySync(false, nil)
	if err != nil {
		return err
	}
	reports, err := feeds.Sync(ctx)
	if err != nil {
		return err
	}
	printReports(a, reports)
	return nil
}

func runResolve(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: resolve needs at least one MAC address", domain.ErrInvalidArgument)
	}

	resolver, err := a.resolver()
	if err != nil {
		return err
	}

	for _, arg := range fs.Args() {
		orgs, err := resolver.ResolveString(ctx, arg)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s\n", arg)
		if len(orgs) == 0 {
			fmt.Fprintf(a.out, "  (no registered organization)\n")
		}
		for _, o := range orgs {
			if o.Address != "" {
				fmt.Fprintf(a.out, "  %s, %s\n", o.Name, o.Address)
			} else {
				fmt.Fprintf(a.out, "  %s\n", o.Name)
			}
		}
	}
	return nil
}

func runDevices(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("devices", flag.ContinueOnError)
	orgs := fs.Bool("orgs", false, "include the organizations owning each address")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	inventory, err := a.inventory(*orgs)
	if err != nil {
		return err
	}
	devices, err := inventory.Devices(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	header := "MAC\tNAME\tHOSTNAME\tLAST SEEN"
	if *orgs {
		header += "\tORGANIZATION"
	}
	fmt.Fprintln(tw, header)
	for _, d := range devices {
		lastSeen := "-"
		if d.LastSeen != nil {
			lastSeen = d.LastSeen.Local().Format(time.DateTime)
		}
		line := fmt.Sprintf("%s\t%s\t%s\t%s", d.MAC, dash(d.Name), dash(d.LastHostname), lastSeen)
		if *orgs {
			names := make([]string, 0, len(d.Organizations))
			for _, o := range d.Organizations {
				names = append(names, o.Name)
			}
			line += "\t" + dash(strings.Join(names, "; "))
		}
		fmt.Fprintln(tw, line)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func runName(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("name", flag.ContinueOnError)
	clearName := fs.Bool("clear", false, "remove the name instead of setting it")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	inventory, err := a.inventory(false)
	if err != nil {
		return err
	}

	var device *domain.Device
	switch {
	case *clearName && fs.NArg() == 1:
		device, err = inventory.ClearName(ctx, fs.Arg(0))
	case !*clearName && fs.NArg() == 2:
		device, err = inventory.SetName(ctx, fs.Arg(0), fs.Arg(1))
	default:
		return fmt.Errorf("%w: usage: name MAC NAME | name -clear MAC", domain.ErrInvalidArgument)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s: %s\n", device.MAC, device.DisplayName())
	return nil
}

// timeRangeFlags registers -from and -to on fs
func timeRangeFlags(fs *flag.FlagSet) func() (domain.TimeRange, error) {
	from := fs.String("from", "", "earliest scan to include (RFC 3339)")
	to := fs.String("to", "", "latest scan to include (RFC 3339)")
	return func() (domain.TimeRange, error) {
		var r domain.TimeRange
		var err error
		if *from != "" {
			if r.From, err = time.Parse(time.RFC3339, *from); err != nil {
				return r, fmt.Errorf("%w: -from: %v", domain.ErrInvalidArgument, err)
			}
		}
		if *to != "" {
			if r.To, err = time.Parse(time.RFC3339, *to); err != nil {
				return r, fmt.Errorf("%w: -to: %v", domain.ErrInvalidArgument, err)
			}
		}
		return r, r.Validate()
	}
}

func runHistory(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	timeRange := timeRangeFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: usage: history [-from T] [-to T] MAC|NAME", domain.ErrInvalidArgument)
	}
	r, err := timeRange()
	if err != nil {
		return err
	}

	devices, err := a.deviceStore()
	if err != nil {
		return err
	}
	history, err := service.NewTimeline(devices).History(ctx, fs.Arg(0), r)
	if err != nil {
		return err
	}

	if history.Device.ID == 0 {
		fmt.Fprintf(a.out, "%s: no history\n", fs.Arg(0))
		return nil
	}
	fmt.Fprintf(a.out, "%s (%s): present in %d of %d scans\n",
		history.Device.DisplayName(), history.Device.MAC, history.PresentCount(), len(history.Points))
	for _, p := range history.Points {
		mark := "."
		if p.Present {
			mark = "+"
		}
		fmt.Fprintf(a.out, "%s %s\n", p.Instant.Local().Format(time.DateTime), mark)
	}
	return nil
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	format := fs.String("format", "json", "output format: json or yaml")
	output := fs.String("o", "", "output file (default: stdout)")
	timeRange := timeRangeFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	r, err := timeRange()
	if err != nil {
		return err
	}
	c, err := codec.ForFormat(*format)
	if err != nil {
		return err
	}

	devices, err := a.deviceStore()
	if err != nil {
		return err
	}
	histories, err := service.NewTimeline(devices).HistoryAll(ctx, r)
	if err != nil {
		return err
	}
	doc := codec.NewDocument(histories, r, time.Now())

	if *output == "" {
		return c.Export(doc, a.out)
	}

	f, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := c.Export(doc, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
