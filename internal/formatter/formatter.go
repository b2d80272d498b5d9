package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/kyleking/lernspark/internal/archive"
	"github.com/kyleking/lernspark/internal/dataset"
	"github.com/kyleking/lernspark/internal/inspect"
	"github.com/kyleking/lernspark/internal/objectstore"
	"github.com/kyleking/lernspark/internal/probe"
	"github.com/kyleking/lernspark/internal/schema"
	"github.com/kyleking/lernspark/internal/synth"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatLong  OutputFormat = "long"
	FormatShort OutputFormat = "short"
)

// ParseFormat maps a flag value to an OutputFormat, defaulting to short
func ParseFormat(s string) OutputFormat {
	if strings.EqualFold(s, string(FormatLong)) {
		return FormatLong
	}

	return FormatShort
}

const maxSampleWidth = 40

// Formatter renders results as plain text tables
type Formatter struct{}

// NewFormatter creates a new formatter instance
func NewFormatter() *Formatter {
	return &Formatter{}
}

func render(header []string, rows [][]string) string {
	var sb strings.Builder

	table := tablewriter.NewWriter(&sb)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()

	return sb.String()
}

// FormatSchema lists parsed tables. The long form adds one table per schema
// table with the column types and the value generator each column gets.
func (f *Formatter) FormatSchema(tables []schema.Table, format OutputFormat) string {
	if len(tables) == 0 {
		return "No tables found.\n"
	}

	rows := lo.Map(tables, func(t schema.Table, _ int) []string {
		names := lo.Map(t.Columns, func(c schema.Column, _ int) string { return c.Name })
		return []string{t.Name, strconv.Itoa(len(t.Columns)), dash(strings.Join(names, ", "))}
	})

	out := render([]string{"Table", "Columns", "Names"}, rows)
	if format != FormatLong {
		return out
	}

	var sb strings.Builder
	sb.WriteString(out)

	for _, t := range tables {
		if len(t.Columns) == 0 {
			continue
		}

		columnRows := lo.Map(t.Columns, func(c schema.Column, _ int) []string {
			return []string{
				c.Name,
				c.DataType.String(),
				dataset.MapType(c.DataType).String(),
				dash(strings.Join(c.Constraints, " ")),
				string(synth.Classify(c.Name)),
			}
		})

		fmt.Fprintf(&sb, "\n%s\n", t.Name)
		sb.WriteString(render([]string{"Column", "SQL Type", "Parquet Type", "Constraints", "Generator"}, columnRows))
	}

	return sb.String()
}

// FormatArchive describes a bundled archive and the tables in it
func (f *Formatter) FormatArchive(result *archive.Result) string {
	rows := lo.Map(result.Summaries, func(s *dataset.Summary, _ int) []string {
		return []string{
			s.Table,
			s.Path,
			strconv.Itoa(s.Rows),
			strconv.Itoa(s.Batches),
			formatDuration(s.Elapsed),
		}
	})

	var sb strings.Builder
	sb.WriteString(render([]string{"Table", "Entry", "Rows", "Batches", "Elapsed"}, rows))
	fmt.Fprintf(&sb, "Archive: %s (%s)\n", result.Path, humanizeBytes(uint64(max(result.SizeBytes, 0))))

	if len(result.Skipped) > 0 {
		fmt.Fprintf(&sb, "Skipped (no columns): %s\n", strings.Join(result.Skipped, ", "))
	}

	return sb.String()
}

// FormatInspection lists row counts read back from parquet files. The long
// form adds the column types and a sample row per file.
func (f *Formatter) FormatInspection(files []*inspect.FileSummary, format OutputFormat) string {
	if len(files) == 0 {
		return "No parquet files found.\n"
	}

	rows := lo.Map(files, func(s *inspect.FileSummary, _ int) []string {
		return []string{s.Name, strconv.FormatInt(s.Rows, 10), strconv.Itoa(len(s.Columns))}
	})

	out := render([]string{"File", "Rows", "Columns"}, rows)
	if format != FormatLong {
		return out
	}

	var sb strings.Builder
	sb.WriteString(out)

	for _, s := range files {
		columnRows := make([][]string, len(s.Columns))
		for i, c := range s.Columns {
			sample := "-"
			if i < len(s.Sample) {
				sample = formatValue(s.Sample[i])
			}

			columnRows[i] = []string{c.Name, c.Type, sample}
		}

		fmt.Fprintf(&sb, "\n%s\n", s.Name)
		sb.WriteString(render([]string{"Column", "Type", "Sample"}, columnRows))
	}

	return sb.String()
}

// FormatProbeReport renders the bucket facts, one row per upload and the
// teardown outcome.
func (f *Formatter) FormatProbeReport(r *probe.Report) string {
	var sb strings.Builder

	sb.WriteString(render([]string{"Field", "Value"}, [][]string{
		{"Bucket", r.Bucket},
		{"Location", dash(r.Location)},
		{"Region", dash(r.Region)},
		{"Request ID", dash(r.RequestID)},
		{"Deep Archive", yesNo(r.DeepArchive)},
		{"Objects", strconv.Itoa(len(r.ObjectKeys))},
		{"Uploaded", fmt.Sprintf("%d (%s)", len(r.Uploads), humanizeBytes(r.TotalBytes))},
		{"Elapsed", formatDuration(r.Elapsed)},
		{"Avg Throughput", formatThroughput(r.AverageThroughput())},
	}))

	if len(r.Uploads) > 0 {
		rows := lo.Map(r.Uploads, func(u probe.UploadResult, _ int) []string {
			return []string{
				u.Key,
				humanizeBytes(u.SizeBytes),
				formatDuration(u.Generation),
				formatDuration(u.Upload),
				formatThroughput(u.Throughput),
			}
		})

		sb.WriteString("\nUploads\n")
		sb.WriteString(render([]string{"Key", "Size", "Generation", "Upload", "Throughput"}, rows))
	}

	sb.WriteString("\nCleanup\n")
	sb.WriteString(f.formatCleanup(r.Cleanup))

	if r.UploadErr != nil {
		fmt.Fprintf(&sb, "Upload errors: %v\n", r.UploadErr)
	}

	return sb.String()
}

func (f *Formatter) formatCleanup(c probe.CleanupReport) string {
	errText := "-"
	if c.Err != nil {
		errText = c.Err.Error()
	}

	return render([]string{"Attempted", "Deleted", "Bucket Deleted", "Error"}, [][]string{{
		strconv.Itoa(len(c.Attempted)),
		strconv.Itoa(len(c.Deleted)),
		yesNo(c.BucketDeleted),
		errText,
	}})
}

// FormatBuckets lists buckets visible to the configured credentials
func (f *Formatter) FormatBuckets(buckets []objectstore.BucketInfo) string {
	if len(buckets) == 0 {
		return "No buckets visible.\n"
	}

	rows := lo.Map(buckets, func(b objectstore.BucketInfo, _ int) []string {
		created := "?"
		if !b.Created.IsZero() {
			created = b.Created.UTC().Format(time.DateOnly)
		}

		return []string{b.Name, created}
	})

	return render([]string{"Bucket", "Created"}, rows)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}

// humanizeBytes uses binary units to match the MiB sizes in object keys
func humanizeBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatThroughput(bytesPerSecond float64) string {
	if bytesPerSecond <= 0 {
		return "-"
	}

	return humanizeBytes(uint64(bytesPerSecond)) + "/s"
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}

	switch {
	case d < time.Millisecond:
		return d.Round(time.Microsecond).String()
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}

func formatValue(v any) string {
	var s string

	switch val := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		s = val.Format(time.DateOnly)
	case []byte:
		s = string(val)
	default:
		s = fmt.Sprint(val)
	}

	if len(s) > maxSampleWidth {
		s = s[:maxSampleWidth-3] + "..."
	}

	return s
}
