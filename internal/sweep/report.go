package sweep

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
)

var recordHeader = []string{"index", "model", "input_file", "status", "exit_code", "started", "duration", "error", "command"}

// recorder writes results as CSV, one flushed row per job.
type recorder struct {
	w *csv.Writer
}

func newRecorder(w io.Writer) (*recorder, error) {
	rec := &recorder{w: csv.NewWriter(w)}

	err := rec.flush(recordHeader)
	if err != nil {
		return nil, errors.Wrap(err, "unable to write results header")
	}

	return rec, nil
}

func (rec *recorder) flush(row []string) error {
	err := rec.w.Write(row)
	if err != nil {
		return err
	}

	rec.w.Flush()

	return rec.w.Error()
}

func (rec *recorder) write(res Result) error {
	started := ""
	if !res.Started.IsZero() {
		started = res.Started.UTC().Format(time.RFC3339)
	}

	errMsg := ""
	if res.Err != nil {
		errMsg = res.Err.Error()
	}

	err := rec.flush([]string{
		strconv.Itoa(res.Job.Index),
		res.Job.Model,
		res.Job.InputFile,
		res.Status(),
		strconv.Itoa(res.ExitCode),
		started,
		res.Duration.String(),
		errMsg,
		res.Invocation.String(),
	})

	return errors.Wrapf(err, "unable to write result of job %d", res.Job.Index)
}

// WriteSummary renders the results as a table followed by the totals.
func WriteSummary(w io.Writer, summary *Summary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Model", "File", "Status", "Exit", "Duration"})
	table.SetAutoWrapText(false)

	for _, res := range summary.Results {
		table.Append([]string{
			strconv.Itoa(res.Job.Index),
			res.Job.Model,
			res.Job.InputFile,
			res.Status(),
			strconv.Itoa(res.ExitCode),
			res.Duration.Round(time.Millisecond).String(),
		})
	}

	table.SetFooter([]string{
		"", "", "total " + strconv.Itoa(summary.Total),
		"ok " + strconv.Itoa(summary.Succeeded),
		"failed " + strconv.Itoa(summary.Failed),
		"skipped " + strconv.Itoa(summary.Skipped),
	})
	table.Render()
}
