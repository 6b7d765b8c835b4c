package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteReport writes a human readable table of results, one row per batch size.
// Times are in seconds.
func WriteReport(w io.Writer, results []Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "batch size\tbatches\tmean/img\tstd/img\tmean/batch\tstatus\n")
	for _, r := range results {
		switch {
		case r.Failed():
			fmt.Fprintf(tw, "%v\t%v\t-\t-\t-\terror: %v\n", r.BatchSize, r.Batches, r.Error)
		case r.Empty():
			fmt.Fprintf(tw, "%v\t0\t-\t-\t-\tno batches\n", r.BatchSize)
		default:
			fmt.Fprintf(tw, "%v\t%v\t%.4f\t%.4f\t%.4f\tok\n", r.BatchSize, r.Batches, r.MeanPerImage.Seconds(), r.StdDevPerImage.Seconds(), r.MeanPerBatch.Seconds())
		}
	}
	return tw.Flush()
}

// WriteJSON writes the results as an indented JSON array
func WriteJSON(w io.Writer, results []Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
