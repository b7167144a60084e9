/*
Package bundler runs a log and core dump collection.

A Bundler ties the pipeline together for one run. It matches every catalog
source against the collection window, adds the matched files to the archive,
analyses the core dumps of dump sources and finally writes the manifest and
finalizes the archive under the size guard.

# Quick Start

	cat, err := catalog.Load("config.json")
	if err != nil {
		return err
	}
	w, err := window.Parse("05/01/2023", "00:00", "05/01/2023", "23:59")
	if err != nil {
		return err
	}

	b, err := bundler.New(cat, w)
	if err != nil {
		return err
	}
	out, err := b.Run(ctx)
	fmt.Println(out.Summary())

# Failure Handling

Core dumps whose program cannot be resolved or whose backtrace cannot be
captured are recorded as warnings in the result and the run continues. Any
other error discards the archive; Run still returns the summary with the
aborted or size-exceeded status alongside the error.

# Concurrency

Sources are matched in parallel (config.WithConcurrency) but only the run
itself writes to the archive, in catalog order. Dump analysis is sequential
and every dump is analysed at most once per run.

# Metrics

Each run updates Prometheus counters on a private registry. WriteMetrics
exports them in text format for a node exporter textfile collector:

	logbundle_runs_total{status="success"} 1
	logbundle_files_archived_total{source="app1"} 12
	logbundle_dump_analyses_total{status="failed"} 1
*/
package bundler
