// Package loader fetches the named datasets that populate the shared state
// store.
//
// Every dataset in a batch is fetched on its own goroutine and written through
// a single store load cycle. A failing dataset never fails the batch: the
// loader logs one error record carrying the dataset name and the cause, leaves
// the key untouched, and lets the remaining loads finish. LoadAll returns once
// every load has either succeeded or failed, with a Report describing each
// outcome.
//
// Fetchers resolve a dataset name to a parsed JSON value. HTTPFetcher reads
// `<base>/<name>.json` over HTTP and FSFetcher reads `<name>.json` from an
// fs.FS. Watcher reloads datasets when their files change on disk.
package loader
