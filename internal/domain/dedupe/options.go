package dedupe

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithFoldCase makes key comparison case-insensitive. Usernames are unique
// regardless of case.
func WithFoldCase() Option {
	return func(d *inMemoryDeduper) {
		d.foldCase = true
	}
}
